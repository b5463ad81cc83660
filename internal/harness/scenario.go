package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a reconfiguration scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Graph is the path of a CUE graph description. Relative paths are
	// resolved against the scenario file by LoadScenario.
	Graph string `yaml:"graph,omitempty"`

	// GraphSource is an inline CUE graph description, used instead of Graph.
	GraphSource string `yaml:"graph_source,omitempty"`

	// Steps are passes run in order, each against one node.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final graph, trace and journal.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one pass. Inputs are staged by port name, then parameters in
// list order, then the rename or default-name switch.
type Step struct {
	// Node is the instance name of the node to edit.
	Node string `yaml:"node"`

	// Inputs maps port names to stream references.
	Inputs map[string]string `yaml:"inputs,omitempty"`

	// Params are parameter edits in staging order.
	Params []ParamEdit `yaml:"params,omitempty"`

	// Rename stages a user-chosen display name.
	Rename string `yaml:"rename,omitempty"`

	// UseDefault stages a return to the generated display name.
	UseDefault bool `yaml:"use_default,omitempty"`

	// Abandon closes the pass instead of committing it.
	Abandon bool `yaml:"abandon,omitempty"`

	// Expect checks the pass outcome. If nil, nothing is checked.
	Expect *StepExpect `yaml:"expect,omitempty"`
}

// ParamEdit sets a parameter from edit text.
type ParamEdit struct {
	Name string `yaml:"name"`
	Text string `yaml:"text"`
}

// StepExpect specifies the expected outcome of a step.
type StepExpect struct {
	// Reconfigured, if set, is whether the pass changed anything.
	Reconfigured *bool `yaml:"reconfigured,omitempty"`

	// Rejections, if set, are the error codes of refused edits in order,
	// including selections refused while staging.
	Rejections []string `yaml:"rejections,omitempty"`

	// Candidates maps port names to the labels offered when the pass began.
	Candidates map[string][]string `yaml:"candidates,omitempty"`
}

// Assertion validates the final state of a run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Node is an instance name (binding, param, display_name; optional for
	// trace_count and journal_count).
	Node string `yaml:"node,omitempty"`

	// Input is a port name (binding).
	Input string `yaml:"input,omitempty"`

	// Stream is the expected stream reference (binding).
	Stream string `yaml:"stream,omitempty"`

	// Param is a parameter name (param).
	Param string `yaml:"param,omitempty"`

	// Text is the expected parameter text (param).
	Text string `yaml:"text,omitempty"`

	// Name is the expected display name (display_name).
	Name string `yaml:"name,omitempty"`

	// Event is the trace event type to count (trace_count).
	Event string `yaml:"event,omitempty"`

	// Count is the expected number of events or journaled passes.
	Count int `yaml:"count,omitempty"`

	// Nodes is the expected order of pass events (trace_order).
	Nodes []string `yaml:"nodes,omitempty"`
}

// Assertion type constants.
const (
	AssertBinding      = "binding"
	AssertParam        = "param"
	AssertDisplayName  = "display_name"
	AssertTraceCount   = "trace_count"
	AssertTraceOrder   = "trace_order"
	AssertJournalCount = "journal_count"
)

// LoadScenario reads and parses a scenario YAML file. A relative graph path
// is resolved against the scenario's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the graph path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Graph != "" && !filepath.IsAbs(scenario.Graph) && basePath != "" {
		scenario.Graph = filepath.Join(basePath, scenario.Graph)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Graph == "" && s.GraphSource == "":
		return fmt.Errorf("one of graph or graph_source is required")
	case s.Graph != "" && s.GraphSource != "":
		return fmt.Errorf("graph and graph_source are mutually exclusive")
	}

	if s.Graph != "" {
		if _, err := os.Stat(s.Graph); os.IsNotExist(err) {
			return fmt.Errorf("graph file not found: %s", s.Graph)
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Node == "" {
			return fmt.Errorf("steps[%d]: node is required", i)
		}
		if step.Rename != "" && step.UseDefault {
			return fmt.Errorf("steps[%d]: rename and use_default are mutually exclusive", i)
		}
		for j, p := range step.Params {
			if p.Name == "" {
				return fmt.Errorf("steps[%d].params[%d]: name is required", i, j)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertBinding:
		if a.Node == "" || a.Input == "" || a.Stream == "" {
			return fmt.Errorf("assertions[%d]: node, input and stream are required for binding", index)
		}
	case AssertParam:
		if a.Node == "" || a.Param == "" {
			return fmt.Errorf("assertions[%d]: node and param are required for param", index)
		}
	case AssertDisplayName:
		if a.Node == "" || a.Name == "" {
			return fmt.Errorf("assertions[%d]: node and name are required for display_name", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Nodes) == 0 {
			return fmt.Errorf("assertions[%d]: nodes list is required for trace_order", index)
		}
	case AssertJournalCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for journal_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
