package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mldulaney/scopehal-apps/internal/reconfig"
)

// InputsOptions holds flags for the inputs command.
type InputsOptions struct {
	*RootOptions
	Database string
}

// InputView is one input port with its legal streams.
type InputView struct {
	Port       string          `json:"port"`
	Current    string          `json:"current"`
	Ref        string          `json:"ref"`
	Selected   int             `json:"selected"`
	Candidates []CandidateView `json:"candidates"`
}

// CandidateView is one stream offered for an input.
type CandidateView struct {
	Label string `json:"label"`
	Ref   string `json:"ref"`
}

// InputsResult lists every input of a node.
type InputsResult struct {
	Node        string      `json:"node"`
	Type        string      `json:"type"`
	DisplayName string      `json:"display_name"`
	Inputs      []InputView `json:"inputs"`
}

// NewInputsCommand creates the inputs command.
func NewInputsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InputsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inputs <graph> <node>",
		Short: "List the streams each input of a node can be bound to",
		Long: `List every input port of a node with its current binding and the
streams it may legally be bound to. NULL is always offered first; the
current binding is marked.

Examples:
  scopecfg inputs ./bench.cue Subtract1
  scopecfg inputs ./bench.cue FFT1 --db ./journal.db --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInputs(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "replay this journal before listing (default $"+EnvDatabase+")")
	return cmd
}

func runInputs(opts *InputsOptions, graphPath, nodeName string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	s, err := openSession(ctx, opts.RootOptions, formatter, graphPath, databasePath(cmd, opts.Database))
	if err != nil {
		return err
	}
	defer s.close()

	n, err := s.node(formatter, nodeName)
	if err != nil {
		return err
	}

	ctrl := reconfig.New(s.graph,
		reconfig.WithValidators(s.filters.Validators()),
		reconfig.WithNamer(s.filters),
		reconfig.WithLogger(opts.logger()),
	)
	ed := ctrl.Open(n)
	defer ed.Close()

	result := InputsResult{
		Node:        n.HWName(),
		Type:        n.Type(),
		DisplayName: n.DisplayName(),
		Inputs:      make([]InputView, 0, n.InputCount()),
	}
	for i := 0; i < n.InputCount(); i++ {
		cands, selected, err := ed.Candidates(i)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
		}
		port, _ := n.InputPort(i)
		view := InputView{
			Port:       port.Name,
			Current:    n.Input(i).Name(),
			Ref:        n.Input(i).Ref(),
			Selected:   selected,
			Candidates: make([]CandidateView, len(cands)),
		}
		for j, c := range cands {
			view.Candidates[j] = CandidateView{Label: c.Label, Ref: c.Stream.Ref()}
		}
		result.Inputs = append(result.Inputs, view)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	outputInputsText(formatter, result)
	return nil
}

func outputInputsText(formatter *OutputFormatter, result InputsResult) {
	w := formatter.Writer
	fmt.Fprintf(w, "%s (%s) %q\n", result.Node, result.Type, result.DisplayName)
	if len(result.Inputs) == 0 {
		fmt.Fprintln(w, "  (no inputs)")
		return
	}
	for _, in := range result.Inputs {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "=== %s ===\n", in.Port)
		for j, c := range in.Candidates {
			mark := " "
			if j == in.Selected {
				mark = "*"
			}
			fmt.Fprintf(w, "  %s %-24s %s\n", mark, c.Label, c.Ref)
		}
	}
}
