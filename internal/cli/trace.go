package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mldulaney/scopehal-apps/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Node     string // optional - filter to one node
	PassID   string // optional - show one pass
}

// PassView is one journaled pass in the timeline.
type PassView struct {
	Seq         int64         `json:"seq"`
	ID          string        `json:"id"`
	Node        string        `json:"node"`
	Type        string        `json:"type"`
	DisplayName string        `json:"display_name"`
	Default     bool          `json:"using_default_name"`
	Inputs      []BindingView `json:"inputs"`
	Changes     []ChangeView  `json:"changes"`
}

// BindingView is one input binding after a pass.
type BindingView struct {
	Input  string `json:"input"`
	Stream string `json:"stream"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Node     string     `json:"node,omitempty"`
	Timeline []PassView `json:"timeline"`
	Stats    TraceStats `json:"stats"`
}

// TraceStats holds summary statistics for the journal.
type TraceStats struct {
	Passes  int      `json:"passes"`
	Nodes   []string `json:"nodes"`
	Inputs  int      `json:"input_changes"`
	Params  int      `json:"param_changes"`
	Names   int      `json:"name_changes"`
	LastSeq int64    `json:"last_seq"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the reconfiguration journal",
		Long: `Show journaled passes in seq order: which node each pass touched, what
it changed, and the bindings it left behind.

The output includes:
- Timeline: every pass with its changes
- Stats: pass and change counts, and the nodes involved

Examples:
  scopecfg trace --db ./journal.db
  scopecfg trace --db ./journal.db --node FFT1
  scopecfg trace --db ./journal.db --pass 0192b6c4-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the journal (default $"+EnvDatabase+")")
	cmd.Flags().StringVar(&opts.Node, "node", "", "filter to one node")
	cmd.Flags().StringVar(&opts.PassID, "pass", "", "show a single pass by ID")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	db := databasePath(cmd, opts.Database)
	if db == "" {
		return formatter.Fail(ExitCommandError, ErrCodeBadFlag, "--db or $"+EnvDatabase+" is required")
	}
	if _, err := os.Stat(db); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, fmt.Sprintf("journal not found: %s", db))
	}
	st, err := store.Open(db)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, fmt.Sprintf("open journal: %v", err))
	}
	defer st.Close()

	passes, err := readTracePasses(ctx, st, opts)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, err.Error())
	}
	if passes == nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, fmt.Sprintf("no pass with ID %q", opts.PassID))
	}

	result := TraceResult{
		Node:     opts.Node,
		Timeline: make([]PassView, len(passes)),
	}
	for i, p := range passes {
		result.Timeline[i] = passView(p)
	}
	result.Stats, err = traceStats(ctx, st, opts.Node, passes)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, err.Error())
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	outputTraceText(formatter.Writer, result, opts.Verbose)
	return nil
}

// readTracePasses returns the passes selected by the flags. A nil slice
// means --pass named a pass that does not exist.
func readTracePasses(ctx context.Context, st *store.Store, opts *TraceOptions) ([]store.Pass, error) {
	if opts.PassID == "" {
		passes, err := st.ReadPasses(ctx, opts.Node)
		if err != nil {
			return nil, fmt.Errorf("read journal: %w", err)
		}
		return passes, nil
	}

	p, ok, err := st.ReadPass(ctx, opts.PassID)
	if err != nil {
		return nil, fmt.Errorf("read pass: %w", err)
	}
	if !ok || (opts.Node != "" && p.Node != opts.Node) {
		return nil, nil
	}
	return []store.Pass{p}, nil
}

func passView(p store.Pass) PassView {
	v := PassView{
		Seq:         p.Seq,
		ID:          p.ID,
		Node:        p.Node,
		Type:        p.NodeType,
		DisplayName: p.DisplayName,
		Default:     p.UsingDefaultName,
		Inputs:      make([]BindingView, len(p.Inputs)),
		Changes:     make([]ChangeView, len(p.Changes)),
	}
	for i, b := range p.Inputs {
		v.Inputs[i] = BindingView{Input: b.Input, Stream: b.Stream}
	}
	for i, c := range p.Changes {
		v.Changes[i] = ChangeView{Kind: c.Kind, Field: c.Field, Old: c.Old, New: c.New}
	}
	return v
}

func traceStats(ctx context.Context, st *store.Store, node string, passes []store.Pass) (TraceStats, error) {
	stats := TraceStats{Passes: len(passes), Nodes: []string{}}
	seen := map[string]bool{}
	for _, p := range passes {
		if !seen[p.Node] {
			seen[p.Node] = true
			stats.Nodes = append(stats.Nodes, p.Node)
		}
		if p.Seq > stats.LastSeq {
			stats.LastSeq = p.Seq
		}
	}
	sort.Strings(stats.Nodes)

	if len(passes) == 1 {
		for _, c := range passes[0].Changes {
			countChange(&stats, c.Kind, 1)
		}
		return stats, nil
	}
	counts, err := st.ChangeCounts(ctx, node)
	if err != nil {
		return TraceStats{}, err
	}
	for kind, n := range counts {
		countChange(&stats, kind, n)
	}
	return stats, nil
}

func countChange(stats *TraceStats, kind string, n int) {
	switch kind {
	case "input":
		stats.Inputs += n
	case "param":
		stats.Params += n
	case "name":
		stats.Names += n
	}
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	if result.Node != "" {
		fmt.Fprintf(w, "Journal for node: %s\n", result.Node)
	} else {
		fmt.Fprintln(w, "Journal")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no passes)")
	}
	for _, p := range result.Timeline {
		fmt.Fprintf(w, "  [%d] %s (%s) %q\n", p.Seq, p.Node, p.Type, p.DisplayName)
		if verbose {
			fmt.Fprintf(w, "       Pass: %s\n", p.ID)
		}
		for _, c := range p.Changes {
			fmt.Fprintf(w, "       %s %s: %q -> %q\n", c.Kind, c.Field, c.Old, c.New)
		}
		if verbose {
			for _, b := range p.Inputs {
				fmt.Fprintf(w, "       bound %s = %s\n", b.Input, b.Stream)
			}
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Passes:         %d\n", result.Stats.Passes)
	fmt.Fprintf(w, "  Nodes:          %d\n", len(result.Stats.Nodes))
	fmt.Fprintf(w, "  Input changes:  %d\n", result.Stats.Inputs)
	fmt.Fprintf(w, "  Param changes:  %d\n", result.Stats.Params)
	fmt.Fprintf(w, "  Name changes:   %d\n", result.Stats.Names)
	fmt.Fprintf(w, "  Last seq:       %d\n", result.Stats.LastSeq)
}
