package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mldulaney/scopehal-apps/internal/metrics"
	"github.com/mldulaney/scopehal-apps/internal/reconfig"
)

// SetOptions holds flags for the set command.
type SetOptions struct {
	*RootOptions
	Database string
	Inputs   []string // port=stream
	Params   []string // name=text
	Name     string
	Default  bool
}

// ChangeView is one committed field change.
type ChangeView struct {
	Kind  string `json:"kind"`
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// RenameView is a downstream name regenerated by the pass.
type RenameView struct {
	Node string `json:"node"`
	Old  string `json:"old"`
	New  string `json:"new"`
}

// RejectionView is one edit that was not applied.
type RejectionView struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// SetResult reports what one pass did.
type SetResult struct {
	Node         string          `json:"node"`
	PassID       string          `json:"pass_id"`
	Seq          int64           `json:"seq,omitempty"`
	Reconfigured bool            `json:"reconfigured"`
	DisplayName  string          `json:"display_name"`
	Changes      []ChangeView    `json:"changes"`
	Renames      []RenameView    `json:"renames,omitempty"`
	Rejections   []RejectionView `json:"rejections,omitempty"`
	Metrics      []MetricSample  `json:"metrics,omitempty"`
}

type flagPair struct {
	key, value string
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "set <graph> <node>",
		Short: "Reconfigure a node in one pass",
		Long: `Stage input bindings, parameter text and a display name for one node
and commit them together as a single pass.

Streams are given as references: NULL, instrument.channel[.stream] or
node[.stream]. Only streams offered by "scopecfg inputs" are accepted.
Parameter text takes SI prefixes and unit suffixes ("20 MHz", "1.5k").
Edits that fail are rejected individually; the rest of the pass still
applies.

With --db, the journal is replayed onto the graph first and the pass is
appended to it.

Exit codes:
  0 - Pass committed, nothing rejected
  1 - One or more edits rejected
  2 - Command error (bad graph, unknown node, malformed flag, journal)

Examples:
  scopecfg set ./bench.cue Subtract1 --input IN+=scope.CH2 --input IN-=scope.CH1
  scopecfg set ./bench.cue FFT1 --param "Window=Hamming" --name spectrum --db ./journal.db
  scopecfg set ./bench.cue FFT1 --default --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal to replay and append to (default $"+EnvDatabase+")")
	cmd.Flags().StringArrayVar(&opts.Inputs, "input", nil, "bind an input: port=stream (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Params, "param", nil, "edit a parameter: name=text (repeatable)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "set a user display name")
	cmd.Flags().BoolVar(&opts.Default, "default", false, "return to the generated display name")

	return cmd
}

func runSet(opts *SetOptions, graphPath, nodeName string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	inputs, err := parsePairs("--input", opts.Inputs)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadFlag, err.Error())
	}
	params, err := parsePairs("--param", opts.Params)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadFlag, err.Error())
	}
	rename := cmd.Flags().Changed("name")
	if rename && opts.Default {
		return formatter.Fail(ExitCommandError, ErrCodeBadFlag, "--name and --default are mutually exclusive")
	}
	if len(inputs) == 0 && len(params) == 0 && !rename && !opts.Default {
		return formatter.Fail(ExitCommandError, ErrCodeBadFlag, "nothing to set: give --input, --param, --name or --default")
	}

	s, err := openSession(ctx, opts.RootOptions, formatter, graphPath, databasePath(cmd, opts.Database))
	if err != nil {
		return err
	}
	defer s.close()

	n, err := s.node(formatter, nodeName)
	if err != nil {
		return err
	}

	logger := opts.logger()
	registry := prometheus.NewRegistry()
	var renames []RenameView
	ctrlOpts := []reconfig.Option{
		reconfig.WithValidators(s.filters.Validators()),
		reconfig.WithNamer(s.filters),
		reconfig.WithListener(&reconfig.Propagator{
			Graph:  s.graph,
			Namer:  s.filters,
			Logger: logger,
			OnRename: func(r reconfig.Rename) {
				renames = append(renames, RenameView{Node: r.Node.HWName(), Old: r.Old, New: r.New})
			},
		}),
		reconfig.WithLogger(logger),
		reconfig.WithMetrics(metrics.New(registry)),
		reconfig.WithClock(reconfig.NewClockAt(s.lastSeq)),
	}
	if s.store != nil {
		ctrlOpts = append(ctrlOpts, reconfig.WithListener(&reconfig.JournalListener{Journal: s.store}))
	}
	ctrl := reconfig.New(s.graph, ctrlOpts...)

	ed := ctrl.Open(n)
	defer ed.Close()
	p, err := ed.BeginPass()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	var rejections []RejectionView
	for _, in := range inputs {
		i, ok := n.InputIndex(in.key)
		if !ok {
			p.Abandon()
			return formatter.Fail(ExitCommandError, ErrCodeBadFlag, fmt.Sprintf("%s has no input %q", n.HWName(), in.key))
		}
		stream, err := s.graph.Resolve(in.value)
		if err != nil {
			p.Abandon()
			return formatter.Fail(ExitCommandError, ErrCodeBadFlag, fmt.Sprintf("--input %s: %v", in.key, err))
		}
		if err := p.SelectInput(i, stream); err != nil {
			var rerr *reconfig.Error
			if !errors.As(err, &rerr) {
				p.Abandon()
				return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
			}
			rejections = append(rejections, rejectionView(rerr))
		}
	}
	for _, pr := range params {
		if err := p.EditParam(pr.key, pr.value); err != nil {
			p.Abandon()
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
		}
	}
	switch {
	case rename:
		err = p.Rename(opts.Name)
	case opts.Default:
		err = p.UseDefaultName()
	}
	if err != nil {
		p.Abandon()
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	out, err := p.Commit(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}
	for _, r := range out.Rejections {
		rejections = append(rejections, rejectionView(r))
	}

	result := SetResult{
		Node:         n.HWName(),
		PassID:       out.PassID,
		Reconfigured: out.Reconfigured(),
		DisplayName:  n.DisplayName(),
		Changes:      make([]ChangeView, len(out.Changes)),
		Renames:      renames,
		Rejections:   rejections,
	}
	if out.Event != nil {
		result.Seq = out.Event.Seq
	}
	for i, c := range out.Changes {
		result.Changes[i] = ChangeView{Kind: string(c.Kind), Field: c.Field, Old: c.Old, New: c.New}
	}
	if opts.Verbose {
		samples, err := gatherMetrics(registry)
		if err != nil {
			logger.Warn("metrics unavailable", "error", err)
		}
		result.Metrics = samples
	}

	if len(out.ListenerErrors) > 0 {
		var merr *multierror.Error
		for _, e := range out.ListenerErrors {
			merr = multierror.Append(merr, e)
		}
		return formatter.Fail(ExitCommandError, ErrCodeJournal, fmt.Sprintf("pass %s applied but not recorded: %v", out.PassID, merr))
	}

	if len(rejections) > 0 {
		msg := fmt.Sprintf("%d edit(s) rejected", len(rejections))
		if formatter.JSON() {
			if err := formatter.Failure(result, rejections[0].Code, msg); err != nil {
				return err
			}
		} else {
			outputSetText(formatter, result)
			fmt.Fprintf(formatter.Writer, "✗ %s\n", msg)
		}
		return NewExitError(ExitFailure, msg)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	outputSetText(formatter, result)
	return nil
}

// parsePairs splits key=value flag values. The value may itself contain
// '='; the key may not be empty.
func parsePairs(flag string, values []string) ([]flagPair, error) {
	out := make([]flagPair, 0, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%s %q: want name=value", flag, v)
		}
		out = append(out, flagPair{key: key, value: value})
	}
	return out, nil
}

func rejectionView(e *reconfig.Error) RejectionView {
	return RejectionView{Code: string(e.Code), Field: e.Field, Message: e.Message}
}

func outputSetText(formatter *OutputFormatter, result SetResult) {
	w := formatter.Writer
	if result.Reconfigured {
		fmt.Fprintf(w, "✓ %s reconfigured (pass %s, seq %d)\n", result.Node, result.PassID, result.Seq)
	} else {
		fmt.Fprintf(w, "= %s unchanged\n", result.Node)
	}
	for _, c := range result.Changes {
		fmt.Fprintf(w, "  %s %s: %q -> %q\n", c.Kind, c.Field, c.Old, c.New)
	}
	for _, r := range result.Renames {
		fmt.Fprintf(w, "  renamed %s: %q -> %q\n", r.Node, r.Old, r.New)
	}
	for _, r := range result.Rejections {
		if r.Field != "" {
			fmt.Fprintf(w, "  rejected %s %s: %s\n", r.Code, r.Field, r.Message)
			continue
		}
		fmt.Fprintf(w, "  rejected %s: %s\n", r.Code, r.Message)
	}
	if len(result.Metrics) > 0 {
		fmt.Fprintln(w)
		writeMetrics(w, result.Metrics)
	}
}
