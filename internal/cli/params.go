package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mldulaney/scopehal-apps/internal/reconfig"
)

// ParamsOptions holds flags for the params command.
type ParamsOptions struct {
	*RootOptions
	Database string
}

// ParamInfo is one parameter as shown to the user.
type ParamInfo struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Unit     string `json:"unit,omitempty"`
	Text     string `json:"text"`
	Editable bool   `json:"editable"`
}

// ParamsResult lists the parameters of a node.
type ParamsResult struct {
	Node        string      `json:"node"`
	Type        string      `json:"type"`
	DisplayName string      `json:"display_name"`
	Default     bool        `json:"using_default_name"`
	Params      []ParamInfo `json:"params"`
}

// NewParamsCommand creates the params command.
func NewParamsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParamsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "params <graph> <node>",
		Short: "Show the parameters of a node",
		Long: `Show every parameter of a node in declaration order with its value as
edit text. Parameters marked read-only have no text form and cannot be
changed with set.

Examples:
  scopecfg params ./bench.cue FFT1
  scopecfg params ./bench.cue UART1 --db ./journal.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParams(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "replay this journal before listing (default $"+EnvDatabase+")")
	return cmd
}

func runParams(opts *ParamsOptions, graphPath, nodeName string, cmd *cobra.Command) error {
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

	ed := reconfig.New(s.graph, reconfig.WithLogger(opts.logger())).Open(n)
	defer ed.Close()

	views := ed.Parameters()
	result := ParamsResult{
		Node:        n.HWName(),
		Type:        n.Type(),
		DisplayName: n.DisplayName(),
		Default:     n.UsingDefaultName(),
		Params:      make([]ParamInfo, len(views)),
	}
	for i, v := range views {
		result.Params[i] = ParamInfo{
			Name:     v.Name,
			Kind:     v.Kind.String(),
			Unit:     v.Unit.String(),
			Text:     v.Text,
			Editable: v.Editable,
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	name := fmt.Sprintf("%q", result.DisplayName)
	if result.Default {
		name += " (default)"
	}
	fmt.Fprintf(w, "%s (%s) %s\n", result.Node, result.Type, name)
	if len(result.Params) == 0 {
		fmt.Fprintln(w, "  (no parameters)")
		return nil
	}
	for _, p := range result.Params {
		suffix := ""
		if !p.Editable {
			suffix = "  [read-only]"
		}
		fmt.Fprintf(w, "  %-20s %-10s %s%s\n", p.Name, p.Kind, p.Text, suffix)
	}
	return nil
}
