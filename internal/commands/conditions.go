package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"capi-inspector/internal/collect"
	"capi-inspector/internal/conditions"
	"capi-inspector/internal/export"
	"capi-inspector/internal/output"
	"capi-inspector/internal/policy"
	"github.com/spf13/cobra"
)

func newConditionsCommand(env *Env, opts *Options) *cobra.Command {
	var (
		rf      reportFlags
		src     sourceFlags
		showAll bool
	)
	cmd := &cobra.Command{
		Use:   "conditions [CLUSTER]",
		Short: "Summarize the status conditions of Cluster API resources",
		Long: `Conditions lists the status conditions of every Cluster API resource,
reading v1beta2 conditions where present. Unhealthy conditions are shown
by default; --all includes healthy ones. Any unhealthy condition fails the
run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := rf.parse()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			name := ""
			if len(args) == 1 {
				name = args[0]
			}

			var in loaded
			switch {
			case src.offline():
				if in, err = src.loadFiles(ctx, env); err != nil {
					return err
				}
				in.docs = export.Select(filterNamespace(in.docs, src.namespaceOf(name != "")), name)
			default:
				f, err := opts.fetcher(env)
				if err != nil {
					return NewExitError(1, err)
				}
				if name != "" {
					in.docs = collect.ClusterObjects(ctx, f, name, src.namespaceOf(true))
					break
				}
				queries := make([]collect.Query, 0, len(collect.CAPIResources))
				for _, r := range collect.CAPIResources {
					queries = append(queries, src.query(r, false))
				}
				in.docs = collect.Collect(ctx, f, queries...)
			}

			summary := conditions.Summarize(in.docs)
			report := summary.Report(subjectFor(args))
			report.Add(in.diagnostics...)
			r := run{command: "conditions", report: report, documents: len(in.docs), mode: policy.ModeMigration}

			switch {
			case rf.output == "" && format == output.FormatText:
				if err := writeConditions(env.Stdout, summary, showAll); err != nil {
					return NewExitError(1, err)
				}
				if err := compare(env, &rf, format, report); err != nil {
					return err
				}
			case rf.output == "" && format == output.FormatJSON:
				if err := output.WriteJSON(env.Stdout, summary); err != nil {
					return NewExitError(1, err)
				}
				if err := compare(env, &rf, format, report); err != nil {
					return err
				}
			default:
				if err := emit(cmd, env, &rf, format, r); err != nil {
					return err
				}
			}
			return conclude(cmd, env, opts, &rf, r)
		},
	}
	rf.bind(cmd)
	src.bind(cmd)
	cmd.Flags().BoolVar(&showAll, "all", false, "Show healthy conditions too")
	return cmd
}

// writeConditions prints a condition table followed by per-kind counts.
func writeConditions(w io.Writer, s conditions.Summary, showAll bool) error {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RESOURCE\tTYPE\tSTATUS\tREASON\tMESSAGE")
	shown := 0
	for _, c := range s.Conditions {
		if !showAll && c.Healthy() {
			continue
		}
		msg := c.Message
		if len(msg) > 60 {
			msg = msg[:57] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.Resource, c.Type, c.Status, c.Reason, msg)
		shown++
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if shown == 0 {
		b.Reset()
		b.WriteString("All conditions healthy.\n")
	}

	fmt.Fprintf(&b, "\nConditions: %d total, %d healthy, %d unhealthy\n", s.Total(), s.Healthy(), s.Total()-s.Healthy())
	for _, kind := range s.Kinds() {
		ks := s.ByKind[kind]
		fmt.Fprintf(&b, "  %-24s %d/%d healthy\n", kind, ks.Healthy, ks.Total)
	}
	if len(s.UnhealthyTypes) > 0 {
		fmt.Fprintf(&b, "Unhealthy types: %s\n", strings.Join(s.UnhealthyTypes, ", "))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
