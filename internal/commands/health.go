package commands

import (
	"fmt"

	"capi-inspector/internal/analyze"
	"capi-inspector/internal/collect"
	"capi-inspector/internal/export"
	"capi-inspector/internal/model"
	"capi-inspector/internal/policy"
	"github.com/spf13/cobra"
)

func newHealthCommand(env *Env, opts *Options) *cobra.Command {
	var (
		rf  reportFlags
		src sourceFlags
	)
	cmd := &cobra.Command{
		Use:   "health CLUSTER",
		Short: "Check the conditions of a cluster and its machines",
		Long: `Health reads a Cluster, its machines, machine sets, machine deployments
and control plane, and reports conditions that are not in their healthy
state. Exits 2 when errors are found and 1 for warnings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := rf.parse()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			name := args[0]
			reg, err := analyze.NewDefault(analyze.Options{})
			if err != nil {
				return err
			}

			var in loaded
			if src.offline() {
				if in, err = src.loadFiles(ctx, env); err != nil {
					return err
				}
				in.docs = export.Select(filterNamespace(in.docs, src.namespaceOf(true)), name)
			} else {
				f, err := opts.fetcher(env)
				if err != nil {
					return NewExitError(1, err)
				}
				in.docs = collect.ClusterObjects(ctx, f, name, src.namespaceOf(true))
			}

			ns := src.namespaceOf(true)
			report := model.NewReport(fmt.Sprintf("%s/%s", ns, name))
			if ns == "" {
				report.Subject = name
			}
			report.Add(in.diagnostics...)
			if len(clusterDocs(in.docs)) == 0 {
				report.Add(model.Finding{
					ID:             "HEALTH_CLUSTER_NOT_FOUND",
					Severity:       model.SeverityError,
					Category:       "Cluster",
					ResourceID:     "Cluster/" + report.Subject,
					Message:        "Cluster not found",
					Recommendation: "Check the cluster name and namespace",
				})
			}
			report.Add(analyze.Analyze(reg, report.Subject, in.docs, analyze.FamilyHealth).Findings...)
			return finish(cmd, env, opts, &rf, format, run{
				command:   "health",
				report:    report,
				documents: len(in.docs),
				mode:      policy.ModeHealth,
			})
		},
	}
	rf.bind(cmd)
	src.bind(cmd)
	return cmd
}
