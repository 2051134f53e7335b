package commands

import (
	"capi-inspector/internal/analyze"
	"capi-inspector/internal/collect"
	"capi-inspector/internal/document"
	"capi-inspector/internal/model"
	"capi-inspector/internal/policy"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
)

func newAuditCommand(env *Env, opts *Options) *cobra.Command {
	var (
		rf  reportFlags
		src sourceFlags
	)
	cmd := &cobra.Command{
		Use:   "audit [CLUSTER]",
		Short: "Audit clusters for security and availability issues",
		Long: `Audit checks each Cluster together with its control plane, machines and
secrets: pod security, network policy, authentication, kubeconfig and
bootstrap secrets, and control plane replica sizing. Without a cluster name
every cluster in the selected namespaces is audited. High findings fail the
run; --strict also fails on medium ones.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := rf.parse()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			logger := logr.FromContextOrDiscard(ctx)
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			reg, err := analyze.NewDefault(analyze.Options{})
			if err != nil {
				return err
			}

			var in loaded
			if src.offline() {
				if in, err = src.loadFiles(ctx, env); err != nil {
					return err
				}
				in.docs = filterNamespace(in.docs, src.namespaceOf(name != ""))
			} else {
				f, err := opts.fetcher(env)
				if err != nil {
					return NewExitError(1, err)
				}
				clusters := src.query(collect.Clusters, name != "")
				clusters.Name = name
				in.docs = collect.Collect(ctx, f,
					clusters,
					src.query(collect.KubeadmControlPlanes, name != ""),
					src.query(collect.Machines, name != ""),
					src.query(collect.Secrets, name != ""),
				)
			}

			var reports []*model.Report
			for _, c := range in.docs {
				if c.Kind() != "Cluster" || (name != "" && c.Name() != name) {
					continue
				}
				rel := analyze.Correlate(c, in.docs)
				logger.V(1).Info("auditing cluster", "cluster", c.ResourceID(),
					"controlPlanes", len(rel.ControlPlanes), "machines", len(rel.Machines), "secrets", len(rel.Secrets))
				reports = append(reports, analyze.AuditCluster(reg, c, rel))
			}
			if len(reports) == 0 {
				logger.Info("no clusters found to audit")
			}

			subject := auditSubject(name, reports)
			report := model.NewReport(subject)
			report.Add(in.diagnostics...)
			report.Add(model.Merge(subject, reports...).Findings...)
			return finish(cmd, env, opts, &rf, format, run{
				command:   "audit",
				report:    report,
				documents: len(in.docs),
				mode:      policy.ModeSecurity,
			})
		},
	}
	rf.bind(cmd)
	src.bind(cmd)
	return cmd
}

func auditSubject(name string, reports []*model.Report) string {
	if len(reports) == 1 {
		return reports[0].Subject
	}
	if name != "" {
		return name
	}
	return "all clusters"
}

// clusterDocs picks the Cluster objects out of docs.
func clusterDocs(docs []document.Document) []document.Document {
	var out []document.Document
	for _, d := range docs {
		if d.Kind() == "Cluster" {
			out = append(out, d)
		}
	}
	return out
}
