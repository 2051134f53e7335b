package commands

import (
	"errors"
	"fmt"

	"capi-inspector/internal/export"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
)

func newExportCommand(env *Env, opts *Options) *cobra.Command {
	var (
		dir            string
		namespace      string
		all            bool
		includeSecrets bool
		includeRefs    bool
		singleFile     bool
	)
	cmd := &cobra.Command{
		Use:   "export [CLUSTER]",
		Short: "Export Cluster API resources as clean manifests",
		Long: `Export writes a cluster's Cluster API objects, provider objects, the
objects they reference and the secrets Cluster API manages as YAML
manifests, stripped of status and server-populated metadata. Secret values
are redacted unless --include-secrets is set. An index.yaml lists the
written files.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return usageError(errors.New("a cluster name or --all is required"))
			}
			if len(args) == 1 && all {
				return usageError(errors.New("--all cannot be combined with a cluster name"))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := logr.FromContextOrDiscard(ctx)
			cluster := ""
			if len(args) == 1 {
				cluster = args[0]
			}
			if dir == "" {
				dir = fmt.Sprintf("cluster-state-%s", env.now().Format("20060102-150405"))
			}
			f, err := opts.fetcher(env)
			if err != nil {
				return NewExitError(1, err)
			}

			docs := export.Gather(ctx, f, export.Options{
				Cluster:        cluster,
				Namespace:      namespace,
				IncludeSecrets: includeSecrets,
				IncludeRefs:    includeRefs,
			})
			if len(docs) == 0 {
				cmd.Println("No resources found to export.")
				return nil
			}
			idx, err := export.Write(dir, cluster, docs, singleFile)
			if err != nil {
				return NewExitError(1, err)
			}
			logger.V(1).Info("export complete", "kinds", export.Summary(docs))
			cmd.Printf("Exported %d resources to %s (%d file(s))\n", idx.Total, dir, len(idx.Files))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "output", "o", "", "Output directory (default: cluster-state-<timestamp>)")
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Namespace to export from (default: all namespaces)")
	cmd.Flags().BoolVar(&all, "all", false, "Export every cluster")
	cmd.Flags().BoolVar(&includeSecrets, "include-secrets", false, "Keep secret values instead of redacting them")
	cmd.Flags().BoolVar(&includeRefs, "include-refs", true, "Include referenced infrastructure, control plane and bootstrap objects")
	cmd.Flags().BoolVar(&singleFile, "single-file", false, "Write everything to "+export.SingleFileName)
	return cmd
}
