package commands

import (
	"errors"

	"capi-inspector/internal/output"
	"capi-inspector/internal/versions"
	"github.com/spf13/cobra"
)

func newVersionsCommand(env *Env) *cobra.Command {
	var (
		from, to  string
		list      bool
		checklist bool
		format    string
	)
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "Compare Cluster API releases",
		Long: `Versions lists the known Cluster API releases or compares two of them:
Kubernetes and Go requirements, new features, deprecations, breaking
changes and the v1beta1 to v1beta2 API changes.`,
		Example: `  capi-inspect versions --list
  capi-inspect versions --from v1.8.0 --to v1.10.0 --checklist`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if !list && (from == "" || to == "") {
				return usageError(errors.New("--from and --to are required unless --list is set"))
			}
			if format != string(output.FormatText) && format != string(output.FormatJSON) {
				return usageError(errors.New("--format must be text or json"))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				releases, err := versions.Releases()
				if err != nil {
					return NewExitError(1, err)
				}
				if format == string(output.FormatJSON) {
					return output.WriteJSON(env.Stdout, releases)
				}
				return versions.WriteList(env.Stdout, releases)
			}

			c, err := versions.Compare(from, to)
			if err != nil {
				return usageError(err)
			}
			if format == string(output.FormatJSON) {
				v := struct {
					versions.Comparison
					Checklist *versions.Checklist `json:"checklist,omitempty"`
				}{Comparison: c}
				if checklist {
					cl := c.Checklist()
					v.Checklist = &cl
				}
				return output.WriteJSON(env.Stdout, v)
			}
			if err := versions.WriteComparison(env.Stdout, c); err != nil {
				return err
			}
			if checklist {
				return versions.WriteChecklist(env.Stdout, c.Checklist())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Current CAPI version (e.g. v1.8.0)")
	cmd.Flags().StringVar(&to, "to", "", "Target CAPI version (e.g. v1.10.0)")
	cmd.Flags().BoolVar(&list, "list", false, "List known versions")
	cmd.Flags().BoolVar(&checklist, "checklist", false, "Print a migration checklist")
	cmd.Flags().StringVar(&format, "format", string(output.FormatText), "Output format: text or json")
	return cmd
}
