package commands

import (
	"slices"
	"strings"

	"capi-inspector/internal/analyze"
	"capi-inspector/internal/manifest"
	"capi-inspector/internal/model"
	"capi-inspector/internal/policy"
	"github.com/spf13/cobra"
)

// manifestCommand describes a command that analyzes manifest files.
type manifestCommand struct {
	use, short, long string
	families         []analyze.Family
	mode             policy.Mode
}

// selectFamilies parses --checks. Without it the command's own families
// run. Repeated names run once.
func selectFamilies(checks []string, defaults []analyze.Family) ([]analyze.Family, error) {
	if len(checks) == 0 {
		return defaults, nil
	}
	var out []analyze.Family
	seen := map[analyze.Family]bool{}
	for _, c := range checks {
		f, err := analyze.ParseFamily(c)
		if err != nil {
			return nil, usageError(err)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

func newManifestCommand(env *Env, opts *Options, mc manifestCommand) *cobra.Command {
	var (
		rf     reportFlags
		target string
		checks []string
	)
	cmd := &cobra.Command{
		Use:   mc.use + " PATH...",
		Short: mc.short,
		Long:  mc.long,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := rf.parse()
			if err != nil {
				return err
			}
			families, err := selectFamilies(checks, mc.families)
			if err != nil {
				return err
			}
			reg, err := analyze.NewDefault(analyze.Options{TargetVersion: target})
			if err != nil {
				return usageError(err)
			}
			set, err := manifest.Load(cmd.Context(), env.Stdin, args...)
			if err != nil {
				return usageError(err)
			}

			report := model.NewReport(subjectFor(args))
			report.Add(set.Diagnostics...)
			// The credential scan belongs to lint.
			if slices.Contains(families, analyze.FamilyLint) {
				for _, f := range set.Files {
					report.Add(analyze.LintText(f.Path, f.Content)...)
				}
			}
			report.Add(analyze.Analyze(reg, report.Subject, set.Documents, families...).Findings...)

			return finish(cmd, env, opts, &rf, format, run{
				command:   cmd.Name(),
				report:    report,
				documents: len(set.Documents),
				mode:      mc.mode,
			})
		},
	}
	rf.bind(cmd)
	cmd.Flags().StringSliceVar(&checks, "checks", nil, "Check families to run instead of the command's own: "+familyNames())
	cmd.Flags().StringVar(&target, "target-version", "", "Only report deprecations already in effect in this CAPI release (e.g. v1.10.0)")
	return cmd
}

func newLintCommand(env *Env, opts *Options) *cobra.Command {
	return newManifestCommand(env, opts, manifestCommand{
		use:   "lint",
		short: "Lint manifests for required fields, deprecated fields and hardcoded credentials",
		long: `Lint checks every document for the fields Kubernetes and Cluster API
require, deprecated fields and API versions, and scans the raw files for
hardcoded credentials. Directories are searched for .yaml, .yml and .json
files; "-" reads standard input.`,
		families: []analyze.Family{analyze.FamilyLint},
		mode:     policy.ModeStandard,
	})
}

func newValidateCommand(env *Env, opts *Options) *cobra.Command {
	return newManifestCommand(env, opts, manifestCommand{
		use:      "validate",
		short:    "Validate manifests against the Cluster API schema",
		long:     `Validate checks object references, API groups and the required spec fields of each Cluster API kind.`,
		families: []analyze.Family{analyze.FamilySchema},
		mode:     policy.ModeStandard,
	})
}

func newMigrateCommand(env *Env, opts *Options) *cobra.Command {
	return newManifestCommand(env, opts, manifestCommand{
		use:   "migrate",
		short: "Check manifests for v1beta1 to v1beta2 migration issues",
		long: `Migrate reports old API versions, removed and renamed fields, reference
shape changes and duration fields that move to integer seconds. Any
warning fails the run.`,
		families: []analyze.Family{analyze.FamilyMigration},
		mode:     policy.ModeMigration,
	})
}

func familyNames() string {
	names := make([]string, 0, len(analyze.Families))
	for _, f := range analyze.Families {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}
