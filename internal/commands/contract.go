package commands

import (
	"fmt"
	"strings"

	"capi-inspector/internal/analyze"
	"capi-inspector/internal/collect"
	"capi-inspector/internal/document"
	"capi-inspector/internal/manifest"
	"capi-inspector/internal/model"
	"capi-inspector/internal/output"
	"capi-inspector/internal/policy"
	"github.com/spf13/cobra"
)

func newContractCommand(env *Env, opts *Options) *cobra.Command {
	var (
		rf       reportFlags
		provider string
	)
	cmd := &cobra.Command{
		Use:   "contract [PATH...]",
		Short: "Check provider CRDs against the Cluster API provider contract",
		Long: `Contract checks infrastructure, bootstrap and control plane provider CRDs
for the spec and status fields their contract requires. CRDs are read from
the given files, or from the cluster when no path is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := rf.parse()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var in loaded
			if len(args) > 0 {
				set, err := manifest.Load(ctx, env.Stdin, args...)
				if err != nil {
					return usageError(err)
				}
				in = loaded{docs: set.Documents, diagnostics: set.Diagnostics}
			} else {
				f, err := opts.fetcher(env)
				if err != nil {
					return NewExitError(1, err)
				}
				in.docs = collect.Collect(ctx, f, collect.Query{Resource: collect.CRDs})
			}

			crds := providerCRDs(in.docs, provider)
			subject := "provider CRDs"
			if provider != "" {
				subject = provider + " provider CRDs"
			}
			report := model.NewReport(subject)
			report.Add(in.diagnostics...)
			var results []analyze.ContractResult
			for _, crd := range crds {
				res := analyze.CheckContract(crd)
				results = append(results, res)
				report.Add(res.Report.Findings...)
			}

			if rf.output == "" && format == output.FormatText {
				writeCompliance(cmd, results)
			}
			return finish(cmd, env, opts, &rf, format, run{
				command:   "contract",
				report:    report,
				documents: len(crds),
				mode:      policy.ModeStandard,
			})
		},
	}
	rf.bind(cmd)
	cmd.Flags().StringVar(&provider, "provider", "", "Only check CRDs of this provider (e.g. aws)")
	return cmd
}

// providerCRDs keeps the CRDs in a provider contract group with a known
// contract type.
func providerCRDs(docs []document.Document, provider string) []document.Document {
	var out []document.Document
	for _, d := range docs {
		if d.Kind() != "CustomResourceDefinition" || analyze.DetectProviderType(d) == analyze.UnknownProvider {
			continue
		}
		if !inContractGroup(d.String("spec.group")) {
			continue
		}
		if provider != "" && analyze.ProviderName(d) != strings.ToLower(provider) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func inContractGroup(group string) bool {
	for _, g := range analyze.ContractGroups {
		if strings.HasSuffix(group, g) {
			return true
		}
	}
	return false
}

func writeCompliance(cmd *cobra.Command, results []analyze.ContractResult) {
	if len(results) == 0 {
		cmd.Println("No provider CRDs found.")
		return
	}
	for _, res := range results {
		verdict := "COMPLIANT"
		if !res.Compliant() {
			verdict = fmt.Sprintf("NON-COMPLIANT (%d error(s))", res.Report.ErrorCount())
		}
		cmd.Printf("%s [%s, %s]: %s\n", res.CRD, res.Provider, res.Type, verdict)
	}
	cmd.Println()
}
