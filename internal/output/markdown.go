package output

import (
	"fmt"
	"io"
	"strings"

	"capi-inspector/internal/model"
)

func WriteMarkdown(w io.Writer, r *model.Report) error {
	var b strings.Builder
	title := "Cluster API Report"
	if r.Command != "" {
		title = "Cluster API " + r.Command + " report"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "**Subject:** %s\n\n", r.Subject)
	fmt.Fprintf(&b, "| Errors | Warnings | Info |\n|---|---|---|\n| %d | %d | %d |\n\n", r.ErrorCount(), r.WarningCount(), r.InfoCount())

	fmt.Fprintf(&b, "## Findings\n\n")
	if r.Len() == 0 {
		b.WriteString("No findings.\n")
	}
	for _, f := range r.SortedBySeverity() {
		fmt.Fprintf(&b, "### [%s] %s\n", strings.ToUpper(string(f.Severity)), f.ResourceID)
		if f.Field != "" {
			fmt.Fprintf(&b, "- Field: `%s`\n", f.Field)
		}
		fmt.Fprintf(&b, "- Issue: %s\n", f.Message)
		if f.Recommendation != "" {
			fmt.Fprintf(&b, "- Recommendation: %s\n", f.Recommendation)
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
