package output

import (
	"fmt"
	"io"
	"strings"

	"capi-inspector/internal/model"
)

var rule = strings.Repeat("=", 60)

// WriteText prints findings grouped into one section per severity, most
// severe first, followed by the level counts.
func WriteText(w io.Writer, r *model.Report) error {
	title := r.Subject
	if r.Command != "" {
		title = r.Command + ": " + r.Subject
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n%s\n", rule, title, rule)

	if r.Len() == 0 {
		b.WriteString("\nNo findings.\n")
	}
	for _, sev := range model.Severities {
		section := r.BySeverity(sev)
		if section.Len() == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s (%d)\n%s\n", strings.ToUpper(string(sev)), section.Len(), strings.Repeat("-", 40))
		for _, f := range section.Findings {
			fmt.Fprintf(&b, "  [%s] %s", f.Category, f.ResourceID)
			if pos := position(f); pos != "" {
				fmt.Fprintf(&b, " (%s)", pos)
			}
			fmt.Fprintf(&b, "\n    %s\n", f.Message)
			if f.Recommendation != "" {
				fmt.Fprintf(&b, "    -> %s\n", f.Recommendation)
			}
		}
	}
	fmt.Fprintf(&b, "\nSummary: %d error(s), %d warning(s), %d info\n", r.ErrorCount(), r.WarningCount(), r.InfoCount())
	_, err := io.WriteString(w, b.String())
	return err
}

func position(f model.Finding) string {
	switch {
	case f.Source == "":
		return ""
	case f.Line > 0:
		return fmt.Sprintf("%s:%d", f.Source, f.Line)
	}
	return f.Source
}
