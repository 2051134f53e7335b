package versions

import (
	"fmt"
	"io"
	"strings"
)

var rule = strings.Repeat("=", 60)

func bullets(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "   * %s\n", item)
	}
}

// WriteComparison prints a comparison for humans.
func WriteComparison(w io.Writer, c Comparison) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\nCAPI Version Comparison: %s -> %s\n%s\n", rule, c.From, c.To, rule)
	for _, v := range c.Unknown {
		fmt.Fprintf(&b, "\nWarning: version %s not in database\n", v)
	}
	if len(c.VersionsBetween) > 0 {
		fmt.Fprintf(&b, "\nVersions in range: %s\n", strings.Join(c.VersionsBetween, ", "))
	}
	if c.FromKubernetes != nil && c.ToKubernetes != nil {
		fmt.Fprintf(&b, "\nKubernetes Version Requirements:\n   From: %s - %s\n   To:   %s - %s\n",
			c.FromKubernetes.Min, c.FromKubernetes.Max, c.ToKubernetes.Min, c.ToKubernetes.Max)
	}
	if c.GoChanged() {
		fmt.Fprintf(&b, "\nGo Version:\n   %s -> %s\n", c.FromGo, c.ToGo)
	}
	bullets(&b, "Breaking Changes", c.Breaking)
	bullets(&b, "Deprecations", c.Deprecations)
	bullets(&b, "New Features", c.Features)
	if len(c.APIChanges) > 0 {
		b.WriteString("\nAPI Changes (v1beta1 -> v1beta2):\n")
		for _, ch := range c.APIChanges {
			fmt.Fprintf(&b, "\n   [%s] %s (%s)\n", ch.Kind, ch.Description, ch.Type)
			if ch.Old != "" {
				fmt.Fprintf(&b, "      Old: %s\n", ch.Old)
			}
			if ch.New != "" {
				fmt.Fprintf(&b, "      New: %s\n", ch.New)
			}
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func WriteChecklist(w io.Writer, cl Checklist) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\nMIGRATION CHECKLIST\n%s\n", rule, rule)
	section := func(title string, items []string, numbered bool) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n[ ] %s:\n", title)
		for i, item := range items {
			if numbered {
				fmt.Fprintf(&b, "   [ ] %d. %s\n", i+1, item)
			} else {
				fmt.Fprintf(&b, "   [ ] %s\n", item)
			}
		}
	}
	section("Pre-migration", cl.Pre, false)
	section("Breaking changes to address", cl.Breaking, true)
	section("Deprecated features to migrate", cl.Migrate, true)
	section("Post-migration", cl.Post, false)
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteList prints the release table.
func WriteList(w io.Writer, releases []Release) error {
	var b strings.Builder
	line := strings.Repeat("-", 60)
	fmt.Fprintf(&b, "\nKnown CAPI Versions:\n%s\n", line)
	fmt.Fprintf(&b, "%-10s %-12s %-10s %-10s %-6s\n", "Version", "Release", "K8s Min", "K8s Max", "Go")
	fmt.Fprintf(&b, "%s\n", line)
	for _, r := range releases {
		fmt.Fprintf(&b, "%-10s %-12s %-10s %-10s %-6s\n", r.Version, r.ReleaseDate, r.Kubernetes.Min, r.Kubernetes.Max, r.Go)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
