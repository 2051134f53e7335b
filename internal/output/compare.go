package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"capi-inspector/internal/model"
)

// Comparison lists what changed between a previous report and the
// current one. Findings are matched by Finding.Key.
type Comparison struct {
	Previous string          `json:"previous"`
	New      []model.Finding `json:"new"`
	Resolved []model.Finding `json:"resolved"`
}

func (c Comparison) Changed() bool { return len(c.New) > 0 || len(c.Resolved) > 0 }

// Compare keeps the order of each report, so output is deterministic.
func Compare(prev, curr *model.Report) Comparison {
	c := Comparison{Previous: prev.Subject, New: []model.Finding{}, Resolved: []model.Finding{}}
	prevSet := findingSet(prev.Findings)
	currSet := findingSet(curr.Findings)
	for _, f := range curr.Findings {
		if _, ok := prevSet[f.Key()]; !ok {
			c.New = append(c.New, f)
		}
	}
	for _, f := range prev.Findings {
		if _, ok := currSet[f.Key()]; !ok {
			c.Resolved = append(c.Resolved, f)
		}
	}
	return c
}

func findingSet(findings []model.Finding) map[string]struct{} {
	m := make(map[string]struct{}, len(findings))
	for _, f := range findings {
		m[f.Key()] = struct{}{}
	}
	return m
}

// ReadReport loads a report previously written with --format json.
func ReadReport(path string) (*model.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read previous report: %w", err)
	}
	var r model.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse previous report %s: %w", path, err)
	}
	for i, f := range r.Findings {
		sev, err := model.ParseSeverity(string(f.Severity))
		if err != nil {
			return nil, fmt.Errorf("parse previous report %s: finding %d: %w", path, i, err)
		}
		r.Findings[i].Severity = sev
	}
	return &r, nil
}

func WriteComparison(w io.Writer, c Comparison) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\nCompared with %s: %d new, %d resolved\n", c.Previous, len(c.New), len(c.Resolved))
	for _, f := range c.New {
		fmt.Fprintf(&b, "  + [%s] %s: %s\n", f.Severity, f.ResourceID, f.Message)
	}
	for _, f := range c.Resolved {
		fmt.Fprintf(&b, "  - [%s] %s: %s\n", f.Severity, f.ResourceID, f.Message)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
