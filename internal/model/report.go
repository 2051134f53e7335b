package model

import (
	"encoding/json"
	"sort"
)

// Report is the ordered set of findings for one analysis subject. Counts
// are always derived from Findings, never stored.
type Report struct {
	Subject  string    `json:"subject"`
	Command  string    `json:"command,omitempty"`
	Findings []Finding `json:"findings"`
}

// Summary holds the derived counts of a report.
type Summary struct {
	Total    int              `json:"total"`
	Errors   int              `json:"errors"`
	Warnings int              `json:"warnings"`
	Info     int              `json:"info"`
	Exact    map[Severity]int `json:"bySeverity,omitempty"`
}

func NewReport(subject string) *Report {
	return &Report{Subject: subject, Findings: []Finding{}}
}

// Add appends findings in the order given.
func (r *Report) Add(findings ...Finding) {
	r.Findings = append(r.Findings, findings...)
}

func (r *Report) Len() int { return len(r.Findings) }

func (r *Report) countLevel(level Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity.Level() == level {
			n++
		}
	}
	return n
}

func (r *Report) ErrorCount() int   { return r.countLevel(SeverityError) }
func (r *Report) WarningCount() int { return r.countLevel(SeverityWarning) }
func (r *Report) InfoCount() int    { return r.countLevel(SeverityInfo) }

// Count returns the number of findings with exactly sev.
func (r *Report) Count(sev Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == sev {
			n++
		}
	}
	return n
}

func (r *Report) Summary() Summary {
	s := Summary{Total: len(r.Findings), Exact: map[Severity]int{}}
	for _, f := range r.Findings {
		switch f.Severity.Level() {
		case SeverityError:
			s.Errors++
		case SeverityWarning:
			s.Warnings++
		default:
			s.Info++
		}
		s.Exact[f.Severity]++
	}
	return s
}

// Filter returns a new report holding the findings keep accepts, in order.
func (r *Report) Filter(keep func(Finding) bool) *Report {
	out := &Report{Subject: r.Subject, Command: r.Command, Findings: []Finding{}}
	for _, f := range r.Findings {
		if keep(f) {
			out.Findings = append(out.Findings, f)
		}
	}
	return out
}

// BySeverity keeps findings with any of the given exact severities.
func (r *Report) BySeverity(sevs ...Severity) *Report {
	return r.Filter(func(f Finding) bool {
		for _, s := range sevs {
			if f.Severity == s {
				return true
			}
		}
		return false
	})
}

func (r *Report) ByCategory(category string) *Report {
	return r.Filter(func(f Finding) bool { return f.Category == category })
}

// Categories returns the distinct categories in first-seen order.
func (r *Report) Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range r.Findings {
		if !seen[f.Category] {
			seen[f.Category] = true
			out = append(out, f.Category)
		}
	}
	return out
}

// SortedBySeverity returns a copy of the findings, most severe first.
// Findings of equal rank keep their evaluation order.
func (r *Report) SortedBySeverity() []Finding {
	out := make([]Finding, len(r.Findings))
	copy(out, r.Findings)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity.Rank() > out[j].Severity.Rank()
	})
	return out
}

// Merge concatenates the findings of reports under a new subject.
// Nothing is deduplicated.
func Merge(subject string, reports ...*Report) *Report {
	out := NewReport(subject)
	for _, r := range reports {
		if r == nil {
			continue
		}
		if out.Command == "" {
			out.Command = r.Command
		}
		out.Add(r.Findings...)
	}
	return out
}

// MarshalJSON adds the derived summary next to the findings.
func (r *Report) MarshalJSON() ([]byte, error) {
	type plain Report
	findings := r.Findings
	if findings == nil {
		findings = []Finding{}
	}
	return json.Marshal(struct {
		*plain
		Findings []Finding `json:"findings"`
		Summary  Summary   `json:"summary"`
	}{plain: (*plain)(r), Findings: findings, Summary: r.Summary()})
}
