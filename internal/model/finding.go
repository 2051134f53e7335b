package model

import (
	"fmt"
	"strings"
)

// Severity of a finding. Schema, lint, migration, contract and health
// checks use error/warning/info; security and availability checks use
// high/medium/low.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityHigh    Severity = "high"
	SeverityMedium  Severity = "medium"
	SeverityLow     Severity = "low"
)

// Severities lists every severity, most severe first.
var Severities = []Severity{
	SeverityError, SeverityHigh,
	SeverityWarning, SeverityMedium,
	SeverityInfo, SeverityLow,
}

// Level folds a severity onto error/warning/info: high counts as an error,
// medium as a warning and low as info. Unknown severities count as info.
func (s Severity) Level() Severity {
	switch s {
	case SeverityError, SeverityHigh:
		return SeverityError
	case SeverityWarning, SeverityMedium:
		return SeverityWarning
	}
	return SeverityInfo
}

// Rank orders severities for presentation; higher is worse.
func (s Severity) Rank() int {
	switch s.Level() {
	case SeverityError:
		return 2
	case SeverityWarning:
		return 1
	}
	return 0
}

func (s Severity) Valid() bool {
	for _, known := range Severities {
		if s == known {
			return true
		}
	}
	return false
}

// ParseSeverity accepts any severity name, case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if !sev.Valid() {
		return "", fmt.Errorf("unknown severity %q", s)
	}
	return sev, nil
}

// Finding is one reported rule violation or observation.
type Finding struct {
	ID             string   `json:"id,omitempty"`
	Severity       Severity `json:"severity"`
	Category       string   `json:"category"`
	ResourceID     string   `json:"resourceId"`
	Field          string   `json:"field,omitempty"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation,omitempty"`
	Source         string   `json:"source,omitempty"`
	Line           int      `json:"line,omitempty"`
}

// Key identifies a finding across runs for comparison purposes.
func (f Finding) Key() string {
	return strings.Join([]string{f.ID, string(f.Severity), f.ResourceID, f.Field, f.Message}, "|")
}
