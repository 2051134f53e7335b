// Package policy maps a report to a process exit code.
package policy

import "capi-inspector/internal/model"

type Mode string

const (
	// ModeStandard fails on errors, and on warnings too when strict.
	ModeStandard Mode = "standard"
	// ModeMigration fails on any error or warning.
	ModeMigration Mode = "migration"
	// ModeSecurity fails on high findings, and on medium ones when strict.
	ModeSecurity Mode = "security"
	// ModeHealth exits 2 on errors and 1 on warnings.
	ModeHealth Mode = "health"
)


const (
	ExitClean   = 0
	ExitFailed  = 1
	ExitUnready = 2
)

// ExitCode is a pure function of the report's counts.
func ExitCode(mode Mode, r *model.Report, strict bool) int {
	if r == nil {
		return ExitClean
	}
	errors, warnings := r.ErrorCount(), r.WarningCount()
	switch mode {
	case ModeMigration:
		if errors+warnings > 0 {
			return ExitFailed
		}
	case ModeSecurity:
		high := r.Count(model.SeverityHigh) + r.Count(model.SeverityError)
		medium := r.Count(model.SeverityMedium) + r.Count(model.SeverityWarning)
		if high > 0 || (strict && medium > 0) {
			return ExitFailed
		}
	case ModeHealth:
		if errors > 0 {
			return ExitUnready
		}
		if warnings > 0 {
			return ExitFailed
		}
	default:
		if errors > 0 || (strict && warnings > 0) {
			return ExitFailed
		}
	}
	return ExitClean
}
