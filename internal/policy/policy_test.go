package policy

import (
	"testing"

	"capi-inspector/internal/model"
	"github.com/stretchr/testify/assert"
)

func report(sevs ...model.Severity) *model.Report {
	r := model.NewReport("test")
	for _, s := range sevs {
		r.Add(model.Finding{Severity: s, Category: "Test", Message: string(s)})
	}
	return r
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name   string
		mode   Mode
		sevs   []model.Severity
		strict bool
		want   int
	}{
		{name: "standard clean", mode: ModeStandard, want: 0},
		{name: "standard info only", mode: ModeStandard, sevs: []model.Severity{model.SeverityInfo, model.SeverityLow}, want: 0},
		{name: "standard error", mode: ModeStandard, sevs: []model.Severity{model.SeverityError}, want: 1},
		{name: "standard warning", mode: ModeStandard, sevs: []model.Severity{model.SeverityWarning}, want: 0},
		{name: "standard strict warning", mode: ModeStandard, sevs: []model.Severity{model.SeverityWarning}, strict: true, want: 1},
		{name: "migration warning", mode: ModeMigration, sevs: []model.Severity{model.SeverityWarning}, want: 1},
		{name: "migration info", mode: ModeMigration, sevs: []model.Severity{model.SeverityInfo}, want: 0},
		{name: "security high", mode: ModeSecurity, sevs: []model.Severity{model.SeverityHigh}, want: 1},
		{name: "security medium", mode: ModeSecurity, sevs: []model.Severity{model.SeverityMedium, model.SeverityLow}, want: 0},
		{name: "security strict medium", mode: ModeSecurity, sevs: []model.Severity{model.SeverityMedium}, strict: true, want: 1},
		{name: "health error", mode: ModeHealth, sevs: []model.Severity{model.SeverityWarning, model.SeverityError}, want: 2},
		{name: "health warning", mode: ModeHealth, sevs: []model.Severity{model.SeverityWarning}, want: 1},
		{name: "health clean", mode: ModeHealth, sevs: []model.Severity{model.SeverityInfo}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.mode, report(tt.sevs...), tt.strict))
		})
	}
}

func TestExitCodeFollowsAppendedFindings(t *testing.T) {
	r := report(model.SeverityInfo)
	assert.Equal(t, 0, ExitCode(ModeStandard, r, false))
	r.Add(model.Finding{Severity: model.SeverityHigh})
	assert.Equal(t, 1, ExitCode(ModeStandard, r, false))
	assert.Equal(t, 0, ExitCode(ModeStandard, nil, true))
}
