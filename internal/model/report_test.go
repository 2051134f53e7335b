package model

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Report {
	r := NewReport("prod")
	r.Add(
		Finding{ID: "a", Severity: SeverityInfo, Category: "Metadata", Message: "one"},
		Finding{ID: "b", Severity: SeverityHigh, Category: "Pod Security", Message: "two"},
		Finding{ID: "c", Severity: SeverityWarning, Category: "Deprecation", Message: "three"},
		Finding{ID: "d", Severity: SeverityLow, Category: "Pod Security", Message: "four"},
		Finding{ID: "e", Severity: SeverityError, Category: "Schema", Message: "five"},
		Finding{ID: "f", Severity: SeverityMedium, Category: "Encryption", Message: "six"},
	)
	return r
}

func TestCountsPartitionFindings(t *testing.T) {
	r := sample()
	assert.Equal(t, 2, r.ErrorCount())
	assert.Equal(t, 2, r.WarningCount())
	assert.Equal(t, 2, r.InfoCount())
	assert.Equal(t, len(r.Findings), r.ErrorCount()+r.WarningCount()+r.InfoCount())

	assert.Equal(t, 1, r.Count(SeverityHigh))
	assert.Equal(t, 1, r.Count(SeverityError))
	assert.Equal(t, 0, NewReport("x").ErrorCount())
}

func TestCountsFollowAppends(t *testing.T) {
	r := sample()
	before := r.ErrorCount()
	r.Add(Finding{Severity: SeverityError})
	assert.Equal(t, before+1, r.ErrorCount())
	s := r.Summary()
	assert.Equal(t, s.Total, s.Errors+s.Warnings+s.Info)
	assert.Equal(t, 2, s.Exact[SeverityError])
}

func TestFilterPreservesOrder(t *testing.T) {
	r := sample()
	got := r.ByCategory("Pod Security")
	require.Len(t, got.Findings, 2)
	assert.Equal(t, "b", got.Findings[0].ID)
	assert.Equal(t, "d", got.Findings[1].ID)

	assert.Len(t, r.BySeverity(SeverityHigh, SeverityError).Findings, 2)
	assert.Equal(t, []string{"Metadata", "Pod Security", "Deprecation", "Schema", "Encryption"}, r.Categories())
}

func TestSortedBySeverityIsStableAndNonDestructive(t *testing.T) {
	r := sample()
	var ids []string
	for _, f := range r.SortedBySeverity() {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"b", "e", "c", "f", "a", "d"}, ids)
	assert.Equal(t, "a", r.Findings[0].ID)
}

func TestMergeKeepsDuplicates(t *testing.T) {
	a := sample()
	b := sample()
	m := Merge("all", a, nil, b)
	assert.Equal(t, "all", m.Subject)
	assert.Len(t, m.Findings, 12)
	assert.Equal(t, 4, m.ErrorCount())
}

func TestMarshalIncludesSummary(t *testing.T) {
	raw, err := json.Marshal(sample())
	require.NoError(t, err)

	var decoded struct {
		Subject  string    `json:"subject"`
		Findings []Finding `json:"findings"`
		Summary  Summary   `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "prod", decoded.Subject)
	assert.Len(t, decoded.Findings, 6)
	assert.Equal(t, 2, decoded.Summary.Errors)

	var back Report
	require.NoError(t, json.Unmarshal(raw, &back))
	if diff := cmp.Diff(sample().Findings, back.Findings); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	empty, err := json.Marshal(&Report{Subject: "x"})
	require.NoError(t, err)
	assert.Contains(t, string(empty), `"findings":[]`)
}

func TestSeverityLevel(t *testing.T) {
	cases := map[Severity]Severity{
		SeverityHigh:    SeverityError,
		SeverityMedium:  SeverityWarning,
		SeverityLow:     SeverityInfo,
		SeverityError:   SeverityError,
		SeverityWarning: SeverityWarning,
		SeverityInfo:    SeverityInfo,
		"bogus":         SeverityInfo,
	}
	for in, want := range cases {
		if got := in.Level(); got != want {
			t.Errorf("Severity(%q).Level() = %q, want %q", in, got, want)
		}
	}

	sev, err := ParseSeverity(" HIGH ")
	require.NoError(t, err)
	assert.Equal(t, SeverityHigh, sev)
	_, err = ParseSeverity("critical")
	assert.Error(t, err)
}
