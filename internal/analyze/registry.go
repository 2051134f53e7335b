// Package analyze groups rules and imperative checks into kind-specific
// check families and runs them against documents.
package analyze

import (
	"fmt"
	"sort"
	"strings"

	"capi-inspector/internal/document"
	"capi-inspector/internal/model"
	"capi-inspector/internal/rules"
)

// Family is an independently selectable group of checks.
type Family string

const (
	FamilyLint         Family = "lint"
	FamilySchema       Family = "schema"
	FamilyMigration    Family = "migration"
	FamilySecurity     Family = "security"
	FamilyAvailability Family = "availability"
	FamilyHealth       Family = "health"
	FamilyContract     Family = "contract"
)

// Families lists every family in its default run order.
var Families = []Family{
	FamilyLint, FamilySchema, FamilyMigration,
	FamilySecurity, FamilyAvailability, FamilyHealth, FamilyContract,
}

func ParseFamily(s string) (Family, error) {
	f := Family(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Families {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown check family %q", s)
}

// AnyKind registers a check for every kind.
const AnyKind = "*"

// Check inspects one document. It must not modify it.
type Check func(doc document.Document) []model.Finding

// Registry dispatches checks by family and kind.
type Registry struct {
	checks map[Family]map[string][]Check
}

func NewRegistry() *Registry {
	return &Registry{checks: map[Family]map[string][]Check{}}
}

// Register appends checks for kind in family. Use AnyKind for checks that
// apply to every document.
func (r *Registry) Register(family Family, kind string, checks ...Check) {
	byKind, ok := r.checks[family]
	if !ok {
		byKind = map[string][]Check{}
		r.checks[family] = byKind
	}
	byKind[kind] = append(byKind[kind], checks...)
}

// RegisterRules wraps a rule set as a check for kind.
func (r *Registry) RegisterRules(family Family, kind string, set rules.Set) {
	r.Register(family, kind, set.Evaluate)
}

// Run applies the selected families in the order given. Within a family
// the AnyKind checks run first, then the checks for the document's kind.
func (r *Registry) Run(doc document.Document, families ...Family) []model.Finding {
	var out []model.Finding
	kind := doc.Kind()
	for _, family := range families {
		byKind := r.checks[family]
		for _, check := range byKind[AnyKind] {
			out = append(out, check(doc)...)
		}
		if kind == AnyKind {
			continue
		}
		for _, check := range byKind[kind] {
			out = append(out, check(doc)...)
		}
	}
	return out
}

// Kinds lists the sorted kinds with checks in family, excluding AnyKind.
func (r *Registry) Kinds(family Family) []string {
	var kinds []string
	for k := range r.checks[family] {
		if k != AnyKind {
			kinds = append(kinds, k)
		}
	}
	sort.Strings(kinds)
	return kinds
}

// Options tune the default registry.
type Options struct {
	// TargetVersion limits lint deprecations to the fields already
	// deprecated in that CAPI release. Empty means every known deprecation.
	TargetVersion string
}

// NewDefault builds the registry holding every built-in family.
func NewDefault(opts Options) (*Registry, error) {
	r := NewRegistry()
	if err := registerLint(r, opts); err != nil {
		return nil, err
	}
	registerSchema(r)
	registerMigration(r)
	registerSecurity(r)
	registerAvailability(r)
	registerHealth(r)
	registerContract(r)
	return r, nil
}

// Analyze runs families over every document and collects a report.
func Analyze(r *Registry, subject string, docs []document.Document, families ...Family) *model.Report {
	report := model.NewReport(subject)
	for _, doc := range docs {
		report.Add(r.Run(doc, families...)...)
	}
	return report
}

// newFinding stamps a finding with the document's identity and origin.
func newFinding(doc document.Document, id string, sev model.Severity, category, field, message, recommendation string) model.Finding {
	return model.Finding{
		ID:             id,
		Severity:       sev,
		Category:       category,
		ResourceID:     doc.ResourceID(),
		Field:          field,
		Message:        message,
		Recommendation: recommendation,
		Source:         doc.Source,
		Line:           doc.Line,
	}
}
