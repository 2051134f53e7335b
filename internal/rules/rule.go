// Package rules evaluates declarative rules against documents.
package rules

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"capi-inspector/internal/document"
	"capi-inspector/internal/model"
)

// Condition selects how a rule decides whether it fires.
type Condition string

const (
	// RequiredPresent fires when FieldPath does not resolve.
	RequiredPresent Condition = "required-present"
	// RequiredAbsentAfterDeprecation fires when FieldPath still resolves.
	RequiredAbsentAfterDeprecation Condition = "required-absent-after-deprecation"
	// ForbiddenValue fires when the value at FieldPath equals one of
	// Forbidden or matches Pattern.
	ForbiddenValue Condition = "forbidden-value"
	// PatternMatch applies Pattern to raw text, one finding per line.
	PatternMatch Condition = "pattern-match"
	// Expression fires when the CEL expression evaluates to true.
	Expression Condition = "expression"
)

// Rule is one declarative check. Rules are built once and never modified.
//
// Message and Recommendation may reference {field}, {value}, {kind} and
// {since}.
type Rule struct {
	ID        string
	AppliesTo []string
	FieldPath string
	Pattern   *regexp.Regexp
	Condition Condition
	Forbidden []string
	Expr      *Expr
	Severity  model.Severity
	Category  string
	Message   string
	// Recommendation is optional guidance, typically the replacement for a
	// deprecated field.
	Recommendation string
	// Since is the release in which the field was deprecated.
	Since string
}

// Applies reports whether r targets kind. A rule with no kinds targets all.
func (r Rule) Applies(kind string) bool {
	if len(r.AppliesTo) == 0 {
		return true
	}
	for _, k := range r.AppliesTo {
		if k == kind || k == "*" {
			return true
		}
	}
	return false
}

// Evaluate applies r to doc and yields at most one finding. Missing
// structure never fails evaluation. Pattern-match rules only apply to raw
// text; see EvaluateText.
func (r Rule) Evaluate(doc document.Document) (model.Finding, bool) {
	switch r.Condition {
	case RequiredPresent:
		if doc.Has(r.FieldPath) {
			return model.Finding{}, false
		}
		return r.finding(doc, ""), true

	case RequiredAbsentAfterDeprecation:
		v, ok := doc.Lookup(r.FieldPath)
		if !ok {
			return model.Finding{}, false
		}
		return r.finding(doc, v.Text()), true

	case ForbiddenValue:
		v, ok := doc.Lookup(r.FieldPath)
		if !ok || !v.IsScalar() {
			return model.Finding{}, false
		}
		text := v.Text()
		if r.forbids(text) {
			return r.finding(doc, text), true
		}
		return model.Finding{}, false

	case Expression:
		if r.Expr == nil {
			return model.Finding{}, false
		}
		// Evaluation errors, such as a missing key, count as not matching.
		hit, err := r.Expr.Eval(doc)
		if err != nil || !hit {
			return model.Finding{}, false
		}
		value := ""
		if r.FieldPath != "" {
			if v, ok := doc.Lookup(r.FieldPath); ok {
				value = v.Text()
			}
		}
		return r.finding(doc, value), true
	}
	return model.Finding{}, false
}

func (r Rule) forbids(text string) bool {
	for _, f := range r.Forbidden {
		if text == f {
			return true
		}
	}
	return r.Pattern != nil && r.Pattern.MatchString(text)
}

// EvaluateText applies a pattern-match rule to raw content line by line.
// Each matching line yields one finding carrying its 1-based line number.
func (r Rule) EvaluateText(resource, source string, content []byte) []model.Finding {
	if r.Condition != PatternMatch || r.Pattern == nil {
		return nil
	}
	var out []model.Finding
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if !r.Pattern.MatchString(text) {
			continue
		}
		out = append(out, model.Finding{
			ID:             r.ID,
			Severity:       r.Severity,
			Category:       r.Category,
			ResourceID:     resource,
			Field:          r.FieldPath,
			Message:        r.render(r.Message, "", strings.TrimSpace(text)),
			Recommendation: r.render(r.Recommendation, "", ""),
			Source:         source,
			Line:           line,
		})
	}
	return out
}

func (r Rule) finding(doc document.Document, value string) model.Finding {
	kind := doc.Kind()
	return model.Finding{
		ID:             r.ID,
		Severity:       r.Severity,
		Category:       r.Category,
		ResourceID:     doc.ResourceID(),
		Field:          r.FieldPath,
		Message:        r.render(r.Message, kind, value),
		Recommendation: r.render(r.Recommendation, kind, value),
		Source:         doc.Source,
		Line:           doc.Line,
	}
}

func (r Rule) render(tmpl, kind, value string) string {
	if tmpl == "" || !strings.Contains(tmpl, "{") {
		return tmpl
	}
	return strings.NewReplacer(
		"{field}", r.FieldPath,
		"{value}", value,
		"{kind}", kind,
		"{since}", r.Since,
	).Replace(tmpl)
}
