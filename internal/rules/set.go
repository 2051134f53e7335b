package rules

import (
	"fmt"

	"capi-inspector/internal/document"
	"capi-inspector/internal/model"
	"github.com/Masterminds/semver/v3"
)

// Set is an ordered, read-only collection of rules.
type Set struct {
	rules []Rule
}

func NewSet(rules ...Rule) Set {
	s := Set{rules: make([]Rule, len(rules))}
	copy(s.rules, rules)
	return s
}

func (s Set) Len() int { return len(s.rules) }

// Rules returns a copy of the rules in declaration order.
func (s Set) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// ForKind returns the rules that apply to kind, in declaration order.
func (s Set) ForKind(kind string) []Rule {
	var out []Rule
	for _, r := range s.rules {
		if r.Applies(kind) {
			out = append(out, r)
		}
	}
	return out
}

// Deprecated narrows the set to the rules in effect for a target release.
// Rules without Since are always kept; rules deprecated after target are
// dropped. An empty target keeps everything.
func (s Set) Deprecated(target string) (Set, error) {
	if target == "" {
		return s, nil
	}
	tv, err := semver.NewVersion(target)
	if err != nil {
		return Set{}, fmt.Errorf("parse target version %q: %w", target, err)
	}
	var kept []Rule
	for _, r := range s.rules {
		if r.Since == "" {
			kept = append(kept, r)
			continue
		}
		since, err := semver.NewVersion(r.Since)
		if err != nil {
			return Set{}, fmt.Errorf("rule %s: parse since %q: %w", r.ID, r.Since, err)
		}
		if !tv.LessThan(since) {
			kept = append(kept, r)
		}
	}
	return Set{rules: kept}, nil
}

// Evaluate applies every structural rule that targets the document's kind
// and returns the findings in rule order.
func (s Set) Evaluate(doc document.Document) []model.Finding {
	var out []model.Finding
	kind := doc.Kind()
	for _, r := range s.rules {
		if r.Condition == PatternMatch || !r.Applies(kind) {
			continue
		}
		if f, ok := r.Evaluate(doc); ok {
			out = append(out, f)
		}
	}
	return out
}

// EvaluateText applies every pattern-match rule to raw content.
func (s Set) EvaluateText(resource, source string, content []byte) []model.Finding {
	var out []model.Finding
	for _, r := range s.rules {
		out = append(out, r.EvaluateText(resource, source, content)...)
	}
	return out
}
