// Package conditions extracts status conditions from CAPI resources and
// decides whether each one is healthy.
package conditions

import (
	"sort"

	"capi-inspector/internal/document"
	"capi-inspector/internal/model"
	corev1 "k8s.io/api/core/v1"
)

// Condition is one entry of status.conditions.
type Condition struct {
	Kind               string                 `json:"kind"`
	Resource           string                 `json:"resource"`
	Type               string                 `json:"condition"`
	Status             corev1.ConditionStatus `json:"status"`
	Reason             string                 `json:"reason,omitempty"`
	Message            string                 `json:"message,omitempty"`
	LastTransitionTime string                 `json:"lastTransitionTime,omitempty"`
}

// positive condition types are healthy when True.
var positive = map[string]bool{
	"Ready":               true,
	"Available":           true,
	"InfrastructureReady": true,
	"ControlPlaneReady":   true,
	"BootstrapReady":      true,
	"Provisioned":         true,
	"Initialized":         true,
	"UpToDate":            true,
}

// negative condition types are healthy when False.
var negative = map[string]bool{
	"Stalled":  true,
	"Deleting": true,
	"Paused":   true,
}

// Healthy applies the polarity tables. Types in neither table are healthy.
func (c Condition) Healthy() bool {
	switch {
	case positive[c.Type]:
		return c.Status == corev1.ConditionTrue
	case negative[c.Type]:
		return c.Status == corev1.ConditionFalse
	}
	return true
}

// FromDocument reads status.conditions, falling back to
// status.v1beta2.conditions. Entries that are not mappings are skipped and
// a missing status reads as Unknown.
func FromDocument(doc document.Document) []Condition {
	items, _ := doc.List("status.conditions")
	if len(items) == 0 {
		items, _ = doc.List("status.v1beta2.conditions")
	}
	kind := doc.Kind()
	if kind == "" {
		kind = "Unknown"
	}
	var out []Condition
	for _, item := range items {
		if !item.IsMap() {
			continue
		}
		c := Condition{
			Kind:               kind,
			Resource:           doc.ResourceID(),
			Type:               str(item, "type"),
			Status:             corev1.ConditionStatus(str(item, "status")),
			Reason:             str(item, "reason"),
			Message:            str(item, "message"),
			LastTransitionTime: str(item, "lastTransitionTime"),
		}
		if c.Status == "" {
			c.Status = corev1.ConditionUnknown
		}
		out = append(out, c)
	}
	return out
}

func str(v document.Value, key string) string {
	item, _ := v.Get(key)
	s, _ := item.AsString()
	return s
}

// KindSummary counts conditions of one resource kind.
type KindSummary struct {
	Total     int `json:"total"`
	Healthy   int `json:"healthy"`
	Unhealthy int `json:"unhealthy"`
}

// Summary aggregates the conditions of many resources.
type Summary struct {
	Conditions     []Condition            `json:"conditions"`
	ByKind         map[string]KindSummary `json:"byKind"`
	UnhealthyTypes []string               `json:"unhealthyTypes"`
}

func (s Summary) Total() int { return len(s.Conditions) }

func (s Summary) Healthy() int {
	n := 0
	for _, c := range s.Conditions {
		if c.Healthy() {
			n++
		}
	}
	return n
}

func (s Summary) Unhealthy() []Condition {
	var out []Condition
	for _, c := range s.Conditions {
		if !c.Healthy() {
			out = append(out, c)
		}
	}
	return out
}

// Kinds returns the kinds in the summary, sorted.
func (s Summary) Kinds() []string {
	kinds := make([]string, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Summarize collects the conditions of every document in order.
func Summarize(docs []document.Document) Summary {
	s := Summary{ByKind: map[string]KindSummary{}}
	unhealthy := map[string]bool{}
	for _, doc := range docs {
		for _, c := range FromDocument(doc) {
			s.Conditions = append(s.Conditions, c)
			ks := s.ByKind[c.Kind]
			ks.Total++
			if c.Healthy() {
				ks.Healthy++
			} else {
				ks.Unhealthy++
				unhealthy[c.Type] = true
			}
			s.ByKind[c.Kind] = ks
		}
	}
	for t := range unhealthy {
		s.UnhealthyTypes = append(s.UnhealthyTypes, t)
	}
	sort.Strings(s.UnhealthyTypes)
	return s
}

// Report turns every unhealthy condition into a warning finding.
func (s Summary) Report(subject string) *model.Report {
	r := model.NewReport(subject)
	r.Command = "conditions"
	for _, c := range s.Unhealthy() {
		msg := c.Type + " is " + string(c.Status)
		if c.Reason != "" {
			msg += " (" + c.Reason + ")"
		}
		if c.Message != "" {
			msg += ": " + c.Message
		}
		r.Add(model.Finding{
			ID:         "CONDITION_UNHEALTHY",
			Severity:   model.SeverityWarning,
			Category:   c.Kind,
			ResourceID: c.Resource,
			Field:      "status.conditions." + c.Type,
			Message:    msg,
		})
	}
	return r
}
