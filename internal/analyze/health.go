package analyze

import (
	"fmt"

	"capi-inspector/internal/conditions"
	"capi-inspector/internal/document"
	"capi-inspector/internal/model"
	corev1 "k8s.io/api/core/v1"
)

func registerHealth(r *Registry) {
	r.Register(FamilyHealth, AnyKind, healthConditions)
}

// healthConditions reports expected-true conditions that are not True and
// conditions carrying a known failure reason. A condition can yield both.
func healthConditions(doc document.Document) []model.Finding {
	var out []model.Finding
	for _, c := range conditions.FromDocument(doc) {
		field := "status.conditions." + c.Type
		if expectedTrue[c.Type] && c.Status != corev1.ConditionTrue {
			sev, ok := conditionSeverity[c.Type]
			if !ok {
				sev = model.SeverityWarning
			}
			out = append(out, newFinding(doc, "HEALTH_CONDITION", sev, "Conditions", field,
				describe(c), ""))
		}
		if errorReasons[c.Reason] {
			out = append(out, newFinding(doc, "HEALTH_ERROR_REASON", model.SeverityWarning, "Conditions", field,
				describe(c), ""))
		}
	}
	return out
}

func describe(c conditions.Condition) string {
	msg := fmt.Sprintf("Condition %s = %s", c.Type, c.Status)
	if c.Reason != "" {
		msg += ", reason " + c.Reason
	}
	if c.Message != "" {
		msg += ": " + c.Message
	}
	return msg
}
