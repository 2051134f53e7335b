package analyze

import (
	"strings"
	"unicode"

	"capi-inspector/internal/document"
	"capi-inspector/internal/model"
)

func registerMigration(r *Registry) {
	r.Register(FamilyMigration, AnyKind, migrationAPIVersion)
	kinds := map[string]bool{}
	for _, rule := range migrationDeprecations.Rules() {
		for _, k := range rule.AppliesTo {
			kinds[k] = true
		}
	}
	for kind := range kinds {
		r.RegisterRules(FamilyMigration, kind, migrationDeprecations)
	}
	r.Register(FamilyMigration, AnyKind, migrationObjectRefs, migrationDurations)
}

func migrationAPIVersion(doc document.Document) []model.Finding {
	av := doc.APIVersion()
	var reason string
	switch {
	case strings.Contains(av, "v1beta1"):
		reason = "v1beta1 is deprecated, will be removed in August 2026"
	case strings.Contains(av, "v1alpha"):
		reason = "v1alpha versions are deprecated"
	default:
		return nil
	}
	return []model.Finding{newFinding(doc, "MIGRATION_API_VERSION", model.SeverityWarning, "API Version", "apiVersion",
		reason, "Migrate to v1beta2 API version")}
}

func migrationObjectRefs(doc document.Document) []model.Finding {
	var out []model.Finding
	for _, path := range objectRefPaths {
		ref, ok := doc.Map(path)
		if !ok {
			continue
		}
		_, hasVersion := ref["apiVersion"]
		_, hasGroup := ref["apiGroup"]
		if hasVersion && !hasGroup {
			out = append(out, newFinding(doc, "MIGRATION_REF_API_GROUP", model.SeverityInfo, "Object Reference", path+".apiVersion",
				"v1beta2 uses apiGroup instead of apiVersion in object references",
				"Replace apiVersion with apiGroup (e.g., 'infrastructure.cluster.x-k8s.io')"))
		}
		if _, hasNS := ref["namespace"]; hasNS {
			out = append(out, newFinding(doc, "MIGRATION_REF_NAMESPACE", model.SeverityWarning, "Object Reference", path+".namespace",
				"namespace field removed from object references in v1beta2",
				"Remove namespace field from object reference"))
		}
	}
	return out
}

// migrationDurations flags duration strings such as "10m" that become
// integer seconds in v1beta2. Plain numbers are left alone.
func migrationDurations(doc document.Document) []model.Finding {
	var out []model.Finding
	for _, rename := range durationRenames {
		v, ok := doc.Lookup(rename.From)
		if !ok {
			continue
		}
		s, ok := v.AsString()
		if !ok || !strings.ContainsFunc(s, isLetter) {
			continue
		}
		out = append(out, newFinding(doc, "MIGRATION_DURATION", model.SeverityWarning, "Duration", rename.From,
			"Duration fields changed from string to int32 seconds",
			"Convert to integer seconds and rename to "+rename.To))
	}
	return out
}

func isLetter(r rune) bool {
	return r < unicode.MaxASCII && unicode.IsLetter(r)
}
