package analyze

import (
	"fmt"

	"capi-inspector/internal/document"
	"capi-inspector/internal/model"
)

func registerLint(r *Registry, opts Options) error {
	deprecations, err := lintDeprecations.Deprecated(opts.TargetVersion)
	if err != nil {
		return err
	}
	r.Register(FamilyLint, AnyKind, lintRequiredFields, lintAPIVersion)
	for kind := range requiredSpecFields {
		r.Register(FamilyLint, kind, lintSpecFields)
	}
	for _, kind := range []string{"Cluster", "Machine"} {
		r.RegisterRules(FamilyLint, kind, deprecations)
	}
	r.Register(FamilyLint, AnyKind, lintNamespace)
	return nil
}

// lintRequiredFields checks the fields every Kubernetes object needs.
func lintRequiredFields(doc document.Document) []model.Finding {
	var out []model.Finding
	missing := func(field string) {
		out = append(out, newFinding(doc, "LINT_MISSING_FIELD", model.SeverityError, "Schema", field,
			"Missing required field: "+field, ""))
	}
	if !doc.Has("apiVersion") {
		missing("apiVersion")
	}
	if !doc.Has("kind") {
		missing("kind")
	}
	if _, ok := doc.Map("metadata"); !ok {
		missing("metadata")
	} else if !doc.Has("metadata.name") {
		missing("metadata.name")
	}
	return out
}

func lintAPIVersion(doc document.Document) []model.Finding {
	av := doc.APIVersion()
	replacement, ok := deprecatedAPIVersions[av]
	if !ok {
		return nil
	}
	return []model.Finding{newFinding(doc, "LINT_DEPRECATED_API", model.SeverityWarning, "Deprecation", "apiVersion",
		"Deprecated API version: "+av,
		"Use cluster.x-k8s.io/"+replacement)}
}

func lintSpecFields(doc document.Document) []model.Finding {
	kind := doc.Kind()
	topology := kind == "Cluster" && doc.Has("spec.topology")
	var out []model.Finding
	for _, field := range requiredSpecFields[kind] {
		if topology && topologyExempt[field] {
			continue
		}
		if doc.Has("spec." + field) {
			continue
		}
		out = append(out, newFinding(doc, "LINT_MISSING_SPEC_FIELD", model.SeverityError, "Schema", "spec."+field,
			fmt.Sprintf("Missing required spec field for %s: %s", kind, field), ""))
	}
	return out
}

func lintNamespace(doc document.Document) []model.Finding {
	if _, ok := doc.Map("metadata"); !ok || doc.Has("metadata.namespace") {
		return nil
	}
	return []model.Finding{newFinding(doc, "LINT_NO_NAMESPACE", model.SeverityInfo, "Metadata", "metadata.namespace",
		"No namespace specified - will use default", "")}
}

// LintText scans the raw text of a manifest file for hardcoded
// credentials. It complements the per-document lint family.
func LintText(source string, content []byte) []model.Finding {
	return credentialRules.EvaluateText(source, source, content)
}
