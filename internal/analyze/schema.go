package analyze

import (
	"fmt"
	"strings"

	"capi-inspector/internal/document"
	"capi-inspector/internal/model"
)

func registerSchema(r *Registry) {
	r.Register(FamilySchema, AnyKind, schemaKind, schemaAPIVersion, schemaMetadata, schemaSpecPresent)
	for kind := range schemaRequiredFields {
		r.Register(FamilySchema, kind, schemaRequired)
	}
	r.Register(FamilySchema, "Cluster", schemaClusterRefs)
	r.Register(FamilySchema, "Machine", schemaMachineBootstrap)
	r.Register(FamilySchema, "MachineDeployment", schemaMachineDeploymentTemplate)
	r.Register(FamilySchema, "ClusterClass", schemaClusterClassRefs)
}

func schemaError(doc document.Document, id, field, message string) model.Finding {
	return newFinding(doc, id, model.SeverityError, "Schema", field, message, "")
}

func schemaKind(doc document.Document) []model.Finding {
	if doc.Kind() != "" {
		return nil
	}
	return []model.Finding{schemaError(doc, "SCHEMA_MISSING_KIND", "kind", "Missing kind field")}
}

func schemaAPIVersion(doc document.Document) []model.Finding {
	av := doc.APIVersion()
	if av == "" {
		return nil
	}
	var out []model.Finding
	if group, ok := apiGroups[doc.Kind()]; ok && document.GroupOf(av) != group {
		out = append(out, newFinding(doc, "SCHEMA_API_GROUP", model.SeverityWarning, "API Version", "apiVersion",
			fmt.Sprintf("Expected group '%s', got '%s'", group, av),
			fmt.Sprintf("Use %s/v1beta1", group)))
	}
	if strings.Contains(av, "v1alpha") {
		out = append(out, newFinding(doc, "SCHEMA_ALPHA_VERSION", model.SeverityWarning, "API Version", "apiVersion",
			"v1alpha API versions are deprecated: "+av, ""))
	}
	return out
}

func schemaMetadata(doc document.Document) []model.Finding {
	if _, ok := doc.Map("metadata"); !ok {
		return []model.Finding{schemaError(doc, "SCHEMA_MISSING_METADATA", "metadata", "Missing metadata field")}
	}
	var out []model.Finding
	if doc.Name() == "" {
		out = append(out, schemaError(doc, "SCHEMA_MISSING_NAME", "metadata.name", "Missing name field"))
	}
	if machineKinds[doc.Kind()] {
		_, labelled := doc.Label(ClusterNameLabel)
		if !labelled && doc.String("spec.clusterName") == "" {
			out = append(out, newFinding(doc, "SCHEMA_CLUSTER_LABEL", model.SeverityWarning, "Metadata", "metadata.labels",
				"Missing "+ClusterNameLabel+" label",
				"Label the object with its owning cluster or set spec.clusterName"))
		}
	}
	return out
}

// schemaSpecPresent only applies to CAPI kinds; core objects such as
// Secrets and ConfigMaps have no spec.
func schemaSpecPresent(doc document.Document) []model.Finding {
	if _, known := apiGroups[doc.Kind()]; !known {
		return nil
	}
	if _, ok := doc.Map("spec"); ok {
		return nil
	}
	return []model.Finding{schemaError(doc, "SCHEMA_MISSING_SPEC", "spec", "Missing spec field")}
}

func schemaRequired(doc document.Document) []model.Finding {
	if _, ok := doc.Map("spec"); !ok {
		return nil
	}
	kind := doc.Kind()
	topology := kind == "Cluster" && doc.Has("spec.topology")
	var out []model.Finding
	for _, field := range schemaRequiredFields[kind] {
		if topology && topologyExempt[field] {
			continue
		}
		if !doc.Has("spec." + field) {
			out = append(out, schemaError(doc, "SCHEMA_MISSING_FIELD", "spec."+field, "Missing required field: "+field))
		}
	}
	return out
}

// requireIn reports each key missing from the mapping at path. A path that
// is not a mapping is left to the required-field checks.
func requireIn(doc document.Document, path string, keys ...string) []model.Finding {
	m, ok := doc.Map(path)
	if !ok {
		return nil
	}
	name := path[strings.LastIndex(path, ".")+1:]
	var out []model.Finding
	for _, key := range keys {
		if present(m, key) {
			continue
		}
		out = append(out, schemaError(doc, "SCHEMA_MISSING_REF_FIELD", path+"."+key,
			fmt.Sprintf("Missing %s in %s", key, name)))
	}
	return out
}

func schemaClusterRefs(doc document.Document) []model.Finding {
	out := requireIn(doc, "spec.infrastructureRef", "kind", "name")
	return append(out, requireIn(doc, "spec.controlPlaneRef", "kind")...)
}

func schemaMachineBootstrap(doc document.Document) []model.Finding {
	bootstrap, ok := doc.Map("spec.bootstrap")
	if !ok {
		return nil
	}
	if present(bootstrap, "configRef") || present(bootstrap, "dataSecretName") {
		return nil
	}
	return []model.Finding{schemaError(doc, "SCHEMA_MACHINE_BOOTSTRAP", "spec.bootstrap",
		"Must have either configRef or dataSecretName")}
}

func schemaMachineDeploymentTemplate(doc document.Document) []model.Finding {
	tmpl, ok := doc.Map("spec.template.spec")
	if !ok {
		return nil
	}
	var out []model.Finding
	if !present(tmpl, "bootstrap") {
		out = append(out, schemaError(doc, "SCHEMA_TEMPLATE_FIELD", "spec.template.spec.bootstrap", "Missing bootstrap in template"))
	}
	if !present(tmpl, "infrastructureRef") {
		out = append(out, schemaError(doc, "SCHEMA_TEMPLATE_FIELD", "spec.template.spec.infrastructureRef", "Missing infrastructureRef in template"))
	}
	return out
}

func schemaClusterClassRefs(doc document.Document) []model.Finding {
	out := requireIn(doc, "spec.infrastructure", "ref")
	return append(out, requireIn(doc, "spec.controlPlane", "ref")...)
}

// present reports whether key holds a non-null value.
func present(m map[string]document.Value, key string) bool {
	v, ok := m[key]
	return ok && !v.IsNull()
}
