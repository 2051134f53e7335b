package analyze

import (
	"strings"

	"capi-inspector/internal/document"
	"capi-inspector/internal/model"
	"capi-inspector/internal/rules"
)

// ProviderType is the contract a provider CRD implements.
type ProviderType string

const (
	InfrastructureCluster ProviderType = "infrastructure-cluster"
	InfrastructureMachine ProviderType = "infrastructure-machine"
	BootstrapConfig       ProviderType = "bootstrap"
	ControlPlane          ProviderType = "controlplane"
	UnknownProvider       ProviderType = "unknown"
)

// ContractGroups are the API groups that carry provider CRDs.
var ContractGroups = []string{
	"infrastructure.cluster.x-k8s.io",
	"bootstrap.cluster.x-k8s.io",
	"controlplane.cluster.x-k8s.io",
}

type contractSpec struct {
	spec   []string
	status []string
	// requirement explains a field, keyed by spec.x or status.x.
	requirement map[string]string
	// recommended status fields produce warnings rather than errors.
	recommended []string
}

var contracts = map[ProviderType]contractSpec{
	InfrastructureCluster: {
		spec:   []string{"controlPlaneEndpoint"},
		status: []string{"ready", "failureReason", "failureMessage"},
		requirement: map[string]string{
			"spec.controlPlaneEndpoint": "Must populate spec.controlPlaneEndpoint when available",
			"status.ready":              "Must set status.ready=true when infrastructure is ready",
			"status.failureReason":      "Must report failureReason/failureMessage on terminal errors",
			"status.failureMessage":     "Must report failureReason/failureMessage on terminal errors",
		},
		recommended: []string{"conditions"},
	},
	InfrastructureMachine: {
		spec:   []string{"providerID"},
		status: []string{"ready", "addresses"},
		requirement: map[string]string{
			"spec.providerID":  "Contract requires spec.providerID for node correlation",
			"status.ready":     "Must set status.ready=true when machine is provisioned",
			"status.addresses": "Contract requires status.addresses for node registration",
		},
	},
	BootstrapConfig: {
		status: []string{"ready", "dataSecretName"},
		requirement: map[string]string{
			"status.ready":          "Must set status.ready=true when bootstrap data is generated",
			"status.dataSecretName": "Contract requires status.dataSecretName pointing to bootstrap data Secret",
		},
	},
	ControlPlane: {
		spec:   []string{"replicas", "version", "machineTemplate"},
		status: []string{"ready", "initialized", "replicas", "updatedReplicas", "readyReplicas", "conditions"},
		requirement: map[string]string{
			"status.initialized": "Must report initialized=true after first control plane node",
		},
	},
}

// contractRules resolve required properties against the served
// openAPIV3Schema, e.g. properties.status.properties.ready.
var contractRules = func() map[ProviderType]rules.Set {
	out := map[ProviderType]rules.Set{}
	for typ, c := range contracts {
		var rs []rules.Rule
		for _, f := range c.spec {
			rs = append(rs, contractRule("spec", f, model.SeverityError, "Spec", c.requirement["spec."+f]))
		}
		for _, f := range c.status {
			rs = append(rs, contractRule("status", f, model.SeverityError, "Status", c.requirement["status."+f]))
		}
		for _, f := range c.recommended {
			r := contractRule("status", f, model.SeverityWarning, "Conditions", "Conditions recommended for observability")
			r.Message = "No " + f + " field in status"
			rs = append(rs, r)
		}
		out[typ] = rules.NewSet(rs...)
	}
	return out
}()

func contractRule(section, field string, sev model.Severity, category, requirement string) rules.Rule {
	if requirement == "" {
		requirement = "Contract requires " + section + "." + field
	}
	return rules.Rule{
		ID:             "CONTRACT_" + strings.ToUpper(section) + "_FIELD",
		FieldPath:      "properties." + section + ".properties." + field,
		Condition:      rules.RequiredPresent,
		Severity:       sev,
		Category:       category,
		Message:        "Missing required " + section + " field: " + field,
		Recommendation: requirement,
	}
}

// contractField maps a schema path back to the instance field path.
func contractField(schemaPath string) string {
	return strings.ReplaceAll(schemaPath, "properties.", "")
}

func registerContract(r *Registry) {
	r.Register(FamilyContract, "CustomResourceDefinition", Contract)
}

// DetectProviderType classifies a CRD from its group and kind. Template
// kinds have no contract of their own.
func DetectProviderType(crd document.Document) ProviderType {
	group := crd.String("spec.group")
	kind := crd.String("spec.names.kind")
	if kind == "" || strings.HasSuffix(kind, "Template") {
		return UnknownProvider
	}
	switch {
	case strings.HasSuffix(group, "infrastructure.cluster.x-k8s.io"):
		if strings.HasSuffix(kind, "Cluster") {
			return InfrastructureCluster
		}
		if strings.HasSuffix(kind, "Machine") {
			return InfrastructureMachine
		}
	case strings.HasSuffix(group, "bootstrap.cluster.x-k8s.io"):
		if strings.HasSuffix(kind, "Config") {
			return BootstrapConfig
		}
	case strings.HasSuffix(group, "controlplane.cluster.x-k8s.io"):
		if strings.HasSuffix(kind, "ControlPlane") {
			return ControlPlane
		}
	}
	return UnknownProvider
}

// ProviderName strips the contract words from the CRD kind, so
// AWSMachine and AWSCluster both belong to "aws".
func ProviderName(crd document.Document) string {
	name := strings.ToLower(crd.String("spec.names.kind"))
	for _, word := range []string{"cluster", "machine", "config", "controlplane"} {
		name = strings.ReplaceAll(name, word, "")
	}
	return name
}

// ServedSchema returns the openAPIV3Schema of the first served version.
func ServedSchema(crd document.Document) (document.Document, bool) {
	versions, _ := crd.List("spec.versions")
	for _, v := range versions {
		served, _ := v.Get("served")
		if b, _ := served.AsBool(); !b {
			continue
		}
		schema, ok := v.Lookup("schema.openAPIV3Schema")
		if !ok || !schema.IsMap() {
			return document.Document{}, false
		}
		return document.New(schema).WithSource(crd.Source, crd.Line), true
	}
	return document.Document{}, false
}

// Contract checks a provider CRD against the contract of its type. CRDs of
// unknown type yield nothing.
func Contract(crd document.Document) []model.Finding {
	typ := DetectProviderType(crd)
	set, ok := contractRules[typ]
	if !ok {
		return nil
	}
	schema, ok := ServedSchema(crd)
	if !ok {
		f := newFinding(crd, "CONTRACT_NO_SCHEMA", model.SeverityError, "Schema", "spec.versions",
			"No OpenAPI schema found in CRD", "")
		f.ResourceID = crd.Name()
		return []model.Finding{f}
	}
	var out []model.Finding
	for _, f := range set.Evaluate(schema) {
		f.ResourceID = crd.Name()
		f.Field = contractField(f.Field)
		out = append(out, f)
	}
	return out
}

// ContractResult is the compliance verdict for one CRD.
type ContractResult struct {
	CRD      string        `json:"crd"`
	Provider string        `json:"provider"`
	Type     ProviderType  `json:"type"`
	Report   *model.Report `json:"report"`
}

func (c ContractResult) Compliant() bool { return c.Report.ErrorCount() == 0 }

// CheckContract wraps Contract with the CRD's provider metadata.
func CheckContract(crd document.Document) ContractResult {
	report := model.NewReport(crd.Name())
	report.Command = "contract"
	report.Add(Contract(crd)...)
	return ContractResult{
		CRD:      crd.Name(),
		Provider: ProviderName(crd),
		Type:     DetectProviderType(crd),
		Report:   report,
	}
}
