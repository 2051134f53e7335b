package analyze

import (
	"regexp"

	"capi-inspector/internal/model"
	"capi-inspector/internal/rules"
)

// Label that ties CAPI objects to their owning Cluster.
const ClusterNameLabel = "cluster.x-k8s.io/cluster-name"

// apiGroups maps each CAPI kind to the API group it must be served from.
var apiGroups = map[string]string{
	"Cluster":                     "cluster.x-k8s.io",
	"Machine":                     "cluster.x-k8s.io",
	"MachineSet":                  "cluster.x-k8s.io",
	"MachineDeployment":           "cluster.x-k8s.io",
	"MachinePool":                 "cluster.x-k8s.io",
	"MachineHealthCheck":          "cluster.x-k8s.io",
	"ClusterClass":                "cluster.x-k8s.io",
	"MachinePoolMachine":          "cluster.x-k8s.io",
	"ClusterResourceSet":          "addons.cluster.x-k8s.io",
	"ClusterResourceSetBinding":   "addons.cluster.x-k8s.io",
	"KubeadmConfig":               "bootstrap.cluster.x-k8s.io",
	"KubeadmConfigTemplate":       "bootstrap.cluster.x-k8s.io",
	"KubeadmControlPlane":         "controlplane.cluster.x-k8s.io",
	"KubeadmControlPlaneTemplate": "controlplane.cluster.x-k8s.io",
	"IPAddressClaim":              "ipam.cluster.x-k8s.io",
	"IPAddress":                   "ipam.cluster.x-k8s.io",
}

// APIGroup returns the expected API group of a CAPI kind.
func APIGroup(kind string) (string, bool) {
	g, ok := apiGroups[kind]
	return g, ok
}

// deprecatedAPIVersions are rejected by lint in favour of v1beta1.
var deprecatedAPIVersions = map[string]string{
	"cluster.x-k8s.io/v1alpha3":                "v1beta1",
	"cluster.x-k8s.io/v1alpha4":                "v1beta1",
	"infrastructure.cluster.x-k8s.io/v1alpha3": "v1beta1",
	"infrastructure.cluster.x-k8s.io/v1alpha4": "v1beta1",
	"bootstrap.cluster.x-k8s.io/v1alpha3":      "v1beta1",
	"bootstrap.cluster.x-k8s.io/v1alpha4":      "v1beta1",
	"controlplane.cluster.x-k8s.io/v1alpha3":   "v1beta1",
	"controlplane.cluster.x-k8s.io/v1alpha4":   "v1beta1",
}

// Required spec fields per kind checked by lint. Cluster.spec.clusterName
// is optional and therefore not listed.
var requiredSpecFields = map[string][]string{
	"Cluster":            {"infrastructureRef", "controlPlaneRef"},
	"Machine":            {"clusterName", "bootstrap", "infrastructureRef"},
	"MachineDeployment":  {"clusterName", "template"},
	"MachineSet":         {"clusterName", "template"},
	"MachinePool":        {"clusterName", "template"},
	"ClusterClass":       {"infrastructure", "controlPlane"},
	"MachineHealthCheck": {"clusterName", "selector", "unhealthyConditions"},
}

// schemaRequiredFields are the spec fields validate requires. A Cluster
// only needs its infrastructure; controlPlaneRef is checked for shape when
// present.
var schemaRequiredFields = map[string][]string{
	"Cluster":             {"infrastructureRef"},
	"Machine":             {"clusterName", "bootstrap", "infrastructureRef"},
	"MachineDeployment":   {"clusterName", "selector", "template"},
	"MachineSet":          {"clusterName", "selector", "template"},
	"MachineHealthCheck":  {"clusterName", "selector"},
	"ClusterClass":        {"infrastructure", "controlPlane", "workers"},
	"KubeadmControlPlane": {"version"},
}

// Fields a Cluster with spec.topology may omit.
var topologyExempt = map[string]bool{
	"infrastructureRef": true,
	"controlPlaneRef":   true,
}

// machineKinds should carry the cluster-name label or spec.clusterName.
var machineKinds = map[string]bool{
	"Machine":           true,
	"MachineSet":        true,
	"MachineDeployment": true,
	"MachinePool":       true,
}

// lintDeprecations flags fields deprecated in a given release. They are
// narrowed by the target release before use.
var lintDeprecations = rules.NewSet(
	rules.Rule{
		ID:             "LINT_DEPRECATED_FIELD",
		AppliesTo:      []string{"Cluster"},
		FieldPath:      "spec.paused",
		Condition:      rules.RequiredAbsentAfterDeprecation,
		Severity:       model.SeverityWarning,
		Category:       "Deprecation",
		Message:        "Deprecated field '{field}' (since {since})",
		Recommendation: "Use spec.topology.controlPlane/workers for managed clusters",
		Since:          "v1.4.0",
	},
	rules.Rule{
		ID:             "LINT_DEPRECATED_FIELD",
		AppliesTo:      []string{"Machine"},
		FieldPath:      "spec.version",
		Condition:      rules.RequiredAbsentAfterDeprecation,
		Severity:       model.SeverityWarning,
		Category:       "Deprecation",
		Message:        "Deprecated field '{field}' (since {since})",
		Recommendation: "Version is now inherited from control plane or topology",
		Since:          "v1.5.0",
	},
)

// credentialRules scan raw manifest text. Values starting with $ or {
// are treated as template variables.
var credentialRules = rules.NewSet(
	credentialRule(`(?i)password:\s*['"]?[^${\s]+['"]?`),
	credentialRule(`(?i)secret:\s*['"]?[^${\s]+['"]?`),
	credentialRule(`(?i)token:\s*['"]?[a-zA-Z0-9+/=]{20,}['"]?`),
)

func credentialRule(pattern string) rules.Rule {
	return rules.Rule{
		ID:             "LINT_HARDCODED_CREDENTIAL",
		Pattern:        regexp.MustCompile(pattern),
		Condition:      rules.PatternMatch,
		Severity:       model.SeverityWarning,
		Category:       "Credentials",
		Message:        "Possible hardcoded credential detected",
		Recommendation: "Reference a Secret or a template variable instead",
	}
}

// migrationDeprecations lists v1beta1 fields removed or moved in v1beta2.
var migrationDeprecations = rules.NewSet(
	removed("Cluster", "spec.paused",
		"Replaced by .spec.topology.controlPlane and .spec.topology.workers",
		"Remove spec.paused and use topology-level pause"),
	removed("Cluster", "spec.topology.rolloutAfter",
		"Never implemented, removed in v1beta2",
		"Remove this field"),
	removed("Cluster", "spec.topology.class",
		"Renamed to spec.topology.classRef.name",
		"Move to spec.topology.classRef.name"),
	removed("Cluster", "spec.topology.classNamespace",
		"Renamed to spec.topology.classRef.namespace",
		"Move to spec.topology.classRef.namespace"),
	removed("Cluster", "status.failureReason",
		"Moved to status.deprecated.v1beta1.failureReason",
		"Update status handling code"),
	removed("Cluster", "status.failureMessage",
		"Moved to status.deprecated.v1beta1.failureMessage",
		"Update status handling code"),
	removed("Machine", "status.phase",
		"Phase deprecated in v1beta2; use conditions instead",
		"Migrate to reading status.conditions for machine state"),
	removed("Machine", "spec.version",
		"Version is now inherited from control plane or topology",
		"Remove spec.version if using topology-based cluster"),
	removed("MachineDeployment", "spec.template.spec.version",
		"Version now inherited from topology or control plane",
		"Remove if using ClusterClass topology"),
	removed("MachineDeployment", "spec.progressDeadlineSeconds",
		"Deprecated since v1.9, removed in v1beta2",
		"Remove this field"),
	removed("MachineDeployment", "spec.revisionHistoryLimit",
		"Removed, controller now cleans up all MachineSets without replicas",
		"Remove this field"),
	removed("MachineDeployment", "spec.strategy.rollingUpdate.deletePolicy",
		"Renamed to spec.deletion.order",
		"Move to spec.deletion.order"),
	removed("MachineDeployment", "spec.machineNamingStrategy",
		"Renamed to spec.machineNaming",
		"Rename to spec.machineNaming"),
	removed("MachineSet", "spec.template.spec.version",
		"Version now inherited from owning MachineDeployment",
		"Remove and let MachineDeployment propagate version"),
	removed("MachineSet", "spec.deletePolicy",
		"Renamed to spec.deletion.order",
		"Move to spec.deletion.order"),
	removed("MachineSet", "spec.machineNamingStrategy",
		"Renamed to spec.machineNaming",
		"Rename to spec.machineNaming"),
	removed("KubeadmControlPlane", "spec.kubeadmConfigSpec.clusterConfiguration.clusterName",
		"Inferred from top level, removed to avoid confusion",
		"Remove this field"),
)

func removed(kind, field, reason, action string) rules.Rule {
	return rules.Rule{
		ID:             "MIGRATION_DEPRECATED_FIELD",
		AppliesTo:      []string{kind},
		FieldPath:      field,
		Condition:      rules.RequiredAbsentAfterDeprecation,
		Severity:       model.SeverityWarning,
		Category:       "Deprecated Field",
		Message:        "Deprecated field {field}: " + reason,
		Recommendation: action,
	}
}

// objectRefPaths are the object references whose shape changes in v1beta2.
var objectRefPaths = []string{
	"spec.infrastructureRef",
	"spec.controlPlaneRef",
	"spec.bootstrap.configRef",
	"spec.template.spec.infrastructureRef",
	"spec.template.spec.bootstrap.configRef",
}

// durationRenames maps string duration fields to their v1beta2 integer
// seconds replacement.
var durationRenames = []struct{ From, To string }{
	{"spec.nodeDeletionTimeout", "spec.deletion.nodeDeletionTimeoutSeconds"},
	{"spec.nodeDrainTimeout", "spec.deletion.nodeDrainTimeoutSeconds"},
	{"spec.nodeVolumeDetachTimeout", "spec.deletion.nodeVolumeDetachTimeoutSeconds"},
	{"spec.template.spec.nodeDeletionTimeout", "spec.template.spec.deletion.nodeDeletionTimeoutSeconds"},
	{"spec.template.spec.nodeDrainTimeout", "spec.template.spec.deletion.nodeDrainTimeoutSeconds"},
	{"spec.template.spec.nodeVolumeDetachTimeout", "spec.template.spec.deletion.nodeVolumeDetachTimeoutSeconds"},
	{"spec.topology.controlPlane.nodeDeletionTimeout", "spec.topology.controlPlane.deletion.nodeDeletionTimeoutSeconds"},
	{"spec.topology.controlPlane.nodeDrainTimeout", "spec.topology.controlPlane.deletion.nodeDrainTimeoutSeconds"},
	{"spec.topology.controlPlane.nodeVolumeDetachTimeout", "spec.topology.controlPlane.deletion.nodeVolumeDetachTimeoutSeconds"},
}

const apiServerArgs = "spec.kubeadmConfigSpec.clusterConfiguration.apiServer.extraArgs"

// kubeadmSecurity covers the declarative KubeadmControlPlane checks; the
// authorization-mode and kubelet TLS checks are imperative.
var kubeadmSecurity = rules.NewSet(
	rules.Rule{
		ID:             "SEC_ETCD_ENCRYPTION",
		AppliesTo:      []string{"KubeadmControlPlane"},
		FieldPath:      apiServerArgs + ".encryption-provider-config",
		Condition:      rules.RequiredPresent,
		Severity:       model.SeverityMedium,
		Category:       "Encryption",
		Message:        "etcd encryption at rest not configured",
		Recommendation: "Configure encryption-provider-config for secret encryption",
	},
	rules.Rule{
		ID:             "SEC_AUDIT_POLICY",
		AppliesTo:      []string{"KubeadmControlPlane"},
		FieldPath:      apiServerArgs + ".audit-policy-file",
		Condition:      rules.RequiredPresent,
		Severity:       model.SeverityMedium,
		Category:       "Audit",
		Message:        "Kubernetes audit policy not configured",
		Recommendation: "Configure audit-policy-file for API audit logging",
	},
	rules.Rule{
		ID:             "SEC_ANONYMOUS_AUTH",
		AppliesTo:      []string{"KubeadmControlPlane"},
		FieldPath:      apiServerArgs + ".anonymous-auth",
		Condition:      rules.ForbiddenValue,
		Forbidden:      []string{"true"},
		Severity:       model.SeverityHigh,
		Category:       "Authentication",
		Message:        "Anonymous authentication is enabled",
		Recommendation: "Set anonymous-auth=false",
	},
)

var machineSecurity = rules.NewSet(
	rules.Rule{
		ID:             "SEC_BOOTSTRAP_SECRET",
		AppliesTo:      []string{"Machine"},
		FieldPath:      "spec.bootstrap.dataSecretName",
		Condition:      rules.RequiredPresent,
		Severity:       model.SeverityLow,
		Category:       "Secrets",
		Message:        "Bootstrap data secret reference not found",
		Recommendation: "Ensure bootstrap data is stored in Secret",
	},
)

var secretSecurity = rules.NewSet(
	rules.Rule{
		ID:        "SEC_ORPHANED_KUBECONFIG",
		AppliesTo: []string{"Secret"},
		Condition: rules.Expression,
		Expr: rules.MustCompile(`self.metadata.name.lowerAscii().contains('kubeconfig') &&
			(!has(self.metadata.labels) || !('` + ClusterNameLabel + `' in self.metadata.labels))`),
		Severity:       model.SeverityMedium,
		Category:       "Secrets",
		Message:        "Kubeconfig secret without cluster label (may be orphaned)",
		Recommendation: "Verify secret ownership and clean up if orphaned",
	},
)

// cniVariables are topology variable names that indicate a configured CNI.
var cniVariables = map[string]bool{
	"cni":           true,
	"networkPlugin": true,
	"calico":        true,
	"cilium":        true,
}

// conditionSeverity is the severity of an expected-true condition that is
// not True. Types missing from the table default to warning.
var conditionSeverity = map[string]model.Severity{
	"Ready":               model.SeverityError,
	"Available":           model.SeverityError,
	"InfrastructureReady": model.SeverityError,
	"ControlPlaneReady":   model.SeverityError,
	"Provisioned":         model.SeverityError,
	"BootstrapReady":      model.SeverityWarning,
	"Initialized":         model.SeverityWarning,
}

// expectedTrue lists condition types that should report True.
var expectedTrue = map[string]bool{
	"Ready":               true,
	"Available":           true,
	"InfrastructureReady": true,
	"ControlPlaneReady":   true,
	"BootstrapReady":      true,
	"Provisioned":         true,
	"Initialized":         true,
	"UpToDate":            true,
}

// errorReasons are condition reasons worth a warning regardless of status.
var errorReasons = map[string]bool{
	"ProvisioningFailed":       true,
	"InvalidConfiguration":     true,
	"WaitingForInfrastructure": true,
	"WaitingForControlPlane":   true,
	"ScalingDown":              true,
	"Deleting":                 true,
	"Failed":                   true,
	"ProviderError":            true,
}
