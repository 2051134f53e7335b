package analyze

import (
	"fmt"
	"strings"

	"capi-inspector/internal/document"
	"capi-inspector/internal/model"
)

func registerSecurity(r *Registry) {
	r.Register(FamilySecurity, "Cluster", securityPodSecurity, securityNetwork)
	r.RegisterRules(FamilySecurity, "KubeadmControlPlane", kubeadmSecurity)
	r.Register(FamilySecurity, "KubeadmControlPlane", securityAuthorization, securityKubeletTLS)
	r.RegisterRules(FamilySecurity, "Machine", machineSecurity)
	r.RegisterRules(FamilySecurity, "Secret", secretSecurity)
}

// topologyVariable returns the value of a named spec.topology.variables
// entry.
func topologyVariable(doc document.Document, name string) (document.Value, bool) {
	vars, _ := doc.List("spec.topology.variables")
	for _, v := range vars {
		n, _ := v.Get("name")
		if s, _ := n.AsString(); s == name {
			return v.Get("value")
		}
	}
	return document.Value{}, false
}

func securityPodSecurity(doc document.Document) []model.Finding {
	const category = "Pod Security"
	pss, ok := topologyVariable(doc, "podSecurityStandard")
	if !ok || !pss.IsMap() || pss.Len() == 0 {
		return []model.Finding{newFinding(doc, "SEC_PSS_MISSING", model.SeverityMedium, category, "spec.topology.variables",
			"No podSecurityStandard variable configured",
			"Set podSecurityStandard variable with enforce level")}
	}
	var out []model.Finding
	enforceVal, _ := pss.Get("enforce")
	enforce, _ := enforceVal.AsString()
	switch enforce {
	case "", "privileged":
		level := enforce
		if level == "" {
			level = "not set"
		}
		out = append(out, newFinding(doc, "SEC_PSS_ENFORCE", model.SeverityHigh, category, "podSecurityStandard.enforce",
			fmt.Sprintf("PSS enforce level is '%s' (should be baseline or restricted)", level),
			"Set podSecurityStandard.enforce to 'baseline' or 'restricted'"))
	case "baseline":
		out = append(out, newFinding(doc, "SEC_PSS_ENFORCE", model.SeverityLow, category, "podSecurityStandard.enforce",
			"PSS enforce level is 'baseline' (consider 'restricted' for production)",
			"Consider 'restricted' level for higher security"))
	}
	auditVal, _ := pss.Get("audit")
	if audit, _ := auditVal.AsString(); audit == "" {
		out = append(out, newFinding(doc, "SEC_PSS_AUDIT", model.SeverityLow, category, "podSecurityStandard.audit",
			"PSS audit level not configured",
			"Set podSecurityStandard.audit for violation logging"))
	}
	return out
}

func securityNetwork(doc document.Document) []model.Finding {
	var out []model.Finding
	if network, _ := doc.Map("spec.clusterNetwork"); len(network) == 0 {
		out = append(out, newFinding(doc, "SEC_CLUSTER_NETWORK", model.SeverityInfo, "Network", "spec.clusterNetwork",
			"No explicit clusterNetwork configuration",
			"Define clusterNetwork with appropriate CIDR ranges"))
	}
	configured := false
	vars, _ := doc.List("spec.topology.variables")
	for _, v := range vars {
		n, _ := v.Get("name")
		if s, _ := n.AsString(); cniVariables[s] {
			configured = true
			break
		}
	}
	if !configured {
		out = append(out, newFinding(doc, "SEC_CNI", model.SeverityInfo, "Network", "spec.topology.variables",
			"CNI configuration not found in cluster variables",
			"Ensure CNI plugin is configured (calico, cilium, etc.)"))
	}
	return out
}

func securityAuthorization(doc document.Document) []model.Finding {
	if strings.Contains(doc.String(apiServerArgs+".authorization-mode"), "RBAC") {
		return nil
	}
	return []model.Finding{newFinding(doc, "SEC_RBAC", model.SeverityHigh, "Authorization", apiServerArgs+".authorization-mode",
		"RBAC not explicitly enabled in authorization-mode",
		"Ensure authorization-mode includes RBAC")}
}

const kubeletTLSPath = "spec.kubeadmConfigSpec.clusterConfiguration.kubeletConfiguration.serverTLSBootstrap"

func securityKubeletTLS(doc document.Document) []model.Finding {
	v, _ := doc.Lookup(kubeletTLSPath)
	if b, ok := v.AsBool(); ok && b {
		return nil
	}
	return []model.Finding{newFinding(doc, "SEC_KUBELET_TLS", model.SeverityLow, "TLS", kubeletTLSPath,
		"Kubelet server TLS bootstrap not enabled",
		"Enable serverTLSBootstrap for automatic certificate management")}
}
