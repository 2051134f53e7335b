package analyze

import (
	"fmt"

	"capi-inspector/internal/document"
	"capi-inspector/internal/model"
)

func registerAvailability(r *Registry) {
	r.Register(FamilyAvailability, "Cluster", availabilityTopologyReplicas)
	r.Register(FamilyAvailability, "KubeadmControlPlane", availabilityKCPReplicas)
}

// Clusters without a topology delegate replicas to their control plane
// object, which is checked on its own.
func availabilityTopologyReplicas(doc document.Document) []model.Finding {
	if !doc.Has("spec.topology") {
		return nil
	}
	return ReplicaFindings(doc, "spec.topology.controlPlane.replicas")
}

func availabilityKCPReplicas(doc document.Document) []model.Finding {
	return ReplicaFindings(doc, "spec.replicas")
}

// ReplicaFindings checks control plane sizing for etcd quorum. A missing
// count means a single replica. Fewer than three replicas is medium when
// there is exactly one and low otherwise; an even count is low.
func ReplicaFindings(doc document.Document, path string) []model.Finding {
	replicas := int64(1)
	if v, ok := doc.Lookup(path); ok {
		if n, ok := v.AsInt(); ok {
			replicas = n
		}
	}
	var out []model.Finding
	if replicas < 3 {
		sev := model.SeverityLow
		if replicas == 1 {
			sev = model.SeverityMedium
		}
		out = append(out, newFinding(doc, "AVAIL_CP_REPLICAS", sev, "Availability", path,
			fmt.Sprintf("Control plane has %d replica(s) (recommend 3 for HA)", replicas),
			"Use 3 control plane replicas for production HA"))
	}
	if replicas%2 == 0 {
		out = append(out, newFinding(doc, "AVAIL_CP_EVEN", model.SeverityLow, "Availability", path,
			fmt.Sprintf("Control plane has even number of replicas (%d)", replicas),
			"Use odd number of replicas for proper etcd quorum"))
	}
	return out
}
