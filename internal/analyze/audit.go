package analyze

import (
	"strings"

	"capi-inspector/internal/document"
	"capi-inspector/internal/model"
)

// Related is the set of objects correlated with one Cluster for an audit.
type Related struct {
	ControlPlanes []document.Document
	Machines      []document.Document
	Secrets       []document.Document
}

// Correlate picks out the objects that belong to cluster: control planes
// owned by it, machines labelled with its name, and secrets that are
// labelled with its name or named after it (so unlabelled kubeconfig
// secrets are still audited). Only objects in the cluster's namespace are
// considered; a missing namespace means "default".
func Correlate(cluster document.Document, candidates []document.Document) Related {
	name := cluster.Name()
	ns := namespaceOf(cluster)
	var rel Related
	for _, doc := range candidates {
		if namespaceOf(doc) != ns {
			continue
		}
		switch doc.Kind() {
		case "KubeadmControlPlane":
			if ownedBy(doc, name) {
				rel.ControlPlanes = append(rel.ControlPlanes, doc)
			}
		case "Machine":
			if label, _ := doc.Label(ClusterNameLabel); label == name {
				rel.Machines = append(rel.Machines, doc)
			}
		case "Secret":
			label, _ := doc.Label(ClusterNameLabel)
			if label == name || strings.HasPrefix(doc.Name(), name+"-") {
				rel.Secrets = append(rel.Secrets, doc)
			}
		}
	}
	return rel
}

func ownedBy(doc document.Document, name string) bool {
	refs, _ := doc.List("metadata.ownerReferences")
	for _, ref := range refs {
		n, _ := ref.Get("name")
		if s, _ := n.AsString(); s == name {
			return true
		}
	}
	return false
}

// AuditCluster runs the security and availability families over a cluster
// and its related objects. Replica sizing comes from the topology when the
// cluster has one and from its control plane objects otherwise.
func AuditCluster(r *Registry, cluster document.Document, rel Related) *model.Report {
	report := model.NewReport(clusterSubject(cluster))
	report.Command = "audit"
	report.Add(r.Run(cluster, FamilySecurity, FamilyAvailability)...)

	topology := cluster.Has("spec.topology")
	for _, kcp := range rel.ControlPlanes {
		if topology {
			report.Add(r.Run(kcp, FamilySecurity)...)
		} else {
			report.Add(r.Run(kcp, FamilySecurity, FamilyAvailability)...)
		}
	}
	for _, m := range rel.Machines {
		report.Add(r.Run(m, FamilySecurity)...)
	}
	for _, s := range rel.Secrets {
		report.Add(r.Run(s, FamilySecurity)...)
	}
	return report
}

func namespaceOf(doc document.Document) string {
	if ns := doc.Namespace(); ns != "" {
		return ns
	}
	return "default"
}

func clusterSubject(cluster document.Document) string {
	ns := namespaceOf(cluster)
	name := cluster.Name()
	if name == "" {
		name = "unknown"
	}
	return ns + "/" + name
}
