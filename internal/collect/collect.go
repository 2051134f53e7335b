// Package collect fetches live Cluster API resources as documents, either
// by shelling out to kubectl or through the Kubernetes API.
package collect

import (
	"context"
	"errors"
	"fmt"

	"capi-inspector/internal/document"
	"github.com/go-logr/logr"
)

// Query selects resources of one type. Resource takes the
// plural.group form used by kubectl, e.g. clusters.cluster.x-k8s.io.
type Query struct {
	Resource      string
	Name          string
	Namespace     string
	AllNamespaces bool
	Selector      string
}

func (q Query) String() string {
	s := q.Resource
	if q.Name != "" {
		s += "/" + q.Name
	}
	switch {
	case q.AllNamespaces:
		s += " (all namespaces)"
	case q.Namespace != "":
		s += " -n " + q.Namespace
	}
	if q.Selector != "" {
		s += " -l " + q.Selector
	}
	return s
}

// Fetcher reads resources from a live cluster. A resource that does not
// exist is not an error and yields no documents.
type Fetcher interface {
	Get(ctx context.Context, q Query) ([]document.Document, error)
	// APIResources lists the plural.group names served for group.
	APIResources(ctx context.Context, group string) ([]string, error)
}

// ErrUnavailable marks failures to reach the cluster at all, such as a
// missing kubectl binary.
var ErrUnavailable = errors.New("cluster unavailable")

const (
	Clusters             = "clusters.cluster.x-k8s.io"
	Machines             = "machines.cluster.x-k8s.io"
	MachineSets          = "machinesets.cluster.x-k8s.io"
	MachineDeployments   = "machinedeployments.cluster.x-k8s.io"
	KubeadmControlPlanes = "kubeadmcontrolplanes.controlplane.cluster.x-k8s.io"
	CRDs                 = "customresourcedefinitions.apiextensions.k8s.io"
	Secrets              = "secrets"
)

// CAPIResources are the core Cluster API types, in export order.
var CAPIResources = []string{
	Clusters,
	Machines,
	MachineSets,
	MachineDeployments,
	"machinepools.cluster.x-k8s.io",
	"machinehealthchecks.cluster.x-k8s.io",
	"clusterclasses.cluster.x-k8s.io",
	"clusterresourcesets.addons.cluster.x-k8s.io",
	"clusterresourcesetbindings.addons.cluster.x-k8s.io",
	"kubeadmconfigs.bootstrap.cluster.x-k8s.io",
	"kubeadmconfigtemplates.bootstrap.cluster.x-k8s.io",
	KubeadmControlPlanes,
	"kubeadmcontrolplanetemplates.controlplane.cluster.x-k8s.io",
	"ipaddressclaims.ipam.cluster.x-k8s.io",
}

// Collect runs each query in order and concatenates the results. A failing
// query is logged and contributes no documents.
func Collect(ctx context.Context, f Fetcher, queries ...Query) []document.Document {
	logger := logr.FromContextOrDiscard(ctx)
	var out []document.Document
	for _, q := range queries {
		docs, err := f.Get(ctx, q)
		if err != nil {
			logger.Error(err, "failed to fetch resources", "query", q.String())
			continue
		}
		logger.V(1).Info("fetched resources", "query", q.String(), "count", len(docs))
		out = append(out, docs...)
	}
	return out
}

// ClusterObjects gathers a cluster, the machines labelled with its name
// and the KubeadmControlPlane its controlPlaneRef points at.
func ClusterObjects(ctx context.Context, f Fetcher, cluster, namespace string) []document.Document {
	if namespace == "" {
		namespace = "default"
	}
	clusters := Collect(ctx, f, Query{Resource: Clusters, Name: cluster, Namespace: namespace})
	docs := append([]document.Document(nil), clusters...)
	selector := fmt.Sprintf("cluster.x-k8s.io/cluster-name=%s", cluster)
	for _, r := range []string{Machines, MachineSets, MachineDeployments} {
		docs = append(docs, Collect(ctx, f, Query{Resource: r, Namespace: namespace, Selector: selector})...)
	}
	if len(clusters) == 0 || clusters[0].String("spec.controlPlaneRef.kind") != "KubeadmControlPlane" {
		return docs
	}
	if name := clusters[0].String("spec.controlPlaneRef.name"); name != "" {
		docs = append(docs, Collect(ctx, f, Query{Resource: KubeadmControlPlanes, Name: name, Namespace: namespace})...)
	}
	return docs
}

// Providers lists the provider resource types served for each group.
func Providers(ctx context.Context, f Fetcher, groups ...string) []string {
	logger := logr.FromContextOrDiscard(ctx)
	var out []string
	for _, g := range groups {
		names, err := f.APIResources(ctx, g)
		if err != nil {
			logger.Error(err, "failed to discover provider resources", "group", g)
			continue
		}
		out = append(out, names...)
	}
	return out
}
