package collect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	fakediscovery "k8s.io/client-go/discovery/fake"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	k8stesting "k8s.io/client-go/testing"
)

var (
	clusterGVR = schema.GroupVersionResource{Group: "cluster.x-k8s.io", Version: "v1beta1", Resource: "clusters"}
	machineGVR = schema.GroupVersionResource{Group: "cluster.x-k8s.io", Version: "v1beta1", Resource: "machines"}
	crdGVR     = schema.GroupVersionResource{Group: "apiextensions.k8s.io", Version: "v1", Resource: "customresourcedefinitions"}
)

func object(apiVersion, kind, namespace, name string, labels map[string]string) *unstructured.Unstructured {
	u := &unstructured.Unstructured{}
	u.SetAPIVersion(apiVersion)
	u.SetKind(kind)
	u.SetNamespace(namespace)
	u.SetName(name)
	u.SetLabels(labels)
	return u
}

func newAPI(t *testing.T) *API {
	t.Helper()
	mapper := meta.NewDefaultRESTMapper(nil)
	mapper.Add(schema.GroupVersionKind{Group: "cluster.x-k8s.io", Version: "v1beta1", Kind: "Cluster"}, meta.RESTScopeNamespace)
	mapper.Add(schema.GroupVersionKind{Group: "cluster.x-k8s.io", Version: "v1beta1", Kind: "Machine"}, meta.RESTScopeNamespace)
	mapper.Add(schema.GroupVersionKind{Group: "apiextensions.k8s.io", Version: "v1", Kind: "CustomResourceDefinition"}, meta.RESTScopeRoot)

	client := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(),
		map[schema.GroupVersionResource]string{
			clusterGVR: "ClusterList",
			machineGVR: "MachineList",
			crdGVR:     "CustomResourceDefinitionList",
		},
		object("cluster.x-k8s.io/v1beta1", "Cluster", "fleet", "prod", nil),
		object("cluster.x-k8s.io/v1beta1", "Cluster", "other", "dev", nil),
		object("cluster.x-k8s.io/v1beta1", "Machine", "fleet", "prod-m1", map[string]string{"cluster.x-k8s.io/cluster-name": "prod"}),
		object("cluster.x-k8s.io/v1beta1", "Machine", "fleet", "dev-m1", map[string]string{"cluster.x-k8s.io/cluster-name": "dev"}),
		object("apiextensions.k8s.io/v1", "CustomResourceDefinition", "", "dockerclusters.infrastructure.cluster.x-k8s.io", nil),
	)
	disc := &fakediscovery.FakeDiscovery{Fake: &k8stesting.Fake{Resources: []*metav1.APIResourceList{
		{
			GroupVersion: "infrastructure.cluster.x-k8s.io/v1beta1",
			APIResources: []metav1.APIResource{
				{Name: "dockermachines", Namespaced: true, Kind: "DockerMachine"},
				{Name: "dockerclusters", Namespaced: true, Kind: "DockerCluster"},
				{Name: "dockerclusters/status", Namespaced: true, Kind: "DockerCluster"},
			},
		},
		{
			GroupVersion: "cluster.x-k8s.io/v1beta1",
			APIResources: []metav1.APIResource{{Name: "clusters", Namespaced: true, Kind: "Cluster"}},
		},
	}}}
	return &API{Dynamic: client, Discovery: disc, Mapper: mapper}
}

func names(t *testing.T, a *API, q Query) []string {
	t.Helper()
	docs, err := a.Get(context.Background(), q)
	require.NoError(t, err)
	var out []string
	for _, d := range docs {
		out = append(out, d.Name())
	}
	return out
}

func TestAPIGet(t *testing.T) {
	a := newAPI(t)
	assert.ElementsMatch(t, []string{"prod", "dev"}, names(t, a, Query{Resource: Clusters, AllNamespaces: true}))
	assert.Equal(t, []string{"prod"}, names(t, a, Query{Resource: Clusters, Namespace: "fleet"}))
	assert.Equal(t, []string{"prod"}, names(t, a, Query{Resource: Clusters, Name: "prod", Namespace: "fleet"}))
	assert.Empty(t, names(t, a, Query{Resource: Clusters, Name: "missing", Namespace: "fleet"}))
	assert.Equal(t, []string{"prod-m1"}, names(t, a, Query{Resource: Machines, Namespace: "fleet", Selector: "cluster.x-k8s.io/cluster-name=prod"}))
}

func TestAPIClusterScopedIgnoresNamespace(t *testing.T) {
	a := newAPI(t)
	assert.Equal(t, []string{"dockerclusters.infrastructure.cluster.x-k8s.io"}, names(t, a, Query{Resource: CRDs, Namespace: "fleet"}))
}

func TestAPIUnknownResourceIsEmpty(t *testing.T) {
	a := newAPI(t)
	assert.Empty(t, names(t, a, Query{Resource: "widgets.example.com"}))
}

func TestAPIResources(t *testing.T) {
	a := newAPI(t)
	got, err := a.APIResources(context.Background(), "infrastructure.cluster.x-k8s.io")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"dockerclusters.infrastructure.cluster.x-k8s.io",
		"dockermachines.infrastructure.cluster.x-k8s.io",
	}, got)
}
