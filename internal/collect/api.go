package collect

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"capi-inspector/internal/document"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
)

// API fetches resources through the dynamic client. Resource names are
// resolved to versions and scopes with a REST mapper.
type API struct {
	Dynamic   dynamic.Interface
	Discovery discovery.DiscoveryInterface
	Mapper    meta.RESTMapper
}

// resolve maps plural.group to a versioned resource and reports whether
// it is namespaced.
func (a *API) resolve(resource string) (schema.GroupVersionResource, bool, error) {
	gr := schema.ParseGroupResource(resource)
	gvr, err := a.Mapper.ResourceFor(gr.WithVersion(""))
	if err != nil {
		return schema.GroupVersionResource{}, false, err
	}
	gvk, err := a.Mapper.KindFor(gvr)
	if err != nil {
		return schema.GroupVersionResource{}, false, err
	}
	mapping, err := a.Mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		return schema.GroupVersionResource{}, false, err
	}
	return gvr, mapping.Scope.Name() == meta.RESTScopeNameNamespace, nil
}

func (a *API) Get(ctx context.Context, q Query) ([]document.Document, error) {
	gvr, namespaced, err := a.resolve(q.Resource)
	if meta.IsNoMatchError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", q.Resource, err)
	}
	var client dynamic.ResourceInterface = a.Dynamic.Resource(gvr)
	if namespaced && !q.AllNamespaces && q.Namespace != "" {
		client = a.Dynamic.Resource(gvr).Namespace(q.Namespace)
	}
	source := "api " + q.String()

	if q.Name != "" {
		obj, err := client.Get(ctx, q.Name, metav1.GetOptions{})
		if apierrors.IsNotFound(err) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", q, err)
		}
		return []document.Document{toDocument(obj, source)}, nil
	}

	list, err := client.List(ctx, metav1.ListOptions{LabelSelector: q.Selector})
	if apierrors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", q, err)
	}
	docs := make([]document.Document, 0, len(list.Items))
	for i := range list.Items {
		docs = append(docs, toDocument(&list.Items[i], source))
	}
	return docs, nil
}

func toDocument(obj *unstructured.Unstructured, source string) document.Document {
	return document.FromMap(obj.Object).WithSource(source, 0)
}

// APIResources lists the top-level resources served for group, skipping
// subresources.
func (a *API) APIResources(ctx context.Context, group string) ([]string, error) {
	groups, err := a.Discovery.ServerGroups()
	if err != nil {
		return nil, fmt.Errorf("discover groups: %w", err)
	}
	seen := map[string]struct{}{}
	for _, g := range groups.Groups {
		if g.Name != group {
			continue
		}
		resources, err := a.Discovery.ServerResourcesForGroupVersion(g.PreferredVersion.GroupVersion)
		if err != nil {
			return nil, fmt.Errorf("discover %s: %w", g.PreferredVersion.GroupVersion, err)
		}
		for _, r := range resources.APIResources {
			if strings.Contains(r.Name, "/") {
				continue
			}
			seen[r.Name+"."+group] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}
