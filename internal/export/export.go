// Package export gathers the Cluster API objects that make up a cluster and
// writes them out as clean, re-appliable manifests.
package export

import (
	"context"
	"fmt"
	"strings"

	"capi-inspector/internal/collect"
	"capi-inspector/internal/document"
	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

const (
	Redacted     = "REDACTED"
	clusterLabel = "cluster.x-k8s.io/cluster-name"
	lastApplied  = "kubectl.kubernetes.io/last-applied-configuration"
	infraGroup   = "infrastructure.cluster.x-k8s.io"
)

var serverFields = []string{"uid", "resourceVersion", "generation", "creationTimestamp", "managedFields", "selfLink", "ownerReferences"}

// Clean drops status and the metadata the API server owns so the manifest
// can be applied to another management cluster.
func Clean(d document.Document) document.Document {
	obj, ok := d.Root().Interface().(map[string]any)
	if !ok {
		return d
	}
	delete(obj, "status")
	if md, ok := obj["metadata"].(map[string]any); ok {
		for _, f := range serverFields {
			delete(md, f)
		}
		if ann, ok := md["annotations"].(map[string]any); ok {
			delete(ann, lastApplied)
			if len(ann) == 0 {
				delete(md, "annotations")
			}
		}
	}
	return document.FromMap(obj).WithSource(d.Source, d.Line)
}

// Redact replaces every secret value with REDACTED, keeping the keys.
func Redact(d document.Document) document.Document {
	root := d.Root()
	for _, field := range []string{"data", "stringData"} {
		data, ok := d.Map(field)
		if !ok {
			continue
		}
		redacted := make(map[string]document.Value, len(data))
		for k := range data {
			redacted[k] = document.StringValue(Redacted)
		}
		root = root.With(field, document.MapValue(redacted))
	}
	return document.New(root).WithSource(d.Source, d.Line)
}

// BelongsTo reports whether d is part of cluster: it carries the cluster
// label, names it in spec.clusterName, or is the Cluster itself.
func BelongsTo(d document.Document, cluster string) bool {
	if v, ok := d.Label(clusterLabel); ok && v == cluster {
		return true
	}
	if d.String("spec.clusterName") == cluster {
		return true
	}
	return d.Kind() == "Cluster" && d.Name() == cluster
}

// Select keeps the documents belonging to cluster. An empty cluster keeps
// everything.
func Select(docs []document.Document, cluster string) []document.Document {
	if cluster == "" {
		return docs
	}
	var out []document.Document
	for _, d := range docs {
		if BelongsTo(d, cluster) {
			out = append(out, d)
		}
	}
	return out
}

type ownerRef struct {
	apiVersion, kind, name string
}

func capiOwners(d document.Document) []ownerRef {
	refs, _ := d.List("metadata.ownerReferences")
	var out []ownerRef
	for _, r := range refs {
		str := func(key string) string {
			v, _ := r.Get(key)
			s, _ := v.AsString()
			return s
		}
		if apiVersion := str("apiVersion"); strings.Contains(apiVersion, "cluster.x-k8s.io") {
			out = append(out, ownerRef{apiVersion: apiVersion, kind: str("kind"), name: str("name")})
		}
	}
	return out
}

// SelectSecrets keeps the secrets Cluster API manages. For a named cluster
// a secret must carry its label or be owned by that Cluster; otherwise any
// cluster label or Cluster API owner qualifies.
func SelectSecrets(docs []document.Document, cluster string) []document.Document {
	var out []document.Document
	for _, d := range docs {
		label, hasLabel := d.Label(clusterLabel)
		owners := capiOwners(d)
		var keep bool
		if cluster == "" {
			keep = (hasLabel && label != "") || len(owners) > 0
		} else {
			keep = hasLabel && label == cluster
			for _, o := range owners {
				if o.kind == "Cluster" && o.name == cluster {
					keep = true
				}
			}
		}
		if keep {
			out = append(out, d)
		}
	}
	return out
}

var refPaths = []string{"spec.infrastructureRef", "spec.controlPlaneRef", "spec.bootstrap.configRef"}

// RefQueries returns one query per distinct object referenced from the
// infrastructure, control plane and bootstrap refs of docs.
func RefQueries(docs []document.Document, namespace string) []collect.Query {
	seen := map[string]bool{}
	var out []collect.Query
	for _, d := range docs {
		for _, p := range refPaths {
			kind, name := d.String(p+".kind"), d.String(p+".name")
			if kind == "" || name == "" {
				continue
			}
			ns := d.String(p + ".namespace")
			if ns == "" {
				ns = d.Namespace()
			}
			if ns == "" {
				ns = namespace
			}
			key := kind + "/" + ns + "/" + name
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, collect.Query{Resource: refResource(d, p, kind), Name: name, Namespace: ns})
		}
	}
	return out
}

// refResource guesses the plural.group resource for a ref. v1beta1 refs
// carry apiVersion, v1beta2 refs carry apiGroup.
func refResource(d document.Document, path, kind string) string {
	group := document.GroupOf(d.String(path + ".apiVersion"))
	if g := d.String(path + ".apiGroup"); g != "" {
		group = g
	}
	plural, _ := meta.UnsafeGuessKindToResource(schema.GroupVersionKind{Group: group, Kind: kind})
	if group == "" {
		return plural.Resource
	}
	return plural.Resource + "." + group
}

// Options controls what Gather collects.
type Options struct {
	Cluster        string
	Namespace      string
	IncludeSecrets bool
	IncludeRefs    bool
}

func (o Options) query(resource string) collect.Query {
	return collect.Query{Resource: resource, Namespace: o.Namespace, AllNamespaces: o.Namespace == ""}
}

// Gather fetches the core and provider resources for the selected cluster,
// the objects they reference and the secrets Cluster API manages. Every
// document is cleaned and secrets are redacted unless asked otherwise.
func Gather(ctx context.Context, f collect.Fetcher, opts Options) []document.Document {
	logger := logr.FromContextOrDiscard(ctx)

	resources := append([]string(nil), collect.CAPIResources...)
	resources = append(resources, collect.Providers(ctx, f, infraGroup)...)

	seen := map[string]bool{}
	var out []document.Document
	add := func(docs []document.Document) int {
		n := 0
		for _, d := range docs {
			id := d.ResourceID()
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, Clean(d))
			n++
		}
		return n
	}

	for _, r := range resources {
		if n := add(Select(collect.Collect(ctx, f, opts.query(r)), opts.Cluster)); n > 0 {
			logger.Info("exporting resources", "resource", r, "count", n)
		}
	}
	if opts.IncludeRefs {
		n := add(collect.Collect(ctx, f, RefQueries(out, opts.Namespace)...))
		logger.V(1).Info("exporting referenced resources", "count", n)
	}

	secrets := SelectSecrets(collect.Collect(ctx, f, opts.query(collect.Secrets)), opts.Cluster)
	if !opts.IncludeSecrets {
		for i := range secrets {
			secrets[i] = Redact(secrets[i])
		}
	}
	if n := add(secrets); n > 0 {
		logger.Info("exporting secrets", "count", n, "redacted", !opts.IncludeSecrets)
	}
	return out
}

// FileName is the per-kind manifest name, e.g. machinedeployments.yaml.
func FileName(kind string) string {
	if kind == "" {
		kind = "unknown"
	}
	return fmt.Sprintf("%ss.yaml", strings.ToLower(kind))
}
