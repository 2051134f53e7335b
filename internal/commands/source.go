package commands

import (
	"context"

	"capi-inspector/internal/collect"
	"capi-inspector/internal/document"
	"capi-inspector/internal/manifest"
	"capi-inspector/internal/model"
	"github.com/spf13/cobra"
)

// sourceFlags choose between a live cluster and manifest files.
type sourceFlags struct {
	files         []string
	namespace     string
	allNamespaces bool
}

func (s *sourceFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&s.files, "filename", "f", nil, "Read resources from these files or directories instead of the cluster")
	cmd.Flags().StringVarP(&s.namespace, "namespace", "n", "", "Namespace of the resources")
	cmd.Flags().BoolVarP(&s.allNamespaces, "all-namespaces", "A", false, "Read resources from every namespace")
}

func (s *sourceFlags) offline() bool { return len(s.files) > 0 }

// query scopes a resource to the selected namespaces. Without a namespace
// a named cluster is looked up in "default" and everything else across
// all namespaces.
func (s *sourceFlags) query(resource string, named bool) collect.Query {
	q := collect.Query{Resource: resource, Namespace: s.namespace}
	switch {
	case s.allNamespaces:
		q.Namespace, q.AllNamespaces = "", true
	case q.Namespace == "" && named:
		q.Namespace = "default"
	case q.Namespace == "":
		q.AllNamespaces = true
	}
	return q
}

// loaded is what a source produced.
type loaded struct {
	docs        []document.Document
	diagnostics []model.Finding
}

func (s *sourceFlags) loadFiles(ctx context.Context, env *Env) (loaded, error) {
	set, err := manifest.Load(ctx, env.Stdin, s.files...)
	if err != nil {
		return loaded{}, usageError(err)
	}
	return loaded{docs: set.Documents, diagnostics: set.Diagnostics}, nil
}

// namespaceOf returns the namespace documents are expected in, or "" when
// any namespace matches.
func (s *sourceFlags) namespaceOf(named bool) string {
	if s.allNamespaces {
		return ""
	}
	if s.namespace == "" && named {
		return "default"
	}
	return s.namespace
}

// filterNamespace keeps documents in ns. Documents without a namespace
// count as "default".
func filterNamespace(docs []document.Document, ns string) []document.Document {
	if ns == "" {
		return docs
	}
	var out []document.Document
	for _, d := range docs {
		dns := d.Namespace()
		if dns == "" {
			dns = "default"
		}
		if dns == ns {
			out = append(out, d)
		}
	}
	return out
}
