// Package document holds parsed Cluster API resources as immutable typed
// trees and resolves dot separated field paths against them.
package document

import "strings"

// Document is one parsed resource. It is never modified once loaded.
type Document struct {
	root Value
	// Source is the file or command the document came from.
	Source string
	// Line is the 1-based line the document starts on, 0 when unknown.
	Line int
}

// Identity identifies a resource.
type Identity struct {
	Kind       string `json:"kind"`
	APIVersion string `json:"apiVersion"`
	Namespace  string `json:"namespace,omitempty"`
	Name       string `json:"name"`
}

// String renders Kind/namespace/name. A missing namespace renders as
// "default" and a missing name as "unknown".
func (id Identity) String() string {
	kind := id.Kind
	if kind == "" {
		kind = "Unknown"
	}
	ns := id.Namespace
	if ns == "" {
		ns = "default"
	}
	name := id.Name
	if name == "" {
		name = "unknown"
	}
	return kind + "/" + ns + "/" + name
}

// Group returns the API group of the apiVersion, empty for the core group.
func (id Identity) Group() string {
	return GroupOf(id.APIVersion)
}

// Version returns the version part of the apiVersion.
func (id Identity) Version() string {
	if i := strings.LastIndex(id.APIVersion, "/"); i >= 0 {
		return id.APIVersion[i+1:]
	}
	return id.APIVersion
}

// GroupOf splits the group out of an apiVersion such as
// "cluster.x-k8s.io/v1beta1".
func GroupOf(apiVersion string) string {
	if i := strings.Index(apiVersion, "/"); i >= 0 {
		return apiVersion[:i]
	}
	return ""
}

// New wraps root as a Document. The root is deep copied.
func New(root Value) Document {
	return Document{root: root.Clone()}
}

// FromMap builds a Document from decoded YAML or JSON.
func FromMap(m map[string]any) Document {
	return Document{root: FromInterface(m)}
}

// WithSource returns a copy of d tagged with its origin.
func (d Document) WithSource(source string, line int) Document {
	d.Source = source
	d.Line = line
	return d
}

// Root returns the document tree.
func (d Document) Root() Value { return d.root }

// Lookup resolves path against the document. See Value.Lookup.
func (d Document) Lookup(path string) (Value, bool) {
	return d.root.Lookup(path)
}

// Has reports whether path is present, even when it holds null.
func (d Document) Has(path string) bool {
	_, ok := d.root.Lookup(path)
	return ok
}

// String returns the string at path, or "" when absent or not a string.
func (d Document) String(path string) string {
	v, ok := d.root.Lookup(path)
	if !ok {
		return ""
	}
	s, _ := v.AsString()
	return s
}

// Map returns the mapping at path.
func (d Document) Map(path string) (map[string]Value, bool) {
	v, ok := d.root.Lookup(path)
	if !ok {
		return nil, false
	}
	return v.AsMap()
}

// List returns the list at path.
func (d Document) List(path string) ([]Value, bool) {
	v, ok := d.root.Lookup(path)
	if !ok {
		return nil, false
	}
	return v.AsList()
}

func (d Document) Kind() string       { return d.String("kind") }
func (d Document) APIVersion() string { return d.String("apiVersion") }
func (d Document) Name() string       { return d.String("metadata.name") }
func (d Document) Namespace() string  { return d.String("metadata.namespace") }

// Label returns the value of a metadata label. Label keys contain dots so
// they cannot be resolved as a path.
func (d Document) Label(key string) (string, bool) {
	labels, ok := d.Map("metadata.labels")
	if !ok {
		return "", false
	}
	v, ok := labels[key]
	if !ok {
		return "", false
	}
	s, ok := v.AsString()
	return s, ok
}

// Identity returns the kind, apiVersion, namespace and name of d.
func (d Document) Identity() Identity {
	return Identity{
		Kind:       d.Kind(),
		APIVersion: d.APIVersion(),
		Namespace:  d.Namespace(),
		Name:       d.Name(),
	}
}

// ResourceID renders the identity as Kind/namespace/name.
func (d Document) ResourceID() string {
	return d.Identity().String()
}
