package export

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"capi-inspector/internal/document"
	"capi-inspector/internal/output"
	"sigs.k8s.io/yaml"
)

const (
	SingleFileName = "cluster-state.yaml"
	IndexFileName  = "index.yaml"
)

// IndexEntry describes one written manifest.
type IndexEntry struct {
	Path  string   `json:"path"`
	Kinds []string `json:"kinds"`
	Count int      `json:"count"`
}

type Index struct {
	Cluster string       `json:"cluster,omitempty"`
	Total   int          `json:"total"`
	Files   []IndexEntry `json:"files"`
}

// marshal renders one document as YAML, falling back to indented JSON
// (which is also valid YAML) when the YAML encoder refuses it.
func marshal(d document.Document) ([]byte, error) {
	obj := d.Root().Interface()
	out, err := yaml.Marshal(obj)
	if err == nil {
		return out, nil
	}
	out, jerr := json.MarshalIndent(obj, "", "  ")
	if jerr != nil {
		return nil, fmt.Errorf("marshal %s: %w", d.ResourceID(), err)
	}
	return append(out, '\n'), nil
}

// WriteManifest writes docs as a multi-document YAML stream.
func WriteManifest(w io.Writer, docs []document.Document) error {
	for i, d := range docs {
		raw, err := marshal(d)
		if err != nil {
			return err
		}
		if i > 0 {
			if _, err := io.WriteString(w, "---\n"); err != nil {
				return err
			}
		}
		if _, err := w.Write(raw); err != nil {
			return err
		}
	}
	return nil
}

// Write stores docs under dir, one file per kind or a single
// cluster-state.yaml, and an index.yaml listing what was written. It
// returns the index.
func Write(dir, cluster string, docs []document.Document, singleFile bool) (Index, error) {
	idx := Index{Cluster: cluster, Total: len(docs)}

	groups := map[string][]document.Document{}
	if singleFile {
		groups[SingleFileName] = docs
	} else {
		for _, d := range docs {
			name := FileName(d.Kind())
			groups[name] = append(groups[name], d)
		}
	}
	names := make([]string, 0, len(groups))
	for n := range groups {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, name := range names {
		items := groups[name]
		if err := output.WriteFile(filepath.Join(dir, name), func(w io.Writer) error {
			return WriteManifest(w, items)
		}); err != nil {
			return Index{}, err
		}
		idx.Files = append(idx.Files, IndexEntry{Path: name, Kinds: kindsOf(items), Count: len(items)})
	}

	raw, err := yaml.Marshal(idx)
	if err != nil {
		return Index{}, fmt.Errorf("marshal index: %w", err)
	}
	err = output.WriteFile(filepath.Join(dir, IndexFileName), func(w io.Writer) error {
		_, err := w.Write(raw)
		return err
	})
	if err != nil {
		return Index{}, err
	}
	return idx, nil
}

func kindsOf(docs []document.Document) []string {
	seen := map[string]bool{}
	var kinds []string
	for _, d := range docs {
		k := d.Kind()
		if k == "" {
			k = "unknown"
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	sort.Strings(kinds)
	return kinds
}

// Summary renders counts per kind, e.g. "Cluster=1 Machine=3".
func Summary(docs []document.Document) string {
	counts := map[string]int{}
	for _, d := range docs {
		counts[d.Kind()]++
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}
