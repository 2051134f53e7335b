package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
	utiljson "k8s.io/apimachinery/pkg/util/json"
)

// ErrNotMapping is returned for documents whose root is not a mapping.
var ErrNotMapping = errors.New("document root is not a mapping")

// ParseError locates a decoding failure inside a stream.
type ParseError struct {
	Source string
	// Index is the 0-based position of the document in the stream.
	Index int
	Line  int
	Err   error
}

func (e *ParseError) Error() string {
	loc := e.Source
	if loc == "" {
		loc = "<input>"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s: document %d (line %d): %v", loc, e.Index+1, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: document %d: %v", loc, e.Index+1, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseYAML decodes a multi-document YAML stream. Empty documents are
// skipped. Documents whose root is not a mapping are reported and skipped.
// A syntax error ends decoding; the documents decoded before it are
// returned together with the error.
func ParseYAML(content []byte, source string) ([]Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	var (
		docs []Document
		errs []error
	)
	for index := 0; ; index++ {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			errs = append(errs, &ParseError{Source: source, Index: index, Line: syntaxLine(err), Err: err})
			break
		}
		if len(node.Content) == 0 {
			continue
		}
		root := node.Content[0]
		var raw any
		if err := root.Decode(&raw); err != nil {
			errs = append(errs, &ParseError{Source: source, Index: index, Line: root.Line, Err: err})
			continue
		}
		if raw == nil {
			continue
		}
		m, ok := raw.(map[string]any)
		if !ok {
			if mm, isAny := raw.(map[any]any); isAny {
				docs = append(docs, Document{root: FromInterface(mm), Source: source, Line: root.Line})
				continue
			}
			errs = append(errs, &ParseError{Source: source, Index: index, Line: root.Line, Err: ErrNotMapping})
			continue
		}
		docs = append(docs, Document{root: FromInterface(m), Source: source, Line: root.Line})
	}
	return docs, errors.Join(errs...)
}

// syntaxLine pulls the line number out of a yaml.v3 error message of the
// form "yaml: line 3: ...".
func syntaxLine(err error) int {
	msg := err.Error()
	i := strings.Index(msg, "line ")
	if i < 0 {
		return 0
	}
	n := 0
	for _, r := range msg[i+len("line "):] {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// ParseJSON decodes a single JSON object as produced by kubectl -o json.
// A list wrapper (kind ending in "List" with an items array) is split into
// one document per item.
func ParseJSON(content []byte, source string) ([]Document, error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var raw map[string]any
	if err := utiljson.Unmarshal(trimmed, &raw); err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}
	if raw == nil {
		return nil, nil
	}
	root := FromInterface(raw)
	kind, _ := root.Lookup("kind")
	kindName, _ := kind.AsString()
	items, hasItems := root.Get("items")
	if !hasItems || !strings.HasSuffix(kindName, "List") {
		return []Document{{root: root, Source: source}}, nil
	}
	list, _ := items.AsList()
	docs := make([]Document, 0, len(list))
	for _, item := range list {
		if !item.IsMap() {
			continue
		}
		docs = append(docs, Document{root: item, Source: source})
	}
	return docs, nil
}

// Parse picks the decoder from the content: JSON when it starts with '{',
// YAML otherwise.
func Parse(content []byte, source string) ([]Document, error) {
	if bytes.HasPrefix(bytes.TrimSpace(content), []byte("{")) {
		return ParseJSON(content, source)
	}
	return ParseYAML(content, source)
}
