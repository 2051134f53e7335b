// Package manifest finds and loads manifest files for offline analysis.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"capi-inspector/internal/document"
	"capi-inspector/internal/model"
	"github.com/go-logr/logr"
)

// Stdin is the path that reads the manifest from standard input.
const Stdin = "-"

// File is one loaded input.
type File struct {
	Path    string
	Content []byte
}

// Set is everything loaded from the inputs. Inputs that could not be read
// or parsed show up as Diagnostics rather than failing the load.
type Set struct {
	Files       []File
	Documents   []document.Document
	Diagnostics []model.Finding
}

func isManifest(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// Find expands directories into the manifest files below them, sorted.
// Explicit files are kept whatever their extension. A path that does not
// exist is an error.
func Find(paths ...string) ([]string, error) {
	var out []string
	for _, p := range paths {
		if p == Stdin {
			out = append(out, p)
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("manifest path: %w", err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if isManifest(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}

// Load reads and parses every path. stdin backs the "-" path.
func Load(ctx context.Context, stdin io.Reader, paths ...string) (*Set, error) {
	files, err := Find(paths...)
	if err != nil {
		return nil, err
	}
	logger := logr.FromContextOrDiscard(ctx)
	set := &Set{}
	for _, path := range files {
		content, err := read(stdin, path)
		if err != nil {
			logger.Error(err, "failed to read manifest", "path", path)
			set.Diagnostics = append(set.Diagnostics, model.Finding{
				ID:         "READ_ERROR",
				Severity:   model.SeverityError,
				Category:   "Input",
				ResourceID: path,
				Message:    err.Error(),
				Source:     path,
			})
			continue
		}
		set.Files = append(set.Files, File{Path: path, Content: content})

		docs, err := document.Parse(content, path)
		set.Documents = append(set.Documents, docs...)
		set.Diagnostics = append(set.Diagnostics, ParseFindings(path, err)...)
		logger.V(1).Info("loaded manifest", "path", path, "documents", len(docs))
	}
	return set, nil
}

func read(stdin io.Reader, path string) ([]byte, error) {
	if path != Stdin {
		return os.ReadFile(path)
	}
	if stdin == nil {
		return nil, errors.New("no standard input")
	}
	return io.ReadAll(stdin)
}

// ParseFindings turns a parse error, possibly joined, into one diagnostic
// finding per failure.
func ParseFindings(source string, err error) []model.Finding {
	var out []model.Finding
	for _, e := range split(err) {
		f := model.Finding{
			ID:             "PARSE_ERROR",
			Severity:       model.SeverityError,
			Category:       "Input",
			ResourceID:     source,
			Message:        e.Error(),
			Recommendation: "Fix the syntax so the document can be analyzed",
			Source:         source,
		}
		var pe *document.ParseError
		if errors.As(e, &pe) {
			f.Line = pe.Line
			f.Message = pe.Err.Error()
			f.ResourceID = fmt.Sprintf("%s#%d", source, pe.Index+1)
		}
		out = append(out, f)
	}
	return out
}

func split(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, split(e)...)
		}
		return out
	}
	return []error{err}
}
