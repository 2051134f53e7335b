// Package output renders reports as text, JSON, Markdown, CSV or HTML and
// writes them to files.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"capi-inspector/internal/model"
)

type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatHTML     Format = "html"
)

var Formats = []Format{FormatText, FormatJSON, FormatMarkdown, FormatCSV, FormatHTML}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", "txt":
		return FormatText, nil
	case "md":
		return FormatMarkdown, nil
	case FormatText, FormatJSON, FormatMarkdown, FormatCSV, FormatHTML:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want one of text, json, markdown, csv, html)", s)
}

// Render writes r to w in the given format.
func Render(w io.Writer, format Format, r *model.Report) error {
	switch format {
	case FormatText, "":
		return WriteText(w, r)
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatMarkdown:
		return WriteMarkdown(w, r)
	case FormatCSV:
		return WriteCSV(w, r)
	case FormatHTML:
		return WriteHTML(w, r)
	}
	return fmt.Errorf("unknown format %q", format)
}

// WriteReport renders r into path. CSV files get a UTF-8 BOM so they open
// cleanly in Excel.
func WriteReport(path string, format Format, r *model.Report) error {
	return WriteFile(path, func(w io.Writer) error {
		if format == FormatCSV {
			if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
				return err
			}
		}
		return Render(w, format, r)
	})
}

// WriteFile writes path all-or-nothing: content goes to a temp file in the
// same directory, which is synced and renamed over path.
func WriteFile(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
