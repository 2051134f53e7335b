package analyze

import (
	"testing"

	"capi-inspector/internal/document"
	"capi-inspector/internal/model"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) document.Document {
	t.Helper()
	docs, err := document.ParseYAML([]byte(src), "test.yaml")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	return docs[0]
}

func registry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewDefault(Options{})
	require.NoError(t, err)
	return r
}

func ids(findings []model.Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.ID)
	}
	return out
}

func withID(findings []model.Finding, id string) []model.Finding {
	var out []model.Finding
	for _, f := range findings {
		if f.ID == id {
			out = append(out, f)
		}
	}
	return out
}
