package manifest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const cluster = `apiVersion: cluster.x-k8s.io/v1beta1
kind: Cluster
metadata:
  name: prod
`

func TestFind(t *testing.T) {
	dir := t.TempDir()
	b := write(t, dir, "b.yaml", cluster)
	a := write(t, dir, "nested/a.yml", cluster)
	write(t, dir, "README.md", "# docs")
	write(t, dir, ".git/config.yaml", cluster)
	notes := write(t, t.TempDir(), "notes.txt", cluster)

	got, err := Find(dir, notes, Stdin)
	require.NoError(t, err)
	assert.Equal(t, []string{b, a, notes, Stdin}, got)

	_, err = Find(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	good := write(t, dir, "good.yaml", cluster+"---\n"+strings.Replace(cluster, "prod", "staging", 1))
	bad := write(t, dir, "bad.yaml", cluster+"---\nkind: [unclosed\n")

	set, err := Load(context.Background(), nil, good, bad)
	require.NoError(t, err)
	require.Len(t, set.Files, 2)
	var names []string
	for _, d := range set.Documents {
		names = append(names, d.Name())
	}
	assert.Equal(t, []string{"prod", "staging", "prod"}, names)

	require.Len(t, set.Diagnostics, 1)
	diag := set.Diagnostics[0]
	assert.Equal(t, "PARSE_ERROR", diag.ID)
	assert.Equal(t, bad, diag.Source)
	assert.Equal(t, bad+"#2", diag.ResourceID)
}

func TestLoadStdin(t *testing.T) {
	set, err := Load(context.Background(), strings.NewReader(`{"apiVersion":"v1","kind":"List","items":[{"kind":"Machine","metadata":{"name":"m"}}]}`), Stdin)
	require.NoError(t, err)
	require.Len(t, set.Documents, 1)
	assert.Equal(t, "Machine", set.Documents[0].Kind())
	assert.Empty(t, set.Diagnostics)

	set, err = Load(context.Background(), nil, Stdin)
	require.NoError(t, err)
	require.Len(t, set.Diagnostics, 1)
	assert.Equal(t, "READ_ERROR", set.Diagnostics[0].ID)
}

func TestParseFindings(t *testing.T) {
	assert.Empty(t, ParseFindings("x.yaml", nil))
}
