package kube

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kubeconfig = `apiVersion: v1
kind: Config
current-context: mgmt
clusters:
- name: mgmt
  cluster:
    server: https://mgmt.example.com:6443
- name: edge
  cluster:
    server: https://edge.example.com:6443
contexts:
- name: mgmt
  context:
    cluster: mgmt
    user: admin
- name: edge
  context:
    cluster: edge
    user: admin
users:
- name: admin
  user:
    token: abc
`

func writeKubeconfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(kubeconfig), 0o600))
	return path
}

func TestPickKubeconfigPath(t *testing.T) {
	existing := writeKubeconfig(t)
	missing := filepath.Join(t.TempDir(), "nope")

	assert.Equal(t, "/explicit", pickKubeconfigPath("/explicit"))

	t.Setenv("KUBECONFIG", missing+string(filepath.ListSeparator)+existing)
	assert.Equal(t, existing, pickKubeconfigPath(""))

	t.Setenv("KUBECONFIG", missing)
	assert.Equal(t, missing, pickKubeconfigPath(""))

	t.Setenv("KUBECONFIG", "")
	assert.Equal(t, "", pickKubeconfigPath(""))
}

func TestLoadConfigContextOverride(t *testing.T) {
	path := writeKubeconfig(t)
	t.Setenv("KUBE_CONTEXT", "")

	cfg, err := LoadConfig(path, "")
	require.NoError(t, err)
	assert.Equal(t, "https://mgmt.example.com:6443", cfg.Host)

	cfg, err = LoadConfig(path, "edge")
	require.NoError(t, err)
	assert.Equal(t, "https://edge.example.com:6443", cfg.Host)

	t.Setenv("KUBE_CONTEXT", "edge")
	cfg, err = LoadConfig(path, "")
	require.NoError(t, err)
	assert.Equal(t, "https://edge.example.com:6443", cfg.Host)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing"), "")
	assert.ErrorContains(t, err, "read kubeconfig file")

	_, err = LoadConfig(writeKubeconfig(t), "nonexistent")
	assert.Error(t, err)
}

func TestNewAPIFetcher(t *testing.T) {
	t.Setenv("KUBE_CONTEXT", "")
	f, err := NewAPIFetcher(writeKubeconfig(t), "", 5*time.Second)
	require.NoError(t, err)
	assert.NotNil(t, f.Dynamic)
	assert.NotNil(t, f.Mapper)
}
