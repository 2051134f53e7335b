package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"capi-inspector/internal/collect"
	"capi-inspector/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	code   int
	stdout string
	stderr string
}

// fakeFetcher serves canned documents per resource, filtered by name.
type fakeFetcher struct {
	docs    map[string][]document.Document
	queries []collect.Query
}

func (f *fakeFetcher) Get(_ context.Context, q collect.Query) ([]document.Document, error) {
	f.queries = append(f.queries, q)
	var out []document.Document
	for _, d := range f.docs[q.Resource] {
		if q.Name == "" || d.Name() == q.Name {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeFetcher) APIResources(context.Context, string) ([]string, error) {
	return nil, nil
}

func execute(t *testing.T, f collect.Fetcher, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	env := &Env{
		Stdin:   strings.NewReader(""),
		Stdout:  &stdout,
		Stderr:  &stderr,
		Fetcher: f,
		Now:     func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
	code := Execute(context.Background(), env, args)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func parseDocs(t *testing.T, content string) []document.Document {
	t.Helper()
	docs, err := document.ParseYAML([]byte(content), "fixture.yaml")
	require.NoError(t, err)
	return docs
}

const validCluster = `apiVersion: cluster.x-k8s.io/v1beta1
kind: Cluster
metadata:
  name: prod
  namespace: fleet
spec:
  infrastructureRef:
    apiVersion: infrastructure.cluster.x-k8s.io/v1beta1
    kind: AWSCluster
    name: prod
  controlPlaneRef:
    apiVersion: controlplane.cluster.x-k8s.io/v1beta1
    kind: KubeadmControlPlane
    name: prod-cp
`

func TestLintCleanManifest(t *testing.T) {
	res := execute(t, nil, "lint", writeFile(t, "cluster.yaml", validCluster))
	assert.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "lint: ")
	assert.Contains(t, res.stdout, "No findings.")
}

func TestLintStrictFailsOnWarnings(t *testing.T) {
	path := writeFile(t, "creds.yaml", validCluster+"  password: hunter2\n")

	res := execute(t, nil, "lint", path)
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, "Possible hardcoded credential detected")

	res = execute(t, nil, "lint", "--strict", path)
	assert.Equal(t, 1, res.code)
}

func TestLintReportsParseErrorsAndContinues(t *testing.T) {
	bad := writeFile(t, "bad.yaml", "kind: [unclosed\n")
	good := writeFile(t, "good.yaml", validCluster)

	res := execute(t, nil, "lint", "--format", "json", bad, good)
	assert.Equal(t, 1, res.code)

	var out struct {
		Findings []struct {
			ID string `json:"id"`
		} `json:"findings"`
		Summary struct {
			Errors int `json:"errors"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	require.NotEmpty(t, out.Findings)
	assert.Equal(t, "PARSE_ERROR", out.Findings[0].ID)
	assert.Equal(t, 1, out.Summary.Errors)
}

func TestUsageErrors(t *testing.T) {
	res := execute(t, nil, "lint")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Error:")

	res = execute(t, nil, "lint", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, 1, res.code)

	res = execute(t, nil, "lint", "--format", "xml", writeFile(t, "c.yaml", validCluster))
	assert.Equal(t, 1, res.code)
	assert.Empty(t, res.stdout)

	res = execute(t, nil, "--backend", "grpc", "audit")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "--backend")

	res = execute(t, nil, "export")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "--all is required")
}

func TestValidate(t *testing.T) {
	broken := strings.Replace(validCluster, "    kind: KubeadmControlPlane\n", "", 1)
	res := execute(t, nil, "validate", writeFile(t, "cluster.yaml", broken))
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stdout, "validate: ")
	assert.Contains(t, res.stdout, "ERROR (")

	res = execute(t, nil, "validate", writeFile(t, "cluster.yaml", validCluster))
	assert.Equal(t, 0, res.code, res.stdout)
}

func TestChecksSelectFamilies(t *testing.T) {
	machine := `apiVersion: cluster.x-k8s.io/v1beta1
kind: Machine
metadata:
  name: m
  namespace: fleet
spec:
  clusterName: prod
  bootstrap:
    dataSecretName: m-bootstrap
  infrastructureRef:
    kind: DockerMachine
    name: m
  password: hunter2
`
	path := writeFile(t, "machine.yaml", machine)

	res := execute(t, nil, "validate", "--format", "csv", path)
	assert.Equal(t, 0, res.code, res.stdout)
	assert.NotContains(t, res.stdout, "LINT_HARDCODED_CREDENTIAL")

	res = execute(t, nil, "validate", "--checks", "schema,lint,schema", "--format", "csv", path)
	assert.Equal(t, 0, res.code, res.stdout)
	assert.Equal(t, 1, strings.Count(res.stdout, "LINT_HARDCODED_CREDENTIAL"))

	res = execute(t, nil, "lint", "--checks", "migration", "--format", "csv", path)
	assert.NotContains(t, res.stdout, "LINT_HARDCODED_CREDENTIAL")

	res = execute(t, nil, "lint", "--checks", "style", path)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, `unknown check family "style"`)
	assert.Empty(t, res.stdout)
}

func TestMigrateFailsOnWarnings(t *testing.T) {
	topo := validCluster + "  topology:\n    class: quick-start\n    version: v1.30.0\n    rolloutAfter: \"2025-01-01T00:00:00Z\"\n"
	res := execute(t, nil, "migrate", writeFile(t, "cluster.yaml", topo))
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stdout, "spec.topology.rolloutAfter")
	assert.Contains(t, res.stdout, "Remove this field")
}

func TestReportFileAndCompare(t *testing.T) {
	dir := t.TempDir()
	prev := filepath.Join(dir, "prev.json")
	path := writeFile(t, "creds.yaml", validCluster+"  password: hunter2\n")

	res := execute(t, nil, "lint", "--format", "json", "-o", prev, path)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Empty(t, res.stdout)
	_, err := os.Stat(prev)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(validCluster), 0o644))
	res = execute(t, nil, "lint", "--compare", prev, path)
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, "0 new, 1 resolved")
}

func TestMetricsFile(t *testing.T) {
	metrics := filepath.Join(t.TempDir(), "capi.prom")
	res := execute(t, nil, "--metrics-file", metrics, "lint", writeFile(t, "cluster.yaml", validCluster))
	require.Equal(t, 0, res.code, res.stderr)

	raw, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `capi_inspect_exit_code{command="lint"} 0`)
	assert.Contains(t, string(raw), `capi_inspect_documents{command="lint"} 1`)
}

const bootstrapCRD = `apiVersion: apiextensions.k8s.io/v1
kind: CustomResourceDefinition
metadata:
  name: fooconfigs.bootstrap.cluster.x-k8s.io
spec:
  group: bootstrap.cluster.x-k8s.io
  names:
    kind: FooConfig
  versions:
  - name: v1beta1
    served: true
    schema:
      openAPIV3Schema:
        type: object
        properties:
          spec:
            type: object
          status:
            type: object
            properties:
              dataSecretName:
                type: string
`

func TestContractFromFiles(t *testing.T) {
	res := execute(t, nil, "contract", writeFile(t, "crd.yaml", bootstrapCRD))
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stdout, "fooconfigs.bootstrap.cluster.x-k8s.io [foo, bootstrap]: NON-COMPLIANT (1 error(s))")
	assert.Contains(t, res.stdout, "Missing required status field: ready")

	res = execute(t, nil, "contract", "--provider", "aws", writeFile(t, "crd.yaml", bootstrapCRD))
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, "No provider CRDs found.")
}

func TestContractFromCluster(t *testing.T) {
	fixed := strings.Replace(bootstrapCRD, "              dataSecretName:\n",
		"              ready:\n                type: boolean\n              dataSecretName:\n", 1)
	f := &fakeFetcher{docs: map[string][]document.Document{collect.CRDs: parseDocs(t, fixed)}}
	res := execute(t, f, "contract")
	assert.Equal(t, 0, res.code, res.stdout)
	assert.Contains(t, res.stdout, ": COMPLIANT")
	require.Len(t, f.queries, 1)
	assert.Equal(t, collect.CRDs, f.queries[0].Resource)
}

const securedCluster = `apiVersion: cluster.x-k8s.io/v1beta1
kind: Cluster
metadata:
  name: prod
  namespace: fleet
spec:
  clusterNetwork:
    pods:
      cidrBlocks: [192.168.0.0/16]
  topology:
    class: quick-start
    version: v1.30.0
    controlPlane:
      replicas: 3
    variables:
    - name: podSecurityStandard
      value:
        enforce: restricted
        audit: restricted
    - name: cni
      value: calico
`

func TestAuditOffline(t *testing.T) {
	res := execute(t, nil, "audit", "-f", writeFile(t, "cluster.yaml", securedCluster), "-n", "fleet", "prod")
	assert.Equal(t, 0, res.code, res.stdout)
	assert.Contains(t, res.stdout, "audit: fleet/prod")

	privileged := strings.Replace(securedCluster, "enforce: restricted", "enforce: privileged", 1)
	res = execute(t, nil, "audit", "-f", writeFile(t, "cluster.yaml", privileged), "-A")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stdout, "PSS enforce level is 'privileged'")
}

const classicCluster = `apiVersion: cluster.x-k8s.io/v1beta1
kind: Cluster
metadata:
  name: prod
  namespace: default
spec:
  clusterNetwork:
    pods:
      cidrBlocks: [192.168.0.0/16]
  controlPlaneRef:
    kind: KubeadmControlPlane
    name: prod-cp
---
apiVersion: controlplane.cluster.x-k8s.io/v1beta1
kind: KubeadmControlPlane
metadata:
  name: prod-cp
  ownerReferences:
  - kind: Cluster
    name: prod
spec:
  replicas: 1
  kubeadmConfigSpec:
    clusterConfiguration:
      apiServer:
        extraArgs:
          authorization-mode: Node,RBAC
`

func TestAuditOfflineChecksControlPlaneReplicas(t *testing.T) {
	path := writeFile(t, "cluster.yaml", classicCluster)

	res := execute(t, nil, "audit", "-f", path, "--format", "json", "prod")
	assert.Equal(t, 0, res.code, res.stdout)
	var out struct {
		Findings []struct {
			ID         string `json:"id"`
			Severity   string `json:"severity"`
			ResourceID string `json:"resourceId"`
		} `json:"findings"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	var replicas []string
	for _, f := range out.Findings {
		if f.ID == "AVAIL_CP_REPLICAS" {
			replicas = append(replicas, f.Severity+" "+f.ResourceID)
		}
	}
	assert.Equal(t, []string{"medium KubeadmControlPlane/default/prod-cp"}, replicas)

	res = execute(t, nil, "audit", "-f", path, "--strict", "prod")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stdout, "Control plane has 1 replica(s) (recommend 3 for HA)")
}

func TestAuditLiveQueries(t *testing.T) {
	f := &fakeFetcher{docs: map[string][]document.Document{collect.Clusters: parseDocs(t, securedCluster)}}
	res := execute(t, f, "audit", "prod")
	assert.Equal(t, 0, res.code, res.stderr)

	require.Len(t, f.queries, 4)
	assert.Equal(t, collect.Query{Resource: collect.Clusters, Name: "prod", Namespace: "default"}, f.queries[0])
	assert.Equal(t, collect.Secrets, f.queries[3].Resource)

	f.queries = nil
	execute(t, f, "audit")
	assert.True(t, f.queries[0].AllNamespaces)
}

const failingCluster = `apiVersion: cluster.x-k8s.io/v1beta1
kind: Cluster
metadata:
  name: prod
  namespace: default
spec:
  controlPlaneRef:
    kind: AWSManagedControlPlane
    name: prod-cp
status:
  conditions:
  - type: Ready
    status: "False"
    reason: ProvisioningFailed
    message: cloud quota exceeded
`

func TestHealthExitCodes(t *testing.T) {
	f := &fakeFetcher{docs: map[string][]document.Document{collect.Clusters: parseDocs(t, failingCluster)}}
	res := execute(t, f, "health", "prod")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stdout, "health: default/prod")
	assert.Contains(t, res.stdout, "Condition Ready = False, reason ProvisioningFailed: cloud quota exceeded")

	healthy := strings.Replace(failingCluster, `status: "False"`, `status: "True"`, 1)
	healthy = strings.Replace(healthy, "reason: ProvisioningFailed", "reason: Ready", 1)
	f = &fakeFetcher{docs: map[string][]document.Document{collect.Clusters: parseDocs(t, healthy)}}
	res = execute(t, f, "health", "prod")
	assert.Equal(t, 0, res.code, res.stdout)

	res = execute(t, &fakeFetcher{}, "health", "missing")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stdout, "Cluster not found")
}

func TestConditions(t *testing.T) {
	path := writeFile(t, "cluster.yaml", failingCluster)

	res := execute(t, nil, "conditions", "-f", path)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stdout, "RESOURCE")
	assert.Contains(t, res.stdout, "ProvisioningFailed")
	assert.Contains(t, res.stdout, "Conditions: 1 total, 0 healthy, 1 unhealthy")

	res = execute(t, nil, "conditions", "-f", path, "--format", "json")
	assert.Equal(t, 1, res.code)
	var summary struct {
		UnhealthyTypes []string `json:"unhealthyTypes"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &summary))
	assert.Equal(t, []string{"Ready"}, summary.UnhealthyTypes)

	res = execute(t, nil, "conditions", "-f", path, "--format", "csv")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stdout, "CONDITION_UNHEALTHY")
}

func TestExport(t *testing.T) {
	secret := parseDocs(t, `apiVersion: v1
kind: Secret
metadata:
  name: prod-kubeconfig
  namespace: fleet
  labels:
    cluster.x-k8s.io/cluster-name: prod
data:
  value: c2VjcmV0
`)
	f := &fakeFetcher{docs: map[string][]document.Document{
		collect.Clusters: parseDocs(t, validCluster),
		collect.Secrets:  secret,
	}}
	dir := filepath.Join(t.TempDir(), "state")
	res := execute(t, f, "export", "prod", "-o", dir, "--include-refs=false")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Exported 2 resources to "+dir)

	raw, err := os.ReadFile(filepath.Join(dir, "secrets.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "REDACTED")
	assert.NotContains(t, string(raw), "c2VjcmV0")
	_, err = os.Stat(filepath.Join(dir, "index.yaml"))
	assert.NoError(t, err)

	res = execute(t, &fakeFetcher{}, "export", "--all", "-o", dir)
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, "No resources found to export.")
}

func TestVersions(t *testing.T) {
	res := execute(t, nil, "versions", "--from", "1.8.0", "--to", "v1.9.0", "--checklist")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "CAPI Version Comparison: v1.8.0 -> v1.9.0")
	assert.Contains(t, res.stdout, "MIGRATION CHECKLIST")

	res = execute(t, nil, "versions", "--list", "--format", "json")
	require.Equal(t, 0, res.code)
	var releases []map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &releases))
	assert.Len(t, releases, 7)

	res = execute(t, nil, "versions", "--from", "v1.8.0")
	assert.Equal(t, 1, res.code)
}
