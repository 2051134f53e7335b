package analyze

import (
	"testing"

	"capi-inspector/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseAll(t *testing.T, src string) []document.Document {
	t.Helper()
	docs, err := document.ParseYAML([]byte(src), "state.yaml")
	require.NoError(t, err)
	return docs
}

const auditState = `
apiVersion: cluster.x-k8s.io/v1beta1
kind: Cluster
metadata:
  name: prod
  namespace: fleet
spec:
  clusterNetwork:
    pods:
      cidrBlocks: [10.0.0.0/16]
---
apiVersion: controlplane.cluster.x-k8s.io/v1beta1
kind: KubeadmControlPlane
metadata:
  name: prod-cp
  namespace: fleet
  ownerReferences:
  - kind: Cluster
    name: prod
spec:
  replicas: 1
---
apiVersion: cluster.x-k8s.io/v1beta1
kind: Machine
metadata:
  name: prod-m1
  namespace: fleet
  labels:
    cluster.x-k8s.io/cluster-name: prod
spec:
  bootstrap:
    dataSecretName: prod-m1-bootstrap
---
apiVersion: v1
kind: Secret
metadata:
  name: prod-kubeconfig
  namespace: fleet
---
apiVersion: v1
kind: Secret
metadata:
  name: prod-kubeconfig
  namespace: other
---
apiVersion: cluster.x-k8s.io/v1beta1
kind: Machine
metadata:
  name: staging-m1
  namespace: fleet
  labels:
    cluster.x-k8s.io/cluster-name: staging
`

func TestCorrelate(t *testing.T) {
	docs := parseAll(t, auditState)
	rel := Correlate(docs[0], docs[1:])
	require.Len(t, rel.ControlPlanes, 1)
	assert.Equal(t, "prod-cp", rel.ControlPlanes[0].Name())
	require.Len(t, rel.Machines, 1)
	assert.Equal(t, "prod-m1", rel.Machines[0].Name())
	require.Len(t, rel.Secrets, 1)
	assert.Equal(t, "fleet", rel.Secrets[0].Namespace())
}

func TestAuditClusterUsesControlPlaneReplicas(t *testing.T) {
	docs := parseAll(t, auditState)
	report := AuditCluster(registry(t), docs[0], Correlate(docs[0], docs[1:]))

	assert.Equal(t, "fleet/prod", report.Subject)
	assert.Equal(t, "audit", report.Command)
	got := report.Findings
	require.Len(t, withID(got, "AVAIL_CP_REPLICAS"), 1)
	assert.Equal(t, "KubeadmControlPlane/fleet/prod-cp", withID(got, "AVAIL_CP_REPLICAS")[0].ResourceID)
	assert.Len(t, withID(got, "SEC_ORPHANED_KUBECONFIG"), 1)
	assert.Empty(t, withID(got, "SEC_BOOTSTRAP_SECRET"))
	assert.Len(t, withID(got, "SEC_PSS_MISSING"), 1)
}

func TestAuditTopologyClusterSkipsControlPlaneReplicas(t *testing.T) {
	docs := parseAll(t, `
kind: Cluster
metadata:
  name: prod
spec:
  topology:
    controlPlane:
      replicas: 3
---
kind: KubeadmControlPlane
metadata:
  name: prod-cp
  ownerReferences:
  - name: prod
spec:
  replicas: 1
`)
	report := AuditCluster(registry(t), docs[0], Correlate(docs[0], docs[1:]))
	assert.Equal(t, "default/prod", report.Subject)
	assert.Empty(t, withID(report.Findings, "AVAIL_CP_REPLICAS"))
	assert.NotEmpty(t, withID(report.Findings, "SEC_RBAC"))
}

func TestCorrelateTreatsMissingNamespaceAsDefault(t *testing.T) {
	docs := parseAll(t, `
kind: Cluster
metadata:
  name: prod
  namespace: default
---
kind: KubeadmControlPlane
metadata:
  name: prod-cp
  ownerReferences:
  - kind: Cluster
    name: prod
---
kind: Machine
metadata:
  name: prod-m1
  labels:
    cluster.x-k8s.io/cluster-name: prod
---
kind: Secret
metadata:
  name: prod-kubeconfig
---
kind: Secret
metadata:
  name: prod-ca
  namespace: fleet
`)
	rel := Correlate(docs[0], docs[1:])
	assert.Len(t, rel.ControlPlanes, 1)
	assert.Len(t, rel.Machines, 1)
	require.Len(t, rel.Secrets, 1)
	assert.Equal(t, "prod-kubeconfig", rel.Secrets[0].Name())

	// The reverse: an unnamespaced Cluster picks up objects in "default".
	cluster := parseAll(t, "kind: Cluster\nmetadata:\n  name: prod\n")[0]
	assert.Len(t, Correlate(cluster, docs[1:2]).ControlPlanes, 1)
	assert.Len(t, Correlate(cluster, docs[:1]).ControlPlanes, 0)
}
