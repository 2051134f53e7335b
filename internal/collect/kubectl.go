package collect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"capi-inspector/internal/document"
	"github.com/go-logr/logr"
)

// DefaultTimeout bounds each kubectl invocation.
const DefaultTimeout = 30 * time.Second

// Runner executes a command and returns its stdout and stderr.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// ExecRunner resolves name on PATH and runs it with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err = cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Kubectl fetches resources with `kubectl get -o json`.
type Kubectl struct {
	Binary     string
	Kubeconfig string
	Context    string
	Timeout    time.Duration
	Run        Runner
}

// NewKubectl returns a fetcher for the kubectl on PATH. A missing binary
// surfaces as ErrUnavailable from each call.
func NewKubectl(kubeconfig, kubeContext string, timeout time.Duration) *Kubectl {
	return &Kubectl{
		Binary:     "kubectl",
		Kubeconfig: kubeconfig,
		Context:    kubeContext,
		Timeout:    timeout,
		Run:        ExecRunner,
	}
}

func (k *Kubectl) globalArgs() []string {
	var args []string
	if k.Kubeconfig != "" {
		args = append(args, "--kubeconfig", k.Kubeconfig)
	}
	if k.Context != "" {
		args = append(args, "--context", k.Context)
	}
	return args
}

// GetArgs builds the kubectl arguments for q.
func (k *Kubectl) GetArgs(q Query) []string {
	target := q.Resource
	if q.Name != "" {
		target += "/" + q.Name
	}
	args := []string{"get", target, "-o", "json"}
	switch {
	case q.AllNamespaces:
		args = append(args, "--all-namespaces")
	case q.Namespace != "":
		args = append(args, "-n", q.Namespace)
	}
	if q.Selector != "" {
		args = append(args, "-l", q.Selector)
	}
	return append(args, k.globalArgs()...)
}

func (k *Kubectl) run(ctx context.Context, args []string) ([]byte, error) {
	timeout := k.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	run := k.Run
	if run == nil {
		run = ExecRunner
	}
	logr.FromContextOrDiscard(ctx).V(1).Info("running kubectl", "args", strings.Join(args, " "))
	stdout, stderr, err := run(ctx, k.binary(), args...)
	if errors.Is(err, ErrUnavailable) {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("kubectl %s: timed out after %s", args[0], timeout)
	}
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if isNotFound(msg) {
			return nil, nil
		}
		return nil, fmt.Errorf("kubectl %s: %w: %s", strings.Join(args, " "), err, msg)
	}
	return stdout, nil
}

// isNotFound reports kubectl errors that mean the resource or its type
// does not exist on the server.
func isNotFound(stderr string) bool {
	return strings.Contains(stderr, "NotFound") ||
		strings.Contains(stderr, "the server doesn't have a resource type")
}

func (k *Kubectl) Get(ctx context.Context, q Query) ([]document.Document, error) {
	out, err := k.run(ctx, k.GetArgs(q))
	if err != nil || out == nil {
		return nil, err
	}
	docs, err := document.ParseJSON(out, "kubectl get "+q.String())
	if err != nil {
		return nil, fmt.Errorf("parse kubectl output: %w", err)
	}
	return docs, nil
}

func (k *Kubectl) APIResources(ctx context.Context, group string) ([]string, error) {
	args := append([]string{"api-resources", "--api-group=" + group, "-o", "name"}, k.globalArgs()...)
	out, err := k.run(ctx, args)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

func (k *Kubectl) binary() string {
	if k.Binary == "" {
		return "kubectl"
	}
	return k.Binary
}
