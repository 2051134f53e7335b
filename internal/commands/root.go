// Package commands implements the capi-inspect command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"capi-inspector/internal/collect"
	"capi-inspector/internal/kube"
	"capi-inspector/internal/logging"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
)

const (
	BackendKubectl = "kubectl"
	BackendAPI     = "api"
)

// Options are the global flags shared by every subcommand.
type Options struct {
	Kubeconfig  string
	Context     string
	Backend     string
	Timeout     time.Duration
	Verbose     bool
	LogFormat   string
	MetricsFile string
}

// Env is the process environment a command runs in. Fetcher, when set,
// replaces the cluster backend selected by flags.
type Env struct {
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Fetcher collect.Fetcher
	Now     func() time.Time
}

// OSEnv wires the real process streams.
func OSEnv() *Env {
	return &Env{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr, Now: time.Now}
}

func (e *Env) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// fetcher returns the cluster backend chosen by --backend.
func (o *Options) fetcher(env *Env) (collect.Fetcher, error) {
	if env.Fetcher != nil {
		return env.Fetcher, nil
	}
	switch o.Backend {
	case BackendAPI:
		f, err := kube.NewAPIFetcher(o.Kubeconfig, o.Context, o.Timeout)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", collect.ErrUnavailable, err)
		}
		return f, nil
	default:
		return collect.NewKubectl(o.Kubeconfig, o.Context, o.Timeout), nil
	}
}

func NewRootCommand(env *Env) *cobra.Command {
	opts := &Options{}
	root := &cobra.Command{
		Use:   "capi-inspect",
		Short: "Rule-based analysis of Cluster API resources",
		Long: `capi-inspect lints, validates and audits Cluster API manifests and live
management clusters. Findings are reported with a severity and category,
and the exit code reflects what was found.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.Backend {
			case BackendKubectl, BackendAPI:
			default:
				return usageError(fmt.Errorf("--backend must be %q or %q, got %q", BackendKubectl, BackendAPI, opts.Backend))
			}
			logger, err := logging.New(env.Stderr, logging.Options{Verbose: opts.Verbose, Format: opts.LogFormat})
			if err != nil {
				return usageError(err)
			}
			cmd.SetContext(logr.NewContext(cmd.Context(), logger))
			return nil
		},
	}
	root.SetIn(env.Stdin)
	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.Kubeconfig, "kubeconfig", "", "Path to kubeconfig file (default: $KUBECONFIG or ~/.kube/config)")
	flags.StringVar(&opts.Context, "context", "", "Kubernetes context to use (default: $KUBE_CONTEXT or current context)")
	flags.StringVar(&opts.Backend, "backend", BackendKubectl, "How to read the cluster: kubectl or api")
	flags.DurationVar(&opts.Timeout, "timeout", collect.DefaultTimeout, "Timeout for each cluster request")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&opts.LogFormat, "log-format", logging.FormatConsole, "Log format: console or json")
	flags.StringVar(&opts.MetricsFile, "metrics-file", "", "Write run metrics to this node-exporter textfile")

	root.AddCommand(
		newLintCommand(env, opts),
		newValidateCommand(env, opts),
		newMigrateCommand(env, opts),
		newContractCommand(env, opts),
		newAuditCommand(env, opts),
		newHealthCommand(env, opts),
		newConditionsCommand(env, opts),
		newExportCommand(env, opts),
		newVersionsCommand(env),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, env *Env, args []string) int {
	root := NewRootCommand(env)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintf(env.Stderr, "Error: %v\n", exitErr.Err)
		}
		return exitErr.Code
	}
	fmt.Fprintf(env.Stderr, "Error: %v\n", err)
	if strings.HasPrefix(err.Error(), "unknown command") || strings.Contains(err.Error(), "flag") {
		fmt.Fprintf(env.Stderr, "Run '%s --help' for usage.\n", root.Name())
	}
	return 1
}
