package kube

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"capi-inspector/internal/collect"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
)

// pickKubeconfigPath chooses the kubeconfig file to load.
// Priority:
//  1. explicitPath (flag)
//  2. KUBECONFIG env (first existing entry if multiple)
//  3. empty string (caller decides next steps)
func pickKubeconfigPath(explicitPath string) string {
	if strings.TrimSpace(explicitPath) != "" {
		return explicitPath
	}

	env := strings.TrimSpace(os.Getenv("KUBECONFIG"))
	if env == "" {
		return ""
	}

	for _, p := range filepath.SplitList(env) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	// No existing entry found, return the raw env so errors are descriptive.
	return env
}

// pickContext prefers the flag value over KUBE_CONTEXT.
func pickContext(explicit string) string {
	if c := strings.TrimSpace(explicit); c != "" {
		return c
	}
	return strings.TrimSpace(os.Getenv("KUBE_CONTEXT"))
}

// LoadConfig returns a Kubernetes rest.Config.
// It explicitly loads kubeconfig from file when a path is provided (or KUBECONFIG env is set),
// so failures produce real parse errors instead of "no configuration provided".
func LoadConfig(kubeconfigPath, kubeContext string) (*rest.Config, error) {
	chosen := pickKubeconfigPath(kubeconfigPath)
	overrides := &clientcmd.ConfigOverrides{CurrentContext: pickContext(kubeContext)}

	if chosen != "" {
		abs := chosen
		if a, err := filepath.Abs(chosen); err == nil {
			abs = a
		}

		rawCfg, err := clientcmd.LoadFromFile(abs)
		if err != nil {
			return nil, fmt.Errorf("load kube config: read kubeconfig file (path=%q): %w", abs, err)
		}

		cfg, err := clientcmd.NewDefaultClientConfig(*rawCfg, overrides).ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("load kube config: kubeconfig (path=%q currentContext=%q context=%q): %w",
				abs, rawCfg.CurrentContext, overrides.CurrentContext, err)
		}
		return cfg, nil
	}

	// In-cluster only applies when no context was requested.
	if overrides.CurrentContext == "" {
		if cfg, err := rest.InClusterConfig(); err == nil {
			return cfg, nil
		}
	}

	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("load kube config: default rules: %w", err)
	}
	return cfg, nil
}

// NewAPIFetcher builds a dynamic-client fetcher whose REST mapper is backed
// by cached discovery. A positive timeout bounds every request.
func NewAPIFetcher(kubeconfigPath, kubeContext string, timeout time.Duration) (*collect.API, error) {
	cfg, err := LoadConfig(kubeconfigPath, kubeContext)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		cfg.Timeout = timeout
	}

	dyn, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("create dynamic client: %w", err)
	}
	disc, err := discovery.NewDiscoveryClientForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("create discovery client: %w", err)
	}
	cached := memory.NewMemCacheClient(disc)

	return &collect.API{
		Dynamic:   dyn,
		Discovery: cached,
		Mapper:    restmapper.NewDeferredDiscoveryRESTMapper(cached),
	}, nil
}
