package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory opens a backend. Implementations must verify connectivity (ping)
// before returning so callers can classify the failure.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a backend available under kind. Registering the same kind
// twice replaces the earlier factory.
func Register(kind string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(kind)] = f
}

// New opens the backend named by cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	registryMu.RLock()
	f, ok := registry[strings.ToLower(cfg.Kind)]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported kind %q (registered: %s)", cfg.Kind, strings.Join(ListKinds(), ", "))
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, fmt.Errorf("storage: %s: table must not be empty", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered backend names, sorted.
func ListKinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
