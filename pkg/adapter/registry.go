package adapter

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/dbpilot/pkg/core"
)

// Factory builds an unconnected adapter.
type Factory func(*slog.Logger) Adapter

var (
	registryMu sync.RWMutex
	factories  = map[string]Factory{}
	aliases    = map[string]string{}
)

// Register makes an adapter type available under name and any aliases.
// Adapter packages call it from init; names are case-insensitive.
func Register(name string, factory Factory, alias ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	name = strings.ToLower(name)
	factories[name] = factory
	for _, a := range alias {
		aliases[strings.ToLower(a)] = name
	}
}

// Canonical resolves an adapter type or alias to its registered name.
func Canonical(name string) (string, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return canonical(name)
}

func canonical(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if target, ok := aliases[name]; ok {
		name = target
	}
	_, ok := factories[name]
	return name, ok
}

// Get returns the factory registered for name or one of its aliases.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	name, ok := canonical(name)
	if !ok {
		return nil, false
	}
	return factories[name], true
}

// NewAdapter builds the adapter named by cfg.Type. A nil logger discards output.
func NewAdapter(cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	if strings.TrimSpace(cfg.Type) == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}
	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	return factory(logger), nil
}

// ListAdapters returns the registered canonical names, sorted.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether name or alias resolves to an adapter.
func IsRegistered(name string) bool {
	_, ok := Canonical(name)
	return ok
}

// UnknownAdapterError is returned when an unknown adapter type is requested.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q (available: %s); check relational.type in dbpilot.yaml",
		e.Type, strings.Join(e.Available, ", "))
}

// DisplayName returns the user-facing engine name for an adapter type, or
// the type itself when it is not registered.
func DisplayName(typ string) string {
	factory, ok := Get(typ)
	if !ok {
		return typ
	}
	if a := factory(nil); a != nil {
		if d := a.Dialect(); d != nil && d.DisplayName != "" {
			return d.DisplayName
		}
	}
	return typ
}
