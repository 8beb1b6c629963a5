package hummingbird

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// Registry maps component names to definitions.
//
// A registry is an ordinary value: build one at startup, populate it before
// the first hydration and hand it to the Hydrator. Tests build their own.
type Registry struct {
	mu     sync.RWMutex
	defs   map[string]Definition
	logger *slog.Logger

	// OnReplace is called when a registration overwrites an existing name.
	// The new definition is already in place when it runs.
	OnReplace func(name string, previous, next Definition)
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	o := newOptions(opts)
	return &Registry{
		defs:   make(map[string]Definition),
		logger: o.logger,
	}
}

// Register stores an untyped initializer under name. A later registration
// under the same name replaces this one.
func (reg *Registry) Register(name string, init InitFunc) {
	reg.Add(Func(name, init))
}

// Add registers definitions by their Name. Last write wins.
// Panics if a definition is nil or has an empty name.
func (reg *Registry) Add(defs ...Definition) {
	for _, def := range defs {
		if def == nil {
			panic("hummingbird: nil component definition")
		}
		if def.Name() == "" {
			panic("hummingbird: component definition with empty name")
		}
		reg.put(def)
	}
}

func (reg *Registry) put(def Definition) {
	name := def.Name()

	reg.mu.Lock()
	previous, exists := reg.defs[name]
	reg.defs[name] = def
	onReplace := reg.OnReplace
	reg.mu.Unlock()

	if !exists {
		return
	}
	reg.logger.LogAttrs(context.Background(), slog.LevelDebug, "component registration replaced",
		slog.String("component", name))
	if onReplace != nil {
		onReplace(name, previous, def)
	}
}

// Lookup returns the definition registered under name.
func (reg *Registry) Lookup(name string) (Definition, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	def, ok := reg.defs[name]
	return def, ok
}

// Names returns the registered names in sorted order.
func (reg *Registry) Names() []string {
	reg.mu.RLock()
	names := make([]string, 0, len(reg.defs))
	for name := range reg.defs {
		names = append(names, name)
	}
	reg.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Len returns the number of registered names.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.defs)
}
