// Package module implements module resolution, loading and caching for
// `use` forms (spec.md §6.9): a Registry dispatches to an ordered list of
// Loaders, caches the result by module name, and detects import cycles by
// tracking the chain of modules currently mid-load — the same shape as
// GlyphLang's pkg/interpreter.ModuleResolver, adapted from a file-path
// cache keyed by resolved path to a logical-name cache keyed by the
// module name a `use` form names, and from a single file-based resolver
// to an ordered chain of Loaders (builtin modules first, then the
// filesystem).
package module

import (
	"sync"

	"github.com/emberlisp/ember/scope"
)

// Module is a loaded module: its own Scope (satisfying scope.Module for
// `use`), plus metadata about where it came from.
type Module struct {
	Name   string
	Path   string // empty for a builtin module
	scope  *scope.Scope
}

// Scope implements scope.Module.
func (m *Module) Scope() *scope.Scope { return m.scope }

// Loader resolves and loads a single module by name. A Registry tries
// each of its Loaders in order; a Loader reports ErrNotFound to let the
// Registry fall through to the next one.
type Loader interface {
	Load(reg *Registry, moduleName string) (*Module, error)
}

// Registry is the process-wide module cache and dispatcher, implementing
// scope.Registry so the compiler can resolve `use` clauses.
type Registry struct {
	mu      sync.Mutex
	loaders []Loader
	cache   map[string]*Module
	loading []string // chain of module names currently mid-load, cycle detection
}

// New creates a Registry that tries loaders, in order, for every module
// name it has not already cached.
func New(loaders ...Loader) *Registry {
	return &Registry{
		loaders: loaders,
		cache:   make(map[string]*Module),
	}
}

// AddLoader appends an additional Loader, tried after every loader
// already registered.
func (r *Registry) AddLoader(l Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders = append(r.loaders, l)
}

// GetModule implements scope.Registry. It returns the cached Module for
// moduleName if one exists, otherwise tries each Loader in turn; while a
// module is loading, a re-entrant request for the same name (a genuine
// import cycle, since `use` always resolves synchronously at compile
// time) fails with ErrCycle instead of recursing forever.
func (r *Registry) GetModule(moduleName string) (scope.Module, error) {
	r.mu.Lock()
	if cached, ok := r.cache[moduleName]; ok {
		r.mu.Unlock()
		return cached, nil
	}
	for _, loading := range r.loading {
		if loading == moduleName {
			chain := append(append([]string{}, r.loading...), moduleName)
			r.mu.Unlock()
			return nil, ErrCycle{Chain: chain}
		}
	}
	r.loading = append(r.loading, moduleName)
	loaders := append([]Loader{}, r.loaders...)
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.loading = r.loading[:len(r.loading)-1]
		r.mu.Unlock()
	}()

	var lastErr error
	for _, l := range loaders {
		m, err := l.Load(r, moduleName)
		if err == nil {
			r.mu.Lock()
			r.cache[moduleName] = m
			r.mu.Unlock()
			return m, nil
		}
		if _, ok := err.(ErrNotFound); ok {
			lastErr = err
			continue
		}
		return nil, err
	}
	if lastErr == nil {
		lastErr = ErrNotFound{Name: moduleName}
	}
	return nil, lastErr
}

// Invalidate drops moduleName from the cache, forcing the next
// GetModule to reload it. Nothing in this repository calls it; the
// registry itself never does this on its own.
func (r *Registry) Invalidate(moduleName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, moduleName)
}
