// Package scope implements the per-module namespace the compiler
// resolves top-level definitions, macros and imports against.
package scope

import (
	"sync"

	"github.com/emberlisp/ember/name"
	"github.com/emberlisp/ember/value"
)

// Registry is the subset of module.Registry that a Scope needs to
// resolve `use` clauses, expressed as an interface so this package does
// not import module (module imports scope to build the Scope for each
// loaded module).
type Registry interface {
	GetModule(moduleName string) (Module, error)
}

// Module is the view of a loaded module a Scope needs for `use`.
type Module interface {
	Scope() *Scope
}

// Scope holds a module's value bindings, macro bindings, an optional
// export set, and references to the process-wide module registry and
// the name interner. It is shared between the compiler, macro
// expansion, and the (external) VM, so every operation acquires and
// releases its own lock — no lock is ever held across a call into
// user-supplied code (registry loaders, VM re-entry), per spec.md §5.
type Scope struct {
	mu       sync.RWMutex
	interner *name.Interner
	registry Registry

	values map[name.Name]value.Value
	macros map[name.Name]value.Lambda // stored uncompiled; compiler/macro.go compiles one on each expansion

	exports    map[name.Name]struct{}
	hasExports bool
}

// New creates an empty Scope backed by interner and registry (registry
// may be nil for a Scope that will never compile a `use` form, e.g. a
// throwaway Scope used only for tests).
func New(interner *name.Interner, registry Registry) *Scope {
	return &Scope{
		interner: interner,
		registry: registry,
		values:   make(map[name.Name]value.Value),
		macros:   make(map[name.Name]value.Lambda),
	}
}

// Interner returns the shared name interner.
func (s *Scope) Interner() *name.Interner { return s.interner }

// Registry returns the shared module registry (may be nil).
func (s *Scope) Registry() Registry { return s.registry }

// Intern is a convenience wrapper over Interner().Intern.
func (s *Scope) Intern(text string) name.Name { return s.interner.Intern(text) }

// CanDefine reports whether n is available for a top-level `define`,
// `macro`, or `struct` — reserved names (system operators and standard
// intrinsics) can never be redefined.
func (s *Scope) CanDefine(n name.Name) bool {
	return !n.IsReserved()
}

// GetValue returns the value bound to n, if any.
func (s *Scope) GetValue(n name.Name) (value.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[n]
	return v, ok
}

// SetValue binds n to v, overwriting any previous binding.
func (s *Scope) SetValue(n name.Name, v value.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[n] = v
}

// GetMacro returns the macro bound to n, if any.
func (s *Scope) GetMacro(n name.Name) (value.Lambda, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.macros[n]
	return m, ok
}

// SetMacro registers n as a macro.
func (s *Scope) SetMacro(n name.Name, lambda value.Lambda) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.macros[n] = lambda
}

// SetExports installs the export set exactly once; a second call
// reports false (the caller turns this into compiler.ErrDuplicateExports).
func (s *Scope) SetExports(names []name.Name) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasExports {
		return false
	}
	s.exports = make(map[name.Name]struct{}, len(names))
	for _, n := range names {
		s.exports[n] = struct{}{}
	}
	s.hasExports = true
	return true
}

// IsExported reports whether n is in the export set. A module with no
// export set declared exports every top-level value and macro binding
// (matching ketos's default-export-everything behaviour when no
// `export` form is present).
func (s *Scope) IsExported(n name.Name) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasExports {
		_, inValues := s.values[n]
		_, inMacros := s.macros[n]
		return inValues || inMacros
	}
	_, ok := s.exports[n]
	return ok
}

// ImportValues imports the value bindings listed in names from peer into
// this scope, optionally renaming; a name peer has no value for fails
// with ErrMissingExport, one peer does not export fails with
// ErrPrivacy. dest, if non-empty, maps source name
// to destination name (as used by `use mod (:dest src)`); names absent
// from dest import under their original name.
func (s *Scope) ImportValues(peer *Scope, names []name.Name, dest map[name.Name]name.Name) error {
	for _, n := range names {
		v, ok := peer.GetValue(n)
		if !ok {
			return ErrMissingExport{Name: n}
		}
		if !peer.IsExported(n) {
			return ErrPrivacy{Name: n}
		}
		target := n
		if d, ok := dest[n]; ok {
			target = d
		}
		s.SetValue(target, v)
	}
	return nil
}

// ImportMacros is ImportValues' counterpart for macro bindings.
func (s *Scope) ImportMacros(peer *Scope, names []name.Name, dest map[name.Name]name.Name) error {
	for _, n := range names {
		m, ok := peer.GetMacro(n)
		if !ok {
			return ErrMissingExport{Name: n}
		}
		if !peer.IsExported(n) {
			return ErrPrivacy{Name: n}
		}
		target := n
		if d, ok := dest[n]; ok {
			target = d
		}
		s.SetMacro(target, m)
	}
	return nil
}

// AllValueNames returns every defined value-binding name, for `:all`
// import clauses.
func (s *Scope) AllValueNames() []name.Name {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]name.Name, 0, len(s.values))
	for n := range s.values {
		out = append(out, n)
	}
	return out
}

// AllMacroNames returns every defined macro-binding name, for `:macro
// :all` import clauses.
func (s *Scope) AllMacroNames() []name.Name {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]name.Name, 0, len(s.macros))
	for n := range s.macros {
		out = append(out, n)
	}
	return out
}

// ErrMissingExport and ErrPrivacy are returned by Import*; the compiler
// wraps them into compiler.CompileError (MissingExport / PrivacyError).
type ErrMissingExport struct{ Name name.Name }

func (e ErrMissingExport) Error() string { return "missing export" }

type ErrPrivacy struct{ Name name.Name }

func (e ErrPrivacy) Error() string { return "not exported" }
