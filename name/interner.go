package name

import "sync"

// Interner maps textual identifiers to Name handles. The reserved
// system-operator and standard ranges are pre-populated at construction;
// every other identifier is assigned the next handle past
// firstUserName, in first-seen order.
//
// Interner is shared between a Scope, its Compiler, and any VM that
// re-enters the compiler during macro expansion, so lookups take a
// read lock and insertions a write lock — no lock is ever held across
// a call into user-supplied code (design note 9 in spec.md).
type Interner struct {
	mu      sync.RWMutex
	byName  map[string]Name
	byValue []string // indexed by Name - firstUserName for user names
}

// New creates an Interner with the reserved ranges pre-loaded.
func New() *Interner {
	in := &Interner{
		byName: make(map[string]Name, len(systemOperatorNames)+len(standardNames)),
	}
	for i, s := range systemOperatorNames {
		in.byName[s] = systemOperatorsBegin + Name(i)
	}
	for i, s := range standardNames {
		in.byName[s] = standardBegin + Name(i)
	}
	return in
}

// Intern returns the Name handle for s, assigning a fresh user handle if
// s has not been seen before.
func (in *Interner) Intern(s string) Name {
	in.mu.RLock()
	if n, ok := in.byName[s]; ok {
		in.mu.RUnlock()
		return n
	}
	in.mu.RUnlock()

	in.mu.Lock()
	defer in.mu.Unlock()
	if n, ok := in.byName[s]; ok {
		return n
	}
	n := firstUserName + Name(len(in.byValue))
	in.byValue = append(in.byValue, s)
	in.byName[s] = n
	return n
}

// Lookup returns the Name already assigned to s, if any, without
// interning it.
func (in *Interner) Lookup(s string) (Name, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	n, ok := in.byName[s]
	return n, ok
}

// Text returns the textual identifier for a Name handle.
func (in *Interner) Text(n Name) string {
	if idx := systemOperatorIndex(n); idx >= 0 {
		return systemOperatorNames[idx]
	}
	if idx := standardIndex(n); idx >= 0 {
		return standardNames[idx]
	}
	in.mu.RLock()
	defer in.mu.RUnlock()
	idx := int(n - firstUserName)
	if idx < 0 || idx >= len(in.byValue) {
		return "<unknown-name>"
	}
	return in.byValue[idx]
}
