package geodata

import "sync"

// Interner interns strings so that identical tag keys/values share storage
// and compare by a stable, cheap handle instead of a full string compare.
// This mirrors alaCarte's CachedString (original_source
// include/utils/cached_string.hpp): for any two CachedStrings constructed
// from equal strings, the handles are equal and hash identically.
//
// A single process-wide Interner is threaded through via ServerContext
// (spec.md §9); it is never a package-level singleton.
type Interner struct {
	mu     sync.RWMutex
	table  map[string]CachedString
	shards int
}

// NewInterner creates an empty string intern table.
func NewInterner() *Interner {
	return &Interner{table: make(map[string]CachedString, 1024)}
}

// CachedString is an interned, immutable string. Two CachedStrings
// produced by the same Interner from equal strings are == comparable and
// share the same underlying storage.
type CachedString struct {
	id  uint32
	str string
}

// String returns the underlying string value.
func (c CachedString) String() string { return c.str }

// Intern returns the canonical CachedString for s, creating one if this is
// the first time s has been seen.
func (in *Interner) Intern(s string) CachedString {
	in.mu.RLock()
	if cs, ok := in.table[s]; ok {
		in.mu.RUnlock()
		return cs
	}
	in.mu.RUnlock()

	in.mu.Lock()
	defer in.mu.Unlock()
	if cs, ok := in.table[s]; ok {
		return cs
	}
	cs := CachedString{id: uint32(len(in.table)) + 1, str: s}
	in.table[s] = cs
	return cs
}

// Len reports how many distinct strings have been interned.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.table)
}

// Tags is an interned tag mapping: CachedString -> CachedString.
type Tags map[CachedString]CachedString

// Get looks up a tag's value by key, the empty CachedString's zero value
// (id 0) signalling absence. Callers test `ok` rather than value emptiness,
// since an interned empty string is itself a valid tag value.
func (t Tags) Get(key CachedString) (CachedString, bool) {
	v, ok := t[key]
	return v, ok
}

// Has reports tag presence without allocating.
func (t Tags) Has(key CachedString) bool {
	_, ok := t[key]
	return ok
}
