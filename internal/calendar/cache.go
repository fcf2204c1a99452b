package calendar

import "fmt"

// Cache mirrors the last successful full load from the backend. It is
// never patched in place: every mutation is followed by a wholesale
// Replace.
type Cache struct {
	entries    []Entry
	generation uint64
	loadSeq    uint64
}

// NewCache returns an empty cache at generation 0.
func NewCache() *Cache {
	return &Cache{}
}

// Entries returns a copy of the cached entries in backend order.
func (c *Cache) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Cache) Len() int {
	return len(c.entries)
}

// Generation increments on every Replace.
func (c *Cache) Generation() uint64 {
	return c.generation
}

// At returns the entry at position i.
func (c *Cache) At(i int) (Entry, bool) {
	if i < 0 || i >= len(c.entries) {
		return Entry{}, false
	}
	return c.entries[i], true
}

// BeginLoad issues a new load sequence number. Only the response carrying
// the newest number may replace the cache.
func (c *Cache) BeginLoad() uint64 {
	c.loadSeq++
	return c.loadSeq
}

// Current reports whether seq is the newest load issued.
func (c *Cache) Current(seq uint64) bool {
	return seq == c.loadSeq
}

// Replace installs entries loaded under seq. It reports false and leaves the
// cache untouched when a newer load has been issued since.
func (c *Cache) Replace(seq uint64, entries []Entry) bool {
	if seq != c.loadSeq {
		return false
	}
	c.entries = make([]Entry, len(entries))
	copy(c.entries, entries)
	c.generation++
	return true
}

// Ref takes a reference to the entry at position i in the current generation.
func (c *Cache) Ref(i int) (Ref, error) {
	e, ok := c.At(i)
	if !ok {
		return Ref{}, fmt.Errorf("position %d of %d: %w", i, len(c.entries), ErrNoSuchEntry)
	}
	return Ref{Position: i, ID: e.ID, Generation: c.generation}, nil
}

// Resolve validates ref against the current generation and returns the
// backend target with the entry it points at.
func (c *Cache) Resolve(ref Ref) (Target, Entry, error) {
	if ref.Generation != c.generation {
		return Target{}, Entry{}, fmt.Errorf("ref %s, cache generation %d: %w", ref, c.generation, ErrStaleRef)
	}
	e, ok := c.At(ref.Position)
	if !ok {
		return Target{}, Entry{}, fmt.Errorf("position %d of %d: %w", ref.Position, len(c.entries), ErrNoSuchEntry)
	}
	if ref.ID != e.ID {
		return Target{}, Entry{}, fmt.Errorf("ref %s now holds %q: %w", ref, e.ID, ErrStaleRef)
	}
	return Target{Position: ref.Position, ID: e.ID}, e, nil
}
