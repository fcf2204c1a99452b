package calendar

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrStaleRef is returned when a ref was built from a cache generation
	// that has since been replaced.
	ErrStaleRef = errors.New("entry reference is stale; reload before acting on it")
	// ErrNoSuchEntry is returned for positions outside the current cache.
	ErrNoSuchEntry = errors.New("no entry at this position")
)

// Ref points at one cached entry. It is only valid for the cache generation
// it was taken from.
type Ref struct {
	Position   int
	ID         string
	Generation uint64
}

func (r Ref) String() string {
	if r.ID != "" {
		return fmt.Sprintf("%s@%d", r.ID, r.Generation)
	}
	return fmt.Sprintf("#%d@%d", r.Position, r.Generation)
}

// Target is a resolved ref ready to be addressed on the backend.
type Target struct {
	Position int
	ID       string
}

// PathSegment is the {position} path component: the backend ID when one was
// issued, the cache position otherwise.
func (t Target) PathSegment() string {
	if t.ID != "" {
		return t.ID
	}
	return strconv.Itoa(t.Position)
}
