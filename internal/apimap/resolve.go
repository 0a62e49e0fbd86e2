package apimap

import (
	"fmt"
	"strings"
)

// ResolveType flattens a type chain into a single type string. Walking stops
// at the first named link; every unnamed indirection passed on the way adds a
// trailing "*". A return-type wrapper adds nothing.
//
// Calling it on a nil chain, or on a chain that runs out before a named link,
// fails with ErrNoWrappedType.
func ResolveType(t *TypeRef) (string, error) {
	if t == nil {
		return "", ErrNoWrappedType
	}

	stars := 0
	for cur := t; ; cur = cur.Of {
		if cur == nil {
			return "", fmt.Errorf("%w: chain of %d unnamed links has no named leaf", ErrNoWrappedType, stars)
		}
		if cur.Name != "" {
			return cur.Name + strings.Repeat("*", stars), nil
		}
		if !cur.Kind.transparent() {
			stars++
		}
	}
}
