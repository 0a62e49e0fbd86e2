package apimap

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedDocument is returned when the input cannot be decoded into
	// a document at all. Nothing can be salvaged in that case.
	ErrMalformedDocument = errors.New("malformed api document")

	// ErrNoWrappedType means a type chain ended before reaching a named node.
	ErrNoWrappedType = errors.New("no wrapped type")

	ErrNoIdentifier = errors.New("missing identifier")
	ErrMissingList  = errors.New("missing list")
	ErrBadBitsize   = errors.New("invalid bitsize")
)

// MalformedEntity describes one entity of an otherwise valid document that
// could not be normalized. The entity is left out of the result.
type MalformedEntity struct {
	Collection string // document group, e.g. "functions"
	Index      int    // position inside the group
	Partial    string // identifier resolved so far, may be empty
	Field      string // offending field, e.g. "name" or "args[1].type"
	Err        error
}

func (e *MalformedEntity) Error() string {
	id := e.Partial
	if id == "" {
		id = "<anonymous>"
	}
	return fmt.Sprintf("%s[%d] (%s): field %s: %v", e.Collection, e.Index, id, e.Field, e.Err)
}

func (e *MalformedEntity) Unwrap() error {
	return e.Err
}
