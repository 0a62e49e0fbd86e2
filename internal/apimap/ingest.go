// Package apimap ingests a structured API document (enums, functions,
// structures, unions, typedefs, ...) and normalizes it into the canonical
// model.
package apimap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/heefoo/apiloom/internal/model"
)

// AnonymousEnum names enums that carry no identifier.
const AnonymousEnum = "anonymous"

// Option configures ingestion.
type Option func(*ingestor)

// WithLogger sets the logger used for diagnostics. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(in *ingestor) {
		if logger != nil {
			in.logger = logger
		}
	}
}

type ingestor struct {
	logger *slog.Logger
}

func newIngestor(opts []Option) *ingestor {
	in := &ingestor{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Result is the outcome of one ingestion run. Errors lists every entity that
// was left out of Map; an empty list means the model is complete.
type Result struct {
	Map      model.APIMap
	Typedefs TypedefTable
	Errors   []*MalformedEntity
}

// Err joins all per-entity errors, or returns nil when there are none.
func (r *Result) Err() error {
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Parse decodes a document and ingests it.
func Parse(r io.Reader, opts ...Option) (*Result, error) {
	doc, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return Ingest(doc, opts...), nil
}

// ParseFile decodes the document at path and ingests it.
func ParseFile(path string, opts ...Option) (*Result, error) {
	doc, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return Ingest(doc, opts...), nil
}

// Ingest runs every extraction pass over doc. Passes are independent; a
// malformed entity is reported and skipped without affecting the others.
func Ingest(doc *Document, opts ...Option) *Result {
	in := newIngestor(opts)
	res := &Result{}

	var errs []*MalformedEntity
	res.Typedefs, errs = in.typedefs(doc.Typedefs)
	res.Errors = append(res.Errors, errs...)

	res.Map.Enums, errs = in.enums(doc.Enums)
	res.Errors = append(res.Errors, errs...)

	res.Map.Functions, errs = in.functions(doc.Functions)
	res.Errors = append(res.Errors, errs...)

	res.Map.Structs, errs = in.structs("structures", doc.Structures)
	res.Errors = append(res.Errors, errs...)

	res.Map.Unions, errs = in.structs("unions", doc.Unions)
	res.Errors = append(res.Errors, errs...)

	in.logger.Debug("api map ingested",
		slog.Int("enums", len(res.Map.Enums)),
		slog.Int("functions", len(res.Map.Functions)),
		slog.Int("structs", len(res.Map.Structs)),
		slog.Int("unions", len(res.Map.Unions)),
		slog.Int("typedefs_named", len(res.Typedefs.Named)),
		slog.Int("typedefs_positional", len(res.Typedefs.Positional)),
		slog.Int("errors", len(res.Errors)))

	for _, e := range res.Errors {
		in.logger.Warn("skipped malformed entity", slog.String("error", e.Error()))
	}

	return res
}

func (in *ingestor) enums(decls []EnumDecl) ([]model.Enum, []*MalformedEntity) {
	out := make([]model.Enum, 0, len(decls))
	var errs []*MalformedEntity

	for i, d := range decls {
		name := d.Name
		if name == "" {
			name = AnonymousEnum
		}
		bad := func(field string, err error) {
			errs = append(errs, &MalformedEntity{Collection: "enums", Index: i, Partial: name, Field: field, Err: err})
		}

		typ, err := ResolveType(d.Type)
		if err != nil {
			bad("type", err)
			continue
		}
		if d.Members == nil {
			bad("members", ErrMissingList)
			continue
		}

		e := model.Enum{Identifier: name, Type: typ, Members: make([]model.EnumMember, 0, len(d.Members))}
		ok := true
		for j, m := range d.Members {
			if m.Name == "" {
				bad(fmt.Sprintf("members[%d].name", j), ErrNoIdentifier)
				ok = false
				break
			}
			e.Members = append(e.Members, model.EnumMember{Name: m.Name})
		}
		if ok {
			out = append(out, e)
		}
	}

	return out, errs
}

func (in *ingestor) functions(decls []FunctionDecl) ([]model.Function, []*MalformedEntity) {
	out := make([]model.Function, 0, len(decls))
	var errs []*MalformedEntity

	for i, d := range decls {
		bad := func(field string, err error) {
			errs = append(errs, &MalformedEntity{Collection: "functions", Index: i, Partial: d.Name, Field: field, Err: err})
		}

		if d.Name == "" {
			bad("name", ErrNoIdentifier)
			continue
		}
		ret, err := ResolveType(d.Return)
		if err != nil {
			bad("type", err)
			continue
		}

		fn := model.Function{Identifier: d.Name, ReturnType: ret, Args: make([]model.FuncArg, 0, len(d.Args))}
		ok := true
		for j, a := range d.Args {
			typ, err := ResolveType(a.Type)
			if err != nil {
				bad(fmt.Sprintf("args[%d].type", j), err)
				ok = false
				break
			}
			arg := model.FuncArg{Type: typ}
			if a.Name != "" {
				name := a.Name
				arg.Identifier = &name
			}
			fn.Args = append(fn.Args, arg)
		}
		if !ok {
			continue
		}

		fn.Args = model.ElideVoidArg(fn.Args)
		out = append(out, fn)
	}

	return out, errs
}

func (in *ingestor) structs(collection string, decls []StructDecl) ([]model.Struct, []*MalformedEntity) {
	out := make([]model.Struct, 0, len(decls))
	var errs []*MalformedEntity

	for i, d := range decls {
		bad := func(field string, err error) {
			errs = append(errs, &MalformedEntity{Collection: collection, Index: i, Partial: d.Name, Field: field, Err: err})
		}

		if d.Name == "" {
			bad("name", ErrNoIdentifier)
			continue
		}
		if d.Fields == nil {
			bad("fields", ErrMissingList)
			continue
		}

		s := model.Struct{Identifier: d.Name, Fields: make([]model.StructField, 0, len(d.Fields))}
		ok := true
		for j, f := range d.Fields {
			field, fieldErr, err := structField(f)
			if err != nil {
				bad(fmt.Sprintf("fields[%d].%s", j, fieldErr), err)
				ok = false
				break
			}
			s.Fields = append(s.Fields, field)
		}
		if ok {
			out = append(out, s)
		}
	}

	return out, errs
}

// structField normalizes one field. On failure it also returns the name of the
// offending field attribute.
func structField(f FieldDecl) (model.StructField, string, error) {
	if f.Name == "" {
		return model.StructField{}, "name", ErrNoIdentifier
	}
	typ, err := ResolveType(f.Type)
	if err != nil {
		return model.StructField{}, "type", err
	}

	field := model.StructField{Identifier: f.Name, Type: typ}
	if f.Bitsize != nil {
		width, err := parseBitsize(*f.Bitsize)
		if err != nil {
			return model.StructField{}, "bitsize", err
		}
		field.BitWidth = &width
	}
	return field, "", nil
}

func parseBitsize(s string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrBadBitsize, s, err)
	}
	return uint8(v), nil
}
