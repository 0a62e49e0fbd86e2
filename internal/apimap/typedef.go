package apimap

import (
	"log/slog"
	"strings"
)

// positionalMarkers identify underlying types that are primitives or
// anonymous aggregates. Such typedefs are kept as ordered pairs instead of a
// unique underlying -> alias mapping.
var positionalMarkers = []string{
	"struct",
	"int*",
	"uint8_t",
	"uint16_t",
	"uint32_t",
	"float",
	"double",
	"uintptr_t",
	"intptr_t",
	"void*",
	"int",
	"union",
	"int8_t",
}

// TypedefPair is an (underlying type, alias) entry.
type TypedefPair struct {
	Underlying string `json:"underlying" yaml:"underlying"`
	Alias      string `json:"alias" yaml:"alias"`
}

// TypedefCollision records a named alias that replaced an earlier one for the
// same underlying type.
type TypedefCollision struct {
	Underlying string `json:"underlying" yaml:"underlying"`
	Previous   string `json:"previous" yaml:"previous"`
	Alias      string `json:"alias" yaml:"alias"`
}

// TypedefTable is the lookup table derived from a document's typedefs. It is
// not part of the canonical model; consumers may use it to substitute alias
// names for resolved underlying types.
type TypedefTable struct {
	Named      map[string]string  `json:"named" yaml:"named"`
	Positional []TypedefPair      `json:"positional" yaml:"positional"`
	Collisions []TypedefCollision `json:"collisions,omitempty" yaml:"collisions,omitempty"`
}

// Alias returns the named alias recorded for an underlying type.
func (t TypedefTable) Alias(underlying string) (string, bool) {
	alias, ok := t.Named[underlying]
	return alias, ok
}

func isPositional(underlying string) bool {
	for _, marker := range positionalMarkers {
		if strings.Contains(underlying, marker) {
			return true
		}
	}
	return false
}

// ClassifyTypedefs buckets typedefs into positional pairs and named aliases.
func ClassifyTypedefs(decls []TypedefDecl, opts ...Option) (TypedefTable, []*MalformedEntity) {
	return newIngestor(opts).typedefs(decls)
}

func (in *ingestor) typedefs(decls []TypedefDecl) (TypedefTable, []*MalformedEntity) {
	table := TypedefTable{
		Named:      make(map[string]string),
		Positional: []TypedefPair{},
	}
	var errs []*MalformedEntity

	for i, td := range decls {
		if td.Name == "" {
			errs = append(errs, &MalformedEntity{Collection: "typedefs", Index: i, Field: "name", Err: ErrNoIdentifier})
			continue
		}
		underlying, err := ResolveType(td.Type)
		if err != nil {
			errs = append(errs, &MalformedEntity{Collection: "typedefs", Index: i, Partial: td.Name, Field: "type", Err: err})
			continue
		}

		if isPositional(underlying) {
			table.Positional = append(table.Positional, TypedefPair{Underlying: underlying, Alias: td.Name})
			continue
		}

		if prev, ok := table.Named[underlying]; ok {
			table.Collisions = append(table.Collisions, TypedefCollision{Underlying: underlying, Previous: prev, Alias: td.Name})
			in.logger.Warn("duplicate typedef",
				slog.String("underlying", underlying),
				slog.String("previous", prev),
				slog.String("alias", td.Name))
		}
		table.Named[underlying] = td.Name
	}

	return table, errs
}
