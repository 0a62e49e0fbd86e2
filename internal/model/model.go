// Package model holds the canonical, language-agnostic description of a C API
// produced by both ingestion paths and consumed by binding emitters.
package model

// Enum is a C enumeration.
type Enum struct {
	Identifier string       `json:"identifier" yaml:"identifier"`
	Type       string       `json:"type" yaml:"type"`
	Members    []EnumMember `json:"members" yaml:"members"`
}

// EnumMember is one enumerator. Value is nil when the source carries no
// constant, which is always the case for schema documents.
type EnumMember struct {
	Name  string  `json:"name" yaml:"name"`
	Value *string `json:"value,omitempty" yaml:"value,omitempty"`
}

type Function struct {
	Identifier string    `json:"identifier" yaml:"identifier"`
	ReturnType string    `json:"return_type" yaml:"return_type"`
	Args       []FuncArg `json:"args" yaml:"args"`
}

// FuncArg is a function parameter. Identifier is nil for unnamed parameters.
type FuncArg struct {
	Identifier *string `json:"identifier,omitempty" yaml:"identifier,omitempty"`
	Type       string  `json:"type" yaml:"type"`
}

// Struct is a C structure or union.
type Struct struct {
	Identifier string        `json:"identifier" yaml:"identifier"`
	Fields     []StructField `json:"fields" yaml:"fields"`
}

type StructField struct {
	Identifier string `json:"identifier" yaml:"identifier"`
	Type       string `json:"type" yaml:"type"`
	BitWidth   *uint8 `json:"bit_width,omitempty" yaml:"bit_width,omitempty"`
}

// APIMap is the canonical output of schema ingestion.
type APIMap struct {
	Enums     []Enum     `json:"enums" yaml:"enums"`
	Functions []Function `json:"functions" yaml:"functions"`
	Structs   []Struct   `json:"structs" yaml:"structs"`
	Unions    []Struct   `json:"unions,omitempty" yaml:"unions,omitempty"`
}

// VoidType is the explicit empty-parameter marker in `f(void)`.
const VoidType = "void"

// ElideVoidArg drops the lone unnamed `void` parameter that C uses to declare
// an empty parameter list. Lists of two or more arguments are never touched.
func ElideVoidArg(args []FuncArg) []FuncArg {
	if len(args) == 1 && args[0].Identifier == nil && args[0].Type == VoidType {
		return []FuncArg{}
	}
	return args
}

// Arg is a convenience constructor for a named parameter.
func Arg(name, typ string) FuncArg {
	return FuncArg{Identifier: &name, Type: typ}
}

// Name returns the parameter identifier or "" when unnamed.
func (a FuncArg) Name() string {
	if a.Identifier == nil {
		return ""
	}
	return *a.Identifier
}
