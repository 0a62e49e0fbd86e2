package apimap

import "fmt"

// Kind is the json_type tag carried by every node of an API document.
type Kind string

const (
	KindPrimitiveType   Kind = "primitive_type"
	KindLibraryType     Kind = "lvgl_type"
	KindStdlibType      Kind = "stdlib_type"
	KindEnumMember      Kind = "enum_member"
	KindField           Kind = "field"
	KindStruct          Kind = "struct"
	KindTypedef         Kind = "typedef"
	KindEnum            Kind = "enum"
	KindFunction        Kind = "function"
	KindPointer         Kind = "pointer"
	KindArray           Kind = "array"
	KindReturnType      Kind = "ret_type"
	KindFunctionPointer Kind = "function_pointer"
	KindVariable        Kind = "variable"
	KindUnion           Kind = "union"
	KindForwardDecl     Kind = "forward_decl"
	KindMacro           Kind = "macro"
	KindArg             Kind = "arg"
	KindSpecialType     Kind = "special_type"
)

var knownKinds = map[Kind]struct{}{
	KindPrimitiveType:   {},
	KindLibraryType:     {},
	KindStdlibType:      {},
	KindEnumMember:      {},
	KindField:           {},
	KindStruct:          {},
	KindTypedef:         {},
	KindEnum:            {},
	KindFunction:        {},
	KindPointer:         {},
	KindArray:           {},
	KindReturnType:      {},
	KindFunctionPointer: {},
	KindVariable:        {},
	KindUnion:           {},
	KindForwardDecl:     {},
	KindMacro:           {},
	KindArg:             {},
	KindSpecialType:     {},
}

// UnmarshalText rejects tags outside the known vocabulary so that a document
// using a different schema fails to decode instead of producing garbage.
func (k *Kind) UnmarshalText(text []byte) error {
	kind := Kind(text)
	if _, ok := knownKinds[kind]; !ok {
		return fmt.Errorf("unknown json_type %q", string(text))
	}
	*k = kind
	return nil
}

// transparent reports whether an unnamed node of this kind only wraps its
// inner type without adding a level of indirection.
func (k Kind) transparent() bool {
	return k == KindReturnType
}
