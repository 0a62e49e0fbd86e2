package apimap

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// wireNode mirrors one tagged node of the JSON document. Every field is
// optional on the wire; lowering turns it into the typed declarations below.
type wireNode struct {
	Name      *string     `json:"name"`
	JSONType  Kind        `json:"json_type"`
	Docstring *string     `json:"docstring"`
	Quals     []string    `json:"quals"`
	Storage   []string    `json:"storage"`
	Type      *wireNode   `json:"type"`
	Fields    []*wireNode `json:"fields"`
	Members   []*wireNode `json:"members"`
	Args      []*wireNode `json:"args"`
	Bitsize   *string     `json:"bitsize"`
}

func (w *wireNode) name() string {
	if w == nil || w.Name == nil {
		return ""
	}
	return *w.Name
}

func (w *wireNode) doc() string {
	if w == nil || w.Docstring == nil {
		return ""
	}
	return *w.Docstring
}

type wireRoot struct {
	Enums        []*wireNode `json:"enums"`
	Functions    []*wireNode `json:"functions"`
	Structures   []*wireNode `json:"structures"`
	Unions       []*wireNode `json:"unions"`
	Variables    []*wireNode `json:"variables"`
	Typedefs     []*wireNode `json:"typedefs"`
	ForwardDecls []*wireNode `json:"forward_decls"`
	Macros       []*wireNode `json:"macros"`
}

// TypeRef is one link of a "wraps a type" chain. Each link owns at most one
// inner link; the chain normally ends at a named node.
type TypeRef struct {
	Kind  Kind
	Name  string
	Quals []string
	Of    *TypeRef
}

type EnumDecl struct {
	Name    string
	Doc     string
	Type    *TypeRef
	Members []EnumMemberDecl // nil when the document carries no members list
}

type EnumMemberDecl struct {
	Name string
	Doc  string
}

type FunctionDecl struct {
	Name   string
	Doc    string
	Return *TypeRef
	Args   []ArgDecl
}

type ArgDecl struct {
	Name  string
	Type  *TypeRef
	Quals []string
}

// StructDecl covers both structures and unions; Kind tells them apart.
type StructDecl struct {
	Kind   Kind
	Name   string
	Doc    string
	Fields []FieldDecl // nil when the document carries no fields list
}

type FieldDecl struct {
	Name    string
	Doc     string
	Type    *TypeRef
	Bitsize *string
}

type TypedefDecl struct {
	Name string
	Doc  string
	Type *TypeRef
}

type VariableDecl struct {
	Name    string
	Doc     string
	Type    *TypeRef
	Storage []string
}

type ForwardDecl struct {
	Name string
	Type *TypeRef
}

type MacroDecl struct {
	Name string
	Doc  string
}

// Document is a decoded API description, grouped the way the JSON is.
type Document struct {
	Enums        []EnumDecl
	Functions    []FunctionDecl
	Structures   []StructDecl
	Unions       []StructDecl
	Variables    []VariableDecl
	Typedefs     []TypedefDecl
	ForwardDecls []ForwardDecl
	Macros       []MacroDecl
}

// Decode reads a JSON API document. Any syntax error or unknown node tag is
// reported as ErrMalformedDocument.
func Decode(r io.Reader) (*Document, error) {
	var root wireRoot
	if err := json.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return root.lower(), nil
}

// DecodeFile opens path and decodes it with Decode.
func DecodeFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open api map: %w", err)
	}
	defer f.Close()

	doc, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func (root *wireRoot) lower() *Document {
	doc := &Document{}

	for _, w := range root.Enums {
		d := EnumDecl{Name: w.name(), Doc: w.doc(), Type: lowerType(w.Type)}
		if w.Members != nil {
			d.Members = make([]EnumMemberDecl, 0, len(w.Members))
			for _, m := range w.Members {
				d.Members = append(d.Members, EnumMemberDecl{Name: m.name(), Doc: m.doc()})
			}
		}
		doc.Enums = append(doc.Enums, d)
	}

	for _, w := range root.Functions {
		d := FunctionDecl{Name: w.name(), Doc: w.doc(), Return: lowerType(w.Type)}
		for _, a := range w.Args {
			d.Args = append(d.Args, ArgDecl{Name: a.name(), Type: lowerType(a.Type), Quals: a.Quals})
		}
		doc.Functions = append(doc.Functions, d)
	}

	for _, w := range root.Structures {
		doc.Structures = append(doc.Structures, lowerStruct(w, KindStruct))
	}
	for _, w := range root.Unions {
		doc.Unions = append(doc.Unions, lowerStruct(w, KindUnion))
	}

	for _, w := range root.Variables {
		doc.Variables = append(doc.Variables, VariableDecl{
			Name:    w.name(),
			Doc:     w.doc(),
			Type:    lowerType(w.Type),
			Storage: w.Storage,
		})
	}

	for _, w := range root.Typedefs {
		doc.Typedefs = append(doc.Typedefs, TypedefDecl{Name: w.name(), Doc: w.doc(), Type: lowerType(w.Type)})
	}

	for _, w := range root.ForwardDecls {
		doc.ForwardDecls = append(doc.ForwardDecls, ForwardDecl{Name: w.name(), Type: lowerType(w.Type)})
	}

	for _, w := range root.Macros {
		doc.Macros = append(doc.Macros, MacroDecl{Name: w.name(), Doc: w.doc()})
	}

	return doc
}

func lowerStruct(w *wireNode, kind Kind) StructDecl {
	d := StructDecl{Kind: kind, Name: w.name(), Doc: w.doc()}
	if w.Fields != nil {
		d.Fields = make([]FieldDecl, 0, len(w.Fields))
		for _, f := range w.Fields {
			d.Fields = append(d.Fields, FieldDecl{
				Name:    f.name(),
				Doc:     f.doc(),
				Type:    lowerType(f.Type),
				Bitsize: f.Bitsize,
			})
		}
	}
	return d
}

// lowerType copies a wire chain link by link without recursing.
func lowerType(w *wireNode) *TypeRef {
	var head *TypeRef
	link := &head
	for ; w != nil; w = w.Type {
		ref := &TypeRef{Kind: w.JSONType, Name: w.name(), Quals: w.Quals}
		*link = ref
		link = &ref.Of
	}
	return head
}
