package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/heefoo/apiloom/internal/model"
)

// ErrUnparseable is wrapped by every UnparseableDeclaration.
var ErrUnparseable = errors.New("unparseable declaration")

// UnparseableDeclaration reports a declaration node whose shape did not match
// a function prototype. The declaration is skipped.
type UnparseableDeclaration struct {
	File   string
	Offset uint32 // byte offset of the declaration node
	Reason string
}

func (e *UnparseableDeclaration) Error() string {
	return fmt.Sprintf("%s:%d: %v: %s", e.File, e.Offset, ErrUnparseable, e.Reason)
}

func (e *UnparseableDeclaration) Unwrap() error {
	return ErrUnparseable
}

// transparentNodes are containers that hold declarations but produce none
// themselves.
var transparentNodes = map[string]bool{
	"preproc_ifdef":         true,
	"preproc_if":            true,
	"preproc_else":          true,
	"preproc_elif":          true,
	"linkage_specification": true,
	"declaration_list":      true,
}

// leadingSpecifiers precede the return type of a prototype and are not part
// of it.
var leadingSpecifiers = map[string]bool{
	"storage_class_specifier": true,
	"attribute_specifier":     true,
	"attribute_declaration":   true,
	"ms_declspec_modifier":    true,
}

type walker struct {
	file      string
	content   []byte
	elideVoid bool
	logger    *slog.Logger
	result    *ExtractResult
}

func (w *walker) walk(node *sitter.Node) {
	if node == nil {
		return
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch {
		case transparentNodes[child.Type()]:
			w.walk(child)

		case child.Type() == "declaration":
			fn, reason := w.parseFunctionDeclaration(child)
			if reason != "" {
				w.result.Errors = append(w.result.Errors, &UnparseableDeclaration{
					File:   w.file,
					Offset: child.StartByte(),
					Reason: reason,
				})
				continue
			}
			w.logger.Debug("found function", slog.String("file", w.file), slog.String("name", fn.Identifier))
			w.result.Functions = append(w.result.Functions, fn)
		}
	}
}

func (w *walker) text(node *sitter.Node) string {
	return string(w.content[node.StartByte():node.EndByte()])
}

// parseFunctionDeclaration returns a non-empty reason when node is not a
// function prototype.
func (w *walker) parseFunctionDeclaration(node *sitter.Node) (model.Function, string) {
	typeNode := firstTypeChild(node)
	if typeNode == nil {
		return model.Function{}, "no type specifier"
	}

	declarator := node.ChildByFieldName("declarator")
	if declarator == nil {
		return model.Function{}, "no declarator"
	}

	// int *f(void) nests the function declarator under pointer declarators
	funcDecl := declarator
	for funcDecl != nil && funcDecl.Type() == "pointer_declarator" {
		funcDecl = funcDecl.ChildByFieldName("declarator")
	}
	if funcDecl == nil || funcDecl.Type() != "function_declarator" {
		return model.Function{}, fmt.Sprintf("declarator %q is not a function declarator", declarator.Type())
	}

	nameNode := funcDecl.ChildByFieldName("declarator")
	if nameNode == nil {
		return model.Function{}, "function declarator has no name"
	}
	params := funcDecl.ChildByFieldName("parameters")
	if params == nil {
		return model.Function{}, "function declarator has no parameter list"
	}

	fn := model.Function{
		Identifier: w.text(nameNode),
		ReturnType: normalizeType(string(w.content[typeNode.StartByte():funcDecl.StartByte()])),
		Args:       w.parseParameters(params),
	}
	if w.elideVoid {
		fn.Args = model.ElideVoidArg(fn.Args)
	}
	return fn, ""
}

func firstTypeChild(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if !leadingSpecifiers[child.Type()] {
			return child
		}
	}
	return nil
}

// parseParameters reads the entries between the opening and closing
// parenthesis of a parameter list.
func (w *walker) parseParameters(params *sitter.Node) []model.FuncArg {
	args := []model.FuncArg{}

	for i := 1; i < int(params.ChildCount())-1; i++ {
		child := params.Child(i)
		switch child.Type() {
		case ",", "comment":
			continue
		case "...", "variadic_parameter":
			args = append(args, model.FuncArg{Type: "..."})
		default:
			args = append(args, w.parseParameter(child))
		}
	}

	return args
}

// parseParameter cuts the parameter name out of the declaration text; what
// remains is the type.
func (w *walker) parseParameter(param *sitter.Node) model.FuncArg {
	nameNode := declaratorName(param.ChildByFieldName("declarator"))
	if nameNode == nil {
		return model.FuncArg{Type: normalizeType(w.text(param))}
	}

	typ := string(w.content[param.StartByte():nameNode.StartByte()]) +
		string(w.content[nameNode.EndByte():param.EndByte()])
	name := w.text(nameNode)
	return model.FuncArg{Identifier: &name, Type: normalizeType(typ)}
}

// declaratorName unwraps pointer, array, function and parenthesized
// declarators down to the identifier they declare. Abstract declarators
// yield nil.
func declaratorName(node *sitter.Node) *sitter.Node {
	for node != nil {
		switch node.Type() {
		case "identifier", "field_identifier":
			return node

		case "pointer_declarator", "array_declarator", "function_declarator", "init_declarator":
			node = node.ChildByFieldName("declarator")

		case "parenthesized_declarator", "reference_declarator":
			node = lastNamedChild(node)

		default:
			return nil
		}
	}
	return nil
}

func lastNamedChild(node *sitter.Node) *sitter.Node {
	n := int(node.NamedChildCount())
	if n == 0 {
		return nil
	}
	return node.NamedChild(n - 1)
}

// normalizeType collapses whitespace and glues pointer and array suffixes to
// the type they modify, so `const char *` becomes `const char*`.
func normalizeType(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, " *", "*")
	s = strings.ReplaceAll(s, " [", "[")
	return s
}
