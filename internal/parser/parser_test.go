package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heefoo/apiloom/internal/model"
)

func extract(t *testing.T, p *Parser, code string) *ExtractResult {
	t.Helper()
	result, err := p.ExtractContent(context.Background(), "test.h", []byte(code))
	require.NoError(t, err)
	return result
}

func TestExtractSimplePrototype(t *testing.T) {
	result := extract(t, NewParser(), "int add(int x, int y);")

	require.Empty(t, result.Errors)
	assert.Equal(t, []model.Function{{
		Identifier: "add",
		ReturnType: "int",
		Args:       []model.FuncArg{model.Arg("x", "int"), model.Arg("y", "int")},
	}}, result.Functions)
}

func TestExtractBothGrammars(t *testing.T) {
	for _, lang := range []Language{LangC, LangCPP} {
		t.Run(string(lang), func(t *testing.T) {
			result := extract(t, NewParser(WithLanguage(lang)), "int add(int x, int y);\nvoid lv_init(void);\n")
			require.Empty(t, result.Errors)
			require.Len(t, result.Functions, 2)
			assert.Equal(t, "add", result.Functions[0].Identifier)
			assert.Equal(t, "lv_init", result.Functions[1].Identifier)
			assert.Empty(t, result.Functions[1].Args)
		})
	}
}

func TestExtractNestedScopes(t *testing.T) {
	code := `int first(void);
extern "C" {
#ifdef LV_USE_FOO
void nested(int a);
#endif
}
int last(void);
`
	result := extract(t, NewParser(), code)

	require.Empty(t, result.Errors)
	require.Len(t, result.Functions, 3)
	assert.Equal(t, "first", result.Functions[0].Identifier)
	assert.Equal(t, "nested", result.Functions[1].Identifier)
	assert.Equal(t, []model.FuncArg{model.Arg("a", "int")}, result.Functions[1].Args)
	assert.Equal(t, "last", result.Functions[2].Identifier)
}

func TestExtractHeaderGuard(t *testing.T) {
	code := `#ifndef LV_OBJ_H
#define LV_OBJ_H

#include <stdint.h>

/* Create a base object */
lv_obj_t *lv_obj_create(lv_obj_t *parent);

#endif
`
	result := extract(t, NewParser(), code)

	require.Empty(t, result.Errors)
	assert.Equal(t, []model.Function{{
		Identifier: "lv_obj_create",
		ReturnType: "lv_obj_t*",
		Args:       []model.FuncArg{model.Arg("parent", "lv_obj_t*")},
	}}, result.Functions)
}

func TestExtractQualifiedReturnAndParams(t *testing.T) {
	code := "extern const struct foo *make_foo(const char *name, unsigned int count, void (*cb)(int));"
	result := extract(t, NewParser(), code)

	require.Empty(t, result.Errors)
	require.Len(t, result.Functions, 1)
	fn := result.Functions[0]
	assert.Equal(t, "make_foo", fn.Identifier)
	assert.Equal(t, "const struct foo*", fn.ReturnType)
	assert.Equal(t, []model.FuncArg{
		model.Arg("name", "const char*"),
		model.Arg("count", "unsigned int"),
		model.Arg("cb", "void (*)(int)"),
	}, fn.Args)
}

func TestExtractUnnamedAndVariadicParams(t *testing.T) {
	result := extract(t, NewParser(), "int lv_snprintf(char *, size_t, const char * fmt, ...);")

	require.Empty(t, result.Errors)
	require.Len(t, result.Functions, 1)
	assert.Equal(t, []model.FuncArg{
		{Type: "char*"},
		{Type: "size_t"},
		model.Arg("fmt", "const char*"),
		{Type: "..."},
	}, result.Functions[0].Args)
}

func TestExtractVoidElision(t *testing.T) {
	result := extract(t, NewParser(), "void f(void);")
	require.Len(t, result.Functions, 1)
	assert.Empty(t, result.Functions[0].Args)

	result = extract(t, NewParser(WithoutVoidElision()), "void f(void);")
	require.Len(t, result.Functions, 1)
	assert.Equal(t, []model.FuncArg{{Type: "void"}}, result.Functions[0].Args)

	result = extract(t, NewParser(), "void g(void, int x);")
	require.Len(t, result.Functions, 1)
	assert.Len(t, result.Functions[0].Args, 2)
}

func TestExtractSkipsUnparseableDeclarations(t *testing.T) {
	code := "int counter;\nint ok(void);\n"
	result := extract(t, NewParser(), code)

	require.Len(t, result.Functions, 1)
	assert.Equal(t, "ok", result.Functions[0].Identifier)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "test.h", result.Errors[0].File)
	assert.Equal(t, uint32(0), result.Errors[0].Offset)
	assert.ErrorIs(t, result.Errors[0], ErrUnparseable)
}

func writeHeader(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestExtractFilesConcatenatesWithoutDedup(t *testing.T) {
	dir := t.TempDir()
	a := writeHeader(t, dir, "a.h", "void f(void);\n")
	b := writeHeader(t, dir, "b.h", "void f(void);\n")

	result, err := NewParser().ExtractFiles(context.Background(), []string{a, b})
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesTotal)
	require.Len(t, result.Functions, 2)
	assert.Equal(t, result.Functions[0], result.Functions[1])
}

func TestExtractFilesContinuesAfterBadDeclaration(t *testing.T) {
	dir := t.TempDir()
	a := writeHeader(t, dir, "a.h", "int counter;\n")
	b := writeHeader(t, dir, "b.h", "int add(int x, int y);\n")

	result, err := NewParser().ExtractFiles(context.Background(), []string{a, b})
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, a, result.Errors[0].File)
	require.Len(t, result.Functions, 1)
	assert.Equal(t, "add", result.Functions[0].Identifier)
}

func TestExtractFilesMissingFile(t *testing.T) {
	_, err := NewParser().ExtractFiles(context.Background(), []string{filepath.Join(t.TempDir(), "missing.h")})
	require.Error(t, err)
}

func TestExtractFilesCancelled(t *testing.T) {
	dir := t.TempDir()
	a := writeHeader(t, dir, "a.h", "void f(void);\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParser().ExtractFiles(ctx, []string{a})
	require.ErrorIs(t, err, context.Canceled)
}

func TestExtractIsDeterministic(t *testing.T) {
	code := "int add(int x, int y);\nconst char *name(void);\n"
	first := extract(t, NewParser(), code)
	second := extract(t, NewParser(), code)
	assert.Equal(t, first, second)
}

func TestNormalizeType(t *testing.T) {
	tests := map[string]string{
		"int":                 "int",
		"const char *":        "const char*",
		"  unsigned   int  ":  "unsigned int",
		"lv_obj_t * *":        "lv_obj_t**",
		"uint8_t [4]":         "uint8_t[4]",
		"const struct foo \n": "const struct foo",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeType(in), "input %q", in)
	}
}

func TestDetectLanguage(t *testing.T) {
	p := NewParser(WithLanguage(LangC))
	assert.Equal(t, LangC, p.DetectLanguage("lv_obj.h"))
	assert.Equal(t, LangCPP, p.DetectLanguage("widget.hpp"))
	assert.True(t, p.IsSupportedFile("a.H"))
	assert.False(t, p.IsSupportedFile("README.md"))
}
