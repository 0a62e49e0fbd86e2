package apimap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chain builds n unnamed pointer links ending at a named leaf.
func chain(n int, leaf string) *TypeRef {
	ref := &TypeRef{Kind: KindLibraryType, Name: leaf}
	for i := 0; i < n; i++ {
		ref = &TypeRef{Kind: KindPointer, Of: ref}
	}
	return ref
}

func TestResolveTypePointerChain(t *testing.T) {
	for n := 0; n <= 6; n++ {
		got, err := ResolveType(chain(n, "lv_obj_t"))
		require.NoError(t, err)
		assert.Equal(t, "lv_obj_t"+strings.Repeat("*", n), got)
	}
}

func TestResolveTypeThreeLevels(t *testing.T) {
	got, err := ResolveType(chain(3, "lv_obj_t"))
	require.NoError(t, err)
	assert.Equal(t, "lv_obj_t***", got)
}

func TestResolveTypeArrayCountsAsIndirection(t *testing.T) {
	ref := &TypeRef{Kind: KindArray, Of: &TypeRef{Kind: KindPrimitiveType, Name: "char"}}
	got, err := ResolveType(ref)
	require.NoError(t, err)
	assert.Equal(t, "char*", got)
}

func TestResolveTypeReturnWrapperIsTransparent(t *testing.T) {
	ref := &TypeRef{Kind: KindReturnType, Of: chain(1, "lv_obj_t")}
	got, err := ResolveType(ref)
	require.NoError(t, err)
	assert.Equal(t, "lv_obj_t*", got)
}

func TestResolveTypeNamedWrapperWins(t *testing.T) {
	ref := &TypeRef{Kind: KindFunctionPointer, Name: "lv_event_cb_t", Of: chain(2, "void")}
	got, err := ResolveType(ref)
	require.NoError(t, err)
	assert.Equal(t, "lv_event_cb_t", got)
}

func TestResolveTypeMissingChain(t *testing.T) {
	_, err := ResolveType(nil)
	require.ErrorIs(t, err, ErrNoWrappedType)

	_, err = ResolveType(&TypeRef{Kind: KindPointer, Of: &TypeRef{Kind: KindPointer}})
	require.ErrorIs(t, err, ErrNoWrappedType)
}
