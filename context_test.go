package remap

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valueOfPtr(v any) uintptr {
	return reflect.ValueOf(v).Pointer()
}

func valueFor(v any) reflect.Value {
	return reflect.ValueOf(v)
}

type child struct {
	N int
}

type childDto struct {
	N int
}

type parent struct {
	A *child
	B *child
}

type parentDto struct {
	A *childDto
	B *childDto
}

func TestSharedReferenceWithoutPreserve(t *testing.T) {
	mapper := New()
	CreateMap[parent, parentDto](mapper)

	shared := &child{N: 7}
	dest, err := Map[parentDto](mapper, parent{A: shared, B: shared})
	require.NoError(t, err)

	require.NotNil(t, dest.A)
	require.NotNil(t, dest.B)
	assert.Equal(t, 7, dest.A.N)
	assert.Equal(t, 7, dest.B.N)
	// Without preservation every occurrence gets its own instance.
	assert.NotSame(t, dest.A, dest.B)
}

func TestSharedReferenceWithPreserve(t *testing.T) {
	mapper := New()
	CreateMap[parent, parentDto](mapper).PreserveReferences()

	shared := &child{N: 7}
	dest, err := Map[parentDto](mapper, parent{A: shared, B: shared})
	require.NoError(t, err)

	require.NotNil(t, dest.A)
	assert.Same(t, dest.A, dest.B)
	assert.Equal(t, 7, dest.A.N)
}

func TestPreserveScopedPerElement(t *testing.T) {
	mapper := New()
	CreateMap[parent, parentDto](mapper).PreserveReferences()

	shared := &child{N: 7}
	src := []parent{
		{A: shared, B: shared},
		{A: shared, B: shared},
	}

	dest, err := MapSlice[parent, parentDto](mapper, src)
	require.NoError(t, err)
	require.Len(t, dest, 2)

	// Identity is shared within one element's mapping call but never across
	// elements.
	assert.Same(t, dest[0].A, dest[0].B)
	assert.Same(t, dest[1].A, dest[1].B)
	assert.NotSame(t, dest[0].A, dest[1].A)
}

type node struct {
	Name string
	Next *node
}

type nodeDto struct {
	Name string
	Next *nodeDto
}

func TestCycleTerminationWithPreserve(t *testing.T) {
	mapper := New()
	CreateMap[node, nodeDto](mapper).PreserveReferences()

	a := &node{Name: "a"}
	b := &node{Name: "b"}
	a.Next = b
	b.Next = a

	dest, err := Map[*nodeDto](mapper, a)
	require.NoError(t, err)

	require.NotNil(t, dest)
	assert.Equal(t, "a", dest.Name)
	require.NotNil(t, dest.Next)
	assert.Equal(t, "b", dest.Next.Name)
	// The back-reference resolves to the already-constructed ancestor.
	assert.Same(t, dest, dest.Next.Next)
}

func TestCycleTruncationWithoutPreserve(t *testing.T) {
	mapper := New()
	CreateMap[node, nodeDto](mapper).MaxDepth(2)

	a := &node{Name: "a"}
	a.Next = a

	dest, err := Map[*nodeDto](mapper, a)
	require.NoError(t, err)
	require.NotNil(t, dest)

	// The branch is truncated by the hard ceiling rather than recursing
	// forever; the chain is finite.
	depth := 0
	for n := dest; n != nil; n = n.Next {
		depth++
		require.Less(t, depth, 100)
	}
	assert.Greater(t, depth, 1)
}

func TestSelfReferentialDeepGraphTerminates(t *testing.T) {
	mapper := New()
	CreateMap[node, nodeDto](mapper)

	// A long but acyclic chain maps fully under the default ceiling.
	head := &node{Name: "0"}
	cur := head
	for i := 1; i < 50; i++ {
		next := &node{Name: "n"}
		cur.Next = next
		cur = next
	}

	dest, err := Map[*nodeDto](mapper, head)
	require.NoError(t, err)

	depth := 0
	for n := dest; n != nil; n = n.Next {
		depth++
	}
	assert.Equal(t, 50, depth)
}

func TestContextIdentityKeying(t *testing.T) {
	ctx := newMappingContext(0, true, nil)

	x := &child{N: 1}
	y := &child{N: 1} // structurally equal, distinct identity

	xv := valueOfPtr(x)
	_, ok := ctx.lookup(xv, nil)
	assert.False(t, ok)

	dest := valueFor(&childDto{N: 1})
	ctx.remember(xv, dest.Type(), dest)

	got, ok := ctx.lookup(xv, dest.Type())
	assert.True(t, ok)
	assert.Equal(t, dest.Interface(), got.Interface())

	// A structurally equal but distinct instance does not hit the cache.
	_, ok = ctx.lookup(valueOfPtr(y), dest.Type())
	assert.False(t, ok)
}

func TestContextCeiling(t *testing.T) {
	ctx := newMappingContext(2, false, nil)

	allowed := 0
	for i := 0; i < 100; i++ {
		if ctx.descend(nil, nil) {
			allowed++
		}
	}
	assert.Equal(t, 2*depthCeilingFactor, allowed)
}
