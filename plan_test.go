package remap

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanMemoization(t *testing.T) {
	mapper := New()
	CreateMap[SourceBasic, DestBasic](mapper)

	p1, err := mapper.planFor(reflect.TypeOf(SourceBasic{}), reflect.TypeOf(DestBasic{}))
	require.NoError(t, err)
	p2, err := mapper.planFor(reflect.TypeOf(SourceBasic{}), reflect.TypeOf(DestBasic{}))
	require.NoError(t, err)

	assert.Same(t, p1, p2)
}

func TestPlanEvictionOnReRegistration(t *testing.T) {
	mapper := New()
	CreateMap[SourceBasic, DestBasic](mapper)

	p1, err := mapper.planFor(reflect.TypeOf(SourceBasic{}), reflect.TypeOf(DestBasic{}))
	require.NoError(t, err)

	CreateMap[SourceBasic, DestBasic](mapper)

	p2, err := mapper.planFor(reflect.TypeOf(SourceBasic{}), reflect.TypeOf(DestBasic{}))
	require.NoError(t, err)

	assert.NotSame(t, p1, p2)
}

func TestConcurrentPlanCompilation(t *testing.T) {
	mapper := New()
	CreateMap[SourceBasic, DestBasic](mapper)

	const callers = 10
	plans := make([]*plan, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			plans[i], errs[i] = mapper.planFor(
				reflect.TypeOf(SourceBasic{}), reflect.TypeOf(DestBasic{}))
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		// Exactly one compilation: every caller observes the same plan.
		assert.Same(t, plans[0], plans[i])
	}
}

func TestUnsafeOptimizationEquivalence(t *testing.T) {
	plain := New()
	CreateMap[SourceBasic, DestBasic](plain)

	fast := NewWithConfig(WithUnsafeOptimizations())
	CreateMap[SourceBasic, DestBasic](fast)

	src := &SourceBasic{Name: "Jo", Age: 30, Email: "jo@example.com"}

	want, err := Map[DestBasic](plain, src)
	require.NoError(t, err)
	got, err := Map[DestBasic](fast, src)
	require.NoError(t, err)

	assert.Equal(t, want, got)
}

func TestUnsafeOptimizationUnaddressableSource(t *testing.T) {
	mapper := NewWithConfig(WithUnsafeOptimizations())
	CreateMap[SourceBasic, DestBasic](mapper)

	// A source passed by value is not addressable; the step must fall back
	// to the reflective copy.
	dest, err := Map[DestBasic](mapper, SourceBasic{Name: "Jo"})
	require.NoError(t, err)
	assert.Equal(t, "Jo", dest.Name)
}

type widePtrSource struct {
	Label *string
	Tags  []string
}

type widePtrDest struct {
	Label *string
	Tags  []string
}

func TestUnsafeOptimizationSkipsNonPrimitive(t *testing.T) {
	mapper := NewWithConfig(WithUnsafeOptimizations())
	CreateMap[widePtrSource, widePtrDest](mapper)

	label := "x"
	src := &widePtrSource{Label: &label, Tags: []string{"a"}}

	dest, err := Map[widePtrDest](mapper, src)
	require.NoError(t, err)
	require.NotNil(t, dest.Label)
	assert.Equal(t, "x", *dest.Label)
	assert.Equal(t, []string{"a"}, dest.Tags)
	assert.NotSame(t, src.Label, dest.Label)
}

type notConstructible interface{ anything() }

func TestNonStructDestinationCompileError(t *testing.T) {
	mapper := New()

	tm := &TypeMap{
		srcType:      reflect.TypeOf(SourceBasic{}),
		destType:     reflect.TypeOf((*notConstructible)(nil)).Elem(),
		ignoreFields: map[string]bool{},
	}

	_, err := mapper.compilePlan(tm)
	require.Error(t, err)

	var me *MappingError
	require.ErrorAs(t, err, &me)
	assert.Contains(t, me.Message, "constructible")
}
