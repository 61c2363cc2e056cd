package remap

import (
	"reflect"
	"time"

	"github.com/google/uuid"
)

// category is the mapping strategy class of a type: scalar values are
// assigned (possibly with conversion), sequences are mapped element-wise, and
// structured values are mapped recursively member-by-member.
type category int

const (
	catScalar category = iota
	catSequence
	catStructured
)

func (c category) String() string {
	switch c {
	case catScalar:
		return "scalar"
	case catSequence:
		return "sequence"
	default:
		return "structured"
	}
}

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
)

// classify assigns a mapping category to a type. Pointers are unwrapped
// first, so *T always classifies like T. It is total: every type falls into
// exactly one category.
//
// Scalar covers booleans, all numeric kinds, strings (never treated as a
// sequence despite being iterable), named types with those underlying kinds
// (enums, time.Duration), time.Time and uuid.UUID. Sequence covers slices,
// arrays and maps. Everything else, structs in particular, is structured.
func classify(t reflect.Type) category {
	t = derefType(t)

	switch t {
	case timeType, uuidType:
		return catScalar
	}

	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		return catScalar
	case reflect.Slice, reflect.Array, reflect.Map:
		return catSequence
	default:
		return catStructured
	}
}
