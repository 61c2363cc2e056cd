package remap

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type statusCode int

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		want category
	}{
		{"int", reflect.TypeOf(0), catScalar},
		{"string", reflect.TypeOf(""), catScalar},
		{"bool", reflect.TypeOf(false), catScalar},
		{"float64", reflect.TypeOf(0.0), catScalar},
		{"named int", reflect.TypeOf(statusCode(0)), catScalar},
		{"duration", reflect.TypeOf(time.Duration(0)), catScalar},
		{"pointer to string", reflect.TypeOf((*string)(nil)), catScalar},
		{"time", reflect.TypeOf(time.Time{}), catScalar},
		{"pointer to time", reflect.TypeOf((*time.Time)(nil)), catScalar},
		{"uuid", reflect.TypeOf(uuid.UUID{}), catScalar},
		{"slice", reflect.TypeOf([]int(nil)), catSequence},
		{"array", reflect.TypeOf([3]string{}), catSequence},
		{"map", reflect.TypeOf(map[string]int(nil)), catSequence},
		{"struct", reflect.TypeOf(Address{}), catStructured},
		{"pointer to struct", reflect.TypeOf((*Address)(nil)), catStructured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.typ))
		})
	}
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "scalar", catScalar.String())
	assert.Equal(t, "sequence", catSequence.String())
	assert.Equal(t, "structured", catStructured.String())
}

func TestSplitPascalCase(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"CustomerName", []string{"Customer", "Name"}},
		{"Name", []string{"Name"}},
		{"OrderItemCount", []string{"Order", "Item", "Count"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitPascalCase(tt.in), tt.in)
	}
}
