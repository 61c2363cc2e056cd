package remap

import (
	"testing"
)

type benchSource struct {
	ID     int
	Name   string
	Email  string
	Age    int
	Score  float64
	Active bool
}

type benchDest struct {
	ID     int
	Name   string
	Email  string
	Age    int
	Score  float64
	Active bool
}

var benchInput = benchSource{
	ID:     42,
	Name:   "Benchmark User",
	Email:  "bench@example.com",
	Age:    30,
	Score:  99.5,
	Active: true,
}

func BenchmarkManualMapping(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		dest := benchDest{
			ID:     benchInput.ID,
			Name:   benchInput.Name,
			Email:  benchInput.Email,
			Age:    benchInput.Age,
			Score:  benchInput.Score,
			Active: benchInput.Active,
		}
		_ = dest
	}
}

func BenchmarkMap(b *testing.B) {
	mapper := New()
	CreateMap[benchSource, benchDest](mapper)

	// Warm the plan so the loop measures steady-state mapping only.
	if _, err := Map[benchDest](mapper, benchInput); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Map[benchDest](mapper, benchInput); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMapUnsafe(b *testing.B) {
	mapper := NewWithConfig(WithUnsafeOptimizations())
	CreateMap[benchSource, benchDest](mapper)

	src := &benchInput
	if _, err := Map[benchDest](mapper, src); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Map[benchDest](mapper, src); err != nil {
			b.Fatal(err)
		}
	}
}

type benchNestedSource struct {
	ID    int
	Inner benchSource
	Items []benchSource
}

type benchNestedDest struct {
	ID    int
	Inner benchDest
	Items []benchDest
}

func BenchmarkMapNested(b *testing.B) {
	mapper := New()
	CreateMap[benchNestedSource, benchNestedDest](mapper)

	src := benchNestedSource{
		ID:    1,
		Inner: benchInput,
		Items: []benchSource{benchInput, benchInput, benchInput},
	}
	if _, err := Map[benchNestedDest](mapper, src); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Map[benchNestedDest](mapper, src); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMapSlice(b *testing.B) {
	mapper := New()
	CreateMap[benchSource, benchDest](mapper)

	src := make([]benchSource, 100)
	for i := range src {
		src[i] = benchInput
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := MapSlice[benchSource, benchDest](mapper, src); err != nil {
			b.Fatal(err)
		}
	}
}
