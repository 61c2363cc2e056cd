package remap

import (
	"reflect"
)

// MapTo performs in-place mapping from source onto an existing destination
// instance. It uses simple per-member reflective resolution rather than the
// compiled-plan path: custom rules, ignore lists and hooks are not consulted,
// and every name-matched destination member is overwritten unconditionally,
// including being set to nil when the source value is nil.
//
// A nil source or nil destination is a no-op. A member that cannot be read
// or written is skipped; one bad member never aborts the rest of the
// instance.
func MapTo[TDest any](m *Mapper, src any, dest *TDest) error {
	if src == nil || dest == nil {
		return nil
	}

	srcVal := derefValue(reflect.ValueOf(src))
	if !srcVal.IsValid() {
		return nil
	}

	destVal := reflect.ValueOf(dest).Elem()
	for destVal.Kind() == reflect.Ptr {
		if destVal.IsNil() {
			return nil
		}
		destVal = destVal.Elem()
	}

	if srcVal.Kind() != reflect.Struct || destVal.Kind() != reflect.Struct {
		return &MappingError{
			Message:  "in-place mapping requires struct values",
			SrcType:  srcVal.Type(),
			DestType: destVal.Type(),
		}
	}

	m.copyInto(srcVal, destVal)
	return nil
}

// MapInferred behaves like Map but resolves the source's type at runtime,
// for callers that only know the destination type statically. When the
// runtime pair has a registered configuration the compiled plan runs;
// otherwise a reflective fallback copies name-matched members, isolating
// per-member failures.
func MapInferred[TDest any](m *Mapper, src any) (TDest, error) {
	var dest TDest
	if src == nil {
		return dest, nil
	}

	rawSrc := reflect.ValueOf(src)
	srcVal := derefValue(rawSrc)
	if !srcVal.IsValid() {
		return dest, nil
	}

	destVal := reflect.ValueOf(&dest).Elem()
	destType := derefType(destVal.Type())

	if srcVal.Kind() == reflect.Struct && destType.Kind() == reflect.Struct {
		key := typePair{srcType: srcVal.Type(), destType: destType}
		if m.typeMapFor(key) != nil {
			return Map[TDest](m, src)
		}
	}

	target := destVal
	if destVal.Kind() == reflect.Ptr {
		nd := reflect.New(destVal.Type().Elem())
		destVal.Set(nd)
		target = nd.Elem()
	}

	if srcVal.Kind() == reflect.Struct && target.Kind() == reflect.Struct {
		m.copyInto(srcVal, target)
		return dest, nil
	}

	// Non-struct fallback: a plain converting assignment.
	if err := m.assignScalar(srcVal, target, nil); err != nil {
		var zero TDest
		return zero, err
	}
	return dest, nil
}

// copyInto copies every name-matched member from src onto dest. Members the
// source cannot provide or the destination cannot accept are left alone;
// failures stay local to the member.
func (m *Mapper) copyInto(src, dest reflect.Value) {
	srcInfo := m.config.typeCache.getTypeInfo(src.Type())
	destInfo := m.config.typeCache.getTypeInfo(dest.Type())

	for _, destField := range destInfo.fields {
		srcField, ok := srcInfo.fieldsByName[destField.name]
		if !ok {
			continue
		}

		sv := getNestedField(src, srcField.index)
		if !sv.IsValid() {
			continue
		}
		dv := fieldByIndexAlloc(dest, destField.index)
		if !dv.IsValid() || !dv.CanSet() {
			continue
		}

		m.copyMember(sv, dv)
	}
}

// copyMember writes one member, overwriting with nil when the source is nil.
// Unmappable combinations are skipped silently.
func (m *Mapper) copyMember(sv, dv reflect.Value) {
	// Nil source overwrites a nilable destination and skips otherwise.
	if isAbsent(sv) {
		switch dv.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
			dv.Set(reflect.Zero(dv.Type()))
		}
		return
	}

	if sv.Type().AssignableTo(dv.Type()) {
		dv.Set(sv)
		return
	}
	if sv.Type().ConvertibleTo(dv.Type()) {
		dv.Set(sv.Convert(dv.Type()))
		return
	}

	ssv := derefValue(sv)
	if !ssv.IsValid() {
		return
	}

	ddv := dv
	if ddv.Kind() == reflect.Ptr {
		if ddv.IsNil() {
			ddv.Set(reflect.New(ddv.Type().Elem()))
		}
		ddv = ddv.Elem()
	}

	switch {
	case ssv.Kind() == reflect.Struct && ddv.Kind() == reflect.Struct:
		m.copyInto(ssv, ddv)
	case ssv.Kind() == reflect.Slice && ddv.Kind() == reflect.Slice:
		out := reflect.MakeSlice(ddv.Type(), ssv.Len(), ssv.Len())
		for i := 0; i < ssv.Len(); i++ {
			m.copyMember(ssv.Index(i), out.Index(i))
		}
		ddv.Set(out)
	case ssv.Type().AssignableTo(ddv.Type()):
		ddv.Set(ssv)
	case ssv.Type().ConvertibleTo(ddv.Type()):
		ddv.Set(ssv.Convert(ddv.Type()))
	}
}
