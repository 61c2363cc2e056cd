package remap

import (
	"fmt"
	"reflect"
)

// Patch maps source to a new destination instance with patch semantics: a
// destination member is written only when the resolved source value is
// present (non-nil for pointers, interfaces, slices and maps). Non-nilable
// value members are always present.
func Patch[TDest any](m *Mapper, src any) (TDest, error) {
	var dest TDest
	err := PatchInto(m, src, &dest)
	return dest, err
}

// PatchSlice patches a slice of source objects into a slice of new
// destination objects, preserving order. A nil input yields a nil output.
func PatchSlice[TSrc, TDest any](m *Mapper, src []TSrc) ([]TDest, error) {
	if src == nil {
		return nil, nil
	}

	result := make([]TDest, len(src))
	for i, s := range src {
		dest, err := Patch[TDest](m, s)
		if err != nil {
			return nil, &MappingError{
				Message:    fmt.Sprintf("error patching element at index %d", i),
				InnerError: err,
			}
		}
		result[i] = dest
	}
	return result, nil
}

// PatchInto performs a selective field-level update of an existing
// destination: any destination member whose source counterpart is absent is
// left completely untouched. The defining use case is a partial-update
// request whose unset fields must not clobber existing values.
//
// Nested structured members follow the same presence rule recursively; a
// source entirely composed of absent values leaves the destination
// structurally unchanged. A nil source or nil destination is a no-op.
func PatchInto[TDest any](m *Mapper, src any, dest *TDest) error {
	if src == nil || dest == nil {
		return nil
	}

	srcVal := derefValue(reflect.ValueOf(src))
	if !srcVal.IsValid() {
		return nil
	}

	destVal := reflect.ValueOf(dest).Elem()
	if destVal.Kind() == reflect.Ptr {
		if destVal.IsNil() {
			destVal.Set(reflect.New(destVal.Type().Elem()))
		}
		destVal = destVal.Elem()
	}

	if srcVal.Kind() != reflect.Struct || destVal.Kind() != reflect.Struct {
		return &MappingError{
			Message:  "patching requires struct values",
			SrcType:  srcVal.Type(),
			DestType: destVal.Type(),
		}
	}

	m.patchStruct(srcVal, destVal)
	return nil
}

// patchStruct applies the presence-gated write policy member by member.
// Like the other reflective paths, a member that cannot be mapped is skipped
// rather than aborting the instance.
func (m *Mapper) patchStruct(src, dest reflect.Value) {
	srcInfo := m.config.typeCache.getTypeInfo(src.Type())
	destInfo := m.config.typeCache.getTypeInfo(dest.Type())

	for _, destField := range destInfo.fields {
		srcField, ok := srcInfo.fieldsByName[destField.name]
		if !ok {
			continue
		}

		sv := getNestedField(src, srcField.index)
		if !sv.IsValid() || isAbsent(sv) {
			continue
		}
		dv := fieldByIndexAlloc(dest, destField.index)
		if !dv.IsValid() || !dv.CanSet() {
			continue
		}

		m.patchMember(sv, dv)
	}
}

// patchMember writes one present member. Present structured values recurse
// with the same policy so a nested partial update also leaves its unset
// fields alone.
func (m *Mapper) patchMember(sv, dv reflect.Value) {
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

	if ssv.Kind() == reflect.Struct && ddv.Kind() == reflect.Struct && ssv.Type() != ddv.Type() {
		m.patchStruct(ssv, ddv)
		return
	}
	if ssv.Kind() == reflect.Struct && ddv.Kind() == reflect.Struct && ssv.Type() == ddv.Type() && hasNilableFields(ssv.Type()) {
		m.patchStruct(ssv, ddv)
		return
	}

	switch {
	case ssv.Type().AssignableTo(ddv.Type()):
		ddv.Set(ssv)
	case ssv.Type().ConvertibleTo(ddv.Type()):
		ddv.Set(ssv.Convert(ddv.Type()))
	}
}

// hasNilableFields reports whether a struct type has any member that can
// carry an "unset" state, which is what makes recursive patching meaningful
// for it.
func hasNilableFields(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		switch t.Field(i).Type.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
			return true
		}
	}
	return false
}
