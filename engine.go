package remap

import (
	"fmt"
	"reflect"
)

// MappingError represents an error that occurred during mapping.
type MappingError struct {
	Message    string
	SrcType    reflect.Type
	DestType   reflect.Type
	FieldName  string
	InnerError error
}

func (e *MappingError) Error() string {
	if e.FieldName != "" {
		return fmt.Sprintf("mapping error for field '%s' (%v -> %v): %s",
			e.FieldName, e.SrcType, e.DestType, e.Message)
	}
	if e.SrcType != nil && e.DestType != nil {
		return fmt.Sprintf("mapping error (%v -> %v): %s", e.SrcType, e.DestType, e.Message)
	}
	return fmt.Sprintf("mapping error: %s", e.Message)
}

func (e *MappingError) Unwrap() error {
	return e.InnerError
}

// Map performs mapping from source to a new destination instance using the
// compiled plan for the pair. A nil source yields the zero destination with
// no construction and no hooks.
func Map[TDest any](m *Mapper, src any) (TDest, error) {
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
	var target reflect.Value
	if destVal.Kind() == reflect.Ptr {
		target = reflect.New(destVal.Type().Elem())
		destVal.Set(target)
	} else {
		target = destVal.Addr()
	}

	var ident uintptr
	if rawSrc.Kind() == reflect.Ptr {
		ident = rawSrc.Pointer()
	}

	if err := m.mapNewValue(srcVal, target, ident); err != nil {
		var zero TDest
		return zero, err
	}
	return dest, nil
}

// MapSlice maps a slice of source objects to a slice of destination objects.
// A nil input yields a nil output (unless WithEmptyCollections is set); an
// empty input yields an empty, non-nil output. Each element is mapped with
// its own fresh context, so identity tracking never spans elements.
func MapSlice[TSrc, TDest any](m *Mapper, src []TSrc) ([]TDest, error) {
	if src == nil {
		if m.config.emptyColl {
			return []TDest{}, nil
		}
		return nil, nil
	}

	result := make([]TDest, len(src))
	for i, s := range src {
		dest, err := Map[TDest](m, s)
		if err != nil {
			return nil, &MappingError{
				Message:    fmt.Sprintf("error mapping element at index %d", i),
				InnerError: err,
			}
		}
		result[i] = dest
	}
	return result, nil
}

// mapNewValue maps a dereferenced source value into the value pointed to by
// target, creating the context for the whole call. ident is the source's
// pointer identity when the caller held one.
func (m *Mapper) mapNewValue(srcVal, target reflect.Value, ident uintptr) error {
	destElem := target.Type().Elem()

	if srcVal.Kind() == reflect.Struct && destElem.Kind() == reflect.Struct {
		if done, err := m.applyConverter(srcVal, target.Elem()); done {
			return err
		}

		p, err := m.planFor(srcVal.Type(), destElem)
		if err != nil {
			return err
		}
		tm := p.tm

		ctx := newMappingContext(tm.maxDepth, tm.preserveRefs, m.config.logger)
		if err := m.constructInto(tm, srcVal, target); err != nil {
			return err
		}
		ctx.remember(ident, target.Type(), target)
		return m.runPlan(p, srcVal, target, ctx)
	}

	ctx := newMappingContext(0, false, m.config.logger)
	return m.assignMapped(srcVal, target.Elem(), ctx, nil)
}

// runPlan executes a compiled plan: before hooks, member steps (or the
// custom mapper), then after hooks. srcVal must be a dereferenced struct and
// destPtr a pointer to the destination struct.
func (m *Mapper) runPlan(p *plan, srcVal, destPtr reflect.Value, ctx *mappingContext) error {
	tm := p.tm
	destVal := destPtr.Elem()

	for _, beforeFn := range tm.beforeMap {
		if err := beforeFn(srcVal.Interface(), destPtr.Interface()); err != nil {
			return err
		}
	}

	if tm.customMapper != nil {
		return tm.customMapper(srcVal.Interface(), destPtr.Interface())
	}

	for _, step := range p.steps {
		if err := step(srcVal, destVal, ctx); err != nil {
			return err
		}
	}

	for _, afterFn := range tm.afterMap {
		if err := afterFn(srcVal.Interface(), destPtr.Interface()); err != nil {
			return err
		}
	}

	return nil
}

// constructInto applies the pair's custom constructor, if any. Without one
// the destination keeps its default-constructed value.
func (m *Mapper) constructInto(tm *TypeMap, srcVal, destPtr reflect.Value) error {
	if tm == nil || tm.constructor == nil {
		return nil
	}
	result := tm.constructor(srcVal.Interface())
	if result == nil {
		return nil
	}
	rv := derefValue(reflect.ValueOf(result))
	if !rv.IsValid() {
		return nil
	}
	if !rv.Type().AssignableTo(destPtr.Type().Elem()) {
		return &MappingError{
			Message:  "constructor returned incompatible type",
			SrcType:  rv.Type(),
			DestType: destPtr.Type().Elem(),
		}
	}
	destPtr.Elem().Set(rv)
	return nil
}

// mapStructured recursively maps a structured value into dv, consulting the
// context for identity and recursion safety. The destination is registered
// in the context before its members are written, so cyclic back-references
// resolve to the instance still being populated.
func (m *Mapper) mapStructured(sv, dv reflect.Value, ctx *mappingContext) error {
	if sv.Kind() == reflect.Interface {
		if sv.IsNil() {
			return nil
		}
		sv = sv.Elem()
	}

	var ident uintptr
	if sv.Kind() == reflect.Ptr {
		if sv.IsNil() {
			return nil
		}
		ident = sv.Pointer()
	}

	destType := dv.Type()

	// With preservation on, a repeated source identity resolves to the
	// destination already produced for it. Without preservation every
	// occurrence gets its own instance; only the depth ceiling stops a true
	// cycle then.
	if ident != 0 && ctx.preserve && destType.Kind() == reflect.Ptr {
		if cached, ok := ctx.lookup(ident, destType); ok {
			dv.Set(cached)
			return nil
		}
	}

	srcStruct := derefValue(sv)
	if !srcStruct.IsValid() {
		return nil
	}

	// A registered converter for the pair replaces recursive member mapping.
	if done, err := m.applyConverter(srcStruct, dv); done {
		return err
	}

	if !ctx.descend(srcStruct.Type(), destType) {
		return nil
	}

	destElemType := derefType(destType)
	if destElemType.Kind() != reflect.Struct {
		// Interface-typed destination member: only a direct assignment can
		// serve it.
		if sv.Type().AssignableTo(destType) {
			dv.Set(sv)
		}
		return nil
	}

	p, err := m.planFor(srcStruct.Type(), destElemType)
	if err != nil {
		return err
	}

	if destType.Kind() == reflect.Ptr {
		nd := reflect.New(destElemType)
		if err := m.constructInto(p.tm, srcStruct, nd); err != nil {
			return err
		}
		ctx.remember(ident, destType, nd)
		if err := m.runPlan(p, srcStruct, nd, ctx); err != nil {
			return err
		}
		dv.Set(nd)
		return nil
	}

	if err := m.constructInto(p.tm, srcStruct, dv.Addr()); err != nil {
		return err
	}
	ctx.remember(ident, reflect.PtrTo(destType), dv.Addr())
	return m.runPlan(p, srcStruct, dv.Addr(), ctx)
}

// mapSequence maps a slice, array or map value into dv. Nil inputs are
// preserved as nil unless WithEmptyCollections is configured.
func (m *Mapper) mapSequence(sv, dv reflect.Value, ctx *mappingContext) error {
	if sv.Kind() == reflect.Interface {
		if sv.IsNil() {
			return nil
		}
		sv = sv.Elem()
	}
	if sv.Kind() == reflect.Ptr {
		if sv.IsNil() {
			return nil
		}
		sv = sv.Elem()
	}

	if done, err := m.applyConverter(sv, dv); done {
		return err
	}

	destType := dv.Type()
	if destType.Kind() == reflect.Ptr {
		if dv.IsNil() {
			dv.Set(reflect.New(destType.Elem()))
		}
		return m.mapSequence(sv, dv.Elem(), ctx)
	}

	switch sv.Kind() {
	case reflect.Slice:
		if sv.IsNil() {
			m.setEmptySequence(dv)
			return nil
		}
		return m.mapSliceValue(sv, dv, ctx)
	case reflect.Array:
		return m.mapSliceValue(sv, dv, ctx)
	case reflect.Map:
		if sv.IsNil() {
			m.setEmptySequence(dv)
			return nil
		}
		return m.mapMapValue(sv, dv, ctx)
	default:
		return &MappingError{
			Message:  "source is not a sequence",
			SrcType:  sv.Type(),
			DestType: destType,
		}
	}
}

// setEmptySequence applies the nil-collection policy for a nil source.
func (m *Mapper) setEmptySequence(dv reflect.Value) {
	if !m.config.emptyColl {
		return
	}
	switch dv.Kind() {
	case reflect.Slice:
		dv.Set(reflect.MakeSlice(dv.Type(), 0, 0))
	case reflect.Map:
		dv.Set(reflect.MakeMap(dv.Type()))
	}
}

// mapSliceValue maps slice/array contents element-wise, preserving order.
func (m *Mapper) mapSliceValue(sv, dv reflect.Value, ctx *mappingContext) error {
	destType := dv.Type()
	n := sv.Len()

	var out reflect.Value
	switch destType.Kind() {
	case reflect.Slice:
		out = reflect.MakeSlice(destType, n, n)
	case reflect.Array:
		if destType.Len() < n {
			n = destType.Len()
		}
		out = reflect.New(destType).Elem()
	default:
		return &MappingError{
			Message:  "incompatible sequence kinds",
			SrcType:  sv.Type(),
			DestType: destType,
		}
	}

	for i := 0; i < n; i++ {
		if err := m.assignMapped(sv.Index(i), out.Index(i), ctx, nil); err != nil {
			return &MappingError{
				Message:    fmt.Sprintf("error mapping sequence element at index %d", i),
				InnerError: err,
			}
		}
	}

	dv.Set(out)
	return nil
}

// mapMapValue maps map contents. Keys convert directly; values go through
// full category dispatch.
func (m *Mapper) mapMapValue(sv, dv reflect.Value, ctx *mappingContext) error {
	destType := dv.Type()
	if destType.Kind() != reflect.Map {
		return &MappingError{
			Message:  "incompatible sequence kinds",
			SrcType:  sv.Type(),
			DestType: destType,
		}
	}

	destMap := reflect.MakeMapWithSize(destType, sv.Len())
	destKeyType := destType.Key()
	destValType := destType.Elem()

	iter := sv.MapRange()
	for iter.Next() {
		srcKey := iter.Key()

		destKey := reflect.New(destKeyType).Elem()
		if srcKey.Type().AssignableTo(destKeyType) {
			destKey.Set(srcKey)
		} else if srcKey.Type().ConvertibleTo(destKeyType) {
			destKey.Set(srcKey.Convert(destKeyType))
		} else {
			return &MappingError{
				Message:  "cannot convert map key",
				SrcType:  srcKey.Type(),
				DestType: destKeyType,
			}
		}

		destMapVal := reflect.New(destValType).Elem()
		if err := m.assignMapped(iter.Value(), destMapVal, ctx, nil); err != nil {
			return err
		}

		destMap.SetMapIndex(destKey, destMapVal)
	}

	dv.Set(destMap)
	return nil
}

// assignMapped assigns a value of dynamic type into dv, dispatching on the
// runtime categories of both sides. Used where the source type is only known
// at execution time (resolver results, converter results, sequence elements,
// map values).
func (m *Mapper) assignMapped(sv, dv reflect.Value, ctx *mappingContext, nullSub any) error {
	if sv.Kind() == reflect.Interface {
		if sv.IsNil() {
			sv = reflect.Value{}
		} else {
			sv = sv.Elem()
		}
	}

	if isAbsent(sv) {
		if nullSub != nil {
			sv = reflect.ValueOf(nullSub)
		} else {
			switch dv.Kind() {
			case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
				return nil
			}
			if !sv.IsValid() {
				return nil
			}
			return &MappingError{
				Message:  "cannot map nil value into non-nilable destination",
				SrcType:  sv.Type(),
				DestType: dv.Type(),
			}
		}
	}

	switch sc, dc := classify(sv.Type()), classify(dv.Type()); {
	case sc == catScalar && dc == catScalar:
		return m.assignScalar(sv, dv, nil)
	case sc == catStructured && dc == catStructured:
		return m.mapStructured(sv, dv, ctx)
	case sc == catSequence && dc == catSequence:
		return m.mapSequence(sv, dv, ctx)
	default:
		if done, err := m.applyConverter(sv, dv); done {
			return err
		}
		if sv.Type().AssignableTo(dv.Type()) {
			dv.Set(sv)
			return nil
		}
		if sv.Type().ConvertibleTo(dv.Type()) {
			dv.Set(sv.Convert(dv.Type()))
			return nil
		}
		return &MappingError{
			Message:  "incompatible types",
			SrcType:  sv.Type(),
			DestType: dv.Type(),
		}
	}
}

// assignScalar copies a scalar into dv, unwrapping and allocating pointers
// and converting representations. An invalid source (unresolvable flattened
// path) leaves the destination at its default; a present-but-nil source into
// a non-pointer destination is an execution-time error unless a null
// substitute is configured.
func (m *Mapper) assignScalar(sv, dv reflect.Value, nullSub any) error {
	if sv.Kind() == reflect.Interface && !sv.IsNil() {
		sv = sv.Elem()
	}

	if !sv.IsValid() {
		if nullSub == nil {
			return nil
		}
		sv = reflect.ValueOf(nullSub)
	} else if (sv.Kind() == reflect.Ptr || sv.Kind() == reflect.Interface) && sv.IsNil() {
		if nullSub != nil {
			sv = reflect.ValueOf(nullSub)
		} else {
			if dv.Kind() == reflect.Ptr || dv.Kind() == reflect.Interface {
				return nil
			}
			return &MappingError{
				Message:  "cannot assign nil value to non-pointer destination",
				SrcType:  sv.Type(),
				DestType: dv.Type(),
			}
		}
	}

	sv = derefValue(sv)
	if !sv.IsValid() {
		return nil
	}

	dest := dv
	if dest.Kind() == reflect.Ptr {
		if dest.IsNil() {
			dest.Set(reflect.New(dest.Type().Elem()))
		}
		dest = dest.Elem()
	}

	srcType := sv.Type()
	destType := dest.Type()

	// Registered global converters take precedence, so a converter added
	// after plan compilation is still honored.
	if conv := m.converterFor(srcType, destType); conv != nil {
		result, err := conv(sv.Interface(), destType)
		if err != nil {
			return err
		}
		if result == nil {
			return nil
		}
		rv := reflect.ValueOf(result)
		if !rv.Type().AssignableTo(destType) {
			return &MappingError{
				Message:  "converter returned incompatible type",
				SrcType:  rv.Type(),
				DestType: destType,
			}
		}
		dest.Set(rv)
		return nil
	}

	if srcType.AssignableTo(destType) {
		dest.Set(sv)
		return nil
	}
	if srcType.ConvertibleTo(destType) {
		dest.Set(sv.Convert(destType))
		return nil
	}

	return &MappingError{
		Message:  "incompatible scalar types",
		SrcType:  srcType,
		DestType: destType,
	}
}

// applyConverter runs the registered global converter for the value pair, if
// any, writing the result into dv. Looked up at execution time like the scalar
// path, so converters registered after plan compilation are still honored.
// Reports whether a converter handled the pair.
func (m *Mapper) applyConverter(sv, dv reflect.Value) (bool, error) {
	destType := dv.Type()
	if destType.Kind() == reflect.Ptr {
		destType = destType.Elem()
	}

	conv := m.converterFor(sv.Type(), destType)
	if conv == nil {
		return false, nil
	}

	result, err := conv(sv.Interface(), destType)
	if err != nil {
		return true, err
	}
	if result == nil {
		return true, nil
	}
	rv := reflect.ValueOf(result)
	if !rv.Type().AssignableTo(destType) {
		return true, &MappingError{
			Message:  "converter returned incompatible type",
			SrcType:  rv.Type(),
			DestType: destType,
		}
	}

	dest := dv
	if dest.Kind() == reflect.Ptr {
		if dest.IsNil() {
			dest.Set(reflect.New(destType))
		}
		dest = dest.Elem()
	}
	dest.Set(rv)
	return true, nil
}

// isAbsent reports whether a source value carries no usable content.
func isAbsent(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// derefValue dereferences pointer and interface values, returning an invalid
// value on nil.
func derefValue(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// fieldByIndexAlloc resolves a destination field through a promoted index
// path, allocating nil embedded pointers along the way so the leaf is
// settable. FieldByIndex would panic on a nil embedded pointer instead.
// Returns an invalid value when an intermediate pointer cannot be allocated.
func fieldByIndexAlloc(v reflect.Value, indices []int) reflect.Value {
	for n, idx := range indices {
		if n > 0 && v.Kind() == reflect.Ptr {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(idx)
	}
	return v
}

// getNestedField reads a field through a (possibly flattened) index path,
// dereferencing intermediate pointers. Returns an invalid value when any
// intermediate is nil or the path does not resolve.
func getNestedField(v reflect.Value, indices []int) reflect.Value {
	v = derefValue(v)
	if !v.IsValid() {
		return reflect.Value{}
	}

	for n, idx := range indices {
		if n > 0 {
			v = derefValue(v)
			if !v.IsValid() {
				return reflect.Value{}
			}
		}
		if v.Kind() != reflect.Struct || idx >= v.NumField() {
			return reflect.Value{}
		}
		v = v.Field(idx)
	}

	return v
}
