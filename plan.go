package remap

import (
	"reflect"
)

// plan is a compiled, reusable mapping function for one type pair. Steps
// operate on a dereferenced source struct and an addressable destination
// struct and share the context of the top-level call that invoked them.
type plan struct {
	pair  typePair
	tm    *TypeMap
	steps []planStep
}

// planStep writes one destination member.
type planStep func(src, dest reflect.Value, ctx *mappingContext) error

// planFor returns the compiled plan for a pair, compiling it on first use.
// Lookups for an already-compiled pair take only a read lock; first-time
// compilation is serialized per pair through singleflight so exactly one
// compilation happens no matter how many callers race.
func (m *Mapper) planFor(srcType, destType reflect.Type) (*plan, error) {
	key := typePair{srcType: srcType, destType: destType}

	m.config.mu.RLock()
	p := m.config.plans[key]
	m.config.mu.RUnlock()
	if p != nil {
		return p, nil
	}

	v, err, _ := m.config.compile.Do(key.String(), func() (any, error) {
		m.config.mu.RLock()
		p := m.config.plans[key]
		tm := m.config.typeMaps[key]
		m.config.mu.RUnlock()
		if p != nil {
			return p, nil
		}
		if tm == nil {
			tm = m.autoCreateTypeMap(srcType, destType)
		}

		p, err := m.compilePlan(tm)
		if err != nil {
			return nil, err
		}

		// Deposit only if the configuration compiled against is still the
		// registered one; a reset or re-registration racing with this
		// compilation must not seed the fresh memo with a stale plan.
		m.config.mu.Lock()
		if m.config.typeMaps[key] == tm {
			m.config.plans[key] = p
		}
		m.config.mu.Unlock()
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*plan), nil
}

// compilePlan turns a type map into an executable plan. Per destination
// member it decides between skip, custom rule, converter, unsafe primitive
// copy, scalar conversion, recursive structured mapping or sequence mapping.
func (m *Mapper) compilePlan(tm *TypeMap) (*plan, error) {
	if tm.destType.Kind() != reflect.Struct && tm.constructor == nil {
		return nil, &MappingError{
			Message:  "destination type is not constructible without a custom constructor",
			SrcType:  tm.srcType,
			DestType: tm.destType,
		}
	}

	p := &plan{
		pair: typePair{srcType: tm.srcType, destType: tm.destType},
		tm:   tm,
	}

	for _, mm := range tm.memberMaps {
		if mm.ignore || tm.ignoreFields[mm.destField] {
			continue
		}

		step, err := m.compileMemberStep(tm, mm)
		if err != nil {
			return nil, err
		}
		if step == nil {
			continue
		}
		if mm.condition != nil {
			step = conditionStep(mm.condition, step)
		}
		p.steps = append(p.steps, step)
	}

	return p, nil
}

// compileMemberStep emits the step for a single destination member, or nil
// when the member has nothing to do (no resolvable source, or a category
// mismatch no converter can bridge; the member then keeps its default).
func (m *Mapper) compileMemberStep(tm *TypeMap, mm *MemberMap) (planStep, error) {
	destFT := typeAtIndex(tm.destType, mm.destFieldIdx)
	if destFT == nil {
		return nil, nil
	}

	if mm.resolver != nil {
		return m.resolverStep(mm), nil
	}

	// Resolve the source field. MapFrom may have supplied only a name.
	srcIdx := mm.srcFieldIdx
	if len(srcIdx) == 0 {
		if mm.srcField == "" {
			return nil, nil
		}
		srcInfo := m.config.typeCache.getTypeInfo(tm.srcType)
		fi, ok := srcInfo.fieldsByName[mm.srcField]
		if !ok {
			return nil, nil
		}
		srcIdx = fi.index
	}
	srcFT := typeAtIndex(tm.srcType, srcIdx)
	if srcFT == nil {
		return nil, nil
	}

	if mm.converter != nil {
		return m.memberConverterStep(mm, srcIdx, destFT), nil
	}

	switch sc, dc := classify(srcFT), classify(destFT); {
	case sc == catScalar && dc == catScalar:
		if step := m.unsafeStep(mm, srcIdx, srcFT, destFT); step != nil {
			return step, nil
		}
		return m.scalarStep(mm, srcIdx), nil
	case sc == catStructured && dc == catStructured:
		return m.structuredStep(mm, srcIdx), nil
	case sc == catSequence && dc == catSequence:
		return m.sequenceStep(mm, srcIdx), nil
	default:
		// Cross-category assignment only when the language already allows it
		// (e.g. string <-> []byte) or a registered converter bridges the pair.
		if srcFT.AssignableTo(destFT) || srcFT.ConvertibleTo(destFT) {
			return m.scalarStep(mm, srcIdx), nil
		}
		if m.converterFor(derefType(srcFT), derefType(destFT)) != nil {
			return m.scalarStep(mm, srcIdx), nil
		}
		return nil, nil
	}
}

// conditionStep gates an inner step on the member's condition, evaluated
// against the source instance.
func conditionStep(cond ConditionFunc, inner planStep) planStep {
	return func(src, dest reflect.Value, ctx *mappingContext) error {
		if !cond(src.Interface()) {
			return nil
		}
		return inner(src, dest, ctx)
	}
}

// resolverStep evaluates the member's custom projection and assigns its
// result by runtime category dispatch.
func (m *Mapper) resolverStep(mm *MemberMap) planStep {
	resolver := mm.resolver
	destIdx := mm.destFieldIdx
	nullSub := mm.nullSubstitute
	name := mm.destField

	return func(src, dest reflect.Value, ctx *mappingContext) error {
		result, err := resolver(src.Interface(), dest.Addr().Interface())
		if err != nil {
			return &MappingError{
				Message:    "resolver error",
				FieldName:  name,
				InnerError: err,
			}
		}

		var sv reflect.Value
		if result != nil {
			sv = reflect.ValueOf(result)
		}
		dv := fieldByIndexAlloc(dest, destIdx)
		if !dv.IsValid() {
			return nil
		}
		return fieldError(name, m.assignMapped(sv, dv, ctx, nullSub))
	}
}

// memberConverterStep applies the member's converter to the raw source value.
func (m *Mapper) memberConverterStep(mm *MemberMap, srcIdx []int, destFT reflect.Type) planStep {
	converter := mm.converter
	destIdx := mm.destFieldIdx
	nullSub := mm.nullSubstitute
	name := mm.destField

	return func(src, dest reflect.Value, ctx *mappingContext) error {
		sv := getNestedField(src, srcIdx)
		if !sv.IsValid() {
			return nil
		}
		result, err := converter(sv.Interface(), destFT)
		if err != nil {
			return &MappingError{
				Message:    "converter error",
				FieldName:  name,
				InnerError: err,
			}
		}

		var rv reflect.Value
		if result != nil {
			rv = reflect.ValueOf(result)
		}
		dv := fieldByIndexAlloc(dest, destIdx)
		if !dv.IsValid() {
			return nil
		}
		return fieldError(name, m.assignMapped(rv, dv, ctx, nullSub))
	}
}

// scalarStep copies a scalar member, converting representations as needed.
func (m *Mapper) scalarStep(mm *MemberMap, srcIdx []int) planStep {
	destIdx := mm.destFieldIdx
	nullSub := mm.nullSubstitute
	name := mm.destField

	return func(src, dest reflect.Value, ctx *mappingContext) error {
		sv := getNestedField(src, srcIdx)
		dv := fieldByIndexAlloc(dest, destIdx)
		if !dv.IsValid() {
			return nil
		}
		return fieldError(name, m.assignScalar(sv, dv, nullSub))
	}
}

// structuredStep recursively maps a structured member through the shared
// context.
func (m *Mapper) structuredStep(mm *MemberMap, srcIdx []int) planStep {
	destIdx := mm.destFieldIdx
	name := mm.destField

	return func(src, dest reflect.Value, ctx *mappingContext) error {
		sv := getNestedField(src, srcIdx)
		if !sv.IsValid() {
			return nil
		}
		dv := fieldByIndexAlloc(dest, destIdx)
		if !dv.IsValid() {
			return nil
		}
		return fieldError(name, m.mapStructured(sv, dv, ctx))
	}
}

// sequenceStep maps a sequence member element-wise.
func (m *Mapper) sequenceStep(mm *MemberMap, srcIdx []int) planStep {
	destIdx := mm.destFieldIdx
	name := mm.destField

	return func(src, dest reflect.Value, ctx *mappingContext) error {
		sv := getNestedField(src, srcIdx)
		if !sv.IsValid() {
			return nil
		}
		dv := fieldByIndexAlloc(dest, destIdx)
		if !dv.IsValid() {
			return nil
		}
		return fieldError(name, m.mapSequence(sv, dv, ctx))
	}
}

// typeAtIndex resolves the type reached by a (possibly flattened) field index
// path, or nil when the path does not resolve.
func typeAtIndex(t reflect.Type, idx []int) reflect.Type {
	for _, i := range idx {
		t = derefType(t)
		if t.Kind() != reflect.Struct || i >= t.NumField() {
			return nil
		}
		t = t.Field(i).Type
	}
	return t
}

// fieldError stamps the destination field name onto a fresh mapping error.
func fieldError(name string, err error) error {
	if err == nil {
		return nil
	}
	if me, ok := err.(*MappingError); ok && me.FieldName == "" {
		me.FieldName = name
	}
	return err
}
