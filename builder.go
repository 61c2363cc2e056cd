package remap

import (
	"reflect"
)

// TypeMapBuilder provides a fluent API for configuring type mappings.
// Every mutation evicts the pair's compiled plan so the configuration and
// the plan can never drift apart.
type TypeMapBuilder[TSrc, TDest any] struct {
	mapper  *Mapper
	typeMap *TypeMap
}

// invalidate drops the compiled plan for this builder's pair.
func (b *TypeMapBuilder[TSrc, TDest]) invalidate() {
	b.mapper.evictPlan(typePair{srcType: b.typeMap.srcType, destType: b.typeMap.destType})
}

// configPanic raises a configuration error. Configuration mistakes are
// programmer errors and fail loudly at registration time instead of being
// deferred to mapping time.
func configPanic(err *MappingError) {
	panic(err)
}

// ForMember configures a specific destination member mapping using a field
// selector. The selector function should access a field on the destination
// struct pointer:
//
//	CreateMap[Source, Dest](mapper).
//	    ForMember(func(d *Dest) any { return &d.Name }, MapFrom("FullName"))
//
// A selector that does not resolve to a destination member is a
// configuration error and panics.
func (b *TypeMapBuilder[TSrc, TDest]) ForMember(
	destMember func(*TDest) any,
	opts ...MemberOption,
) *TypeMapBuilder[TSrc, TDest] {
	destType := derefType(reflect.TypeOf((*TDest)(nil)).Elem())

	memberName := findMemberName(destMember, destType)
	if memberName == "" {
		configPanic(&MappingError{
			Message:  "member selector does not resolve to a destination member",
			SrcType:  b.typeMap.srcType,
			DestType: b.typeMap.destType,
		})
	}

	return b.ForMemberByName(memberName, opts...)
}

// ForMemberByName configures a specific destination member by name.
// An unknown member name is a configuration error and panics.
func (b *TypeMapBuilder[TSrc, TDest]) ForMemberByName(
	destMemberName string,
	opts ...MemberOption,
) *TypeMapBuilder[TSrc, TDest] {
	mm := b.typeMap.memberMapFor(destMemberName)

	if mm == nil {
		destInfo := b.mapper.config.typeCache.getTypeInfo(b.typeMap.destType)
		fi, ok := destInfo.fieldsByName[destMemberName]
		if !ok {
			configPanic(&MappingError{
				Message:   "unknown destination member",
				FieldName: destMemberName,
				SrcType:   b.typeMap.srcType,
				DestType:  b.typeMap.destType,
			})
		}
		mm = &MemberMap{
			destField:    destMemberName,
			destFieldIdx: fi.index,
		}
		b.typeMap.memberMaps = append(b.typeMap.memberMaps, mm)
	}

	for _, opt := range opts {
		opt(mm)
	}

	// An ignore always wins over any projection, regardless of the order the
	// rules were declared in.
	if mm.ignore {
		b.typeMap.ignoreFields[mm.destField] = true
	}

	b.invalidate()
	return b
}

// findMemberName resolves a selector function to a field name by comparing
// the address of the returned value against each field of a probe instance.
func findMemberName[TDest any](selector func(*TDest) any, destType reflect.Type) string {
	if destType.Kind() != reflect.Struct {
		return ""
	}

	var probe TDest
	result := selector(&probe)
	if result == nil {
		return ""
	}

	resultVal := reflect.ValueOf(result)
	if resultVal.Kind() != reflect.Ptr {
		return ""
	}
	resultPtr := resultVal.Pointer()

	probeVal := reflect.ValueOf(&probe).Elem()
	for i := 0; i < destType.NumField(); i++ {
		field := destType.Field(i)
		if !field.IsExported() {
			continue
		}
		fieldVal := probeVal.Field(i)
		if fieldVal.CanAddr() && fieldVal.Addr().Pointer() == resultPtr {
			return field.Name
		}
	}

	return ""
}

// MemberOption is a function that configures a member mapping.
type MemberOption func(*MemberMap)

// MapFrom configures the source field name for a destination member.
func MapFrom(srcFieldName string) MemberOption {
	return func(mm *MemberMap) {
		mm.srcField = srcFieldName
		mm.srcFieldIdx = nil
		mm.useFlattening = false
		mm.flattenPath = nil
	}
}

// MapFromFunc configures a value resolver for a destination member.
func MapFromFunc(resolver ValueResolver) MemberOption {
	return func(mm *MemberMap) {
		mm.resolver = resolver
	}
}

// Ignore configures a destination member to be ignored during mapping.
func Ignore() MemberOption {
	return func(mm *MemberMap) {
		mm.ignore = true
	}
}

// Condition configures a condition for mapping a destination member.
func Condition(cond ConditionFunc) MemberOption {
	return func(mm *MemberMap) {
		mm.condition = cond
	}
}

// NullSubstitute configures a value used in place of a nil source value for
// a destination member.
func NullSubstitute(value any) MemberOption {
	return func(mm *MemberMap) {
		mm.nullSubstitute = value
	}
}

// UseConverter configures a type converter for a destination member.
func UseConverter(converter TypeConverter) MemberOption {
	return func(mm *MemberMap) {
		mm.converter = converter
	}
}

// ConvertUsing registers a global type converter on the mapper.
func ConvertUsing[TSrc, TDest any](m *Mapper, converter func(TSrc) (TDest, error)) {
	srcType := reflect.TypeOf((*TSrc)(nil)).Elem()
	destType := reflect.TypeOf((*TDest)(nil)).Elem()

	key := typePair{srcType: srcType, destType: destType}

	m.config.mu.Lock()
	defer m.config.mu.Unlock()

	m.config.converters[key] = func(s any, _ reflect.Type) (any, error) {
		srcVal, ok := s.(TSrc)
		if !ok {
			return nil, &MappingError{
				Message: "invalid source type for converter",
			}
		}
		return converter(srcVal)
	}
}

// BeforeMap adds a function called after the destination is constructed but
// before any member is written.
func (b *TypeMapBuilder[TSrc, TDest]) BeforeMap(fn func(src *TSrc, dest *TDest) error) *TypeMapBuilder[TSrc, TDest] {
	b.typeMap.beforeMap = append(b.typeMap.beforeMap, wrapHook(fn))
	b.invalidate()
	return b
}

// AfterMap adds a function called after all member writes complete.
func (b *TypeMapBuilder[TSrc, TDest]) AfterMap(fn func(src *TSrc, dest *TDest) error) *TypeMapBuilder[TSrc, TDest] {
	b.typeMap.afterMap = append(b.typeMap.afterMap, wrapHook(fn))
	b.invalidate()
	return b
}

func wrapHook[TSrc, TDest any](fn func(src *TSrc, dest *TDest) error) BeforeAfterMapFunc {
	return func(s any, d any) error {
		srcPtr, ok := s.(*TSrc)
		if !ok {
			srcVal, ok := s.(TSrc)
			if !ok {
				return nil
			}
			srcPtr = &srcVal
		}
		destPtr, ok := d.(*TDest)
		if !ok {
			return nil
		}
		return fn(srcPtr, destPtr)
	}
}

// CustomMap sets a custom mapping function for the entire type, replacing
// member-by-member mapping.
func (b *TypeMapBuilder[TSrc, TDest]) CustomMap(fn func(src TSrc, dest *TDest) error) *TypeMapBuilder[TSrc, TDest] {
	b.typeMap.customMapper = func(s any, d any) error {
		srcVal, ok := s.(TSrc)
		if !ok {
			return &MappingError{Message: "invalid source type for custom mapper"}
		}
		destPtr, ok := d.(*TDest)
		if !ok {
			return &MappingError{Message: "invalid destination type for custom mapper"}
		}
		return fn(srcVal, destPtr)
	}
	b.invalidate()
	return b
}

// ConstructUsing sets a factory that builds the destination instance from
// the source, replacing default construction. The factory runs before any
// member is written.
func (b *TypeMapBuilder[TSrc, TDest]) ConstructUsing(fn func(src TSrc) TDest) *TypeMapBuilder[TSrc, TDest] {
	b.typeMap.constructor = func(src any) any {
		if s, ok := src.(TSrc); ok {
			return fn(s)
		}
		if sp, ok := src.(*TSrc); ok && sp != nil {
			return fn(*sp)
		}
		return nil
	}
	b.invalidate()
	return b
}

// MaxDepth sets the soft recursion limit for this pair. The engine enforces
// a hard ceiling derived from it; 0 means unlimited (the default safety
// ceiling still applies).
func (b *TypeMapBuilder[TSrc, TDest]) MaxDepth(n int) *TypeMapBuilder[TSrc, TDest] {
	b.typeMap.maxDepth = n
	b.invalidate()
	return b
}

// PreserveReferences makes repeated source identities within one mapping
// call map to a single shared destination instance, which also breaks true
// graph cycles.
func (b *TypeMapBuilder[TSrc, TDest]) PreserveReferences() *TypeMapBuilder[TSrc, TDest] {
	b.typeMap.preserveRefs = true
	b.invalidate()
	return b
}

// ReverseMap registers the inverse pair using the same convention-based
// registration and returns its builder. The reverse destination must have a
// default construction path; anything but a struct type panics as a
// configuration error.
func (b *TypeMapBuilder[TSrc, TDest]) ReverseMap() *TypeMapBuilder[TDest, TSrc] {
	srcType := derefType(reflect.TypeOf((*TSrc)(nil)).Elem())
	if srcType.Kind() != reflect.Struct {
		configPanic(&MappingError{
			Message:  "reverse mapping requires a default-constructible destination type",
			SrcType:  b.typeMap.destType,
			DestType: srcType,
		})
	}
	return CreateMap[TDest, TSrc](b.mapper)
}
