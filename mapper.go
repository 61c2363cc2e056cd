// Package remap provides object-to-object property mapping for Go,
//
// Key features:
//   - Automatic mapping between structs based on field name matching
//   - Compiled, memoized mapping plans per type pair
//   - Support for nested struct mapping and slice/array/map mapping
//   - Custom type converters and per-member value resolvers
//   - Conditional mapping, null substitution, ignore rules
//   - Cycle detection with optional reference preservation
//   - Patch (null-skipping) variant for partial updates
//
// Basic usage:
//
//	mapper := remap.New()
//	remap.CreateMap[Source, Dest](mapper)
//	dest, err := remap.Map[Dest](mapper, source)
package remap

import (
	"log/slog"
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Mapper is the mapping engine. It owns the registered type maps, the global
// converters and the compiled-plan memo, and is safe for concurrent use.
type Mapper struct {
	config *mapperConfig
}

// mapperConfig holds all mapping configuration and compiled state.
type mapperConfig struct {
	mu         sync.RWMutex
	typeMaps   map[typePair]*TypeMap
	converters map[typePair]TypeConverter
	plans      map[typePair]*plan
	typeCache  *typeCache

	// compile serializes first-time plan compilation per type pair.
	compile singleflight.Group

	emptyColl bool
	useUnsafe bool
	logger    *slog.Logger
}

// typePair uniquely identifies a source-destination type pair.
type typePair struct {
	srcType  reflect.Type
	destType reflect.Type
}

func (p typePair) String() string {
	return p.srcType.String() + "->" + p.destType.String()
}

// TypeMap represents the mapping configuration between two types.
type TypeMap struct {
	srcType      reflect.Type
	destType     reflect.Type
	memberMaps   []*MemberMap
	ignoreFields map[string]bool
	customMapper CustomMapperFunc
	beforeMap    []BeforeAfterMapFunc
	afterMap     []BeforeAfterMapFunc
	constructor  ConstructorFunc
	maxDepth     int
	preserveRefs bool
}

// MemberMap represents the mapping configuration for a single member/field.
type MemberMap struct {
	destField      string
	destFieldIdx   []int
	srcField       string
	srcFieldIdx    []int
	resolver       ValueResolver
	converter      TypeConverter
	condition      ConditionFunc
	nullSubstitute any
	ignore         bool
	useFlattening  bool
	flattenPath    []string
}

// TypeConverter is a function that converts from one type to another.
type TypeConverter func(src any, destType reflect.Type) (any, error)

// ValueResolver is a function that resolves a value for a destination field.
type ValueResolver func(src any, dest any) (any, error)

// CustomMapperFunc is a function that performs custom mapping between types.
type CustomMapperFunc func(src any, dest any) error

// BeforeAfterMapFunc is a function called before or after mapping.
type BeforeAfterMapFunc func(src any, dest any) error

// ConditionFunc determines if a member should be mapped.
type ConditionFunc func(src any) bool

// ConstructorFunc builds the destination instance for a source instance,
// replacing default construction.
type ConstructorFunc func(src any) any

// New creates a new Mapper with default configuration.
func New() *Mapper {
	return &Mapper{
		config: &mapperConfig{
			typeMaps:   make(map[typePair]*TypeMap),
			converters: make(map[typePair]TypeConverter),
			plans:      make(map[typePair]*plan),
			typeCache:  newTypeCache(),
		},
	}
}

// NewWithConfig creates a new Mapper with custom configuration options.
func NewWithConfig(opts ...ConfigOption) *Mapper {
	m := New()
	for _, opt := range opts {
		opt(m.config)
	}
	return m
}

// ConfigOption is a function that configures the mapper.
type ConfigOption func(*mapperConfig)

// WithEmptyCollections makes nil source collections map to empty (non-nil)
// destination collections. By default nil collections are preserved as nil.
func WithEmptyCollections() ConfigOption {
	return func(c *mapperConfig) {
		c.emptyColl = true
	}
}

// WithUnsafeOptimizations enables unsafe pointer copies for same-type
// primitive fields. This provides a performance improvement but uses unsafe
// operations; only use it when you understand the implications.
func WithUnsafeOptimizations() ConfigOption {
	return func(c *mapperConfig) {
		c.useUnsafe = true
	}
}

// WithLogger sets a logger used for diagnostic events, such as recursion
// branches truncated by the depth ceiling. Without a logger the engine stays
// silent.
func WithLogger(logger *slog.Logger) ConfigOption {
	return func(c *mapperConfig) {
		c.logger = logger
	}
}

// CreateMap creates a mapping configuration between source and destination
// types and returns a TypeMapBuilder for further configuration.
// Re-registering a pair replaces its configuration and evicts any compiled
// plan for that pair.
func CreateMap[TSrc, TDest any](m *Mapper) *TypeMapBuilder[TSrc, TDest] {
	srcType := derefType(reflect.TypeOf((*TSrc)(nil)).Elem())
	destType := derefType(reflect.TypeOf((*TDest)(nil)).Elem())

	key := typePair{srcType: srcType, destType: destType}

	tm := &TypeMap{
		srcType:      srcType,
		destType:     destType,
		memberMaps:   make([]*MemberMap, 0),
		ignoreFields: make(map[string]bool),
	}

	// Auto-configure member maps based on field matching
	tm.autoConfigureMembers(m.config.typeCache)

	m.config.mu.Lock()
	m.config.typeMaps[key] = tm
	delete(m.config.plans, key)
	m.config.mu.Unlock()
	m.config.compile.Forget(key.String())

	return &TypeMapBuilder[TSrc, TDest]{
		mapper:  m,
		typeMap: tm,
	}
}

// Reset clears all registered type maps, converters and compiled plans.
// It exists to give test suites a clean-slate engine and is not intended for
// production use.
func (m *Mapper) Reset() {
	m.config.mu.Lock()
	keys := make([]typePair, 0, len(m.config.typeMaps))
	for key := range m.config.typeMaps {
		keys = append(keys, key)
	}
	m.config.typeMaps = make(map[typePair]*TypeMap)
	m.config.converters = make(map[typePair]TypeConverter)
	m.config.plans = make(map[typePair]*plan)
	m.config.mu.Unlock()

	// Forget in-flight compilations so one racing with the reset cannot
	// deposit a plan built from the old configuration.
	for _, key := range keys {
		m.config.compile.Forget(key.String())
	}
}

// typeMapFor returns the registered type map for a pair, or nil.
func (m *Mapper) typeMapFor(key typePair) *TypeMap {
	m.config.mu.RLock()
	defer m.config.mu.RUnlock()
	return m.config.typeMaps[key]
}

// converterFor returns the registered global converter for a pair, or nil.
func (m *Mapper) converterFor(srcType, destType reflect.Type) TypeConverter {
	m.config.mu.RLock()
	defer m.config.mu.RUnlock()
	return m.config.converters[typePair{srcType: srcType, destType: destType}]
}

// evictPlan drops the compiled plan for a pair so the next mapping call
// recompiles against the current configuration.
func (m *Mapper) evictPlan(key typePair) {
	m.config.mu.Lock()
	delete(m.config.plans, key)
	m.config.mu.Unlock()
	m.config.compile.Forget(key.String())
}

// autoCreateTypeMap creates a type map automatically for unmapped types.
func (m *Mapper) autoCreateTypeMap(srcType, destType reflect.Type) *TypeMap {
	key := typePair{srcType: srcType, destType: destType}

	m.config.mu.Lock()
	defer m.config.mu.Unlock()

	// Double-check after acquiring lock
	if tm, exists := m.config.typeMaps[key]; exists {
		return tm
	}

	tm := &TypeMap{
		srcType:      srcType,
		destType:     destType,
		memberMaps:   make([]*MemberMap, 0),
		ignoreFields: make(map[string]bool),
	}

	tm.autoConfigureMembers(m.config.typeCache)
	m.config.typeMaps[key] = tm

	return tm
}

// autoConfigureMembers automatically configures member mappings based on
// field names.
func (tm *TypeMap) autoConfigureMembers(cache *typeCache) {
	destInfo := cache.getTypeInfo(tm.destType)

	for _, destField := range destInfo.fields {
		mm := tm.findSourceMember(destField, cache)
		if mm != nil {
			tm.memberMaps = append(tm.memberMaps, mm)
		}
	}
}

// findSourceMember finds a matching source member for a destination field.
func (tm *TypeMap) findSourceMember(destField *fieldInfo, cache *typeCache) *MemberMap {
	srcInfo := cache.getTypeInfo(tm.srcType)

	// Direct name match
	if srcField, ok := srcInfo.fieldsByName[destField.name]; ok {
		return &MemberMap{
			destField:    destField.name,
			destFieldIdx: destField.index,
			srcField:     srcField.name,
			srcFieldIdx:  srcField.index,
		}
	}

	// Try flattening: CustomerName -> Customer.Name
	flattenPath := splitPascalCase(destField.name)
	if len(flattenPath) > 1 {
		if mm := tm.tryFlattenMatch(flattenPath, destField, cache); mm != nil {
			return mm
		}
	}

	// Fall back to one level of nested lookup: City -> Address.City. First
	// structured source member exposing the name wins.
	for _, srcField := range srcInfo.fields {
		if classify(srcField.fieldType) != catStructured {
			continue
		}
		nestedInfo := cache.getTypeInfo(derefType(srcField.fieldType))
		nested, ok := nestedInfo.fieldsByName[destField.name]
		if !ok {
			continue
		}
		indices := append(append([]int{}, srcField.index...), nested.index...)
		return &MemberMap{
			destField:     destField.name,
			destFieldIdx:  destField.index,
			srcField:      srcField.name,
			srcFieldIdx:   indices,
			useFlattening: true,
			flattenPath:   []string{srcField.name, destField.name},
		}
	}

	return nil
}

// tryFlattenMatch attempts to match a flattened destination field to nested
// source fields.
func (tm *TypeMap) tryFlattenMatch(path []string, destField *fieldInfo, cache *typeCache) *MemberMap {
	currentType := tm.srcType
	var indices []int

	for i, part := range path {
		info := cache.getTypeInfo(currentType)
		field, ok := info.fieldsByName[part]
		if !ok {
			return nil
		}
		indices = append(indices, field.index...)

		if i < len(path)-1 {
			fieldType := derefType(field.fieldType)
			if fieldType.Kind() != reflect.Struct {
				return nil
			}
			currentType = fieldType
		}
	}

	return &MemberMap{
		destField:     destField.name,
		destFieldIdx:  destField.index,
		srcField:      path[0],
		srcFieldIdx:   indices,
		useFlattening: true,
		flattenPath:   path,
	}
}

// memberMapFor returns the member map for a destination field name, or nil.
func (tm *TypeMap) memberMapFor(name string) *MemberMap {
	for _, mm := range tm.memberMaps {
		if mm.destField == name {
			return mm
		}
	}
	return nil
}

// derefType unwraps pointer types.
func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
