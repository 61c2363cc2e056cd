package remap

import (
	"log/slog"
	"reflect"
)

const (
	// defaultDepthCeiling bounds recursion when no max depth is configured,
	// so pathological cyclic graphs terminate even without reference
	// preservation.
	defaultDepthCeiling = 1000

	// depthCeilingFactor scales a configured max depth into the hard ceiling.
	// The soft limit is informational; the ceiling is what actually stops a
	// runaway branch.
	depthCeilingFactor = 5
)

// instanceKey identifies one already-mapped (source instance, destination
// type) combination. Identity is the source's pointer value, never its
// structural content: two equal but distinct instances get distinct keys.
type instanceKey struct {
	ptr      uintptr
	destType reflect.Type
}

// mappingContext tracks in-flight instances for one top-level mapping call.
// It is created fresh per call, shared by all recursive descents of that call,
// and never shared across goroutines, so it needs no locking.
type mappingContext struct {
	cache    map[instanceKey]reflect.Value
	visits   int
	ceiling  int
	preserve bool
	logger   *slog.Logger
	warned   bool
}

func newMappingContext(maxDepth int, preserve bool, logger *slog.Logger) *mappingContext {
	ceiling := defaultDepthCeiling
	if maxDepth > 0 {
		ceiling = maxDepth * depthCeilingFactor
	}
	return &mappingContext{
		ceiling:  ceiling,
		preserve: preserve,
		logger:   logger,
	}
}

// descend accounts for one structured descent. The counter is monotonic for
// the lifetime of the context; once it exceeds the ceiling, every further
// descent reports false and the branch is truncated.
func (c *mappingContext) descend(srcType, destType reflect.Type) bool {
	c.visits++
	if c.visits <= c.ceiling {
		return true
	}
	if c.logger != nil && !c.warned {
		c.warned = true
		c.logger.Debug("mapping depth ceiling exceeded, truncating branch",
			"src", srcType.String(),
			"dest", destType.String(),
			"ceiling", c.ceiling)
	}
	return false
}

// lookup returns the destination previously produced for a source identity
// and destination type.
func (c *mappingContext) lookup(ptr uintptr, destType reflect.Type) (reflect.Value, bool) {
	if c.cache == nil {
		return reflect.Value{}, false
	}
	v, ok := c.cache[instanceKey{ptr: ptr, destType: destType}]
	return v, ok
}

// remember records the destination for a source identity before the
// destination's members are written, so a cyclic back-reference resolves to
// the instance still being populated.
func (c *mappingContext) remember(ptr uintptr, destType reflect.Type, dest reflect.Value) {
	if ptr == 0 {
		return
	}
	if c.cache == nil {
		c.cache = make(map[instanceKey]reflect.Value)
	}
	c.cache[instanceKey{ptr: ptr, destType: destType}] = dest
}
