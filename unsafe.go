package remap

import (
	"reflect"
	"unsafe"
)

// isPrimitiveKind checks if a kind is a primitive type suitable for unsafe
// field copies.
func isPrimitiveKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		return true
	}
	return false
}

// unsafeStep returns an offset-copy step for a same-type primitive field
// pair, or nil when the member does not qualify. Only top-level fields
// qualify; flattened paths and pointer fields fall back to the reflective
// scalar step.
func (m *Mapper) unsafeStep(mm *MemberMap, srcIdx []int, srcFT, destFT reflect.Type) planStep {
	if !m.config.useUnsafe {
		return nil
	}
	if len(srcIdx) != 1 || len(mm.destFieldIdx) != 1 {
		return nil
	}
	if srcFT != destFT || !isPrimitiveKind(srcFT.Kind()) {
		return nil
	}
	if mm.nullSubstitute != nil {
		return nil
	}

	return m.compileUnsafeStep(mm, srcIdx)
}

// compileUnsafeStep captures the field offsets and size for a direct copy.
func (m *Mapper) compileUnsafeStep(mm *MemberMap, srcIdx []int) planStep {
	destIdx := mm.destFieldIdx
	fallback := m.scalarStep(mm, srcIdx)

	return func(src, dest reflect.Value, ctx *mappingContext) error {
		if !src.CanAddr() || !dest.CanAddr() {
			return fallback(src, dest, ctx)
		}
		srcField := src.Field(srcIdx[0])
		destField := dest.Field(destIdx[0])
		unsafeCopyField(
			unsafe.Pointer(srcField.UnsafeAddr()),
			unsafe.Pointer(destField.UnsafeAddr()),
			srcField.Type().Size(),
		)
		return nil
	}
}

// unsafeCopyField copies a field value byte-wise. Only safe for primitive
// fields of identical type.
func unsafeCopyField(src, dest unsafe.Pointer, size uintptr) {
	switch size {
	case 1:
		*(*uint8)(dest) = *(*uint8)(src)
	case 2:
		*(*uint16)(dest) = *(*uint16)(src)
	case 4:
		*(*uint32)(dest) = *(*uint32)(src)
	case 8:
		*(*uint64)(dest) = *(*uint64)(src)
	case 16:
		// Strings are 16 bytes on 64-bit platforms (pointer + length)
		*(*[16]byte)(dest) = *(*[16]byte)(src)
	default:
		srcBytes := unsafe.Slice((*byte)(src), size)
		destBytes := unsafe.Slice((*byte)(dest), size)
		copy(destBytes, srcBytes)
	}
}
