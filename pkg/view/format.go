// Package view layers fixed-stride typed arrays over shared memory
// segments. A view is bound to a mapped segment and decodes elements on
// access; nothing is buffered, so writes are visible to every process
// mapping the same segment as soon as they land.
package view

import (
	"encoding/binary"
	"fmt"
	"math"
)

// A format describes one packed record: an optional byte-order prefix
// ('<' little-endian, '>' or '!' big-endian, '=' native, default little;
// every supported target is little-endian, so '=' decodes as '<')
// followed by field codes with optional repeat counts. Codes follow the
// usual packed-struct convention:
//
//	b/B  int8/uint8    h/H  int16/uint16
//	i/I  int32/uint32  q/Q  int64/uint64
//	f    float32       d    float64
//
// "ddd" is three float64 fields, "3B" three uint8 fields.
type Format struct {
	spec   string
	order  binary.ByteOrder
	fields []fieldKind
	stride int
}

type fieldKind byte

const (
	fieldI8 fieldKind = iota
	fieldU8
	fieldI16
	fieldU16
	fieldI32
	fieldU32
	fieldI64
	fieldU64
	fieldF32
	fieldF64
)

var fieldSizes = [...]int{1, 1, 2, 2, 4, 4, 8, 8, 4, 8}

// ParseFormat validates and compiles a record format spec. An empty spec is
// invalid here; raw single-byte layouts use the raw view instead.
func ParseFormat(spec string) (*Format, error) {
	if spec == "" {
		return nil, fmt.Errorf("view: empty format spec")
	}
	f := &Format{spec: spec, order: binary.LittleEndian}
	rest := spec
	switch spec[0] {
	case '<', '=':
		rest = spec[1:]
	case '>', '!':
		f.order = binary.BigEndian
		rest = spec[1:]
	}
	repeat := 0
	for i := 0; i < len(rest); i++ {
		ch := rest[i]
		if ch >= '0' && ch <= '9' {
			repeat = repeat*10 + int(ch-'0')
			continue
		}
		var kind fieldKind
		switch ch {
		case 'b':
			kind = fieldI8
		case 'B':
			kind = fieldU8
		case 'h':
			kind = fieldI16
		case 'H':
			kind = fieldU16
		case 'i', 'l':
			kind = fieldI32
		case 'I', 'L':
			kind = fieldU32
		case 'q':
			kind = fieldI64
		case 'Q':
			kind = fieldU64
		case 'f':
			kind = fieldF32
		case 'd':
			kind = fieldF64
		default:
			return nil, fmt.Errorf("view: bad field code %q in format %q", ch, spec)
		}
		if repeat == 0 {
			repeat = 1
		}
		for k := 0; k < repeat; k++ {
			f.fields = append(f.fields, kind)
			f.stride += fieldSizes[kind]
		}
		repeat = 0
	}
	if repeat != 0 {
		return nil, fmt.Errorf("view: trailing repeat count in format %q", spec)
	}
	if len(f.fields) == 0 {
		return nil, fmt.Errorf("view: format %q has no fields", spec)
	}
	return f, nil
}

// Spec returns the original format string.
func (f *Format) Spec() string { return f.spec }

// Stride returns the packed size of one record in bytes.
func (f *Format) Stride() int { return f.stride }

// NumFields returns the number of values per record.
func (f *Format) NumFields() int { return len(f.fields) }

// pack encodes one record into dst, which must be exactly stride bytes.
// Integer fields are truncated from the float64 the way a cast would;
// values of 64-bit integer fields above 2^53 lose precision in transit.
func (f *Format) pack(dst []byte, vals []float64) error {
	if len(vals) != len(f.fields) {
		return fmt.Errorf("view: format %q wants %d values, got %d", f.spec, len(f.fields), len(vals))
	}
	off := 0
	for i, kind := range f.fields {
		v := vals[i]
		switch kind {
		case fieldI8:
			dst[off] = byte(int8(v))
		case fieldU8:
			dst[off] = uint8(v)
		case fieldI16:
			f.order.PutUint16(dst[off:], uint16(int16(v)))
		case fieldU16:
			f.order.PutUint16(dst[off:], uint16(v))
		case fieldI32:
			f.order.PutUint32(dst[off:], uint32(int32(v)))
		case fieldU32:
			f.order.PutUint32(dst[off:], uint32(v))
		case fieldI64:
			f.order.PutUint64(dst[off:], uint64(int64(v)))
		case fieldU64:
			f.order.PutUint64(dst[off:], uint64(v))
		case fieldF32:
			f.order.PutUint32(dst[off:], math.Float32bits(float32(v)))
		case fieldF64:
			f.order.PutUint64(dst[off:], math.Float64bits(v))
		}
		off += fieldSizes[kind]
	}
	return nil
}

// unpack decodes one record from src into a fresh slice.
func (f *Format) unpack(src []byte) []float64 {
	vals := make([]float64, len(f.fields))
	f.unpackInto(vals, src)
	return vals
}

// unpackInto decodes one record into vals, reusing the caller's slice.
func (f *Format) unpackInto(vals []float64, src []byte) {
	off := 0
	for i, kind := range f.fields {
		switch kind {
		case fieldI8:
			vals[i] = float64(int8(src[off]))
		case fieldU8:
			vals[i] = float64(src[off])
		case fieldI16:
			vals[i] = float64(int16(f.order.Uint16(src[off:])))
		case fieldU16:
			vals[i] = float64(f.order.Uint16(src[off:]))
		case fieldI32:
			vals[i] = float64(int32(f.order.Uint32(src[off:])))
		case fieldU32:
			vals[i] = float64(f.order.Uint32(src[off:]))
		case fieldI64:
			vals[i] = float64(int64(f.order.Uint64(src[off:])))
		case fieldU64:
			vals[i] = float64(f.order.Uint64(src[off:]))
		case fieldF32:
			vals[i] = float64(math.Float32frombits(f.order.Uint32(src[off:])))
		case fieldF64:
			vals[i] = math.Float64frombits(f.order.Uint64(src[off:]))
		}
		off += fieldSizes[kind]
	}
}
