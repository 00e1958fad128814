// Package pbwire is a thin layer over protowire for hand-declared Steam
// protobuf messages. Decoding walks top-level fields and hands each one to a
// callback; encoding appends fields in order and omits zero values.
//
// Unknown field numbers are never an error: the walker hands them to the
// callback, and message types simply ignore numbers they do not declare.
package pbwire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field is one decoded top-level field. Exactly one of the value members is
// meaningful, selected by Type.
type Field struct {
	Num     protowire.Number
	Type    protowire.Type
	Varint  uint64
	Fixed32 uint32
	Fixed64 uint64
	Bytes   []byte
}

// Range calls fn for every field in b in wire order. Groups are skipped.
// The Bytes member aliases b.
func Range(b []byte, fn func(f Field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("pbwire: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		f := Field{Num: num, Type: typ}
		switch typ {
		case protowire.VarintType:
			f.Varint, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			f.Fixed32, n = protowire.ConsumeFixed32(b)
		case protowire.Fixed64Type:
			f.Fixed64, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.Bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("pbwire: field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		if n < 0 {
			return fmt.Errorf("pbwire: field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (f Field) Uint32() uint32 { return uint32(f.Varint) }
func (f Field) Int32() int32   { return int32(f.Varint) }
func (f Field) Uint64() uint64 { return f.Varint }
func (f Field) Bool() bool     { return f.Varint != 0 }
func (f Field) String() string { return string(f.Bytes) }

// Clone returns a copy of the bytes value that does not alias the input.
func (f Field) Clone() []byte {
	if f.Bytes == nil {
		return nil
	}
	out := make([]byte, len(f.Bytes))
	copy(out, f.Bytes)
	return out
}

// Uint32s decodes a repeated uint32 field occurrence, which may be either a
// single varint or a packed run.
func (f Field) Uint32s() ([]uint32, error) {
	switch f.Type {
	case protowire.VarintType:
		return []uint32{uint32(f.Varint)}, nil
	case protowire.BytesType:
		var out []uint32
		b := f.Bytes
		for len(b) > 0 {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("pbwire: packed field %d: %w", f.Num, protowire.ParseError(n))
			}
			out = append(out, uint32(v))
			b = b[n:]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("pbwire: field %d has wire type %d, want varint", f.Num, f.Type)
	}
}

// Builder appends fields to a buffer. The zero value is ready to use.
type Builder struct {
	buf []byte
}

func (b *Builder) Varint(num protowire.Number, v uint64) *Builder {
	if v == 0 {
		return b
	}
	b.buf = protowire.AppendTag(b.buf, num, protowire.VarintType)
	b.buf = protowire.AppendVarint(b.buf, v)
	return b
}

func (b *Builder) Uint32(num protowire.Number, v uint32) *Builder {
	return b.Varint(num, uint64(v))
}

// Int32 sign-extends negative values to ten bytes, as protobuf int32 does.
func (b *Builder) Int32(num protowire.Number, v int32) *Builder {
	return b.Varint(num, uint64(int64(v)))
}

func (b *Builder) Bool(num protowire.Number, v bool) *Builder {
	return b.Varint(num, protowire.EncodeBool(v))
}

func (b *Builder) Fixed32(num protowire.Number, v uint32) *Builder {
	if v == 0 {
		return b
	}
	b.buf = protowire.AppendTag(b.buf, num, protowire.Fixed32Type)
	b.buf = protowire.AppendFixed32(b.buf, v)
	return b
}

func (b *Builder) Fixed64(num protowire.Number, v uint64) *Builder {
	if v == 0 {
		return b
	}
	b.buf = protowire.AppendTag(b.buf, num, protowire.Fixed64Type)
	b.buf = protowire.AppendFixed64(b.buf, v)
	return b
}

// RawBytes writes v even when it is empty but not nil.
func (b *Builder) RawBytes(num protowire.Number, v []byte) *Builder {
	if v == nil {
		return b
	}
	b.buf = protowire.AppendTag(b.buf, num, protowire.BytesType)
	b.buf = protowire.AppendBytes(b.buf, v)
	return b
}

func (b *Builder) String(num protowire.Number, v string) *Builder {
	if v == "" {
		return b
	}
	b.buf = protowire.AppendTag(b.buf, num, protowire.BytesType)
	b.buf = protowire.AppendString(b.buf, v)
	return b
}

// Message writes an embedded message. Empty messages are still written so
// that presence survives.
func (b *Builder) Message(num protowire.Number, v []byte) *Builder {
	b.buf = protowire.AppendTag(b.buf, num, protowire.BytesType)
	b.buf = protowire.AppendBytes(b.buf, v)
	return b
}

func (b *Builder) Bytes() []byte { return b.buf }
