package exif

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type is a TIFF field type as stored in an IFD entry.
type Type uint16

// TIFF 6.0 field types.
const (
	TypeByte      Type = 1
	TypeASCII     Type = 2
	TypeShort     Type = 3
	TypeLong      Type = 4
	TypeRational  Type = 5
	TypeSByte     Type = 6
	TypeUndefined Type = 7
	TypeSShort    Type = 8
	TypeSLong     Type = 9
	TypeSRational Type = 10
	TypeFloat     Type = 11
	TypeDouble    Type = 12
)

// Size returns the byte size of one component of t, or 0 for an unknown type.
func (t Type) Size() int {
	switch t {
	case TypeByte, TypeASCII, TypeSByte, TypeUndefined:
		return 1
	case TypeShort, TypeSShort:
		return 2
	case TypeLong, TypeSLong, TypeFloat:
		return 4
	case TypeRational, TypeSRational, TypeDouble:
		return 8
	}
	return 0
}

func (t Type) String() string {
	switch t {
	case TypeByte:
		return "BYTE"
	case TypeASCII:
		return "ASCII"
	case TypeShort:
		return "SHORT"
	case TypeLong:
		return "LONG"
	case TypeRational:
		return "RATIONAL"
	case TypeSByte:
		return "SBYTE"
	case TypeUndefined:
		return "UNDEFINED"
	case TypeSShort:
		return "SSHORT"
	case TypeSLong:
		return "SLONG"
	case TypeSRational:
		return "SRATIONAL"
	case TypeFloat:
		return "FLOAT"
	case TypeDouble:
		return "DOUBLE"
	}
	return fmt.Sprintf("Type(%d)", uint16(t))
}

// Rational is an unsigned numerator/denominator pair.
type Rational struct {
	Numerator   uint32
	Denominator uint32
}

// Float64 returns the quotient, or 0 when the denominator is zero.
func (r Rational) Float64() float64 {
	if r.Denominator == 0 {
		return 0
	}
	return float64(r.Numerator) / float64(r.Denominator)
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Numerator, r.Denominator)
}

// SRational is a signed numerator/denominator pair.
type SRational struct {
	Numerator   int32
	Denominator int32
}

// Float64 returns the quotient, or 0 when the denominator is zero.
func (r SRational) Float64() float64 {
	if r.Denominator == 0 {
		return 0
	}
	return float64(r.Numerator) / float64(r.Denominator)
}

func (r SRational) String() string {
	return fmt.Sprintf("%d/%d", r.Numerator, r.Denominator)
}

// Value is a tagged value. Type selects which of the slices (or ASCII) holds
// the components; the others are nil. Use the New* constructors to build one.
type Value struct {
	Type Type

	Bytes      []byte // BYTE, UNDEFINED
	SBytes     []int8
	ASCII      string // without the terminating NUL
	Shorts     []uint16
	SShorts    []int16
	Longs      []uint32
	SLongs     []int32
	Rationals  []Rational
	SRationals []SRational
	Floats     []float32
	Doubles    []float64
}

// NewByte returns a BYTE value.
func NewByte(b ...byte) Value { return Value{Type: TypeByte, Bytes: b} }

// NewUndefined returns an UNDEFINED value holding raw bytes.
func NewUndefined(b []byte) Value { return Value{Type: TypeUndefined, Bytes: b} }

// NewASCII returns an ASCII value. The NUL terminator is added on write.
func NewASCII(s string) Value { return Value{Type: TypeASCII, ASCII: s} }

// NewShort returns a SHORT value.
func NewShort(v ...uint16) Value { return Value{Type: TypeShort, Shorts: v} }

// NewLong returns a LONG value.
func NewLong(v ...uint32) Value { return Value{Type: TypeLong, Longs: v} }

// NewRational returns a RATIONAL value.
func NewRational(v ...Rational) Value { return Value{Type: TypeRational, Rationals: v} }

// NewSRational returns an SRATIONAL value.
func NewSRational(v ...SRational) Value {
	return Value{Type: TypeSRational, SRationals: v}
}

// Count returns the component count written into the IFD entry. ASCII counts
// include the terminating NUL.
func (v Value) Count() int {
	switch v.Type {
	case TypeByte, TypeUndefined:
		return len(v.Bytes)
	case TypeASCII:
		return len(v.ASCII) + 1
	case TypeSByte:
		return len(v.SBytes)
	case TypeShort:
		return len(v.Shorts)
	case TypeSShort:
		return len(v.SShorts)
	case TypeLong:
		return len(v.Longs)
	case TypeSLong:
		return len(v.SLongs)
	case TypeRational:
		return len(v.Rationals)
	case TypeSRational:
		return len(v.SRationals)
	case TypeFloat:
		return len(v.Floats)
	case TypeDouble:
		return len(v.Doubles)
	}
	return 0
}

// String renders the components the way exif tools usually print them:
// comma separated, rationals as "num/den".
func (v Value) String() string {
	var parts []string
	switch v.Type {
	case TypeASCII:
		return v.ASCII
	case TypeByte, TypeUndefined:
		for _, b := range v.Bytes {
			parts = append(parts, strconv.Itoa(int(b)))
		}
	case TypeSByte:
		for _, b := range v.SBytes {
			parts = append(parts, strconv.Itoa(int(b)))
		}
	case TypeShort:
		for _, s := range v.Shorts {
			parts = append(parts, strconv.Itoa(int(s)))
		}
	case TypeSShort:
		for _, s := range v.SShorts {
			parts = append(parts, strconv.Itoa(int(s)))
		}
	case TypeLong:
		for _, l := range v.Longs {
			parts = append(parts, strconv.FormatUint(uint64(l), 10))
		}
	case TypeSLong:
		for _, l := range v.SLongs {
			parts = append(parts, strconv.FormatInt(int64(l), 10))
		}
	case TypeRational:
		for _, r := range v.Rationals {
			parts = append(parts, r.String())
		}
	case TypeSRational:
		for _, r := range v.SRationals {
			parts = append(parts, r.String())
		}
	case TypeFloat:
		for _, f := range v.Floats {
			parts = append(parts, strconv.FormatFloat(float64(f), 'g', -1, 32))
		}
	case TypeDouble:
		for _, f := range v.Doubles {
			parts = append(parts, strconv.FormatFloat(f, 'g', -1, 64))
		}
	}
	return strings.Join(parts, ",")
}

// encode returns the raw component bytes of v in the given byte order.
func (v Value) encode(order binary.ByteOrder) ([]byte, error) {
	size := v.Type.Size()
	if size == 0 {
		return nil, fmt.Errorf("%w: field type %s", ErrUnsupportedTag, v.Type)
	}
	n := v.Count()
	if uint64(n) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d components", ErrValueTooLarge, n)
	}
	out := make([]byte, n*size)
	switch v.Type {
	case TypeByte, TypeUndefined:
		copy(out, v.Bytes)
	case TypeASCII:
		if strings.IndexByte(v.ASCII, 0) >= 0 {
			return nil, fmt.Errorf("%w: ASCII value contains NUL", ErrUnsupportedTag)
		}
		copy(out, v.ASCII) // trailing byte stays 0
	case TypeSByte:
		for i, b := range v.SBytes {
			out[i] = byte(b)
		}
	case TypeShort:
		for i, s := range v.Shorts {
			order.PutUint16(out[i*2:], s)
		}
	case TypeSShort:
		for i, s := range v.SShorts {
			order.PutUint16(out[i*2:], uint16(s))
		}
	case TypeLong:
		for i, l := range v.Longs {
			order.PutUint32(out[i*4:], l)
		}
	case TypeSLong:
		for i, l := range v.SLongs {
			order.PutUint32(out[i*4:], uint32(l))
		}
	case TypeFloat:
		for i, f := range v.Floats {
			order.PutUint32(out[i*4:], math.Float32bits(f))
		}
	case TypeRational:
		for i, r := range v.Rationals {
			order.PutUint32(out[i*8:], r.Numerator)
			order.PutUint32(out[i*8+4:], r.Denominator)
		}
	case TypeSRational:
		for i, r := range v.SRationals {
			order.PutUint32(out[i*8:], uint32(r.Numerator))
			order.PutUint32(out[i*8+4:], uint32(r.Denominator))
		}
	case TypeDouble:
		for i, f := range v.Doubles {
			order.PutUint64(out[i*8:], math.Float64bits(f))
		}
	}
	return out, nil
}

// decodeValue interprets raw as count components of typ. raw must hold at
// least count*typ.Size() bytes.
func decodeValue(typ Type, count int, raw []byte, order binary.ByteOrder) Value {
	v := Value{Type: typ}
	switch typ {
	case TypeByte, TypeUndefined:
		v.Bytes = append([]byte{}, raw[:count]...)
	case TypeASCII:
		s := raw[:count]
		if i := bytes.IndexByte(s, 0); i >= 0 {
			s = s[:i]
		}
		v.ASCII = string(s)
	case TypeSByte:
		v.SBytes = make([]int8, count)
		for i := range v.SBytes {
			v.SBytes[i] = int8(raw[i])
		}
	case TypeShort:
		v.Shorts = make([]uint16, count)
		for i := range v.Shorts {
			v.Shorts[i] = order.Uint16(raw[i*2:])
		}
	case TypeSShort:
		v.SShorts = make([]int16, count)
		for i := range v.SShorts {
			v.SShorts[i] = int16(order.Uint16(raw[i*2:]))
		}
	case TypeLong:
		v.Longs = make([]uint32, count)
		for i := range v.Longs {
			v.Longs[i] = order.Uint32(raw[i*4:])
		}
	case TypeSLong:
		v.SLongs = make([]int32, count)
		for i := range v.SLongs {
			v.SLongs[i] = int32(order.Uint32(raw[i*4:]))
		}
	case TypeFloat:
		v.Floats = make([]float32, count)
		for i := range v.Floats {
			v.Floats[i] = math.Float32frombits(order.Uint32(raw[i*4:]))
		}
	case TypeRational:
		v.Rationals = make([]Rational, count)
		for i := range v.Rationals {
			v.Rationals[i] = Rational{order.Uint32(raw[i*8:]), order.Uint32(raw[i*8+4:])}
		}
	case TypeSRational:
		v.SRationals = make([]SRational, count)
		for i := range v.SRationals {
			v.SRationals[i] = SRational{int32(order.Uint32(raw[i*8:])), int32(order.Uint32(raw[i*8+4:]))}
		}
	case TypeDouble:
		v.Doubles = make([]float64, count)
		for i := range v.Doubles {
			v.Doubles[i] = math.Float64frombits(order.Uint64(raw[i*8:]))
		}
	}
	return v
}
