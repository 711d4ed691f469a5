package protocol

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Value is a decoded tagged value
type Value struct {
	Tag  Tag
	Str  []byte  // STR payload, ERR message
	Int  int64   // INT payload
	Dbl  float64 // DBL payload
	Code int32   // ERR code
	Arr  []Value // ARR elements
}

func Nil() Value                     { return Value{Tag: TagNil} }
func Str(b []byte) Value             { return Value{Tag: TagStr, Str: b} }
func Int(v int64) Value              { return Value{Tag: TagInt, Int: v} }
func Dbl(v float64) Value            { return Value{Tag: TagDbl, Dbl: v} }
func Arr(vals ...Value) Value        { return Value{Tag: TagArr, Arr: vals} }
func Err(code int32, m string) Value { return Value{Tag: TagErr, Code: code, Str: []byte(m)} }

// IsErr reports whether v is an ERR value
func (v Value) IsErr() bool {
	return v.Tag == TagErr
}

// String renders v on a single line, arrays in brackets
func (v Value) String() string {
	switch v.Tag {
	case TagNil:
		return "nil"
	case TagErr:
		return fmt.Sprintf("err(%d, %q)", v.Code, v.Str)
	case TagStr:
		return fmt.Sprintf("%q", v.Str)
	case TagInt:
		return fmt.Sprintf("%d", v.Int)
	case TagDbl:
		return fmt.Sprintf("%g", v.Dbl)
	case TagArr:
		parts := make([]string, len(v.Arr))
		for i, e := range v.Arr {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		return fmt.Sprintf("tag(%d)", v.Tag)
	}
}

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// AppendValue appends the encoding of v (without frame header) to dst
func AppendValue(dst []byte, v Value) []byte {
	dst = append(dst, byte(v.Tag))
	switch v.Tag {
	case TagErr:
		dst = le.AppendUint32(dst, uint32(v.Code))
		dst = le.AppendUint32(dst, uint32(len(v.Str)))
		dst = append(dst, v.Str...)
	case TagStr:
		dst = le.AppendUint32(dst, uint32(len(v.Str)))
		dst = append(dst, v.Str...)
	case TagInt:
		dst = le.AppendUint64(dst, uint64(v.Int))
	case TagDbl:
		dst = le.AppendUint64(dst, math.Float64bits(v.Dbl))
	case TagArr:
		dst = le.AppendUint32(dst, uint32(len(v.Arr)))
		for _, e := range v.Arr {
			dst = AppendValue(dst, e)
		}
	}
	return dst
}

// AppendResponse appends the complete frame of response v to dst
func AppendResponse(dst []byte, v Value) ([]byte, error) {
	var enc Encoder
	enc.Begin(dst)
	enc.Value(v)
	return enc.End(MaxMessageSize)
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

// pendingArr is an array whose elements are still being decoded
type pendingArr struct {
	elems []Value
	want  uint32
}

// DecodeValue decodes a response body. The body must hold exactly one tagged
// value. Nested arrays are decoded with an explicit stack; each element must
// fit into what is left of the body. Byte payloads alias body.
func DecodeValue(body []byte) (Value, error) {
	r := reader{buf: body}
	var stack []pendingArr

	for {
		v, err := decodeScalar(&r)
		if err != nil {
			return Value{}, err
		}

		if v.Tag == TagArr {
			n, err := r.u32()
			if err != nil {
				return Value{}, err
			}
			// each element takes at least one byte
			if uint64(n) > uint64(r.remaining()) {
				return Value{}, errors.Wrapf(ErrProtocol, "array of %d elements does not fit into %d bytes", n, r.remaining())
			}
			if n > 0 {
				stack = append(stack, pendingArr{elems: make([]Value, 0, min(n, maxPrealloc)), want: n})
				continue
			}
			v.Arr = []Value{}
		}

		// attach v to the innermost open array, closing every array that is complete
		for {
			if len(stack) == 0 {
				if r.remaining() != 0 {
					return Value{}, errors.Wrapf(ErrProtocol, "%d trailing bytes after the response", r.remaining())
				}
				return v, nil
			}
			top := &stack[len(stack)-1]
			top.elems = append(top.elems, v)
			if uint32(len(top.elems)) < top.want {
				break
			}
			v = Arr(top.elems...)
			stack = stack[:len(stack)-1]
		}
	}
}

// decodeScalar reads one tag with its payload. For arrays only the tag is consumed.
func decodeScalar(r *reader) (Value, error) {
	tag, err := r.u8()
	if err != nil {
		return Value{}, err
	}

	switch Tag(tag) {
	case TagNil:
		return Nil(), nil
	case TagErr:
		code, err := r.u32()
		if err != nil {
			return Value{}, err
		}
		n, err := r.u32()
		if err != nil {
			return Value{}, err
		}
		msg, err := r.bytes(n)
		if err != nil {
			return Value{}, err
		}
		return Value{Tag: TagErr, Code: int32(code), Str: msg}, nil
	case TagStr:
		n, err := r.u32()
		if err != nil {
			return Value{}, err
		}
		b, err := r.bytes(n)
		if err != nil {
			return Value{}, err
		}
		return Str(b), nil
	case TagInt:
		u, err := r.u64()
		if err != nil {
			return Value{}, err
		}
		return Int(int64(u)), nil
	case TagDbl:
		u, err := r.u64()
		if err != nil {
			return Value{}, err
		}
		return Dbl(math.Float64frombits(u)), nil
	case TagArr:
		return Value{Tag: TagArr}, nil
	default:
		return Value{}, errors.Wrapf(ErrProtocol, "unknown tag %d at offset %d", tag, r.off-1)
	}
}
