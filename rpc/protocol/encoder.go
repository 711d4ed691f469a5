package protocol

import (
	"math"

	"github.com/pkg/errors"
)

// Encoder writes one response frame straight into a byte buffer.
// Begin reserves the frame header, the value methods append the payload and
// End patches the header. The zero value is ready to use.
type Encoder struct {
	buf   []byte
	start int // offset of the frame header in buf
}

// ArrayMark remembers where the count of an open array has to be patched
type ArrayMark int

// Begin starts a new frame at the end of dst
func (e *Encoder) Begin(dst []byte) {
	e.start = len(dst)
	e.buf = append(dst, 0, 0, 0, 0)
}

// Size returns the size of the body written so far
func (e *Encoder) Size() int {
	return len(e.buf) - e.start - HeaderSize
}

// End finishes the frame and returns the buffer. If the body exceeds max
// the frame is dropped and ErrTooBig is returned with the buffer as it was
// before Begin.
func (e *Encoder) End(max int) ([]byte, error) {
	size := e.Size()
	if size > max {
		buf := e.buf[:e.start]
		e.buf = nil
		return buf, errors.Wrapf(ErrTooBig, "response of %d bytes, limit is %d", size, max)
	}
	le.PutUint32(e.buf[e.start:], uint32(size))
	buf := e.buf
	e.buf = nil
	return buf, nil
}

func (e *Encoder) Nil() {
	e.buf = append(e.buf, byte(TagNil))
}

func (e *Encoder) Err(code int32, msg string) {
	e.buf = append(e.buf, byte(TagErr))
	e.buf = le.AppendUint32(e.buf, uint32(code))
	e.buf = le.AppendUint32(e.buf, uint32(len(msg)))
	e.buf = append(e.buf, msg...)
}

func (e *Encoder) Str(b []byte) {
	e.buf = append(e.buf, byte(TagStr))
	e.buf = le.AppendUint32(e.buf, uint32(len(b)))
	e.buf = append(e.buf, b...)
}

func (e *Encoder) Int(v int64) {
	e.buf = append(e.buf, byte(TagInt))
	e.buf = le.AppendUint64(e.buf, uint64(v))
}

func (e *Encoder) Dbl(v float64) {
	e.buf = append(e.buf, byte(TagDbl))
	e.buf = le.AppendUint64(e.buf, math.Float64bits(v))
}

// Arr writes the header of an array with a known number of elements
func (e *Encoder) Arr(n uint32) {
	e.buf = append(e.buf, byte(TagArr))
	e.buf = le.AppendUint32(e.buf, n)
}

// BeginArr writes the header of an array whose size is not known yet
func (e *Encoder) BeginArr() ArrayMark {
	e.Arr(0)
	return ArrayMark(len(e.buf) - 4)
}

// EndArr sets the element count of the array opened at mark
func (e *Encoder) EndArr(mark ArrayMark, n uint32) {
	le.PutUint32(e.buf[mark:], n)
}

// Value writes an already built value
func (e *Encoder) Value(v Value) {
	e.buf = AppendValue(e.buf, v)
}
