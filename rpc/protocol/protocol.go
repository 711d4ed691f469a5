package protocol

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	// MaxMessageSize is the largest body a frame may declare (32 MiB)
	MaxMessageSize = 32 << 20

	// DefaultMaxArgs is the default ceiling for the argc field of a request
	DefaultMaxArgs = 200_000

	// HeaderSize is the size of the length prefix of every frame
	HeaderSize = 4

	// maxPrealloc bounds slices sized from counts read off the wire
	maxPrealloc = 64
)

// Tag identifies the type of a tagged value
type Tag uint8

const (
	TagNil Tag = 0
	TagErr Tag = 1
	TagStr Tag = 2
	TagInt Tag = 3
	TagDbl Tag = 4
	TagArr Tag = 5
)

func (t Tag) String() string {
	switch t {
	case TagNil:
		return "nil"
	case TagErr:
		return "err"
	case TagStr:
		return "str"
	case TagInt:
		return "int"
	case TagDbl:
		return "dbl"
	case TagArr:
		return "arr"
	default:
		return "unknown"
	}
}

// Error codes carried by ERR values
const (
	ErrCodeUnknown int32 = 1 // unknown command
	ErrCodeTooBig  int32 = 2 // response too big
	ErrCodeBadType int32 = 3 // key holds the wrong type
	ErrCodeBadArg  int32 = 4 // malformed argument
)

var (
	// ErrProtocol is the root of all protocol violations
	ErrProtocol = errors.New("protocol violation")

	// ErrTooBig is returned for frames larger than the size ceiling
	ErrTooBig = errors.WithMessage(ErrProtocol, "message too big")

	// ErrIncomplete is returned when the buffer does not hold a full frame yet
	ErrIncomplete = errors.New("incomplete frame")
)

// IsViolation reports whether err means the peer broke the protocol
func IsViolation(err error) bool {
	return errors.Is(err, ErrProtocol)
}

var le = binary.LittleEndian

// CutFrame extracts the first frame of buf. It returns the body of the frame
// and the number of bytes the whole frame occupies in buf. ErrIncomplete is
// returned if buf does not hold the complete frame yet. A frame declaring a
// body larger than max is rejected with ErrTooBig before its body arrives.
func CutFrame(buf []byte, max int) (body []byte, n int, err error) {
	if len(buf) < HeaderSize {
		return nil, 0, ErrIncomplete
	}
	size := int(le.Uint32(buf))
	if size > max {
		return nil, 0, errors.Wrapf(ErrTooBig, "declared %d bytes, limit is %d", size, max)
	}
	if len(buf)-HeaderSize < size {
		return nil, 0, ErrIncomplete
	}
	return buf[HeaderSize : HeaderSize+size], HeaderSize + size, nil
}

// reader is a bounds checked cursor over a body
type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) u8() (uint8, error) {
	if r.remaining() < 1 {
		return 0, errors.Wrap(ErrProtocol, "truncated tag")
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, errors.Wrapf(ErrProtocol, "truncated u32 at offset %d", r.off)
	}
	v := le.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *reader) u64() (uint64, error) {
	if r.remaining() < 8 {
		return 0, errors.Wrapf(ErrProtocol, "truncated u64 at offset %d", r.off)
	}
	v := le.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

// bytes returns the next n bytes without copying
func (r *reader) bytes(n uint32) ([]byte, error) {
	if uint64(n) > uint64(r.remaining()) {
		return nil, errors.Wrapf(ErrProtocol, "length %d at offset %d runs past the end", n, r.off)
	}
	v := r.buf[r.off : r.off+int(n)]
	r.off += int(n)
	return v, nil
}
