package protocol

import (
	"github.com/pkg/errors"
)

// RequestSize returns the body size of a request carrying args
func RequestSize(args [][]byte) int {
	size := 4
	for _, a := range args {
		size += 4 + len(a)
	}
	return size
}

// AppendRequest appends the frame of a request with the given arguments to dst
func AppendRequest(dst []byte, args [][]byte) ([]byte, error) {
	size := RequestSize(args)
	if size > MaxMessageSize {
		return dst, errors.Wrapf(ErrTooBig, "request of %d bytes", size)
	}

	dst = le.AppendUint32(dst, uint32(size))
	dst = le.AppendUint32(dst, uint32(len(args)))
	for _, a := range args {
		dst = le.AppendUint32(dst, uint32(len(a)))
		dst = append(dst, a...)
	}
	return dst, nil
}

// ParseRequest parses a request body into its arguments. The returned slices
// alias body. More than maxArgs arguments, lengths running past the body and
// trailing bytes are protocol violations.
func ParseRequest(body []byte, maxArgs int) ([][]byte, error) {
	r := reader{buf: body}

	argc, err := r.u32()
	if err != nil {
		return nil, err
	}
	if uint64(argc) > uint64(maxArgs) {
		return nil, errors.Wrapf(ErrProtocol, "argc %d exceeds the limit of %d", argc, maxArgs)
	}
	// every argument needs at least its length field
	if uint64(argc)*4 > uint64(r.remaining()) {
		return nil, errors.Wrapf(ErrProtocol, "argc %d does not fit into %d bytes", argc, r.remaining())
	}

	args := make([][]byte, 0, min(argc, maxPrealloc))
	for i := uint32(0); i < argc; i++ {
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		arg, err := r.bytes(n)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	if r.remaining() != 0 {
		return nil, errors.Wrapf(ErrProtocol, "%d trailing bytes after the last argument", r.remaining())
	}
	return args, nil
}
