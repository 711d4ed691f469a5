package protocol

import (
	"io"

	"github.com/pkg/errors"
)

// ReadFrame reads one frame from r and returns its body. buf is reused when it
// is large enough. Frames declaring more than max bytes are rejected without
// reading their body.
func ReadFrame(r io.Reader, buf []byte, max int) ([]byte, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	size := int(le.Uint32(header[:]))
	if size > max {
		return nil, errors.Wrapf(ErrTooBig, "declared %d bytes, limit is %d", size, max)
	}
	if cap(buf) < size {
		buf = make([]byte, size)
	}
	buf = buf[:size]
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

// ReadResponse reads and decodes one response frame from r
func ReadResponse(r io.Reader, buf []byte) (Value, error) {
	body, err := ReadFrame(r, buf, MaxMessageSize)
	if err != nil {
		return Value{}, err
	}
	return DecodeValue(body)
}
