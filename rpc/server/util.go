package server

import (
	"math"
	"strconv"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/rpc/protocol"
	"github.com/pkg/errors"
)

// parseFloat parses a score, NaN is not a valid score
func parseFloat(b []byte) (float64, bool) {
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// parseInt parses a signed 64 bit integer
func parseInt(b []byte) (int64, bool) {
	i, err := strconv.ParseInt(string(b), 10, 64)
	return i, err == nil
}

// writeErr translates a keyspace error into an ERR value
func writeErr(out *protocol.Encoder, err error, wrongTypeMsg string) {
	if errors.Is(err, db.ErrWrongType) {
		out.Err(protocol.ErrCodeBadType, wrongTypeMsg)
		return
	}
	out.Err(protocol.ErrCodeUnknown, err.Error())
}
