package client

import (
	"strconv"

	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/protocol"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ErrUnexpectedResponse is returned when the server answers with a value
// of a type the command never returns
var ErrUnexpectedResponse = errors.New("unexpected response")

// Args converts string arguments into a request
func Args(parts ...string) [][]byte {
	return lo.Map(parts, func(p string, _ int) []byte { return []byte(p) })
}

// invokeRPCRequest sends one request and converts ERR values into *store.Error
func invokeRPCRequest(transport transport.IRPCClientTransport, args [][]byte) (protocol.Value, error) {
	v, err := transport.Send(args)
	if err != nil {
		return protocol.Value{}, errors.Wrapf(err, "%s failed", args[0])
	}
	if v.IsErr() {
		return v, store.NewError(store.RetCode(v.Code), string(v.Str))
	}
	return v, nil
}

// expect checks the tag of a response
func expect(v protocol.Value, tags ...protocol.Tag) error {
	if lo.Contains(tags, v.Tag) {
		return nil
	}
	return errors.Wrapf(ErrUnexpectedResponse, "got %s, expected one of %v", v.Tag, tags)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}
