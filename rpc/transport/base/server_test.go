package base_test

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/protocol"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/ValentinKolb/sKV/rpc/transport/base"
	"github.com/ValentinKolb/sKV/rpc/transport/tcp"
	"github.com/ValentinKolb/sKV/rpc/transport/unix"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// testHandler echoes its arguments and counts timer runs
type testHandler struct {
	timerEvery time.Duration
	timerRuns  atomic.Int64
	nextTimer  time.Time
}

func (h *testHandler) Handle(args [][]byte, out *protocol.Encoder) {
	if len(args) == 2 && string(args[0]) == "big" && len(args[1]) == 4 {
		out.Str(make([]byte, binary.LittleEndian.Uint32(args[1])))
		return
	}
	out.Arr(uint32(len(args)))
	for _, a := range args {
		out.Str(a)
	}
}

func (h *testHandler) NextTimer() (time.Time, bool) {
	if h.timerEvery == 0 {
		return time.Time{}, false
	}
	if h.nextTimer.IsZero() {
		h.nextTimer = time.Now().Add(h.timerEvery)
	}
	return h.nextTimer, true
}

func (h *testHandler) ProcessTimers() {
	if h.timerEvery == 0 || time.Now().Before(h.nextTimer) {
		return
	}
	h.timerRuns.Add(1)
	h.nextTimer = time.Now().Add(h.timerEvery)
}

// startServer binds a tcp server on an ephemeral port and serves it until the test ends
func startServer(t *testing.T, h transport.Handler, mutate func(*common.ServerConfig)) string {
	t.Helper()
	config := common.DefaultServerConfig("127.0.0.1:0")
	if mutate != nil {
		mutate(&config)
	}
	return serve(t, tcp.NewTCPServerTransport(), h, config)
}

func serve(t *testing.T, srv transport.IRPCServerTransport, h transport.Handler, config common.ServerConfig) string {
	t.Helper()
	srv.RegisterHandler(h)
	require.NoError(t, srv.Bind(config))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return srv.Addr()
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func request(t *testing.T, conn net.Conn, args ...string) protocol.Value {
	t.Helper()
	raw := make([][]byte, len(args))
	for i, a := range args {
		raw[i] = []byte(a)
	}
	frame, err := protocol.AppendRequest(nil, raw)
	require.NoError(t, err)
	_, err = conn.Write(frame)
	require.NoError(t, err)

	v, err := protocol.ReadResponse(conn, nil)
	require.NoError(t, err)
	return v
}

// requireClosed asserts that the server closed conn
func requireClosed(t *testing.T, conn net.Conn) {
	t.Helper()
	buf := make([]byte, 1)
	_, err := conn.Read(buf)
	require.Error(t, err)

	// EOF or a reset, but not a timeout
	var netErr net.Error
	if errors.As(err, &netErr) {
		require.False(t, netErr.Timeout(), "connection was not closed")
	}
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestRoundTrip(t *testing.T) {
	addr := startServer(t, &testHandler{}, nil)
	conn := dial(t, addr)

	v := request(t, conn, "set", "foo", "bar")
	assert.Equal(t, `["set" "foo" "bar"]`, v.String())

	v = request(t, conn)
	assert.Equal(t, "[]", v.String())
}

func TestPartialWrites(t *testing.T) {
	addr := startServer(t, &testHandler{}, nil)
	conn := dial(t, addr)

	frame, _ := protocol.AppendRequest(nil, [][]byte{[]byte("slow"), []byte("frame")})
	for _, b := range frame {
		_, err := conn.Write([]byte{b})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	v, err := protocol.ReadResponse(conn, nil)
	require.NoError(t, err)
	assert.Equal(t, `["slow" "frame"]`, v.String())
}

func TestPipelining(t *testing.T) {
	addr := startServer(t, &testHandler{}, nil)
	conn := dial(t, addr)

	const n = 1000
	var stream []byte
	for i := 0; i < n; i++ {
		stream, _ = protocol.AppendRequest(stream, [][]byte{binary.LittleEndian.AppendUint32(nil, uint32(i))})
	}
	go conn.Write(stream)

	for i := 0; i < n; i++ {
		v, err := protocol.ReadResponse(conn, nil)
		require.NoError(t, err)
		require.Len(t, v.Arr, 1)
		require.Equal(t, uint32(i), binary.LittleEndian.Uint32(v.Arr[0].Str))
	}
}

func TestLargeResponse(t *testing.T) {
	addr := startServer(t, &testHandler{}, nil)
	conn := dial(t, addr)

	size := binary.LittleEndian.AppendUint32(nil, 8<<20)
	v := request(t, conn, "big", string(size))
	assert.Len(t, v.Str, 8<<20)

	// still usable afterwards
	v = request(t, conn, "ping")
	assert.Equal(t, `["ping"]`, v.String())
}

func TestOversizedResponseClosesConnection(t *testing.T) {
	addr := startServer(t, &testHandler{}, nil)
	conn := dial(t, addr)

	size := binary.LittleEndian.AppendUint32(nil, protocol.MaxMessageSize+1)
	frame, _ := protocol.AppendRequest(nil, [][]byte{[]byte("big"), size})
	_, err := conn.Write(frame)
	require.NoError(t, err)
	requireClosed(t, conn)
}

func TestOversizedRequestIsolated(t *testing.T) {
	addr := startServer(t, &testHandler{}, nil)
	good := dial(t, addr)
	bad := dial(t, addr)

	request(t, good, "before")

	header := binary.LittleEndian.AppendUint32(nil, protocol.MaxMessageSize+1)
	_, err := bad.Write(header)
	require.NoError(t, err)
	requireClosed(t, bad)

	v := request(t, good, "after")
	assert.Equal(t, `["after"]`, v.String())
}

func TestMalformedRequestClosesConnection(t *testing.T) {
	addr := startServer(t, &testHandler{}, nil)
	conn := dial(t, addr)

	// argc claims more arguments than the frame holds
	body := binary.LittleEndian.AppendUint32(nil, 5)
	frame := binary.LittleEndian.AppendUint32(nil, uint32(len(body)))
	_, err := conn.Write(append(frame, body...))
	require.NoError(t, err)
	requireClosed(t, conn)
}

func TestMaxArgs(t *testing.T) {
	addr := startServer(t, &testHandler{}, func(c *common.ServerConfig) {
		c.MaxArgs = 2
	})
	conn := dial(t, addr)

	request(t, conn, "a", "b")

	frame, _ := protocol.AppendRequest(nil, [][]byte{{1}, {2}, {3}})
	_, err := conn.Write(frame)
	require.NoError(t, err)
	requireClosed(t, conn)
}

func TestIdleTimeout(t *testing.T) {
	addr := startServer(t, &testHandler{}, func(c *common.ServerConfig) {
		c.IdleTimeoutMs = 100
	})

	active := dial(t, addr)
	idle := dial(t, addr)

	// keep one connection busy for longer than the timeout
	for i := 0; i < 5; i++ {
		request(t, active, "ping")
		time.Sleep(40 * time.Millisecond)
	}

	start := time.Now()
	requireClosed(t, idle)
	assert.Less(t, time.Since(start), 2*time.Second)

	request(t, active, "still here")
}

func TestMaxConnections(t *testing.T) {
	addr := startServer(t, &testHandler{}, func(c *common.ServerConfig) {
		c.MaxConnections = 1
	})

	first := dial(t, addr)
	request(t, first, "hello")

	second := dial(t, addr)
	requireClosed(t, second)

	request(t, first, "unaffected")

	// the slot is free again once the first connection is gone
	first.Close()
	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		defer conn.Close()
		conn.SetDeadline(time.Now().Add(time.Second))
		frame, _ := protocol.AppendRequest(nil, [][]byte{[]byte("third")})
		if _, err := conn.Write(frame); err != nil {
			return false
		}
		_, err = protocol.ReadResponse(conn, nil)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestTimersRunWithoutTraffic(t *testing.T) {
	h := &testHandler{timerEvery: 20 * time.Millisecond}
	startServer(t, h, nil)

	require.Eventually(t, func() bool {
		return h.timerRuns.Load() >= 3
	}, 5*time.Second, 10*time.Millisecond)
}

func TestConcurrentConnections(t *testing.T) {
	addr := startServer(t, &testHandler{}, nil)

	const clients = 8
	errs := make(chan error, clients)
	for i := 0; i < clients; i++ {
		go func(i int) {
			conn, err := net.Dial("tcp", addr)
			if err != nil {
				errs <- err
				return
			}
			defer conn.Close()
			for j := 0; j < 100; j++ {
				frame, _ := protocol.AppendRequest(nil, [][]byte{{byte(i)}, {byte(j)}})
				if _, err := conn.Write(frame); err != nil {
					errs <- err
					return
				}
				v, err := protocol.ReadResponse(conn, nil)
				if err != nil {
					errs <- err
					return
				}
				if len(v.Arr) != 2 || v.Arr[0].Str[0] != byte(i) || v.Arr[1].Str[0] != byte(j) {
					errs <- io.ErrUnexpectedEOF
					return
				}
			}
			errs <- nil
		}(i)
	}
	for i := 0; i < clients; i++ {
		require.NoError(t, <-errs)
	}
}

func TestServeLifecycle(t *testing.T) {
	srv := tcp.NewTCPServerTransport()
	srv.RegisterHandler(&testHandler{})

	// serving requires a bound socket
	require.Error(t, srv.Serve(context.Background()))

	config := common.DefaultServerConfig("127.0.0.1:0")
	require.NoError(t, srv.Bind(config))
	require.Error(t, srv.Bind(config))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	conn := dial(t, srv.Addr())
	request(t, conn, "ping")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	requireClosed(t, conn)
}

func TestUnixSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skv.sock")
	config := common.DefaultServerConfig(path)
	serve(t, unix.NewUnixServerTransport(), &testHandler{}, config)

	client := unix.NewUnixClientTransport()
	require.NoError(t, client.Connect(common.ClientConfig{
		TimeoutSecond: 5,
		Transport:     common.ClientTransportConfig{Endpoints: []string{path}},
	}))
	defer client.Close()

	v, err := client.Send([][]byte{[]byte("over"), []byte("unix")})
	require.NoError(t, err)
	assert.Equal(t, `["over" "unix"]`, v.String())
}

func TestClientPipeline(t *testing.T) {
	addr := startServer(t, &testHandler{}, nil)

	client := tcp.NewTCPClientTransport()
	require.NoError(t, client.Connect(common.ClientConfig{
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			Endpoints:              []string{addr},
			ConnectionsPerEndpoint: 2,
			TCPConf:                common.TCPConf{TCPNoDelay: true, TCPLingerSec: -1},
		},
	}))
	defer client.Close()

	reqs := make([][][]byte, 50)
	for i := range reqs {
		reqs[i] = [][]byte{binary.LittleEndian.AppendUint32(nil, uint32(i))}
	}
	resp, err := client.Pipeline(reqs)
	require.NoError(t, err)
	require.Len(t, resp, len(reqs))
	for i, v := range resp {
		require.Len(t, v.Arr, 1)
		assert.Equal(t, uint32(i), binary.LittleEndian.Uint32(v.Arr[0].Str))
	}

	resp, err = client.Pipeline(nil)
	require.NoError(t, err)
	assert.Empty(t, resp)
}

func TestClientClosed(t *testing.T) {
	addr := startServer(t, &testHandler{}, nil)

	client := tcp.NewTCPClientTransport()
	require.NoError(t, client.Connect(common.ClientConfig{
		TimeoutSecond: 5,
		Transport:     common.ClientTransportConfig{Endpoints: []string{addr}},
	}))
	require.NoError(t, client.Close())

	_, err := client.Send([][]byte{[]byte("ping")})
	assert.Error(t, err)
}

func TestClientDoesNotResendAfterWrite(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// the server reads every request and hangs up without answering
	var received atomic.Int32
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				if _, err := protocol.ReadFrame(conn, nil, protocol.MaxMessageSize); err == nil {
					received.Add(1)
				}
			}()
		}
	}()

	client := tcp.NewTCPClientTransport()
	require.NoError(t, client.Connect(common.ClientConfig{
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			Endpoints:  []string{ln.Addr().String()},
			RetryCount: 3,
		},
	}))
	defer client.Close()

	_, err = client.Send([][]byte{[]byte("del"), []byte("k")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, base.ErrResponseLost), err.Error())

	// give a resent request time to arrive
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), received.Load())
}
