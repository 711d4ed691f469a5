package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/db/engines/cedar"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("rpc")

// DefaultAdapters returns the adapters of the complete command vocabulary
func DefaultAdapters() []IRPCServerAdapter {
	return []IRPCServerAdapter{
		NewKVServerAdapter(),
		NewTTLServerAdapter(),
		NewZSetServerAdapter(),
	}
}

// NewRPCServer creates a new RPC server
// It takes a config and a transport as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		tcp.NewTCPServerTransport(),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewRPCServer(config common.ServerConfig, transport transport.IRPCServerTransport) *RPCServer {
	return &RPCServer{
		config:    config,
		transport: transport,
	}
}

// RPCServer serves one keyspace over one transport
type RPCServer struct {
	config    common.ServerConfig
	transport transport.IRPCServerTransport
	keyspace  db.KVDB
}

// Init sets up the loggers and the keyspace and binds the transport
func (s *RPCServer) Init() error {
	if err := common.InitLoggers(s.config.LogLevel); err != nil {
		return err
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof(s.config.String())

	s.keyspace = cedar.NewCedarDB(cedar.DefaultOptions())
	s.transport.RegisterHandler(NewDispatcher(s.keyspace, s.config.ExpireWorkPerTick, DefaultAdapters()...))

	if err := s.transport.Bind(s.config); err != nil {
		s.keyspace.Close()
		return fmt.Errorf("failed to bind transport: %w", err)
	}

	Logger.Infof("sKV listening on %s", s.transport.Addr())
	return nil
}

// Addr returns the address of the bound transport
func (s *RPCServer) Addr() string {
	return s.transport.Addr()
}

// Run serves requests until ctx is cancelled. Init must have been called.
func (s *RPCServer) Run(ctx context.Context) error {
	defer s.keyspace.Close()

	if s.config.MetricsEndpoint != "" {
		stop := s.serveMetrics(s.config.MetricsEndpoint)
		defer stop()
	}

	return s.transport.Serve(ctx)
}

// Serve is Init followed by Run
func (s *RPCServer) Serve(ctx context.Context) error {
	if err := s.Init(); err != nil {
		return err
	}
	return s.Run(ctx)
}

// serveMetrics exposes all metrics in the prometheus text format on addr.
// The returned function stops the endpoint.
func (s *RPCServer) serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		Logger.Infof("Metrics available on http://%s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			Logger.Errorf("metrics endpoint failed: %v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
