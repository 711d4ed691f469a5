package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	cmdUtil "github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/protocol"
	"github.com/ValentinKolb/sKV/rpc/server"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/ValentinKolb/sKV/rpc/transport/tcp"
	"github.com/ValentinKolb/sKV/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the sKV server",
		Long:    `Start the sKV server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is SKV_<flag> (e.g. SKV_IDLE_TIMEOUT_MS=10000)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:1234", cmdUtil.WrapString("The address on which the server will listen (e.g. 0.0.0.0:1234 for tcp, /tmp/skv.sock for unix)"))

	key = "max-args"
	ServeCmd.PersistentFlags().Int(key, protocol.DefaultMaxArgs, cmdUtil.WrapString("The maximum number of arguments of a single request. Requests with more arguments close the connection"))

	key = "max-connections"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The maximum number of open client connections (0 = unlimited). Connections above the limit are closed right after accept"))

	key = "idle-timeout-ms"
	ServeCmd.PersistentFlags().Int64(key, common.DefaultIdleTimeoutMs, cmdUtil.WrapString("Connections without traffic for this many milliseconds are closed (0 = never)"))

	key = "read-chunk-size"
	ServeCmd.PersistentFlags().Int(key, common.DefaultReadChunkSize, cmdUtil.WrapString("The number of bytes read from a connection per readiness event"))

	key = "expire-work-per-tick"
	ServeCmd.PersistentFlags().Int(key, common.DefaultExpireWorkPerTick, cmdUtil.WrapString("The maximum number of expired keys removed per event loop iteration (0 = unlimited)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address of the prometheus metrics endpoint (e.g. localhost:9100, empty = disabled)"))

	key = "write-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The size of the socket write buffer in KB (0 = OS default)"))

	key = "read-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The size of the socket read buffer in KB (0 = OS default)"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY on accepted connections (only for tcp)"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Whether to enable keepalive probes on accepted connections, any value > 0 enables them (only for tcp)"))

	key = "tcp-linger"
	ServeCmd.PersistentFlags().Int(key, -1, cmdUtil.WrapString("The linger time of accepted connections in seconds (-1 = OS default, only for tcp)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// read the configuration from the command line flags and environment variables
	*serveCmdConfig = common.ServerConfig{
		Transport: common.ServerTransportConfig{
			Endpoint: viper.GetString("endpoint"),
			SocketConf: common.SocketConf{
				WriteBufferSize: viper.GetInt("write-buffer") * 1024,
				ReadBufferSize:  viper.GetInt("read-buffer") * 1024,
			},
			TCPConf: common.TCPConf{
				TCPNoDelay:      viper.GetBool("tcp-nodelay"),
				TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
				TCPLingerSec:    viper.GetInt("tcp-linger"),
			},
		},
		MaxArgs:           viper.GetInt("max-args"),
		MaxConnections:    viper.GetInt("max-connections"),
		IdleTimeoutMs:     viper.GetInt64("idle-timeout-ms"),
		ReadChunkSize:     viper.GetInt("read-chunk-size"),
		ExpireWorkPerTick: viper.GetInt("expire-work-per-tick"),
		MetricsEndpoint:   viper.GetString("metrics-endpoint"),
		LogLevel:          viper.GetString("log-level"),
	}

	// validate
	if serveCmdConfig.Transport.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	if serveCmdConfig.MaxArgs <= 0 {
		return fmt.Errorf("max-args must be positive, got %d", serveCmdConfig.MaxArgs)
	}
	if serveCmdConfig.IdleTimeoutMs < 0 {
		return fmt.Errorf("idle-timeout-ms must not be negative, got %d", serveCmdConfig.IdleTimeoutMs)
	}
	if serveCmdConfig.ReadChunkSize <= 0 {
		return fmt.Errorf("read-chunk-size must be positive, got %d", serveCmdConfig.ReadChunkSize)
	}
	if _, err := common.ParseLogLevel(serveCmdConfig.LogLevel); err != nil {
		return err
	}

	return nil
}

// run starts the sKV server and serves until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {

	// Parse the transport
	var t transport.IRPCServerTransport
	switch viper.GetString("transport") {
	case "tcp":
		t = tcp.NewTCPServerTransport()
	case "unix":
		t = unix.NewUnixServerTransport()
	default:
		return fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serv := server.NewRPCServer(*serveCmdConfig, t)
	if err := serv.Serve(ctx); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("skv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
