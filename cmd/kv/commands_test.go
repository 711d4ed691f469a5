package kv

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/server"
	"github.com/ValentinKolb/sKV/rpc/transport/tcp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) {
	t.Helper()
	config := common.DefaultServerConfig("127.0.0.1:0")
	config.LogLevel = "error"

	s := server.NewRPCServer(config, tcp.NewTCPServerTransport())
	require.NoError(t, s.Init())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	viper.Set("transport", "tcp")
	viper.Set("timeout", 5)
	viper.Set("transport-endpoints", s.Addr())
	viper.Set("transport-retries", 1)
	viper.Set("transport-conn-per-endpoint", 1)
	viper.Set("transport-tcp-linger", -1)

	t.Cleanup(func() {
		if rpcTransport != nil {
			_ = rpcTransport.Close()
			rpcTransport = nil
		}
		viper.Reset()
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
}

// execute runs a verb command and returns its output
func execute(t *testing.T, name string, args ...string) string {
	t.Helper()
	var cmd *cobra.Command
	for _, c := range verbCommands() {
		if c.Name() == name {
			cmd = c
		}
	}
	require.NotNil(t, cmd, name)
	require.NoError(t, cmd.Args(cmd, args))

	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, cmd.RunE(cmd, args))

	// every command opens its own connection
	_ = rpcTransport.Close()
	rpcTransport = nil
	return out.String()
}

func TestVerbCommandUsage(t *testing.T) {
	names := map[string]string{}
	for _, c := range verbCommands() {
		names[c.Name()] = c.Use
	}
	assert.Len(t, names, len(verbs))
	assert.Equal(t, "zquery [key] [score] [name] [offset] [limit]", names["zquery"])
	assert.Equal(t, "keys", names["keys"])
}

func TestVerbCommands(t *testing.T) {
	startServer(t)

	assert.Equal(t, "(str) OK\n", execute(t, "set", "foo", "bar"))
	assert.Equal(t, "(str) bar\n", execute(t, "get", "foo"))
	assert.Equal(t, "(nil)\n", execute(t, "get", "baz"))
	assert.Equal(t, "(int) 1\n", execute(t, "del", "foo"))

	assert.Equal(t, "(int) 1\n", execute(t, "zadd", "zset", "1", "n1"))
	assert.Equal(t, "(int) 1\n", execute(t, "zadd", "zset", "2", "n2"))
	assert.Equal(t, "(int) 0\n", execute(t, "zadd", "zset", "1.1", "n1"))
	assert.Equal(t, "(dbl) 1.1\n", execute(t, "zscore", "zset", "n1"))
	assert.Equal(t, "(arr) len=4\n(str) n1\n(dbl) 1.1\n(str) n2\n(dbl) 2\n(arr) end\n",
		execute(t, "zquery", "zset", "1", "", "0", "10"))
	assert.Equal(t, "(err) 4 expect float\n", execute(t, "zadd", "z1", "not-a-number", "a"))
	assert.Equal(t, "(err) 4 expect int\n", execute(t, "zquery", "z1", "0", "", "0", "bad"))
}
