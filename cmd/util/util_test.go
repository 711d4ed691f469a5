package util

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapString(t *testing.T) {
	text := "The address of the sKV server. Multiple endpoints can be specified as a comma-separated list"
	wrapped := WrapString(text)

	for _, line := range strings.Split(wrapped, "\n") {
		assert.LessOrEqual(t, len(line), Wrap, line)
	}
	assert.Equal(t, strings.Fields(text), strings.Fields(wrapped))

	assert.Equal(t, "", WrapString("   "))
	long := strings.Repeat("x", Wrap+10)
	assert.Equal(t, "a\n"+long+"\nb", WrapString("a "+long+" b"))
}

func TestGetClientConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("timeout", 7)
	viper.Set("transport-endpoints", "a:1,b:2")
	viper.Set("transport-retries", 2)
	viper.Set("transport-conn-per-endpoint", 4)
	viper.Set("transport-write-buffer", 2)
	viper.Set("transport-tcp-linger", -1)
	viper.Set("transport-tcp-nodelay", true)

	config := GetClientConfig()
	assert.Equal(t, 7, config.TimeoutSecond)
	assert.Equal(t, []string{"a:1", "b:2"}, config.Transport.Endpoints)
	assert.Equal(t, 2, config.Transport.RetryCount)
	assert.Equal(t, 4, config.Transport.ConnectionsPerEndpoint)
	assert.Equal(t, 2048, config.Transport.WriteBufferSize)
	assert.Equal(t, -1, config.Transport.TCPLingerSec)
	assert.True(t, config.Transport.TCPNoDelay)
}

func TestGetTransport(t *testing.T) {
	t.Cleanup(viper.Reset)

	for _, name := range []string{"tcp", "unix"} {
		viper.Set("transport", name)
		tr, err := GetTransport()
		require.NoError(t, err)
		assert.NotNil(t, tr)
	}

	viper.Set("transport", "http")
	_, err := GetTransport()
	assert.Error(t, err)
}
