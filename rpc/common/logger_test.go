package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggersTwice(t *testing.T) {
	require.NoError(t, InitLoggers("error"))
	assert.NotPanics(t, func() {
		assert.NoError(t, InitLoggers("debug"))
		assert.NoError(t, InitLoggers("error"))
	})
	assert.Error(t, InitLoggers("loud"))
}
