package tarantool_queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	opts, err := options(map[string]string{
		"max_recons": "5",
		"timeout":    "1",
		"reconnect":  "2",
		"user":       "user",
		"password":   "pass",
	})
	require.NoError(t, err)
	assert.Equal(t, uint(5), opts.MaxReconnects)
	assert.Equal(t, time.Second, opts.Timeout)
	assert.Equal(t, 2*time.Second, opts.Reconnect)
	assert.Equal(t, "user", opts.User)

	_, err = options(map[string]string{"max_recons": "5", "timeout": "x", "reconnect": "1"})
	assert.Error(t, err)
}

func TestConnector_InitNilConfig(t *testing.T) {
	c := &Connector{}
	assert.Error(t, c.Init(nil))
	assert.NoError(t, c.Close())
}
