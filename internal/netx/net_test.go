package netx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketURL(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		path   string
		want   string
	}{
		{"http", "http://localhost:5000", "/socket.io/", "ws://localhost:5000/socket.io/"},
		{"https with base", "https://push.example.com/base/", "/socket.io/", "wss://push.example.com/base/socket.io/"},
		{"ws kept", "ws://h:1", "", "ws://h:1"},
		{"wss kept", "wss://h", "/x", "wss://h/x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := WebSocketURL(tt.origin, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.String())
		})
	}
}

func TestWebSocketURL_Errors(t *testing.T) {
	for _, origin := range []string{"ftp://x", "http://", "://bad"} {
		_, err := WebSocketURL(origin, "/")
		assert.Error(t, err, origin)
	}
}
