package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd", "-a", "http://api.local/api", "-p", "http://api.local", "-d", "x.db", "-t", "10", "-l", "debug"},
			expected: &Config{
				APIBaseURL:     "http://api.local/api",
				PushURL:        "http://api.local",
				StoragePath:    "x.db",
				RequestTimeout: 10 * time.Second,
				LogLevel:       "debug",
			},
		},
		{
			name:     "unknown flags ignored",
			args:     []string{"cmd", "-z", "1", "-t", "5"},
			expected: &Config{RequestTimeout: 5 * time.Second},
		},
		{
			name:        "non-numeric timeout",
			args:        []string{"cmd", "-t", "abc"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			cfg := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(cfg) })
				return
			}
			require.NotPanics(t, func() { parseFlags(cfg) })
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}
