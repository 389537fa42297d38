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
		{name: "Test1 OK", args: []string{"cmd", "-a", "127.0.0.1:9090", "-i", "10"}, expectPanic: false,
			expected: &Config{ServerEndpointAddr: "127.0.0.1:9090", OnlineCheckInterval: 10 * time.Second}},
		{name: "Test2 incorrect check interval", args: []string{"cmd", "-a", "127.0.0.1:9090", "-i", "abc"}, expectPanic: true, expected: &Config{}},
		{name: "Test3 storage and feed", args: []string{"cmd", "-f", "/tmp/x.db", "-l", "client.log", "-w", ":8081", "-i", "5"}, expectPanic: false,
			expected: &Config{DatabasePath: "/tmp/x.db", LogFile: "client.log", NotifyAddr: ":8081", OnlineCheckInterval: 5 * time.Second}},
		{name: "Test4 foreign flags are ignored", args: []string{"cmd", "-c", "cfg.json", "-a", "h:1"}, expectPanic: false,
			expected: &Config{ServerEndpointAddr: "h:1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
