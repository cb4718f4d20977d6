package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     LogConfig
		wantErr bool
	}{
		{"json console", LogConfig{Level: "info", Format: "json", Output: "console"}, false},
		{"console format", LogConfig{Level: "debug", Format: "console", Output: "console"}, false},
		{"file", LogConfig{Level: "warn", Format: "json", Output: "file", File: LogFileConfig{Filename: filepath.Join(dir, "logs", "app.log"), MaxSize: 1}}, false},
		{"both", LogConfig{Level: "error", Format: "json", Output: "both", File: LogFileConfig{Filename: filepath.Join(dir, "both.log")}}, false},
		{"bad level", LogConfig{Level: "loud", Format: "json", Output: "console"}, true},
		{"bad format", LogConfig{Level: "info", Format: "xml", Output: "console"}, true},
		{"bad output", LogConfig{Level: "info", Format: "json", Output: "syslog"}, true},
		{"file without name", LogConfig{Level: "info", Format: "json", Output: "file"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			logger.Info("hello")
		})
	}
}
