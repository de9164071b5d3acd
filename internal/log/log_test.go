package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriter(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		logFunc func(Logger)
		want    []string
		notWant []string
	}{
		{
			name: "text format includes message and attrs",
			cfg:  Config{Level: slog.LevelInfo},
			logFunc: func(l Logger) {
				l.Info("sync complete", "documents", 3)
			},
			want: []string{"sync complete", "documents=3"},
		},
		{
			name: "json format",
			cfg:  Config{Level: slog.LevelInfo, JSON: true},
			logFunc: func(l Logger) {
				l.Info("indexed", "chunks", 12)
			},
			want: []string{`"msg":"indexed"`, `"chunks":12`},
		},
		{
			name: "debug suppressed at info level",
			cfg:  Config{Level: slog.LevelInfo},
			logFunc: func(l Logger) {
				l.Debug("noisy detail")
			},
			notWant: []string{"noisy detail"},
		},
		{
			name: "debug emitted at debug level",
			cfg:  Config{Level: slog.LevelDebug},
			logFunc: func(l Logger) {
				l.Debug("diff computed")
			},
			want: []string{"diff computed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(&buf, tt.cfg)
			tt.logFunc(logger)

			got := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("output %q missing %q", got, w)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(got, nw) {
					t.Errorf("output %q should not contain %q", got, nw)
				}
			}
		})
	}
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	// Must not panic and must accept all levels.
	logger.Debug("a")
	logger.Info("b")
	logger.Warn("c")
	logger.Error("d")
}
