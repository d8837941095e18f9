package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := levelFromString(tt.in); got != tt.want {
			t.Errorf("levelFromString(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewProduction(t *testing.T) {
	lg, err := New(Config{Level: "warn"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if lg.Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info to be disabled at warn level")
	}
	if !lg.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("expected error to be enabled at warn level")
	}
}
