package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// logLine is the JSON shape slog's handler emits.
type logLine struct {
	Level   string `json:"level"`
	Message string `json:"msg"`
	Error   string `json:"error"`
	Key     string `json:"key"`
}

func decodeLine(t *testing.T, buf *bytes.Buffer) logLine {
	t.Helper()
	var line logLine
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("Failed to decode log line %q: %v", buf.String(), err)
	}
	return line
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"nonsense", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLogLevel(tt.input); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLogger_Levels(t *testing.T) {
	t.Run("info message", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(InfoLevel, &buf)
		logger.Info("resolved database config")

		line := decodeLine(t, &buf)
		if line.Level != "INFO" {
			t.Errorf("level = %q, want INFO", line.Level)
		}
		if line.Message != "resolved database config" {
			t.Errorf("msg = %q", line.Message)
		}
	})

	t.Run("debug suppressed at info level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(InfoLevel, &buf)
		logger.Debug("should not appear")

		if buf.Len() != 0 {
			t.Errorf("Expected no output, got %q", buf.String())
		}
	})

	t.Run("debug emitted at debug level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(DebugLevel, &buf)
		logger.Debugf("memo %s", "hit")

		line := decodeLine(t, &buf)
		if line.Level != "DEBUG" {
			t.Errorf("level = %q, want DEBUG", line.Level)
		}
		if line.Message != "memo hit" {
			t.Errorf("msg = %q", line.Message)
		}
	})

	t.Run("warn and error", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(WarnLevel, &buf)
		logger.Warnf("missing %s", "POSTGRES_HOST")
		logger.Error("validation failed")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("Expected 2 log lines, got %d", len(lines))
		}
	})
}

func TestLogger_WithField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf).WithField("key", "value")
	logger.Info("hello")

	line := decodeLine(t, &buf)
	if line.Key != "value" {
		t.Errorf("key field = %q, want value", line.Key)
	}
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf).WithFields(map[string]interface{}{
		"key":   "value",
		"other": 42,
	})
	logger.Info("hello")

	var raw map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if raw["key"] != "value" {
		t.Errorf("key = %v, want value", raw["key"])
	}
	if raw["other"] != float64(42) {
		t.Errorf("other = %v, want 42", raw["other"])
	}
}

func TestLogger_WithError(t *testing.T) {
	t.Run("attaches error field", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(InfoLevel, &buf).WithError(errors.New("boom"))
		logger.Error("resolution failed")

		line := decodeLine(t, &buf)
		if line.Error != "boom" {
			t.Errorf("error field = %q, want boom", line.Error)
		}
	})

	t.Run("nil error is a no-op", func(t *testing.T) {
		var buf bytes.Buffer
		base := NewLogger(InfoLevel, &buf)
		if base.WithError(nil) != base {
			t.Error("Expected WithError(nil) to return the same logger")
		}
	})
}

func TestNewNopLogger(t *testing.T) {
	logger := NewNopLogger()
	// Must not panic and must not write anywhere observable.
	logger.Info("discarded")
	logger.Errorf("also %s", "discarded")

	if logger.Level() != ErrorLevel {
		t.Errorf("Level() = %v, want ErrorLevel", logger.Level())
	}
}

func TestLogLevel_String(t *testing.T) {
	if DebugLevel.String() != "DEBUG" || ErrorLevel.String() != "ERROR" {
		t.Error("unexpected level names")
	}
}
