package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func initBuffered(t *testing.T, opts ...Option) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	opts = append(opts, WithOutput(zapcore.AddSync(&buf)))
	if err := Init(opts...); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	return &buf
}

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
	if err := Init(WithFormat("console")); err != nil {
		t.Fatalf("failed to initialize console logger: %v", err)
	}
	if err := Init(WithFormat("xml")); err == nil {
		t.Fatal("expected an error for an unknown format")
	}
	if err := Init(WithLevel("loud")); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
}

func TestLoggerStructuredOutput(t *testing.T) {
	buf := initBuffered(t)
	ctx := context.Background()

	Named("worker").Info(ctx, "applied", String("kind", "test_completed"), Int("partition", 2), Error(errors.New("boom")))

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected a json line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "applied" {
		t.Errorf("unexpected msg %v", entry["msg"])
	}
	if entry["logger"] != "worker" {
		t.Errorf("unexpected logger name %v", entry["logger"])
	}
	if entry["kind"] != "test_completed" {
		t.Errorf("unexpected kind %v", entry["kind"])
	}
	if entry["error"] != "boom" {
		t.Errorf("unexpected error field %v", entry["error"])
	}
	if caller, _ := entry["caller"].(string); !strings.Contains(caller, "logger_test.go") {
		t.Errorf("caller should point at the test, got %v", entry["caller"])
	}
}

func TestLoggerLevels(t *testing.T) {
	buf := initBuffered(t, WithLevel("warn"))
	ctx := context.Background()

	Get().Info(ctx, "hidden")
	Get().Warn(ctx, "shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("info should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn should be written at warn level")
	}

	if err := SetLevelString("debug"); err != nil {
		t.Fatalf("set level: %v", err)
	}
	Get().Debug(ctx, "now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Error("debug should be written after lowering the level")
	}
	if err := SetLevelString("nope"); err == nil {
		t.Error("expected an error for an unknown level")
	}
	_ = SetLevelString("info")
}
