package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/samirrijal/racemap/internal/pkg/logging"
)

func TestNew_JSONLevel(t *testing.T) {
	var buf bytes.Buffer
	l := logging.New(&buf, "warn", "json")

	l.Info("dropped")
	l.Warn("kept", "route", "10k")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("expected JSON: %v", err)
	}
	if rec["msg"] != "kept" || rec["route"] != "10k" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logging.New(&buf, "debug", "text").Debug("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("expected text output, got %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	if logging.FromContext(context.Background()) != slog.Default() {
		t.Error("expected default logger without a scoped one")
	}

	scoped := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := logging.WithLogger(context.Background(), scoped)
	if logging.FromContext(ctx) != scoped {
		t.Error("expected scoped logger")
	}
}
