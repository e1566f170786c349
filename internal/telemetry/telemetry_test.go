package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		env  string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.env)
			if got := LogLevel(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNewLogger_JSONWithNodeFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo, "json")

	WithNodeID(WithRunID(logger, "run-1"), "2", "textInput").Info("node completed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log is not json: %v (%s)", err, buf.String())
	}
	if entry["run_id"] != "run-1" || entry["node_id"] != "2" || entry["kind"] != "textInput" {
		t.Errorf("unexpected log entry: %v", entry)
	}
}

func TestFromContext(t *testing.T) {
	// Без логгера — глобальный
	if FromContext(context.Background()) != slog.Default() {
		t.Error("expected default logger")
	}

	logger := NewLogger(&bytes.Buffer{}, slog.LevelInfo, "text")
	ctx := WithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Error("expected logger from context")
	}
}

func TestNewMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RunsTotal.WithLabelValues("succeeded").Inc()
	m.UnresolvedInputs.Add(2)

	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("succeeded")); got != 1 {
		t.Errorf("expected 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.UnresolvedInputs); got != 2 {
		t.Errorf("expected 2, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected registered metric families")
	}
}
