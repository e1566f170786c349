package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIPort != DefaultAPIPort || cfg.WorkerPort != DefaultWorkerPort {
		t.Errorf("unexpected ports: %s %s", cfg.APIPort, cfg.WorkerPort)
	}
	if cfg.InferenceTimeout != 300*time.Second {
		t.Errorf("unexpected inference timeout %v", cfg.InferenceTimeout)
	}
	if cfg.HistoryMaxAge != 168*time.Hour {
		t.Errorf("unexpected max age %v", cfg.HistoryMaxAge)
	}
	if cfg.StrictLinks {
		t.Error("strict links should be off by default")
	}
	if cfg.HistoryEnabled() || cfg.QueueEnabled() {
		t.Error("history and queue should be disabled without urls")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"API_PORT":              "9000",
		"DB_URL":                "postgres://x",
		"RABBITMQ_URL":          "amqp://y",
		"INFERENCE_TIMEOUT_SEC": "30",
		"STRICT_LINKS":          "true",
		"HISTORY_MAX_AGE_HOURS": "2",
		"OUTPUT_DIR":            "/tmp/out",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIPort != "9000" || cfg.OutputDir != "/tmp/out" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.InferenceTimeout != 30*time.Second || cfg.HistoryMaxAge != 2*time.Hour {
		t.Errorf("unexpected durations: %v %v", cfg.InferenceTimeout, cfg.HistoryMaxAge)
	}
	if !cfg.StrictLinks || !cfg.HistoryEnabled() || !cfg.QueueEnabled() {
		t.Errorf("unexpected flags: %+v", cfg)
	}
}

func TestFromEnv_InvalidValues(t *testing.T) {
	_, err := FromEnv(envMap(map[string]string{
		"INFERENCE_TIMEOUT_SEC": "soon",
		"STRICT_LINKS":          "maybe",
		"HISTORY_MAX_AGE_HOURS": "-1",
	}))
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("WORKER_PORT=7777\nCORS_ALLOW_ORIGIN=http://localhost:3000\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("ENV_FILE", path)
	// Уже заданная переменная не перезаписывается
	t.Setenv("CORS_ALLOW_ORIGIN", "https://app.example.com")
	t.Setenv("WORKER_PORT", "")
	os.Unsetenv("WORKER_PORT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.WorkerPort != "7777" {
		t.Errorf("expected port from env file, got %s", cfg.WorkerPort)
	}
	if cfg.CORSAllowOrigin != "https://app.example.com" {
		t.Errorf("env file must not override environment, got %s", cfg.CORSAllowOrigin)
	}
}

func TestLoad_MissingEnvFile(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

	if _, err := Load(); err != nil {
		t.Fatalf("missing env file should be ignored: %v", err)
	}
}
