package main

import (
	"os"
	"path/filepath"
	"testing"

	"devagent/internal/logging"
)

func TestLogManagerInitialization(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	lm, err := logging.NewManager(logging.Config{
		FilePath:       logPath,
		MaxSizeMB:      1,
		MaxBackups:     1,
		MaxAgeDays:     1,
		ChannelBufSize: 10,
		Level:          "debug",
	})
	if err != nil {
		t.Fatalf("failed to create LogManager: %v", err)
	}
	defer func() { _ = lm.Close() }()

	logger := lm.For("app")
	logger.Info("test message")
	_ = lm.Sync()

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Error("log file was not created")
	}

	select {
	case entry := <-lm.Entries():
		if entry.Scope != "app" {
			t.Errorf("expected scope 'app', got %q", entry.Scope)
		}
		if entry.Message != "test message" {
			t.Errorf("expected message 'test message', got %q", entry.Message)
		}
	default:
		t.Error("no log entry received on channel")
	}
}

func TestResolveDataDir_UsesExplicitConfigDir(t *testing.T) {
	got := resolveDataDir("/tmp/explicit-devagent-dir")
	if got != "/tmp/explicit-devagent-dir" {
		t.Errorf("resolveDataDir = %q, want explicit dir back unchanged", got)
	}
}

func TestResolveDataDir_FallsBackToHomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")

	got := resolveDataDir("")
	want := filepath.Join(home, ".config", "devagent")
	if got != want {
		t.Errorf("resolveDataDir(\"\") = %q, want %q", got, want)
	}
}

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := loadConfig(dir)
	if err != nil {
		t.Fatalf("loadConfig error = %v", err)
	}
	if cfg.Web.Port != 7681 {
		t.Errorf("Web.Port = %d, want default 7681", cfg.Web.Port)
	}
	if cfg.Shell == "" {
		t.Error("Shell should fall back to a non-empty default")
	}
}
