package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func writeLoggingConfig(t *testing.T, ws, content string) {
	t.Helper()
	dir := filepath.Join(ws, ".flowstitch")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestInitializeWithoutConfigIsSilent(t *testing.T) {
	ws := t.TempDir()
	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(CloseAll)

	if IsDebugMode() {
		t.Error("debug mode on without config")
	}

	// No-op loggers must be safe to use.
	Get(CategoryStitch).Info("ignored")
	Pipeline("also ignored %d", 1)

	if _, err := os.Stat(filepath.Join(ws, ".flowstitch", "logs")); !os.IsNotExist(err) {
		t.Error("logs directory created in production mode")
	}
}

func TestInitializeDebugModeWritesCategoryFiles(t *testing.T) {
	ws := t.TempDir()
	writeLoggingConfig(t, ws, "logging:\n  debug_mode: true\n  level: debug\n")

	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(CloseAll)

	if !IsDebugMode() {
		t.Fatal("debug mode off despite config")
	}

	Get(CategoryStitch).Info("stitched %d nodes", 3)
	CloseAll()

	logsDir := filepath.Join(ws, ".flowstitch", "logs")
	entries, err := os.ReadDir(logsDir)
	if err != nil {
		t.Fatalf("logs directory missing: %v", err)
	}
	found := false
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(logsDir, e.Name()))
		if err != nil {
			continue
		}
		if len(data) > 0 && filepath.Ext(e.Name()) == ".log" {
			found = true
		}
	}
	if !found {
		t.Error("no non-empty log file written in debug mode")
	}
}

func TestCategoryToggle(t *testing.T) {
	ws := t.TempDir()
	writeLoggingConfig(t, ws, "logging:\n  debug_mode: true\n  level: debug\n  categories:\n    stitch: false\n")

	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(CloseAll)

	if IsCategoryEnabled(CategoryStitch) {
		t.Error("disabled category reported enabled")
	}
	if !IsCategoryEnabled(CategoryVector) {
		t.Error("unlisted category not enabled by default")
	}
}

func TestTimerIsSafeWhenDisabled(t *testing.T) {
	if err := Initialize(t.TempDir()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(CloseAll)

	timer := StartTimer(CategoryStitch, "op")
	if d := timer.Stop(); d < 0 {
		t.Errorf("negative duration %v", d)
	}
}
