package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestResolveLogFilePathUsesDefaultsUnderDir(t *testing.T) {
	tmpDir := t.TempDir()
	got, err := resolveLogFilePath(Options{Dir: filepath.Join(tmpDir, "nested")})
	if err != nil {
		t.Fatalf("resolve log path failed: %v", err)
	}
	if filepath.Base(got) != defaultLogFilename {
		t.Fatalf("unexpected log filename: %s", filepath.Base(got))
	}
	if _, err := os.Stat(got); err != nil {
		t.Fatalf("expected log file to be created: %v", err)
	}
}

func TestNewReleaseWritesToConfiguredFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("release", Options{Dir: tmpDir, Filename: "agent.log"})
	log.Info("release-log-test")
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "agent.log"))
	if err != nil {
		t.Fatalf("read release log failed: %v", err)
	}
	if !strings.Contains(string(content), "release-log-test") {
		t.Fatalf("expected log content to contain message, got=%s", string(content))
	}
}

func TestNewDebugDoesNotWriteFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New(" DEBUG ", Options{Dir: tmpDir, Filename: "debug.log"})
	log.Info("debug-log-test")
	_ = log.Sync()

	if _, err := os.Stat(filepath.Join(tmpDir, "debug.log")); !os.IsNotExist(err) {
		t.Fatalf("debug mode should not create log file")
	}
}

func TestSWWithoutFieldsReturnsBase(t *testing.T) {
	if SW() == nil || Named("cart") == nil {
		t.Fatalf("sugared loggers should never be nil")
	}
}

func TestResolveLevel(t *testing.T) {
	cases := []struct {
		mode     string
		explicit string
		want     zapcore.Level
	}{
		{mode: "debug", want: zapcore.DebugLevel},
		{mode: "release", want: zapcore.InfoLevel},
		{mode: "release", explicit: "WARN", want: zapcore.WarnLevel},
		{mode: "debug", explicit: "error", want: zapcore.ErrorLevel},
		{mode: "release", explicit: "loud", want: zapcore.InfoLevel},
	}
	for _, tc := range cases {
		if got := resolveLevel(tc.mode, tc.explicit); got != tc.want {
			t.Fatalf("mode=%s level=%q want %s got %s", tc.mode, tc.explicit, tc.want, got)
		}
	}
}

func TestNewReleaseRespectsExplicitLevel(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("release", Options{Dir: tmpDir, Filename: "warn.log", Level: "warn"})
	log.Info("info-dropped")
	log.Warn("warn-kept")
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "warn.log"))
	if err != nil {
		t.Fatalf("read log failed: %v", err)
	}
	if strings.Contains(string(content), "info-dropped") || !strings.Contains(string(content), "warn-kept") {
		t.Fatalf("unexpected log content: %s", content)
	}
}
