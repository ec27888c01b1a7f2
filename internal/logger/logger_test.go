package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestResolveLogFilePathDefaultDir(t *testing.T) {
	tmpDir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("get wd failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	got, err := resolveLogFilePath(Options{})
	if err != nil {
		t.Fatalf("resolve default log path failed: %v", err)
	}
	realTmpDir, err := filepath.EvalSymlinks(tmpDir)
	if err != nil {
		t.Fatalf("resolve tmp dir symlink failed: %v", err)
	}
	realGot, err := filepath.EvalSymlinks(filepath.Dir(got))
	if err != nil {
		t.Fatalf("resolve got dir symlink failed: %v", err)
	}
	if realGot != filepath.Join(realTmpDir, defaultLogDirName) {
		t.Fatalf("unexpected log dir: %s", realGot)
	}
	if filepath.Base(got) != defaultLogFilename {
		t.Fatalf("unexpected log filename: %s", filepath.Base(got))
	}
}

func TestNewReleaseWritesJSONWithServiceField(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("release", Options{Dir: tmpDir, Filename: "release.log", Service: "mall-worker"})
	log.Info("order_expired", zap.Uint("order_id", 42))
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "release.log"))
	if err != nil {
		t.Fatalf("read release log failed: %v", err)
	}
	line := strings.TrimSpace(strings.Split(string(content), "\n")[0])
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("release log should be json: %v line=%s", err, line)
	}
	if entry["event"] != "order_expired" {
		t.Fatalf("unexpected event field: %v", entry["event"])
	}
	if entry["service"] != "mall-worker" {
		t.Fatalf("unexpected service field: %v", entry["service"])
	}
	if entry["order_id"] != float64(42) {
		t.Fatalf("unexpected order_id field: %v", entry["order_id"])
	}
}

func TestNewDebugDoesNotWriteFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("debug", Options{Dir: tmpDir, Filename: "debug.log"})
	log.Info("debug-log-test")
	_ = log.Sync()

	if _, err := os.Stat(filepath.Join(tmpDir, "debug.log")); !os.IsNotExist(err) {
		t.Fatalf("debug mode should not create log file")
	}
}

func TestResolveLevel(t *testing.T) {
	cases := []struct {
		raw   string
		debug bool
		want  string
	}{
		{raw: "", debug: true, want: "debug"},
		{raw: "", debug: false, want: "info"},
		{raw: "WARN", debug: true, want: "warn"},
		{raw: "verbose", debug: false, want: "info"},
	}
	for _, tc := range cases {
		if got := resolveLevel(tc.raw, tc.debug).Level().String(); got != tc.want {
			t.Fatalf("resolveLevel(%q, %v) = %s, want %s", tc.raw, tc.debug, got, tc.want)
		}
	}
}

func TestReleaseLevelFiltersDebug(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("release", Options{Dir: tmpDir, Filename: "level.log", Level: "warn"})
	log.Info("should_be_dropped")
	log.Warn("should_be_kept")
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "level.log"))
	if err != nil {
		t.Fatalf("read log failed: %v", err)
	}
	if strings.Contains(string(content), "should_be_dropped") || !strings.Contains(string(content), "should_be_kept") {
		t.Fatalf("unexpected log content: %s", string(content))
	}
}
