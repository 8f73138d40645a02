package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupReturnsNilWhenNoLogIsSet(t *testing.T) {
	l, err := Setup(t.TempDir(), false, true, []string{"dashcamd", "run"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if l != nil {
		t.Fatal("expected a nil Logger when noLog is true")
	}
}

func TestSetupCreatesLogFileWithCommandLine(t *testing.T) {
	dir := t.TempDir()
	l, err := Setup(dir, false, false, []string{"dashcamd", "run", "/videos"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer l.Close()

	if l.Path() == "" {
		t.Fatal("expected a non-empty log file path")
	}
	if filepath.Dir(l.Path()) != dir {
		t.Errorf("log file dir = %s, want %s", filepath.Dir(l.Path()), dir)
	}

	contents, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(contents), "dashcamd run /videos") {
		t.Errorf("expected the command line in the log file, got %q", contents)
	}
}

func TestDebugIsSuppressedWithoutVerbose(t *testing.T) {
	dir := t.TempDir()
	l, _ := Setup(dir, false, false, []string{"x"})
	defer l.Close()

	l.Debug("should not appear")
	contents, _ := os.ReadFile(l.Path())
	if strings.Contains(string(contents), "should not appear") {
		t.Error("expected Debug to be suppressed when verbose is false")
	}
}

func TestDebugAppearsWithVerbose(t *testing.T) {
	dir := t.TempDir()
	l, _ := Setup(dir, true, false, []string{"x"})
	defer l.Close()

	l.Debug("should appear")
	contents, _ := os.ReadFile(l.Path())
	if !strings.Contains(string(contents), "should appear") {
		t.Error("expected Debug output when verbose is true")
	}
}

func TestNilLoggerMethodsAreSafeNoops(t *testing.T) {
	var l *Logger
	l.Info("x")
	l.Debug("x")
	if l.Path() != "" {
		t.Error("expected empty Path on a nil Logger")
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close on nil Logger: %v", err)
	}
	if l.Writer() == nil {
		t.Error("expected a non-nil discard Writer on a nil Logger")
	}
}

func TestDefaultLogDirHonorsXDGStateHome(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/custom/state")
	got := DefaultLogDir()
	want := filepath.Join("/custom/state", "dashcamd", "logs")
	if got != want {
		t.Errorf("DefaultLogDir() = %q, want %q", got, want)
	}
}
