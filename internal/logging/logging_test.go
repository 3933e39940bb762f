package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_FileAndConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	var console bytes.Buffer

	logger, closer, err := New(Config{
		Level:        "debug",
		File:         path,
		Output:       &console,
		ConsoleLevel: "info",
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	logger.Debug("candidate skipped", "url", "https://facebook.com/acme")
	logger.With("run_id", "r1").Info("website found", "company", "Acme")

	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	file := string(data)
	if !strings.Contains(file, "candidate skipped") || !strings.Contains(file, "website found") {
		t.Errorf("expected both records in file, got:\n%s", file)
	}
	if !strings.Contains(file, "run_id=r1") {
		t.Errorf("expected attrs to reach the file handler, got:\n%s", file)
	}

	out := console.String()
	if strings.Contains(out, "candidate skipped") {
		t.Errorf("debug record must not reach the info console")
	}
	if !strings.Contains(out, "company=Acme") {
		t.Errorf("expected info record on console, got:\n%s", out)
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Config{Extra: []slog.Handler{slog.NewJSONHandler(&buf, nil)}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Info("hello", "k", "v")
	if !strings.Contains(buf.String(), `"k":"v"`) {
		t.Errorf("expected JSON output, got %s", buf.String())
	}
}

func TestNew_BadFile(t *testing.T) {
	if _, _, err := New(Config{File: filepath.Join(t.TempDir(), "missing", "debug.log")}); err == nil {
		t.Error("expected error for unwritable log path")
	}
}

func TestFanout_Enabled(t *testing.T) {
	var a, b bytes.Buffer
	f := Fanout{
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}
	logger := slog.New(f).WithGroup("g")
	logger.Info("only b")

	if a.Len() != 0 {
		t.Errorf("error-level handler should be skipped, got %q", a.String())
	}
	if !strings.Contains(b.String(), "only b") {
		t.Errorf("debug-level handler should receive record, got %q", b.String())
	}
}
