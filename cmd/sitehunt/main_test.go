package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/sitehunt/internal/runner"
	"github.com/FranksOps/sitehunt/internal/sheet"
	"github.com/FranksOps/sitehunt/internal/sheet/sheettest"
	"github.com/FranksOps/sitehunt/internal/storage"
	"github.com/FranksOps/sitehunt/internal/storage/jsonbackend"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(append([]string{"--log-file", "", "--env-file", ""}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "sitehunt "+version) {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestValidate(t *testing.T) {
	path := sheettest.Write(t,
		sheettest.Entry{Company: "Acme GmbH"},
		sheettest.Entry{Company: "Globex", Website: "https://globex.com"},
	)

	out, _, err := execute(t, "validate", path)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "2 companies (1 pending)") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestValidate_FriendlyErrors(t *testing.T) {
	_, stderr, err := execute(t, "validate", filepath.Join(t.TempDir(), "missing.xlsx"))
	if !errors.Is(err, sheet.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	if !strings.Contains(stderr, "Excel file not found") {
		t.Errorf("expected friendly message, got %q", stderr)
	}

	path := sheettest.Write(t,
		sheettest.Entry{Company: "A"}, sheettest.Entry{Company: "B"}, sheettest.Entry{Company: "C"},
	)
	t.Setenv("SITEHUNT_WORKBOOK_MAX_COMPANIES", "2")
	_, stderr, err = execute(t, "validate", path)
	if !errors.Is(err, runner.ErrTooManyCompanies) {
		t.Fatalf("expected ErrTooManyCompanies, got %v", err)
	}
	if !strings.Contains(stderr, "Too many companies (3). Max 2 allowed.") {
		t.Errorf("unexpected message: %q", stderr)
	}
}

func TestValidate_NoWorkbook(t *testing.T) {
	if _, _, err := execute(t, "validate"); err == nil {
		t.Error("expected error without a workbook")
	}
}

func TestConfigError(t *testing.T) {
	_, _, err := execute(t, "run", "--renderer", "lynx", "book.xlsx")
	if err == nil || !strings.Contains(err.Error(), "renderer") {
		t.Errorf("expected renderer validation error, got %v", err)
	}
}

func TestReport(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "history.ndjson")
	store, err := jsonbackend.New(dsn)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now().UTC()
	for _, rec := range []*storage.LookupRecord{
		{ID: "1", RunID: "run-a", Company: "Acme", Website: "https://acme.com", Engine: "duckduckgo", Found: true, CreatedAt: now},
		{ID: "2", RunID: "run-a", Company: "Initech", Website: "Search failed after retries", CreatedAt: now},
	} {
		if err := store.Save(context.Background(), rec); err != nil {
			t.Fatal(err)
		}
	}
	store.Close()

	t.Setenv("SITEHUNT_STORAGE_TYPE", "json")
	t.Setenv("SITEHUNT_STORAGE_DSN", dsn)

	out, _, err := execute(t, "report", "--format", "json", "--run", "run-a")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(out, `"TotalLookups": 2`) {
		t.Errorf("unexpected report: %s", out)
	}

	file := filepath.Join(t.TempDir(), "report.html")
	if _, _, err := execute(t, "report", "--format", "html", "-o", file); err != nil {
		t.Fatalf("report to file: %v", err)
	}
	if data, err := os.ReadFile(file); err != nil || !strings.Contains(string(data), "<html") {
		t.Errorf("expected html report file, err=%v", err)
	}
}

func TestReport_RequiresStore(t *testing.T) {
	if _, _, err := execute(t, "report"); err == nil {
		t.Error("expected error without a configured store")
	}
}
