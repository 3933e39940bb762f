package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/sitehunt/internal/storage"
	"github.com/FranksOps/sitehunt/internal/website"
)

func TestGenerateSummary(t *testing.T) {
	now := time.Now()

	recs := []*storage.LookupRecord{
		{RunID: "a", Found: true, Engine: "duckduckgo", Website: "https://acme.com", Duration: 10 * time.Second, CreatedAt: now},
		{RunID: "a", Found: true, Engine: "startpage", Website: "https://globex.com", BlockedBy: []string{"duckduckgo"}, Duration: 20 * time.Second, CreatedAt: now.Add(time.Second)},
		{RunID: "b", Website: website.SearchFailed, BlockedBy: []string{"duckduckgo", "startpage"}, Duration: 30 * time.Second, CreatedAt: now.Add(2 * time.Second)},
		{RunID: "b", Website: website.RequestFailed, CreatedAt: now.Add(-time.Second)},
	}

	s := GenerateSummary(recs)

	if s.TotalLookups != 4 || s.Runs != 2 {
		t.Errorf("expected 4 lookups over 2 runs, got %d/%d", s.TotalLookups, s.Runs)
	}
	if s.Found != 2 || s.NotFound != 1 || s.Failed != 1 {
		t.Errorf("unexpected outcome split found=%d notfound=%d failed=%d", s.Found, s.NotFound, s.Failed)
	}
	if s.SuccessRate != 50 {
		t.Errorf("expected 50%% success rate, got %v", s.SuccessRate)
	}
	if s.HitsByEngine["duckduckgo"] != 1 || s.HitsByEngine["startpage"] != 1 {
		t.Errorf("unexpected hits %v", s.HitsByEngine)
	}
	if s.BlocksByEngine["duckduckgo"] != 2 || s.BlocksByEngine["startpage"] != 1 {
		t.Errorf("unexpected blocks %v", s.BlocksByEngine)
	}
	if s.AvgLookup != 15*time.Second {
		t.Errorf("expected 15s average, got %v", s.AvgLookup)
	}
	if s.Duration != 3*time.Second {
		t.Errorf("expected 3s duration, got %v", s.Duration)
	}
}

func TestGenerateSummary_Empty(t *testing.T) {
	s := GenerateSummary(nil)
	if s.TotalLookups != 0 || s.SuccessRate != 0 || s.HitsByEngine == nil {
		t.Errorf("unexpected empty summary %+v", s)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, Summary{TotalLookups: 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"TotalLookups": 5`) {
		t.Errorf("expected JSON to contain TotalLookups: 5")
	}
}

func TestWriteText(t *testing.T) {
	summary := Summary{
		TotalLookups: 5,
		Found:        4,
		SuccessRate:  80,
		HitsByEngine: map[string]int{"duckduckgo": 4},
	}
	var buf bytes.Buffer
	if err := WriteText(&buf, summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Found:         4 (80.0%)") {
		t.Errorf("expected found line, got:\n%s", out)
	}
	if !strings.Contains(out, "duckduckgo: 4") {
		t.Errorf("expected engine hits, got:\n%s", out)
	}
}

func TestWriteHTML(t *testing.T) {
	summary := Summary{
		TotalLookups:   10,
		Failed:         2,
		BlocksByEngine: map[string]int{"<startpage>": 2},
	}
	var buf bytes.Buffer
	if err := WriteHTML(&buf, summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "<title>sitehunt Lookup Report</title>") {
		t.Errorf("expected HTML title")
	}
	if !strings.Contains(out, "&lt;startpage&gt;") {
		t.Errorf("expected engine names to be escaped")
	}
}

func TestWrite_Formats(t *testing.T) {
	for _, f := range []string{"", "text", "json", "html"} {
		var buf bytes.Buffer
		if err := Write(&buf, f, Summary{}); err != nil || buf.Len() == 0 {
			t.Errorf("format %q: err=%v len=%d", f, err, buf.Len())
		}
	}
	if err := Write(&bytes.Buffer{}, "xml", Summary{}); err == nil {
		t.Error("expected error for unknown format")
	}
}
