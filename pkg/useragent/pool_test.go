package useragent

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestPool_Next(t *testing.T) {
	p := NewPool([]string{"A", "B", "C"})

	for _, want := range []string{"A", "B", "C", "A"} {
		if got := p.Next(); got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	}
}

func TestPool_DefaultAndBlankEntries(t *testing.T) {
	p := NewPool([]string{"", "   "})
	if p.Len() != len(DefaultPool) {
		t.Errorf("expected fallback to %d defaults, got %d", len(DefaultPool), p.Len())
	}

	p = NewPool([]string{" X ", ""})
	if p.Len() != 1 || p.Next() != "X" {
		t.Errorf("expected single trimmed entry, got %v", p.All())
	}
}

func TestPool_Random(t *testing.T) {
	p := NewPool([]string{"A", "B"})

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		got := p.Random()
		if got != "A" && got != "B" {
			t.Fatalf("unexpected UA: %s", got)
		}
		seen[got] = true
	}
	if !seen["A"] || !seen["B"] {
		t.Errorf("expected both entries to be picked, saw %v", seen)
	}
}

func TestPool_ConcurrentNext(t *testing.T) {
	p := NewPool([]string{"X", "Y", "Z"})

	const routines, iterations = 50, 300
	results := make(chan string, routines*iterations)

	var wg sync.WaitGroup
	for i := 0; i < routines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				results <- p.Next()
			}
		}()
	}
	wg.Wait()
	close(results)

	counts := map[string]int{}
	for r := range results {
		counts[r]++
	}
	for k, c := range counts {
		if c != routines*iterations/3 {
			t.Errorf("expected even distribution for %s, got %d", k, c)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uas.txt")
	content := "# desktop\nAgent/1.0\n\nAgent/2.0\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	all := p.All()
	if len(all) != 2 || all[0] != "Agent/1.0" || all[1] != "Agent/2.0" {
		t.Errorf("unexpected pool contents: %v", all)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPool_Empty(t *testing.T) {
	p := &Pool{}
	if p.Next() != "" || p.Random() != "" {
		t.Error("expected empty strings from an empty pool")
	}
}
