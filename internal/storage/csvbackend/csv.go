package csvbackend

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/FranksOps/sitehunt/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// headers defines the CSV column order
var headers = []string{
	"id",
	"run_id",
	"workbook",
	"row",
	"company",
	"query",
	"website",
	"engine",
	"found",
	"attempts",
	"blocked_by",
	"duration_ms",
	"created_at",
	"error",
}

// New creates a new CSV-backed storage.Backend. The file is a plain
// spreadsheet-friendly log; blocked_by is a semicolon separated list.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("csv: open: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("csv: stat: %w", err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("csv: write header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("csv: write header: %w", err)
		}
	}

	return &csvBackend{file: f}, nil
}

func (b *csvBackend) Save(ctx context.Context, rec *storage.LookupRecord) error {
	record := []string{
		rec.ID,
		rec.RunID,
		rec.Workbook,
		strconv.Itoa(rec.Row),
		rec.Company,
		rec.Query,
		rec.Website,
		rec.Engine,
		strconv.FormatBool(rec.Found),
		strconv.Itoa(rec.Attempts),
		strings.Join(rec.BlockedBy, ";"),
		strconv.FormatInt(rec.Duration.Milliseconds(), 10),
		rec.CreatedAt.Format(time.RFC3339Nano),
		rec.Error,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("csv: seek: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(record); err != nil {
		return fmt.Errorf("csv: write: %w", err)
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("csv: write: %w", err)
	}

	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.LookupRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("csv: seek: %w", err)
	}
	defer func() {
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)

	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return []*storage.LookupRecord{}, nil
		}
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	var matched []*storage.LookupRecord
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read: %w", err)
		}
		if len(record) != len(headers) {
			continue // skip malformed rows
		}

		rec := parseRecord(record)
		if filter.Match(rec) {
			matched = append(matched, rec)
		}
	}

	// newest first
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}

	return filter.Page(matched), nil
}

func parseRecord(record []string) *storage.LookupRecord {
	row, _ := strconv.Atoi(record[3])
	found, _ := strconv.ParseBool(record[8])
	attempts, _ := strconv.Atoi(record[9])
	durationMs, _ := strconv.ParseInt(record[11], 10, 64)
	createdAt, _ := time.Parse(time.RFC3339Nano, record[12])

	var blockedBy []string
	if record[10] != "" {
		blockedBy = strings.Split(record[10], ";")
	}

	return &storage.LookupRecord{
		ID:        record[0],
		RunID:     record[1],
		Workbook:  record[2],
		Row:       row,
		Company:   record[4],
		Query:     record[5],
		Website:   record[6],
		Engine:    record[7],
		Found:     found,
		Attempts:  attempts,
		BlockedBy: blockedBy,
		Duration:  time.Duration(durationMs) * time.Millisecond,
		CreatedAt: createdAt,
		Error:     record[13],
	}
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
