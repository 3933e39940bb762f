// Package storage persists one record per processed workbook row so runs
// can be audited and reported on later.
package storage

import (
	"context"
	"strings"
	"time"
)

// LookupRecord is the outcome of looking up one company.
type LookupRecord struct {
	ID        string        `json:"id"`
	RunID     string        `json:"run_id"`
	Workbook  string        `json:"workbook"`
	Row       int           `json:"row"`
	Company   string        `json:"company"`
	Query     string        `json:"query"`
	Website   string        `json:"website"`
	Engine    string        `json:"engine,omitempty"`
	Found     bool          `json:"found"`
	Attempts  int           `json:"attempts"`
	BlockedBy []string      `json:"blocked_by,omitempty"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
	Error     string        `json:"error,omitempty"`
}

// Filter allows querying for specific LookupRecords. Results are ordered
// newest first.
type Filter struct {
	RunID   string
	Company string // case-insensitive substring
	Found   *bool
	Since   *time.Time
	Limit   int
	Offset  int
}

// Match reports whether rec passes the filter's predicates. Limit and
// Offset are not considered.
func (f Filter) Match(rec *LookupRecord) bool {
	if f.RunID != "" && rec.RunID != f.RunID {
		return false
	}
	if f.Company != "" && !strings.Contains(strings.ToLower(rec.Company), strings.ToLower(f.Company)) {
		return false
	}
	if f.Found != nil && rec.Found != *f.Found {
		return false
	}
	if f.Since != nil && rec.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Page applies Offset and Limit to records already in result order.
func (f Filter) Page(recs []*LookupRecord) []*LookupRecord {
	if f.Offset > 0 {
		if f.Offset >= len(recs) {
			return []*LookupRecord{}
		}
		recs = recs[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(recs) {
		recs = recs[:f.Limit]
	}
	return recs
}

// Backend defines the interface for storing and querying lookup records.
type Backend interface {
	Save(ctx context.Context, rec *LookupRecord) error
	Query(ctx context.Context, filter Filter) ([]*LookupRecord, error)
	Close() error
}

// Discard is a Backend that keeps nothing.
type Discard struct{}

var _ Backend = Discard{}

func (Discard) Save(context.Context, *LookupRecord) error { return nil }

func (Discard) Query(context.Context, Filter) ([]*LookupRecord, error) { return nil, nil }

func (Discard) Close() error { return nil }
