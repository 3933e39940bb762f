// Package serp runs web searches and extracts the organic result links.
package serp

import (
	"context"
	"errors"
	"fmt"
)

// Domain represents a result link discovered on a search results page.
type Domain struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// SERPProvider abstracts a search engine provider that can return a list of
// result links for a given query. The limit parameter caps the number of
// results returned.
type SERPProvider interface {
	Search(ctx context.Context, query string, limit int) ([]Domain, error)
}

// Named is implemented by providers that can report which engine they use.
type Named interface {
	Name() string
}

// ErrBlocked is matched by every BlockedError.
var ErrBlocked = errors.New("search blocked")

// BlockedError reports that an engine answered with a challenge or block
// page instead of results.
type BlockedError struct {
	Engine string
	Source string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s: blocked by %s", e.Engine, e.Source)
}

func (e *BlockedError) Unwrap() error { return ErrBlocked }
