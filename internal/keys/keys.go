// Package keys enumerates and paginates the keyspace of a Redis server with
// the incremental SCAN command, so listing stays non-blocking on large stores.
package keys

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/kvadminer/kvadminer/internal/kverr"
	"github.com/kvadminer/kvadminer/internal/value"
)

const (
	// DefaultScanCount is the COUNT hint sent with each SCAN step.
	DefaultScanCount = 1000

	// MaxPageSize bounds Query.PageSize.
	MaxPageSize = 10000
)

// Query selects one page of keys.
type Query struct {
	Page     int    // zero-based page number
	PageSize int    // keys per page, 1..MaxPageSize
	Search   string // optional substring filter
}

// Validate checks the paging parameters.
func (q Query) Validate() error {
	if q.PageSize <= 0 {
		return kverr.Invalid("keys: list", "page_size must be positive, got %d", q.PageSize)
	}
	if q.PageSize > MaxPageSize {
		return kverr.Invalid("keys: list", "page_size must be at most %d, got %d", MaxPageSize, q.PageSize)
	}
	if q.Page < 0 {
		return kverr.Invalid("keys: list", "page must not be negative, got %d", q.Page)
	}
	return nil
}

// Page is one page of entries plus totals over the whole match set.
type Page struct {
	Keys        []value.Entry `json:"keys"`
	CurrentPage int           `json:"current_page"`
	TotalPages  int           `json:"total_pages"`
	TotalKeys   int           `json:"total_keys"`
}

// Pattern turns a search substring into a SCAN MATCH glob. Glob
// metacharacters in search are escaped so the match is a literal substring.
func Pattern(search string) string {
	if search == "" {
		return "*"
	}
	var b strings.Builder
	b.Grow(len(search) + 2)
	b.WriteByte('*')
	for _, r := range search {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('*')
	return b.String()
}

// Scan performs one SCAN step from cursor. Iteration is complete when the
// returned cursor is 0. The batch is bounded by the server, roughly by count.
func Scan(ctx context.Context, rdb redis.Cmdable, pattern string, cursor uint64, count int64) ([]string, uint64, error) {
	batch, next, err := rdb.Scan(ctx, cursor, pattern, count).Result()
	if err != nil {
		return nil, 0, kverr.Store("keys: scan", err)
	}
	return batch, next, nil
}

// Lister pages through keys and reads their values.
type Lister struct {
	count int64
}

// NewLister creates a Lister sending count as the SCAN COUNT hint.
// A non-positive count uses DefaultScanCount.
func NewLister(count int64) *Lister {
	if count <= 0 {
		count = DefaultScanCount
	}
	return &Lister{count: count}
}

// Collect scans the full match set for pattern, stepping the cursor until it
// returns to 0. Duplicate keys reported by SCAN are removed and the result is
// sorted so pages are stable between requests.
func (l *Lister) Collect(ctx context.Context, rdb redis.Cmdable, pattern string) ([]string, error) {
	seen := make(map[string]struct{})
	var all []string

	var cursor uint64
	for {
		batch, next, err := Scan(ctx, rdb, pattern, cursor, l.count)
		if err != nil {
			return nil, err
		}
		for _, k := range batch {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			all = append(all, k)
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	sort.Strings(all)
	return all, nil
}

// List returns the requested page with each key's type and canonical value.
// A page past the end has no keys but still reports the totals. A key whose
// value cannot be read is listed as Unknown so one bad key does not fail the
// page; a cancelled context still aborts.
func (l *Lister) List(ctx context.Context, rdb redis.Cmdable, q Query) (*Page, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	all, err := l.Collect(ctx, rdb, Pattern(q.Search))
	if err != nil {
		return nil, err
	}

	total := len(all)
	pages := total / q.PageSize
	if total%q.PageSize != 0 {
		pages++
	}
	page := &Page{
		Keys:        []value.Entry{},
		CurrentPage: q.Page,
		TotalPages:  pages,
		TotalKeys:   total,
	}

	if q.Page >= page.TotalPages {
		return page, nil
	}
	start := q.Page * q.PageSize
	end := start + q.PageSize
	if end > total {
		end = total
	}

	for _, key := range all[start:end] {
		entry, err := value.Read(ctx, rdb, key)
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return nil, fmt.Errorf("keys: list page %d: %w", q.Page, cerr)
			}
			entry = value.Entry{Key: key, Type: value.Unknown}
		}
		page.Keys = append(page.Keys, entry)
	}
	return page, nil
}
