package query

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/gupsammy/Claudest/internal/store"
)

// ErrInvalidQuery marks out-of-range or malformed filter arguments.
// Such requests are rejected before any storage access.
var ErrInvalidQuery = errors.New("invalid query")

const (
	MaxRecentN     = 20
	MaxSearchHits  = 10
	DefaultRecentN = 3
	DefaultHits    = 5
)

// Engine validates and normalizes caller arguments, delegates to the
// store, and applies content truncation when assembling output.
type Engine struct {
	store      *store.Store
	truncLimit int // runes of message content per message, 0 = off
}

func New(st *store.Store, truncLimit int) *Engine {
	return &Engine{store: st, truncLimit: truncLimit}
}

// RecentParams are the raw caller inputs for the recent-sessions query.
type RecentParams struct {
	N         int
	SortOrder string // "asc" or "desc", "" = desc
	Before    string
	After     string
	Projects  string // comma-separated names
	Verbose   bool
}

// RecentResult always carries full message sets; verbose only controls
// whether files_modified/commits are folded in.
type RecentResult struct {
	Sessions []store.Session
}

func (e *Engine) Recent(p RecentParams) (*RecentResult, error) {
	if p.N == 0 {
		p.N = DefaultRecentN
	}
	if p.N < 1 || p.N > MaxRecentN {
		return nil, fmt.Errorf("%w: n must be in [1,%d], got %d", ErrInvalidQuery, MaxRecentN, p.N)
	}

	ascending := false
	switch p.SortOrder {
	case "", "desc":
	case "asc":
		ascending = true
	default:
		return nil, fmt.Errorf("%w: sort order must be asc or desc, got %q", ErrInvalidQuery, p.SortOrder)
	}

	before, err := normalizeDate(p.Before)
	if err != nil {
		return nil, err
	}
	after, err := normalizeDate(p.After)
	if err != nil {
		return nil, err
	}

	sessions, err := e.store.RecentSessions(store.RecentOptions{
		N:         p.N,
		Ascending: ascending,
		Before:    before,
		After:     after,
		Projects:  splitProjects(p.Projects),
	})
	if err != nil {
		return nil, err
	}

	for i := range sessions {
		e.truncateMessages(sessions[i].Messages)
		if !p.Verbose {
			sessions[i].FilesModified = nil
			sessions[i].Commits = nil
		}
	}
	return &RecentResult{Sessions: sessions}, nil
}

// SearchParams are the raw caller inputs for keyword search.
type SearchParams struct {
	Query      string
	MaxResults int
	Projects   string
	Verbose    bool
}

type SearchResult struct {
	Query string
	Hits  []store.SearchHit
}

func (e *Engine) Search(p SearchParams) (*SearchResult, error) {
	terms := strings.Fields(p.Query)
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidQuery)
	}

	if p.MaxResults == 0 {
		p.MaxResults = DefaultHits
	}
	if p.MaxResults < 1 || p.MaxResults > MaxSearchHits {
		return nil, fmt.Errorf("%w: max results must be in [1,%d], got %d", ErrInvalidQuery, MaxSearchHits, p.MaxResults)
	}

	hits, err := e.store.Search(store.SearchOptions{
		Terms:      terms,
		MaxResults: p.MaxResults,
		Projects:   splitProjects(p.Projects),
		Verbose:    p.Verbose,
	})
	if err != nil {
		return nil, err
	}

	for i := range hits {
		e.truncateMessages(hits[i].Session.Messages)
		if !p.Verbose {
			hits[i].Session.FilesModified = nil
			hits[i].Session.Commits = nil
		}
	}
	return &SearchResult{Query: p.Query, Hits: hits}, nil
}

func (e *Engine) truncateMessages(msgs []store.Message) {
	if e.truncLimit <= 0 {
		return
	}
	for i := range msgs {
		msgs[i].Content = runewidth.Truncate(msgs[i].Content, e.truncLimit, "...")
	}
}

func splitProjects(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeDate accepts RFC3339 or plain YYYY-MM-DD and returns the
// stored timestamp format, or empty for no bound.
func normalizeDate(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format("2006-01-02T15:04:05Z"), nil
		}
	}
	return "", fmt.Errorf("%w: bad date %q", ErrInvalidQuery, s)
}
