package transcript

import (
	"errors"
	"path/filepath"
	"strings"
	"time"
)

// ErrSourceUnavailable marks a transcript path that is missing or
// unreadable. Callers treat it as a zero-message import, not a failure
// of the whole batch.
var ErrSourceUnavailable = errors.New("transcript source unavailable")

// Turn is one conversational turn extracted from a transcript line.
type Turn struct {
	Role      string // "user" or "assistant"
	Content   string
	Timestamp time.Time
}

// Meta aggregates session-level metadata observed while reading.
type Meta struct {
	StartedAt     time.Time
	EndedAt       time.Time
	GitBranch     string
	Cwd           string
	FilesModified []string
	Commits       []string
}

// Result is the outcome of one reader pass over a transcript suffix.
//
// EndOffset is the byte offset the reader safely consumed to; it is
// valid even when Complete is false, so the caller can checkpoint it
// and resume from there. Malformed counts complete-but-unparseable
// lines that were skipped.
type Result struct {
	Turns     []Turn
	Meta      Meta
	EndOffset int64
	Complete  bool
	Malformed int
}

// SessionUUID derives the session identifier from a transcript path.
// Subagent transcripts carry an "agent-" filename prefix.
func SessionUUID(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), ".jsonl")
	return strings.TrimPrefix(base, "agent-")
}
