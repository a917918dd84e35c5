package tui

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/gupsammy/Claudest/internal/store"
)

func TestTruncateMeta(t *testing.T) {
	// Short strings pass through.
	assert.Equal(t, "short", truncateMeta("short", 40))

	got := truncateMeta(strings.Repeat("a", 60), 40)
	assert.LessOrEqual(t, len(got), 36)
	assert.True(t, strings.HasSuffix(got, "..."))

	// CJK snippets are cut at a rune boundary, not mid-byte.
	got = truncateMeta(strings.Repeat("数据库超时", 10), 24)
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "..."))

	// Panel too narrow to truncate meaningfully: leave it alone.
	assert.Equal(t, "anything", truncateMeta("anything", 5))
}

func TestFirstExcerpt(t *testing.T) {
	h := store.SearchHit{Excerpts: []store.Excerpt{
		{Snippet: "line one\nwith a >>>match<<< inside"},
		{Snippet: "second"},
	}}
	assert.Equal(t, "line one with a match inside", firstExcerpt(h))
	assert.Empty(t, firstExcerpt(store.SearchHit{}))
}

func TestResumeCommand(t *testing.T) {
	sess := store.Session{UUID: "abc-123", ProjectPath: "/home/sam/proj"}
	assert.Equal(t, "cd /home/sam/proj && claude --resume abc-123", resumeCommand(sess))

	sess.ProjectPath = ""
	assert.Equal(t, "claude --resume abc-123", resumeCommand(sess))
}
