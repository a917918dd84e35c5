package query

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gupsammy/Claudest/internal/store"
)

func seedStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	starts := []string{
		"2025-06-01T10:00:00Z",
		"2025-06-02T10:00:00Z",
		"2025-06-03T10:00:00Z",
	}
	for i, s := range starts {
		started, err := time.Parse(time.RFC3339, s)
		require.NoError(t, err)
		uuid := "sess-" + string(rune('a'+i))
		_, err = st.AppendBatch(store.Batch{
			Session: store.SessionMeta{
				UUID:          uuid,
				ProjectPath:   "/home/sam/proj",
				ProjectKey:    "-home-sam-proj",
				ProjectName:   "proj",
				StartedAt:     started,
				EndedAt:       started.Add(5 * time.Minute),
				FilesModified: []string{"/p/a.go"},
				Commits:       []string{"a commit"},
			},
			Messages: []store.Message{
				{Seq: 1, Role: "user", Content: "tell me about goroutines " + strings.Repeat("x", 100), Timestamp: started},
			},
			FilePath:  "/roots/proj/" + uuid + ".jsonl",
			NewOffset: 100,
			NewSize:   100,
			Complete:  true,
		})
		require.NoError(t, err)
	}
	return st
}

func TestRecentDefaultsAndBounds(t *testing.T) {
	eng := New(seedStore(t), 0)

	res, err := eng.Recent(RecentParams{})
	require.NoError(t, err)
	assert.Len(t, res.Sessions, 3)
	assert.Equal(t, "sess-c", res.Sessions[0].UUID)

	res, err = eng.Recent(RecentParams{N: 1})
	require.NoError(t, err)
	assert.Len(t, res.Sessions, 1)

	_, err = eng.Recent(RecentParams{N: 21})
	assert.ErrorIs(t, err, ErrInvalidQuery)
	_, err = eng.Recent(RecentParams{N: -1})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestRecentSortOrder(t *testing.T) {
	eng := New(seedStore(t), 0)

	res, err := eng.Recent(RecentParams{SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, "sess-a", res.Sessions[0].UUID)

	res, err = eng.Recent(RecentParams{SortOrder: "desc"})
	require.NoError(t, err)
	assert.Equal(t, "sess-c", res.Sessions[0].UUID)

	_, err = eng.Recent(RecentParams{SortOrder: "sideways"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestRecentDateBounds(t *testing.T) {
	eng := New(seedStore(t), 0)

	// Plain dates are accepted alongside RFC3339.
	res, err := eng.Recent(RecentParams{After: "2025-06-02", Before: "2025-06-03T00:00:00Z"})
	require.NoError(t, err)
	require.Len(t, res.Sessions, 1)
	assert.Equal(t, "sess-b", res.Sessions[0].UUID)

	_, err = eng.Recent(RecentParams{Before: "last tuesday"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestRecentVerboseControlsMetadata(t *testing.T) {
	eng := New(seedStore(t), 0)

	res, err := eng.Recent(RecentParams{N: 1})
	require.NoError(t, err)
	assert.Empty(t, res.Sessions[0].FilesModified)
	assert.Empty(t, res.Sessions[0].Commits)
	assert.NotEmpty(t, res.Sessions[0].Messages)

	res, err = eng.Recent(RecentParams{N: 1, Verbose: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"/p/a.go"}, res.Sessions[0].FilesModified)
	assert.Equal(t, []string{"a commit"}, res.Sessions[0].Commits)
}

func TestRecentTruncation(t *testing.T) {
	eng := New(seedStore(t), 40)

	res, err := eng.Recent(RecentParams{N: 1})
	require.NoError(t, err)
	require.NotEmpty(t, res.Sessions[0].Messages)
	content := res.Sessions[0].Messages[0].Content
	assert.LessOrEqual(t, len([]rune(content)), 40)
	assert.True(t, strings.HasSuffix(content, "..."))

	// Zero limit leaves content untouched.
	eng = New(seedStore(t), 0)
	res, err = eng.Recent(RecentParams{N: 1})
	require.NoError(t, err)
	assert.Greater(t, len(res.Sessions[0].Messages[0].Content), 100)
}

func TestSearchValidation(t *testing.T) {
	eng := New(seedStore(t), 0)

	_, err := eng.Search(SearchParams{Query: "   "})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = eng.Search(SearchParams{Query: "goroutines", MaxResults: 11})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	res, err := eng.Search(SearchParams{Query: "goroutines"})
	require.NoError(t, err)
	assert.Equal(t, "goroutines", res.Query)
	assert.Len(t, res.Hits, 3)
}

func TestSearchSplitsTerms(t *testing.T) {
	eng := New(seedStore(t), 0)

	// Both words must match; "kubernetes" never appears.
	res, err := eng.Search(SearchParams{Query: "goroutines kubernetes"})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}

func TestSplitProjects(t *testing.T) {
	assert.Nil(t, splitProjects(""))
	assert.Nil(t, splitProjects("  "))
	assert.Equal(t, []string{"a", "b"}, splitProjects("a, b"))
	assert.Equal(t, []string{"a"}, splitProjects("a,,"))
}

func TestNormalizeDate(t *testing.T) {
	got, err := normalizeDate("2025-06-02")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-02T00:00:00Z", got)

	got, err = normalizeDate("2025-06-02T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-02T10:30:00Z", got)

	got, err = normalizeDate("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = normalizeDate("06/02/2025")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}
