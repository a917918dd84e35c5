package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gupsammy/Claudest/internal/store"
)

func userRec(content, ts string) string {
	return `{"type":"user","timestamp":"` + ts + `","cwd":"/home/sam/proj","gitBranch":"main","message":{"role":"user","content":"` + content + `"}}` + "\n"
}

func assistantRec(content, ts string) string {
	return `{"type":"assistant","timestamp":"` + ts + `","message":{"role":"assistant","content":[{"type":"text","text":"` + content + `"}]}}` + "\n"
}

// testEnv is one root with a single project dir plus a fresh store.
type testEnv struct {
	root    string
	projDir string
	st      *store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "projects")
	projDir := filepath.Join(root, "-home-sam-proj")
	require.NoError(t, os.MkdirAll(projDir, 0o755))

	st, err := store.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return &testEnv{root: root, projDir: projDir, st: st}
}

func (e *testEnv) engine(exclude ...string) *Engine {
	return New(e.st, []string{e.root}, exclude, nil)
}

func (e *testEnv) writeSession(t *testing.T, uuid, content string) string {
	t.Helper()
	path := filepath.Join(e.projDir, uuid+".jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportAllThenNoOp(t *testing.T) {
	env := newTestEnv(t)
	env.writeSession(t, "sess-1",
		userRec("how do I do this", "2025-06-01T10:00:00Z")+
			assistantRec("like this", "2025-06-01T10:00:05Z"))

	stats, err := env.engine().ImportAll()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Scanned)
	assert.Equal(t, 1, stats.Imported)
	assert.Equal(t, int64(2), stats.MessagesAdded)
	assert.Zero(t, stats.Errors)

	// Same sources, second pass: everything is already at its checkpoint.
	stats, err = env.engine().ImportAll()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Zero(t, stats.Imported)
	assert.Zero(t, stats.MessagesAdded)
}

func TestSyncSessionIncremental(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeSession(t, "sess-1",
		userRec("first", "2025-06-01T10:00:00Z")+
			assistantRec("second", "2025-06-01T10:00:05Z"))

	eng := env.engine()
	added, err := eng.SyncSession("sess-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), added)

	// Append two turns; only the suffix is read and sequences continue.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(userRec("third", "2025-06-01T10:01:00Z") +
		assistantRec("fourth", "2025-06-01T10:01:05Z"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	added, err = eng.SyncSession("sess-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), added)

	sess, err := env.st.SessionByUUID("sess-1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Len(t, sess.Messages, 4)
	for i, m := range sess.Messages {
		assert.Equal(t, int64(i+1), m.Seq)
	}
	assert.Equal(t, "first", sess.Messages[0].Content)
	assert.Equal(t, "fourth", sess.Messages[3].Content)
}

func TestSyncSessionMissingTranscript(t *testing.T) {
	env := newTestEnv(t)

	added, err := env.engine().SyncSession("no-such-session")
	require.NoError(t, err)
	assert.Zero(t, added)
}

func TestImportAllExcludesProjects(t *testing.T) {
	env := newTestEnv(t)
	env.writeSession(t, "sess-1", userRec("hello", "2025-06-01T10:00:00Z"))

	stats, err := env.engine("proj").ImportAll()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Excluded)
	assert.Zero(t, stats.Imported)

	sess, err := env.st.SessionByUUID("sess-1")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestImportPartialTrailingLine(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeSession(t, "sess-1",
		userRec("complete turn", "2025-06-01T10:00:00Z")+
			`{"type":"user","message":{"role":"user","con`)

	eng := env.engine()
	stats, err := eng.ImportAll()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.MessagesAdded)

	cp, err := env.st.GetCheckpoint(path)
	require.NoError(t, err)
	assert.Equal(t, "partial", cp.Status)

	// The writer finishes the line; the next pass picks up the rest.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("tent\":\"finished\"}}\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	stats, err = eng.ImportAll()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.MessagesAdded)

	cp, err = env.st.GetCheckpoint(path)
	require.NoError(t, err)
	assert.Equal(t, "complete", cp.Status)

	sess, err := env.st.SessionByUUID("sess-1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "finished", sess.Messages[1].Content)
}

func TestImportShrunkTranscriptReplays(t *testing.T) {
	env := newTestEnv(t)
	line1 := userRec("first", "2025-06-01T10:00:00Z")
	path := env.writeSession(t, "sess-1",
		line1+assistantRec("second", "2025-06-01T10:00:05Z"))

	eng := env.engine()
	_, err := eng.ImportAll()
	require.NoError(t, err)

	// Truncate to just the first line. The checkpoint now points past
	// EOF, so the file is reread from zero; replayed rows renumber from 1
	// and collide with the originals instead of duplicating.
	require.NoError(t, os.WriteFile(path, []byte(line1), 0o644))

	stats, err := eng.ImportAll()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Imported)
	assert.Zero(t, stats.MessagesAdded)

	sess, err := env.st.SessionByUUID("sess-1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Len(t, sess.Messages, 2)

	cp, err := env.st.GetCheckpoint(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(line1)), cp.Offset)
}

func TestImportIsolatesBadFiles(t *testing.T) {
	env := newTestEnv(t)
	env.writeSession(t, "sess-good", userRec("hello", "2025-06-01T10:00:00Z"))
	env.writeSession(t, "sess-junk", "{not json at all\n{also not json\n")

	stats, err := env.engine().ImportAll()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Scanned)
	// Junk lines are skipped inside the reader, not import failures.
	assert.Equal(t, 2, stats.Imported)
	assert.Zero(t, stats.Errors)
	assert.Equal(t, int64(1), stats.MessagesAdded)

	sess, err := env.st.SessionByUUID("sess-good")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Len(t, sess.Messages, 1)
}
