package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SessionMeta carries everything needed to upsert a project and its
// session in one write.
type SessionMeta struct {
	UUID          string
	ProjectPath   string
	ProjectKey    string
	ProjectName   string
	StartedAt     time.Time
	EndedAt       time.Time
	GitBranch     string
	Cwd           string
	FilesModified []string
	Commits       []string
}

// Message is one row of the ordered batch handed to AppendBatch.
type Message struct {
	Seq       int64
	Role      string
	Content   string
	Timestamp time.Time
}

// Batch is one atomic unit of ingestion: project upsert, session
// upsert, message append, checkpoint advance. PrevOffset is the
// checkpoint offset the batch was planned from; if the stored offset no
// longer matches at commit time the batch aborts with
// ErrCheckpointStale and the caller replans from a fresh read.
type Batch struct {
	Session    SessionMeta
	Messages   []Message
	FilePath   string
	PrevOffset int64
	NewOffset  int64
	NewSize    int64
	Complete   bool
}

// AppendBatch commits one batch and returns the number of new message
// rows. Duplicate (session_id, seq) pairs from a retried partial write
// are ignored, not errors. The FTS index is maintained by triggers
// inside the same transaction.
func (s *Store) AppendBatch(b Batch) (int64, error) {
	var added int64
	err := withBusyRetry(func() error {
		var err error
		added, err = s.appendBatchOnce(b)
		return err
	})
	return added, err
}

func (s *Store) appendBatchOnce(b Batch) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	// Touch the checkpoint row first so the transaction holds the
	// write lock before the offset re-read; a concurrent writer then
	// either commits before us (we see its offset and abort stale) or
	// blocks until we finish.
	if _, err := tx.Exec(
		"UPDATE checkpoints SET offset = offset WHERE file_path = ?", b.FilePath,
	); err != nil {
		return 0, err
	}

	var storedOffset int64
	err = tx.QueryRow("SELECT offset FROM checkpoints WHERE file_path = ?", b.FilePath).Scan(&storedOffset)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}
	if storedOffset != b.PrevOffset {
		return 0, fmt.Errorf("%w: %s: stored=%d planned=%d", ErrCheckpointStale, b.FilePath, storedOffset, b.PrevOffset)
	}

	sessionID, err := upsertSessionTx(tx, b.Session)
	if err != nil {
		return 0, err
	}

	var added int64
	if len(b.Messages) > 0 {
		stmt, err := tx.Prepare(
			`INSERT OR IGNORE INTO messages (session_id, seq, timestamp, role, content)
			 VALUES (?, ?, ?, ?, ?)`,
		)
		if err != nil {
			return 0, err
		}
		defer stmt.Close()

		for _, m := range b.Messages {
			res, err := stmt.Exec(sessionID, m.Seq, formatTime(m.Timestamp), m.Role, m.Content)
			if err != nil {
				return 0, err
			}
			n, _ := res.RowsAffected()
			added += n
		}

		if _, err := tx.Exec(
			"UPDATE sessions SET message_count = (SELECT COUNT(*) FROM messages WHERE session_id = ?) WHERE id = ?",
			sessionID, sessionID,
		); err != nil {
			return 0, err
		}
	}

	status := "partial"
	if b.Complete {
		status = "complete"
	}
	if _, err := tx.Exec(
		`INSERT INTO checkpoints (file_path, offset, size, status, last_synced_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(file_path) DO UPDATE SET
		     offset = excluded.offset,
		     size = excluded.size,
		     status = excluded.status,
		     last_synced_at = excluded.last_synced_at`,
		b.FilePath, b.NewOffset, b.NewSize, status, formatTime(time.Now().UTC()),
	); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}

func upsertSessionTx(tx *sql.Tx, m SessionMeta) (int64, error) {
	var projectID int64
	err := tx.QueryRow(
		`INSERT INTO projects (path, key, name)
		 VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET key = excluded.key, name = excluded.name
		 RETURNING id`,
		m.ProjectPath, m.ProjectKey, m.ProjectName,
	).Scan(&projectID)
	if err != nil {
		return 0, fmt.Errorf("upsert project: %w", err)
	}

	files, err := mergedList(tx, m.UUID, "files_modified", m.FilesModified)
	if err != nil {
		return 0, err
	}
	commits, err := mergedList(tx, m.UUID, "commits", m.Commits)
	if err != nil {
		return 0, err
	}

	// started_at keeps the earliest observed value so incremental
	// suffixes never shift the session start forward; ended_at tracks
	// the latest. RFC3339 UTC strings compare correctly as text.
	var sessionID int64
	err = tx.QueryRow(
		`INSERT INTO sessions (uuid, project_id, started_at, ended_at, git_branch, cwd, files_modified, commits)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(uuid) DO UPDATE SET
		     started_at = CASE
		         WHEN sessions.started_at = '' THEN excluded.started_at
		         WHEN excluded.started_at != '' AND excluded.started_at < sessions.started_at THEN excluded.started_at
		         ELSE sessions.started_at END,
		     ended_at = MAX(sessions.ended_at, excluded.ended_at),
		     git_branch = CASE WHEN excluded.git_branch != '' THEN excluded.git_branch ELSE sessions.git_branch END,
		     cwd = CASE WHEN excluded.cwd != '' THEN excluded.cwd ELSE sessions.cwd END,
		     files_modified = excluded.files_modified,
		     commits = excluded.commits
		 RETURNING id`,
		m.UUID, projectID, formatTime(m.StartedAt), formatTime(m.EndedAt),
		m.GitBranch, m.Cwd, files, commits,
	).Scan(&sessionID)
	if err != nil {
		return 0, fmt.Errorf("upsert session: %w", err)
	}
	return sessionID, nil
}

// mergedList appends newly observed entries to the stored JSON list for
// a session, deduplicated in first-seen order. Incremental syncs only
// see the suffix, so the stored list is the accumulator.
func mergedList(tx *sql.Tx, uuid, column string, add []string) (string, error) {
	existing := "[]"
	err := tx.QueryRow(
		"SELECT "+column+" FROM sessions WHERE uuid = ?", uuid,
	).Scan(&existing)
	if err != nil && err != sql.ErrNoRows {
		return "", err
	}

	var list []string
	if err := json.Unmarshal([]byte(existing), &list); err != nil {
		list = nil
	}
	seen := make(map[string]bool, len(list))
	for _, v := range list {
		seen[v] = true
	}
	for _, v := range add {
		if !seen[v] {
			seen[v] = true
			list = append(list, v)
		}
	}
	if list == nil {
		return "[]", nil
	}
	out, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// MaxSequence returns the highest seq committed for a session, or 0.
func (s *Store) MaxSequence(sessionUUID string) (int64, error) {
	var max int64
	err := s.db.QueryRow(
		`SELECT COALESCE(MAX(m.seq), 0)
		 FROM messages m JOIN sessions s ON m.session_id = s.id
		 WHERE s.uuid = ?`,
		sessionUUID,
	).Scan(&max)
	return max, err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseStoredTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
