package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// Session is the read-side shape of one session with its messages.
type Session struct {
	ID            int64
	UUID          string
	Project       string
	ProjectPath   string
	StartedAt     string
	EndedAt       string
	GitBranch     string
	FilesModified []string
	Commits       []string
	Messages      []Message
}

// RecentOptions filters and orders the recent-sessions query. Bounds
// checking happens in the query engine before this is built.
type RecentOptions struct {
	N         int
	Ascending bool
	Before    string
	After     string
	Projects  []string
}

// RecentSessions returns up to N sessions ordered by started_at, each
// with its full message set in seq order.
func (s *Store) RecentSessions(opts RecentOptions) ([]Session, error) {
	var conditions []string
	var args []interface{}

	if opts.Before != "" {
		conditions = append(conditions, "s.started_at < ?")
		args = append(args, opts.Before)
	}
	if opts.After != "" {
		conditions = append(conditions, "s.started_at > ?")
		args = append(args, opts.After)
	}
	if len(opts.Projects) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(opts.Projects)), ",")
		conditions = append(conditions, "p.name IN ("+placeholders+")")
		for _, p := range opts.Projects {
			args = append(args, p)
		}
	}

	where := "1=1"
	if len(conditions) > 0 {
		where = strings.Join(conditions, " AND ")
	}
	order := "DESC"
	if opts.Ascending {
		order = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT s.id, s.uuid, p.name, p.path, s.started_at, s.ended_at,
		       s.git_branch, s.files_modified, s.commits
		FROM sessions s
		JOIN projects p ON s.project_id = p.id
		WHERE %s
		ORDER BY s.started_at %s
		LIMIT ?`, where, order)
	args = append(args, opts.N)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sessions {
		msgs, err := s.sessionMessages(sessions[i].ID)
		if err != nil {
			return nil, err
		}
		sessions[i].Messages = msgs
	}
	return sessions, nil
}

// SessionByUUID loads one session with its full message set, or nil if
// the uuid is unknown.
func (s *Store) SessionByUUID(uuid string) (*Session, error) {
	row := s.db.QueryRow(`
		SELECT s.id, s.uuid, p.name, p.path, s.started_at, s.ended_at,
		       s.git_branch, s.files_modified, s.commits
		FROM sessions s
		JOIN projects p ON s.project_id = p.id
		WHERE s.uuid = ?`, uuid)

	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sess.Messages, err = s.sessionMessages(sess.ID)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (Session, error) {
	var sess Session
	var filesJSON, commitsJSON string
	err := row.Scan(&sess.ID, &sess.UUID, &sess.Project, &sess.ProjectPath,
		&sess.StartedAt, &sess.EndedAt, &sess.GitBranch, &filesJSON, &commitsJSON)
	if err != nil {
		return sess, err
	}
	json.Unmarshal([]byte(filesJSON), &sess.FilesModified)
	json.Unmarshal([]byte(commitsJSON), &sess.Commits)
	return sess, nil
}

func (s *Store) sessionMessages(sessionID int64) ([]Message, error) {
	rows, err := s.db.Query(
		"SELECT seq, role, content, timestamp FROM messages WHERE session_id = ? ORDER BY seq",
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var ts string
		if err := rows.Scan(&m.Seq, &m.Role, &m.Content, &ts); err != nil {
			return nil, err
		}
		m.Timestamp = parseStoredTime(ts)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
