package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// SearchOptions drives the ranked keyword search. Terms are already
// tokenized and bounds-checked by the query engine.
type SearchOptions struct {
	Terms      []string
	MaxResults int
	Projects   []string
	Verbose    bool
}

// Excerpt is one matching message shown for a hit session.
type Excerpt struct {
	Seq       int64
	Role      string
	Timestamp string
	Snippet   string
}

// SearchHit is one ranked session. Score is higher-is-better (negated
// bm25 sum over matching messages). Messages is populated only when
// verbose was requested; otherwise Excerpts carries the smallest set of
// matching snippets.
type SearchHit struct {
	Session  Session
	Score    float64
	Excerpts []Excerpt
}

const excerptsPerSession = 3

// Search finds sessions in which every term matches at least one
// message (terms may hit different messages), ranked by aggregated
// BM25 with started_at as the tie-break.
func (s *Store) Search(opts SearchOptions) ([]SearchHit, error) {
	if len(opts.Terms) == 0 {
		return nil, nil
	}
	if containsCJK(opts.Terms) {
		// porter/unicode61 does not segment CJK; fall back to
		// conjunctive LIKE so those queries still work.
		return s.searchLike(opts)
	}
	return s.searchFTS(opts)
}

func (s *Store) searchFTS(opts SearchOptions) ([]SearchHit, error) {
	// Candidate sessions: intersect the per-term session sets, so the
	// conjunction holds at session granularity rather than per message.
	var parts []string
	var args []interface{}
	for _, term := range opts.Terms {
		parts = append(parts, `
			SELECT m.session_id FROM messages_fts
			JOIN messages m ON m.id = messages_fts.rowid
			WHERE messages_fts MATCH ?`)
		args = append(args, ftsQuote(term))
	}
	candidateSQL := strings.Join(parts, " INTERSECT ")

	// Score candidates with one OR match; bm25() is negative and
	// smaller-is-better, so summing over a session's matching messages
	// rewards both strong and repeated hits. SQLite refuses FTS5
	// auxiliary functions inside aggregates, so bm25() is evaluated
	// per message in a MATERIALIZED CTE (which the flattener cannot
	// merge back into the aggregate query) and summed outside it.
	scoreSQL := fmt.Sprintf(`
		WITH matched AS MATERIALIZED (
			SELECT messages_fts.rowid AS msg_id, bm25(messages_fts) AS msg_score
			FROM messages_fts
			WHERE messages_fts MATCH ?
		)
		SELECT s.id, s.uuid, p.name, p.path, s.started_at, s.ended_at,
		       s.git_branch, s.files_modified, s.commits,
		       SUM(matched.msg_score) AS score
		FROM matched
		JOIN messages m ON m.id = matched.msg_id
		JOIN sessions s ON m.session_id = s.id
		JOIN projects p ON s.project_id = p.id
		WHERE s.id IN (%s)
		  %s
		GROUP BY s.id
		ORDER BY score ASC, s.started_at DESC
		LIMIT ?`, candidateSQL, projectCondition(opts.Projects))

	orQuery := ftsOrQuery(opts.Terms)
	scoreArgs := append([]interface{}{orQuery}, args...)
	for _, p := range opts.Projects {
		scoreArgs = append(scoreArgs, p)
	}
	scoreArgs = append(scoreArgs, opts.MaxResults)

	rows, err := s.db.Query(scoreSQL, scoreArgs...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var hit SearchHit
		var filesJSON, commitsJSON string
		err := rows.Scan(&hit.Session.ID, &hit.Session.UUID, &hit.Session.Project,
			&hit.Session.ProjectPath, &hit.Session.StartedAt, &hit.Session.EndedAt,
			&hit.Session.GitBranch, &filesJSON, &commitsJSON, &hit.Score)
		if err != nil {
			return nil, err
		}
		unmarshalLists(&hit.Session, filesJSON, commitsJSON)
		hit.Score = -hit.Score
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range hits {
		if err := s.fillHit(&hits[i], orQuery, opts.Verbose); err != nil {
			return nil, err
		}
	}
	return hits, nil
}

func (s *Store) fillHit(hit *SearchHit, orQuery string, verbose bool) error {
	rows, err := s.db.Query(`
		SELECT m.seq, m.role, m.timestamp,
		       snippet(messages_fts, 0, '>>>', '<<<', '...', 32)
		FROM messages_fts
		JOIN messages m ON m.id = messages_fts.rowid
		WHERE messages_fts MATCH ? AND m.session_id = ?
		ORDER BY bm25(messages_fts)
		LIMIT ?`,
		orQuery, hit.Session.ID, excerptsPerSession)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var e Excerpt
		if err := rows.Scan(&e.Seq, &e.Role, &e.Timestamp, &e.Snippet); err != nil {
			return err
		}
		hit.Excerpts = append(hit.Excerpts, e)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if verbose {
		msgs, err := s.sessionMessages(hit.Session.ID)
		if err != nil {
			return err
		}
		hit.Session.Messages = msgs
	}
	return nil
}

// searchLike is the conjunctive substring fallback for CJK queries.
// No bm25 here; results order by recency only.
func (s *Store) searchLike(opts SearchOptions) ([]SearchHit, error) {
	var conditions []string
	var args []interface{}
	for _, term := range opts.Terms {
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM messages m WHERE m.session_id = s.id AND m.content LIKE ?)")
		args = append(args, "%"+term+"%")
	}

	query := fmt.Sprintf(`
		SELECT s.id, s.uuid, p.name, p.path, s.started_at, s.ended_at,
		       s.git_branch, s.files_modified, s.commits
		FROM sessions s
		JOIN projects p ON s.project_id = p.id
		WHERE %s %s
		ORDER BY s.started_at DESC
		LIMIT ?`, strings.Join(conditions, " AND "), projectCondition(opts.Projects))
	for _, p := range opts.Projects {
		args = append(args, p)
	}
	args = append(args, opts.MaxResults)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, SearchHit{Session: sess})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range hits {
		if err := s.fillLikeHit(&hits[i], opts); err != nil {
			return nil, err
		}
	}
	return hits, nil
}

func (s *Store) fillLikeHit(hit *SearchHit, opts SearchOptions) error {
	likes := make([]string, len(opts.Terms))
	args := []interface{}{hit.Session.ID}
	for i, term := range opts.Terms {
		likes[i] = "m.content LIKE ?"
		args = append(args, "%"+term+"%")
	}
	args = append(args, excerptsPerSession)

	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT m.seq, m.role, m.timestamp, m.content
		FROM messages m
		WHERE m.session_id = ? AND (%s)
		ORDER BY m.seq
		LIMIT ?`, strings.Join(likes, " OR ")), args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var e Excerpt
		var content string
		if err := rows.Scan(&e.Seq, &e.Role, &e.Timestamp, &content); err != nil {
			return err
		}
		e.Snippet = likeSnippet(content, opts.Terms)
		hit.Excerpts = append(hit.Excerpts, e)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if opts.Verbose {
		msgs, err := s.sessionMessages(hit.Session.ID)
		if err != nil {
			return err
		}
		hit.Session.Messages = msgs
	}
	return nil
}

func projectCondition(projects []string) string {
	if len(projects) == 0 {
		return ""
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(projects)), ",")
	return "AND p.name IN (" + placeholders + ")"
}

func unmarshalLists(sess *Session, filesJSON, commitsJSON string) {
	json.Unmarshal([]byte(filesJSON), &sess.FilesModified)
	json.Unmarshal([]byte(commitsJSON), &sess.Commits)
}

// ftsQuote wraps a single term in FTS5 string syntax so user input can
// never smuggle in operators like NEAR or column filters.
func ftsQuote(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
}

func ftsOrQuery(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = ftsQuote(t)
	}
	return strings.Join(quoted, " OR ")
}

func containsCJK(terms []string) bool {
	for _, t := range terms {
		for _, r := range t {
			if unicode.Is(unicode.Han, r) {
				return true
			}
		}
	}
	return false
}

// likeSnippet trims a LIKE-matched message down to a window around the
// first matching term.
func likeSnippet(content string, terms []string) string {
	const contextRunes = 40
	lower := strings.ToLower(content)
	idx := -1
	matchLen := 0
	for _, t := range terms {
		if i := strings.Index(lower, strings.ToLower(t)); i >= 0 && (idx < 0 || i < idx) {
			idx = i
			matchLen = len(t)
		}
	}
	runes := []rune(content)
	if idx < 0 {
		if len(runes) > contextRunes*2 {
			return string(runes[:contextRunes*2]) + "..."
		}
		return content
	}

	pos := len([]rune(content[:idx]))
	end := pos + len([]rune(content[idx:idx+matchLen]))
	start := pos - contextRunes
	if start < 0 {
		start = 0
	}
	stop := end + contextRunes
	if stop > len(runes) {
		stop = len(runes)
	}

	snippet := string(runes[start:pos]) + ">>>" + string(runes[pos:end]) + "<<<" + string(runes[end:stop])
	if start > 0 {
		snippet = "..." + snippet
	}
	if stop < len(runes) {
		snippet += "..."
	}
	return snippet
}
