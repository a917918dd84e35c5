package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gupsammy/Claudest/internal/query"
	"github.com/gupsammy/Claudest/internal/store"
)

// jsonSession is the stable wire shape for --format json.
type jsonSession struct {
	UUID          string        `json:"uuid"`
	Project       string        `json:"project"`
	StartedAt     string        `json:"started_at"`
	EndedAt       string        `json:"ended_at"`
	GitBranch     string        `json:"git_branch,omitempty"`
	FilesModified []string      `json:"files_modified,omitempty"`
	Commits       []string      `json:"commits,omitempty"`
	Messages      []jsonMessage `json:"messages,omitempty"`
	Excerpts      []jsonExcerpt `json:"excerpts,omitempty"`
	Score         float64       `json:"score,omitempty"`
}

type jsonMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type jsonExcerpt struct {
	Role      string `json:"role"`
	Snippet   string `json:"snippet"`
	Timestamp string `json:"timestamp"`
}

func toJSONSession(s store.Session) jsonSession {
	out := jsonSession{
		UUID:          s.UUID,
		Project:       s.Project,
		StartedAt:     s.StartedAt,
		EndedAt:       s.EndedAt,
		GitBranch:     s.GitBranch,
		FilesModified: s.FilesModified,
		Commits:       s.Commits,
	}
	for _, m := range s.Messages {
		out.Messages = append(out.Messages, jsonMessage{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp.Format("2006-01-02T15:04:05Z"),
		})
	}
	return out
}

// RecentJSON renders a recent-sessions result for machine consumers.
func RecentJSON(res *query.RecentResult) (string, error) {
	sessions := make([]jsonSession, 0, len(res.Sessions))
	total := 0
	for _, s := range res.Sessions {
		sessions = append(sessions, toJSONSession(s))
		total += len(s.Messages)
	}
	out, err := json.MarshalIndent(map[string]interface{}{
		"sessions":       sessions,
		"total_sessions": len(sessions),
		"total_messages": total,
	}, "", "  ")
	return string(out), err
}

// SearchJSON renders a search result for machine consumers.
func SearchJSON(res *query.SearchResult) (string, error) {
	sessions := make([]jsonSession, 0, len(res.Hits))
	for _, h := range res.Hits {
		js := toJSONSession(h.Session)
		js.Score = h.Score
		for _, e := range h.Excerpts {
			js.Excerpts = append(js.Excerpts, jsonExcerpt{
				Role:      e.Role,
				Snippet:   e.Snippet,
				Timestamp: e.Timestamp,
			})
		}
		sessions = append(sessions, js)
	}
	out, err := json.MarshalIndent(map[string]interface{}{
		"query":          res.Query,
		"sessions":       sessions,
		"total_sessions": len(sessions),
	}, "", "  ")
	return string(out), err
}

// RecentMarkdown renders recent sessions with their full conversations.
func RecentMarkdown(res *query.RecentResult, verbose bool) string {
	if len(res.Sessions) == 0 {
		return "No sessions found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Recent Conversations (%d sessions)\n\n", len(res.Sessions))
	for _, s := range res.Sessions {
		writeSessionHeader(&b, s, verbose)
		b.WriteString("\n### Conversation\n\n")
		for _, m := range s.Messages {
			fmt.Fprintf(&b, "**%s:** %s\n\n", roleLabel(m.Role), m.Content)
		}
		b.WriteString("---\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// SearchMarkdown renders ranked hits: excerpts normally, full
// conversations when verbose.
func SearchMarkdown(res *query.SearchResult, verbose bool) string {
	if len(res.Hits) == 0 {
		return fmt.Sprintf("No sessions found for query: %s", res.Query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Search Results: %q (%d sessions)\n\n", res.Query, len(res.Hits))
	for _, h := range res.Hits {
		writeSessionHeader(&b, h.Session, verbose)
		if verbose && len(h.Session.Messages) > 0 {
			b.WriteString("\n### Conversation\n\n")
			for _, m := range h.Session.Messages {
				fmt.Fprintf(&b, "**%s:** %s\n\n", roleLabel(m.Role), m.Content)
			}
		} else {
			b.WriteString("\n### Matches\n\n")
			for _, e := range h.Excerpts {
				fmt.Fprintf(&b, "- *%s* (%s): %s\n", roleLabel(e.Role), formatTime(e.Timestamp), e.Snippet)
			}
			b.WriteString("\n")
		}
		b.WriteString("---\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeSessionHeader(b *strings.Builder, s store.Session, verbose bool) {
	fmt.Fprintf(b, "## %s | %s\n", s.Project, formatTime(s.StartedAt))
	fmt.Fprintf(b, "Session: %s\n", shortUUID(s.UUID))
	if s.GitBranch != "" {
		fmt.Fprintf(b, "Branch: %s\n", s.GitBranch)
	}
	if !verbose {
		return
	}
	if len(s.FilesModified) > 0 {
		b.WriteString("\n### Files Modified\n")
		files := s.FilesModified
		if len(files) > 10 {
			fmt.Fprintf(b, "- ...and %d more below\n", len(files)-10)
			files = files[len(files)-10:]
		}
		for _, f := range files {
			fmt.Fprintf(b, "- `%s`\n", f)
		}
	}
	if len(s.Commits) > 0 {
		b.WriteString("\n### Commits\n")
		for _, c := range s.Commits {
			fmt.Fprintf(b, "- %s\n", c)
		}
	}
}

func roleLabel(role string) string {
	if role == "user" {
		return "User"
	}
	return "Assistant"
}

func shortUUID(uuid string) string {
	if len(uuid) > 8 {
		return uuid[:8]
	}
	return uuid
}

func formatTime(ts string) string {
	if ts == "" {
		return "?"
	}
	// stored as 2006-01-02T15:04:05Z; show date + minutes
	if len(ts) >= 16 {
		return strings.Replace(ts[:16], "T", " ", 1)
	}
	return ts
}
