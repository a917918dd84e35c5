package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

const maxLineSize = 10 * 1024 * 1024 // 10MB

type record struct {
	Type      string          `json:"type"`
	IsMeta    bool            `json:"isMeta"`
	Timestamp string          `json:"timestamp"`
	GitBranch string          `json:"gitBranch"`
	Cwd       string          `json:"cwd"`
	Message   json.RawMessage `json:"message"`
}

type recordMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// Read parses the transcript at path starting from the given byte
// offset and returns the turns it could safely extract, in file order.
//
// A trailing line with no newline is assumed to be mid-write and is not
// consumed: EndOffset stops before it and Complete is false, so a later
// pass rereads it once the writer finishes the line. A complete line
// that fails to parse is skipped and counted, never fatal.
func Read(path string, offset int64) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer f.Close()

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return nil, fmt.Errorf("%w: seek %s: %v", ErrSourceUnavailable, path, err)
		}
	}

	res := &Result{EndOffset: offset}
	r := bufio.NewReaderSize(f, 64*1024)

	for {
		line, err := r.ReadBytes('\n')
		if err == io.EOF {
			// No trailing newline: the writer may still be appending
			// this line. Leave it for the next pass.
			res.Complete = len(line) == 0
			return res, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrSourceUnavailable, path, err)
		}

		res.EndOffset += int64(len(line))
		if len(line) > maxLineSize {
			// Consumed but not worth indexing.
			continue
		}
		consumeLine(res, trimLine(line))
	}
}

func trimLine(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}

func consumeLine(res *Result, line []byte) {
	if len(line) == 0 {
		return
	}

	var rec record
	if err := json.Unmarshal(line, &rec); err != nil {
		res.Malformed++
		return
	}

	if rec.Cwd != "" && res.Meta.Cwd == "" {
		res.Meta.Cwd = rec.Cwd
	}
	if rec.GitBranch != "" && res.Meta.GitBranch == "" {
		res.Meta.GitBranch = rec.GitBranch
	}

	if rec.IsMeta || (rec.Type != "user" && rec.Type != "assistant") {
		return
	}

	var msg recordMessage
	if err := json.Unmarshal(rec.Message, &msg); err != nil {
		res.Malformed++
		return
	}

	ec := extractContent(msg.Content)

	ts := parseTimestamp(rec.Timestamp)
	if !ts.IsZero() {
		if res.Meta.StartedAt.IsZero() || ts.Before(res.Meta.StartedAt) {
			res.Meta.StartedAt = ts
		}
		if ts.After(res.Meta.EndedAt) {
			res.Meta.EndedAt = ts
		}
	}

	if rec.Type == "assistant" {
		res.Meta.FilesModified = append(res.Meta.FilesModified, ec.FilesModified...)
		res.Meta.Commits = append(res.Meta.Commits, ec.Commits...)
	}

	// Tool results arrive as user-role records but are not real user
	// messages; their payloads are command output and file contents.
	if rec.Type == "user" && ec.IsToolResult {
		return
	}
	if ec.Text == "" {
		return
	}

	res.Turns = append(res.Turns, Turn{
		Role:      rec.Type,
		Content:   ec.Text,
		Timestamp: ts,
	})
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
