package transcript

import (
	"encoding/json"
	"regexp"
	"strings"
)

type contentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

type toolInput struct {
	FilePath string `json:"file_path"`
	Command  string `json:"command"`
}

// Slash-command artifacts embedded in string content.
var commandTagRe = regexp.MustCompile(`(?s)<(command-name|command-message|command-args|local-command-stdout)>.*?</(command-name|command-message|command-args|local-command-stdout)>`)

var commitMsgRe = regexp.MustCompile(`-m\s+["']([^"']+)["']`)

// extracted is what one message contributes: searchable text plus any
// session-level metadata mined from its tool calls.
type extracted struct {
	Text          string
	IsToolResult  bool
	FilesModified []string
	Commits       []string
}

// extractContent pulls the searchable text out of a message content
// field, which is either a plain string or an array of typed blocks.
// Thinking and tool_result blocks are dropped; tool_use blocks leave a
// "[Tool: name]" marker and feed the files/commits metadata.
func extractContent(raw json.RawMessage) extracted {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return extracted{Text: strings.TrimSpace(commandTagRe.ReplaceAllString(s, ""))}
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return extracted{}
	}

	var out extracted
	if len(blocks) > 0 && blocks[0].Type == "tool_result" {
		out.IsToolResult = true
	}

	var parts []string
	for _, b := range blocks {
		switch b.Type {
		case "text":
			if b.Text != "" {
				parts = append(parts, b.Text)
			}
		case "tool_use":
			if b.Name != "" {
				parts = append(parts, "[Tool: "+b.Name+"]")
			}
			var in toolInput
			if err := json.Unmarshal(b.Input, &in); err != nil {
				continue
			}
			switch b.Name {
			case "Edit", "Write", "MultiEdit":
				if in.FilePath != "" {
					out.FilesModified = append(out.FilesModified, in.FilePath)
				}
			case "Bash":
				if strings.Contains(in.Command, "git commit") {
					if m := commitMsgRe.FindStringSubmatch(in.Command); m != nil {
						msg := m[1]
						if len(msg) > 100 {
							msg = msg[:100]
						}
						out.Commits = append(out.Commits, msg)
					}
				}
			}
		}
	}
	out.Text = strings.TrimSpace(strings.Join(parts, "\n"))
	return out
}
