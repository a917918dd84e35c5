package ingest

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gupsammy/Claudest/internal/transcript"
)

// File is one discovered transcript with the project it belongs to.
type File struct {
	Path        string
	Size        int64
	ProjectKey  string
	ProjectPath string
	ProjectName string
	SessionUUID string
}

// Discover walks the given roots for session transcripts. Layout under
// each root is <project-key>/<session>.jsonl, plus subagent transcripts
// at <project-key>/<session>/subagents/agent-*.jsonl.
func Discover(roots []string) ([]File, error) {
	var files []File
	for _, root := range roots {
		rf, err := discoverRoot(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		files = append(files, rf...)
	}
	return files, nil
}

func discoverRoot(root string) ([]File, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}

	var files []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if filepath.Ext(base) != ".jsonl" || strings.HasPrefix(base, ".") {
			return nil
		}
		if strings.Contains(base, "sessions-index") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		parts := strings.Split(rel, string(filepath.Separator))
		if len(parts) < 2 {
			return nil // transcripts always live under a project dir
		}
		key := parts[0]
		if strings.HasPrefix(key, ".") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		projectPath := parseProjectKey(key)
		files = append(files, File{
			Path:        path,
			Size:        info.Size(),
			ProjectKey:  key,
			ProjectPath: projectPath,
			ProjectName: filepath.Base(projectPath),
			SessionUUID: transcript.SessionUUID(path),
		})
		return nil
	})
	return files, err
}

// parseProjectKey converts a flattened directory key back to a path:
// "-Users-sam-repos-clawdbot" -> "/Users/sam/repos/clawdbot".
func parseProjectKey(key string) string {
	return "/" + strings.TrimLeft(strings.ReplaceAll(key, "-", "/"), "/")
}

// FindSession locates the transcript file for one session uuid across
// the roots, checking main session files before subagents.
func FindSession(roots []string, sessionUUID string) (File, bool, error) {
	files, err := Discover(roots)
	if err != nil {
		return File{}, false, err
	}
	var sub *File
	for i, f := range files {
		if f.SessionUUID != sessionUUID {
			continue
		}
		if filepath.Base(filepath.Dir(f.Path)) == "subagents" {
			if sub == nil {
				sub = &files[i]
			}
			continue
		}
		return f, true, nil
	}
	if sub != nil {
		return *sub, true, nil
	}
	return File{}, false, nil
}
