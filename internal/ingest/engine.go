package ingest

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gupsammy/Claudest/internal/store"
	"github.com/gupsammy/Claudest/internal/transcript"
)

// staleRetries bounds the optimistic-concurrency loop: a batch planned
// against a checkpoint that another process advanced is replanned from
// a fresh read instead of producing duplicate or gapped sequences.
const staleRetries = 3

// Engine drives transcript content into the store, either one session
// at a time or as a full scan of the roots.
type Engine struct {
	store   *store.Store
	roots   []string
	exclude map[string]bool
	log     *slog.Logger
}

func New(st *store.Store, roots []string, excludeProjects []string, log *slog.Logger) *Engine {
	excl := make(map[string]bool, len(excludeProjects))
	for _, p := range excludeProjects {
		excl[p] = true
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{store: st, roots: roots, exclude: excl, log: log}
}

// ImportStats aggregates one full-import pass.
type ImportStats struct {
	Scanned       int
	Skipped       int
	Imported      int
	Excluded      int
	Errors        int
	MessagesAdded int64
}

func (st ImportStats) String() string {
	return fmt.Sprintf("scanned=%d imported=%d skipped=%d excluded=%d errors=%d messages=%d",
		st.Scanned, st.Imported, st.Skipped, st.Excluded, st.Errors, st.MessagesAdded)
}

// ImportAll discovers every transcript under the roots and ingests the
// unread portion of each changed file. Running it twice with no new
// source data is a no-op. Per-file errors are isolated: one bad
// transcript never blocks the rest of the batch.
func (e *Engine) ImportAll() (ImportStats, error) {
	var stats ImportStats

	files, err := Discover(e.roots)
	if err != nil {
		return stats, fmt.Errorf("discover: %w", err)
	}
	stats.Scanned = len(files)

	for _, f := range files {
		if e.exclude[f.ProjectName] {
			stats.Excluded++
			continue
		}

		cp, err := e.store.GetCheckpoint(f.Path)
		if err != nil {
			stats.Errors++
			e.log.Warn("checkpoint read failed", "file", f.Path, "err", err)
			continue
		}
		if f.Size == cp.Offset && cp.Status == "complete" {
			stats.Skipped++
			continue
		}

		added, err := e.ingestFile(f)
		if err != nil {
			stats.Errors++
			e.log.Warn("import failed", "file", f.Path, "err", err)
			continue
		}
		stats.Imported++
		stats.MessagesAdded += added
	}

	return stats, nil
}

// SyncSession ingests the unread suffix of one session's transcript.
// Returns the number of messages added. A session with no transcript
// on disk is a zero-message sync, not an error.
func (e *Engine) SyncSession(sessionUUID string) (int64, error) {
	f, ok, err := FindSession(e.roots, sessionUUID)
	if err != nil {
		return 0, fmt.Errorf("locate session %s: %w", sessionUUID, err)
	}
	if !ok {
		e.log.Info("no transcript for session", "session", sessionUUID)
		return 0, nil
	}
	if e.exclude[f.ProjectName] {
		return 0, nil
	}

	added, err := e.ingestFile(f)
	if err != nil {
		return 0, fmt.Errorf("sync session %s: %w", sessionUUID, err)
	}
	return added, nil
}

// ingestFile is the shared core: read from the checkpoint forward,
// number turns past the session's current max sequence, and commit
// messages plus checkpoint as one transaction. On ErrCheckpointStale
// (another process advanced the file meanwhile) the whole plan is
// rebuilt from a fresh checkpoint.
func (e *Engine) ingestFile(f File) (int64, error) {
	var lastErr error
	for attempt := 0; attempt < staleRetries; attempt++ {
		cp, err := e.store.GetCheckpoint(f.Path)
		if err != nil {
			return 0, err
		}

		offset := cp.Offset
		if f.Size < offset {
			// Source shrank under the checkpoint. Reread from zero;
			// the (session, seq) uniqueness absorbs any duplicates.
			e.log.Warn("transcript shrank, rereading", "file", f.Path, "offset", offset, "size", f.Size)
			offset = 0
		}

		res, err := transcript.Read(f.Path, offset)
		if err != nil {
			if errors.Is(err, transcript.ErrSourceUnavailable) {
				e.log.Warn("transcript unreadable", "file", f.Path, "err", err)
				return 0, nil
			}
			return 0, err
		}
		if res.Malformed > 0 {
			e.log.Warn("skipped malformed records", "file", f.Path, "count", res.Malformed)
		}
		if res.EndOffset == cp.Offset && len(res.Turns) == 0 {
			// Nothing new and nothing consumed; leave the checkpoint
			// alone so an in-flight writer is reread next pass.
			return 0, nil
		}

		maxSeq, err := e.store.MaxSequence(f.SessionUUID)
		if err != nil {
			return 0, err
		}
		if offset == 0 {
			// Replay from scratch renumbers from 1 so the retried
			// rows collide with (and are ignored against) the
			// originals instead of appending a second copy.
			maxSeq = 0
		}

		msgs := make([]store.Message, len(res.Turns))
		for i, t := range res.Turns {
			msgs[i] = store.Message{
				Seq:       maxSeq + int64(i) + 1,
				Role:      t.Role,
				Content:   t.Content,
				Timestamp: t.Timestamp,
			}
		}

		added, err := e.store.AppendBatch(store.Batch{
			Session: store.SessionMeta{
				UUID:          f.SessionUUID,
				ProjectPath:   f.ProjectPath,
				ProjectKey:    f.ProjectKey,
				ProjectName:   f.ProjectName,
				StartedAt:     res.Meta.StartedAt,
				EndedAt:       res.Meta.EndedAt,
				GitBranch:     res.Meta.GitBranch,
				Cwd:           res.Meta.Cwd,
				FilesModified: res.Meta.FilesModified,
				Commits:       res.Meta.Commits,
			},
			Messages:   msgs,
			FilePath:   f.Path,
			PrevOffset: cp.Offset,
			NewOffset:  res.EndOffset,
			NewSize:    f.Size,
			Complete:   res.Complete,
		})
		if errors.Is(err, store.ErrCheckpointStale) {
			lastErr = err
			e.log.Info("checkpoint moved, replanning", "file", f.Path, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return 0, err
		}
		return added, nil
	}
	return 0, lastErr
}
