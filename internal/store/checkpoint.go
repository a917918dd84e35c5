package store

import "database/sql"

// Checkpoint is the durable record of how much of one transcript file
// has been committed.
type Checkpoint struct {
	FilePath     string
	Offset       int64
	Size         int64
	Status       string // unseen, partial, complete
	LastSyncedAt string
}

// GetCheckpoint returns the checkpoint for a transcript file. A file
// never seen before comes back zero-valued with status "unseen".
func (s *Store) GetCheckpoint(filePath string) (Checkpoint, error) {
	cp := Checkpoint{FilePath: filePath, Status: "unseen"}
	err := s.db.QueryRow(
		"SELECT offset, size, status, last_synced_at FROM checkpoints WHERE file_path = ?",
		filePath,
	).Scan(&cp.Offset, &cp.Size, &cp.Status, &cp.LastSyncedAt)
	if err == sql.ErrNoRows {
		return cp, nil
	}
	return cp, err
}

// SetCheckpoint writes a checkpoint outside the batch path. The import
// engine normally advances checkpoints inside AppendBatch; this exists
// for marking files whose state changed without new messages.
func (s *Store) SetCheckpoint(cp Checkpoint) error {
	return withBusyRetry(func() error {
		_, err := s.db.Exec(
			`INSERT INTO checkpoints (file_path, offset, size, status, last_synced_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(file_path) DO UPDATE SET
			     offset = excluded.offset,
			     size = excluded.size,
			     status = excluded.status,
			     last_synced_at = excluded.last_synced_at`,
			cp.FilePath, cp.Offset, cp.Size, cp.Status, cp.LastSyncedAt,
		)
		return err
	})
}
