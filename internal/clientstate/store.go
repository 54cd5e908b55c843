package clientstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/marcus/todosync/internal/todomodel"
)

// ErrCorruptState is returned when the persisted snapshot cannot be
// decoded or is missing a required field. The sync refuses to proceed
// and does not attempt to auto-repair.
var ErrCorruptState = errors.New("corrupt snapshot state")

// Record is a device's local knowledge of one todo, keyed by local id in
// Snapshot.Todos.
type Record struct {
	todomodel.Fields
	EditedAt time.Time `json:"editedAt"`
}

// Dirty holds pending changes not yet accepted by the server.
type Dirty struct {
	Upserted []string             `json:"upserted"`
	Deleted  map[string]time.Time `json:"deleted"`
}

// NewDirty returns an empty Dirty set.
func NewDirty() Dirty {
	return Dirty{Upserted: []string{}, Deleted: map[string]time.Time{}}
}

// Snapshot is the entire persisted device state (§3, §4.2).
type Snapshot struct {
	LastSyncedAt      time.Time         `json:"lastSyncedAt"`
	Todos             map[string]Record `json:"todos"`
	ServerIDToLocalID map[string]string `json:"serverIdToLocalId"`
	Dirty             Dirty             `json:"dirty"`
}

// NewSnapshot returns an empty snapshot, as used on a fresh device.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Todos:             map[string]Record{},
		ServerIDToLocalID: map[string]string{},
		Dirty:             NewDirty(),
	}
}

// rawSnapshot mirrors Snapshot but with pointer/omitted fields so that
// Load can tell "field present but zero" from "field absent".
type rawSnapshot struct {
	LastSyncedAt      *time.Time         `json:"lastSyncedAt"`
	Todos             map[string]Record  `json:"todos"`
	ServerIDToLocalID map[string]string  `json:"serverIdToLocalId"`
	Dirty             *Dirty             `json:"dirty"`
}

// Store reads and writes a Snapshot to disk with crash-safe semantics:
// write-to-temp + fsync + rename, and a .bak sidecar copied before any
// mutation begins.
type Store struct {
	path string
}

// NewStore returns a Store backed by the snapshot file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the underlying snapshot file path.
func (s *Store) Path() string { return s.path }

// BackupPath returns the sibling .bak file path.
func (s *Store) BackupPath() string { return s.path + ".bak" }

// Load reads the snapshot from disk. A missing file yields a fresh empty
// snapshot (first run). A present-but-invalid file yields ErrCorruptState.
func (s *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewSnapshot(), nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var raw rawSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if raw.LastSyncedAt == nil || raw.Todos == nil || raw.ServerIDToLocalID == nil {
		return nil, fmt.Errorf("%w: missing required field", ErrCorruptState)
	}

	snap := &Snapshot{
		LastSyncedAt:      *raw.LastSyncedAt,
		Todos:             raw.Todos,
		ServerIDToLocalID: raw.ServerIDToLocalID,
		Dirty:             NewDirty(),
	}
	if raw.Dirty != nil {
		snap.Dirty = *raw.Dirty
	}
	if snap.Dirty.Deleted == nil {
		snap.Dirty.Deleted = map[string]time.Time{}
	}
	if snap.Dirty.Upserted == nil {
		snap.Dirty.Upserted = []string{}
	}

	// Schema tolerance: records missing editedAt (pre-dating the field)
	// default to the snapshot cursor.
	for id, rec := range snap.Todos {
		if rec.EditedAt.IsZero() {
			rec.EditedAt = snap.LastSyncedAt
			snap.Todos[id] = rec
		}
	}

	return snap, nil
}

// Backup copies the live snapshot file to its .bak sidecar. Called once
// per cycle before any mutation of state begins. A missing source file is
// not an error (nothing to back up yet).
func (s *Store) Backup() error {
	src, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open snapshot for backup: %w", err)
	}
	defer src.Close()

	tmp := s.BackupPath() + fmt.Sprintf(".tmp-%d", os.Getpid())
	dst, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create backup temp file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tmp)
		return fmt.Errorf("copy backup: %w", err)
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync backup: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close backup: %w", err)
	}
	if err := os.Rename(tmp, s.BackupPath()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename backup: %w", err)
	}
	return nil
}

// Save atomically persists the snapshot: write to a sibling temp file,
// fsync, then rename over the target.
func (s *Store) Save(snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := fmt.Sprintf("%s.tmp-%d", s.path, os.Getpid())
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write snapshot temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync snapshot temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close snapshot temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename snapshot into place: %w", err)
	}
	return nil
}
