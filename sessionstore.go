package vesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SessionStore persists a session record between process runs.
type SessionStore interface {
	// Load returns the stored record, or ErrSessionNotFound if none exists.
	Load(ctx context.Context) (*PersistedSession, error)
	// Save replaces the stored record.
	Save(ctx context.Context, rec *PersistedSession) error
	// Delete removes the stored record. Deleting a missing record is not an error.
	Delete(ctx context.Context) error
}

// FileSessionStore persists the session record as a JSON file readable only
// by its owner. The record carries the token, so the file is written with
// mode 0600 inside a 0700 directory.
type FileSessionStore struct {
	filepath string
	mu       sync.RWMutex
}

// NewFileSessionStore returns a store backed by the file at filepath. The
// file and its directory are created on the first Save.
func NewFileSessionStore(filepath string) *FileSessionStore {
	return &FileSessionStore{
		filepath: filepath,
	}
}

// Path returns the file the store writes to.
func (f *FileSessionStore) Path() string {
	return f.filepath
}

// Save replaces the file atomically, so a concurrent Load sees either the
// previous record or the new one.
func (f *FileSessionStore) Save(ctx context.Context, rec *PersistedSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if rec == nil {
		return fmt.Errorf("session record cannot be nil")
	}

	dir := filepath.Dir(f.filepath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create session directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Rename over the old file so a crash never leaves a partial record.
	tmpFile := f.filepath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	if err := os.Rename(tmpFile, f.filepath); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to save session file: %w", err)
	}

	return nil
}

// Load decodes the file with decodePersistedSession. A missing file is
// ErrSessionNotFound; a record from an unknown format version is rejected.
func (f *FileSessionStore) Load(ctx context.Context) (*PersistedSession, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.filepath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	return decodePersistedSession(data)
}

// Delete removes the file, identifiers included. A missing file is not an
// error.
func (f *FileSessionStore) Delete(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.filepath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// MemorySessionStore keeps the record in process memory. Nothing survives a
// restart, so every run performs a fresh login with new identifiers.
type MemorySessionStore struct {
	rec *PersistedSession
	mu  sync.RWMutex
}

// NewMemorySessionStore creates a new in-memory session store, optionally
// pre-populated with rec.
func NewMemorySessionStore(rec *PersistedSession) *MemorySessionStore {
	return &MemorySessionStore{rec: rec}
}

// Save stores a copy of rec.
func (m *MemorySessionStore) Save(ctx context.Context, rec *PersistedSession) error {
	if rec == nil {
		return fmt.Errorf("session record cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.rec = &cp
	return nil
}

// Load returns a copy of the stored record.
func (m *MemorySessionStore) Load(ctx context.Context) (*PersistedSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.rec == nil {
		return nil, ErrSessionNotFound
	}
	cp := *m.rec
	return &cp, nil
}

// Delete clears the stored record.
func (m *MemorySessionStore) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = nil
	return nil
}
