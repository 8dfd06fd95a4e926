package artifact

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Mirror persists artifact records outside the process.
type Mirror interface {
	Save(ctx context.Context, a *Artifact) error
	// Load returns ErrNotFound when the record is absent.
	Load(ctx context.Context, fileID string) (*Artifact, error)
	Remove(ctx context.Context, fileID string) error
}

// A reclaiming entry stays in the map as a tombstone until its files are
// gone, so Get never rehydrates it from the mirror mid-delete.
type entry struct {
	artifact   *Artifact
	state      State
	refs       int
	unmirrored bool
	unlinking  bool
}

// Store maps fileId to Artifact and is the only code path that deletes
// artifact files. Files of a reclaiming artifact are unlinked once its last
// reader releases it.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	mirror  Mirror
}

// NewStore creates an empty store. mirror may be nil.
func NewStore(mirror Mirror) *Store {
	return &Store{
		entries: make(map[string]*entry),
		mirror:  mirror,
	}
}

func (s *Store) Put(ctx context.Context, a *Artifact) error {
	if a == nil || a.FileID == "" {
		return errors.New("artifact: missing fileId")
	}

	s.mu.Lock()
	if _, ok := s.entries[a.FileID]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrExists, a.FileID)
	}
	s.entries[a.FileID] = &entry{artifact: a, state: StateActive}
	s.mu.Unlock()

	if s.mirror != nil {
		if err := s.mirror.Save(ctx, a); err != nil {
			log.Printf("⚠️  [STORE] Failed to mirror %s: %v", a.FileID, err)
		}
	}
	return nil
}

// Get returns the active artifact for fileID. A memory miss consults the
// mirror and rehydrates the record if its full file is still on disk.
func (s *Store) Get(ctx context.Context, fileID string) (*Artifact, bool) {
	s.mu.RLock()
	e, ok := s.entries[fileID]
	var a *Artifact
	if ok && e.state == StateActive {
		a = e.artifact
	}
	s.mu.RUnlock()
	if ok {
		return a, a != nil
	}
	return s.rehydrate(ctx, fileID)
}

// Acquire pins the artifact against deletion until release is called.
// release is safe to call more than once.
func (s *Store) Acquire(ctx context.Context, fileID string) (*Artifact, func(), error) {
	if _, ok := s.Get(ctx, fileID); !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, fileID)
	}

	s.mu.Lock()
	e, ok := s.entries[fileID]
	if !ok || e.state != StateActive {
		s.mu.Unlock()
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, fileID)
	}
	e.refs++
	s.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() { s.release(fileID, e) })
	}
	return e.artifact, release, nil
}

func (s *Store) release(fileID string, e *entry) {
	s.mu.Lock()
	e.refs--
	reclaim := e.claimUnlink()
	s.mu.Unlock()

	if reclaim {
		s.unlink(fileID, e)
	}
}

// Delete marks the artifact reclaiming, drops its mirror record and unlinks
// its files, immediately or when the last reader releases it.
func (s *Store) Delete(ctx context.Context, fileID string) error {
	if _, ok := s.Get(ctx, fileID); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, fileID)
	}

	s.mu.Lock()
	e, ok := s.entries[fileID]
	if !ok || e.state != StateActive {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, fileID)
	}
	e.state = StateReclaiming
	s.mu.Unlock()

	if s.mirror != nil {
		if err := s.mirror.Remove(ctx, fileID); err != nil {
			log.Printf("⚠️  [STORE] Failed to drop mirror record %s: %v", fileID, err)
		}
	}

	s.mu.Lock()
	e.unmirrored = true
	reclaim := e.claimUnlink()
	s.mu.Unlock()

	if reclaim {
		s.unlink(fileID, e)
	} else {
		log.Printf("[CLEANUP] %s is being read, deferring file removal", fileID)
	}
	return nil
}

// claimUnlink reports whether the caller owns the file removal. Callers hold
// s.mu.
func (e *entry) claimUnlink() bool {
	if e.state != StateReclaiming || e.refs > 0 || !e.unmirrored || e.unlinking {
		return false
	}
	e.unlinking = true
	return true
}

func (s *Store) unlink(fileID string, e *entry) {
	removeFiles(e.artifact)

	s.mu.Lock()
	if s.entries[fileID] == e {
		delete(s.entries, fileID)
	}
	s.mu.Unlock()
}

// ForEach calls fn for a snapshot of the active artifacts until fn returns
// false. fn may call back into the store.
func (s *Store) ForEach(fn func(*Artifact) bool) {
	s.mu.RLock()
	snapshot := make([]*Artifact, 0, len(s.entries))
	for _, e := range s.entries {
		if e.state == StateActive {
			snapshot = append(snapshot, e.artifact)
		}
	}
	s.mu.RUnlock()

	for _, a := range snapshot {
		if !fn(a) {
			return
		}
	}
}

// Len counts active artifacts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if e.state == StateActive {
			n++
		}
	}
	return n
}

// Expire deletes every artifact older than retention and returns how many
// were removed.
func (s *Store) Expire(ctx context.Context, now time.Time, retention time.Duration) int {
	var expired []string
	s.ForEach(func(a *Artifact) bool {
		if a.Expired(now, retention) {
			expired = append(expired, a.FileID)
		}
		return true
	})

	removed := 0
	for _, id := range expired {
		if err := s.Delete(ctx, id); err == nil {
			removed++
		}
	}
	return removed
}

func (s *Store) rehydrate(ctx context.Context, fileID string) (*Artifact, bool) {
	if s.mirror == nil {
		return nil, false
	}
	a, err := s.mirror.Load(ctx, fileID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("⚠️  [STORE] Mirror lookup for %s failed: %v", fileID, err)
		}
		return nil, false
	}
	if !fileExists(a.FullPath) {
		return nil, false
	}
	if a.HasTrimmed() && !fileExists(a.TrimmedPath) {
		a.TrimmedPath = ""
		a.TrimmedSize = nil
		a.TrimmedDuration = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[fileID]; ok {
		if e.state != StateActive {
			return nil, false
		}
		return e.artifact, true
	}
	s.entries[fileID] = &entry{artifact: a, state: StateActive}
	log.Printf("♻️  [STORE] Restored %s from mirror", fileID)
	return a, true
}

func removeFiles(a *Artifact) {
	log.Printf("[CLEANUP] Cleaning up files for: %s", a.FileID)
	for _, path := range []string{a.TrimmedPath, a.FullPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				log.Printf("[CLEANUP] Could not delete %s: %v", filepath.Base(path), err)
			}
			continue
		}
		log.Printf("[CLEANUP] Deleted: %s", filepath.Base(path))
	}
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
