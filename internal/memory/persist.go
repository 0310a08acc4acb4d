package memory

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// snapshot is the on-disk shape of the store: entries keyed by id and
// connections keyed by canonical pair key. Round-trips are semantics-
// equivalent (same entries, connections, and ranking order), not
// necessarily byte-identical.
type snapshot struct {
	Entries     map[string]*Entry      `json:"entries"`
	Connections map[string]*Connection `json:"connections"`
}

// Save persists the current state with an atomic whole-file replace:
// write to a temp file in the same directory, then rename over the
// snapshot. A crash mid-flush never leaves a partial store behind.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		Entries:     s.entries,
		Connections: s.connections,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to swap snapshot: %w", err)
	}

	s.dirty = false
	return nil
}

// load restores the last persisted snapshot. Missing file means a
// fresh store; any other failure is returned so Open can log the
// warning and continue empty. Malformed records are skipped rather
// than propagated.
func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("corrupt snapshot: %w", err)
	}

	for id, e := range snap.Entries {
		if e == nil || e.ID == "" || e.ID != id || e.Topic == "" || e.Content == "" ||
			e.Confidence < 0 || e.Confidence > 1 {
			log.Printf("[store] skipping malformed entry %q in snapshot", id)
			continue
		}
		s.addEntry(e)
	}

	for key, conn := range snap.Connections {
		a, b, ok := splitPairKey(key)
		if !ok || conn == nil || a == b || conn.Weight < 0 || conn.Weight > 1 {
			log.Printf("[store] skipping malformed connection %q in snapshot", key)
			continue
		}
		// Connections reference entries weakly; drop dangling ones.
		if s.entries[a] == nil || s.entries[b] == nil {
			continue
		}
		s.connections[key] = conn
		s.addAdjacent(a, b)
	}

	return nil
}
