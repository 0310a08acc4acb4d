package memory

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mvanders/recall/internal/concepts"
	"github.com/mvanders/recall/internal/config"
)

// Store is the knowledge memory: entries, their connections, and the
// snapshot file backing both. All mutating operations take one
// exclusive lock for the whole store — merges, eviction, and linking
// read-then-write across the full entry set and must not interleave.
type Store struct {
	mu  sync.Mutex
	cfg *config.Config

	path        string
	entries     map[string]*Entry
	byTopic     map[string]map[string]bool // topic -> entry id set
	connections map[string]*Connection     // pair key -> connection
	adjacent    map[string]map[string]bool // entry id -> linked entry ids
	dirty       bool
}

// Open creates a store backed by the snapshot file at path, loading
// the last persisted state if one exists. A corrupt or unreadable
// snapshot logs a warning and starts empty — never fatal.
func Open(path string, cfg *config.Config) (*Store, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Store{
		cfg:         cfg,
		path:        path,
		entries:     make(map[string]*Entry),
		byTopic:     make(map[string]map[string]bool),
		connections: make(map[string]*Connection),
		adjacent:    make(map[string]map[string]bool),
	}

	if err := s.load(); err != nil {
		log.Printf("[store] could not load snapshot %s: %v — starting empty", path, err)
	}
	return s, nil
}

// Ingest stores a candidate fact. When an existing same-topic entry
// overlaps at or above dedup_threshold, the fact merges into it (max
// confidence, union of concepts, refreshed last-access) and the
// existing id is returned; otherwise a new entry is created. Either
// way the entry is (re-)linked into the connection graph.
func (s *Store) Ingest(topic, content, source string, confidence float64) (string, error) {
	topic = strings.TrimSpace(topic)
	content = strings.TrimSpace(content)
	if topic == "" || content == "" {
		return "", ErrInvalidInput
	}
	if confidence < 0 || confidence > 1 {
		return "", ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tokens := concepts.Extract(content)
	now := time.Now()

	// Dedup against same-topic entries: merge into the best match at
	// or above the threshold, so the decision is reproducible from
	// inputs alone.
	if existing := s.bestMatch(topic, tokens, "", s.cfg.DedupThreshold); existing != nil {
		if confidence > existing.Confidence {
			existing.Confidence = confidence
		}
		existing.Concepts = concepts.Union(existing.Concepts, tokens)
		existing.LastAccess = now
		s.link(existing)
		s.dirty = true
		log.Printf("[store] merged fact into %s (topic %q)", existing.ID, topic)
		return existing.ID, nil
	}

	entry := &Entry{
		ID:         uuid.NewString(),
		Topic:      topic,
		Content:    content,
		Source:     source,
		Confidence: confidence,
		CreatedAt:  now,
		LastAccess: now,
		Concepts:   tokens,
	}
	s.addEntry(entry)
	s.link(entry)
	s.dirty = true
	return entry.ID, nil
}

// Get returns the entry for id, or ErrNotFound.
func (s *Store) Get(id string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.clone(), nil
}

// ByTopic returns all entries for a topic, in no particular order.
func (s *Store) ByTopic(topic string) []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Entry
	for id := range s.byTopic[topic] {
		out = append(out, s.entries[id].clone())
	}
	return out
}

// Remove hard-deletes an entry and its connections. Removing an
// unknown id is a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeEntry(id)
}

// Len returns the current entry count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Dirty reports whether the store has unsaved mutations.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// bestMatch returns the entry in topic with the highest concept
// overlap at or above threshold, excluding excludeID. Ties go to the
// smaller id so repeated runs pick the same survivor.
func (s *Store) bestMatch(topic string, tokens []string, excludeID string, threshold float64) *Entry {
	var best *Entry
	var bestOverlap float64
	for id := range s.byTopic[topic] {
		if id == excludeID {
			continue
		}
		e := s.entries[id]
		ov := concepts.Overlap(tokens, e.Concepts)
		if ov < threshold {
			continue
		}
		if best == nil || ov > bestOverlap || (ov == bestOverlap && e.ID < best.ID) {
			best = e
			bestOverlap = ov
		}
	}
	return best
}

// addEntry inserts an entry into the primary map and topic index.
// Caller holds the lock.
func (s *Store) addEntry(e *Entry) {
	s.entries[e.ID] = e
	ids := s.byTopic[e.Topic]
	if ids == nil {
		ids = make(map[string]bool)
		s.byTopic[e.Topic] = ids
	}
	ids[e.ID] = true
}

// removeEntry deletes an entry, its topic index slot, and all its
// connections. Caller holds the lock. No-op for unknown ids, so
// consolidation stays idempotent even if an id vanished underneath it.
func (s *Store) removeEntry(id string) {
	e, ok := s.entries[id]
	if !ok {
		return
	}
	delete(s.entries, id)
	if ids := s.byTopic[e.Topic]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(s.byTopic, e.Topic)
		}
	}
	s.dropConnections(id)
	s.dirty = true
}

func (e *Entry) clone() *Entry {
	c := *e
	c.Concepts = append([]string(nil), e.Concepts...)
	return &c
}

// TestSetTimestamps overrides an entry's timestamps (for testing only).
func (s *Store) TestSetTimestamps(id string, created, access time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		e.CreatedAt = created
		e.LastAccess = access
	}
}
