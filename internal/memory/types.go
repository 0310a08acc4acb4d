// Package memory implements the knowledge store: a file-backed,
// capacity-bounded collection of learned facts linked by concept
// overlap, with periodic consolidation and ranked retrieval.
package memory

import (
	"errors"
	"time"
)

// ErrNotFound is returned for lookups of unknown entry ids. Callers
// probe speculatively, so this is a sentinel rather than a fatal error.
var ErrNotFound = errors.New("entry not found")

// ErrInvalidInput is returned when an ingest is rejected before any
// state changes (empty topic/content, confidence outside [0,1]).
var ErrInvalidInput = errors.New("invalid input")

// Entry is a single stored fact with provenance and confidence.
type Entry struct {
	ID         string    `json:"id"`
	Topic      string    `json:"topic"`
	Content    string    `json:"content"`
	Source     string    `json:"source"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
	LastAccess time.Time `json:"last_access"`
	Concepts   []string  `json:"concepts"` // lowercase, deduped, sorted
}

// Connection is a weighted undirected relation between two entries.
// It is stored once under the canonical pair key (smaller id first),
// which makes weight symmetry structural and self-links
// unrepresentable.
type Connection struct {
	Weight         float64   `json:"weight"`
	LastReinforced time.Time `json:"last_reinforced"`
}

// Neighbor is an entry connected to some other entry, as returned by
// Neighbors.
type Neighbor struct {
	ID     string
	Weight float64
}

// Report summarizes what a consolidation run did.
type Report struct {
	Merged             int  // entries absorbed by a same-topic merge
	Evicted            int  // entries removed by capacity eviction
	ConnectionsDropped int  // connections pruned by decay
	Remaining          int  // entry count after the run
	OverCapacity       bool // eviction stopped early on protected entries
}

// Stats is the read-only aggregate surface consumed by the
// personality/adaptation collaborator.
type Stats struct {
	Entries              int            `json:"entries"`
	Topics               int            `json:"topics"`
	Connections          int            `json:"connections"`
	MeanConnectionWeight float64        `json:"mean_connection_weight"`
	TopicCoverage        map[string]int `json:"topic_coverage"`
}
