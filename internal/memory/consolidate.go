package memory

import (
	"log"
	"math"
	"sort"
	"time"

	"github.com/mvanders/recall/internal/concepts"
)

// Consolidate runs the periodic sweep: merge near-duplicate entries
// per topic, decay unreinforced connections, then evict low-value
// entries down to store_capacity. The sweep is idempotent — a second
// run with no new ingests leaves the store unchanged apart from the
// expected repeat decay.
func (s *Store) Consolidate() Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report Report

	report.Merged = s.mergePass()
	report.ConnectionsDropped = s.decay(s.cfg.DecayFactor)
	report.Evicted, report.OverCapacity = s.evictPass()
	report.Remaining = len(s.entries)

	log.Printf("[store] consolidated: merged=%d decayed=%d evicted=%d remaining=%d over_capacity=%v",
		report.Merged, report.ConnectionsDropped, report.Evicted, report.Remaining, report.OverCapacity)
	return report
}

// mergePass merges same-topic entry pairs whose concept overlap is at
// or above merge_threshold, repeating per topic until no pair
// qualifies (a merged entry's unioned concepts can push it over the
// threshold with a third entry). Returns the number of entries
// absorbed.
func (s *Store) mergePass() int {
	merged := 0

	topics := make([]string, 0, len(s.byTopic))
	for topic := range s.byTopic {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	for _, topic := range topics {
		for {
			survivor, loser := s.findMergePair(topic)
			if survivor == nil {
				break
			}
			s.merge(survivor, loser)
			merged++
		}
	}
	return merged
}

// findMergePair returns the next (survivor, loser) pair for a topic,
// or nils when no pair overlaps at merge_threshold. The higher-
// confidence entry survives; ties go to the older entry, then the
// smaller id, so repeated runs choose identically.
func (s *Store) findMergePair(topic string) (*Entry, *Entry) {
	ids := make([]string, 0, len(s.byTopic[topic]))
	for id := range s.byTopic[topic] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for i := 0; i < len(ids); i++ {
		a := s.entries[ids[i]]
		for j := i + 1; j < len(ids); j++ {
			b := s.entries[ids[j]]
			if concepts.Overlap(a.Concepts, b.Concepts) < s.cfg.MergeThreshold {
				continue
			}
			if survives(a, b) {
				return a, b
			}
			return b, a
		}
	}
	return nil, nil
}

func survives(a, b *Entry) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// merge folds loser into survivor: max confidence, union of concepts,
// refreshed last-access, and the loser's connections re-pointed to the
// survivor at max weight. Caller holds the lock.
func (s *Store) merge(survivor, loser *Entry) {
	if loser.Confidence > survivor.Confidence {
		survivor.Confidence = loser.Confidence
	}
	survivor.Concepts = concepts.Union(survivor.Concepts, loser.Concepts)
	if loser.LastAccess.After(survivor.LastAccess) {
		survivor.LastAccess = loser.LastAccess
	}

	// Re-point the loser's connections before removing it: the
	// surviving connection keeps the max weight and the later
	// reinforcement timestamp of the two.
	for other := range s.adjacent[loser.ID] {
		if other == survivor.ID {
			continue // would be a self-connection
		}
		key, _ := pairKey(loser.ID, other)
		conn := s.connections[key]
		if conn == nil {
			continue
		}
		skey, ok := pairKey(survivor.ID, other)
		if !ok {
			continue
		}
		if sc := s.connections[skey]; sc == nil {
			s.connections[skey] = &Connection{Weight: conn.Weight, LastReinforced: conn.LastReinforced}
			s.addAdjacent(survivor.ID, other)
		} else {
			if conn.Weight > sc.Weight {
				sc.Weight = conn.Weight
			}
			if conn.LastReinforced.After(sc.LastReinforced) {
				sc.LastReinforced = conn.LastReinforced
			}
		}
	}

	s.removeEntry(loser.ID)
	s.dirty = true
}

// evictPass removes the lowest-value entries until the store is at or
// under capacity. Value is confidence * recency_weight(last_access).
// An entry that is the sole survivor of its topic with confidence at
// or above protected_confidence is skipped; when only protected
// entries remain the pass stops early and reports over-capacity
// rather than violating the protection invariant.
func (s *Store) evictPass() (int, bool) {
	over := len(s.entries) - s.cfg.StoreCapacity
	if over <= 0 {
		return 0, false
	}

	now := time.Now()
	type ranked struct {
		id    string
		value float64
		age   time.Time
	}
	candidates := make([]ranked, 0, len(s.entries))
	for id, e := range s.entries {
		candidates = append(candidates, ranked{
			id:    id,
			value: e.Confidence * s.recencyWeight(e.LastAccess, now),
			age:   e.LastAccess,
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].value != candidates[j].value {
			return candidates[i].value < candidates[j].value
		}
		if !candidates[i].age.Equal(candidates[j].age) {
			return candidates[i].age.Before(candidates[j].age)
		}
		return candidates[i].id < candidates[j].id
	})

	evicted := 0
	for _, c := range candidates {
		if len(s.entries) <= s.cfg.StoreCapacity {
			break
		}
		e, ok := s.entries[c.id]
		if !ok {
			continue
		}
		if s.isProtected(e) {
			continue
		}
		s.removeEntry(c.id)
		evicted++
	}

	stillOver := len(s.entries) > s.cfg.StoreCapacity
	if stillOver {
		log.Printf("[store] eviction blocked by protected entries: %d entries over capacity %d",
			len(s.entries)-s.cfg.StoreCapacity, s.cfg.StoreCapacity)
	}
	return evicted, stillOver
}

// isProtected reports whether e is the sole remaining entry for its
// topic with confidence at or above the protected threshold.
func (s *Store) isProtected(e *Entry) bool {
	return len(s.byTopic[e.Topic]) == 1 && e.Confidence >= s.cfg.ProtectedConfidence
}

// recencyWeight is the monotonically decreasing age weight used by
// both eviction and query ranking: 0.5^(age/half_life), so an entry
// touched now weighs 1.0 and loses half its weight every half-life.
func (s *Store) recencyWeight(lastAccess, now time.Time) float64 {
	age := now.Sub(lastAccess)
	if age <= 0 {
		return 1.0
	}
	return math.Pow(0.5, float64(age)/float64(time.Duration(s.cfg.RecencyHalfLife)))
}
