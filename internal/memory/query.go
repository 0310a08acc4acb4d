package memory

import (
	"sort"
	"strings"
	"time"

	"github.com/mvanders/recall/internal/concepts"
)

// Query returns up to limit entries matching a topic or free text,
// ranked by confidence * recency_weight * (1 + mean connection weight
// to other matched entries), descending. Ties break toward the newer
// entry. No match yields an empty result, not an error. Returned
// entries get their last-access refreshed, coupling retrieval to
// future eviction priority.
func (s *Store) Query(text string, limit int) []*Entry {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	matched := s.match(text)
	if len(matched) == 0 {
		return nil
	}

	matchedSet := make(map[string]bool, len(matched))
	for _, e := range matched {
		matchedSet[e.ID] = true
	}

	now := time.Now()
	type ranked struct {
		entry *Entry
		score float64
	}
	scored := make([]ranked, 0, len(matched))
	for _, e := range matched {
		score := e.Confidence * s.recencyWeight(e.LastAccess, now) * (1 + s.meanWeightTo(e.ID, matchedSet))
		scored = append(scored, ranked{entry: e, score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		if !scored[i].entry.CreatedAt.Equal(scored[j].entry.CreatedAt) {
			return scored[i].entry.CreatedAt.After(scored[j].entry.CreatedAt)
		}
		return scored[i].entry.ID < scored[j].entry.ID
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}

	// Read-through reinforcement: returned entries count as accessed.
	out := make([]*Entry, len(scored))
	for i, r := range scored {
		r.entry.LastAccess = now
		s.dirty = true
		out[i] = r.entry.clone()
	}
	return out
}

// match collects entries whose topic equals or contains the query
// text (case-insensitive), or whose concept set shares a token with
// the query. Caller holds the lock.
func (s *Store) match(text string) []*Entry {
	textLower := strings.ToLower(text)
	queryTokens := concepts.Extract(text)

	var out []*Entry
	for _, e := range s.entries {
		if strings.Contains(strings.ToLower(e.Topic), textLower) || sharesToken(queryTokens, e.Concepts) {
			out = append(out, e)
		}
	}
	return out
}

func sharesToken(query, entryConcepts []string) bool {
	if len(query) == 0 {
		return false
	}
	set := make(map[string]bool, len(entryConcepts))
	for _, t := range entryConcepts {
		set[t] = true
	}
	for _, t := range query {
		if set[t] {
			return true
		}
	}
	return false
}

// meanWeightTo averages the connection weights from id to the other
// matched entries. Unconnected pairs count as zero, so an isolated
// match gets the neutral multiplier. Caller holds the lock.
func (s *Store) meanWeightTo(id string, matched map[string]bool) float64 {
	others := len(matched) - 1
	if others <= 0 {
		return 0
	}
	var total float64
	for other := range s.adjacent[id] {
		if !matched[other] {
			continue
		}
		if key, ok := pairKey(id, other); ok {
			if conn := s.connections[key]; conn != nil {
				total += conn.Weight
			}
		}
	}
	return total / float64(others)
}
