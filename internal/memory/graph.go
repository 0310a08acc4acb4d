package memory

import (
	"sort"
	"time"
)

// pairKey builds the canonical key for an unordered entry pair: the
// smaller id first. A self-pair has no key.
func pairKey(a, b string) (string, bool) {
	if a == b {
		return "", false
	}
	if b < a {
		a, b = b, a
	}
	return a + "|" + b, true
}

// splitPairKey is the inverse of pairKey.
func splitPairKey(key string) (string, string, bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == '|' {
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}

// link scans all other entries and creates or reinforces a connection
// for every pair whose concept overlap exceeds link_threshold.
// Reinforcement keeps the maximum of the old and new weight and
// refreshes the reinforcement timestamp. Caller holds the lock.
func (s *Store) link(e *Entry) {
	now := time.Now()
	for id, other := range s.entries {
		if id == e.ID {
			continue
		}
		ratio := overlapRatio(e, other)
		if ratio <= s.cfg.LinkThreshold {
			continue
		}
		s.reinforce(e.ID, id, ratio, now)
	}
}

func overlapRatio(a, b *Entry) float64 {
	inA := make(map[string]bool, len(a.Concepts))
	for _, t := range a.Concepts {
		inA[t] = true
	}
	shared := 0
	union := len(inA)
	for _, t := range b.Concepts {
		if inA[t] {
			shared++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

// reinforce upserts the connection between a and b with
// weight = max(existing, weight). Caller holds the lock.
func (s *Store) reinforce(a, b string, weight float64, at time.Time) {
	key, ok := pairKey(a, b)
	if !ok {
		return
	}
	conn := s.connections[key]
	if conn == nil {
		conn = &Connection{Weight: weight, LastReinforced: at}
		s.connections[key] = conn
		s.addAdjacent(a, b)
	} else {
		if weight > conn.Weight {
			conn.Weight = weight
		}
		conn.LastReinforced = at
	}
	s.dirty = true
}

func (s *Store) addAdjacent(a, b string) {
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		set := s.adjacent[pair[0]]
		if set == nil {
			set = make(map[string]bool)
			s.adjacent[pair[0]] = set
		}
		set[pair[1]] = true
	}
}

// dropConnections removes every connection touching id. Caller holds
// the lock.
func (s *Store) dropConnections(id string) {
	for other := range s.adjacent[id] {
		if key, ok := pairKey(id, other); ok {
			delete(s.connections, key)
		}
		delete(s.adjacent[other], id)
		if len(s.adjacent[other]) == 0 {
			delete(s.adjacent, other)
		}
	}
	delete(s.adjacent, id)
}

// Neighbors returns up to k connected entries for id, sorted by
// weight descending with ties broken by more recent reinforcement.
// Unknown ids yield an empty result, not an error.
func (s *Store) Neighbors(id string, k int) []Neighbor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.neighbors(id, k)
}

func (s *Store) neighbors(id string, k int) []Neighbor {
	type scored struct {
		Neighbor
		reinforced time.Time
	}

	var out []scored
	for other := range s.adjacent[id] {
		key, ok := pairKey(id, other)
		if !ok {
			continue
		}
		conn := s.connections[key]
		if conn == nil {
			continue
		}
		out = append(out, scored{
			Neighbor:   Neighbor{ID: other, Weight: conn.Weight},
			reinforced: conn.LastReinforced,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		if !out[i].reinforced.Equal(out[j].reinforced) {
			return out[i].reinforced.After(out[j].reinforced)
		}
		return out[i].ID < out[j].ID
	})

	if k > 0 && len(out) > k {
		out = out[:k]
	}
	result := make([]Neighbor, len(out))
	for i, n := range out {
		result[i] = n.Neighbor
	}
	return result
}

// Weight returns the connection weight between two entries, or 0 when
// they are not connected. Symmetric by construction.
func (s *Store) Weight(a, b string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := pairKey(a, b)
	if !ok {
		return 0
	}
	if conn := s.connections[key]; conn != nil {
		return conn.Weight
	}
	return 0
}

// decay multiplies every connection weight by factor and removes
// connections that fall below min_connection_weight. Returns the
// number removed. Caller holds the lock.
func (s *Store) decay(factor float64) int {
	var doomed []string
	for key, conn := range s.connections {
		conn.Weight *= factor
		if conn.Weight < s.cfg.MinConnectionWeight {
			doomed = append(doomed, key)
		}
	}
	for _, key := range doomed {
		a, b, ok := splitPairKey(key)
		if !ok {
			continue
		}
		delete(s.connections, key)
		delete(s.adjacent[a], b)
		delete(s.adjacent[b], a)
		if len(s.adjacent[a]) == 0 {
			delete(s.adjacent, a)
		}
		if len(s.adjacent[b]) == 0 {
			delete(s.adjacent, b)
		}
	}
	if len(s.connections) > 0 || len(doomed) > 0 {
		s.dirty = true
	}
	return len(doomed)
}

// TestSetReinforced overrides a connection's reinforcement timestamp
// (for testing only).
func (s *Store) TestSetReinforced(a, b string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key, ok := pairKey(a, b); ok {
		if conn := s.connections[key]; conn != nil {
			conn.LastReinforced = at
		}
	}
}
