package memory

// Stats returns the aggregate view of the store: entry and topic
// counts, connection count, mean connection weight, and per-topic
// entry coverage. Read-only; the personality collaborator adjusts its
// own state from these numbers.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		Entries:       len(s.entries),
		Topics:        len(s.byTopic),
		Connections:   len(s.connections),
		TopicCoverage: make(map[string]int, len(s.byTopic)),
	}
	for topic, ids := range s.byTopic {
		stats.TopicCoverage[topic] = len(ids)
	}

	if len(s.connections) > 0 {
		var total float64
		for _, conn := range s.connections {
			total += conn.Weight
		}
		stats.MeanConnectionWeight = total / float64(len(s.connections))
	}
	return stats
}
