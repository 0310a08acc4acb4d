package memory

import "testing"

func TestStats(t *testing.T) {
	store := setupTestStore(t, nil)

	if got := store.Stats(); got.Entries != 0 || got.Connections != 0 {
		t.Errorf("empty store stats = %+v", got)
	}

	a := mustIngest(t, store, "stars", "fusion powers stellar cores", "web", 0.5)
	b := mustIngest(t, store, "physics", "fusion powers stellar collapse", "web", 0.5)
	mustIngest(t, store, "physics", "entropy never decreases overall", "web", 0.5)

	got := store.Stats()
	if got.Entries != 3 || got.Topics != 2 {
		t.Errorf("Entries=%d Topics=%d, want 3 and 2", got.Entries, got.Topics)
	}
	if got.TopicCoverage["physics"] != 2 || got.TopicCoverage["stars"] != 1 {
		t.Errorf("TopicCoverage = %v", got.TopicCoverage)
	}
	if got.Connections != 1 {
		t.Fatalf("Connections = %d, want 1", got.Connections)
	}
	if want := store.Weight(a, b); got.MeanConnectionWeight != want {
		t.Errorf("MeanConnectionWeight = %f, want %f", got.MeanConnectionWeight, want)
	}
}
