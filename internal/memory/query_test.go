package memory

import (
	"testing"
	"time"
)

func TestQueryEmptyAndNoMatch(t *testing.T) {
	store := setupTestStore(t, nil)
	mustIngest(t, store, "rivers", "rivers carry sediment downstream", "web", 0.5)

	if got := store.Query("", 10); got != nil {
		t.Errorf("Query(\"\") = %v, want nil", got)
	}
	if got := store.Query("   ", 10); got != nil {
		t.Errorf("whitespace query = %v, want nil", got)
	}
	if got := store.Query("xylophone zymurgy", 10); got != nil {
		t.Errorf("unmatched query = %v, want nil", got)
	}
}

func TestQueryMatchesTopicAndConcepts(t *testing.T) {
	store := setupTestStore(t, nil)
	id := mustIngest(t, store, "photosynthesis", "plants convert sunlight into energy", "web", 0.5)

	for _, q := range []string{"photosynthesis", "PHOTOSYNTHESIS", "photo", "sunlight"} {
		got := store.Query(q, 10)
		if len(got) != 1 || got[0].ID != id {
			t.Errorf("Query(%q) = %v, want the single entry", q, got)
		}
	}
}

func TestQueryRanksByConfidence(t *testing.T) {
	store := setupTestStore(t, nil)

	strong := mustIngest(t, store, "cats", "felines hunt small rodents", "web", 0.9)
	weak := mustIngest(t, store, "pets", "felines sleep most days", "web", 0.3)

	// Equalize timestamps so confidence is the only differentiator.
	at := time.Now().Add(-time.Hour)
	store.TestSetTimestamps(strong, at, at)
	store.TestSetTimestamps(weak, at, at)

	got := store.Query("felines", 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].ID != strong || got[1].ID != weak {
		t.Errorf("ranking wrong: got %s then %s", got[0].ID, got[1].ID)
	}
}

// TestQueryRankRisesWithConfidence: re-learning a fact at higher
// confidence must never lower its rank.
func TestQueryRankRisesWithConfidence(t *testing.T) {
	store := setupTestStore(t, nil)

	tea := mustIngest(t, store, "tea", "green tea contains antioxidants", "web", 0.3)
	coffee := mustIngest(t, store, "coffee", "roasted coffee contains caffeine", "web", 0.6)

	at := time.Now().Add(-time.Hour)
	store.TestSetTimestamps(tea, at, at)
	store.TestSetTimestamps(coffee, at, at)

	got := store.Query("contains", 10)
	if len(got) != 2 || got[0].ID != coffee {
		t.Fatalf("expected coffee entry first, got %v", ids(got))
	}

	// Re-ingesting the same fact at higher confidence merges and should
	// push it to the top.
	mustIngest(t, store, "tea", "green tea contains antioxidants", "web", 0.9)

	got = store.Query("contains", 10)
	if len(got) != 2 || got[0].ID != tea {
		t.Errorf("expected tea entry first after reinforcement, got %v", ids(got))
	}
}

// TestQueryConnectionBoost: among equally confident, equally fresh
// matches, the connected ones outrank the isolated one.
func TestQueryConnectionBoost(t *testing.T) {
	store := setupTestStore(t, nil)

	a := mustIngest(t, store, "qm-1", "quantum entanglement experiments", "web", 0.5)
	b := mustIngest(t, store, "qm-2", "quantum entanglement experiments results", "web", 0.5)
	lone := mustIngest(t, store, "qm-3", "quantum trivia collection pieces", "web", 0.5)

	at := time.Now().Add(-time.Hour)
	for _, id := range []string{a, b, lone} {
		store.TestSetTimestamps(id, at, at)
	}
	if store.Weight(a, b) == 0 {
		t.Fatal("setup broken: expected a-b connection")
	}
	if store.Weight(a, lone) != 0 || store.Weight(b, lone) != 0 {
		t.Fatal("setup broken: lone entry should be unconnected")
	}

	got := store.Query("quantum", 10)
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	if got[2].ID != lone {
		t.Errorf("isolated entry should rank last, got %v", ids(got))
	}
}

func TestQueryTieBreaksOnCreation(t *testing.T) {
	store := setupTestStore(t, nil)

	older := mustIngest(t, store, "rivers", "rivers carry water downhill", "web", 0.5)
	newer := mustIngest(t, store, "lakes", "lakes hold water basins", "web", 0.5)

	access := time.Now().Add(-time.Hour)
	store.TestSetTimestamps(older, access.Add(-time.Hour), access)
	store.TestSetTimestamps(newer, access.Add(-time.Minute), access)

	got := store.Query("water", 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].ID != newer {
		t.Errorf("tie should break toward the newer entry, got %v", ids(got))
	}
}

func TestQueryRefreshesLastAccess(t *testing.T) {
	store := setupTestStore(t, nil)

	id := mustIngest(t, store, "comets", "comets shed dust tails", "web", 0.5)
	store.Save()

	stale := time.Now().Add(-30 * 24 * time.Hour)
	store.TestSetTimestamps(id, stale, stale)

	got := store.Query("comets", 10)
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
	if !got[0].LastAccess.After(stale) {
		t.Error("query did not refresh last access")
	}

	e, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !e.LastAccess.After(stale) {
		t.Error("refreshed last access not visible on re-read")
	}
	if !store.Dirty() {
		t.Error("read-through refresh should mark the store dirty")
	}
}

func TestQueryLimit(t *testing.T) {
	store := setupTestStore(t, nil)

	mustIngest(t, store, "birds-1", "sparrows flock near hedges", "web", 0.5)
	mustIngest(t, store, "birds-2", "swallows migrate south yearly", "web", 0.5)
	mustIngest(t, store, "birds-3", "owls hunt after dusk", "web", 0.5)

	if got := store.Query("birds", 2); len(got) != 2 {
		t.Errorf("Query limit ignored: got %d results", len(got))
	}
	if got := store.Query("birds", 0); len(got) != 3 {
		t.Errorf("limit 0 should return all matches, got %d", len(got))
	}
}

func ids(entries []*Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
