// recall is the operator CLI for the knowledge memory. Each
// invocation is one learning cycle: it opens the store, performs the
// requested operation, and flushes the snapshot before exiting.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/mvanders/recall/internal/config"
	"github.com/mvanders/recall/internal/episodic"
	"github.com/mvanders/recall/internal/memory"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: recall <command> [flags]

commands:
  ingest       store a fact (-topic, -content, -source, -confidence)
  query        ranked retrieval (-q, -limit)
  remove       hard-delete an entry and its connections (-id)
  consolidate  run the merge/decay/evict sweep
  stats        print store statistics
  episodes     print recent learning sessions (-limit)

common flags:
  -state   state directory (default $RECALL_STATE_PATH or "state")
  -config  config file (default <state>/recall.yaml)
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	// Load .env file (optional - won't error if missing)
	if err := godotenv.Load(); err == nil {
		log.Println("[recall] loaded .env file")
	}

	switch os.Args[1] {
	case "ingest":
		cmdIngest(os.Args[2:])
	case "query":
		cmdQuery(os.Args[2:])
	case "remove":
		cmdRemove(os.Args[2:])
	case "consolidate":
		cmdConsolidate(os.Args[2:])
	case "stats":
		cmdStats(os.Args[2:])
	case "episodes":
		cmdEpisodes(os.Args[2:])
	default:
		usage()
	}
}

// commonFlags registers the flags every subcommand shares.
func commonFlags(fs *flag.FlagSet) (statePath, configPath *string) {
	defaultState := os.Getenv("RECALL_STATE_PATH")
	if defaultState == "" {
		defaultState = "state"
	}
	statePath = fs.String("state", defaultState, "Path to state directory")
	configPath = fs.String("config", "", "Path to config file (default <state>/recall.yaml)")
	return
}

func openStore(statePath, configPath string) *memory.Store {
	if configPath == "" {
		configPath = filepath.Join(statePath, "recall.yaml")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := memory.Open(filepath.Join(statePath, "knowledge.json"), cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	return store
}

// checkpoint flushes the snapshot if anything changed. Persistence
// happens here, at the end of a cycle, not on every call.
func checkpoint(store *memory.Store) {
	if !store.Dirty() {
		return
	}
	if err := store.Save(); err != nil {
		log.Fatalf("Failed to save store: %v", err)
	}
}

func cmdIngest(args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	statePath, configPath := commonFlags(fs)
	topic := fs.String("topic", "", "Topic label")
	content := fs.String("content", "", "Fact content")
	source := fs.String("source", "manual", "Provenance tag")
	confidence := fs.Float64("confidence", 0.5, "Source confidence in [0,1]")
	outcome := fs.Float64("outcome", 1.0, "Session outcome score")
	fs.Parse(args)

	store := openStore(*statePath, *configPath)

	id, err := store.Ingest(*topic, *content, *source, *confidence)
	if err != nil {
		log.Fatalf("Ingest failed: %v", err)
	}
	checkpoint(store)

	// Record the learning session in the episodic log.
	elog, err := episodic.Open(*statePath)
	if err != nil {
		log.Fatalf("Failed to open episodic log: %v", err)
	}
	defer elog.Close()
	if err := elog.Append(&episodic.Record{EntryIDs: []string{id}, Outcome: *outcome}); err != nil {
		log.Printf("[recall] warning: failed to record session: %v", err)
	}

	fmt.Println(id)
}

func cmdQuery(args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	statePath, configPath := commonFlags(fs)
	q := fs.String("q", "", "Topic or text to search for")
	limit := fs.Int("limit", 10, "Maximum results")
	fs.Parse(args)

	if *q == "" {
		log.Fatal("-q is required")
	}

	store := openStore(*statePath, *configPath)
	entries := store.Query(*q, *limit)
	// Query refreshes last-access on hits, so flush that too.
	checkpoint(store)

	if len(entries) == 0 {
		log.Printf("[recall] no entries match %q", *q)
		return
	}
	for i, e := range entries {
		fmt.Printf("%d. [%s] %s (confidence %.2f, concepts: %s)\n",
			i+1, e.Topic, e.Content, e.Confidence, strings.Join(e.Concepts, ", "))
	}
}

func cmdRemove(args []string) {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	statePath, configPath := commonFlags(fs)
	id := fs.String("id", "", "Entry id to delete")
	fs.Parse(args)

	if *id == "" {
		log.Fatal("-id is required")
	}

	store := openStore(*statePath, *configPath)
	store.Remove(*id)
	checkpoint(store)
}

func cmdConsolidate(args []string) {
	fs := flag.NewFlagSet("consolidate", flag.ExitOnError)
	statePath, configPath := commonFlags(fs)
	fs.Parse(args)

	store := openStore(*statePath, *configPath)

	before := store.Len()
	report := store.Consolidate()
	checkpoint(store)

	log.Printf("Entries: %d -> %d (merged %d, evicted %d)", before, report.Remaining, report.Merged, report.Evicted)
	log.Printf("Connections dropped by decay: %d", report.ConnectionsDropped)
	if report.OverCapacity {
		log.Printf("⚠️  Still over capacity: remaining entries are protected")
	}
}

func cmdStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	statePath, configPath := commonFlags(fs)
	fs.Parse(args)

	store := openStore(*statePath, *configPath)
	stats := store.Stats()

	elog, err := episodic.Open(*statePath)
	if err != nil {
		log.Fatalf("Failed to open episodic log: %v", err)
	}
	defer elog.Close()
	sessions, _ := elog.Count()

	out := struct {
		memory.Stats
		Sessions int `json:"sessions"`
	}{stats, sessions}

	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(data))
}

func cmdEpisodes(args []string) {
	fs := flag.NewFlagSet("episodes", flag.ExitOnError)
	statePath, _ := commonFlags(fs)
	limit := fs.Int("limit", 20, "Maximum sessions to show")
	fs.Parse(args)

	elog, err := episodic.Open(*statePath)
	if err != nil {
		log.Fatalf("Failed to open episodic log: %v", err)
	}
	defer elog.Close()

	records, err := elog.Recent(*limit)
	if err != nil {
		log.Fatalf("Failed to read sessions: %v", err)
	}
	for _, rec := range records {
		fmt.Printf("%s  session %s  outcome %.2f  entries %s\n",
			rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.SessionID[:8],
			rec.Outcome, strings.Join(rec.EntryIDs, ","))
	}
}
