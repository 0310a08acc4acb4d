// recall-mcp exposes the knowledge memory as MCP tools over stdio so
// downstream collaborators (question generation, personality
// adaptation) can ingest, query, and inspect the store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvanders/recall/internal/config"
	"github.com/mvanders/recall/internal/episodic"
	"github.com/mvanders/recall/internal/memory"
)

func main() {
	// Log to stderr so stdout is clean for JSON-RPC
	log.SetOutput(os.Stderr)
	log.SetPrefix("[recall-mcp] ")

	// Load .env file if present (don't error if missing)
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file")
	}

	statePath := os.Getenv("RECALL_STATE_PATH")
	if statePath == "" {
		statePath = "state"
	}
	log.Printf("State path: %s", statePath)

	cfg, err := config.Load(filepath.Join(statePath, "recall.yaml"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := memory.Open(filepath.Join(statePath, "knowledge.json"), cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	elog, err := episodic.Open(statePath)
	if err != nil {
		log.Fatalf("Failed to open episodic log: %v", err)
	}
	defer elog.Close()

	h := &handlers{store: store, elog: elog}

	s := server.NewMCPServer(
		"recall-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.AddTool(ingestTool(), h.handleIngest)
	s.AddTool(queryTool(), h.handleQuery)
	s.AddTool(consolidateTool(), h.handleConsolidate)
	s.AddTool(statsTool(), h.handleStats)

	log.Println("Starting recall MCP server...")
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

type handlers struct {
	store *memory.Store
	elog  *episodic.Log
}

// checkpoint flushes the snapshot at the end of a tool call — each
// call is one learning cycle from the collaborator's point of view.
func (h *handlers) checkpoint() {
	if !h.store.Dirty() {
		return
	}
	if err := h.store.Save(); err != nil {
		log.Printf("warning: failed to save store: %v", err)
	}
}

func ingestTool() mcp.Tool {
	return mcp.NewTool("memory_ingest",
		mcp.WithDescription("Store a learned fact. Near-duplicate facts on the same topic are merged rather than stored twice; the returned id is the stored entry either way."),
		mcp.WithString("topic",
			mcp.Required(),
			mcp.Description("Topic label for the fact"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The fact itself, as free text"),
		),
		mcp.WithString("source",
			mcp.Description("Provenance tag (default: mcp)"),
		),
		mcp.WithNumber("confidence",
			mcp.Description("Source confidence in [0,1] (default: 0.5)"),
		),
	)
}

func (h *handlers) handleIngest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := req.Params.Arguments.(map[string]any)
	topic, _ := args["topic"].(string)
	content, _ := args["content"].(string)
	source, _ := args["source"].(string)
	if source == "" {
		source = "mcp"
	}
	confidence := 0.5
	if c, ok := args["confidence"].(float64); ok {
		confidence = c
	}

	id, err := h.store.Ingest(topic, content, source, confidence)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ingest failed: %v", err)), nil
	}
	h.checkpoint()

	if err := h.elog.Append(&episodic.Record{EntryIDs: []string{id}, Outcome: confidence}); err != nil {
		log.Printf("warning: failed to record session: %v", err)
	}

	return mcp.NewToolResultText(fmt.Sprintf("Stored entry %s under topic %q", id, topic)), nil
}

func queryTool() mcp.Tool {
	return mcp.NewTool("memory_query",
		mcp.WithDescription("Retrieve stored facts ranked by confidence, recency, and connectedness. Use this to find under- or well-explored topics."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Topic or free text to search for"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results (default: 10)"),
		),
	)
}

func (h *handlers) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := req.Params.Arguments.(map[string]any)
	query, _ := args["query"].(string)
	limit := 10
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	entries := h.store.Query(query, limit)
	h.checkpoint()

	if len(entries) == 0 {
		return mcp.NewToolResultText("No matching entries."), nil
	}

	var b strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. [%s] %s (confidence %.2f, source %s)\n",
			i+1, e.Topic, e.Content, e.Confidence, e.Source)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func consolidateTool() mcp.Tool {
	return mcp.NewTool("memory_consolidate",
		mcp.WithDescription("Run the consolidation sweep: merge near-duplicate entries, decay stale connections, evict low-value entries down to capacity."),
	)
}

func (h *handlers) handleConsolidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report := h.store.Consolidate()
	h.checkpoint()

	out := fmt.Sprintf("Merged %d, evicted %d, dropped %d connections; %d entries remain.",
		report.Merged, report.Evicted, report.ConnectionsDropped, report.Remaining)
	if report.OverCapacity {
		out += " Still over capacity: remaining entries are protected."
	}
	return mcp.NewToolResultText(out), nil
}

func statsTool() mcp.Tool {
	return mcp.NewTool("memory_stats",
		mcp.WithDescription("Aggregate store statistics: entry count, topic coverage, connection count and mean weight, recorded sessions."),
	)
}

func (h *handlers) handleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := h.store.Stats()
	sessions, err := h.elog.Count()
	if err != nil {
		log.Printf("warning: failed to count sessions: %v", err)
	}

	out := struct {
		memory.Stats
		Sessions int `json:"sessions"`
	}{stats, sessions}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal stats: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
