package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"tickets.json": `[
			{"Ticket_Number":"CS-1","Category":"Move-In","Subject":"Lease date validation error","Root_Cause":"Lease start precedes unit availability","Priority":"High","Tier":3,"Created_At":"2025-03-01T09:00:00Z","Closed_At":"2025-03-01T10:00:00Z","KB_Article_ID":"KB-1"},
			{"Ticket_Number":"CS-2","Category":"Move-In","Subject":"Lease date validation error","Root_Cause":"Lease start precedes unit availability","Priority":"Medium","Tier":1,"Created_At":"2025-03-02T09:00:00Z","Closed_At":"2025-03-02T09:30:00Z"},
			{"Ticket_Number":"CS-3","Category":"Move-In","Subject":"Key fob not issued","Root_Cause":"Access control sync delay","Priority":"Low","Tier":1,"Created_At":"2025-03-02T12:00:00Z"},
			{"Ticket_Number":"CS-4","Category":"Billing","Subject":"Late fee miscalculated","Priority":"Low","Tier":1,"Created_At":"2025-03-03T09:00:00Z"}
		]`,
		"knowledge_articles.json": `[{"KB_Article_ID":"KB-1","Title":"Lease date validation","Body":"Check the lease start date.","Source_Type":"SEED_KB","Updated_At":"2025-01-01"}]`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestRunStats(t *testing.T) {
	data := writeCorpus(t)
	var stdout, stderr bytes.Buffer
	args := []string{"stats", "--data", data, "--env-file", "", "--log-level", "error"}
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v (stderr: %s)", err, stderr.String())
	}

	var out struct {
		TotalTickets    int `json:"total_tickets"`
		TotalKBArticles int `json:"total_kb_articles"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout.String())
	}
	if out.TotalTickets != 4 || out.TotalKBArticles != 1 {
		t.Fatalf("unexpected totals: %+v", out)
	}
}

func TestRunClustersLimit(t *testing.T) {
	data := writeCorpus(t)
	var stdout, stderr bytes.Buffer
	args := []string{"clusters", "--data", data, "--env-file", "", "--log-level", "error", "--limit", "1", "--pretty=false"}
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}

	var clusters []struct {
		ID          string `json:"id"`
		TicketCount int    `json:"ticket_count"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &clusters); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster with --limit 1, got %d", len(clusters))
	}
	if clusters[0].TicketCount != 2 {
		t.Fatalf("largest cluster should hold the two lease tickets, got %+v", clusters[0])
	}
}

func TestRunErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	ctx := context.Background()

	if err := run(ctx, nil, &stdout, &stderr); err == nil {
		t.Fatal("expected usage error with no args")
	}
	if err := run(ctx, []string{"frobnicate"}, &stdout, &stderr); err == nil {
		t.Fatal("expected error for unknown command")
	}
	if err := run(ctx, []string{"triage", "--env-file", ""}, &stdout, &stderr); err == nil {
		t.Fatal("expected error for missing ticket argument")
	}
	if err := run(ctx, []string{"search", "--env-file", ""}, &stdout, &stderr); err == nil {
		t.Fatal("expected error for missing query")
	}
	missing := filepath.Join(t.TempDir(), "absent")
	if err := run(ctx, []string{"stats", "--data", missing, "--env-file", "", "--log-level", "error"}, &stdout, &stderr); err == nil {
		t.Fatal("expected error for missing data dir")
	}
	if err := run(ctx, []string{"help"}, &stdout, &stderr); err != nil {
		t.Fatalf("help should succeed: %v", err)
	}
}
