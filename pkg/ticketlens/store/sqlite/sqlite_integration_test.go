package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cognicore/ticketlens/pkg/ticketlens/internalerr"
	"github.com/cognicore/ticketlens/pkg/ticketlens/model"
	"github.com/cognicore/ticketlens/pkg/ticketlens/store"
)

func sampleCorpus() *store.Corpus {
	created := time.Date(2025, 3, 4, 9, 30, 0, 0, time.UTC)
	return &store.Corpus{
		Tickets: []model.Ticket{
			{
				Number:      "CS-0002",
				CreatedAt:   created,
				ClosedAt:    created.Add(90 * time.Minute),
				Priority:    model.PriorityHigh,
				Tier:        3,
				Category:    "Move-In",
				Subject:     "Lease start date rejected",
				RootCause:   "Lease start date validation error",
				KBArticleID: "KB-1",
			},
			{Number: "CS-0001", Priority: model.PriorityLow, Tier: 1, Category: "Billing"},
		},
		Conversations: []model.Conversation{
			{TicketNumber: "CS-0002", ConversationID: "CONV-1", Start: created, Sentiment: model.SentimentFrustrated},
		},
		Articles: []model.KnowledgeArticle{
			{ID: "KB-1", Title: "Fix lease dates", Body: "<p>Steps</p>", UpdatedAt: created, SourceType: model.SourceSeed},
		},
		Lineage: []model.KBLineage{
			{ArticleID: "KB-1", SourceType: "Ticket", SourceID: "CS-0002", Relationship: "CREATED_FROM", At: created},
		},
		LearningEvents: []model.LearningEvent{
			{ID: "LE-1", ProposedArticleID: "KB-1", FinalStatus: model.StatusApproved, At: created},
		},
		Scripts: []model.Script{
			{ID: "SCRIPT-1", Title: "Reset unit status", Text: "UPDATE units SET status = 'vacant'"},
		},
		Questions: []model.Question{
			{ID: "Q-1", Text: "How do I fix lease dates?", AnswerType: model.AnswerTypeKB, TargetID: "KB-1"},
		},
	}
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "corpus.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)

	want := sampleCorpus()
	if err := st.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(got.Tickets) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(got.Tickets))
	}
	if got.Tickets[0].Number != "CS-0002" {
		t.Errorf("insertion order lost: first ticket %q", got.Tickets[0].Number)
	}
	tk := got.Tickets[0]
	if !tk.CreatedAt.Equal(want.Tickets[0].CreatedAt) || !tk.ClosedAt.Equal(want.Tickets[0].ClosedAt) {
		t.Errorf("timestamps mismatch: %v %v", tk.CreatedAt, tk.ClosedAt)
	}
	if mins, ok := tk.ResolutionMinutes(); !ok || mins != 90 {
		t.Errorf("resolution minutes = %v, %v", mins, ok)
	}
	if tk.Priority != model.PriorityHigh || tk.Tier != 3 || tk.KBArticleID != "KB-1" {
		t.Errorf("ticket fields mismatch: %+v", tk)
	}
	if !got.Tickets[1].CreatedAt.IsZero() {
		t.Errorf("missing timestamp should load as zero, got %v", got.Tickets[1].CreatedAt)
	}

	if got.Conversations[0].Sentiment != model.SentimentFrustrated {
		t.Errorf("sentiment = %q", got.Conversations[0].Sentiment)
	}
	if !got.Articles[0].Seeded() || got.Articles[0].Body != "<p>Steps</p>" {
		t.Errorf("article mismatch: %+v", got.Articles[0])
	}
	if got.Lineage[0].Relationship != "CREATED_FROM" {
		t.Errorf("lineage mismatch: %+v", got.Lineage[0])
	}
	if !got.LearningEvents[0].Approved() {
		t.Errorf("learning event should be approved")
	}
	if got.Scripts[0].Text != want.Scripts[0].Text {
		t.Errorf("script text = %q", got.Scripts[0].Text)
	}
	if got.Questions[0].TargetID != "KB-1" {
		t.Errorf("question target = %q", got.Questions[0].TargetID)
	}
}

func TestSaveUpserts(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)

	if err := st.Save(ctx, sampleCorpus()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	update := &store.Corpus{
		Tickets: []model.Ticket{
			{Number: "CS-0002", Subject: "Updated subject", Tier: 2},
			{Number: "CS-0003", Subject: "New ticket"},
		},
	}
	if err := st.Save(ctx, update); err != nil {
		t.Fatalf("Save update: %v", err)
	}

	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Tickets) != 3 {
		t.Fatalf("expected 3 tickets, got %d", len(got.Tickets))
	}
	if got.Tickets[0].Subject != "Updated subject" || got.Tickets[0].Tier != 2 {
		t.Errorf("upsert did not update in place: %+v", got.Tickets[0])
	}
	if got.Tickets[2].Number != "CS-0003" {
		t.Errorf("new ticket should be appended, got %q", got.Tickets[2].Number)
	}

	counts, err := st.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts["tickets"] != 3 || counts["kb_articles"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestSaveRejectsInvalidRecords(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)

	bad := sampleCorpus()
	bad.Articles = append(bad.Articles, model.KnowledgeArticle{Title: "no id"})
	err := st.Save(ctx, bad)
	if !errors.Is(err, internalerr.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}

	counts, err := st.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts["tickets"] != 0 {
		t.Errorf("nothing should be written, got %v", counts)
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)

	if err := st.Save(ctx, sampleCorpus()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := st.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Tickets)+len(got.Articles)+len(got.Questions) != 0 {
		t.Errorf("expected empty corpus after reset")
	}
}

func TestConcurrentLoads(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)
	if err := st.Save(ctx, sampleCorpus()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := st.Load(ctx)
			if err == nil && len(c.Tickets) != 2 {
				err = errors.New("short read")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("concurrent Load: %v", err)
		}
	}
}

// TestSchemaCreationIdempotent tests that running initSchema multiple times is safe
func TestSchemaCreationIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open database: %v", err)
	}
	defer db.Close()

	for i := 0; i < 3; i++ {
		if err := initSchema(ctx, db); err != nil {
			t.Fatalf("initSchema iteration %d: %v", i, err)
		}
	}

	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&count)
	if err != nil {
		t.Fatalf("Count tables: %v", err)
	}
	if count != len(tables) {
		t.Errorf("Expected %d tables, got %d", len(tables), count)
	}
}

func TestReopenPreservesData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "corpus.db")

	st, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := st.Save(ctx, sampleCorpus()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	st.Close()

	st, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Tickets) != 2 {
		t.Errorf("expected data to survive reopen, got %d tickets", len(got.Tickets))
	}
}
