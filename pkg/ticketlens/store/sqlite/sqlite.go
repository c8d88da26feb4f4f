package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/ticketlens/pkg/ticketlens/model"
	"github.com/cognicore/ticketlens/pkg/ticketlens/store"
)

// Store persists a corpus in SQLite. It implements store.Source and store.Sink.
type Store struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled and creates the schema.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS tickets (
	ticket_number TEXT PRIMARY KEY,
	conversation_id TEXT,
	created_at TEXT,
	closed_at TEXT,
	status TEXT,
	priority TEXT,
	tier REAL,
	product TEXT,
	module TEXT,
	category TEXT,
	case_type TEXT,
	account_name TEXT,
	property_name TEXT,
	property_city TEXT,
	property_state TEXT,
	contact_role TEXT,
	subject TEXT,
	description TEXT,
	resolution TEXT,
	root_cause TEXT,
	tags TEXT,
	kb_article_id TEXT,
	script_id TEXT,
	generated_kb_article_id TEXT
);

CREATE TABLE IF NOT EXISTS conversations (
	ticket_number TEXT NOT NULL,
	conversation_id TEXT NOT NULL,
	channel TEXT,
	started_at TEXT,
	ended_at TEXT,
	customer_role TEXT,
	agent_name TEXT,
	product TEXT,
	category TEXT,
	issue_summary TEXT,
	transcript TEXT,
	sentiment TEXT,
	PRIMARY KEY(ticket_number, conversation_id)
);

CREATE TABLE IF NOT EXISTS kb_articles (
	id TEXT PRIMARY KEY,
	title TEXT,
	body TEXT,
	tags TEXT,
	module TEXT,
	category TEXT,
	created_at TEXT,
	updated_at TEXT,
	status TEXT,
	source_type TEXT
);

CREATE TABLE IF NOT EXISTS kb_lineage (
	article_id TEXT NOT NULL,
	source_type TEXT NOT NULL,
	source_id TEXT NOT NULL,
	relationship TEXT NOT NULL,
	evidence_snippet TEXT,
	event_at TEXT,
	UNIQUE(article_id, source_type, source_id, relationship)
);

CREATE TABLE IF NOT EXISTS learning_events (
	id TEXT PRIMARY KEY,
	trigger_ticket_number TEXT,
	trigger_conversation_id TEXT,
	detected_gap TEXT,
	proposed_article_id TEXT,
	draft_summary TEXT,
	final_status TEXT,
	reviewer_role TEXT,
	event_at TEXT
);

CREATE TABLE IF NOT EXISTS scripts (
	id TEXT PRIMARY KEY,
	title TEXT,
	purpose TEXT,
	inputs TEXT,
	module TEXT,
	category TEXT,
	source TEXT,
	body TEXT
);

CREATE TABLE IF NOT EXISTS questions (
	id TEXT PRIMARY KEY,
	source TEXT,
	product TEXT,
	category TEXT,
	module TEXT,
	difficulty TEXT,
	question TEXT,
	answer_type TEXT,
	target_id TEXT,
	target_title TEXT
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// tables lists every corpus table in load order.
var tables = []string{
	"tickets", "conversations", "kb_articles", "kb_lineage", "learning_events", "scripts", "questions",
}

// Save upserts every record of c in one transaction. Rows already stored keep their
// position; new rows are appended.
func (s *Store) Save(ctx context.Context, c *store.Corpus) error {
	if err := c.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsertAll(ctx, tx, `
INSERT INTO tickets (ticket_number, conversation_id, created_at, closed_at, status, priority, tier,
	product, module, category, case_type, account_name, property_name, property_city, property_state,
	contact_role, subject, description, resolution, root_cause, tags, kb_article_id, script_id,
	generated_kb_article_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(ticket_number) DO UPDATE SET
	conversation_id=excluded.conversation_id, created_at=excluded.created_at,
	closed_at=excluded.closed_at, status=excluded.status, priority=excluded.priority,
	tier=excluded.tier, product=excluded.product, module=excluded.module,
	category=excluded.category, case_type=excluded.case_type, account_name=excluded.account_name,
	property_name=excluded.property_name, property_city=excluded.property_city,
	property_state=excluded.property_state, contact_role=excluded.contact_role,
	subject=excluded.subject, description=excluded.description, resolution=excluded.resolution,
	root_cause=excluded.root_cause, tags=excluded.tags, kb_article_id=excluded.kb_article_id,
	script_id=excluded.script_id, generated_kb_article_id=excluded.generated_kb_article_id;
`, c.Tickets, func(t model.Ticket) []any {
		return []any{t.Number, t.ConversationID, formatTime(t.CreatedAt), formatTime(t.ClosedAt),
			t.Status, string(t.Priority), t.Tier, t.Product, t.Module, t.Category, t.CaseType,
			t.AccountName, t.PropertyName, t.PropertyCity, t.PropertyState, t.ContactRole,
			t.Subject, t.Description, t.Resolution, t.RootCause, t.Tags, t.KBArticleID,
			t.ScriptID, t.GeneratedKBArticleID}
	}); err != nil {
		return fmt.Errorf("save tickets: %w", err)
	}

	if err := upsertAll(ctx, tx, `
INSERT INTO conversations (ticket_number, conversation_id, channel, started_at, ended_at,
	customer_role, agent_name, product, category, issue_summary, transcript, sentiment)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(ticket_number, conversation_id) DO UPDATE SET
	channel=excluded.channel, started_at=excluded.started_at, ended_at=excluded.ended_at,
	customer_role=excluded.customer_role, agent_name=excluded.agent_name,
	product=excluded.product, category=excluded.category, issue_summary=excluded.issue_summary,
	transcript=excluded.transcript, sentiment=excluded.sentiment;
`, c.Conversations, func(cv model.Conversation) []any {
		return []any{cv.TicketNumber, cv.ConversationID, cv.Channel, formatTime(cv.Start),
			formatTime(cv.End), cv.CustomerRole, cv.AgentName, cv.Product, cv.Category,
			cv.IssueSummary, cv.Transcript, string(cv.Sentiment)}
	}); err != nil {
		return fmt.Errorf("save conversations: %w", err)
	}

	if err := upsertAll(ctx, tx, `
INSERT INTO kb_articles (id, title, body, tags, module, category, created_at, updated_at, status, source_type)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title=excluded.title, body=excluded.body, tags=excluded.tags, module=excluded.module,
	category=excluded.category, created_at=excluded.created_at, updated_at=excluded.updated_at,
	status=excluded.status, source_type=excluded.source_type;
`, c.Articles, func(a model.KnowledgeArticle) []any {
		return []any{a.ID, a.Title, a.Body, a.Tags, a.Module, a.Category,
			formatTime(a.CreatedAt), formatTime(a.UpdatedAt), a.Status, a.SourceType}
	}); err != nil {
		return fmt.Errorf("save kb articles: %w", err)
	}

	if err := upsertAll(ctx, tx, `
INSERT INTO kb_lineage (article_id, source_type, source_id, relationship, evidence_snippet, event_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(article_id, source_type, source_id, relationship) DO UPDATE SET
	evidence_snippet=excluded.evidence_snippet, event_at=excluded.event_at;
`, c.Lineage, func(l model.KBLineage) []any {
		return []any{l.ArticleID, l.SourceType, l.SourceID, l.Relationship, l.EvidenceSnippet, formatTime(l.At)}
	}); err != nil {
		return fmt.Errorf("save kb lineage: %w", err)
	}

	if err := upsertAll(ctx, tx, `
INSERT INTO learning_events (id, trigger_ticket_number, trigger_conversation_id, detected_gap,
	proposed_article_id, draft_summary, final_status, reviewer_role, event_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	trigger_ticket_number=excluded.trigger_ticket_number,
	trigger_conversation_id=excluded.trigger_conversation_id, detected_gap=excluded.detected_gap,
	proposed_article_id=excluded.proposed_article_id, draft_summary=excluded.draft_summary,
	final_status=excluded.final_status, reviewer_role=excluded.reviewer_role,
	event_at=excluded.event_at;
`, c.LearningEvents, func(e model.LearningEvent) []any {
		return []any{e.ID, e.TriggerTicketNumber, e.TriggerConversationID, e.DetectedGap,
			e.ProposedArticleID, e.DraftSummary, e.FinalStatus, e.ReviewerRole, formatTime(e.At)}
	}); err != nil {
		return fmt.Errorf("save learning events: %w", err)
	}

	if err := upsertAll(ctx, tx, `
INSERT INTO scripts (id, title, purpose, inputs, module, category, source, body)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title=excluded.title, purpose=excluded.purpose, inputs=excluded.inputs,
	module=excluded.module, category=excluded.category, source=excluded.source, body=excluded.body;
`, c.Scripts, func(sc model.Script) []any {
		return []any{sc.ID, sc.Title, sc.Purpose, sc.Inputs, sc.Module, sc.Category, sc.Source, sc.Text}
	}); err != nil {
		return fmt.Errorf("save scripts: %w", err)
	}

	if err := upsertAll(ctx, tx, `
INSERT INTO questions (id, source, product, category, module, difficulty, question, answer_type,
	target_id, target_title)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	source=excluded.source, product=excluded.product, category=excluded.category,
	module=excluded.module, difficulty=excluded.difficulty, question=excluded.question,
	answer_type=excluded.answer_type, target_id=excluded.target_id,
	target_title=excluded.target_title;
`, c.Questions, func(q model.Question) []any {
		return []any{q.ID, q.Source, q.Product, q.Category, q.Module, q.Difficulty, q.Text,
			q.AnswerType, q.TargetID, q.TargetTitle}
	}); err != nil {
		return fmt.Errorf("save questions: %w", err)
	}

	return tx.Commit()
}

// Load reads the whole corpus in insertion order.
func (s *Store) Load(ctx context.Context) (*store.Corpus, error) {
	var (
		c   store.Corpus
		err error
	)

	c.Tickets, err = queryAll(ctx, s.db, `
SELECT ticket_number, conversation_id, created_at, closed_at, status, priority, tier, product,
	module, category, case_type, account_name, property_name, property_city, property_state,
	contact_role, subject, description, resolution, root_cause, tags, kb_article_id, script_id,
	generated_kb_article_id
FROM tickets ORDER BY rowid;
`, func(rows *sql.Rows) (model.Ticket, error) {
		var (
			t               model.Ticket
			created, closed string
			priority        string
		)
		err := rows.Scan(&t.Number, &t.ConversationID, &created, &closed, &t.Status, &priority,
			&t.Tier, &t.Product, &t.Module, &t.Category, &t.CaseType, &t.AccountName,
			&t.PropertyName, &t.PropertyCity, &t.PropertyState, &t.ContactRole, &t.Subject,
			&t.Description, &t.Resolution, &t.RootCause, &t.Tags, &t.KBArticleID, &t.ScriptID,
			&t.GeneratedKBArticleID)
		t.CreatedAt = parseTime(created)
		t.ClosedAt = parseTime(closed)
		t.Priority = model.Priority(priority)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("load tickets: %w", err)
	}

	c.Conversations, err = queryAll(ctx, s.db, `
SELECT ticket_number, conversation_id, channel, started_at, ended_at, customer_role, agent_name,
	product, category, issue_summary, transcript, sentiment
FROM conversations ORDER BY rowid;
`, func(rows *sql.Rows) (model.Conversation, error) {
		var (
			cv                    model.Conversation
			start, end, sentiment string
		)
		err := rows.Scan(&cv.TicketNumber, &cv.ConversationID, &cv.Channel, &start, &end,
			&cv.CustomerRole, &cv.AgentName, &cv.Product, &cv.Category, &cv.IssueSummary,
			&cv.Transcript, &sentiment)
		cv.Start = parseTime(start)
		cv.End = parseTime(end)
		cv.Sentiment = model.Sentiment(sentiment)
		return cv, err
	})
	if err != nil {
		return nil, fmt.Errorf("load conversations: %w", err)
	}

	c.Articles, err = queryAll(ctx, s.db, `
SELECT id, title, body, tags, module, category, created_at, updated_at, status, source_type
FROM kb_articles ORDER BY rowid;
`, func(rows *sql.Rows) (model.KnowledgeArticle, error) {
		var (
			a                model.KnowledgeArticle
			created, updated string
		)
		err := rows.Scan(&a.ID, &a.Title, &a.Body, &a.Tags, &a.Module, &a.Category,
			&created, &updated, &a.Status, &a.SourceType)
		a.CreatedAt = parseTime(created)
		a.UpdatedAt = parseTime(updated)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("load kb articles: %w", err)
	}

	c.Lineage, err = queryAll(ctx, s.db, `
SELECT article_id, source_type, source_id, relationship, evidence_snippet, event_at
FROM kb_lineage ORDER BY rowid;
`, func(rows *sql.Rows) (model.KBLineage, error) {
		var (
			l  model.KBLineage
			at string
		)
		err := rows.Scan(&l.ArticleID, &l.SourceType, &l.SourceID, &l.Relationship, &l.EvidenceSnippet, &at)
		l.At = parseTime(at)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("load kb lineage: %w", err)
	}

	c.LearningEvents, err = queryAll(ctx, s.db, `
SELECT id, trigger_ticket_number, trigger_conversation_id, detected_gap, proposed_article_id,
	draft_summary, final_status, reviewer_role, event_at
FROM learning_events ORDER BY rowid;
`, func(rows *sql.Rows) (model.LearningEvent, error) {
		var (
			e  model.LearningEvent
			at string
		)
		err := rows.Scan(&e.ID, &e.TriggerTicketNumber, &e.TriggerConversationID, &e.DetectedGap,
			&e.ProposedArticleID, &e.DraftSummary, &e.FinalStatus, &e.ReviewerRole, &at)
		e.At = parseTime(at)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("load learning events: %w", err)
	}

	c.Scripts, err = queryAll(ctx, s.db, `
SELECT id, title, purpose, inputs, module, category, source, body
FROM scripts ORDER BY rowid;
`, func(rows *sql.Rows) (model.Script, error) {
		var sc model.Script
		err := rows.Scan(&sc.ID, &sc.Title, &sc.Purpose, &sc.Inputs, &sc.Module, &sc.Category, &sc.Source, &sc.Text)
		return sc, err
	})
	if err != nil {
		return nil, fmt.Errorf("load scripts: %w", err)
	}

	c.Questions, err = queryAll(ctx, s.db, `
SELECT id, source, product, category, module, difficulty, question, answer_type, target_id, target_title
FROM questions ORDER BY rowid;
`, func(rows *sql.Rows) (model.Question, error) {
		var q model.Question
		err := rows.Scan(&q.ID, &q.Source, &q.Product, &q.Category, &q.Module, &q.Difficulty,
			&q.Text, &q.AnswerType, &q.TargetID, &q.TargetTitle)
		return q, err
	})
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	return &c, nil
}

// Counts returns the row count of every corpus table.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int, len(tables))
	for _, table := range tables {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return nil, err
		}
		out[table] = n
	}
	return out, nil
}

// Reset deletes every stored record.
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func upsertAll[T any](ctx context.Context, tx *sql.Tx, query string, rows []T, args func(T) []any) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, args(row)...); err != nil {
			return err
		}
	}
	return nil
}

func queryAll[T any](ctx context.Context, db *sql.DB, query string, scan func(*sql.Rows) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
