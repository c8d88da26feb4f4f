package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/ticketlens/pkg/ticketlens/store/sqlite"
)

func TestImportIntoSQLite(t *testing.T) {
	ctx := context.Background()
	data := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(data, "tickets.jsonl"), []byte(
		`{"Ticket_Number":"CS-1","Category":"Billing","Subject":"Late fee"}
{"Ticket_Number":"CS-2","Category":"Billing","Subject":"Late fee again"}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(data, "scripts_master.json"), []byte(
		`[{"Script_ID":"SCRIPT-1","Script_Title":"Recalculate fees"}]`), 0o644))

	log := logrus.New()
	log.SetOutput(io.Discard)
	db := filepath.Join(t.TempDir(), "corpus.db")

	opts := options{dataDir: data, dbPath: db}
	require.NoError(t, run(ctx, opts, log))
	// a second import upserts rather than duplicating
	require.NoError(t, run(ctx, opts, log))

	st, err := sqlite.OpenSQLite(ctx, db)
	require.NoError(t, err)
	defer st.Close()
	counts, err := st.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts["tickets"])
	assert.Equal(t, 1, counts["scripts"])

	// reset with an empty directory leaves nothing behind
	opts.dataDir = t.TempDir()
	opts.reset = true
	require.NoError(t, run(ctx, opts, log))
	counts, err = st.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts["tickets"])
}

func TestImportRequiresPaths(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	assert.ErrorContains(t, run(context.Background(), options{dbPath: "x.db"}, log), "--data")
	assert.ErrorContains(t, run(context.Background(), options{dataDir: "."}, log), "--db")
}
