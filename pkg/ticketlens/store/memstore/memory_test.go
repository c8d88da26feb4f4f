package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/ticketlens/pkg/ticketlens/internalerr"
	"github.com/cognicore/ticketlens/pkg/ticketlens/model"
	"github.com/cognicore/ticketlens/pkg/ticketlens/store"
)

func TestLoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New(&store.Corpus{Tickets: []model.Ticket{{Number: "CS-1"}}})

	c, err := s.Load(ctx)
	require.NoError(t, err)
	c.Tickets[0].Number = "changed"

	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "CS-1", again.Tickets[0].Number)
}

func TestSave(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	empty, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Tickets)

	require.NoError(t, s.Save(ctx, &store.Corpus{Scripts: []model.Script{{ID: "SCRIPT-1"}}}))
	c, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, c.Scripts, 1)

	err = s.Save(ctx, &store.Corpus{Tickets: []model.Ticket{{Subject: "no number"}}})
	assert.ErrorIs(t, err, internalerr.ErrInvalidRecord)
}

func TestUpdate(t *testing.T) {
	s := New(nil)
	s.Update(func(c *store.Corpus) {
		c.Tickets = append(c.Tickets, model.Ticket{Number: "CS-9"})
	})

	c, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, c.Counts()["tickets"])
}

func TestLoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(nil).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
