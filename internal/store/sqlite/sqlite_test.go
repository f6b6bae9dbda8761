package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piskoqo/backend/internal/model/chat"
	"github.com/piskoqo/backend/internal/model/memory"
	"github.com/piskoqo/backend/internal/store"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	d, err := Open(ctx, filepath.Join(t.TempDir(), "piskoqo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	require.NoError(t, d.Migrate(ctx))
	return d
}

func TestTurnsRoundTrip(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	// Same timestamp for both turns: insertion order breaks the tie.
	require.NoError(t, d.AppendTurns(ctx,
		chat.Turn{UserID: "u1", Sender: chat.SenderUser, Message: "halo", Timestamp: ts},
		chat.Turn{UserID: "u1", Sender: chat.SenderBot, Message: "hai", Timestamp: ts},
	))

	turns, err := d.RecentTurns(ctx, "u1", 20)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, chat.SenderBot, turns[0].Sender)
	assert.Equal(t, chat.SenderUser, turns[1].Sender)
	assert.True(t, turns[1].Timestamp.Equal(ts))
}

func TestDeleteTurnsThenHistoryIsEmpty(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, d.AppendTurns(ctx, chat.Turn{UserID: "u1", Sender: chat.SenderUser, Message: "x"}))
	}

	n, err := d.DeleteTurns(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	turns, err := d.RecentTurns(ctx, "u1", 20)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestAppendTurnsIsAtomic(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	dup := "same-id"
	err := d.AppendTurns(ctx,
		chat.Turn{ID: dup, UserID: "u1", Sender: chat.SenderUser, Message: "halo"},
		chat.Turn{ID: dup, UserID: "u1", Sender: chat.SenderBot, Message: "hai"},
	)
	require.Error(t, err)

	turns, err := d.RecentTurns(ctx, "u1", 20)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestSearchFragments(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	_, err := d.AddFragment(ctx, memory.Fragment{UserID: "u1", Content: "mirip", Embedding: []float32{1, 0.1}})
	require.NoError(t, err)
	_, err = d.AddFragment(ctx, memory.Fragment{UserID: "u1", Content: "jauh", Embedding: []float32{0, 1}})
	require.NoError(t, err)

	got, err := d.SearchFragments(ctx, store.SearchQuery{UserID: "u1", Vector: []float32{1, 0}, Threshold: 0.78, Limit: 6})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "mirip", got[0].Content)
}

func TestPersonalityUpsert(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	_, err := d.GetPersonality(ctx, "u1")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, d.UpsertPersonality(ctx, memory.Personality{UserID: "u1", Vector: []float32{1, 2}}))
	require.NoError(t, d.UpsertPersonality(ctx, memory.Personality{UserID: "u1", Vector: []float32{0.5, 0.25}}))

	p, err := d.GetPersonality(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, p.Vector)
}
