package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piskoqo/backend/internal/model/chat"
	memorymodel "github.com/piskoqo/backend/internal/model/memory"
	"github.com/piskoqo/backend/internal/store"
	"github.com/piskoqo/backend/internal/store/memory"
)

func TestRecentTurnsNewestFirstWithLimit(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	for _, msg := range []string{"satu", "dua", "tiga"} {
		require.NoError(t, s.AppendTurns(ctx, chat.Turn{UserID: "u1", Sender: chat.SenderUser, Message: msg}))
	}

	got, err := s.RecentTurns(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "tiga", got[0].Message)
	assert.Equal(t, "dua", got[1].Message)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestAppendTurnsRejectsWholeBatchWithoutUser(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	err := s.AppendTurns(ctx,
		chat.Turn{UserID: "u1", Sender: chat.SenderUser, Message: "halo"},
		chat.Turn{Sender: chat.SenderBot, Message: "hai"},
	)
	require.ErrorIs(t, err, store.ErrUserIDRequired)

	got, err := s.RecentTurns(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeleteTurnsReportsCount(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendTurns(ctx, chat.Turn{UserID: "u1", Sender: chat.SenderUser, Message: "x"}))
	}
	require.NoError(t, s.AppendTurns(ctx, chat.Turn{UserID: "u2", Sender: chat.SenderUser, Message: "y"}))

	n, err := s.DeleteTurns(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	left, err := s.RecentTurns(ctx, "u1", 20)
	require.NoError(t, err)
	assert.Empty(t, left)

	other, err := s.RecentTurns(ctx, "u2", 20)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestSearchFragmentsScopedToUser(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	_, err := s.AddFragment(ctx, memorymodel.Fragment{UserID: "u1", Content: "kucingku hilang", Embedding: []float32{1, 0}})
	require.NoError(t, err)
	_, err = s.AddFragment(ctx, memorymodel.Fragment{UserID: "u2", Content: "punya orang lain", Embedding: []float32{1, 0}})
	require.NoError(t, err)

	got, err := s.SearchFragments(ctx, store.SearchQuery{UserID: "u1", Vector: []float32{1, 0}, Threshold: 0.78, Limit: 6})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "kucingku hilang", got[0].Content)
}

func TestAddFragmentRequiresEmbedding(t *testing.T) {
	_, err := memory.New().AddFragment(context.Background(), memorymodel.Fragment{UserID: "u1", Content: "x"})
	assert.ErrorIs(t, err, store.ErrEmptyEmbedding)
}

func TestPersonalityUpsertOverwrites(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	_, err := s.GetPersonality(ctx, "u1")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.UpsertPersonality(ctx, memorymodel.Personality{UserID: "u1", Vector: []float32{1, 2}}))
	require.NoError(t, s.UpsertPersonality(ctx, memorymodel.Personality{UserID: "u1", Vector: []float32{3, 4}}))

	p, err := s.GetPersonality(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, p.Vector)
}
