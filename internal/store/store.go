// Package store defines the persistence contracts used by the chat pipeline:
// an append-only turn log, a similarity index of memory fragments and a
// single-row-per-user personality vector.
package store

import (
	"context"
	"errors"

	"github.com/piskoqo/backend/internal/model/chat"
	"github.com/piskoqo/backend/internal/model/memory"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrUserIDRequired = errors.New("user id is required")
	ErrEmptyEmbedding = errors.New("embedding is empty")
	ErrUnknownDriver  = errors.New("unknown store driver")
)

// TurnStore persists conversation turns.
type TurnStore interface {
	// AppendTurns writes all turns or none of them.
	AppendTurns(ctx context.Context, turns ...chat.Turn) error
	// RecentTurns returns at most limit turns for the user, newest first.
	RecentTurns(ctx context.Context, userID string, limit int) ([]chat.Turn, error)
	// DeleteTurns removes every turn of the user and reports how many were removed.
	DeleteTurns(ctx context.Context, userID string) (int64, error)
}

// SearchQuery scopes a similarity lookup.
type SearchQuery struct {
	UserID    string
	Vector    []float32
	Threshold float64
	Limit     int
}

// MemoryIndex stores fragments and ranks them by cosine similarity.
type MemoryIndex interface {
	AddFragment(ctx context.Context, fragment memory.Fragment) (memory.Fragment, error)
	// SearchFragments returns fragments with similarity strictly above the
	// threshold, most similar first.
	SearchFragments(ctx context.Context, query SearchQuery) ([]memory.Fragment, error)
}

// PersonalityStore reads and upserts personality vectors. Concurrent upserts
// for the same user are last-write-wins.
type PersonalityStore interface {
	GetPersonality(ctx context.Context, userID string) (*memory.Personality, error)
	UpsertPersonality(ctx context.Context, personality memory.Personality) error
}

// Store bundles every contract a driver provides.
type Store interface {
	TurnStore
	MemoryIndex
	PersonalityStore
	Close() error
}
