package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/piskoqo/backend/internal/model/chat"
	memorymodel "github.com/piskoqo/backend/internal/model/memory"
	"github.com/piskoqo/backend/internal/store"
)

// Store keeps everything in process memory. Suitable for development and tests.
type Store struct {
	mu            sync.RWMutex
	turns         map[string][]chat.Turn
	fragments     map[string][]memorymodel.Fragment
	personalities map[string]memorymodel.Personality
}

var _ store.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		turns:         make(map[string][]chat.Turn),
		fragments:     make(map[string][]memorymodel.Fragment),
		personalities: make(map[string]memorymodel.Personality),
	}
}

// AppendTurns appends the turns under a single lock so readers never observe
// a partial write.
func (s *Store) AppendTurns(_ context.Context, turns ...chat.Turn) error {
	for _, turn := range turns {
		if turn.UserID == "" {
			return store.ErrUserIDRequired
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, turn := range turns {
		if turn.ID == "" {
			turn.ID = uuid.NewString()
		}
		if turn.Timestamp.IsZero() {
			turn.Timestamp = time.Now().UTC()
		}
		s.turns[turn.UserID] = append(s.turns[turn.UserID], turn)
	}
	return nil
}

// RecentTurns returns up to limit turns, newest first.
func (s *Store) RecentTurns(_ context.Context, userID string, limit int) ([]chat.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.turns[userID]
	n := len(history)
	if limit > 0 && n > limit {
		n = limit
	}

	recent := make([]chat.Turn, 0, n)
	for i := len(history) - 1; i >= 0 && len(recent) < n; i-- {
		recent = append(recent, history[i])
	}
	return recent, nil
}

// DeleteTurns drops the user's transcript.
func (s *Store) DeleteTurns(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := int64(len(s.turns[userID]))
	delete(s.turns, userID)
	return count, nil
}

// AddFragment stores a fragment for later recall.
func (s *Store) AddFragment(_ context.Context, fragment memorymodel.Fragment) (memorymodel.Fragment, error) {
	if fragment.UserID == "" {
		return memorymodel.Fragment{}, store.ErrUserIDRequired
	}
	if len(fragment.Embedding) == 0 {
		return memorymodel.Fragment{}, store.ErrEmptyEmbedding
	}
	if fragment.ID == "" {
		fragment.ID = uuid.NewString()
	}
	if fragment.CreatedAt.IsZero() {
		fragment.CreatedAt = time.Now().UTC()
	}
	fragment.Embedding = append([]float32(nil), fragment.Embedding...)

	s.mu.Lock()
	s.fragments[fragment.UserID] = append(s.fragments[fragment.UserID], fragment)
	s.mu.Unlock()

	return fragment, nil
}

// SearchFragments ranks the user's fragments by cosine similarity.
func (s *Store) SearchFragments(_ context.Context, query store.SearchQuery) ([]memorymodel.Fragment, error) {
	s.mu.RLock()
	candidates := append([]memorymodel.Fragment(nil), s.fragments[query.UserID]...)
	s.mu.RUnlock()

	return store.RankFragments(candidates, query), nil
}

// GetPersonality returns store.ErrNotFound when the user has no vector yet.
func (s *Store) GetPersonality(_ context.Context, userID string) (*memorymodel.Personality, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.personalities[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.Vector = append([]float32(nil), p.Vector...)
	return &p, nil
}

// UpsertPersonality replaces the user's vector.
func (s *Store) UpsertPersonality(_ context.Context, personality memorymodel.Personality) error {
	if personality.UserID == "" {
		return store.ErrUserIDRequired
	}
	if personality.UpdatedAt.IsZero() {
		personality.UpdatedAt = time.Now().UTC()
	}
	personality.Vector = append([]float32(nil), personality.Vector...)

	s.mu.Lock()
	s.personalities[personality.UserID] = personality
	s.mu.Unlock()
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
