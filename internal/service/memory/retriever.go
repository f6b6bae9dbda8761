// Package memory gathers the context a reply is conditioned on: recent turns,
// semantically similar fragments and the stored personality vector.
//
// Every read here is best effort. A failing store degrades to an empty result
// so the caller can still answer without memory.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/piskoqo/backend/internal/config"
	"github.com/piskoqo/backend/internal/model/chat"
	memorymodel "github.com/piskoqo/backend/internal/model/memory"
	"github.com/piskoqo/backend/internal/observability"
	"github.com/piskoqo/backend/internal/store"
)

// Recall is the retrieved context of one reply.
type Recall struct {
	// History is chronological, oldest first.
	History   []chat.Turn
	Fragments []memorymodel.Fragment
}

// Text renders history as "sender: message" lines followed by fragment
// contents, newline separated.
func (r Recall) Text() string {
	lines := make([]string, 0, len(r.History)+len(r.Fragments))
	for _, turn := range r.History {
		lines = append(lines, fmt.Sprintf("%s: %s", turn.Sender, turn.Message))
	}
	for _, fragment := range r.Fragments {
		lines = append(lines, fragment.Content)
	}
	return strings.Join(lines, "\n")
}

// Retriever reads conversation memory for a user.
type Retriever struct {
	turns         store.TurnStore
	index         store.MemoryIndex
	personalities store.PersonalityStore
	limits        config.MemoryLimits
	metrics       *observability.Metrics
}

// NewRetriever wires the retriever to its stores. Any store may be shared by
// the same driver instance.
func NewRetriever(turns store.TurnStore, index store.MemoryIndex, personalities store.PersonalityStore, limits config.MemoryLimits, metrics *observability.Metrics) *Retriever {
	return &Retriever{
		turns:         turns,
		index:         index,
		personalities: personalities,
		limits:        limits,
		metrics:       metrics,
	}
}

// Recall fetches history and similar fragments concurrently. A nil vector
// skips the semantic search.
func (r *Retriever) Recall(ctx context.Context, userID string, vector []float32) Recall {
	var recall Recall

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		history, err := r.History(gctx, userID)
		if err != nil {
			log.Printf("[memory] history read failed user=%s: %v", userID, err)
			r.metrics.DegradedRead("history")
			return nil
		}
		recall.History = history
		return nil
	})
	g.Go(func() error {
		if len(vector) == 0 {
			return nil
		}
		fragments, err := r.index.SearchFragments(gctx, store.SearchQuery{
			UserID:    userID,
			Vector:    vector,
			Threshold: r.limits.SimilarityThreshold,
			Limit:     r.limits.SemanticLimit,
		})
		if err != nil {
			log.Printf("[memory] semantic search failed user=%s: %v", userID, err)
			r.metrics.DegradedRead("semantic")
			return nil
		}
		recall.Fragments = fragments
		return nil
	})
	_ = g.Wait()

	return recall
}

// History returns up to HistoryLimit turns of the user, oldest first.
func (r *Retriever) History(ctx context.Context, userID string) ([]chat.Turn, error) {
	if r.limits.HistoryLimit <= 0 {
		return nil, nil
	}
	turns, err := r.turns.RecentTurns(ctx, userID, r.limits.HistoryLimit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// LoadPersonality returns nil when the user has no vector or the read fails.
func (r *Retriever) LoadPersonality(ctx context.Context, userID string) *memorymodel.Personality {
	personality, err := r.personalities.GetPersonality(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[memory] personality read failed user=%s: %v", userID, err)
			r.metrics.DegradedRead("personality")
		}
		return nil
	}
	return personality
}

// UpdatePersonality replaces the stored vector with the latest embedding.
func (r *Retriever) UpdatePersonality(ctx context.Context, userID string, vector []float32) error {
	if len(vector) == 0 {
		return store.ErrEmptyEmbedding
	}
	return r.personalities.UpsertPersonality(ctx, memorymodel.Personality{
		UserID:    userID,
		Vector:    vector,
		UpdatedAt: time.Now().UTC(),
	})
}
