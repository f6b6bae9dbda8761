// Package chat runs the reply pipeline: normalize, score, pick a mode,
// recall memory, generate, filter and persist.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/piskoqo/backend/internal/analysis/emotion"
	"github.com/piskoqo/backend/internal/analysis/intent"
	"github.com/piskoqo/backend/internal/analysis/mode"
	"github.com/piskoqo/backend/internal/analysis/text"
	"github.com/piskoqo/backend/internal/config"
	"github.com/piskoqo/backend/internal/model/chat"
	"github.com/piskoqo/backend/internal/observability"
	"github.com/piskoqo/backend/internal/service/ai"
	"github.com/piskoqo/backend/internal/service/memory"
	"github.com/piskoqo/backend/internal/service/safety"
	"github.com/piskoqo/backend/internal/store"
)

const AnonymousUser = "anonymous"

var ErrUserIDRequired = errors.New("user id is required")

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces the model reply for a system instruction and a user message.
type Generator interface {
	Generate(ctx context.Context, system, userMessage string, temperature float32) (string, error)
}

// Meta describes how a reply was produced.
type Meta struct {
	App     string  `json:"app"`
	Mode    string  `json:"mode"`
	Emotion float64 `json:"emotion"`
}

// Reply is the pipeline result returned to clients.
type Reply struct {
	Reply string `json:"reply"`
	Meta  Meta   `json:"meta"`
}

// Options configures a Service.
type Options struct {
	AppName    string
	Heuristics config.Heuristics
	Turns      store.TurnStore
	Memory     *memory.Retriever
	Embedder   Embedder
	Generator  Generator
	Prompts    *ai.PromptManager
	Metrics    *observability.Metrics
}

// Service answers chat messages.
type Service struct {
	appName   string
	h         config.Heuristics
	scorer    *emotion.Scorer
	gate      *safety.Gate
	turns     store.TurnStore
	memory    *memory.Retriever
	embedder  Embedder
	generator Generator
	prompts   *ai.PromptManager
	metrics   *observability.Metrics
}

// NewService validates the heuristics and compiles the scorers.
func NewService(opts Options) (*Service, error) {
	if opts.Turns == nil || opts.Memory == nil || opts.Generator == nil {
		return nil, errors.New("chat service requires turns store, memory retriever and generator")
	}
	if err := opts.Heuristics.Validate(); err != nil {
		return nil, fmt.Errorf("invalid heuristics: %w", err)
	}

	scorer, err := emotion.NewScorer(opts.Heuristics.EmotionRules)
	if err != nil {
		return nil, err
	}
	gate, err := safety.NewGate(opts.Heuristics.Safety)
	if err != nil {
		return nil, err
	}

	prompts := opts.Prompts
	if prompts == nil {
		prompts = ai.NewPromptManager()
	}
	appName := opts.AppName
	if appName == "" {
		appName = "piskoqo"
	}

	return &Service{
		appName:   appName,
		h:         opts.Heuristics,
		scorer:    scorer,
		gate:      gate,
		turns:     opts.Turns,
		memory:    opts.Memory,
		embedder:  opts.Embedder,
		generator: opts.Generator,
		prompts:   prompts,
		metrics:   opts.Metrics,
	}, nil
}

// Reply runs the full pipeline for one message. Any returned error means no
// reply was produced; callers answer with the fallback message.
func (s *Service) Reply(ctx context.Context, userID, message string) (Reply, error) {
	start := time.Now()
	if userID == "" {
		userID = AnonymousUser
	}

	raw := text.Normalize(message, s.h.MaxInputLength)
	score := s.scorer.Analyze(raw)
	profile := intent.Analyze(raw, s.h.Intent)
	selected := mode.Select(score, profile, s.h.Mode)

	vector := s.embed(ctx, userID, raw)
	recall := s.memory.Recall(ctx, userID, vector)

	var personalityVector []float32
	if p := s.memory.LoadPersonality(ctx, userID); p != nil {
		personalityVector = p.Vector
	}

	system := s.prompts.BuildSystemPrompt(recall.Text(), personalityVector, selected)
	temperature := s.h.Sampling.Temperature(score.Arousal)

	response, err := s.generator.Generate(ctx, system, raw, temperature)
	if err != nil {
		s.metrics.ObserveReply(string(selected), err, time.Since(start))
		return Reply{}, fmt.Errorf("generate reply: %w", err)
	}

	if safe, replaced := s.gate.Check(response); replaced {
		log.Printf("[chat] safety gate replaced reply user=%s mode=%s", userID, selected)
		s.metrics.SafetyReplaced()
		response = safe
	}

	if err := s.persist(ctx, userID, raw, response); err != nil {
		s.metrics.ObserveReply(string(selected), err, time.Since(start))
		return Reply{}, err
	}

	if len(vector) > 0 {
		if err := s.memory.UpdatePersonality(ctx, userID, vector); err != nil {
			log.Printf("[chat] personality update failed user=%s: %v", userID, err)
		}
	}

	s.metrics.ObserveReply(string(selected), nil, time.Since(start))
	log.Printf("[chat] reply user=%s mode=%s severity=%.2f history=%d fragments=%d", userID, selected, score.Severity, len(recall.History), len(recall.Fragments))

	return Reply{
		Reply: response,
		Meta: Meta{
			App:     s.appName,
			Mode:    string(selected),
			Emotion: score.Severity,
		},
	}, nil
}

// History returns the recent conversation of the user, oldest first.
func (s *Service) History(ctx context.Context, userID string) ([]chat.Turn, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	turns, err := s.memory.History(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if turns == nil {
		turns = []chat.Turn{}
	}
	return turns, nil
}

// DeleteHistory removes every stored turn of the user.
func (s *Service) DeleteHistory(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, ErrUserIDRequired
	}
	deleted, err := s.turns.DeleteTurns(ctx, userID)
	if err != nil {
		return 0, err
	}
	log.Printf("[chat] deleted history user=%s rows=%d", userID, deleted)
	return deleted, nil
}

// embed returns nil when no embedder is configured or the call fails; the
// reply then goes ahead on history alone.
func (s *Service) embed(ctx context.Context, userID, raw string) []float32 {
	if s.embedder == nil {
		return nil
	}
	vector, err := s.embedder.Embed(ctx, raw)
	if err != nil {
		log.Printf("[chat] embedding failed user=%s: %v", userID, err)
		s.metrics.DegradedRead("embedding")
		return nil
	}
	return vector
}

func (s *Service) persist(ctx context.Context, userID, userMessage, botMessage string) error {
	userTurn := chat.Turn{
		ID:        uuid.NewString(),
		UserID:    userID,
		Sender:    chat.SenderUser,
		Message:   userMessage,
		Timestamp: time.Now().UTC(),
	}
	botTurn := chat.Turn{
		ID:        uuid.NewString(),
		UserID:    userID,
		Sender:    chat.SenderBot,
		Message:   botMessage,
		Timestamp: time.Now().UTC(),
	}
	if err := s.turns.AppendTurns(ctx, userTurn, botTurn); err != nil {
		return fmt.Errorf("persist turns: %w", err)
	}
	return nil
}
