package memory

import "time"

// Fragment is a stored snippet of earlier conversation that can be recalled
// by semantic similarity.
type Fragment struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`
	Similarity float64   `json:"similarity,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Personality holds the latest expressive-style embedding of a user.
// There is at most one per user; writes replace the previous vector.
type Personality struct {
	UserID    string    `json:"userId"`
	Vector    []float32 `json:"vector"`
	UpdatedAt time.Time `json:"updatedAt"`
}
