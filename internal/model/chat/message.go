package chat

import "time"

// Sender identifies who produced a turn.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Turn is one stored message of a conversation. Turns are append-only.
type Turn struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Sender    Sender    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
