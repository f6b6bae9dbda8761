// Package sqlite implements the store contracts on an embedded SQLite
// database. Embeddings are stored as JSON arrays and ranked in process.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	// Import the pure-Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/piskoqo/backend/internal/model/chat"
	"github.com/piskoqo/backend/internal/model/memory"
	"github.com/piskoqo/backend/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS chats (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  sender TEXT NOT NULL,
  message TEXT NOT NULL,
  timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chats_user_timestamp ON chats (user_id, timestamp DESC);

CREATE TABLE IF NOT EXISTS memories (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  content TEXT NOT NULL,
  embedding TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memories_user ON memories (user_id);

CREATE TABLE IF NOT EXISTS user_personality (
  user_id TEXT PRIMARY KEY,
  vector TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);
`

// DB is a store.Store backed by SQLite.
type DB struct {
	db *sql.DB
}

var _ store.Store = (*DB)(nil)

// Open opens (or creates) the database file at path.
func Open(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer; serialise through one connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &DB{db: db}, nil
}

// Migrate creates the tables when missing.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply sqlite schema: %w", err)
	}
	return nil
}

// Close releases the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// AppendTurns inserts all turns inside one transaction.
func (d *DB) AppendTurns(ctx context.Context, turns ...chat.Turn) (err error) {
	if len(turns) == 0 {
		return nil
	}
	for _, turn := range turns {
		if turn.UserID == "" {
			return store.ErrUserIDRequired
		}
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append turns: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const stmt = `INSERT INTO chats (id, user_id, sender, message, timestamp) VALUES (?, ?, ?, ?, ?)`
	for _, turn := range turns {
		if turn.ID == "" {
			turn.ID = uuid.NewString()
		}
		if turn.Timestamp.IsZero() {
			turn.Timestamp = time.Now().UTC()
		}
		if _, err = tx.ExecContext(ctx, stmt, turn.ID, turn.UserID, string(turn.Sender), turn.Message, turn.Timestamp.UnixNano()); err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit append turns: %w", err)
	}
	return nil
}

// RecentTurns returns up to limit turns, newest first.
func (d *DB) RecentTurns(ctx context.Context, userID string, limit int) ([]chat.Turn, error) {
	const query = `
		SELECT id, user_id, sender, message, timestamp
		FROM chats
		WHERE user_id = ?
		ORDER BY timestamp DESC, seq DESC
		LIMIT ?`

	rows, err := d.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent turns: %w", err)
	}
	defer rows.Close()

	turns := []chat.Turn{}
	for rows.Next() {
		var (
			turn   chat.Turn
			sender string
			ts     int64
		)
		if err := rows.Scan(&turn.ID, &turn.UserID, &sender, &turn.Message, &ts); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turn.Sender = chat.Sender(sender)
		turn.Timestamp = time.Unix(0, ts).UTC()
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}

// DeleteTurns removes the user's transcript.
func (d *DB) DeleteTurns(ctx context.Context, userID string) (int64, error) {
	result, err := d.db.ExecContext(ctx, `DELETE FROM chats WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete turns: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete turns rows affected: %w", err)
	}
	return n, nil
}

// AddFragment inserts a memory fragment.
func (d *DB) AddFragment(ctx context.Context, fragment memory.Fragment) (memory.Fragment, error) {
	if fragment.UserID == "" {
		return memory.Fragment{}, store.ErrUserIDRequired
	}
	if len(fragment.Embedding) == 0 {
		return memory.Fragment{}, store.ErrEmptyEmbedding
	}
	if fragment.ID == "" {
		fragment.ID = uuid.NewString()
	}
	if fragment.CreatedAt.IsZero() {
		fragment.CreatedAt = time.Now().UTC()
	}

	encoded, err := json.Marshal(fragment.Embedding)
	if err != nil {
		return memory.Fragment{}, fmt.Errorf("encode embedding: %w", err)
	}

	const stmt = `INSERT INTO memories (id, user_id, content, embedding, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := d.db.ExecContext(ctx, stmt, fragment.ID, fragment.UserID, fragment.Content, string(encoded), fragment.CreatedAt.UnixNano()); err != nil {
		return memory.Fragment{}, fmt.Errorf("insert fragment: %w", err)
	}
	return fragment, nil
}

// SearchFragments loads the user's fragments and ranks them in process.
func (d *DB) SearchFragments(ctx context.Context, q store.SearchQuery) ([]memory.Fragment, error) {
	if len(q.Vector) == 0 {
		return nil, store.ErrEmptyEmbedding
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id, content, embedding, created_at FROM memories WHERE user_id = ?`, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("query fragments: %w", err)
	}
	defer rows.Close()

	candidates := []memory.Fragment{}
	for rows.Next() {
		f := memory.Fragment{UserID: q.UserID}
		var (
			encoded string
			created int64
		)
		if err := rows.Scan(&f.ID, &f.Content, &encoded, &created); err != nil {
			return nil, fmt.Errorf("scan fragment: %w", err)
		}
		if err := json.Unmarshal([]byte(encoded), &f.Embedding); err != nil {
			return nil, fmt.Errorf("decode embedding for fragment %s: %w", f.ID, err)
		}
		f.CreatedAt = time.Unix(0, created).UTC()
		candidates = append(candidates, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fragments: %w", err)
	}

	return store.RankFragments(candidates, q), nil
}

// GetPersonality returns store.ErrNotFound when no row exists.
func (d *DB) GetPersonality(ctx context.Context, userID string) (*memory.Personality, error) {
	var (
		encoded string
		updated int64
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT vector, updated_at FROM user_personality WHERE user_id = ?`, userID,
	).Scan(&encoded, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get personality: %w", err)
	}

	p := &memory.Personality{UserID: userID, UpdatedAt: time.Unix(0, updated).UTC()}
	if err := json.Unmarshal([]byte(encoded), &p.Vector); err != nil {
		return nil, fmt.Errorf("decode personality vector: %w", err)
	}
	return p, nil
}

// UpsertPersonality inserts or replaces the user's vector.
func (d *DB) UpsertPersonality(ctx context.Context, p memory.Personality) error {
	if p.UserID == "" {
		return store.ErrUserIDRequired
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}

	encoded, err := json.Marshal(p.Vector)
	if err != nil {
		return fmt.Errorf("encode personality vector: %w", err)
	}

	const stmt = `
		INSERT INTO user_personality (user_id, vector, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id)
		DO UPDATE SET vector = excluded.vector, updated_at = excluded.updated_at`

	if _, err := d.db.ExecContext(ctx, stmt, p.UserID, string(encoded), p.UpdatedAt.UnixNano()); err != nil {
		return fmt.Errorf("upsert personality: %w", err)
	}
	return nil
}
