// Package postgres implements the store contracts on PostgreSQL with the
// pgvector extension. Similarity search goes through the match_memory SQL
// function defined in schema.sql.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/piskoqo/backend/internal/model/chat"
	"github.com/piskoqo/backend/internal/model/memory"
	"github.com/piskoqo/backend/internal/store"
)

//go:embed schema.sql
var schema string

// DB is a store.Store backed by PostgreSQL.
type DB struct {
	db *sql.DB
}

var _ store.Store = (*DB)(nil)

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*DB, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		log.Printf("[store] failed to ping postgres: %v", err)
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &DB{db: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *DB {
	return &DB{db: db}
}

// Migrate applies schema.sql. Statements are idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the pool.
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

	const stmt = `INSERT INTO chats (id, user_id, sender, message, timestamp) VALUES ($1, $2, $3, $4, $5)`
	for _, turn := range turns {
		if turn.ID == "" {
			turn.ID = uuid.NewString()
		}
		if turn.Timestamp.IsZero() {
			turn.Timestamp = time.Now().UTC()
		}
		if _, err = tx.ExecContext(ctx, stmt, turn.ID, turn.UserID, string(turn.Sender), turn.Message, turn.Timestamp); err != nil {
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
		WHERE user_id = $1
		ORDER BY timestamp DESC, seq DESC
		LIMIT $2`

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
		)
		if err := rows.Scan(&turn.ID, &turn.UserID, &sender, &turn.Message, &turn.Timestamp); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turn.Sender = chat.Sender(sender)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}

// DeleteTurns removes the user's transcript.
func (d *DB) DeleteTurns(ctx context.Context, userID string) (int64, error) {
	result, err := d.db.ExecContext(ctx, `DELETE FROM chats WHERE user_id = $1`, userID)
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

	const stmt = `INSERT INTO memories (id, user_id, content, embedding, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := d.db.ExecContext(ctx, stmt,
		fragment.ID,
		fragment.UserID,
		fragment.Content,
		pgvector.NewVector(fragment.Embedding),
		fragment.CreatedAt,
	)
	if err != nil {
		return memory.Fragment{}, fmt.Errorf("insert fragment: %w", err)
	}
	return fragment, nil
}

// SearchFragments calls match_memory with the query vector.
func (d *DB) SearchFragments(ctx context.Context, q store.SearchQuery) ([]memory.Fragment, error) {
	if len(q.Vector) == 0 {
		return nil, store.ErrEmptyEmbedding
	}

	const query = `SELECT id, content, similarity, created_at FROM match_memory($1, $2, $3, $4)`
	rows, err := d.db.QueryContext(ctx, query, pgvector.NewVector(q.Vector), q.Threshold, q.Limit, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("match memory: %w", err)
	}
	defer rows.Close()

	fragments := []memory.Fragment{}
	for rows.Next() {
		f := memory.Fragment{UserID: q.UserID}
		if err := rows.Scan(&f.ID, &f.Content, &f.Similarity, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fragment: %w", err)
		}
		fragments = append(fragments, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fragments: %w", err)
	}
	return fragments, nil
}

// GetPersonality returns store.ErrNotFound when no row exists.
func (d *DB) GetPersonality(ctx context.Context, userID string) (*memory.Personality, error) {
	var vector pgvector.Vector
	p := memory.Personality{UserID: userID}
	err := d.db.QueryRowContext(ctx,
		`SELECT vector, updated_at FROM user_personality WHERE user_id = $1`, userID,
	).Scan(&vector, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get personality: %w", err)
	}
	p.Vector = vector.Slice()
	return &p, nil
}

// UpsertPersonality inserts or replaces the user's vector.
func (d *DB) UpsertPersonality(ctx context.Context, p memory.Personality) error {
	if p.UserID == "" {
		return store.ErrUserIDRequired
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}

	const stmt = `
		INSERT INTO user_personality (user_id, vector, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id)
		DO UPDATE SET
			vector = EXCLUDED.vector,
			updated_at = EXCLUDED.updated_at`

	if _, err := d.db.ExecContext(ctx, stmt, p.UserID, pgvector.NewVector(p.Vector), p.UpdatedAt); err != nil {
		return fmt.Errorf("upsert personality: %w", err)
	}
	return nil
}
