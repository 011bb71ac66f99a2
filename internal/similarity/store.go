package similarity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/scribe/pkg/repository"
)

// Store persists post embeddings.
type Store interface {
	// Save records vec for postID, replacing any earlier vector.
	Save(ctx context.Context, postID uuid.UUID, vec []float32) error

	// Nearest compares vec against the most recent embeddings of posts that
	// are not marked for deletion.
	Nearest(ctx context.Context, vec []float32) (Match, error)
}

type store struct {
	db     *sql.DB
	window int
}

// NewStore returns the postgres-backed Store. A non-positive window uses
// DefaultWindow.
func NewStore(db *sql.DB, window int) Store {
	if window <= 0 {
		window = DefaultWindow
	}
	return &store{db: db, window: window}
}

const saveEmbedding = `
	INSERT INTO post_embeddings(post_id, embedding)
	VALUES ($1, $2)
	ON CONFLICT (post_id) DO UPDATE
	SET embedding = EXCLUDED.embedding, created_at = NOW()`

const recentEmbeddings = `
	SELECT e.post_id, e.embedding
	FROM post_embeddings e
	JOIN posts p ON p.id = e.post_id
	WHERE p.status <> 'to_be_deleted'
	ORDER BY e.created_at DESC
	LIMIT $1`

func (s *store) Save(ctx context.Context, postID uuid.UUID, vec []float32) error {
	raw, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, saveEmbedding, postID, raw); err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	return nil
}

func (s *store) Nearest(ctx context.Context, vec []float32) (Match, error) {
	entries, err := repository.QueryMany(ctx, s.db, recentEmbeddings, []any{s.window}, scanEntry)
	if err != nil {
		return Match{}, fmt.Errorf("query embeddings: %w", err)
	}
	return Best(vec, entries), nil
}

func scanEntry(s repository.Scanner) (Entry, error) {
	var (
		e   Entry
		raw []byte
	)
	if err := s.Scan(&e.PostID, &raw); err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal(raw, &e.Vector); err != nil {
		return Entry{}, fmt.Errorf("decode embedding for %s: %w", e.PostID, err)
	}
	return e, nil
}
