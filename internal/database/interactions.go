package database

import (
	"context"
	"errors"
	"fmt"

	"txtforge/internal/models"

	"github.com/jackc/pgx/v5"
)

// InteractionRepository owns the per-client ledger of views and votes and the
// joke counters derived from it.
type InteractionRepository struct {
	db *DB
}

func NewInteractionRepository(db *DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

func (r *InteractionRepository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithinTx(ctx, fn)
}

// LockJoke loads a joke and holds its row lock until the surrounding transaction ends.
func (r *InteractionRepository) LockJoke(ctx context.Context, jokeID int64) (*models.Joke, error) {
	return scanJoke(r.db.conn(ctx).QueryRow(ctx, `SELECT `+jokeColumns+` FROM jokes WHERE id = $1 FOR UPDATE`, jokeID))
}

// Insert records an interaction. An existing (joke, client, type) row yields
// ErrDuplicate without aborting the transaction.
func (r *InteractionRepository) Insert(ctx context.Context, jokeID int64, clientID string, t models.InteractionType) error {
	query := `
		INSERT INTO joke_interactions (joke_id, client_id, type)
		VALUES ($1, $2, $3)
		ON CONFLICT (joke_id, client_id, type) DO NOTHING
		RETURNING id
	`
	var id int64
	err := r.db.conn(ctx).QueryRow(ctx, query, jokeID, clientID, string(t)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicate
	}
	return mapError(err)
}

// FindVote returns the client's like or dislike on a joke, or "" when none.
func (r *InteractionRepository) FindVote(ctx context.Context, jokeID int64, clientID string) (models.InteractionType, error) {
	query := `
		SELECT type FROM joke_interactions
		WHERE joke_id = $1 AND client_id = $2 AND type IN ('like', 'dislike')
		ORDER BY created_at DESC
		LIMIT 1
	`
	var t string
	err := r.db.conn(ctx).QueryRow(ctx, query, jokeID, clientID).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to find vote: %w", err)
	}
	return models.InteractionType(t), nil
}

func (r *InteractionRepository) ChangeType(ctx context.Context, jokeID int64, clientID string, from, to models.InteractionType) error {
	query := `UPDATE joke_interactions SET type = $4 WHERE joke_id = $1 AND client_id = $2 AND type = $3`
	tag, err := r.db.conn(ctx).Exec(ctx, query, jokeID, clientID, string(from), string(to))
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *InteractionRepository) Delete(ctx context.Context, jokeID int64, clientID string, t models.InteractionType) error {
	query := `DELETE FROM joke_interactions WHERE joke_id = $1 AND client_id = $2 AND type = $3`
	tag, err := r.db.conn(ctx).Exec(ctx, query, jokeID, clientID, string(t))
	if err != nil {
		return fmt.Errorf("failed to delete interaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *InteractionRepository) IncrementViews(ctx context.Context, jokeID int64) error {
	tag, err := r.db.conn(ctx).Exec(ctx, `UPDATE jokes SET views = views + 1 WHERE id = $1`, jokeID)
	if err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustVotes applies counter deltas, flooring each counter at zero.
func (r *InteractionRepository) AdjustVotes(ctx context.Context, jokeID int64, likes, dislikes int) (*models.Joke, error) {
	query := `
		UPDATE jokes SET
			likes = GREATEST(likes + $2, 0),
			dislikes = GREATEST(dislikes + $3, 0),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + jokeColumns
	return scanJoke(r.db.conn(ctx).QueryRow(ctx, query, jokeID, likes, dislikes))
}

// UserVotes maps joke ids to the client's current vote on each of them.
func (r *InteractionRepository) UserVotes(ctx context.Context, clientID string, jokeIDs []int64) (map[int64]models.InteractionType, error) {
	votes := make(map[int64]models.InteractionType, len(jokeIDs))
	if clientID == "" || len(jokeIDs) == 0 {
		return votes, nil
	}

	query := `
		SELECT joke_id, type FROM joke_interactions
		WHERE client_id = $1 AND joke_id = ANY($2) AND type IN ('like', 'dislike')
	`
	rows, err := r.db.conn(ctx).Query(ctx, query, clientID, jokeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load user votes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			jokeID int64
			t      string
		)
		if err := rows.Scan(&jokeID, &t); err != nil {
			return nil, err
		}
		votes[jokeID] = models.InteractionType(t)
	}
	return votes, rows.Err()
}

// CountByType counts ledger rows of one type for a joke.
func (r *InteractionRepository) CountByType(ctx context.Context, jokeID int64, t models.InteractionType) (int, error) {
	var count int
	err := r.db.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM joke_interactions WHERE joke_id = $1 AND type = $2`, jokeID, string(t),
	).Scan(&count)
	return count, err
}
