package database

import (
	"context"
	"fmt"
	"strings"

	"txtforge/internal/models"

	"github.com/jackc/pgx/v5"
)

const jokeColumns = `id, section_id, text, is_published, views, likes, dislikes, is_generated,
	seo_title, seo_description, seo_keywords, seo_tags, created_at, updated_at`

type TopOrder string

const (
	TopByLikes    TopOrder = "likes"
	TopByViews    TopOrder = "views"
	TopByDislikes TopOrder = "dislikes"
	Latest        TopOrder = "latest"
)

var topOrderClause = map[TopOrder]string{
	TopByLikes:    "likes DESC, id DESC",
	TopByViews:    "views DESC, id DESC",
	TopByDislikes: "dislikes DESC, id DESC",
	Latest:        "created_at DESC, id DESC",
}

func (o TopOrder) Valid() bool {
	_, ok := topOrderClause[o]
	return ok
}

type JokeRepository struct {
	db *DB
}

func NewJokeRepository(db *DB) *JokeRepository {
	return &JokeRepository{db: db}
}

func scanJoke(row pgx.Row) (*models.Joke, error) {
	var j models.Joke
	err := row.Scan(
		&j.ID, &j.SectionID, &j.Text, &j.IsPublished, &j.Views, &j.Likes, &j.Dislikes, &j.IsGenerated,
		&j.SEO.Title, &j.SEO.Description, &j.SEO.Keywords, &j.SEO.Tags,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &j, nil
}

func collectJokes(rows pgx.Rows) ([]models.Joke, error) {
	defer rows.Close()

	jokes := make([]models.Joke, 0)
	for rows.Next() {
		j, err := scanJoke(rows)
		if err != nil {
			return nil, err
		}
		jokes = append(jokes, *j)
	}
	return jokes, rows.Err()
}

type JokeFilter struct {
	SectionID int64
	Published *bool
	Offset    int
	Limit     int
}

func (f JokeFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.SectionID != 0 {
		args = append(args, f.SectionID)
		conds = append(conds, fmt.Sprintf("section_id = $%d", len(args)))
	}
	if f.Published != nil {
		args = append(args, *f.Published)
		conds = append(conds, fmt.Sprintf("is_published = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns one page of jokes, newest first, and the total number of matches.
func (r *JokeRepository) List(ctx context.Context, f JokeFilter) ([]models.Joke, int, error) {
	where, args := f.where()
	q := r.db.conn(ctx)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM jokes`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count jokes: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM jokes%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		jokeColumns, where, len(args)-1, len(args))
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list jokes: %w", err)
	}
	jokes, err := collectJokes(rows)
	if err != nil {
		return nil, 0, err
	}
	return jokes, total, nil
}

func (r *JokeRepository) GetByID(ctx context.Context, id int64) (*models.Joke, error) {
	return scanJoke(r.db.conn(ctx).QueryRow(ctx, `SELECT `+jokeColumns+` FROM jokes WHERE id = $1`, id))
}

func (r *JokeRepository) Create(ctx context.Context, j *models.Joke) error {
	query := `
		INSERT INTO jokes (section_id, text, is_published, is_generated,
			seo_title, seo_description, seo_keywords, seo_tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, views, likes, dislikes, created_at, updated_at
	`
	err := r.db.conn(ctx).QueryRow(ctx, query,
		j.SectionID, j.Text, j.IsPublished, j.IsGenerated,
		j.SEO.Title, j.SEO.Description, j.SEO.Keywords, nonNilTags(j.SEO.Tags),
	).Scan(&j.ID, &j.Views, &j.Likes, &j.Dislikes, &j.CreatedAt, &j.UpdatedAt)
	return mapError(err)
}

type JokeUpdate struct {
	Text        *string
	IsPublished *bool
}

func (r *JokeRepository) Update(ctx context.Context, id int64, u JokeUpdate) (*models.Joke, error) {
	query := `
		UPDATE jokes SET
			text = COALESCE($2, text),
			is_published = COALESCE($3, is_published),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + jokeColumns
	return scanJoke(r.db.conn(ctx).QueryRow(ctx, query, id, u.Text, u.IsPublished))
}

// Delete removes a joke and returns it; its interactions go with it.
func (r *JokeRepository) Delete(ctx context.Context, id int64) (*models.Joke, error) {
	return scanJoke(r.db.conn(ctx).QueryRow(ctx, `DELETE FROM jokes WHERE id = $1 RETURNING `+jokeColumns, id))
}

type RandomFilter struct {
	SectionID int64
	Exclude   int64
	Limit     int
}

// Random samples published jokes, optionally within a section and without one id.
func (r *JokeRepository) Random(ctx context.Context, f RandomFilter) ([]models.Joke, error) {
	query := `
		SELECT ` + jokeColumns + ` FROM jokes
		WHERE is_published
			AND ($1::bigint = 0 OR section_id = $1)
			AND id <> $2::bigint
		ORDER BY RANDOM()
		LIMIT $3
	`
	rows, err := r.db.conn(ctx).Query(ctx, query, f.SectionID, f.Exclude, f.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to sample jokes: %w", err)
	}
	return collectJokes(rows)
}

func (r *JokeRepository) Top(ctx context.Context, order TopOrder, limit int) ([]models.Joke, error) {
	clause, ok := topOrderClause[order]
	if !ok {
		return nil, fmt.Errorf("unknown joke order %q", order)
	}
	query := `SELECT ` + jokeColumns + ` FROM jokes WHERE is_published ORDER BY ` + clause + ` LIMIT $1`
	rows, err := r.db.conn(ctx).Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s jokes: %w", order, err)
	}
	return collectJokes(rows)
}

// ListPublishedAfter pages through published jokes by id, for index rebuilds.
func (r *JokeRepository) ListPublishedAfter(ctx context.Context, afterID int64, limit int) ([]models.Joke, error) {
	query := `SELECT ` + jokeColumns + ` FROM jokes WHERE is_published AND id > $1 ORDER BY id LIMIT $2`
	rows, err := r.db.conn(ctx).Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to page jokes: %w", err)
	}
	return collectJokes(rows)
}

func (r *JokeRepository) GetByIDs(ctx context.Context, ids []int64) ([]models.Joke, error) {
	if len(ids) == 0 {
		return []models.Joke{}, nil
	}
	rows, err := r.db.conn(ctx).Query(ctx, `SELECT `+jokeColumns+` FROM jokes WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load jokes: %w", err)
	}
	return collectJokes(rows)
}

func (r *JokeRepository) CountPublished(ctx context.Context) (int, error) {
	var count int
	err := r.db.conn(ctx).QueryRow(ctx, "SELECT COUNT(*) FROM jokes WHERE is_published").Scan(&count)
	return count, err
}

func (r *JokeRepository) CountGenerated(ctx context.Context) (int, error) {
	var count int
	err := r.db.conn(ctx).QueryRow(ctx, "SELECT COUNT(*) FROM jokes WHERE is_generated").Scan(&count)
	return count, err
}
