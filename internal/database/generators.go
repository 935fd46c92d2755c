package database

import (
	"context"
	"fmt"
	"time"

	"txtforge/internal/models"

	"github.com/jackc/pgx/v5"
)

const generatorColumns = `id, section_id, model_id, prompt, interval_minutes, is_active, last_run, created_at, updated_at`

type GeneratorRepository struct {
	db *DB
}

func NewGeneratorRepository(db *DB) *GeneratorRepository {
	return &GeneratorRepository{db: db}
}

func scanGenerator(row pgx.Row) (*models.ContentGenerator, error) {
	var g models.ContentGenerator
	err := row.Scan(&g.ID, &g.SectionID, &g.ModelID, &g.Prompt, &g.IntervalMinutes,
		&g.IsActive, &g.LastRun, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &g, nil
}

func (r *GeneratorRepository) query(ctx context.Context, sql string, args ...any) ([]models.ContentGenerator, error) {
	rows, err := r.db.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query generators: %w", err)
	}
	defer rows.Close()

	generators := make([]models.ContentGenerator, 0)
	for rows.Next() {
		g, err := scanGenerator(rows)
		if err != nil {
			return nil, err
		}
		generators = append(generators, *g)
	}
	return generators, rows.Err()
}

func (r *GeneratorRepository) List(ctx context.Context) ([]models.ContentGenerator, error) {
	return r.query(ctx, `SELECT `+generatorColumns+` FROM content_generators ORDER BY created_at DESC, id DESC`)
}

func (r *GeneratorRepository) ListActive(ctx context.Context) ([]models.ContentGenerator, error) {
	return r.query(ctx, `SELECT `+generatorColumns+` FROM content_generators WHERE is_active ORDER BY id`)
}

func (r *GeneratorRepository) GetByID(ctx context.Context, id int64) (*models.ContentGenerator, error) {
	return scanGenerator(r.db.conn(ctx).QueryRow(ctx, `SELECT `+generatorColumns+` FROM content_generators WHERE id = $1`, id))
}

func (r *GeneratorRepository) Create(ctx context.Context, g *models.ContentGenerator) error {
	query := `
		INSERT INTO content_generators (section_id, model_id, prompt, interval_minutes, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, last_run, created_at, updated_at
	`
	err := r.db.conn(ctx).QueryRow(ctx, query,
		g.SectionID, g.ModelID, g.Prompt, g.IntervalMinutes, g.IsActive,
	).Scan(&g.ID, &g.LastRun, &g.CreatedAt, &g.UpdatedAt)
	return mapError(err)
}

type GeneratorUpdate struct {
	SectionID       *int64
	ModelID         *string
	Prompt          *string
	IntervalMinutes *int
	IsActive        *bool
}

func (r *GeneratorRepository) Update(ctx context.Context, id int64, u GeneratorUpdate) (*models.ContentGenerator, error) {
	query := `
		UPDATE content_generators SET
			section_id = COALESCE($2, section_id),
			model_id = COALESCE($3, model_id),
			prompt = COALESCE($4, prompt),
			interval_minutes = COALESCE($5, interval_minutes),
			is_active = COALESCE($6, is_active),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + generatorColumns
	return scanGenerator(r.db.conn(ctx).QueryRow(ctx, query,
		id, u.SectionID, u.ModelID, u.Prompt, u.IntervalMinutes, u.IsActive))
}

func (r *GeneratorRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM content_generators WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete generator %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GeneratorRepository) BatchSetInterval(ctx context.Context, ids []int64, minutes int) (int64, error) {
	tag, err := r.db.conn(ctx).Exec(ctx,
		`UPDATE content_generators SET interval_minutes = $2, updated_at = NOW() WHERE id = ANY($1)`, ids, minutes)
	if err != nil {
		return 0, fmt.Errorf("failed to update intervals: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *GeneratorRepository) BatchSetActive(ctx context.Context, ids []int64, active bool) (int64, error) {
	tag, err := r.db.conn(ctx).Exec(ctx,
		`UPDATE content_generators SET is_active = $2, updated_at = NOW() WHERE id = ANY($1)`, ids, active)
	if err != nil {
		return 0, fmt.Errorf("failed to update statuses: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MarkRun records a successful generation. Only the generator loop calls it.
func (r *GeneratorRepository) MarkRun(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.conn(ctx).Exec(ctx, `UPDATE content_generators SET last_run = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark generator %d run: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
