package database

import (
	"context"
	"fmt"

	"txtforge/internal/models"

	"github.com/jackc/pgx/v5"
)

const sectionColumns = `id, title, slug, icon, sort_order, jokes_count,
	seo_title, seo_description, seo_keywords, seo_tags, seo_h1, created_at, updated_at`

type SectionRepository struct {
	db *DB
}

func NewSectionRepository(db *DB) *SectionRepository {
	return &SectionRepository{db: db}
}

func scanSection(row pgx.Row) (*models.Section, error) {
	var s models.Section
	err := row.Scan(
		&s.ID, &s.Title, &s.Slug, &s.Icon, &s.Order, &s.JokesCount,
		&s.SEO.Title, &s.SEO.Description, &s.SEO.Keywords, &s.SEO.Tags, &s.SEO.H1,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &s, nil
}

func (r *SectionRepository) List(ctx context.Context) ([]models.Section, error) {
	rows, err := r.db.conn(ctx).Query(ctx, `SELECT `+sectionColumns+` FROM sections ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	defer rows.Close()

	sections := make([]models.Section, 0)
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		sections = append(sections, *s)
	}
	return sections, rows.Err()
}

func (r *SectionRepository) GetByID(ctx context.Context, id int64) (*models.Section, error) {
	return scanSection(r.db.conn(ctx).QueryRow(ctx, `SELECT `+sectionColumns+` FROM sections WHERE id = $1`, id))
}

func (r *SectionRepository) GetBySlug(ctx context.Context, slug string) (*models.Section, error) {
	return scanSection(r.db.conn(ctx).QueryRow(ctx, `SELECT `+sectionColumns+` FROM sections WHERE slug = $1`, slug))
}

func (r *SectionRepository) Create(ctx context.Context, s *models.Section) error {
	query := `
		INSERT INTO sections (title, slug, icon, sort_order,
			seo_title, seo_description, seo_keywords, seo_tags, seo_h1)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, jokes_count, created_at, updated_at
	`
	err := r.db.conn(ctx).QueryRow(ctx, query,
		s.Title, s.Slug, s.Icon, s.Order,
		s.SEO.Title, s.SEO.Description, s.SEO.Keywords, nonNilTags(s.SEO.Tags), s.SEO.H1,
	).Scan(&s.ID, &s.JokesCount, &s.CreatedAt, &s.UpdatedAt)
	return mapError(err)
}

// SectionUpdate carries the fields of a partial update; nil fields are left as is.
type SectionUpdate struct {
	Title *string
	Slug  *string
	Icon  *string
	Order *int
	SEO   *models.SectionSEO
}

func (r *SectionRepository) Update(ctx context.Context, id int64, u SectionUpdate) (*models.Section, error) {
	var seoTitle, seoDescription, seoKeywords, seoTags, seoH1 any
	if u.SEO != nil {
		seoTitle, seoDescription, seoKeywords = u.SEO.Title, u.SEO.Description, u.SEO.Keywords
		seoTags, seoH1 = nonNilTags(u.SEO.Tags), u.SEO.H1
	}

	query := `
		UPDATE sections SET
			title = COALESCE($2, title),
			slug = COALESCE($3, slug),
			icon = COALESCE($4, icon),
			sort_order = COALESCE($5, sort_order),
			seo_title = COALESCE($6, seo_title),
			seo_description = COALESCE($7, seo_description),
			seo_keywords = COALESCE($8, seo_keywords),
			seo_tags = COALESCE($9::text[], seo_tags),
			seo_h1 = COALESCE($10, seo_h1),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + sectionColumns
	return scanSection(r.db.conn(ctx).QueryRow(ctx, query,
		id, u.Title, u.Slug, u.Icon, u.Order,
		seoTitle, seoDescription, seoKeywords, seoTags, seoH1,
	))
}

func (r *SectionRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM sections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete section %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RefreshJokesCount recomputes the number of published jokes of a section.
func (r *SectionRepository) RefreshJokesCount(ctx context.Context, id int64) (int, error) {
	query := `
		UPDATE sections
		SET jokes_count = (SELECT COUNT(*) FROM jokes WHERE section_id = $1 AND is_published)
		WHERE id = $1
		RETURNING jokes_count
	`
	var count int
	err := r.db.conn(ctx).QueryRow(ctx, query, id).Scan(&count)
	return count, mapError(err)
}

func (r *SectionRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.conn(ctx).QueryRow(ctx, "SELECT COUNT(*) FROM sections").Scan(&count)
	return count, err
}
