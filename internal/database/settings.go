package database

import (
	"context"
	"fmt"

	"txtforge/internal/models"

	"github.com/jackc/pgx/v5"
)

const modelColumns = `id, name, model_id, is_active, created_at, updated_at`

type SettingsRepository struct {
	db *DB
}

func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get loads the settings singleton with its models. ErrNotFound until an API key is saved.
func (r *SettingsRepository) Get(ctx context.Context) (*models.AISettings, error) {
	q := r.db.conn(ctx)

	var s models.AISettings
	err := q.QueryRow(ctx, `SELECT id, openrouter_api_key, updated_at FROM ai_settings WHERE id = 1`).
		Scan(&s.ID, &s.OpenRouterAPIKey, &s.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}

	rows, err := q.Query(ctx, `SELECT `+modelColumns+` FROM ai_models WHERE settings_id = $1 ORDER BY id`, s.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load models: %w", err)
	}
	defer rows.Close()

	s.Models = make([]models.AIModel, 0)
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		s.Models = append(s.Models, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanModel(row pgx.Row) (*models.AIModel, error) {
	var m models.AIModel
	if err := row.Scan(&m.ID, &m.Name, &m.ModelID, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	return &m, nil
}

// SetAPIKey creates the settings singleton on first use.
func (r *SettingsRepository) SetAPIKey(ctx context.Context, key string) (*models.AISettings, error) {
	query := `
		INSERT INTO ai_settings (id, openrouter_api_key)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET
			openrouter_api_key = EXCLUDED.openrouter_api_key,
			updated_at = NOW()
	`
	if _, err := r.db.conn(ctx).Exec(ctx, query, key); err != nil {
		return nil, fmt.Errorf("failed to save api key: %w", err)
	}
	return r.Get(ctx)
}

// AddModel fails with ErrNotFound when the settings record does not exist yet
// and with ErrDuplicate when modelID is already registered.
func (r *SettingsRepository) AddModel(ctx context.Context, name, modelID string) (*models.AIModel, error) {
	query := `
		INSERT INTO ai_models (settings_id, name, model_id)
		SELECT id, $1, $2 FROM ai_settings WHERE id = 1
		RETURNING ` + modelColumns
	return scanModel(r.db.conn(ctx).QueryRow(ctx, query, name, modelID))
}

func (r *SettingsRepository) DeleteModel(ctx context.Context, id int64) error {
	tag, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM ai_models WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete model %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type CodeInjectionRepository struct {
	db *DB
}

func NewCodeInjectionRepository(db *DB) *CodeInjectionRepository {
	return &CodeInjectionRepository{db: db}
}

func (r *CodeInjectionRepository) Get(ctx context.Context) (*models.CodeInjection, error) {
	var c models.CodeInjection
	err := r.db.conn(ctx).QueryRow(ctx, `SELECT id, header_code, updated_at FROM code_injection WHERE id = 1`).
		Scan(&c.ID, &c.HeaderCode, &c.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

func (r *CodeInjectionRepository) Save(ctx context.Context, headerCode string) (*models.CodeInjection, error) {
	query := `
		INSERT INTO code_injection (id, header_code)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET
			header_code = EXCLUDED.header_code,
			updated_at = NOW()
		RETURNING id, header_code, updated_at
	`
	var c models.CodeInjection
	if err := r.db.conn(ctx).QueryRow(ctx, query, headerCode).Scan(&c.ID, &c.HeaderCode, &c.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}
