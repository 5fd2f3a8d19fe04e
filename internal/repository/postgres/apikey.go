package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const apiKeyColumns = `id, user_id, name, key_prefix, key_hash, is_active, last_used_at, revoked_at, created_at, updated_at`

type apiKeyRepository struct {
	BaseRepository
}

func NewAPIKeyRepository(base BaseRepository) repository.APIKeyRepository {
	return &apiKeyRepository{base}
}

func (r *apiKeyRepository) Create(ctx context.Context, key *model.APIKey) error {
	query := `
		INSERT INTO api_keys (id, user_id, name, key_prefix, key_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	key.ID = uuid.New()
	key.IsActive = true
	key.CreatedAt = time.Now().UTC()
	key.UpdatedAt = key.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		key.ID,
		key.UserID,
		key.Name,
		key.KeyPrefix,
		key.KeyHash,
		key.IsActive,
		key.CreatedAt,
		key.UpdatedAt,
	)
	return mapError(err, "api key")
}

func (r *apiKeyRepository) Get(ctx context.Context, id uuid.UUID) (*model.APIKey, error) {
	var key model.APIKey
	if err := r.db.GetContext(ctx, &key, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, id); err != nil {
		return nil, mapError(err, "api key")
	}
	return &key, nil
}

func (r *apiKeyRepository) GetByHash(ctx context.Context, hash string) (*model.APIKey, error) {
	var key model.APIKey
	if err := r.db.GetContext(ctx, &key, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = $1`, hash); err != nil {
		return nil, mapError(err, "api key")
	}
	return &key, nil
}

func (r *apiKeyRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.APIKey, error) {
	keys := []*model.APIKey{}
	err := r.db.SelectContext(ctx, &keys,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	return keys, nil
}

// Revoke is idempotent: revoking an inactive key keeps its first revoked_at.
func (r *apiKeyRepository) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE api_keys
		SET is_active = FALSE, revoked_at = COALESCE(revoked_at, $1), updated_at = $1
		WHERE id = $2
	`, at, id)
	if err != nil {
		return mapError(err, "api key")
	}
	return expectOne(result, "api key")
}

func (r *apiKeyRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = $1 WHERE id = $2`, at, id)
	return mapError(err, "api key")
}
