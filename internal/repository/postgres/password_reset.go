package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type passwordResetRepository struct {
	BaseRepository
}

func NewPasswordResetRepository(base BaseRepository) repository.PasswordResetRepository {
	return &passwordResetRepository{base}
}

// Create stores a new token and retires any outstanding ones for the user.
func (r *passwordResetRepository) Create(ctx context.Context, token *model.PasswordResetToken) error {
	token.ID = uuid.New()
	token.CreatedAt = time.Now().UTC()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE password_reset_tokens SET used_at = $1 WHERE user_id = $2 AND used_at IS NULL`,
			token.CreatedAt, token.UserID)
		if err != nil {
			return mapError(err, "reset token")
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt)
		return mapError(err, "reset token")
	})
}

func (r *passwordResetRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error) {
	var userID uuid.UUID
	err := r.db.GetContext(ctx, &userID, `
		UPDATE password_reset_tokens
		SET used_at = $1
		WHERE token_hash = $2 AND used_at IS NULL AND expires_at > $1
		RETURNING user_id
	`, now, tokenHash)
	if err != nil {
		if isNoRows(err) {
			return uuid.Nil, apperrors.Validation("reset token is invalid or expired", map[string]string{"token": "invalid or expired"})
		}
		return uuid.Nil, mapError(err, "reset token")
	}
	return userID, nil
}

func (r *passwordResetRepository) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM password_reset_tokens WHERE expires_at < $1 OR used_at < $1`, cutoff)
	if err != nil {
		return 0, mapError(err, "reset token")
	}
	return res.RowsAffected()
}
