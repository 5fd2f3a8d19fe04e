package model

import (
	"time"

	"github.com/google/uuid"
)

// APIKey is a long-lived credential for automation. Only the hash of the
// raw key is stored.
type APIKey struct {
	Base
	UserID     uuid.UUID  `db:"user_id" json:"user_id"`
	Name       string     `db:"name" json:"name"`
	KeyPrefix  string     `db:"key_prefix" json:"key_prefix"`
	KeyHash    string     `db:"key_hash" json:"-"`
	IsActive   bool       `db:"is_active" json:"is_active"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
}

type CreateAPIKeyRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// CreatedAPIKey carries the raw key. It is returned once, at creation.
type CreatedAPIKey struct {
	*APIKey
	Key string `json:"key"`
}
