package apikey

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Service is the management-service facade: every method is scoped to the
// calling user's own keys, so no separate authorization check is needed once
// a caller's identity has been established by the bearer middleware.
type Service struct {
	store  *Store
	logger *slog.Logger
}

// NewService builds a Service backed by pool.
func NewService(pool *pgxpool.Pool, logger *slog.Logger) *Service {
	return &Service{store: NewStore(pool), logger: logger}
}

// Create generates a new opaque key, persists its hash and ACL, and returns
// the full record plus the plaintext key, which is shown exactly once.
func (s *Service) Create(ctx context.Context, userID string, req CreateApiKey) (CreateResponse, error) {
	plaintext, hash := generateKey()

	key, err := s.store.Create(ctx, userID, req, hash)
	if err != nil {
		return CreateResponse{}, fmt.Errorf("creating api key: %w", err)
	}

	return CreateResponse{ApiKey: key, Key: plaintext}, nil
}

// Get returns the caller's ApiKey by id.
func (s *Service) Get(ctx context.Context, userID, id string) (ApiKey, error) {
	return s.store.FindByID(ctx, userID, id)
}

// Patch applies a partial update to the caller's ApiKey.
func (s *Service) Patch(ctx context.Context, userID, id string, patch PatchApiKey) (ApiKey, error) {
	return s.store.Update(ctx, userID, id, patch)
}

// Delete revokes the caller's ApiKey. Revoking an already-revoked or
// nonexistent key is not an error.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.store.Delete(ctx, userID, id)
}

// List returns up to 100 of the caller's ApiKeys, most recent first.
func (s *Service) List(ctx context.Context, userID string) ([]ApiKey, error) {
	const listLimit = 100
	return s.store.FindAll(ctx, userID, listLimit, 0)
}
