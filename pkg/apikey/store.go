package apikey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ADORSYS-GIS/lightbridge-authz/internal/apperr"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, letting every query
// helper run either standalone or inside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const apiKeyJoinColumns = `
	ak.id, ak.user_id, ak.key_hash, ak.created_at, ak.expires_at, ak.metadata, ak.status,
	a.id, a.rate_limit_requests, a.rate_limit_window, a.created_at, a.updated_at`

// Store is the API-key repository: domain operations over the persistence
// layer, hiding SQL details behind create/find/update/delete.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore builds a Store backed by pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create inserts a new Acl (and its AclModel rows, if any) and a new ApiKey
// referencing it, all within one transaction, then reads back the
// materialized join. If input.ACL is nil, a default ACL is synthesized.
func (s *Store) Create(ctx context.Context, userID string, input CreateApiKey, keyHash string) (ApiKey, error) {
	acl := input.ACL
	if acl == nil {
		acl = &ACL{RateLimit: DefaultRateLimit()}
	}

	aclID := newID()
	apiKeyID := newID()
	now := time.Now().UTC()

	var result ApiKey
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO acls (id, rate_limit_requests, rate_limit_window, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)`,
			aclID, acl.RateLimit.Requests, acl.RateLimit.WindowSeconds, now); err != nil {
			return fmt.Errorf("inserting acl: %w", err)
		}

		if err := insertAclModels(ctx, tx, aclID, acl); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO api_keys (id, user_id, key_hash, created_at, expires_at, metadata, status, acl_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			apiKeyID, userID, keyHash, now, input.ExpiresAt, nullableJSON(input.Metadata), string(StatusActive), aclID); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return apperr.Wrap(apperr.KindConflict, "duplicate key_hash", err)
			}
			return fmt.Errorf("inserting api key: %w", err)
		}

		row, err := readJoin(ctx, tx, "ak.id = $1", apiKeyID)
		if err != nil {
			return err
		}
		result = row
		return nil
	})
	if err != nil {
		return ApiKey{}, err
	}
	return result, nil
}

// FindByID returns the ApiKey owned by userID with the given id. NotFound
// (not Forbidden) is returned when the row doesn't exist or belongs to
// another user, so the management plane never leaks existence across owners.
func (s *Store) FindByID(ctx context.Context, userID, id string) (ApiKey, error) {
	return readJoin(ctx, s.pool, "ak.id = $1 AND ak.user_id = $2", id, userID)
}

// FindByToken returns the ApiKey matching the given raw token, regardless of
// status or expiry.
func (s *Store) FindByToken(ctx context.Context, token string) (ApiKey, error) {
	return readJoin(ctx, s.pool, "ak.key_hash = $1", hashToken(token))
}

// FindForAuthz returns the ApiKey matching the given raw token, filtered to
// status = active at the SQL level. Expiry is re-checked by the caller
// against wall-clock now, keeping this query a plain indexed equality
// lookup rather than a time-comparison scan.
func (s *Store) FindForAuthz(ctx context.Context, token string) (ApiKey, error) {
	return readJoin(ctx, s.pool, "ak.key_hash = $1 AND ak.status = 'active'", hashToken(token))
}

// Update applies patch to the ApiKey owned by (userID, id). Absent fields are
// no-ops; present fields (including explicit acl replacement) are applied
// within a single transaction, and the acl_models set is fully replaced
// (delete-then-insert) when acl is present.
func (s *Store) Update(ctx context.Context, userID, id string, patch PatchApiKey) (ApiKey, error) {
	var result ApiKey
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		existing, err := readJoin(ctx, tx, "ak.id = $1 AND ak.user_id = $2", id, userID)
		if err != nil {
			return err
		}

		if patch.HasStatus() {
			status := StatusActive
			if patch.Status != nil {
				status = normalizeStatus(*patch.Status)
			}
			if _, err := tx.Exec(ctx, `UPDATE api_keys SET status = $1 WHERE id = $2`, string(status), id); err != nil {
				return fmt.Errorf("updating status: %w", err)
			}
		}
		if patch.HasExpiresAt() {
			if _, err := tx.Exec(ctx, `UPDATE api_keys SET expires_at = $1 WHERE id = $2`, patch.ExpiresAt, id); err != nil {
				return fmt.Errorf("updating expires_at: %w", err)
			}
		}
		if patch.HasMetadata() {
			if _, err := tx.Exec(ctx, `UPDATE api_keys SET metadata = $1 WHERE id = $2`, nullableJSON(patch.Metadata), id); err != nil {
				return fmt.Errorf("updating metadata: %w", err)
			}
		}

		if patch.HasACL() && patch.ACL != nil {
			now := time.Now().UTC()
			if _, err := tx.Exec(ctx, `
				UPDATE acls SET rate_limit_requests = $1, rate_limit_window = $2, updated_at = $3
				WHERE id = $4`,
				patch.ACL.RateLimit.Requests, patch.ACL.RateLimit.WindowSeconds, now, existing.ACL.ID); err != nil {
				return fmt.Errorf("updating acl: %w", err)
			}
			if _, err := tx.Exec(ctx, `DELETE FROM acl_models WHERE acl_id = $1`, existing.ACL.ID); err != nil {
				return fmt.Errorf("clearing acl_models: %w", err)
			}
			aclWithID := *patch.ACL
			aclWithID.ID = existing.ACL.ID
			if err := insertAclModels(ctx, tx, existing.ACL.ID, &aclWithID); err != nil {
				return err
			}
		}

		row, err := readJoin(ctx, tx, "ak.id = $1 AND ak.user_id = $2", id, userID)
		if err != nil {
			return err
		}
		result = row
		return nil
	})
	if err != nil {
		return ApiKey{}, err
	}
	return result, nil
}

// Delete soft-deletes the ApiKey owned by (userID, id) by setting
// status = revoked. Deleting a nonexistent or already-revoked key is not an
// error: the operation is idempotent.
func (s *Store) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE api_keys SET status = 'revoked' WHERE id = $1 AND user_id = $2`, id, userID); err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}
	return nil
}

// FindAll returns the ApiKeys owned by userID, most recently created first.
func (s *Store) FindAll(ctx context.Context, userID string, limit, offset int) ([]ApiKey, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ak.id FROM api_keys ak
		WHERE ak.user_id = $1
		ORDER BY ak.created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing api key ids: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning api key id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating api key ids: %w", err)
	}

	items := make([]ApiKey, 0, len(ids))
	for _, id := range ids {
		row, err := readJoin(ctx, s.pool, "ak.id = $1", id)
		if err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	return items, nil
}

// readJoin reads one ApiKey + Acl row matched by whereClause/args, then loads
// its AclModel rows in a second query.
func readJoin(ctx context.Context, q querier, whereClause string, args ...any) (ApiKey, error) {
	query := `SELECT ` + apiKeyJoinColumns + ` FROM api_keys ak JOIN acls a ON a.id = ak.acl_id WHERE ` + whereClause
	row := q.QueryRow(ctx, query, args...)

	var (
		out          ApiKey
		status       string
		rawMetadata  []byte
		expiresAt    pgtype.Timestamptz
		rateReq      uint32
		rateWindow   uint32
		aclCreatedAt time.Time
		aclUpdatedAt time.Time
	)

	if err := row.Scan(
		&out.ID, &out.UserID, &out.KeyHash, &out.CreatedAt, &expiresAt, &rawMetadata, &status,
		&out.ACL.ID, &rateReq, &rateWindow, &aclCreatedAt, &aclUpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ApiKey{}, apperr.New(apperr.KindNotFound, "api key not found")
		}
		return ApiKey{}, fmt.Errorf("scanning api key join: %w", err)
	}

	out.Status = normalizeStatus(status)
	if expiresAt.Valid {
		t := expiresAt.Time
		out.ExpiresAt = &t
	}
	if len(rawMetadata) > 0 {
		out.Metadata = json.RawMessage(rawMetadata)
	}
	out.ACL.RateLimit = RateLimit{Requests: rateReq, WindowSeconds: rateWindow}
	out.ACL.CreatedAt = aclCreatedAt
	out.ACL.UpdatedAt = aclUpdatedAt

	allowedModels, tokensPerModel, err := loadAclModels(ctx, q, out.ACL.ID)
	if err != nil {
		return ApiKey{}, err
	}
	out.ACL.AllowedModels = allowedModels
	out.ACL.TokensPerModel = tokensPerModel

	return out, nil
}

func loadAclModels(ctx context.Context, q querier, aclID string) ([]string, map[string]uint64, error) {
	rows, err := q.Query(ctx, `SELECT model_name, token_limit FROM acl_models WHERE acl_id = $1`, aclID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading acl models: %w", err)
	}
	defer rows.Close()

	allowedModels := make([]string, 0)
	tokensPerModel := make(map[string]uint64)
	for rows.Next() {
		var name string
		var limit uint64
		if err := rows.Scan(&name, &limit); err != nil {
			return nil, nil, fmt.Errorf("scanning acl model: %w", err)
		}
		allowedModels = append(allowedModels, name)
		tokensPerModel[name] = limit
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating acl models: %w", err)
	}

	return allowedModels, tokensPerModel, nil
}

// insertAclModels derives AclModel rows from acl and inserts them, skipping
// entirely when the ACL carries no model allowances.
func insertAclModels(ctx context.Context, tx pgx.Tx, aclID string, acl *ACL) error {
	names := acl.AllowedModels
	if len(names) == 0 && len(acl.TokensPerModel) > 0 {
		for name := range acl.TokensPerModel {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}

	for _, name := range names {
		limit := acl.TokensPerModel[name]
		if _, err := tx.Exec(ctx, `
			INSERT INTO acl_models (acl_id, model_name, token_limit) VALUES ($1, $2, $3)`,
			aclID, name, limit); err != nil {
			return fmt.Errorf("inserting acl model %q: %w", name, err)
		}
	}
	return nil
}

// nullableJSON returns nil for an empty/absent RawMessage so it's stored as
// SQL NULL rather than the literal string "null".
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
