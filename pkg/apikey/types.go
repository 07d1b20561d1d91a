// Package apikey implements the API-key + ACL persistence model and the
// REST management plane that lets an authenticated user create, read,
// update, revoke, and list their own API keys.
package apikey

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of an ApiKey.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// normalizeStatus canonicalizes any-case input, defaulting unknown values to
// Active (lenient inbound, strict outbound per the wire-encoding rule).
func normalizeStatus(s string) Status {
	switch Status(lower(s)) {
	case StatusRevoked:
		return StatusRevoked
	default:
		return StatusActive
	}
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}

// RateLimit is the request-rate policy attached to an ACL.
type RateLimit struct {
	Requests      uint32 `json:"requests"`
	WindowSeconds uint32 `json:"window_seconds"`
}

// DefaultRateLimit is synthesized when a CreateApiKey request omits acl.
func DefaultRateLimit() RateLimit {
	return RateLimit{Requests: 1000, WindowSeconds: 3600}
}

// ACL is the policy envelope bound to an ApiKey: allowed models, per-model
// token budgets, and a request-rate limit.
type ACL struct {
	ID             string            `json:"-"`
	AllowedModels  []string          `json:"allowed_models"`
	TokensPerModel map[string]uint64 `json:"tokens_per_model"`
	RateLimit      RateLimit         `json:"rate_limit"`
	CreatedAt      time.Time         `json:"-"`
	UpdatedAt      time.Time         `json:"-"`
}

// ApiKey is the credential record, materialized from a join of api_keys,
// acls, and acl_models.
type ApiKey struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	KeyHash   string          `json:"key_hash"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Status    Status          `json:"status"`
	ACL       ACL             `json:"acl"`
}

// CreateApiKey is the request body for POST /api-keys.
type CreateApiKey struct {
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	ACL       *ACL            `json:"acl,omitempty"`
}

// PatchApiKey is the request body for PUT /api-keys/{id}. An absent JSON key
// and an explicit JSON null both leave the typed field nil; the Has* methods
// tell them apart from the top-level keys recorded by UnmarshalJSON. An
// absent field is a no-op; a present null clears it. See Store.Update in
// store.go.
type PatchApiKey struct {
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Status    *string         `json:"status,omitempty"`
	ACL       *ACL            `json:"acl,omitempty"`

	// rawFields records which top-level keys were actually present in the
	// decoded JSON document, distinguishing "absent" from "explicit null"
	// for fields whose Go zero value cannot itself encode that difference.
	rawFields map[string]json.RawMessage
}

// UnmarshalJSON records which fields were present in the request body before
// decoding into the typed fields, so Has* can distinguish absence from null.
func (p *PatchApiKey) UnmarshalJSON(data []byte) error {
	type alias PatchApiKey
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = PatchApiKey(a)
	p.rawFields = raw
	return nil
}

// HasExpiresAt reports whether expires_at was present in the patch body.
func (p *PatchApiKey) HasExpiresAt() bool { _, ok := p.rawFields["expires_at"]; return ok }

// HasMetadata reports whether metadata was present in the patch body.
func (p *PatchApiKey) HasMetadata() bool { _, ok := p.rawFields["metadata"]; return ok }

// HasStatus reports whether status was present in the patch body.
func (p *PatchApiKey) HasStatus() bool { _, ok := p.rawFields["status"]; return ok }

// HasACL reports whether acl was present in the patch body.
func (p *PatchApiKey) HasACL() bool { _, ok := p.rawFields["acl"]; return ok }

// CreateResponse is the JSON response for a successful key creation: it
// includes the plaintext key, which is shown exactly once and never stored.
type CreateResponse struct {
	ApiKey
	Key string `json:"key"`
}
