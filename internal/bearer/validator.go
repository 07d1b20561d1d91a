// Package bearer validates end-user JWTs presented to the REST management
// plane against a JWKS document, indexed by the token's kid header.
package bearer

import (
	"context"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"

	"github.com/ADORSYS-GIS/lightbridge-authz/internal/apperr"
	"github.com/ADORSYS-GIS/lightbridge-authz/internal/telemetry"
)

// TokenInfo is the validated subject of a bearer token.
type TokenInfo struct {
	Active bool
	Sub    string
	Exp    time.Time
}

// claims is the subset of registered claims this service requires.
// Audience validation is deliberately not performed (see Validator.Validate).
type claims struct {
	Subject string `json:"sub"`
	Expiry  int64  `json:"exp"`
}

// Validator validates bearer JWTs via a single JWKS endpoint.
type Validator struct {
	jwksURL  string
	fetcher  Fetcher
	cache    Cache
	cacheTTL time.Duration
}

// NewValidator builds a Validator. cacheTTL of zero falls back to 5 minutes.
func NewValidator(jwksURL string, fetcher Fetcher, cache Cache, cacheTTL time.Duration) *Validator {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Validator{jwksURL: jwksURL, fetcher: fetcher, cache: cache, cacheTTL: cacheTTL}
}

// Validate runs the full bearer-token algorithm: trim, parse the kid header,
// resolve the JWK (via cache, with one forced refresh on miss), verify the
// signature and temporal claims, and extract the subject. Audience
// validation is intentionally disabled — the service trusts any audience the
// IdP mints.
func (v *Validator) Validate(ctx context.Context, rawToken string) (TokenInfo, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return TokenInfo{}, apperr.New(apperr.KindUnauthorized, "empty bearer token")
	}

	parsed, err := jwt.ParseSigned(token, []jose.SignatureAlgorithm{
		jose.RS256, jose.RS384, jose.RS512,
		jose.ES256, jose.ES384, jose.ES512,
		jose.PS256, jose.PS384, jose.PS512,
	})
	if err != nil {
		return TokenInfo{}, apperr.Wrap(apperr.KindUnauthorized, "malformed bearer token", err)
	}

	if len(parsed.Headers) == 0 || parsed.Headers[0].KeyID == "" {
		return TokenInfo{}, apperr.New(apperr.KindUnauthorized, "token header missing kid")
	}
	kid := parsed.Headers[0].KeyID

	key, err := v.resolveKey(ctx, kid)
	if err != nil {
		return TokenInfo{}, err
	}

	var c claims
	if err := parsed.Claims(key, &c); err != nil {
		return TokenInfo{}, apperr.Wrap(apperr.KindUnauthorized, "signature verification failed", err)
	}

	if c.Subject == "" {
		return TokenInfo{}, apperr.New(apperr.KindUnauthorized, "token missing sub claim")
	}

	exp := time.Unix(c.Expiry, 0)
	if c.Expiry > 0 && time.Now().After(exp) {
		return TokenInfo{}, apperr.New(apperr.KindUnauthorized, "token expired")
	}

	return TokenInfo{Active: true, Sub: c.Subject, Exp: exp}, nil
}

// resolveKey looks up kid in the cached JWKS, forcing exactly one refresh on
// a miss before failing.
func (v *Validator) resolveKey(ctx context.Context, kid string) (*jose.JSONWebKey, error) {
	if set, ok := v.cache.Get(ctx, v.jwksURL); ok {
		if k := findKey(set, kid); k != nil {
			return k, nil
		}
	}

	set, err := v.fetcher.Fetch(ctx, v.jwksURL)
	if err != nil {
		telemetry.JWKSFetchesTotal.WithLabelValues("error").Inc()
		return nil, apperr.Wrap(apperr.KindInfraError, "fetching jwks", err)
	}
	telemetry.JWKSFetchesTotal.WithLabelValues("ok").Inc()
	v.cache.Set(ctx, v.jwksURL, set, v.cacheTTL)

	k := findKey(set, kid)
	if k == nil {
		return nil, apperr.New(apperr.KindUnauthorized, "no jwk found for kid")
	}
	return k, nil
}

func findKey(set jose.JSONWebKeySet, kid string) *jose.JSONWebKey {
	for i := range set.Keys {
		if set.Keys[i].KeyID == kid {
			return &set.Keys[i]
		}
	}
	return nil
}
