package bearer

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	set   jose.JSONWebKeySet
	calls int
	err   error
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) (jose.JSONWebKeySet, error) {
	f.calls++
	if f.err != nil {
		return jose.JSONWebKeySet{}, f.err
	}
	return f.set, nil
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, sub string, exp time.Time) string {
	t.Helper()

	signer, err := jose.NewSigner(jose.SigningKey{
		Algorithm: jose.RS256,
		Key:       key,
	}, (&jose.SignerOptions{}).WithHeader("kid", kid))
	require.NoError(t, err)

	builder := jwt.Signed(signer).Claims(map[string]any{
		"sub": sub,
		"exp": exp.Unix(),
	})
	token, err := builder.Serialize()
	require.NoError(t, err)
	return token
}

func TestValidator_ValidToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwk := jose.JSONWebKey{Key: &key.PublicKey, KeyID: "key-1", Algorithm: "RS256", Use: "sig"}
	fetcher := &stubFetcher{set: jose.JSONWebKeySet{Keys: []jose.JSONWebKey{jwk}}}
	v := NewValidator("https://idp.example.com/jwks.json", fetcher, NewInProcessCache(), time.Minute)

	// Validate takes the raw token; the "Bearer " prefix is stripped by the
	// HTTP middleware before this is ever called.
	token := signToken(t, key, "key-1", "alice", time.Now().Add(time.Hour))
	info, err := v.Validate(context.Background(), token)
	require.NoError(t, err)
	require.True(t, info.Active)
	require.Equal(t, "alice", info.Sub)
	require.Equal(t, 1, fetcher.calls)
}

func TestValidator_CachesAcrossCalls(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwk := jose.JSONWebKey{Key: &key.PublicKey, KeyID: "key-1", Algorithm: "RS256", Use: "sig"}
	fetcher := &stubFetcher{set: jose.JSONWebKeySet{Keys: []jose.JSONWebKey{jwk}}}
	v := NewValidator("https://idp.example.com/jwks.json", fetcher, NewInProcessCache(), time.Minute)

	token := signToken(t, key, "key-1", "alice", time.Now().Add(time.Hour))
	_, err = v.Validate(context.Background(), token)
	require.NoError(t, err)
	_, err = v.Validate(context.Background(), token)
	require.NoError(t, err)

	require.Equal(t, 1, fetcher.calls, "second validation should hit the cache, not refetch")
}

func TestValidator_UnknownKidForcesOneRefresh(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwk := jose.JSONWebKey{Key: &key.PublicKey, KeyID: "key-1", Algorithm: "RS256", Use: "sig"}
	fetcher := &stubFetcher{set: jose.JSONWebKeySet{Keys: []jose.JSONWebKey{jwk}}}
	cache := NewInProcessCache()
	v := NewValidator("https://idp.example.com/jwks.json", fetcher, cache, time.Minute)

	// Prime the cache with a stale, keyless set, forcing exactly one refresh.
	cache.Set(context.Background(), v.jwksURL, jose.JSONWebKeySet{}, time.Minute)

	token := signToken(t, key, "key-1", "alice", time.Now().Add(time.Hour))
	info, err := v.Validate(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "alice", info.Sub)
	require.Equal(t, 1, fetcher.calls)
}

func TestValidator_ExpiredToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwk := jose.JSONWebKey{Key: &key.PublicKey, KeyID: "key-1", Algorithm: "RS256", Use: "sig"}
	fetcher := &stubFetcher{set: jose.JSONWebKeySet{Keys: []jose.JSONWebKey{jwk}}}
	v := NewValidator("https://idp.example.com/jwks.json", fetcher, NewInProcessCache(), time.Minute)

	token := signToken(t, key, "key-1", "alice", time.Now().Add(-time.Hour))
	_, err = v.Validate(context.Background(), token)
	require.Error(t, err)
}

func TestValidator_MissingSub(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwk := jose.JSONWebKey{Key: &key.PublicKey, KeyID: "key-1", Algorithm: "RS256", Use: "sig"}
	fetcher := &stubFetcher{set: jose.JSONWebKeySet{Keys: []jose.JSONWebKey{jwk}}}
	v := NewValidator("https://idp.example.com/jwks.json", fetcher, NewInProcessCache(), time.Minute)

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: key},
		(&jose.SignerOptions{}).WithHeader("kid", "key-1"))
	require.NoError(t, err)
	token, err := jwt.Signed(signer).Claims(map[string]any{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).Serialize()
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), token)
	require.Error(t, err)
}

func TestValidator_EmptyToken(t *testing.T) {
	v := NewValidator("https://idp.example.com/jwks.json", &stubFetcher{}, NewInProcessCache(), time.Minute)
	_, err := v.Validate(context.Background(), "   ")
	require.Error(t, err)
}
