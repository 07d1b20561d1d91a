package bearer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-jose/go-jose/v4"
)

// Fetcher retrieves a JWKS document. The default implementation performs an
// HTTP GET; tests substitute a stub.
type Fetcher interface {
	Fetch(ctx context.Context, jwksURL string) (jose.JSONWebKeySet, error)
}

// HTTPFetcher fetches a JWKS document over plain HTTP(S).
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher builds an HTTPFetcher with a bounded request timeout.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: 10 * time.Second}}
}

// Fetch performs the GET and decodes the JWKS document.
func (f *HTTPFetcher) Fetch(ctx context.Context, jwksURL string) (jose.JSONWebKeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return jose.JSONWebKeySet{}, fmt.Errorf("building jwks request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return jose.JSONWebKeySet{}, fmt.Errorf("fetching jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return jose.JSONWebKeySet{}, fmt.Errorf("jwks endpoint returned %d: %s", resp.StatusCode, body)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return jose.JSONWebKeySet{}, fmt.Errorf("decoding jwks: %w", err)
	}

	return set, nil
}
