package apikey

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/ADORSYS-GIS/lightbridge-authz/internal/bearer"
)

func newTestRouter() chi.Router {
	h := NewHandler(nil, nil)
	r := chi.NewRouter()
	r.Mount("/api-keys", h.Routes())
	return r
}

func withIdentity(r *http.Request, subject string) *http.Request {
	ctx := bearer.WithIdentity(r.Context(), &bearer.Identity{Subject: subject})
	return r.WithContext(ctx)
}

func TestHandleCreate_RequiresIdentity(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodPost, "/api-keys", strings.NewReader(`{}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleCreate_InvalidJSON(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodPost, "/api-keys", strings.NewReader(`{bad`))
	r.Header.Set("Content-Type", "application/json")
	r = withIdentity(r, "user-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCreate_UnknownField(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodPost, "/api-keys", strings.NewReader(`{"not_a_real_field":1}`))
	r.Header.Set("Content-Type", "application/json")
	r = withIdentity(r, "user-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleList_RequiresIdentity(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodGet, "/api-keys", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleGet_RequiresIdentity(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodGet, "/api-keys/some-id", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleDelete_RequiresIdentity(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodDelete, "/api-keys/some-id", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandlePatch_RequiresIdentity(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodPut, "/api-keys/some-id", strings.NewReader(`{"status":"revoked"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandlePatch_InvalidJSON(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodPut, "/api-keys/some-id", strings.NewReader(`{bad`))
	r.Header.Set("Content-Type", "application/json")
	r = withIdentity(r, "user-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
