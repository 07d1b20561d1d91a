package apikey

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeStatus(t *testing.T) {
	require.Equal(t, StatusActive, normalizeStatus("active"))
	require.Equal(t, StatusActive, normalizeStatus("ACTIVE"))
	require.Equal(t, StatusRevoked, normalizeStatus("revoked"))
	require.Equal(t, StatusRevoked, normalizeStatus("Revoked"))
	require.Equal(t, StatusActive, normalizeStatus("garbage"))
	require.Equal(t, StatusActive, normalizeStatus(""))
}

func TestPatchApiKey_AbsentVsNull(t *testing.T) {
	var p PatchApiKey
	require.NoError(t, json.Unmarshal([]byte(`{"status":"revoked"}`), &p))

	require.True(t, p.HasStatus())
	require.False(t, p.HasExpiresAt())
	require.False(t, p.HasMetadata())
	require.False(t, p.HasACL())
	require.Equal(t, "revoked", *p.Status)
}

func TestPatchApiKey_ExplicitNullClearsField(t *testing.T) {
	var p PatchApiKey
	require.NoError(t, json.Unmarshal([]byte(`{"expires_at":null}`), &p))

	require.True(t, p.HasExpiresAt())
	require.Nil(t, p.ExpiresAt)
}

func TestPatchApiKey_EmptyBody(t *testing.T) {
	var p PatchApiKey
	require.NoError(t, json.Unmarshal([]byte(`{}`), &p))

	require.False(t, p.HasStatus())
	require.False(t, p.HasExpiresAt())
	require.False(t, p.HasMetadata())
	require.False(t, p.HasACL())
}

func TestDefaultRateLimit(t *testing.T) {
	rl := DefaultRateLimit()
	require.Equal(t, uint32(1000), rl.Requests)
	require.Equal(t, uint32(3600), rl.WindowSeconds)
}

func TestCreateResponse_EmbedsKeyAlongsideApiKey(t *testing.T) {
	resp := CreateResponse{
		ApiKey: ApiKey{ID: "abc123", UserID: "user-1", Status: StatusActive},
		Key:    "sk-test-plaintext",
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "sk-test-plaintext", decoded["key"])
	require.Equal(t, "abc123", decoded["id"])
}
