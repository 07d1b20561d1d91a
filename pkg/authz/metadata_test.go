package authz

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ADORSYS-GIS/lightbridge-authz/pkg/apikey"
)

func testKey(t *testing.T, metadata string) apikey.ApiKey {
	t.Helper()
	key := apikey.ApiKey{
		ID:     "key-123",
		UserID: "alice",
		ACL: apikey.ACL{
			AllowedModels:  []string{"gpt-4"},
			TokensPerModel: map[string]uint64{"gpt-4": 100000},
			RateLimit:      apikey.RateLimit{Requests: 60, WindowSeconds: 60},
		},
	}
	if metadata != "" {
		key.Metadata = json.RawMessage(metadata)
	}
	return key
}

func TestBuildDynamicMetadata_BuiltinFields(t *testing.T) {
	meta, err := buildDynamicMetadata(testKey(t, ""))
	require.NoError(t, err)

	require.Equal(t, "alice", meta.Fields["user_id"].GetStringValue())
	require.Equal(t, "key-123", meta.Fields["api_key_id"].GetStringValue())
	require.Equal(t, "key-123", meta.Fields["api_key_name"].GetStringValue())
	require.Equal(t, float64(60), meta.Fields["rate_limit_requests"].GetNumberValue())
	require.Equal(t, float64(60), meta.Fields["rate_limit_window_seconds"].GetNumberValue())

	models := meta.Fields["allowed_models"].GetListValue().GetValues()
	require.Len(t, models, 1)
	require.Equal(t, "gpt-4", models[0].GetStringValue())

	tokens := meta.Fields["tokens_per_model"].GetStructValue().GetFields()
	require.Equal(t, float64(100000), tokens["gpt-4"].GetNumberValue())
}

func TestBuildDynamicMetadata_CustomFieldsMerged(t *testing.T) {
	meta, err := buildDynamicMetadata(testKey(t, `{"team":"platform","priority":3}`))
	require.NoError(t, err)

	require.Equal(t, "platform", meta.Fields["team"].GetStringValue())
	require.Equal(t, float64(3), meta.Fields["priority"].GetNumberValue())
}

func TestBuildDynamicMetadata_CustomFieldCannotShadowBuiltin(t *testing.T) {
	meta, err := buildDynamicMetadata(testKey(t, `{"user_id":"mallory"}`))
	require.NoError(t, err)

	require.Equal(t, "alice", meta.Fields["user_id"].GetStringValue())
}

func TestBuildDynamicMetadata_LargeIntegerEncodedAsString(t *testing.T) {
	key := testKey(t, `{"big_number":9007199254740993}`)
	meta, err := buildDynamicMetadata(key)
	require.NoError(t, err)

	require.Equal(t, "9007199254740993", meta.Fields["big_number"].GetStringValue())
}

func TestBuildDynamicMetadata_LargeTokenLimitEncodedAsString(t *testing.T) {
	key := testKey(t, "")
	key.ACL.TokensPerModel = map[string]uint64{"huge-model": 1 << 60}

	meta, err := buildDynamicMetadata(key)
	require.NoError(t, err)

	tokens := meta.Fields["tokens_per_model"].GetStructValue().GetFields()
	require.Equal(t, "1152921504606846976", tokens["huge-model"].GetStringValue())
}

func TestBuildDynamicMetadata_SmallIntegerStaysNumeric(t *testing.T) {
	meta, err := buildDynamicMetadata(testKey(t, `{"count":42}`))
	require.NoError(t, err)

	require.Equal(t, float64(42), meta.Fields["count"].GetNumberValue())
}
