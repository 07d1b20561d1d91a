package authz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ADORSYS-GIS/lightbridge-authz/pkg/apikey"
)

// maxExactInt is 2^53, the bound below which every integer is exactly
// representable as a float64; integers whose magnitude is at or above it are
// encoded as strings in the dynamic-metadata Struct rather than silently
// losing precision.
const maxExactInt = 1 << 53

var builtinMetadataFields = map[string]bool{
	"user_id":                   true,
	"api_key_id":                true,
	"api_key_name":              true,
	"allowed_models":            true,
	"tokens_per_model":          true,
	"rate_limit_requests":       true,
	"rate_limit_window_seconds": true,
}

// buildDynamicMetadata assembles the proto Struct returned to the proxy on
// ALLOW: the fixed built-in fields plus any custom metadata keys from the
// key's own metadata blob, which may never shadow a built-in.
func buildDynamicMetadata(key apikey.ApiKey) (*structpb.Struct, error) {
	fields := map[string]*structpb.Value{
		"user_id":                   structpb.NewStringValue(key.UserID),
		"api_key_id":                structpb.NewStringValue(key.ID),
		"api_key_name":              structpb.NewStringValue(key.ID),
		"rate_limit_requests":       structpb.NewNumberValue(float64(key.ACL.RateLimit.Requests)),
		"rate_limit_window_seconds": structpb.NewNumberValue(float64(key.ACL.RateLimit.WindowSeconds)),
	}

	allowedModels, err := toStructValue(key.ACL.AllowedModels)
	if err != nil {
		return nil, fmt.Errorf("encoding allowed_models: %w", err)
	}
	fields["allowed_models"] = allowedModels

	tokensPerModel, err := toStructValue(key.ACL.TokensPerModel)
	if err != nil {
		return nil, fmt.Errorf("encoding tokens_per_model: %w", err)
	}
	fields["tokens_per_model"] = tokensPerModel

	custom, err := decodeCustomMetadata(key.Metadata)
	if err != nil {
		return nil, fmt.Errorf("decoding custom metadata: %w", err)
	}
	for name, value := range custom {
		if builtinMetadataFields[name] {
			continue
		}
		v, err := toStructValue(value)
		if err != nil {
			return nil, fmt.Errorf("encoding custom field %q: %w", name, err)
		}
		fields[name] = v
	}

	return &structpb.Struct{Fields: fields}, nil
}

// decodeCustomMetadata decodes an ApiKey's opaque metadata blob, preserving
// large integers as json.Number rather than collapsing them to float64.
func decodeCustomMetadata(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// toStructValue converts a JSON-derived Go value into a structpb.Value,
// encoding integers at or beyond maxExactInt as decimal strings to avoid silent
// precision loss through the float64-backed NumberValue variant.
func toStructValue(v any) (*structpb.Value, error) {
	switch t := v.(type) {
	case nil:
		return structpb.NewNullValue(), nil
	case bool:
		return structpb.NewBoolValue(t), nil
	case string:
		return structpb.NewStringValue(t), nil
	case json.Number:
		return numberToValue(t)
	case float64:
		return structpb.NewNumberValue(t), nil
	case uint64:
		return numberToValue(json.Number(strconv.FormatUint(t, 10)))
	case []string:
		values := make([]*structpb.Value, len(t))
		for i, s := range t {
			values[i] = structpb.NewStringValue(s)
		}
		return structpb.NewListValue(&structpb.ListValue{Values: values}), nil
	case []any:
		values := make([]*structpb.Value, len(t))
		for i, e := range t {
			ev, err := toStructValue(e)
			if err != nil {
				return nil, err
			}
			values[i] = ev
		}
		return structpb.NewListValue(&structpb.ListValue{Values: values}), nil
	case map[string]uint64:
		fields := make(map[string]*structpb.Value, len(t))
		for k, n := range t {
			fv, err := numberToValue(json.Number(strconv.FormatUint(n, 10)))
			if err != nil {
				return nil, err
			}
			fields[k] = fv
		}
		return structpb.NewStructValue(&structpb.Struct{Fields: fields}), nil
	case map[string]any:
		fields := make(map[string]*structpb.Value, len(t))
		for k, e := range t {
			ev, err := toStructValue(e)
			if err != nil {
				return nil, err
			}
			fields[k] = ev
		}
		return structpb.NewStructValue(&structpb.Struct{Fields: fields}), nil
	default:
		return nil, fmt.Errorf("unsupported metadata value type %T", v)
	}
}

func numberToValue(n json.Number) (*structpb.Value, error) {
	if i, err := n.Int64(); err == nil {
		if i > -maxExactInt && i < maxExactInt {
			return structpb.NewNumberValue(float64(i)), nil
		}
		return structpb.NewStringValue(n.String()), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("parsing metadata number %q: %w", n.String(), err)
	}
	return structpb.NewNumberValue(f), nil
}
