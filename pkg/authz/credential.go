package authz

import (
	"strings"
	"unicode/utf8"

	corev3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
)

const (
	headerAuthorization     = "authorization"
	headerAPIKeyHyphen      = "x-api-key"
	headerAPIKeyUnderscore  = "x-api_key"
	headerAPITokenHyphen    = "x-api-token"
	headerAPITokenUnderscore = "x-api_token"
)

// extractCredential locates the API-key credential in the request's HTTP
// attributes. The flat headers map is authoritative when non-empty; the
// header_map shape (which preserves raw, possibly non-UTF-8 bytes and
// duplicate keys) is only consulted when the flat map is entirely absent.
func extractCredential(headers map[string]string, headerMap *corev3.HeaderMap) string {
	if len(headers) > 0 {
		return credentialFromMap(headers)
	}
	return credentialFromHeaderMap(headerMap)
}

// credentialFromMap applies the fixed priority order: a Bearer-prefixed
// authorization header first, then the first non-empty api-key alias.
func credentialFromMap(headers map[string]string) string {
	if v, ok := headers[headerAuthorization]; ok {
		if cred, ok := stripBearerPrefix(v); ok {
			return cred
		}
	}
	for _, key := range []string{headerAPIKeyHyphen, headerAPIKeyUnderscore, headerAPITokenHyphen, headerAPITokenUnderscore} {
		if v := headers[key]; v != "" {
			return v
		}
	}
	return ""
}

func stripBearerPrefix(value string) (string, bool) {
	for _, prefix := range []string{"Bearer ", "bearer "} {
		if strings.HasPrefix(value, prefix) {
			rest := strings.TrimSpace(strings.TrimPrefix(value, prefix))
			if rest != "" {
				return rest, true
			}
		}
	}
	return "", false
}

// credentialFromHeaderMap flattens a repeated HeaderValue list into a
// lowercase-keyed map, decoding raw_value as UTF-8 and silently dropping
// entries that aren't valid UTF-8, then applies the same priority order.
func credentialFromHeaderMap(headerMap *corev3.HeaderMap) string {
	if headerMap == nil {
		return ""
	}

	flat := make(map[string]string, len(headerMap.GetHeaders()))
	for _, h := range headerMap.GetHeaders() {
		raw := h.GetRawValue()
		if len(raw) == 0 {
			raw = []byte(h.GetValue())
		}
		if !utf8.Valid(raw) {
			continue
		}
		flat[strings.ToLower(h.GetKey())] = string(raw)
	}
	return credentialFromMap(flat)
}
