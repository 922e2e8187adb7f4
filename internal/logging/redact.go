package logging

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

const redacted = "***REDACTED***"

var redactKeys = map[string]struct{}{
	"password":        {},
	"api_key":         {},
	"apikey":          {},
	"access_token":    {},
	"secret":          {},
	"recipientemail":  {},
	"recipient_email": {},
}

// RedactJSON masks sensitive keys anywhere in a JSON document.
// Input that is not JSON is returned unchanged.
func RedactJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}

	b, err := json.Marshal(redactValue(v))
	if err != nil {
		return raw
	}
	return string(b)
}

// Payload is a zap field carrying v as redacted JSON
func Payload(key string, v any) zap.Field {
	b, err := json.Marshal(v)
	if err != nil {
		return zap.NamedError(key, err)
	}
	return zap.String(key, RedactJSON(string(b)))
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			if _, ok := redactKeys[strings.ToLower(k)]; ok {
				out[k] = redacted
				continue
			}
			out[k] = redactValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = redactValue(t[i])
		}
		return out
	default:
		return v
	}
}
