package middleware

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"
)

const redactedPlaceholder = "[redacted]"

// Headers that never reach the log store.
var strippedHeaders = map[string]struct{}{
	"authorization":       {},
	"proxy-authorization": {},
	"cookie":              {},
	"set-cookie":          {},
	"x-csrftoken":         {},
	"x-xsrf-token":        {},
	"x-api-key":           {},
}

// sanitizeHeaders flattens h into a JSON object without credential headers.
func sanitizeHeaders(h http.Header) map[string]interface{} {
	out := make(map[string]interface{}, len(h))
	for name, values := range h {
		if _, drop := strippedHeaders[strings.ToLower(name)]; drop {
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func flattenQuery(q url.Values) map[string]interface{} {
	out := make(map[string]interface{}, len(q))
	for key, values := range q {
		if len(values) == 1 {
			out[key] = values[0]
			continue
		}
		list := make([]interface{}, len(values))
		for i, v := range values {
			list[i] = v
		}
		out[key] = list
	}
	return out
}

// captureBody renders a request or response body for storage. Bodies that
// are not valid UTF-8 are omitted; the rest are redacted on credential
// endpoints and cut to maxChars runes.
func captureBody(path string, body []byte, maxChars int) *string {
	if len(body) == 0 || !utf8.Valid(body) {
		return nil
	}
	text := redactBody(path, body)
	text = truncateRunes(text, maxChars)
	return &text
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

func redactBody(path string, body []byte) string {
	if !isSensitivePath(path) {
		return string(body)
	}
	redacted, ok := redactJSON(body)
	if !ok {
		return redactedPlaceholder
	}
	return string(redacted)
}

func isSensitivePath(path string) bool {
	return strings.HasPrefix(path, "/api/token")
}

func redactJSON(body []byte) ([]byte, bool) {
	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, false
	}
	redactValue(&data)
	out, err := json.Marshal(data)
	if err != nil {
		return nil, false
	}
	return out, true
}

func redactValue(v *interface{}) {
	switch raw := (*v).(type) {
	case map[string]interface{}:
		for key, val := range raw {
			if isSensitiveKey(key) {
				raw[key] = "***"
				continue
			}
			vv := val
			redactValue(&vv)
			raw[key] = vv
		}
	case []interface{}:
		for i, val := range raw {
			vv := val
			redactValue(&vv)
			raw[i] = vv
		}
	}
}

func isSensitiveKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "password",
		"access",
		"refresh",
		"token",
		"secret":
		return true
	default:
		return false
	}
}
