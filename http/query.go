package http

import (
	"slices"
	"strings"
)

// ParseQuery splits a query string on '&' and each segment on its first '='.
// A segment without '=' maps to the empty string. Values are not unescaped.
func ParseQuery(query string) map[string]string {
	params := map[string]string{}
	for _, segment := range strings.Split(query, "&") {
		if segment == "" {
			continue
		}

		key, value, _ := strings.Cut(segment, "=")
		params[key] = value
	}

	return params
}

// EncodeQuery is the inverse of ParseQuery, with keys in sorted order.
func EncodeQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var sb strings.Builder
	for i, key := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(key)
		sb.WriteByte('=')
		sb.WriteString(params[key])
	}

	return sb.String()
}
