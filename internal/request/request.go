// Package request holds the small request flattening helpers shared by the
// echo, command and mock endpoints.
package request

import (
	"net/http"
	"sort"
	"strings"
)

// QueryMap flattens the query string; for a repeated key the last value wins.
func QueryMap(r *http.Request) map[string]string {
	q := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			q[key] = values[len(values)-1]
		}
	}
	return q
}

// FoldHeader joins every value of a header name into one comma separated
// string, in the order received. Names are lower-cased; raw names that fold
// to the same key are joined in sorted order. Host is included even though
// net/http keeps it out of r.Header.
func FoldHeader(r *http.Request) map[string]string {
	names := make([]string, 0, len(r.Header))
	for name := range r.Header {
		names = append(names, name)
	}
	sort.Strings(names)

	h := make(map[string]string, len(names)+1)
	for _, name := range names {
		key := strings.ToLower(name)
		joined := strings.Join(r.Header[name], ",")
		if prev, ok := h[key]; ok {
			joined = prev + "," + joined
		}
		h[key] = joined
	}
	if _, ok := h["host"]; !ok && r.Host != "" {
		h["host"] = r.Host
	}
	return h
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
