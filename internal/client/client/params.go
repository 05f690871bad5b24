package client

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
)

// Params is a flat set of query parameters. Nil values, including typed nil
// pointers, are skipped; pointers are dereferenced before formatting.
type Params map[string]any

// Merge returns a copy of p overlaid with other.
func (p Params) Merge(other Params) Params {
	out := make(Params, len(p)+len(other))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Encode renders p as a query string sorted by key.
func (p Params) Encode() string {
	values := url.Values{}
	for k, v := range p {
		s, ok := formatParam(v)
		if !ok {
			continue
		}
		values.Set(k, s)
	}
	return values.Encode()
}

func formatParam(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Slice {
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts = append(parts, fmt.Sprint(rv.Index(i).Interface()))
		}
		return strings.Join(parts, ","), true
	}
	return fmt.Sprint(rv.Interface()), true
}

func buildURL(base, path string, query Params) string {
	u := strings.TrimRight(base, "/") + path
	if len(query) == 0 {
		return u
	}
	q := query.Encode()
	if q == "" {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + q
}
