package reconcile

import (
	"math"
	"strconv"
	"strings"
)

// RawOrder is one order record as it arrives from the upstream API or the
// local queue, before normalization. The known shapes differ (flat upstream
// records, legacy-local records with nested reservation/shipping objects,
// new-local flat records), so every access is defensive.
type RawOrder map[string]any

// Str returns the first non-empty string value among keys. Numeric values
// are stringified, since legacy local records carry numeric ids.
func (r RawOrder) Str(keys ...string) string {
	for _, k := range keys {
		switch v := r[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			if v == math.Trunc(v) {
				return strconv.FormatInt(int64(v), 10)
			}
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		}
	}
	return ""
}

// Num returns the first positive numeric value among keys.
func (r RawOrder) Num(keys ...string) float64 {
	for _, k := range keys {
		switch v := r[k].(type) {
		case float64:
			if v != 0 {
				return v
			}
		case int:
			if v != 0 {
				return float64(v)
			}
		case int64:
			if v != 0 {
				return float64(v)
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f != 0 {
				return f
			}
		}
	}
	return 0
}

// Sub returns the nested object under key, or nil when absent or not an object.
func (r RawOrder) Sub(key string) RawOrder {
	if m, ok := r[key].(map[string]any); ok {
		return RawOrder(m)
	}
	return nil
}

// First returns the first element of the array under key, or nil.
func (r RawOrder) First(key string) RawOrder {
	if arr, ok := r[key].([]any); ok && len(arr) > 0 {
		if m, ok := arr[0].(map[string]any); ok {
			return RawOrder(m)
		}
	}
	return nil
}

// orFallback returns r itself when the nested object is missing, mirroring
// the legacy shapes where reservation/shipping fields live on the top level.
func (r RawOrder) orFallback(key string) RawOrder {
	if sub := r.Sub(key); sub != nil {
		return sub
	}
	return r
}
