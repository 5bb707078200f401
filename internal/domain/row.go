package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Row is a single loosely-typed record returned by the appliance API.
type Row map[string]any

// String returns the first non-empty value stored under any of keys,
// formatted as a string. Numbers, booleans and YAML timestamps are
// stringified.
func (r Row) String(keys ...string) string {
	for _, key := range keys {
		v, ok := r[key]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case json.Number:
			s = t.String()
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		case int:
			s = strconv.Itoa(t)
		case int64:
			s = strconv.FormatInt(t, 10)
		case bool:
			s = strconv.FormatBool(t)
		case time.Time:
			s = t.Format(time.RFC3339)
		default:
			s = fmt.Sprint(t)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// Bool interprets the value under key as a boolean. The appliance reports
// flags as JSON booleans, "1"/"0" strings or "true"/"false" strings.
func (r Row) Bool(key string) bool {
	switch t := r[key].(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes", "on", "online":
			return true
		}
	case float64:
		return t != 0
	case int:
		return t != 0
	case json.Number:
		n, err := t.Int64()
		return err == nil && n != 0
	}
	return false
}

// Int returns the value under key as an integer, or 0 if absent or malformed.
func (r Row) Int(key string) int64 {
	switch t := r[key].(type) {
	case float64:
		return int64(t)
	case int:
		return int64(t)
	case int64:
		return t
	case json.Number:
		n, _ := t.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n
	}
	return 0
}

// Has reports whether key is present with a non-nil value.
func (r Row) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// Nested returns the map stored under key as a Row, or nil.
func (r Row) Nested(key string) Row {
	switch t := r[key].(type) {
	case map[string]any:
		return Row(t)
	case Row:
		return t
	}
	return nil
}
