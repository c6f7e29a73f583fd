package format

import (
	"net/url"
	"strconv"
	"strings"
)

// Helpers for probing loosely-typed JSON payloads. Absent or mistyped fields
// fall back to zero values; the formatter must never panic on upstream data.

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func num(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func arr(m map[string]any, key string) []any {
	a, _ := m[key].([]any)
	return a
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

// formatAny renders a scalar the way the source JSON showed it: whole numbers
// without a decimal point.
func formatAny(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return formatNum(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// linkTag extracts the display tag of a subscription link: the percent-decoded
// text between the first and second "#", or the whole link when that segment
// is absent or empty.
func linkTag(link string) string {
	tag := link
	if i := strings.Index(link, "#"); i >= 0 {
		seg := link[i+1:]
		if j := strings.Index(seg, "#"); j >= 0 {
			seg = seg[:j]
		}
		if seg != "" {
			tag = seg
		}
	}
	if dec, err := url.PathUnescape(tag); err == nil {
		return dec
	}
	return tag
}
