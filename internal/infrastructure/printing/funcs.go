package printing

import (
	"encoding/json"
	"fmt"
	"html/template"
	"reflect"
	"strings"
	"time"

	"github.com/labelprint/backend/internal/infrastructure/imagedata"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// formatFuncs returns the formatting functions available to every template
func formatFuncs() template.FuncMap {
	return template.FuncMap{
		// Date formatting
		"formatDate":     formatDate,
		"formatDateTime": formatDateTime,

		// Number formatting
		"formatDecimal": formatDecimal,
		"formatInt":     formatInt,
		"formatPercent": formatPercent,

		// String utilities
		"truncate":   truncate,
		"padLeft":    padLeft,
		"padRight":   padRight,
		"join":       join,
		"upper":      strings.ToUpper,
		"lower":      strings.ToLower,
		"title":      titleCase,
		"trim":       strings.TrimSpace,
		"replace":    strings.ReplaceAll,
		"split":      strings.Split,
		"contains":   strings.Contains,
		"hasPrefix":  strings.HasPrefix,
		"hasSuffix":  strings.HasSuffix,
		"trimPrefix": strings.TrimPrefix,
		"trimSuffix": strings.TrimSuffix,
		"str":        imagedata.ToString,
		"nl2br":      nl2br,

		// Arithmetic
		"add":   add,
		"sub":   sub,
		"mul":   mul,
		"div":   div,
		"mod":   mod,
		"round": roundFunc,

		// Collections
		"seq":    seq,
		"repeat": strings.Repeat,
		"empty":  empty,

		// Conditional
		"default":  defaultFunc,
		"ternary":  ternary,
		"coalesce": coalesce,

		// Trusted content
		"safeHTML": safeHTML,
		"safeCSS":  safeCSS,
		"safeURL":  safeURL,

		"dict": dict,
	}
}

// =============================================================================
// Date Formatting
// =============================================================================

// formatDate formats a date, with an optional Go layout.
// Example: "2024-01-15T14:30:00Z" -> "2024-01-15"
func formatDate(v any, layout ...string) string {
	t := toTime(v)
	if t.IsZero() {
		return ""
	}
	if len(layout) > 0 && layout[0] != "" {
		return t.Format(layout[0])
	}
	return t.Format("2006-01-02")
}

// formatDateTime formats as "2006-01-02 15:04:05"
func formatDateTime(v any) string {
	t := toTime(v)
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

// =============================================================================
// Number Formatting
// =============================================================================

// formatDecimal formats a number with fixed precision
func formatDecimal(v any, precision int) string {
	return toDecimal(v).StringFixed(int32(precision))
}

// formatInt formats as integer
func formatInt(v any) string {
	return toDecimal(v).Round(0).String()
}

// formatPercent formats as percentage
// Example: 0.15 -> "15%"
func formatPercent(v any, precision int) string {
	percent := toDecimal(v).Mul(decimal.NewFromInt(100))
	return percent.StringFixed(int32(precision)) + "%"
}

// =============================================================================
// String Utilities
// =============================================================================

// truncate truncates a string to max runes with optional suffix
func truncate(s string, max int, suffix ...string) string {
	suf := "..."
	if len(suffix) > 0 {
		suf = suffix[0]
	}
	runes := []rune(s)
	sufRunes := []rune(suf)
	if len(runes) <= max {
		return s
	}
	if max <= 0 {
		return ""
	}
	if max <= len(sufRunes) {
		return string(sufRunes[:max])
	}
	return string(runes[:max-len(sufRunes)]) + suf
}

// padLeft pads on the left to reach length runes.
// Example: {{ padLeft .serial 6 "0" }} -> "000042"
func padLeft(v any, length int, pad string) string {
	s := imagedata.ToString(v)
	n := len([]rune(s))
	if n >= length || pad == "" {
		return s
	}
	return string(padding(pad, length-n)) + s
}

// padRight pads on the right to reach length runes
func padRight(v any, length int, pad string) string {
	s := imagedata.ToString(v)
	n := len([]rune(s))
	if n >= length || pad == "" {
		return s
	}
	return s + string(padding(pad, length-n))
}

func padding(pad string, n int) []rune {
	p := []rune(pad)
	return []rune(strings.Repeat(pad, n/len(p)+1))[:n]
}

// join concatenates list elements; accepts []string and []any from JSON
func join(v any, sep string) string {
	switch val := v.(type) {
	case []string:
		return strings.Join(val, sep)
	case nil:
		return ""
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return imagedata.ToString(v)
	}
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = imagedata.ToString(rv.Index(i).Interface())
	}
	return strings.Join(parts, sep)
}

// titleCase converts string to title case using proper Unicode handling
func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

// nl2br turns line breaks into <br> so wrapped text keeps its lines
func nl2br(s string) template.HTML {
	escaped := template.HTMLEscapeString(s)
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

// =============================================================================
// Arithmetic
// =============================================================================

func add(a, b any) decimal.Decimal {
	return toDecimal(a).Add(toDecimal(b))
}

func sub(a, b any) decimal.Decimal {
	return toDecimal(a).Sub(toDecimal(b))
}

func mul(a, b any) decimal.Decimal {
	return toDecimal(a).Mul(toDecimal(b))
}

func div(a, b any) decimal.Decimal {
	bDec := toDecimal(b)
	if bDec.IsZero() {
		return decimal.Zero
	}
	return toDecimal(a).Div(bDec)
}

func mod(a, b any) decimal.Decimal {
	bDec := toDecimal(b)
	if bDec.IsZero() {
		return decimal.Zero
	}
	return toDecimal(a).Mod(bDec)
}

func roundFunc(v any, places int) decimal.Decimal {
	return toDecimal(v).Round(int32(places))
}

// =============================================================================
// Collections and Conditionals
// =============================================================================

// seq returns 0..n-1, for repeating a block: {{ range seq 3 }}
func seq(n int) []int {
	if n <= 0 {
		return []int{}
	}
	result := make([]int, n)
	for i := range result {
		result[i] = i
	}
	return result
}

func empty(v any) bool {
	if v == nil {
		return true
	}
	switch val := v.(type) {
	case string:
		return val == ""
	case template.URL:
		return val == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// defaultFunc returns def when val is empty: {{ default "n/a" .batch }}
func defaultFunc(def, val any) any {
	if empty(val) {
		return def
	}
	return val
}

func ternary(condition bool, trueVal, falseVal any) any {
	if condition {
		return trueVal
	}
	return falseVal
}

func coalesce(vals ...any) any {
	for _, v := range vals {
		if !empty(v) {
			return v
		}
	}
	return nil
}

func safeHTML(s string) template.HTML {
	return template.HTML(s)
}

func safeCSS(s string) template.CSS {
	return template.CSS(s)
}

func safeURL(s string) template.URL {
	return template.URL(s)
}

// dict builds a map from key/value pairs for passing to sub-templates
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict expects an even number of arguments, got %d", len(pairs))
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

// =============================================================================
// Conversions
// =============================================================================

// toDecimal converts numbers and numeric strings to decimal.Decimal
func toDecimal(v any) decimal.Decimal {
	switch val := v.(type) {
	case decimal.Decimal:
		return val
	case int:
		return decimal.NewFromInt(int64(val))
	case int32:
		return decimal.NewFromInt(int64(val))
	case int64:
		return decimal.NewFromInt(val)
	case float32:
		return decimal.NewFromFloat32(val)
	case float64:
		return decimal.NewFromFloat(val)
	case json.Number:
		return toDecimal(val.String())
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// toTime converts times, common date strings and unix seconds to time.Time
func toTime(v any) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val
	case *time.Time:
		if val == nil {
			return time.Time{}
		}
		return *val
	case string:
		formats := []string{
			time.RFC3339,
			"2006-01-02 15:04:05",
			"2006-01-02 15:04",
			"2006-01-02",
		}
		for _, f := range formats {
			if t, err := time.Parse(f, strings.TrimSpace(val)); err == nil {
				return t
			}
		}
		return time.Time{}
	case int64:
		return time.Unix(val, 0).UTC()
	case float64:
		return time.Unix(int64(val), 0).UTC()
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return time.Unix(i, 0).UTC()
		}
		return time.Time{}
	default:
		return time.Time{}
	}
}
