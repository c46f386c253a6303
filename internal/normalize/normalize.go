// Package normalize converts arbitrary, possibly malformed raw detail
// records into well-typed TraceDetails. It is pure: no logging, no side
// effects, never panics. Every applied fallback is reported as a Warning so
// the boundary that called it can log structured warnings.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/evalbridge/evalbridge/internal/domain"
	"github.com/evalbridge/evalbridge/internal/pkg/id"
)

// unserializablePlaceholder replaces input/output values whose JSON
// serialization fails.
const unserializablePlaceholder = "[unserializable]"

// Warning reports one fallback applied while normalizing a record
type Warning struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// reserved keys consumed by the typed fields; everything else passes through
var reservedKeys = map[string]bool{
	"id":        true,
	"timestamp": true,
	"input":     true,
	"output":    true,
}

// Detail normalizes a raw detail record. It returns nil when raw is not a
// non-array object. A non-nil result always has id, timestamp, input and
// output populated and renderable.
func Detail(raw any) (*domain.TraceDetail, []Warning) {
	obj, ok := raw.(map[string]any)
	if !ok || obj == nil {
		return nil, nil
	}

	var warnings []Warning
	detail := &domain.TraceDetail{}

	// id: non-empty string after trimming, else a unique placeholder so the
	// caller can still key rows without collision
	if s, ok := obj["id"].(string); ok && strings.TrimSpace(s) != "" {
		detail.ID = strings.TrimSpace(s)
	} else {
		detail.ID = id.NewPlaceholder()
		warnings = append(warnings, Warning{Field: "id", Reason: "missing or empty, placeholder synthesized"})
	}

	// timestamp: unparseable values are replaced by "now"
	if ts, ok := parseTimestamp(obj["timestamp"]); ok {
		detail.Timestamp = ts
	} else {
		detail.Timestamp = time.Now()
		warnings = append(warnings, Warning{Field: "timestamp", Reason: "missing or unparseable, defaulted to fetch time"})
	}

	var w *Warning
	detail.Input, w = coerceText("input", obj["input"])
	if w != nil {
		warnings = append(warnings, *w)
	}
	detail.Output, w = coerceText("output", obj["output"])
	if w != nil {
		warnings = append(warnings, *w)
	}

	detail.Extra = copyExtras(obj)

	return detail, warnings
}

// parseTimestamp accepts strings, epoch milliseconds and time values
func parseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return t, true
	case string:
		return parseTimeString(t)
	case float64:
		return epochMillis(int64(t))
	case int64:
		return epochMillis(t)
	case int:
		return epochMillis(int64(t))
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return epochMillis(n)
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimeString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	// Numeric strings are treated as epoch milliseconds
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return epochMillis(n)
	}
	return time.Time{}, false
}

func epochMillis(n int64) (time.Time, bool) {
	if n <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(n), true
}

// coerceText turns any value into a renderable string: nil/absent becomes
// empty, primitives are converted, objects become best-effort JSON text
func coerceText(field string, v any) (string, *Warning) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case json.Number:
		return t.String(), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return unserializablePlaceholder, &Warning{Field: field, Reason: fmt.Sprintf("serialization failed: %v", err)}
		}
		return string(data), nil
	}
}

// copyExtras passes through unknown keys: primitives verbatim, plain objects
// as shallow copies. Arrays and unsupported types are dropped.
func copyExtras(obj map[string]any) map[string]any {
	var extra map[string]any
	for key, v := range obj {
		if reservedKeys[key] {
			continue
		}
		var kept any
		switch t := v.(type) {
		case string, bool, float64, int, int64, json.Number:
			kept = t
		case map[string]any:
			cp := make(map[string]any, len(t))
			for k2, v2 := range t {
				cp[k2] = v2
			}
			kept = cp
		default:
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[key] = kept
	}
	return extra
}
