package transform

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	case int, int32, int64, float64, bool:
		return fmt.Sprint(s), true
	}
	return "", false
}

// asStrings accepts a single value or a list and drops empty elements.
func asStrings(v any) []string {
	res := []string{}
	add := func(e any) {
		if s, ok := asString(e); ok {
			if s = strings.TrimSpace(s); s != "" {
				res = append(res, s)
			}
		}
	}
	switch l := v.(type) {
	case nil:
	case []string:
		for _, e := range l {
			add(e)
		}
	case []any:
		for _, e := range l {
			add(e)
		}
	default:
		add(l)
	}
	return res
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(math.Round(n)), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return asInt(f)
	}
	return 0, false
}

// asTime accepts time values, common string layouts and unix seconds.
func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return t.UTC(), true
	case string:
		t = strings.TrimSpace(t)
		for _, l := range timeLayouts {
			if res, err := time.Parse(l, t); err == nil {
				return res.UTC(), true
			}
		}
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return time.Unix(n, 0).UTC(), true
		}
	case int64:
		return time.Unix(t, 0).UTC(), true
	case int:
		return time.Unix(int64(t), 0).UTC(), true
	case float64:
		return time.Unix(int64(t), 0).UTC(), true
	}
	return time.Time{}, false
}
