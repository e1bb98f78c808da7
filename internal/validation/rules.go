package validation

import (
	"encoding/json"
	"math"
	"net/mail"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// String accepts a string whose length in characters lies in [min, max].
// max <= 0 disables the upper bound. Surrounding whitespace is trimmed.
func String(min, max int) Rule {
	return func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, errorf("must be a string")
		}
		s = strings.TrimSpace(s)
		n := utf8.RuneCountInString(s)
		if n < min {
			return nil, errorf("must be at least %d characters", min)
		}
		if max > 0 && n > max {
			return nil, errorf("must be at most %d characters", max)
		}
		return s, nil
	}
}

// Password is String without trimming.
func Password(min int) Rule {
	return func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, errorf("must be a string")
		}
		if utf8.RuneCountInString(s) < min {
			return nil, errorf("must be at least %d characters", min)
		}
		return s, nil
	}
}

// Email accepts a bare address such as ann@example.com.
func Email() Rule {
	return func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, errorf("must be a string")
		}
		s = strings.TrimSpace(s)
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s || !strings.Contains(s, "@") {
			return nil, errorf("must be a valid email address")
		}
		return strings.ToLower(s), nil
	}
}

// Enum accepts one of the given strings.
func Enum(values ...string) Rule {
	allowed := make(map[string]bool, len(values))
	for _, v := range values {
		allowed[v] = true
	}
	list := strings.Join(values, ", ")
	return func(v any) (any, error) {
		s, ok := v.(string)
		if !ok || !allowed[s] {
			return nil, errorf("must be one of: %s", list)
		}
		return s, nil
	}
}

// Number accepts a finite JSON number >= min.
func Number(min float64) Rule {
	return func(v any) (any, error) {
		f, ok := toFloat(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, errorf("must be a number")
		}
		if f < min {
			return nil, errorf("must be at least %g", min)
		}
		return f, nil
	}
}

// Integer accepts a whole JSON number >= min.
func Integer(min int64) Rule {
	return func(v any) (any, error) {
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return nil, errorf("must be an integer")
		}
		n := int64(f)
		if n < min {
			return nil, errorf("must be at least %d", min)
		}
		return n, nil
	}
}

// Date accepts YYYY-MM-DD or an RFC 3339 timestamp and normalizes to
// YYYY-MM-DD.
func Date() Rule {
	return func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, errorf("must be a date string")
		}
		s = strings.TrimSpace(s)
		for _, layout := range []string{time.DateOnly, time.RFC3339Nano} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(time.DateOnly), nil
			}
		}
		return nil, errorf("must be a date in YYYY-MM-DD format")
	}
}

// ClockTime accepts HH:MM, HH:MM:SS or an RFC 3339 timestamp.
func ClockTime() Rule {
	return func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, errorf("must be a time string")
		}
		s = strings.TrimSpace(s)
		for _, layout := range []string{"15:04", time.TimeOnly, time.RFC3339Nano} {
			if _, err := time.Parse(layout, s); err == nil {
				return s, nil
			}
		}
		return nil, errorf("must be a time in HH:MM format")
	}
}

// URL accepts an absolute http or https URL.
func URL() Rule {
	return func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, errorf("must be a string")
		}
		s = strings.TrimSpace(s)
		u, err := url.ParseRequestURI(s)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, errorf("must be an http(s) URL")
		}
		return s, nil
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
