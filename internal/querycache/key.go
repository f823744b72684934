package querycache

import "strings"

// KeySeparator delimits the segments of a cache key.
const KeySeparator = ":"

// Key identifies one cached query result, e.g. "enrollments:detail:e1".
type Key string

// NewKey joins non-empty segments into a key.
func NewKey(parts ...string) Key {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, trimmed)
	}
	return Key(strings.Join(values, KeySeparator))
}

// Matches reports whether k equals filter or sits below it in the key
// hierarchy. "enrollments:list" matches "enrollments:list:child=c1" but not
// "enrollments:listing".
func (k Key) Matches(filter Key) bool {
	if filter == "" {
		return false
	}
	return k == filter || strings.HasPrefix(string(k), string(filter)+KeySeparator)
}

func matchesAny(k Key, filters []Key) bool {
	for _, f := range filters {
		if k.Matches(f) {
			return true
		}
	}
	return false
}
