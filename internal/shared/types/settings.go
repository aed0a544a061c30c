package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Settings is a nested option map. Keys of nested maps are addressed with
// dotted paths such as "import.batch-size".
type Settings map[string]any

// Get resolves a dotted path.
func (s Settings) Get(path string) (any, bool) {
	var cur any = s
	for _, key := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// GetString returns the value at path rendered as a string, or def.
func (s Settings) GetString(path, def string) string {
	v, ok := s.Get(path)
	if !ok || v == nil {
		return def
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

// GetInt returns the value at path as an int, or def if it is missing or
// not numeric.
func (s Settings) GetInt(path string, def int) int {
	v, ok := s.Get(path)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return def
}

// GetBool returns the value at path as a bool, or def.
func (s Settings) GetBool(path string, def bool) bool {
	v, ok := s.Get(path)
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
	}
	return def
}

// GetDuration returns the value at path as a duration. Strings use
// time.ParseDuration syntax.
func (s Settings) GetDuration(path string, def time.Duration) time.Duration {
	v, ok := s.Get(path)
	if !ok {
		return def
	}
	switch d := v.(type) {
	case time.Duration:
		return d
	case string:
		if parsed, err := time.ParseDuration(d); err == nil {
			return parsed
		}
	}
	return def
}

// Put stores value at path, creating intermediate maps as needed.
func (s Settings) Put(path string, value any) {
	keys := strings.Split(path, ".")
	cur := s
	for _, key := range keys[:len(keys)-1] {
		next, ok := asMap(cur[key])
		if !ok {
			next = Settings{}
			cur[key] = next
		}
		cur = next
	}
	cur[keys[len(keys)-1]] = value
}

// Dict returns the nested map at path, or nil.
func (s Settings) Dict(path string) Settings {
	v, ok := s.Get(path)
	if !ok {
		return nil
	}
	m, _ := asMap(v)
	return m
}

// Merge overlays src onto s. Nested maps merge recursively; on conflict the
// value from src wins.
func (s Settings) Merge(src Settings) {
	for k, v := range src {
		srcMap, srcIsMap := asMap(v)
		dstMap, dstIsMap := asMap(s[k])
		if srcIsMap && dstIsMap {
			dstMap.Merge(srcMap)
			s[k] = dstMap
			continue
		}
		if srcIsMap {
			v = srcMap.Clone()
		}
		s[k] = v
	}
}

// Clone returns a deep copy of the nested maps. Leaf values are shared.
func (s Settings) Clone() Settings {
	if s == nil {
		return nil
	}
	out := make(Settings, len(s))
	for k, v := range s {
		if m, ok := asMap(v); ok {
			out[k] = m.Clone()
			continue
		}
		out[k] = v
	}
	return out
}

func asMap(v any) (Settings, bool) {
	switch m := v.(type) {
	case Settings:
		return m, m != nil
	case map[string]any:
		return Settings(m), m != nil
	}
	return nil, false
}
