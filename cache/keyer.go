package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Keyer derives cache keys from request parameters.
//
// Contract:
// - Determinism: same category, same author set (any order) and equal filters
// produce the same key, regardless of map iteration order.
// - Nil and empty filters are identical.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(category string, authors []string, filters map[string]any) (string, error)
}

// DefaultKeyer hashes "<category>|<sorted authors joined by |>[|<filters JSON>]"
// with MD5 and hex-encodes the digest.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key derives the cache key. It fails only when a filter value cannot be
// encoded as JSON.
func (k *DefaultKeyer) Key(category string, authors []string, filters map[string]any) (string, error) {
	sorted := append([]string(nil), authors...)
	sort.Strings(sorted)

	var b strings.Builder
	b.WriteString(category)
	b.WriteByte('|')
	b.WriteString(strings.Join(sorted, "|"))

	if len(filters) > 0 {
		canonical, err := canonicalize(filters)
		if err != nil {
			return "", fmt.Errorf("cache: failed to canonicalize filters: %w", err)
		}
		b.WriteByte('|')
		b.Write(canonical)
	}

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:]), nil
}

// canonicalize produces a deterministic JSON representation of v.
// Map keys are sorted at every level.
func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeMap(val)
	case map[string]string:
		m := make(map[string]any, len(val))
		for k, s := range val {
			m[k] = s
		}
		return canonicalizeMap(m)
	case []any:
		return canonicalizeSlice(val)
	case []string:
		s := make([]any, len(val))
		for i, x := range val {
			s[i] = x
		}
		return canonicalizeSlice(s)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}
		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, ']'), nil
}

var _ Keyer = (*DefaultKeyer)(nil)
