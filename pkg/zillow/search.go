package zillow

import (
	"sort"
	"strconv"
	"strings"
)

// maxScanDepth bounds the fallback scan over unrecognized payloads.
const maxScanDepth = 4

// ExtractSearchHits pulls candidate property records out of a search
// response. The known response shapes are tried in order:
//
//  1. the response object is itself a single property
//  2. a top-level "props" array
//  3. a top-level "results" array
//  4. "body.props"
//  5. "body" as a single property
//
// The first shape that yields hits wins. Anything else falls back to a
// heuristic recursive scan (objects and arrays, up to four levels deep) that
// collects every object that looks like a hit. Hits are de-duplicated by zpid.
func ExtractSearchHits(resp any) []map[string]any {
	obj, ok := resp.(map[string]any)
	if !ok {
		if arr, ok := resp.([]any); ok {
			if hits := hitsFromArray(arr); len(hits) > 0 {
				return hits
			}
		}
		return scanHits(resp)
	}

	if IsSearchHit(obj) {
		return []map[string]any{obj}
	}
	for _, key := range []string{"props", "results"} {
		if arr, ok := obj[key].([]any); ok {
			if hits := hitsFromArray(arr); len(hits) > 0 {
				return hits
			}
		}
	}
	if body, ok := obj["body"].(map[string]any); ok {
		if arr, ok := body["props"].([]any); ok {
			if hits := hitsFromArray(arr); len(hits) > 0 {
				return hits
			}
		}
		if IsSearchHit(body) {
			return []map[string]any{body}
		}
	}

	return scanHits(resp)
}

// IsSearchHit reports whether v looks like a property record: it carries a
// string or numeric zpid, a non-blank address, or a price.
func IsSearchHit(v map[string]any) bool {
	if v == nil {
		return false
	}
	switch v["zpid"].(type) {
	case string, float64:
		return true
	}
	if s, ok := v["address"].(string); ok && strings.TrimSpace(s) != "" {
		return true
	}
	switch p := v["price"].(type) {
	case float64:
		return true
	case string:
		return strings.TrimSpace(p) != ""
	}
	return false
}

// HitZpid returns the hit's zpid as a string, or "" when absent.
func HitZpid(hit map[string]any) string {
	switch z := hit["zpid"].(type) {
	case string:
		return z
	case float64:
		return strconv.FormatFloat(z, 'f', -1, 64)
	}
	return ""
}

// BestHit returns the first hit carrying a zpid, else the first hit.
func BestHit(hits []map[string]any) map[string]any {
	for _, h := range hits {
		if HitZpid(h) != "" {
			return h
		}
	}
	if len(hits) > 0 {
		return hits[0]
	}
	return nil
}

type hitSet struct {
	hits []map[string]any
	seen map[string]bool
}

func (s *hitSet) add(hit map[string]any) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if z := HitZpid(hit); z != "" {
		if s.seen[z] {
			return
		}
		s.seen[z] = true
	}
	s.hits = append(s.hits, hit)
}

func hitsFromArray(arr []any) []map[string]any {
	var set hitSet
	for _, entry := range arr {
		if obj, ok := entry.(map[string]any); ok && IsSearchHit(obj) {
			set.add(obj)
		}
	}
	return set.hits
}

func scanHits(resp any) []map[string]any {
	var set hitSet
	var visit func(v any, depth int)
	visit = func(v any, depth int) {
		if depth > maxScanDepth || v == nil {
			return
		}
		switch t := v.(type) {
		case []any:
			for _, entry := range t {
				visit(entry, depth+1)
			}
		case map[string]any:
			if IsSearchHit(t) {
				set.add(t)
			}
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				visit(t[k], depth+1)
			}
		}
	}
	visit(resp, 0)
	return set.hits
}
