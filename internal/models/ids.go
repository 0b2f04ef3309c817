package models

import "strings"

// EnginePrefix marks canonical records created by the import engine.
// The dedup index only loads records WITHOUT it; the persistence
// duplicate guard only checks records WITH it.
const EnginePrefix = "IMP-"

// EnginePublicID issues the public id for a scraped listing, preferring
// the embedded listing code over the raw source id.
func EnginePublicID(code, sourceID string) string {
	if code != "" {
		return EnginePrefix + sanitizeID(code)
	}
	if sourceID != "" {
		return EnginePrefix + sanitizeID(sourceID)
	}
	return ""
}

// PublicIDCandidates returns every engine-issued public id the given
// raw identifiers could have produced. An earlier run may have seen the
// listing without its code and issued the id from the source id (or
// vice versa), so the duplicate guard checks all of them.
func PublicIDCandidates(ids ...string) []string {
	var out []string
	seen := map[string]bool{}
	for _, id := range ids {
		if id == "" {
			continue
		}
		pid := EnginePrefix + sanitizeID(id)
		if !seen[pid] {
			seen[pid] = true
			out = append(out, pid)
		}
	}
	return out
}

func sanitizeID(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, s)
}
