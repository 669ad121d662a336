package match

import (
	"slices"
	"strings"

	"github.com/skillswap/exchange-server-go/internal/model"
)

// GeneralExchangeSkill labels a session when the two profiles share no skill.
const GeneralExchangeSkill = "General Exchange"

// Normalize lowercases and trims every entry, keeping order. A nil input yields an
// empty slice.
func Normalize(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		out = append(out, normalizeOne(s))
	}
	return out
}

func normalizeOne(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// teaches reports whether anything in offered appears in wanted after normalization.
func teaches(offered, wanted []string) bool {
	want := Normalize(wanted)
	for _, o := range Normalize(offered) {
		if slices.Contains(want, o) {
			return true
		}
	}
	return false
}

// IsMutualMatch is true when each profile offers at least one skill the other wants.
func IsMutualMatch(a, b model.UserProfile) bool {
	return teaches(a.SkillsOffered, b.SkillsWanted) && teaches(b.SkillsOffered, a.SkillsWanted)
}

// FindMatches filters pool down to mutual matches of current, excluding current
// itself. Pool order is preserved and the result is never nil.
func FindMatches(current model.UserProfile, pool []model.UserProfile) []model.UserProfile {
	matches := make([]model.UserProfile, 0)
	for _, candidate := range pool {
		if candidate.ID == current.ID {
			continue
		}
		if IsMutualMatch(current, candidate) {
			matches = append(matches, candidate)
		}
	}
	return matches
}

// Community returns pool without current, in pool order.
func Community(current model.UserProfile, pool []model.UserProfile) []model.UserProfile {
	out := make([]model.UserProfile, 0, len(pool))
	for _, p := range pool {
		if p.ID != current.ID {
			out = append(out, p)
		}
	}
	return out
}

// DeriveSkill picks the subject of a session between current (the learner) and
// candidate (the teacher). The candidate's own spelling is returned, trimmed.
func DeriveSkill(current, candidate model.UserProfile) string {
	if s, ok := firstShared(candidate.SkillsOffered, current.SkillsWanted); ok {
		return s
	}
	if s, ok := firstShared(candidate.SkillsWanted, current.SkillsOffered); ok {
		return s
	}
	if len(candidate.SkillsOffered) > 0 {
		if first := strings.TrimSpace(candidate.SkillsOffered[0]); first != "" {
			return first
		}
	}
	return GeneralExchangeSkill
}

func firstShared(from, against []string) (string, bool) {
	norm := Normalize(against)
	for _, s := range from {
		n := normalizeOne(s)
		if n == "" {
			continue
		}
		if slices.Contains(norm, n) {
			return strings.TrimSpace(s), true
		}
	}
	return "", false
}
