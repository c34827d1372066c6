// Package fuzzy matches a typed name against a bounded list of catalog names.
//
// Resolution is layered and the first tier that produces a hit wins:
//
//  1. case-insensitive prefix match, shortest candidate preferred
//  2. exact match of the normalized forms
//  3. normalized (or stemmed) containment in either direction, shortest preferred
//  4. best edit-distance similarity, accepted only at or above the threshold
package fuzzy

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/avvvet/erpbuddy-assistant/internal/textnorm"
)

// Default thresholds. Both are empirical and exposed through config.
const (
	EntityThreshold = 0.55
	TaskThreshold   = 0.62
)

// Tier identifies which strategy produced a match.
type Tier int

const (
	TierNone Tier = iota
	TierPrefix
	TierExact
	TierContains
	TierSimilarity
)

func (t Tier) String() string {
	switch t {
	case TierPrefix:
		return "prefix"
	case TierExact:
		return "exact"
	case TierContains:
		return "contains"
	case TierSimilarity:
		return "similarity"
	default:
		return "none"
	}
}

// Match is the outcome of a resolution.
type Match struct {
	Candidate string
	Tier      Tier
	Score     float64
}

// Resolver runs the tiers with one normalizer, so a typo table configured
// for classification also applies to entity names.
type Resolver struct {
	norm *textnorm.Normalizer
}

// NewResolver returns a Resolver over n. A nil n uses the default typo table.
func NewResolver(n *textnorm.Normalizer) *Resolver {
	if n == nil {
		n = textnorm.New(nil)
	}
	return &Resolver{norm: n}
}

// Resolve returns the best candidate for entered, or false when no tier
// produced a hit.
func (r *Resolver) Resolve(entered string, candidates []string, threshold float64) (string, bool) {
	m, ok := r.ResolveMatch(entered, candidates, threshold)
	return m.Candidate, ok
}

// ResolveMatch is Resolve that also reports the tier and score.
func (r *Resolver) ResolveMatch(entered string, candidates []string, threshold float64) (Match, bool) {
	entered = strings.TrimSpace(entered)
	if entered == "" || len(candidates) == 0 {
		return Match{}, false
	}

	lower := strings.ToLower(entered)
	if c, ok := shortest(candidates, func(c string) bool {
		return strings.HasPrefix(strings.ToLower(strings.TrimSpace(c)), lower)
	}); ok {
		return Match{Candidate: c, Tier: TierPrefix, Score: 1}, true
	}

	key := r.norm.Normalize(entered)
	if key == "" {
		return Match{}, false
	}
	for _, c := range candidates {
		if r.norm.Normalize(c) == key {
			return Match{Candidate: c, Tier: TierExact, Score: 1}, true
		}
	}

	stem := r.stemKey(entered)
	if c, ok := shortest(candidates, func(c string) bool {
		ck := r.norm.Normalize(c)
		if ck == "" {
			return false
		}
		if strings.Contains(ck, key) || strings.Contains(key, ck) {
			return true
		}
		cs := r.stemKey(c)
		return cs != "" && stem != "" && (strings.Contains(cs, stem) || strings.Contains(stem, cs))
	}); ok {
		return Match{Candidate: c, Tier: TierContains, Score: 1}, true
	}

	best, score := r.Best(entered, candidates)
	if best == "" || score < threshold {
		return Match{}, false
	}
	return Match{Candidate: best, Tier: TierSimilarity, Score: score}, true
}

// Best returns the candidate with the highest Similarity to entered. Ties go
// to the earlier candidate.
func (r *Resolver) Best(entered string, candidates []string) (string, float64) {
	var (
		best  string
		score = -1.0
	)
	for _, c := range candidates {
		if s := r.Similarity(entered, c); s > score {
			best, score = c, s
		}
	}
	if score < 0 {
		return "", 0
	}
	return best, score
}

// Similarity is 1 - editDistance/max(len(a), len(b)) over normalized forms.
func (r *Resolver) Similarity(a, b string) float64 {
	return similarity(r.norm.Normalize(a), r.norm.Normalize(b))
}

func similarity(na, nb string) float64 {
	la, lb := utf8.RuneCountInString(na), utf8.RuneCountInString(nb)
	longest := max(la, lb)
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(na, nb))/float64(longest)
}

func shortest(candidates []string, pred func(string) bool) (string, bool) {
	var (
		best  string
		found bool
	)
	for _, c := range candidates {
		if !pred(c) {
			continue
		}
		if !found || utf8.RuneCountInString(c) < utf8.RuneCountInString(best) {
			best, found = c, true
		}
	}
	return best, found
}

// stemKey normalizes text and trims plural and -y endings word by word so
// "supply" and "supplies" share a key.
func (r *Resolver) stemKey(text string) string {
	words := strings.Fields(r.norm.Fold(text))
	for i, w := range words {
		words[i] = stem(w)
	}
	return strings.Join(words, "")
}

func stem(w string) string {
	for _, suffix := range []string{"ies", "es", "s", "y"} {
		if len(w) > len(suffix)+2 && strings.HasSuffix(w, suffix) {
			return strings.TrimSuffix(w, suffix)
		}
	}
	return w
}
