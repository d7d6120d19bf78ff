// Package search provides the default template matcher on top of a fuzzy
// string library. Callers that want a different engine implement
// ports.Matcher themselves.
package search

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Fuzzy ranks corpus entries against a query. An entry qualifies when the
// query's characters appear in order (fold-insensitive), or when the edit
// distance to one of the entry's words stays within the typo budget.
type Fuzzy struct{}

func NewFuzzy() Fuzzy { return Fuzzy{} }

// typoBudget is the max Levenshtein distance still considered a match.
func typoBudget(query string) int {
	b := len([]rune(query)) / 3
	if b < 1 {
		b = 1
	}
	return b
}

func (Fuzzy) Search(corpus []string, query string) []int {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	budget := typoBudget(query)

	type scored struct {
		idx  int
		dist int
	}
	var hits []scored
	for i, entry := range corpus {
		if fuzzy.MatchNormalizedFold(query, entry) {
			hits = append(hits, scored{idx: i, dist: 0})
			continue
		}
		best := -1
		for _, word := range strings.Fields(strings.ToLower(entry)) {
			d := fuzzy.LevenshteinDistance(strings.ToLower(query), word)
			if best == -1 || d < best {
				best = d
			}
		}
		if best >= 0 && best <= budget {
			hits = append(hits, scored{idx: i, dist: best})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = h.idx
	}
	return out
}
