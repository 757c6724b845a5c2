// Package search ranks a user's videos against a free-text query.
package search

import (
	"sort"
	"strings"
	"unicode"

	"github.com/kdimtricp/tubely/internal/models"
)

// MaxResults caps the number of matches returned.
const MaxResults = 20

// titleWeight makes a term found in the title outrank one in the description.
const titleWeight = 2

// Terms splits a query into lower-cased words, dropping punctuation and
// duplicates.
func Terms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	seen := make(map[string]bool, len(fields))
	terms := fields[:0]
	for _, f := range fields {
		if seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}

// Rank returns the videos matching every term in query, best match first.
// Ties keep the input order. An empty query matches nothing.
func Rank(videos []models.Video, query string) []models.Video {
	terms := Terms(query)
	if len(terms) == 0 {
		return []models.Video{}
	}

	type scored struct {
		video models.Video
		score int
	}
	var hits []scored
	for _, v := range videos {
		if s := score(v, terms); s > 0 {
			hits = append(hits, scored{video: v, score: s})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	if len(hits) > MaxResults {
		hits = hits[:MaxResults]
	}
	out := make([]models.Video, len(hits))
	for i, h := range hits {
		out[i] = h.video
	}
	return out
}

func score(v models.Video, terms []string) int {
	title := strings.ToLower(v.Title)
	desc := strings.ToLower(v.Description)

	total := 0
	for _, t := range terms {
		n := titleWeight*strings.Count(title, t) + strings.Count(desc, t)
		if n == 0 {
			return 0
		}
		total += n
	}
	return total
}
