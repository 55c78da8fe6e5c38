package bot

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"gitlab.com/dafibh/fortuna/internal/models"
)

// maxTypoDistance is the edit distance still accepted as a typo of a
// category word, e.g. "grocceries" for "groceries".
const maxTypoDistance = 2

// MatchCategory finds the best matching category for a description or
// suggested category name. Matching strategy:
// 1. Exact match (case-insensitive)
// 2. Contains match in either direction
// 3. Significant-word match
// 4. Edit-distance match for typos
// 5. No match -> returns nil.
func MatchCategory(suggested string, categories []models.Category) *models.Category {
	if suggested == "" {
		return nil
	}

	suggestedLower := strings.ToLower(strings.TrimSpace(suggested))
	if suggestedLower == "" {
		return nil
	}

	// Strategy 1: exact match.
	for i := range categories {
		if strings.EqualFold(categories[i].Name, suggested) {
			return &categories[i]
		}
	}

	// Strategy 2: the input names part of a category. The shortest
	// containing name wins, being the most specific fit. Inputs under
	// three characters would match half the list, so they skip this.
	var bestMatch *models.Category
	bestLen := 0

	for i := range categories {
		catLower := strings.ToLower(categories[i].Name)
		if len(suggestedLower) >= 3 && strings.Contains(catLower, suggestedLower) {
			if bestMatch == nil || len(categories[i].Name) < bestLen {
				bestMatch = &categories[i]
				bestLen = len(categories[i].Name)
			}
		}
	}

	if bestMatch != nil {
		return bestMatch
	}

	// Strategy 2b: the input contains a full category name, e.g.
	// "fancy dining out place" contains "Dining Out". The longest
	// contained name wins.
	for i := range categories {
		catLower := strings.ToLower(categories[i].Name)
		if strings.Contains(suggestedLower, catLower) {
			if bestMatch == nil || len(categories[i].Name) > bestLen {
				bestMatch = &categories[i]
				bestLen = len(categories[i].Name)
			}
		}
	}

	if bestMatch != nil {
		return bestMatch
	}

	// Strategy 3: any significant word in common.
	suggestedWords := extractSignificantWords(suggested)
	for i := range categories {
		catWords := extractSignificantWords(categories[i].Name)
		for _, sw := range suggestedWords {
			for _, cw := range catWords {
				if strings.EqualFold(sw, cw) {
					return &categories[i]
				}
			}
		}
	}

	// Strategy 4: a significant word within typo distance of a
	// category word. The smallest distance wins across categories.
	bestDistance := maxTypoDistance + 1
	for i := range categories {
		catWords := extractSignificantWords(categories[i].Name)
		for _, sw := range suggestedWords {
			for _, cw := range catWords {
				// Edit distance on very short words is all noise.
				if len(sw) < 5 || len(cw) < 5 {
					continue
				}
				if d := levenshtein.ComputeDistance(sw, cw); d < bestDistance {
					bestDistance = d
					bestMatch = &categories[i]
				}
			}
		}
	}

	return bestMatch
}

// extractSignificantWords splits a string into words worth matching on,
// dropping separators and stop words.
func extractSignificantWords(s string) []string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "/", " ")
	s = strings.ReplaceAll(s, "&", " ")

	words := strings.Fields(s)
	var significant []string

	for _, w := range words {
		if len(w) >= 3 && !isStopWord(w) {
			significant = append(significant, w)
		}
	}

	return significant
}

// isStopWord returns true for common words that shouldn't be matched.
func isStopWord(word string) bool {
	stopWords := map[string]bool{
		"and": true,
		"the": true,
		"for": true,
	}
	return stopWords[word]
}
