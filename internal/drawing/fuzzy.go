package drawing

import "github.com/planvector/drawing-cli/internal/model"

// duplicateThreshold is the similarity score above which two material names
// count as the same material.
const duplicateThreshold = 90

// DetectDuplicates compares every material name against the names already
// seen and reports near-identical pairs. Exact repeats pair with themselves.
func DetectDuplicates(materials []model.ScannedMaterial) []model.DuplicatePair {
	duplicates := make([]model.DuplicatePair, 0)
	seen := make([]string, 0, len(materials))
	seenSet := make(map[string]bool, len(materials))

	for _, mat := range materials {
		name := mat.Material
		for _, prev := range seen {
			if similarity(name, prev) > duplicateThreshold {
				duplicates = append(duplicates, model.DuplicatePair{Name: name, Seen: prev})
			}
		}
		if !seenSet[name] {
			seenSet[name] = true
			seen = append(seen, name)
		}
	}
	return duplicates
}

// similarity scores two strings 0-100 using the Levenshtein ratio.
func similarity(a, b string) float64 {
	if a == b {
		return 100
	}
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	return float64(total-levenshtein(a, b)) / float64(total) * 100
}

// levenshtein computes edit distance with the two-row dynamic program.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
