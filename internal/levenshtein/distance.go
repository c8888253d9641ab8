// Package levenshtein computes edit distances for domain typo suggestions.
package levenshtein

// Distance computes the Levenshtein edit distance between two strings,
// counting runes rather than bytes. Memory use is O(min(m,n)).
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(ra) == 0 {
		return len(rb)
	}

	row := make([]int, len(ra)+1)
	for i := range row {
		row[i] = i
	}

	for j := 1; j <= len(rb); j++ {
		diag := row[0]
		row[0] = j
		for i := 1; i <= len(ra); i++ {
			up := row[i]
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			row[i] = min(row[i-1]+1, up+1, diag+cost)
			diag = up
		}
	}
	return row[len(ra)]
}

// Nearest returns the candidate closest to s within maxDist edits.
// It returns "" when s is itself a candidate or nothing is close enough.
func Nearest(s string, candidates []string, maxDist int) string {
	best, bestDist := "", maxDist+1
	for _, c := range candidates {
		if c == s {
			return ""
		}
		if d := Distance(s, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
