// Package similarity scores how close two canonical names are.
package similarity

// Score returns a similarity in [0,1] between two canonicalized strings,
// where 1.0 is an exact match. The score is 1 - d/max(len(a), len(b)) with
// d the classic unit-cost edit distance (insert, delete, substitute).
// Two empty strings score 1; one empty string scores 0. Symmetric and
// deterministic.
func Score(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	ra := []rune(a)
	rb := []rune(b)
	d := editDistance(ra, rb)

	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}

	return 1.0 - float64(d)/float64(longest)
}

// editDistance computes the Levenshtein distance with two rolling rows.
func editDistance(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
