// Package levenshtein implements edit distance for domain typo matching.
package levenshtein

// Distance returns the Levenshtein edit distance between a and b,
// computed rune-wise with two rolling rows (O(min(len)) memory).
func Distance(a, b string) int {
	ar := []rune(a)
	br := []rune(b)

	if len(ar) == 0 {
		return len(br)
	}
	if len(br) == 0 {
		return len(ar)
	}

	// Keep the shorter string on the row axis.
	if len(ar) > len(br) {
		ar, br = br, ar
	}

	prev := make([]int, len(ar)+1)
	curr := make([]int, len(ar)+1)
	for i := range prev {
		prev[i] = i
	}

	for j, bc := range br {
		curr[0] = j + 1
		for i, ac := range ar {
			cost := 1
			if ac == bc {
				cost = 0
			}
			del := curr[i] + 1
			ins := prev[i+1] + 1
			sub := prev[i] + cost

			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			curr[i+1] = m
		}
		prev, curr = curr, prev
	}

	return prev[len(ar)]
}
