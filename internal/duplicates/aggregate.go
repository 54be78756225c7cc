package duplicates

import "sort"

// aggregate deduplicates candidates by key, keeping for each key the
// candidate with the highest similarity (ties keep the first encountered),
// then sorts descending by similarity. The sort is stable so candidates
// with equal similarity keep their arrival order. Candidates are selected
// and reordered, never mutated.
func aggregate(candidates []Candidate) []Candidate {
	if len(candidates) == 0 {
		return nil
	}

	bestIdx := make(map[string]int, len(candidates))
	var unique []Candidate

	for _, c := range candidates {
		idx, seen := bestIdx[c.Key]
		if !seen {
			bestIdx[c.Key] = len(unique)
			unique = append(unique, c)
			continue
		}
		if c.Similarity > unique[idx].Similarity {
			unique[idx] = c
		}
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Similarity > unique[j].Similarity
	})

	return unique
}
