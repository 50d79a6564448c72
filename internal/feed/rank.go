package feed

import "sort"

// Rank sorts scored candidates in place: total score descending, with
// (created_at desc, id asc) as tie-breakers so pagination stays stable when
// scores collide.
func Rank(items []Scored) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Result.Total != b.Result.Total {
			return a.Result.Total > b.Result.Total
		}
		if !a.Candidate.CreatedAt.Equal(b.Candidate.CreatedAt) {
			return a.Candidate.CreatedAt.After(b.Candidate.CreatedAt)
		}
		return a.Candidate.ID < b.Candidate.ID
	})
}

// Page returns the slice window [offset, offset+limit) of a ranked list.
// Out-of-range windows return an empty slice rather than an error; a
// non-positive limit means no cap.
func Page(items []Scored, offset, limit int) []Scored {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []Scored{}
	}

	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
