package hitgen

import (
	"sort"
)

// verifyCounts compares per-key growth between two snapshots with the plan.
// Requests answered with 400 never count, so callers pass only planned keys.
func verifyCounts(before, after, expected map[string]int64) []Mismatch {
	var out []Mismatch
	for key, want := range expected {
		got := after[key] - before[key]
		if got != want {
			out = append(out, Mismatch{Key: key, Expected: want, Got: got})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
