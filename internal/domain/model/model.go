// Package model contains domain models passed between layers.
package model

// HitCount is one row of the counter store.
type HitCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Image is a fetched remote resource.
type Image struct {
	ContentType string // media type without parameters, e.g. "image/png"
	Body        []byte
}

// TotalHits sums the counts of rows.
func TotalHits(rows []HitCount) int64 {
	var total int64
	for _, r := range rows {
		total += r.Count
	}
	return total
}
