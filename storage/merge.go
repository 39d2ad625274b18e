package storage

import "airbnb-harvester/models"

// MergeMaster returns prior ∪ run keyed by URL. A run record replaces the prior
// record in place; URLs new to the master are appended in run order.
func MergeMaster(prior, run []models.ListingRecord) []models.ListingRecord {
	index := make(map[string]int, len(prior)+len(run))
	merged := make([]models.ListingRecord, 0, len(prior)+len(run))

	put := func(rec models.ListingRecord) {
		if rec.URL == "" {
			return
		}
		if i, ok := index[rec.URL]; ok {
			merged[i] = rec
			return
		}
		index[rec.URL] = len(merged)
		merged = append(merged, rec)
	}

	for _, rec := range prior {
		put(rec)
	}
	for _, rec := range run {
		put(rec)
	}
	return merged
}
