package engine

import "github.com/galleon/clash-of-courses/internal/models"

// ConflictPair records one overlap between a candidate meeting and an
// existing meeting in the student's busy schedule.
type ConflictPair struct {
	Candidate models.Meeting `json:"candidate"`
	Existing  models.Meeting `json:"existing"`
}

// FindConflicts scans every (candidate, busy) meeting pair and returns a
// pair for each overlap. The scan is O(|candidate| x |busy|); weekly meeting
// counts are small enough (a handful per section, a few dozen busy) that no
// indexing is needed. If meeting volumes ever grow, swap the inner loop for
// a per-day interval tree behind this same signature.
func FindConflicts(candidate, busy []models.Meeting) []ConflictPair {
	var pairs []ConflictPair
	for _, c := range candidate {
		for _, b := range busy {
			if Overlaps(c, b) {
				pairs = append(pairs, ConflictPair{Candidate: c, Existing: b})
			}
		}
	}
	return pairs
}
