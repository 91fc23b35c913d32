package models

// Counter backs the atomic case-number sequence. One document per year,
// keyed "case-<yy>", bumped with $inc so concurrent creations never observe
// the same value.
type Counter struct {
	ID  string `json:"_id" bson:"_id"`
	Seq int64  `json:"seq" bson:"seq"`
}
