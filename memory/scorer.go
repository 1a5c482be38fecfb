package memory

import (
	"math"
	"time"
)

// Scorer weights similarity by recency and importance:
//
//	score = cosine * exp(-RecencyWeight * ageDays) * (1 + ImportanceWeight * (importance - 0.5))
type Scorer struct {
	RecencyWeight    float64
	ImportanceWeight float64
	Now              func() time.Time
}

// Score adjusts the cosine similarity of rec.
func (s Scorer) Score(cosine float64, rec Record) float64 {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	ageDays := now().Sub(rec.CreatedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}

	recency := math.Exp(-s.RecencyWeight * ageDays)
	importance := 1 + s.ImportanceWeight*(ClampImportance(rec.Importance)-0.5)

	return cosine * recency * importance
}
