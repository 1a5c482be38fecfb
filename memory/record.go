package memory

import "time"

// Record is one remembered fact.
type Record struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Subject    string    `json:"subject,omitempty"`
	Embedding  []float32 `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	Importance float64   `json:"importance"`
}

// RecordID implements retrieval.Record.
func (r Record) RecordID() string { return r.ID }

// Vector implements retrieval.Record.
func (r Record) Vector() []float32 { return r.Embedding }

// ClampImportance limits v to [0, 1].
func ClampImportance(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
