// Package rag ingests documents into a vector store and builds retrieval
// contexts for the RAG agent.
package rag

// Chunk is one token window of an ingested document. Chunks of the same
// document are linked in reading order through PrevID and NextID.
type Chunk struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
	PrevID    string    `json:"prev_id,omitempty"`
	NextID    string    `json:"next_id,omitempty"`
}

// RecordID implements retrieval.Record.
func (c Chunk) RecordID() string { return c.ID }

// Vector implements retrieval.Record.
func (c Chunk) Vector() []float32 { return c.Embedding }
