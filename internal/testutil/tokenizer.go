package testutil

import (
	"strings"
	"sync"
)

// WordTokenizer treats every whitespace separated word as one token, which
// keeps chunk boundaries predictable in tests.
type WordTokenizer struct {
	mu    sync.Mutex
	vocab []string
	ids   map[string]int
}

// NewWordTokenizer creates an empty tokenizer.
func NewWordTokenizer() *WordTokenizer { return &WordTokenizer{ids: map[string]int{}} }

// Encode implements retrieval.Tokenizer.
func (w *WordTokenizer) Encode(text string) []int {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []int

	for _, f := range strings.Fields(text) {
		id, ok := w.ids[f]
		if !ok {
			id = len(w.vocab)
			w.ids[f] = id
			w.vocab = append(w.vocab, f)
		}

		out = append(out, id)
	}

	return out
}

// Decode implements retrieval.Tokenizer.
func (w *WordTokenizer) Decode(tokens []int) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = w.vocab[t]
	}

	return strings.Join(words, " ")
}
