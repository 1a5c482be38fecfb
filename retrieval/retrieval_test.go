package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vec struct {
	id string
	v  []float32
}

func (r vec) RecordID() string  { return r.id }
func (r vec) Vector() []float32 { return r.v }

func TestVectorStore_AddGetDelete(t *testing.T) {
	s := NewVectorStore[vec](2)

	require.NoError(t, s.Add(vec{"a", []float32{1, 0}}))
	require.NoError(t, s.Add(vec{"b", []float32{0, 1}}))
	require.NoError(t, s.Add(vec{"c", []float32{1, 1}}))
	assert.Equal(t, 3, s.Count())

	require.Error(t, s.Add(vec{"bad", []float32{1}}))

	assert.True(t, s.Delete("a"))
	assert.False(t, s.Delete("a"))
	assert.Equal(t, 2, s.Count())

	// c was swapped into a's row and must still resolve.
	c, ok := s.GetByID("c")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 1}, c.v)

	b, ok := s.GetByID("b")
	require.True(t, ok)
	assert.Equal(t, "b", b.id)

	_, ok = s.GetByID("a")
	assert.False(t, ok)

	ids := []string{}
	for _, r := range s.All() {
		ids = append(ids, r.id)
	}

	assert.ElementsMatch(t, []string{"b", "c"}, ids)
}

func TestVectorStore_AddReplaces(t *testing.T) {
	s := NewVectorStore[vec](2)

	require.NoError(t, s.Add(vec{"a", []float32{1, 0}}))
	require.NoError(t, s.Add(vec{"a", []float32{0, 1}}))
	assert.Equal(t, 1, s.Count())

	a, _ := s.GetByID("a")
	assert.Equal(t, []float32{0, 1}, a.v)
}

func TestRetriever_TopKAndThreshold(t *testing.T) {
	s := NewVectorStore[vec](2)
	require.NoError(t, s.Add(vec{"x", []float32{1, 0}}))
	require.NoError(t, s.Add(vec{"y", []float32{0, 1}}))
	require.NoError(t, s.Add(vec{"xy", []float32{1, 1}}))

	r := NewRetriever(s)

	hits, err := r.TopK([]float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "x", hits[0].Record.id)
	assert.Equal(t, "xy", hits[1].Record.id)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.InDelta(t, 0.7071, hits[1].Score, 1e-3)

	hits, err = r.TopK([]float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 3)

	hits, err = r.ByThreshold([]float32{1, 0}, 0.5)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	_, err = r.TopK([]float32{1, 0, 0}, 1)
	require.Error(t, err)
}

func TestRetriever_EmptyStore(t *testing.T) {
	r := NewRetriever(NewVectorStore[vec](2))

	hits, err := r.TopK([]float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestCosine_ZeroVector(t *testing.T) {
	assert.InDelta(t, 0, Cosine([]float32{0, 0}, []float32{1, 0}), 1e-9)
}

func TestHashEmbedder(t *testing.T) {
	e := NewHashEmbedder(128)

	vecs, err := e.Embed(context.Background(), []string{
		"The cat sat on the mat",
		"the cat sat on a mat",
		"Quarterly revenue grew by twelve percent",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Len(t, vecs[0], 128)

	again, err := EmbedOne(context.Background(), e, "The cat sat on the mat")
	require.NoError(t, err)
	assert.Equal(t, vecs[0], again)

	assert.Greater(t, Cosine(vecs[0], vecs[1]), Cosine(vecs[0], vecs[2]))
	assert.InDelta(t, 1.0, Cosine(vecs[0], vecs[0]), 1e-6)
}

// wordTokenizer treats every whitespace separated word as one token.
type wordTokenizer struct {
	vocab []string
	ids   map[string]int
}

func newWordTokenizer() *wordTokenizer { return &wordTokenizer{ids: map[string]int{}} }

func (w *wordTokenizer) Encode(text string) []int {
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

func (w *wordTokenizer) Decode(tokens []int) string {
	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = w.vocab[t]
	}

	return strings.Join(words, " ")
}

func TestChunker_OverlapWindows(t *testing.T) {
	c, err := NewChunker(newWordTokenizer(), 4, 1)
	require.NoError(t, err)

	chunks := c.Split("a b c d e f g h i j")
	assert.Equal(t, []string{"a b c d", "d e f g", "g h i j"}, chunks)

	assert.Equal(t, []string{"a b"}, c.Split("a b"))
	assert.Empty(t, c.Split(""))
}

func TestChunker_InvalidParameters(t *testing.T) {
	_, err := NewChunker(newWordTokenizer(), 0, 0)
	require.Error(t, err)

	_, err = NewChunker(newWordTokenizer(), 4, 4)
	require.Error(t, err)
}
