package retrieval

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Tokenizer converts between text and token ids.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

var setLoader sync.Once

// TiktokenTokenizer tokenizes with a tiktoken BPE encoding. The BPE ranks
// are embedded in the binary, so no network access is needed.
type TiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer loads the named encoding, e.g. "cl100k_base".
func NewTiktokenTokenizer(encoding string) (*TiktokenTokenizer, error) {
	setLoader.Do(func() { tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader()) })

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}

	return &TiktokenTokenizer{enc: enc}, nil
}

// Encode implements Tokenizer.
func (t *TiktokenTokenizer) Encode(text string) []int { return t.enc.Encode(text, nil, nil) }

// Decode implements Tokenizer.
func (t *TiktokenTokenizer) Decode(tokens []int) string { return t.enc.Decode(tokens) }

// Chunker splits text into windows of at most Size tokens, consecutive
// windows sharing Overlap tokens.
type Chunker struct {
	tokenizer Tokenizer
	size      int
	overlap   int
}

// NewChunker validates the window parameters. Overlap must be smaller than size.
func NewChunker(tokenizer Tokenizer, size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}

	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}

	return &Chunker{tokenizer: tokenizer, size: size, overlap: overlap}, nil
}

// Split returns the chunk texts in order. The last window ends at the final
// token; no window is emitted that only repeats overlap.
func (c *Chunker) Split(text string) []string {
	tokens := c.tokenizer.Encode(text)

	var chunks []string

	for start := 0; start < len(tokens); start += c.size - c.overlap {
		end := start + c.size
		if end > len(tokens) {
			end = len(tokens)
		}

		chunks = append(chunks, c.tokenizer.Decode(tokens[start:end]))

		if end == len(tokens) {
			break
		}
	}

	return chunks
}
