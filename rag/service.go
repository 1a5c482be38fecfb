package rag

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/url"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/logging"
	"github.com/hupe1980/agentrelay/retrieval"
)

// Hit is a scored chunk.
type Hit = retrieval.Hit[Chunk]

// Options configure a Service.
type Options struct {
	// NeighborWindow is the number of chunks added before and after every
	// hit when building a context.
	NeighborWindow int
	// MaxChars truncates built contexts. Zero disables truncation.
	MaxChars int
	// BatchSize bounds the number of chunks embedded per request.
	BatchSize int
	// Parser extracts text from PDF documents.
	Parser PDFParser
	Logger logging.Logger
}

// Service ingests documents and answers similarity queries over their chunks.
type Service struct {
	store     *retrieval.VectorStore[Chunk]
	retriever *retrieval.Retriever[Chunk]
	embedder  retrieval.Embedder
	chunker   *retrieval.Chunker
	fs        afs.Service
	opts      Options
}

// NewService creates a service whose store matches the embedder dimension.
func NewService(embedder retrieval.Embedder, chunker *retrieval.Chunker, optFns ...func(o *Options)) *Service {
	opts := Options{NeighborWindow: 1, BatchSize: 64, Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}

	store := retrieval.NewVectorStore[Chunk](embedder.Dimensions())

	return &Service{
		store:     store,
		retriever: retrieval.NewRetriever(store),
		embedder:  embedder,
		chunker:   chunker,
		fs:        afs.New(),
		opts:      opts,
	}
}

// Count returns the number of stored chunks.
func (s *Service) Count() int { return s.store.Count() }

// Chunk returns the stored chunk with id.
func (s *Service) Chunk(id string) (Chunk, bool) { return s.store.GetByID(id) }

// IngestText chunks, embeds and stores text. The returned ids are in
// reading order.
func (s *Service) IngestText(ctx context.Context, source, text string) ([]string, error) {
	if source == "" {
		source = "inline"
	}

	texts := s.chunker.Split(text)
	if len(texts) == 0 {
		s.opts.Logger.Warn("rag.ingest.empty", "source", source)
		return []string{}, nil
	}

	ids := make([]string, len(texts))
	for i := range ids {
		ids[i] = core.NewID()
	}

	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += s.opts.BatchSize {
		end := min(start+s.opts.BatchSize, len(texts))

		batch, err := s.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed %s: %w", source, err)
		}

		vectors = append(vectors, batch...)
	}

	for i, text := range texts {
		c := Chunk{ID: ids[i], Source: source, Text: text, Embedding: vectors[i]}
		if i > 0 {
			c.PrevID = ids[i-1]
		}

		if i < len(texts)-1 {
			c.NextID = ids[i+1]
		}

		if err := s.store.Add(c); err != nil {
			return nil, err
		}
	}

	s.opts.Logger.Info("rag.ingest.completed", "source", source, "chunks", len(ids))

	return ids, nil
}

// IngestPDF parses and ingests the PDF at location (a path or afs URL).
func (s *Service) IngestPDF(ctx context.Context, location string) ([]string, error) {
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}

	text, err := s.opts.Parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", location, err)
	}

	return s.IngestText(ctx, location, text)
}

// IngestFile ingests a .pdf, .txt or .md document.
func (s *Service) IngestFile(ctx context.Context, location string) ([]string, error) {
	switch strings.ToLower(path.Ext(url.Path(location))) {
	case ".pdf":
		return s.IngestPDF(ctx, location)
	case ".txt", ".md":
		data, err := s.fs.DownloadWithURL(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", location, err)
		}

		return s.IngestText(ctx, location, string(data))
	default:
		return nil, &core.ValidationError{Field: "location", Value: location, Message: "unsupported document type"}
	}
}

// IngestDir walks dir recursively and ingests every supported document.
// It returns the number of ingested documents.
func (s *Service) IngestDir(ctx context.Context, dir string) (int, error) {
	objects, err := s.fs.List(ctx, dir)
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", dir, err)
	}

	docs := 0

	for _, o := range objects {
		if strings.TrimRight(url.Path(o.URL()), "/") == strings.TrimRight(url.Path(dir), "/") {
			continue
		}

		location := url.Join(dir, o.Name())

		if o.IsDir() {
			n, err := s.IngestDir(ctx, location)
			if err != nil {
				return docs, err
			}

			docs += n

			continue
		}

		switch strings.ToLower(path.Ext(o.Name())) {
		case ".pdf", ".txt", ".md":
		default:
			continue
		}

		if _, err := s.IngestFile(ctx, location); err != nil {
			return docs, err
		}

		docs++
	}

	return docs, nil
}

// Query returns the k chunks most similar to text.
func (s *Service) Query(ctx context.Context, text string, k int) ([]Hit, error) {
	q, err := retrieval.EmbedOne(ctx, s.embedder, text)
	if err != nil {
		return nil, err
	}

	return s.retriever.TopK(q, k)
}

// QueryThreshold returns every chunk scoring at least minScore against text.
func (s *Service) QueryThreshold(ctx context.Context, text string, minScore float64) ([]Hit, error) {
	q, err := retrieval.EmbedOne(ctx, s.embedder, text)
	if err != nil {
		return nil, err
	}

	return s.retriever.ByThreshold(q, minScore)
}

// ExpandNeighbors adds up to window predecessors and successors around every
// seed id. The result keeps reading order per seed and contains no duplicates.
func (s *Service) ExpandNeighbors(ids []string, window int) []string {
	if window <= 0 {
		return ids
	}

	out := make([]string, 0, len(ids)*(2*window+1))
	seen := map[string]bool{}

	push := func(id string) {
		if id == "" || seen[id] {
			return
		}

		if _, ok := s.store.GetByID(id); !ok {
			return
		}

		seen[id] = true
		out = append(out, id)
	}

	for _, seed := range ids {
		var left []string

		cur, ok := s.store.GetByID(seed)
		for steps := window; ok && steps > 0 && cur.PrevID != ""; steps-- {
			if cur, ok = s.store.GetByID(cur.PrevID); ok {
				left = append(left, cur.ID)
			}
		}

		for i := len(left) - 1; i >= 0; i-- {
			push(left[i])
		}

		push(seed)

		cur, ok = s.store.GetByID(seed)
		for steps := window; ok && steps > 0 && cur.NextID != ""; steps-- {
			if cur, ok = s.store.GetByID(cur.NextID); ok {
				push(cur.ID)
			}
		}
	}

	return out
}

// ContextFromHits expands the hits by window neighbors and joins their texts.
// The text is cut to maxChars runes when maxChars is positive.
func (s *Service) ContextFromHits(hits []Hit, window, maxChars int) ([]Chunk, string) {
	seeds := make([]string, len(hits))
	for i, h := range hits {
		seeds[i] = h.Record.ID
	}

	var (
		chunks []Chunk
		texts  []string
	)

	for _, id := range s.ExpandNeighbors(seeds, window) {
		if c, ok := s.store.GetByID(id); ok {
			chunks = append(chunks, c)
			texts = append(texts, c.Text)
		}
	}

	text := strings.Join(texts, "\n\n")

	if maxChars > 0 {
		if r := []rune(text); len(r) > maxChars {
			text = string(r[:maxChars])
		}
	}

	return chunks, text
}

// BuildContext retrieves by top k or by threshold (exactly one must be
// positive) and returns the expanded context.
func (s *Service) BuildContext(ctx context.Context, query string, k int, threshold float64) ([]Chunk, string, error) {
	if (k > 0) == (threshold > 0) {
		return nil, "", &core.ValidationError{Field: "k", Value: k, Message: "exactly one of k or threshold must be set"}
	}

	var (
		hits []Hit
		err  error
	)

	if k > 0 {
		hits, err = s.Query(ctx, query, k)
	} else {
		hits, err = s.QueryThreshold(ctx, query, threshold)
	}

	if err != nil {
		return nil, "", err
	}

	chunks, text := s.ContextFromHits(hits, s.opts.NeighborWindow, s.opts.MaxChars)

	s.opts.Logger.Debug("rag.context.built", "hits", len(hits), "chunks", len(chunks), "chars", len(text))

	return chunks, text, nil
}

// SearchContext returns only the context text of BuildContext.
func (s *Service) SearchContext(ctx context.Context, query string, k int, threshold float64) (string, error) {
	_, text, err := s.BuildContext(ctx, query, k, threshold)
	return text, err
}
