package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/logging"
	"github.com/hupe1980/agentrelay/retrieval"
)

// Hit is a memory with its adjusted score.
type Hit = retrieval.Hit[Record]

// Options configure a Service.
type Options struct {
	RecencyWeight    float64
	ImportanceWeight float64
	// MaxChars truncates built contexts. Zero disables truncation.
	MaxChars int
	// Storage persists records. Nil keeps memories in process only.
	Storage Storage
	Logger  logging.Logger
	Now     func() time.Time
}

// Service stores and recalls memories.
type Service struct {
	store     *retrieval.VectorStore[Record]
	retriever *retrieval.Retriever[Record]
	embedder  retrieval.Embedder
	scorer    Scorer
	opts      Options
}

// NewService creates the service and loads every stored record.
func NewService(embedder retrieval.Embedder, optFns ...func(o *Options)) (*Service, error) {
	opts := Options{RecencyWeight: 0.01, ImportanceWeight: 0.5, Logger: logging.NoOpLogger{}, Now: time.Now}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	store := retrieval.NewVectorStore[Record](embedder.Dimensions())

	s := &Service{
		store:     store,
		retriever: retrieval.NewRetriever(store),
		embedder:  embedder,
		scorer:    Scorer{RecencyWeight: opts.RecencyWeight, ImportanceWeight: opts.ImportanceWeight, Now: opts.Now},
		opts:      opts,
	}

	if opts.Storage == nil {
		return s, nil
	}

	records, err := opts.Storage.Load()
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		if err := store.Add(rec); err != nil {
			opts.Logger.Warn("memory.load.skipped", "id", rec.ID, "error", err.Error())
		}
	}

	opts.Logger.Info("memory.loaded", "records", store.Count())

	return s, nil
}

// Count returns the number of memories.
func (s *Service) Count() int { return s.store.Count() }

// Add embeds and stores a memory and returns its id. Importance is clamped
// to [0, 1].
func (s *Service) Add(ctx context.Context, text, subject string, importance float64) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &core.ValidationError{Field: "text", Message: "memory text must not be empty"}
	}

	vec, err := retrieval.EmbedOne(ctx, s.embedder, text)
	if err != nil {
		return "", fmt.Errorf("embed memory: %w", err)
	}

	rec := Record{
		ID:         core.NewID(),
		Text:       text,
		Subject:    subject,
		Embedding:  vec,
		CreatedAt:  s.opts.Now().UTC(),
		Importance: ClampImportance(importance),
	}

	if err := s.store.Add(rec); err != nil {
		return "", err
	}

	if s.opts.Storage != nil {
		if err := s.opts.Storage.Append(rec); err != nil {
			s.store.Delete(rec.ID)
			return "", err
		}
	}

	s.opts.Logger.Info("memory.added", "id", rec.ID, "subject", subject, "importance", rec.Importance)

	return rec.ID, nil
}

// Search returns the k memories with the highest adjusted score.
func (s *Service) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 {
		return []Hit{}, nil
	}

	q, err := retrieval.EmbedOne(ctx, s.embedder, query)
	if err != nil {
		return nil, err
	}

	hits, err := s.retriever.ByThreshold(q, -1)
	if err != nil {
		return nil, err
	}

	hits = s.adjust(hits)
	if k < len(hits) {
		hits = hits[:k]
	}

	return hits, nil
}

// SearchThreshold returns the memories whose cosine similarity reaches
// minScore, ordered by adjusted score.
func (s *Service) SearchThreshold(ctx context.Context, query string, minScore float64) ([]Hit, error) {
	q, err := retrieval.EmbedOne(ctx, s.embedder, query)
	if err != nil {
		return nil, err
	}

	hits, err := s.retriever.ByThreshold(q, minScore)
	if err != nil {
		return nil, err
	}

	return s.adjust(hits), nil
}

// BuildContext joins the texts of the memories found by top k or by
// threshold. Exactly one of k and threshold must be positive.
func (s *Service) BuildContext(ctx context.Context, query string, k int, threshold float64) ([]Record, string, error) {
	if (k > 0) == (threshold > 0) {
		return nil, "", &core.ValidationError{Field: "k", Value: k, Message: "exactly one of k or threshold must be set"}
	}

	var (
		hits []Hit
		err  error
	)

	if k > 0 {
		hits, err = s.Search(ctx, query, k)
	} else {
		hits, err = s.SearchThreshold(ctx, query, threshold)
	}

	if err != nil {
		return nil, "", err
	}

	records := make([]Record, len(hits))
	texts := make([]string, len(hits))

	for i, h := range hits {
		records[i] = h.Record
		texts[i] = h.Record.Text
	}

	text := strings.Join(texts, "\n\n")

	if s.opts.MaxChars > 0 {
		if r := []rune(text); len(r) > s.opts.MaxChars {
			text = string(r[:s.opts.MaxChars])
		}
	}

	return records, text, nil
}

// Remember stores a fact; it backs the create_memory tool.
func (s *Service) Remember(ctx context.Context, text, subject string, importance float64) (string, error) {
	return s.Add(ctx, text, subject, importance)
}

// Recall returns the texts of the k best memories; it backs the
// search_memory tool and the relevant-memories prompt section.
func (s *Service) Recall(ctx context.Context, query string, k int) ([]string, error) {
	hits, err := s.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Record.Text
	}

	return out, nil
}

func (s *Service) adjust(hits []Hit) []Hit {
	for i := range hits {
		hits[i].Score = s.scorer.Score(hits[i].Score, hits[i].Record)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	return hits
}
