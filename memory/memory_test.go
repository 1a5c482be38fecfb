package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/retrieval"
)

func TestCSVStorage_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "memory.csv")
	s := NewCSVStorage(path, nil)

	records, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, records)

	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	in := []Record{
		{ID: "1", Text: "User likes Go, \"really\"", Subject: "user", Embedding: []float32{0.25, -1.5}, CreatedAt: created, Importance: 0.9},
		{ID: "2", Text: "multi\nline", Embedding: []float32{1, 0}, CreatedAt: created.Add(time.Hour), Importance: 0.5},
	}

	for _, rec := range in {
		require.NoError(t, s.Append(rec))
	}

	out, err := s.Load()
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, in[0], out[0])
	assert.Equal(t, in[1].Text, out[1].Text)
	assert.True(t, in[1].CreatedAt.Equal(out[1].CreatedAt))
}

func TestCSVStorage_LegacyAndBadRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.csv")
	content := "id,text,embedding,created_at,importance\n" +
		"a,old fact,1 0,1700000000.5,0.7\n" +
		"b,broken,x y,1700000000,0.5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	records, err := NewCSVStorage(path, nil).Load()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "old fact", records[0].Text)
	assert.Equal(t, int64(1700000000), records[0].CreatedAt.Unix())
	assert.Equal(t, 0.7, records[0].Importance)
}

func TestScorer(t *testing.T) {
	now := time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)
	s := Scorer{RecencyWeight: 0.1, ImportanceWeight: 1, Now: func() time.Time { return now }}

	fresh := Record{CreatedAt: now, Importance: 0.5}
	assert.InDelta(t, 0.8, s.Score(0.8, fresh), 1e-9)

	old := Record{CreatedAt: now.AddDate(0, 0, -10), Importance: 0.5}
	assert.InDelta(t, 0.8*0.36787944, s.Score(0.8, old), 1e-6)

	important := Record{CreatedAt: now, Importance: 1}
	assert.InDelta(t, 0.8*1.5, s.Score(0.8, important), 1e-9)

	clamped := Record{CreatedAt: now, Importance: 7}
	assert.InDelta(t, 0.8*1.5, s.Score(0.8, clamped), 1e-9)
}

func TestService_AddSearchAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "memory.csv")
	embedder := retrieval.NewHashEmbedder(128)

	s, err := NewService(embedder, func(o *Options) { o.Storage = NewCSVStorage(path, nil) })
	require.NoError(t, err)

	_, err = s.Add(ctx, "The user's favourite language is Go", "user", 0.8)
	require.NoError(t, err)
	_, err = s.Add(ctx, "The office plant needs water on Fridays", "office", 0.3)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Count())

	_, err = s.Add(ctx, "  ", "", 0.5)

	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)

	texts, err := s.Recall(ctx, "favourite programming language", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"The user's favourite language is Go"}, texts)

	reloaded, err := NewService(embedder, func(o *Options) { o.Storage = NewCSVStorage(path, nil) })
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Count())
}

func TestService_RecencyBreaksTies(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	clock := now.AddDate(0, 0, -30)

	s, err := NewService(retrieval.NewHashEmbedder(64), func(o *Options) {
		o.RecencyWeight = 0.1
		o.Now = func() time.Time { return clock }
	})
	require.NoError(t, err)

	oldID, err := s.Add(ctx, "meeting moved to tuesday", "", 0.5)
	require.NoError(t, err)

	clock = now
	newID, err := s.Add(ctx, "meeting moved to tuesday", "", 0.5)
	require.NoError(t, err)

	hits, err := s.Search(ctx, "meeting moved to tuesday", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, newID, hits[0].Record.ID)
	assert.Equal(t, oldID, hits[1].Record.ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestService_BuildContext(t *testing.T) {
	ctx := context.Background()

	s, err := NewService(retrieval.NewHashEmbedder(64))
	require.NoError(t, err)

	_, _, err = s.BuildContext(ctx, "q", 0, 0)
	require.Error(t, err)

	_, err = s.Add(ctx, "alpha fact", "", 0.5)
	require.NoError(t, err)
	_, err = s.Add(ctx, "beta fact", "", 0.5)
	require.NoError(t, err)

	records, text, err := s.BuildContext(ctx, "alpha fact", 2, 0)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, "alpha fact\n\nbeta fact", text)

	records, _, err = s.BuildContext(ctx, "alpha fact", 0, 0.99)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "alpha fact", records[0].Text)
}
