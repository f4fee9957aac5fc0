package retriever

import (
	"context"
	"errors"
	"testing"

	"docqa/model"
	"docqa/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockIndex struct {
	candidates []types.Candidate
	err        error
	gotK       int
	gotFilter  string
}

func (m *mockIndex) Query(_ context.Context, _ []float32, k int, filenameFilter string) ([]types.Candidate, error) {
	m.gotK = k
	m.gotFilter = filenameFilter
	if m.err != nil {
		return nil, m.err
	}
	if filenameFilter == "" {
		return m.candidates, nil
	}
	var filtered []types.Candidate
	for _, c := range m.candidates {
		if c.Metadata.Filename == filenameFilter {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

type mockEmbedder struct {
	err     error
	gotMode model.EmbedMode
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string, mode model.EmbedMode) ([][]float32, error) {
	m.gotMode = mode
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

type mockExtractor struct {
	phrases []string
	err     error
}

func (m *mockExtractor) Extract(_ context.Context, _ string, _, _, _ int) ([]model.Keyphrase, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]model.Keyphrase, len(m.phrases))
	for i, p := range m.phrases {
		out[i] = model.Keyphrase{Phrase: p, Score: 1 - float64(i)*0.1}
	}
	return out, nil
}

func newEngine(index *mockIndex, embedder *mockEmbedder, extractor *mockExtractor) *Engine {
	return New(index, embedder, extractor, DefaultConfig())
}

func candidate(id, filename string, distance float64) types.Candidate {
	return types.Candidate{
		ID:       id,
		Content:  "content of " + id,
		Metadata: types.ChunkMetadata{Filename: filename},
		Distance: distance,
	}
}

// --- Tests ---

func TestRetrieveReturnsAtMostK(t *testing.T) {
	index := &mockIndex{candidates: []types.Candidate{
		candidate("a_chunk_0", "a.md", 0.1),
		candidate("a_chunk_1", "a.md", 0.2),
		candidate("a_chunk_2", "a.md", 0.3),
		candidate("a_chunk_3", "a.md", 0.4),
		candidate("a_chunk_4", "a.md", 0.5),
	}}
	engine := newEngine(index, &mockEmbedder{}, &mockExtractor{})

	results, err := engine.Retrieve(context.Background(), "query", 2, "")
	require.NoError(t, err)
	assert.Len(t, results, 2)
	// over-fetch factor of 2
	assert.Equal(t, 4, index.gotK)
}

func TestRetrieveFewerCandidatesThanK(t *testing.T) {
	index := &mockIndex{candidates: []types.Candidate{
		candidate("a_chunk_0", "a.md", 0.1),
	}}
	engine := newEngine(index, &mockEmbedder{}, &mockExtractor{})

	results, err := engine.Retrieve(context.Background(), "query", 5, "")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRetrieveSortedDescending(t *testing.T) {
	index := &mockIndex{candidates: []types.Candidate{
		candidate("a_chunk_0", "a.md", 0.4),
		candidate("a_chunk_1", "a.md", 0.1),
		candidate("a_chunk_2", "a.md", 0.3),
	}}
	engine := newEngine(index, &mockEmbedder{}, &mockExtractor{})

	results, err := engine.Retrieve(context.Background(), "query", 3, "")
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].CombinedScore, results[i].CombinedScore)
	}
	assert.Equal(t, "content of a_chunk_1", results[0].Content)
}

func TestRetrieveStableTieBreak(t *testing.T) {
	// identical distances and no metadata signals: ties keep candidate order
	index := &mockIndex{candidates: []types.Candidate{
		candidate("a_chunk_0", "a.md", 0.25),
		candidate("a_chunk_1", "a.md", 0.25),
		candidate("a_chunk_2", "a.md", 0.25),
	}}
	engine := newEngine(index, &mockEmbedder{}, &mockExtractor{})

	results, err := engine.Retrieve(context.Background(), "query", 3, "")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "content of a_chunk_0", results[0].Content)
	assert.Equal(t, "content of a_chunk_1", results[1].Content)
	assert.Equal(t, "content of a_chunk_2", results[2].Content)
}

func TestRetrieveCombinedScoreArithmetic(t *testing.T) {
	index := &mockIndex{candidates: []types.Candidate{
		{
			ID:      "contract.md_chunk_0",
			Content: "backup terms",
			Metadata: types.ChunkMetadata{
				Filename:        "contract.md",
				SectionKeywords: "cloud backup, service terms",
			},
			Distance: 0.2, // vector similarity 0.8
		},
	}}
	extractor := &mockExtractor{phrases: []string{"backup service terms", "cloud backup"}}
	engine := newEngine(index, &mockEmbedder{}, extractor)

	results, err := engine.Retrieve(context.Background(), "what are the backup service terms", 1, "")
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	// "cloud backup" intersects the chunk keyword set; nothing else matches
	assert.Equal(t, 1, r.MetadataScore)
	assert.InDelta(t, 0.8, r.VectorSimilarity, 1e-9)
	// 0.7*0.8 + 0.3*min(1/5, 1) = 0.62
	assert.InDelta(t, 0.62, r.CombinedScore, 1e-9)
}

func TestRetrieveFilenameBonusAndSubstringOverlaps(t *testing.T) {
	index := &mockIndex{candidates: []types.Candidate{
		{
			ID:      "contract.md_chunk_0",
			Content: "c",
			Metadata: types.ChunkMetadata{
				Filename:          "Cloud-Contract.md",
				SectionKeywords:   "",
				Summary:           "cloud backup service terms overview",
				Description:       "Terms for the cloud backup service.",
				DescriptionStatus: types.DescriptionOK,
			},
			Distance: 0.5,
		},
	}}
	extractor := &mockExtractor{phrases: []string{"cloud backup", "contract"}}
	engine := newEngine(index, &mockEmbedder{}, extractor)

	results, err := engine.Retrieve(context.Background(), "cloud backup contract", 1, "")
	require.NoError(t, err)
	require.Len(t, results, 1)

	// summary contains "cloud backup" (1), description contains "cloud backup" (1),
	// filename contains both "contract" and "cloud" case-insensitively (bonus 1)
	assert.Equal(t, 3, results[0].MetadataScore)
}

func TestRetrieveFailedDescriptionContributesZero(t *testing.T) {
	meta := types.ChunkMetadata{
		Filename:          "a.md",
		Description:       "cloud backup",
		DescriptionStatus: types.DescriptionFailed,
	}
	index := &mockIndex{candidates: []types.Candidate{
		{ID: "a_chunk_0", Content: "c", Metadata: meta, Distance: 0.5},
	}}
	extractor := &mockExtractor{phrases: []string{"cloud backup"}}
	engine := newEngine(index, &mockEmbedder{}, extractor)

	results, err := engine.Retrieve(context.Background(), "cloud backup", 1, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].MetadataScore)
}

func TestRetrieveDegradedMetadataScoresZero(t *testing.T) {
	index := &mockIndex{candidates: []types.Candidate{
		{ID: "a_chunk_0", Content: "c", Metadata: types.ChunkMetadata{Filename: "a.md"}, Distance: 0.4},
	}}
	extractor := &mockExtractor{phrases: []string{"something else"}}
	engine := newEngine(index, &mockEmbedder{}, extractor)

	results, err := engine.Retrieve(context.Background(), "query", 1, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].MetadataScore)
	assert.InDelta(t, 0.7*0.6, results[0].CombinedScore, 1e-9)
}

func TestRetrieveFilenameFilter(t *testing.T) {
	index := &mockIndex{candidates: []types.Candidate{
		candidate("a_chunk_0", "a.md", 0.1),
		candidate("b_chunk_0", "b.md", 0.2),
		candidate("a_chunk_1", "a.md", 0.3),
	}}
	engine := newEngine(index, &mockEmbedder{}, &mockExtractor{})

	results, err := engine.Retrieve(context.Background(), "query", 5, "a.md")
	require.NoError(t, err)
	assert.Equal(t, "a.md", index.gotFilter)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, "a.md", r.Metadata.Filename)
	}
}

func TestRetrieveEmptyIndex(t *testing.T) {
	engine := newEngine(&mockIndex{}, &mockEmbedder{}, &mockExtractor{})

	results, err := engine.Retrieve(context.Background(), "query", 3, "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieveEmbeddingFailurePropagates(t *testing.T) {
	embedder := &mockEmbedder{err: errors.New("connection refused")}
	engine := newEngine(&mockIndex{}, embedder, &mockExtractor{})

	results, err := engine.Retrieve(context.Background(), "query", 3, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Nil(t, results)
}

func TestRetrieveIndexFailurePropagates(t *testing.T) {
	index := &mockIndex{err: errors.New("db down")}
	engine := newEngine(index, &mockEmbedder{}, &mockExtractor{})

	_, err := engine.Retrieve(context.Background(), "query", 3, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestRetrieveExtractorFailureDegradesToVectorOnly(t *testing.T) {
	index := &mockIndex{candidates: []types.Candidate{
		candidate("a_chunk_0", "a.md", 0.2),
	}}
	extractor := &mockExtractor{err: errors.New("service down")}
	engine := newEngine(index, &mockEmbedder{}, extractor)

	results, err := engine.Retrieve(context.Background(), "query", 1, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].MetadataScore)
	assert.InDelta(t, 0.7*0.8, results[0].CombinedScore, 1e-9)
}

func TestRetrieveDeterministic(t *testing.T) {
	index := &mockIndex{candidates: []types.Candidate{
		candidate("a_chunk_0", "a.md", 0.3),
		candidate("a_chunk_1", "a.md", 0.1),
		candidate("a_chunk_2", "a.md", 0.2),
	}}
	engine := newEngine(index, &mockEmbedder{}, &mockExtractor{phrases: []string{"query"}})

	first, err := engine.Retrieve(context.Background(), "query", 3, "")
	require.NoError(t, err)
	second, err := engine.Retrieve(context.Background(), "query", 3, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRetrieveUsesQueryEmbedMode(t *testing.T) {
	embedder := &mockEmbedder{}
	engine := newEngine(&mockIndex{}, embedder, &mockExtractor{})

	_, err := engine.Retrieve(context.Background(), "query", 1, "")
	require.NoError(t, err)
	assert.Equal(t, model.EmbedQuery, embedder.gotMode)
}

func TestRetrieveRejectsInvalidK(t *testing.T) {
	engine := newEngine(&mockIndex{}, &mockEmbedder{}, &mockExtractor{})

	_, err := engine.Retrieve(context.Background(), "query", 0, "")
	assert.Error(t, err)
}

func TestNormalizeMetadataScore(t *testing.T) {
	assert.InDelta(t, 0.6, normalizeMetadataScore(3, 5.0), 1e-9)
	assert.InDelta(t, 1.0, normalizeMetadataScore(10, 5.0), 1e-9)
	assert.InDelta(t, 0.0, normalizeMetadataScore(0, 5.0), 1e-9)
	assert.InDelta(t, 1.0, normalizeMetadataScore(5, 5.0), 1e-9)
}

func TestCombinedScoreStaysInUnitRange(t *testing.T) {
	index := &mockIndex{candidates: []types.Candidate{
		{
			ID:      "a_chunk_0",
			Content: "c",
			Metadata: types.ChunkMetadata{
				Filename:          "cloud backup.md",
				SectionKeywords:   "cloud backup, service terms, contract, pricing, sla",
				Summary:           "cloud backup service terms contract pricing sla",
				Description:       "cloud backup service terms contract pricing sla",
				DescriptionStatus: types.DescriptionOK,
			},
			Distance: 0.0, // perfect vector match
		},
	}}
	extractor := &mockExtractor{phrases: []string{"cloud backup", "service terms", "contract", "pricing", "sla"}}
	engine := newEngine(index, &mockEmbedder{}, extractor)

	results, err := engine.Retrieve(context.Background(), "query", 1, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.LessOrEqual(t, results[0].CombinedScore, 1.0)
	assert.GreaterOrEqual(t, results[0].CombinedScore, 0.0)
	// metadata score saturates the cap
	assert.GreaterOrEqual(t, results[0].MetadataScore, 5)
	assert.InDelta(t, 1.0, results[0].CombinedScore, 1e-9)
}
