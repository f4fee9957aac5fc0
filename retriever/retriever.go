package retriever

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"docqa/model"
	"docqa/types"
)

// ErrServiceUnavailable marks a failed embedding or index call. It is
// propagated so callers can tell "no matches" from "service down".
var ErrServiceUnavailable = errors.New("retrieval service unavailable")

// Config holds the ranking tunables. The defaults reproduce the calibrated
// production behavior; they are not recomputed from corpus statistics.
type Config struct {
	VectorWeight    float64 // weight of vector similarity in the fused score
	MetadataWeight  float64 // weight of the normalized metadata score
	ScoreCap        float64 // linear cap denominator for the metadata score
	OverfetchFactor int     // candidate fetch multiplier over k
	QueryKeyphrases int     // max key phrases extracted from the query
}

func DefaultConfig() Config {
	return Config{
		VectorWeight:    0.7,
		MetadataWeight:  0.3,
		ScoreCap:        5.0,
		OverfetchFactor: 2,
		QueryKeyphrases: 5,
	}
}

// Engine turns a natural-language query into a scored, ordered list of
// chunks by fusing vector similarity with metadata overlap.
type Engine struct {
	index     store
	embedder  model.EmbedderInterface
	extractor model.KeyphraseExtractor
	cfg       Config
}

// store is the slice of the index adapter the engine needs.
type store interface {
	Query(ctx context.Context, embedding []float32, k int, filenameFilter string) ([]types.Candidate, error)
}

func New(index store, embedder model.EmbedderInterface, extractor model.KeyphraseExtractor, cfg Config) *Engine {
	return &Engine{
		index:     index,
		embedder:  embedder,
		extractor: extractor,
		cfg:       cfg,
	}
}

// Retrieve returns at most k results ordered by combined score, highest
// first. Ties keep the index's candidate order (stable sort). Embedding and
// index failures abort the call; an empty candidate set does not.
func (e *Engine) Retrieve(ctx context.Context, query string, k int, filenameFilter string) ([]types.ScoredResult, error) {
	if k < 1 {
		return nil, fmt.Errorf("top_k must be >= 1, got %d", k)
	}

	embeddings, err := e.embedder.Embed(ctx, []string{query}, model.EmbedQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", ErrServiceUnavailable, err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("%w: embed query: no vector returned", ErrServiceUnavailable)
	}

	candidates, err := e.index.Query(ctx, embeddings[0], e.cfg.OverfetchFactor*k, filenameFilter)
	if err != nil {
		return nil, fmt.Errorf("%w: index query: %v", ErrServiceUnavailable, err)
	}
	if len(candidates) == 0 {
		return []types.ScoredResult{}, nil
	}

	queryKeyphrases := e.queryKeyphrases(ctx, query)

	results := make([]types.ScoredResult, len(candidates))
	for i, c := range candidates {
		metadataScore := scoreMetadata(queryKeyphrases, c.Metadata)
		normalized := normalizeMetadataScore(metadataScore, e.cfg.ScoreCap)

		similarity := 1 - c.Distance
		results[i] = types.ScoredResult{
			Content:          c.Content,
			Metadata:         c.Metadata,
			VectorSimilarity: similarity,
			MetadataScore:    metadataScore,
			CombinedScore:    e.cfg.VectorWeight*similarity + e.cfg.MetadataWeight*normalized,
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CombinedScore > results[j].CombinedScore
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// queryKeyphrases extracts up to cfg.QueryKeyphrases phrases (1-3 words) from
// the query. Only the set matters for scoring; extraction failure degrades to
// pure vector ranking instead of aborting the call.
func (e *Engine) queryKeyphrases(ctx context.Context, query string) map[string]struct{} {
	phrases := make(map[string]struct{})
	extracted, err := e.extractor.Extract(ctx, query, 1, 3, e.cfg.QueryKeyphrases)
	if err != nil {
		return phrases
	}
	for _, kp := range extracted {
		phrases[kp.Phrase] = struct{}{}
	}
	return phrases
}

// scoreMetadata counts the lexical relevance signals between the query key
// phrases and one candidate's metadata.
func scoreMetadata(queryKeyphrases map[string]struct{}, m types.ChunkMetadata) int {
	chunkKeywords := make(map[string]struct{})
	for _, kw := range strings.Split(m.SectionKeywords, ", ") {
		chunkKeywords[kw] = struct{}{}
	}

	description := m.Description
	if m.DescriptionStatus != types.DescriptionOK {
		description = ""
	}

	keywordOverlap := 0
	summaryOverlap := 0
	descriptionOverlap := 0
	filenameBonus := 0

	summary := strings.ToLower(m.Summary)
	description = strings.ToLower(description)
	filename := strings.ToLower(m.Filename)

	for kp := range queryKeyphrases {
		if _, ok := chunkKeywords[kp]; ok {
			keywordOverlap++
		}
		lower := strings.ToLower(kp)
		if summary != "" && strings.Contains(summary, lower) {
			summaryOverlap++
		}
		if description != "" && strings.Contains(description, lower) {
			descriptionOverlap++
		}
		if filenameBonus == 0 && strings.Contains(filename, lower) {
			filenameBonus = 1
		}
	}

	return keywordOverlap + summaryOverlap + descriptionOverlap + filenameBonus
}

func normalizeMetadataScore(score int, denom float64) float64 {
	normalized := float64(score) / denom
	if normalized > 1.0 {
		return 1.0
	}
	return normalized
}
