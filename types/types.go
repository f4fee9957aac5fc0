package types

import (
	"time"

	"github.com/google/uuid"
)

type DescriptionStatus string

const (
	// DescriptionOK means the LLM produced a description for the chunk.
	DescriptionOK DescriptionStatus = "ok"
	// DescriptionFailed means the enrichment call failed; the chunk is stored
	// without a description and ranking treats the field as empty.
	DescriptionFailed DescriptionStatus = "failed"
	// DescriptionAbsent means enrichment was never attempted.
	DescriptionAbsent DescriptionStatus = ""
)

// ChunkMetadata is the typed metadata record attached to every stored chunk.
// Missing fields stay empty and contribute zero to ranking.
type ChunkMetadata struct {
	Filename          string            `json:"filename"`
	SectionKeywords   string            `json:"section_keywords"` // comma-joined, ranked by relevance
	Summary           string            `json:"summary"`
	Description       string            `json:"description"`
	DescriptionStatus DescriptionStatus `json:"description_status,omitempty"`
}

// Chunk is the unit of retrievable content. ID is {filename}_chunk_{index},
// stable within one ingestion run; re-ingesting the same file overwrites it.
type Chunk struct {
	ID        string
	Index     int
	Content   string
	Metadata  ChunkMetadata
	Embedding []float32
}

// Candidate pairs a retrieved chunk with its raw cosine distance from the
// index (0 = identical). It only exists during one retrieval call.
type Candidate struct {
	ID       string
	Content  string
	Metadata ChunkMetadata
	Distance float64
}

// ScoredResult is the output unit of the retrieval engine.
type ScoredResult struct {
	Content          string        `json:"content"`
	Metadata         ChunkMetadata `json:"metadata"`
	VectorSimilarity float64       `json:"vector_similarity"`
	MetadataScore    int           `json:"metadata_score"`
	CombinedScore    float64       `json:"combined_score"`
}

type Document struct {
	ID        uuid.UUID
	Filename  string
	Chunks    []Chunk
	Source    string
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int
}
