package ingest

import (
	"context"
	"log"
	"strings"

	"docqa/model"
	"docqa/types"
)

const descriptionPrompt = `
Generate a concise description of the following document chunk in 1-2 lines.
Do NOT include any instructional text like 'Here is a description' or formatting like <br>.
Only provide the description itself, tailored to the chunk's content.

Examples:

- Input: '## Section 1
Some text here'
- Output: 'Brief overview of a project section.'

- Input: '| Time | Person |
|-----|--------|
| 10:00| Alice  |'
- Output: 'Table listing a scheduled time and assigned person.'

Chunk content:
{page_content}
`

// Enricher derives keyword, summary and description metadata for chunks.
// A failed call degrades that one chunk instead of aborting the document.
type Enricher struct {
	extractor model.KeyphraseExtractor
	llm       model.LLMInterface
}

func NewEnricher(extractor model.KeyphraseExtractor, llm model.LLMInterface) *Enricher {
	return &Enricher{
		extractor: extractor,
		llm:       llm,
	}
}

// Enrich fills in the metadata of every chunk in place.
func (e *Enricher) Enrich(ctx context.Context, chunks []types.Chunk) {
	for i := range chunks {
		e.enrichOne(ctx, &chunks[i])
	}
}

func (e *Enricher) enrichOne(ctx context.Context, chunk *types.Chunk) {
	// ranked 2-3 word key phrases, top 5
	keywords, err := e.extractor.Extract(ctx, chunk.Content, 2, 3, 5)
	if err != nil {
		log.Printf("keyphrase extraction failed for %s: %v", chunk.ID, err)
	} else {
		phrases := make([]string, len(keywords))
		for i, kw := range keywords {
			phrases[i] = kw.Phrase
		}
		chunk.Metadata.SectionKeywords = strings.Join(phrases, ", ")
	}

	// one 3-5 word phrase as summary
	summary, err := e.extractor.Extract(ctx, chunk.Content, 3, 5, 1)
	if err != nil {
		log.Printf("summary extraction failed for %s: %v", chunk.ID, err)
	} else if len(summary) > 0 {
		chunk.Metadata.Summary = summary[0].Phrase
	}

	prompt := strings.Replace(descriptionPrompt, "{page_content}", chunk.Content, 1)
	description, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		log.Printf("description generation failed for %s: %v", chunk.ID, err)
		chunk.Metadata.Description = ""
		chunk.Metadata.DescriptionStatus = types.DescriptionFailed
		return
	}
	chunk.Metadata.Description = strings.TrimSpace(description)
	chunk.Metadata.DescriptionStatus = types.DescriptionOK
}
