package answer

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"docqa/model"
	"docqa/retriever"
	"docqa/types"
)

const queryPrompt = `
Objective: You are an AI assistant tasked with answering questions based on a collection of documents in English and German. Your goal is to provide accurate, concise answers (4-5 lines max unless necessary) derived from the documents. Answer in the language of the question: English questions receive English answers, German questions receive German answers, regardless of the document's original language. Use the document data to formulate responses and avoid speculation.

Context: {context}

Question: {question}

Answer:
`

const noContextPrompt = `
You are an assistant. Answer the following question to the best of your ability.
Mention the relevant data was not present and this is a general answer.
Answer in the same language as the query.
Question: {question}
Answer:
`

// Asker formats retrieved chunks into a prompt, calls the language model and
// cleans the raw answer for plain-text display.
type Asker struct {
	logger *slog.Logger
	engine *retriever.Engine
	llm    model.LLMInterface
}

func New(engine *retriever.Engine, llm model.LLMInterface) *Asker {
	return &Asker{
		logger: slog.Default(),
		engine: engine,
		llm:    llm,
	}
}

// Ask retrieves topK chunks for the question and answers from them. When
// retrieval fails or returns nothing, it falls back to a context-free prompt
// and reports the answer as ungrounded.
func (a *Asker) Ask(ctx context.Context, question string, topK int, filenameFilter string) (*types.AskResponse, error) {
	chunks, err := a.engine.Retrieve(ctx, question, topK, filenameFilter)
	if err != nil {
		a.logger.Error("retrieval failed, answering without context", "error", err)
		return a.askWithoutContext(ctx, question)
	}
	if len(chunks) == 0 {
		a.logger.Warn("no chunks retrieved, answering without context")
		return a.askWithoutContext(ctx, question)
	}

	context := BuildContext(chunks)
	prompt := strings.Replace(queryPrompt, "{context}", context, 1)
	prompt = strings.Replace(prompt, "{question}", question, 1)

	raw, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("query LLM: %w", err)
	}

	return &types.AskResponse{
		Answer:   CleanResponse(raw),
		Sources:  chunks,
		Grounded: true,
	}, nil
}

func (a *Asker) askWithoutContext(ctx context.Context, question string) (*types.AskResponse, error) {
	prompt := strings.Replace(noContextPrompt, "{question}", question, 1)

	raw, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("query LLM without context: %w", err)
	}

	return &types.AskResponse{
		Answer:   CleanResponse(raw),
		Sources:  []types.ScoredResult{},
		Grounded: false,
	}, nil
}

// BuildContext formats the retrieved chunks into the context block the prompt
// template expects: content, metadata and the fused similarity score.
func BuildContext(chunks []types.ScoredResult) string {
	var b strings.Builder
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "Chunk %d:\n", i+1)
		fmt.Fprintf(&b, "Content: %s\n", chunk.Content)
		fmt.Fprintf(&b, "Metadata: filename=%s; keywords=%s; summary=%s\n",
			chunk.Metadata.Filename, chunk.Metadata.SectionKeywords, chunk.Metadata.Summary)
		fmt.Fprintf(&b, "Similarity Score: %.4f\n\n", chunk.CombinedScore)
	}
	return b.String()
}

var (
	brRegex      = regexp.MustCompile(`(?i)<br\s*/?>`)
	boldRegex    = regexp.MustCompile(`\*\*(.*?)\*\*`)
	tagRegex     = regexp.MustCompile(`<[^>]+>`)
	blankRegex   = regexp.MustCompile(`\n\s*\n+`)
	multiWSRegex = regexp.MustCompile(`\s+`)
)

// CleanResponse converts the raw LLM output to plain text: line-break markup
// becomes newlines, bold emphasis becomes uppercase, remaining tags are
// stripped and redundant whitespace is collapsed.
func CleanResponse(response string) string {
	response = brRegex.ReplaceAllString(response, "\n")
	response = boldRegex.ReplaceAllStringFunc(response, func(m string) string {
		inner := boldRegex.FindStringSubmatch(m)[1]
		return strings.ToUpper(inner)
	})
	response = tagRegex.ReplaceAllString(response, "")
	response = strings.TrimSpace(blankRegex.ReplaceAllString(response, "\n\n"))
	response = multiWSRegex.ReplaceAllString(response, " ")
	return response
}
