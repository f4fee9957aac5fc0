package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"docqa/types"
)

// Chunker splits normalized markdown into bounded-size chunks. Tables are
// extracted whole first, then the remainder is split on "##" headers with
// small sections merged forward; oversized sections fall back to size-based
// splitting with overlap.
type Chunker struct {
	ChunkSize    int // soft bound in characters; tables may exceed it
	ChunkOverlap int
	MinChunkSize int // header sections below this merge into the next one
}

func NewChunker(chunkSize, overlap, minSize int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 750
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 150
	}
	if minSize <= 0 {
		minSize = 75
	}
	return &Chunker{
		ChunkSize:    chunkSize,
		ChunkOverlap: overlap,
		MinChunkSize: minSize,
	}
}

// full markdown table: header row, separator row, then content rows
var tableRegex = regexp.MustCompile(`(?s)(\|(?:[^|\n]*\|)+\n\|[-:\s|]*\|\n(?:.*?))(\n\n|\z)`)

var blankLinesRegex = regexp.MustCompile(`\n\s*\n+`)

var headerRegex = regexp.MustCompile(`(?m)^## `)

// Chunk splits the document text and tags every chunk with the source
// filename and its {filename}_chunk_{index} id.
func (c *Chunker) Chunk(filename, text string) []types.Chunk {
	var pieces []string

	tables, remainder := detectTables(text)
	pieces = append(pieces, tables...)

	remainder = strings.TrimSpace(remainder)
	if remainder != "" {
		sections := splitByHeaders(remainder)
		if len(sections) > 1 || headerRegex.MatchString(remainder) {
			pieces = append(pieces, c.mergeAndBound(sections)...)
		} else {
			pieces = append(pieces, c.splitBySize(remainder)...)
		}
	}

	chunks := make([]types.Chunk, 0, len(pieces))
	for i, content := range pieces {
		chunks = append(chunks, types.Chunk{
			ID:      fmt.Sprintf("%s_chunk_%d", filename, i),
			Index:   i,
			Content: content,
			Metadata: types.ChunkMetadata{
				Filename: filename,
			},
		})
	}
	return chunks
}

// detectTables pulls whole markdown tables out of the text and returns them
// along with the cleaned remainder.
func detectTables(text string) ([]string, string) {
	matches := tableRegex.FindAllStringSubmatch(text, -1)
	var tables []string
	remainder := text
	for _, m := range matches {
		table := strings.TrimRight(m[1], "\n")
		tables = append(tables, table)
		remainder = strings.Replace(remainder, m[1], "", 1)
	}
	remainder = blankLinesRegex.ReplaceAllString(strings.TrimSpace(remainder), "\n\n")
	return tables, remainder
}

// splitByHeaders splits on "## " section markers, keeping the header line
// with its section.
func splitByHeaders(text string) []string {
	lines := strings.Split(text, "\n")
	var sections []string
	var buf strings.Builder

	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			sections = append(sections, s)
		}
		buf.Reset()
	}

	for _, line := range lines {
		if strings.HasPrefix(line, "## ") {
			flush()
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	flush()
	return sections
}

// mergeAndBound merges undersized header sections forward into the next one,
// then enforces the size bound on the merged sections.
func (c *Chunker) mergeAndBound(sections []string) []string {
	var out []string
	current := ""
	for _, section := range sections {
		if len(section) < c.MinChunkSize && current != "" {
			current += "\n\n" + section
			continue
		}
		if current != "" {
			out = append(out, c.bound(current)...)
		}
		current = section
	}
	if current != "" {
		out = append(out, c.bound(current)...)
	}
	return out
}

func (c *Chunker) bound(section string) []string {
	if len(section) > c.ChunkSize {
		return c.splitBySize(section)
	}
	return []string{section}
}

// splitBySize splits text into ChunkSize windows with ChunkOverlap characters
// of overlap between consecutive windows, breaking on whitespace when it can.
// The next window starts relative to where the previous one actually ended, so
// an early whitespace break never skips text.
func (c *Chunker) splitBySize(text string) []string {
	var out []string

	start := 0
	for start < len(text) {
		end := start + c.ChunkSize
		if end >= len(text) {
			end = len(text)
		} else if i := strings.LastIndexAny(text[start:end], " \n\t"); i > 0 {
			end = start + i
		}

		piece := strings.TrimSpace(text[start:end])
		if piece != "" {
			out = append(out, piece)
		}

		if end == len(text) {
			break
		}
		next := end - c.ChunkOverlap
		if next <= start {
			// overlap would stall on a short window, continue without it
			next = end
		}
		start = next
	}
	return out
}
