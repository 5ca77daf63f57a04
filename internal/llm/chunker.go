package llm

import (
	"strings"
	"unicode"
)

// Chunker splits ticket bodies into indexable fragments. Splitting is
// sentence-aware to keep each chunk semantically coherent, with a
// configurable character overlap so context is preserved across chunk
// boundaries. Chunk vectors are produced per fragment, so the sizes here
// determine the unit of retrieval.
type Chunker struct {
	MaxChunkSize int // maximum chunk size in characters (default: 500)
	Overlap      int // overlap size in characters (default: 100)
}

// NewChunker returns a chunker with the indexing defaults (500-character
// chunks, 100-character overlap).
func NewChunker() *Chunker {
	return &Chunker{MaxChunkSize: 500, Overlap: 100}
}

// Chunk splits content into overlapping chunks. Empty and duplicate chunks
// are dropped. Whitespace-only input yields an empty slice, which callers
// treat as "nothing to index".
func (c *Chunker) Chunk(content string) []string {
	if len(strings.TrimSpace(content)) == 0 {
		return []string{}
	}

	if len(content) <= c.MaxChunkSize {
		return []string{content}
	}

	sentences := splitSentences(content)
	if len(sentences) == 0 {
		return []string{}
	}

	var chunks []string
	var current strings.Builder
	var previous []string // carried for overlap

	for _, sentence := range sentences {
		if current.Len()+len(sentence) > c.MaxChunkSize && current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()

			// Seed the next chunk with trailing sentences that fit in the
			// overlap window.
			overlapLen := 0
			overlapStart := len(previous)
			for i := len(previous) - 1; i >= 0; i-- {
				if overlapLen+len(previous[i]) > c.Overlap {
					break
				}
				overlapLen += len(previous[i])
				overlapStart = i
			}
			for i := overlapStart; i < len(previous); i++ {
				current.WriteString(previous[i])
			}
			previous = previous[overlapStart:]
		}

		current.WriteString(sentence)
		previous = append(previous, sentence)

		// Bound the overlap buffer.
		if len(previous) > 50 {
			previous = previous[len(previous)-50:]
		}
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return dedupeChunks(chunks)
}

// splitSentences splits text on common sentence terminators, keeping the
// terminator (and following space) with its sentence. A terminator only ends
// a sentence when followed by whitespace and an uppercase letter, which
// avoids splitting on abbreviations and decimal points in most cases.
func splitSentences(text string) []string {
	if len(text) == 0 {
		return []string{}
	}

	var sentences []string
	var current strings.Builder
	runes := []rune(text)

	flush := func() {
		if s := current.String(); len(strings.TrimSpace(s)) > 0 {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)

		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 >= len(runes) {
			flush()
			continue
		}
		if !unicode.IsSpace(runes[i+1]) {
			continue
		}
		current.WriteRune(runes[i+1])
		i++
		if i+1 >= len(runes) || unicode.IsUpper(runes[i+1]) {
			flush()
		}
	}

	if current.Len() > 0 {
		flush()
	}

	return sentences
}

// dedupeChunks removes duplicate chunks while preserving order.
func dedupeChunks(chunks []string) []string {
	if len(chunks) == 0 {
		return chunks
	}
	seen := make(map[string]bool, len(chunks))
	result := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if !seen[chunk] {
			seen[chunk] = true
			result = append(result, chunk)
		}
	}
	return result
}
