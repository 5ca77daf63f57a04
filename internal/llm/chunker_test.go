package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker_EmptyInput(t *testing.T) {
	c := NewChunker()

	assert.Empty(t, c.Chunk(""))
	assert.Empty(t, c.Chunk("   \n\t  "))
}

func TestChunker_ShortContentSingleChunk(t *testing.T) {
	c := NewChunker()
	content := "The printer on floor 3 is jammed. Please advise."

	chunks := c.Chunk(content)

	require.Len(t, chunks, 1)
	assert.Equal(t, content, chunks[0])
}

func TestChunker_LongContentSplits(t *testing.T) {
	c := NewChunker()

	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("The VPN client disconnects every few minutes on the corporate network. ")
	}
	content := b.String()

	chunks := c.Chunk(content)

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		// A chunk can exceed the limit only by its seeded overlap plus one
		// sentence, never unboundedly.
		assert.LessOrEqual(t, len(chunk), c.MaxChunkSize+c.Overlap+100)
	}
}

func TestChunker_OverlapCarriesContext(t *testing.T) {
	c := &Chunker{MaxChunkSize: 100, Overlap: 40}
	content := "Alpha bravo charlie delta echo foxtrot. Golf hotel india juliet kilo lima. " +
		"Mike november oscar papa quebec romeo. Sierra tango uniform victor whiskey xray."

	chunks := c.Chunk(content)
	require.Greater(t, len(chunks), 1)

	// The second chunk starts with the tail of the first.
	firstTail := chunks[0][len(chunks[0])-20:]
	assert.Contains(t, chunks[1], strings.TrimSpace(firstTail))
}

func TestChunker_DropsDuplicates(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, dedupeChunks([]string{"a", "b", "a"}))
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"two sentences", "First issue here. Second issue there.", 2},
		{"lowercase after period is not a boundary", "See file v1.2 notes. the fix follows.", 1},
		{"question and exclamation", "Is it broken? It is! Restart now.", 3},
		{"no terminator", "single fragment without punctuation", 1},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSentences(tt.in)
			assert.Len(t, got, tt.want)

			// Splitting must be lossless.
			assert.Equal(t, tt.in, strings.Join(got, ""))
		})
	}
}
