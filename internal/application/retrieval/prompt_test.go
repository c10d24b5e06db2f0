package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPromptContext(t *testing.T) {
	hits := []SearchHit{
		{DocumentID: 1, Filename: "guide.md", Chunk: "First chunk\nwith newline", ChunkIndex: 0, TotalChunks: 3},
		{DocumentID: 2, Filename: "notes.txt", Chunk: "Second chunk", TotalChunks: 1},
	}
	got := BuildPromptContext(hits, 10, 400)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "[1] (guide.md #1/3)")
	assert.Contains(t, lines[1], "First chunk with newline")
	assert.Contains(t, lines[2], "[2] (notes.txt)")
}

func TestBuildPromptContextEmpty(t *testing.T) {
	assert.Equal(t, "", BuildPromptContext(nil, 10, 400))
}

func TestBuildPromptContextTruncates(t *testing.T) {
	hits := []SearchHit{{DocumentID: 1, Filename: "a.txt", Chunk: strings.Repeat("x", 100), TotalChunks: 1}}
	got := BuildPromptContext(hits, 10, 10)
	assert.Contains(t, got, strings.Repeat("x", 10)+"…")
	assert.NotContains(t, got, strings.Repeat("x", 11))
}
