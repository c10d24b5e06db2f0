package retrieval

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkerEmptyText(t *testing.T) {
	c := NewChunker(500, 50, 500, 0.25)
	assert.Nil(t, c.Chunk(context.Background(), ""))
	assert.Nil(t, c.Chunk(context.Background(), "   \n\n  "))
}

func TestChunkerShortTextSingleChunk(t *testing.T) {
	c := NewChunker(500, 50, 500, 0.25)
	text := strings.Repeat("hello world ", 10) // 120 runes
	chunks := c.Chunk(context.Background(), text)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[0].Total)
	assert.Equal(t, ChunkTypeParagraph, chunks[0].Type)
}

func TestChunkerShortInputYieldsNothing(t *testing.T) {
	// 最小长度约束只作用于整体输入
	c := NewChunker(500, 50, 500, 0.25)
	chunks := c.Chunk(context.Background(), "too short")
	assert.Empty(t, chunks)
}

func TestChunkerKeepsShortTailSegment(t *testing.T) {
	c := NewChunker(500, 50, 500, 0.25)
	head := strings.TrimSpace(strings.Repeat("lead ", 99)) // 494 runes
	tail := "ends with UNIQUE-TAIL-MARKER ok"               // 31 runes，短于 minChunkSize
	text := head + "\n\n" + tail

	chunks := c.Chunk(context.Background(), text)
	require.Greater(t, len(chunks), 1)

	var all strings.Builder
	for _, chunk := range chunks {
		all.WriteString(chunk.Text)
		all.WriteByte('\n')
	}
	assert.Contains(t, all.String(), "UNIQUE-TAIL-MARKER", "tail segment must survive chunking")
}

func TestChunkerMergesParagraphs(t *testing.T) {
	c := NewChunker(500, 50, 500, 0)
	p1 := strings.Repeat("alpha ", 20)
	p2 := strings.Repeat("beta ", 20)
	text := strings.TrimSpace(p1) + "\n\n" + strings.TrimSpace(p2)
	chunks := c.Chunk(context.Background(), text)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "alpha")
	assert.Contains(t, chunks[0].Text, "beta")
}

func TestChunkerRespectsSizeLimit(t *testing.T) {
	c := NewChunker(200, 50, 500, 0.25)
	var sb strings.Builder
	for i := 0; i < 20; i++ {
		sb.WriteString(strings.Repeat("word ", 30))
		sb.WriteString("\n\n")
	}
	chunks := c.Chunk(context.Background(), sb.String())
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		n := utf8.RuneCountInString(chunk.Text)
		assert.LessOrEqual(t, n, 200, "chunk %d exceeds size", chunk.Index)
	}
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, len(chunks), chunk.Total)
	}
}

func TestChunkerOversizedParagraphFallsBackToSentences(t *testing.T) {
	c := NewChunker(100, 20, 500, 0)
	// 单段落超过 100 字符，由句子细分
	var sentences []string
	for i := 0; i < 10; i++ {
		sentences = append(sentences, "This is a complete sentence about retrieval.")
	}
	text := strings.Join(sentences, " ")
	chunks := c.Chunk(context.Background(), text)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk.Text), 100)
		assert.Equal(t, ChunkTypeSentence, chunk.Type)
	}
}

func TestChunkerOversizedSentenceSplitsByWords(t *testing.T) {
	c := NewChunker(50, 10, 500, 0)
	// 无句读的超长文本强制按词切分
	text := strings.TrimSpace(strings.Repeat("unpunctuated ", 30))
	chunks := c.Chunk(context.Background(), text)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk.Text), 50)
		assert.Equal(t, ChunkTypeOverflow, chunk.Type)
	}
}

func TestChunkerOverlapCarriesTail(t *testing.T) {
	c := NewChunker(120, 20, 500, 0.5)
	var paragraphs []string
	for i := 0; i < 6; i++ {
		paragraphs = append(paragraphs, strings.TrimSpace(strings.Repeat("seg"+string(rune('a'+i))+" ", 10)))
	}
	text := strings.Join(paragraphs, "\n\n")
	chunks := c.Chunk(context.Background(), text)
	require.Greater(t, len(chunks), 1)

	// 相邻分块应共享尾部单元
	overlapFound := false
	for i := 1; i < len(chunks); i++ {
		prevWords := strings.Fields(chunks[i-1].Text)
		if strings.Contains(chunks[i].Text, prevWords[len(prevWords)-1]) {
			overlapFound = true
			break
		}
	}
	assert.True(t, overlapFound, "expected overlapping content between adjacent chunks")
}

func TestChunkerCapsChunkCount(t *testing.T) {
	c := NewChunker(60, 10, 5, 0)
	var paragraphs []string
	for i := 0; i < 30; i++ {
		paragraphs = append(paragraphs, strings.TrimSpace(strings.Repeat("filler ", 8)))
	}
	chunks := c.Chunk(context.Background(), strings.Join(paragraphs, "\n\n"))
	require.Len(t, chunks, 5)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, 5, chunk.Total)
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First one. Second one! Third one? 第四句。tail without ending")
	require.Len(t, got, 5)
	assert.Equal(t, "First one.", got[0])
	assert.Equal(t, "Second one!", got[1])
	assert.Equal(t, "tail without ending", got[4])
}

func TestSplitByWordsHardSplitsLongWord(t *testing.T) {
	long := strings.Repeat("x", 25)
	got := splitByWords("short "+long, 10)
	require.NotEmpty(t, got)
	for _, piece := range got {
		assert.LessOrEqual(t, utf8.RuneCountInString(piece), 10)
	}
}
