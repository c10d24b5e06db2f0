package retrieval

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"doc-qa-api/pkg/logger"
)

const (
	defaultChunkSizeRunes = 500
	defaultMinChunkRunes  = 50
	defaultMaxChunks      = 500
	defaultOverlapRatio   = 0.25
)

// Chunker 将提取后的文本切分为带重叠的分块。
// 优先按段落贪心合并；超长段落按句子细分；超长句子按词强制切分。
type Chunker struct {
	chunkSize    int
	minChunkSize int
	maxChunks    int
	overlapRatio float64
}

// NewChunker 创建分块器。非法参数回退为默认值。
func NewChunker(chunkSize, minChunkSize, maxChunks int, overlapRatio float64) *Chunker {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSizeRunes
	}
	if minChunkSize <= 0 {
		minChunkSize = defaultMinChunkRunes
	}
	if maxChunks <= 0 {
		maxChunks = defaultMaxChunks
	}
	if overlapRatio < 0 || overlapRatio >= 1 {
		overlapRatio = defaultOverlapRatio
	}
	return &Chunker{
		chunkSize:    chunkSize,
		minChunkSize: minChunkSize,
		maxChunks:    maxChunks,
		overlapRatio: overlapRatio,
	}
}

// chunkUnit 分块的最小装配单元。
type chunkUnit struct {
	text  string
	typ   ChunkType
	runes int
}

// Chunk 切分文本。短于 minChunkSize 的输入不产生分块；
// 其余输入完整保留：拼接全部分块（去除重叠）可还原原文顺序，数量不超过 maxChunks。
func (c *Chunker) Chunk(ctx context.Context, text string) []Chunk {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < c.minChunkSize {
		return nil
	}

	units := c.units(text)
	if len(units) == 0 {
		return nil
	}

	overlapBudget := int(float64(c.chunkSize) * c.overlapRatio)

	var chunks []Chunk
	var cur []chunkUnit
	curLen := 0

	flush := func() {
		if curLen == 0 {
			return
		}
		// 缓冲区无论长短一律产出，尾段不丢弃
		joined, typ := joinUnits(cur)
		chunks = append(chunks, Chunk{Text: joined, Type: typ})
		// 用上一分块的尾部单元作为下一分块的重叠前缀
		var seed []chunkUnit
		seedLen := 0
		for i := len(cur) - 1; i > 0; i-- {
			u := cur[i]
			next := seedLen + u.runes
			if seedLen > 0 {
				next += sepRunes(u.typ)
			}
			if next > overlapBudget {
				break
			}
			seed = append([]chunkUnit{u}, seed...)
			seedLen = next
		}
		cur = seed
		curLen = seedLen
	}

	for _, u := range units {
		sep := 0
		if curLen > 0 {
			sep = sepRunes(u.typ)
		}
		if curLen > 0 && curLen+sep+u.runes > c.chunkSize {
			flush()
			sep = 0
			if curLen > 0 {
				sep = sepRunes(u.typ)
			}
			// 重叠前缀挤占了新单元的空间时放弃前缀
			if curLen > 0 && curLen+sep+u.runes > c.chunkSize {
				cur = nil
				curLen = 0
				sep = 0
			}
		}
		cur = append(cur, u)
		curLen += sep + u.runes
	}
	flush()

	if len(chunks) > c.maxChunks {
		logger.FromContext(ctx).Warn("chunk count exceeds ceiling, truncating",
			"chunks", len(chunks),
			"max_chunks", c.maxChunks,
		)
		chunks = chunks[:c.maxChunks]
	}

	for i := range chunks {
		chunks[i].Index = i
		chunks[i].Total = len(chunks)
	}
	return chunks
}

// units 将文本分解为不超过 chunkSize 的装配单元。
func (c *Chunker) units(text string) []chunkUnit {
	var out []chunkUnit
	for _, p := range splitParagraphs(text) {
		n := utf8.RuneCountInString(p)
		if n <= c.chunkSize {
			out = append(out, chunkUnit{text: p, typ: ChunkTypeParagraph, runes: n})
			continue
		}
		for _, s := range splitSentences(p) {
			sn := utf8.RuneCountInString(s)
			if sn <= c.chunkSize {
				out = append(out, chunkUnit{text: s, typ: ChunkTypeSentence, runes: sn})
				continue
			}
			for _, w := range splitByWords(s, c.chunkSize) {
				out = append(out, chunkUnit{text: w, typ: ChunkTypeOverflow, runes: utf8.RuneCountInString(w)})
			}
		}
	}
	return out
}

// joinUnits 拼接单元并返回分块类型（取最细的切分粒度）。
func joinUnits(units []chunkUnit) (string, ChunkType) {
	typ := ChunkTypeParagraph
	var sb strings.Builder
	for i, u := range units {
		if i > 0 {
			if u.typ == ChunkTypeParagraph {
				sb.WriteString("\n\n")
			} else {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(u.text)
		typ = widerType(typ, u.typ)
	}
	return sb.String(), typ
}

func widerType(a, b ChunkType) ChunkType {
	rank := func(t ChunkType) int {
		switch t {
		case ChunkTypeOverflow:
			return 2
		case ChunkTypeSentence:
			return 1
		default:
			return 0
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}

func sepRunes(t ChunkType) int {
	if t == ChunkTypeParagraph {
		return 2
	}
	return 1
}

var reParagraphSplit = regexp.MustCompile(`\n\s*\n`)

func splitParagraphs(text string) []string {
	parts := reParagraphSplit.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

var reSentence = regexp.MustCompile(`[^.!?。！？]*[.!?。！？]+["')\]]*\s*|[^.!?。！？]+$`)

func splitSentences(paragraph string) []string {
	matches := reSentence.FindAllString(paragraph, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimSpace(m)
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// splitByWords 按词切分超长句子；单词超长时按字符硬切。
func splitByWords(s string, maxRunes int) []string {
	words := strings.Fields(s)
	var out []string
	var cur []string
	curLen := 0
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, " "))
			cur = nil
			curLen = 0
		}
	}
	for _, w := range words {
		wn := utf8.RuneCountInString(w)
		if wn > maxRunes {
			flush()
			runes := []rune(w)
			for start := 0; start < len(runes); start += maxRunes {
				end := start + maxRunes
				if end > len(runes) {
					end = len(runes)
				}
				out = append(out, string(runes[start:end]))
			}
			continue
		}
		sep := 0
		if curLen > 0 {
			sep = 1
		}
		if curLen+sep+wn > maxRunes {
			flush()
			sep = 0
		}
		cur = append(cur, w)
		curLen += sep + wn
	}
	flush()
	return out
}
