package retrieval

import (
	"fmt"
	"strings"
)

// BuildPromptContext 将检索命中格式化为可直接注入 Prompt 的上下文块。
// 约束：尽量短，不携带分数等调试信息。
func BuildPromptContext(hits []SearchHit, maxHits int, maxRunesPerHit int) string {
	if len(hits) == 0 {
		return ""
	}
	if maxHits <= 0 {
		maxHits = 10
	}
	if maxRunesPerHit <= 0 {
		maxRunesPerHit = 400
	}

	n := len(hits)
	if n > maxHits {
		n = maxHits
	}

	lines := make([]string, 0, n+1)
	lines = append(lines, "【召回上下文（可能为空）】")
	for i := 0; i < n; i++ {
		h := hits[i]
		ref := strings.TrimSpace(h.Filename)
		if ref == "" {
			ref = fmt.Sprintf("doc:%d", h.DocumentID)
		}
		if h.TotalChunks > 1 {
			ref = fmt.Sprintf("%s #%d/%d", ref, h.ChunkIndex+1, h.TotalChunks)
		}

		txt := compactOneLine(h.Chunk)
		txt = truncateRunes(txt, maxRunesPerHit)
		if strings.TrimSpace(txt) == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%d] (%s) %s", i+1, ref, txt))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func compactOneLine(s string) string {
	out := strings.ReplaceAll(s, "\r\n", "\n")
	out = strings.ReplaceAll(out, "\r", "\n")
	out = strings.ReplaceAll(out, "\n", " ")
	out = strings.TrimSpace(out)
	for strings.Contains(out, "  ") {
		out = strings.ReplaceAll(out, "  ", " ")
	}
	return out
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max])) + "…"
}
