package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"doc-qa-api/pkg/logger"
)

const expandSystemPrompt = `你是一个检索查询改写助手。用户会给出一个查询，请生成语义等价但措辞不同的改写，
用于提升向量召回的覆盖面。要求：
1. 每行输出一条改写，不要编号、不要引号、不要解释
2. 保持原查询的语言（中文查询输出中文，英文查询输出英文）
3. 改写应使用同义词、不同句式或领域术语`

// LLMExpander 基于 ChatModel 的查询扩写器。
type LLMExpander struct {
	chatModel model.BaseChatModel
	timeout   time.Duration
}

// NewLLMExpander 创建 LLM 查询扩写器。
func NewLLMExpander(chatModel model.BaseChatModel, timeout time.Duration) *LLMExpander {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LLMExpander{chatModel: chatModel, timeout: timeout}
}

// Expand 生成 n-1 条查询变体，返回值首位固定为原始查询。
// LLM 不可用或输出不可解析时返回错误，由调用方退回仅用原查询。
func (e *LLMExpander) Expand(ctx context.Context, query string, n int) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if n <= 1 || e == nil || e.chatModel == nil {
		return []string{query}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	msg, err := e.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(expandSystemPrompt),
		schema.UserMessage(fmt.Sprintf("生成 %d 条改写：\n%s", n-1, query)),
	})
	if err != nil {
		return nil, fmt.Errorf("query expansion failed: %w", err)
	}

	variants := parseVariants(msg.Content, query, n-1)
	logger.FromContext(ctx).Debug("query expanded",
		"query", query,
		"variants", len(variants),
	)
	return append([]string{query}, variants...), nil
}

var variantPrefixes = []string{"-", "*", "•"}

// parseVariants 逐行解析 LLM 输出，剥离编号与引号并按小写去重。
func parseVariants(content, original string, max int) []string {
	seen := map[string]struct{}{
		strings.ToLower(strings.TrimSpace(original)): {},
	}
	var out []string
	for _, line := range strings.Split(content, "\n") {
		v := strings.TrimSpace(line)
		for _, p := range variantPrefixes {
			v = strings.TrimSpace(strings.TrimPrefix(v, p))
		}
		v = stripNumbering(v)
		v = strings.Trim(v, `"'“”`)
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
		if len(out) >= max {
			break
		}
	}
	return out
}

// stripNumbering 去掉 "1. " / "2)" / "3、" 一类的行首编号。
func stripNumbering(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(s) {
		return s
	}
	switch s[i] {
	case '.', ')', ':':
		return strings.TrimSpace(s[i+1:])
	}
	if strings.HasPrefix(s[i:], "、") {
		return strings.TrimSpace(s[i+len("、"):])
	}
	return s
}

// IdentityExpander 未配置 LLM 时的空扩写器，仅返回原查询。
type IdentityExpander struct{}

// Expand 返回原始查询。
func (IdentityExpander) Expand(_ context.Context, query string, _ int) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	return []string{query}, nil
}
