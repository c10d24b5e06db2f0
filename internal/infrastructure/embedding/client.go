// Package embedding 提供文本向量化能力的多种实现
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"doc-qa-api/internal/application/retrieval"
	"doc-qa-api/internal/config"
	"doc-qa-api/pkg/metrics"
)

// RemoteProvider 自托管 embedding 服务的 HTTP 客户端。
// 协议：POST /embed {"texts":[...],"model":"..."} -> {"embeddings":[[...]]}
type RemoteProvider struct {
	endpoint      string
	model         string
	dimension     int
	maxInputRunes int
	httpClient    *http.Client
}

type embedRequest struct {
	Texts []string `json:"texts"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	TokensUsed int         `json:"tokens_used"`
}

// NewRemoteProvider 创建远程 embedding 提供商。
func NewRemoteProvider(cfg *config.EmbeddingConfig) (*RemoteProvider, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("embedding endpoint is required for remote provider")
	}
	dim := cfg.Dimension
	if dim <= 0 {
		dim = 1024
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = "BAAI/bge-m3"
	}
	return &RemoteProvider{
		endpoint:      cfg.Endpoint,
		model:         model,
		dimension:     dim,
		maxInputRunes: cfg.MaxInputRunes,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Embed 向量化单条文本。
func (p *RemoteProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch 批量向量化。
func (p *RemoteProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	inputs := make([]string, len(texts))
	for i, t := range texts {
		inputs[i] = capRunes(t, p.maxInputRunes)
	}

	reqBody, err := json.Marshal(&embedRequest{Texts: inputs, Model: p.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	endpoint := strings.TrimRight(p.endpoint, "/")
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid embedding endpoint: %w", err)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/embed"
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues("remote", "error").Inc()
		return nil, classifyError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		metrics.EmbeddingRequestsTotal.WithLabelValues("remote", "error").Inc()
		err := fmt.Errorf("embedding request failed: status=%d", httpResp.StatusCode)
		if isTransientStatus(httpResp.StatusCode) {
			return nil, fmt.Errorf("%w: %s", retrieval.ErrEmbeddingTransient, err.Error())
		}
		return nil, fmt.Errorf("%w: %s", retrieval.ErrEmbedderUnavailable, err.Error())
	}

	var resp embedResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues("remote", "error").Inc()
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	metrics.EmbeddingRequestsTotal.WithLabelValues("remote", "ok").Inc()

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

// Dimension 返回向量维度。
func (p *RemoteProvider) Dimension() int { return p.dimension }

// Identity 返回提供商与模型的唯一标识。
func (p *RemoteProvider) Identity() string { return "remote/" + p.model }

func isTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// classifyError 将网络层错误归类为瞬时或不可恢复失败。
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s", retrieval.ErrEmbeddingTransient, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", retrieval.ErrEmbeddingTransient, err.Error())
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "timeout") {
		return fmt.Errorf("%w: %s", retrieval.ErrEmbeddingTransient, err.Error())
	}
	return fmt.Errorf("%w: %s", retrieval.ErrEmbedderUnavailable, err.Error())
}
