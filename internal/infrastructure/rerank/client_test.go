package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-qa-api/internal/config"
)

func TestNewClientRequiresEndpoint(t *testing.T) {
	_, err := NewClient(&config.RerankConfig{})
	assert.Error(t, err)
}

func TestClientScore(t *testing.T) {
	var gotQuery string
	var gotTexts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/rerank", r.URL.Path)

		var req struct {
			Query string   `json:"query"`
			Texts []string `json:"texts"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotQuery = req.Query
		gotTexts = req.Texts

		_ = json.NewEncoder(w).Encode(map[string]any{
			"scores": []float64{0.9, 0.1},
		})
	}))
	defer srv.Close()

	client, err := NewClient(&config.RerankConfig{Endpoint: srv.URL})
	require.NoError(t, err)

	scores, err := client.Score(context.Background(), "how to tune indexes", []string{"doc a", "doc b"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.9, 0.1}, scores)
	assert.Equal(t, "how to tune indexes", gotQuery)
	assert.Equal(t, []string{"doc a", "doc b"}, gotTexts)
}

func TestClientScoreEmptyTexts(t *testing.T) {
	client, err := NewClient(&config.RerankConfig{Endpoint: "http://localhost:1"})
	require.NoError(t, err)

	scores, err := client.Score(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestClientScoreCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"scores": []float64{0.5},
		})
	}))
	defer srv.Close()

	client, err := NewClient(&config.RerankConfig{Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = client.Score(context.Background(), "q", []string{"a", "b", "c"})
	assert.ErrorContains(t, err, "score count mismatch")
}

func TestClientScoreServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewClient(&config.RerankConfig{Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = client.Score(context.Background(), "q", []string{"a"})
	assert.ErrorContains(t, err, "status=502")
}
