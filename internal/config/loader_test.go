package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("DOC_QA_TEST_HOST", "db.internal")

	assert.Equal(t, "db.internal", expandEnv("${DOC_QA_TEST_HOST}"))
	assert.Equal(t, "db.internal", expandEnv("${DOC_QA_TEST_HOST:fallback}"))
	assert.Equal(t, "fallback", expandEnv("${DOC_QA_TEST_UNSET:fallback}"))
	// 空默认值
	assert.Equal(t, "", expandEnv("${DOC_QA_TEST_UNSET:}"))
	// 无默认值且未定义时原样保留
	assert.Equal(t, "${DOC_QA_TEST_UNSET}", expandEnv("${DOC_QA_TEST_UNSET}"))
	// 嵌入在字符串中
	assert.Equal(t, "host=db.internal port=5432", expandEnv("host=${DOC_QA_TEST_HOST} port=${DOC_QA_TEST_PORT:5432}"))
}

func TestNormalizeClampsChunkBudget(t *testing.T) {
	cfg := &Config{}
	cfg.Retrieval.MaxChunksPerDoc = 5000
	cfg.Retrieval.ChunkOverlapRatio = 0.25
	cfg.Retrieval.NumVariants = 3

	normalize(cfg)

	assert.Equal(t, 999, cfg.Retrieval.MaxChunksPerDoc)
	assert.Equal(t, 0.25, cfg.Retrieval.ChunkOverlapRatio)
	assert.Equal(t, 3, cfg.Retrieval.NumVariants)
}

func TestNormalizeOverlapBounds(t *testing.T) {
	cfg := &Config{}
	cfg.Retrieval.ChunkOverlapRatio = -0.5
	normalize(cfg)
	assert.Zero(t, cfg.Retrieval.ChunkOverlapRatio)

	cfg.Retrieval.ChunkOverlapRatio = 1.5
	normalize(cfg)
	assert.Equal(t, 0.25, cfg.Retrieval.ChunkOverlapRatio)
}

func TestNormalizeVariantsFloor(t *testing.T) {
	cfg := &Config{}
	cfg.Retrieval.NumVariants = 0
	normalize(cfg)
	assert.Equal(t, 1, cfg.Retrieval.NumVariants)
}
