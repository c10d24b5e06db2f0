package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVariantsStripsNumberingAndBullets(t *testing.T) {
	content := "1. how to configure milvus\n2) milvus setup steps\n- milvus installation guide\n\n"
	got := parseVariants(content, "milvus setup", 5)
	require.Len(t, got, 3)
	assert.Equal(t, "how to configure milvus", got[0])
	assert.Equal(t, "milvus setup steps", got[1])
	assert.Equal(t, "milvus installation guide", got[2])
}

func TestParseVariantsDeduplicates(t *testing.T) {
	content := "Milvus Setup\nmilvus setup\nother variant"
	got := parseVariants(content, "milvus setup", 5)
	// 与原查询相同（忽略大小写）的行应被去除
	require.Len(t, got, 1)
	assert.Equal(t, "other variant", got[0])
}

func TestParseVariantsRespectsMax(t *testing.T) {
	content := "one\ntwo\nthree\nfour"
	got := parseVariants(content, "q", 2)
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestParseVariantsStripsQuotes(t *testing.T) {
	got := parseVariants(`"quoted variant"`, "q", 5)
	require.Len(t, got, 1)
	assert.Equal(t, "quoted variant", got[0])
}

func TestStripNumbering(t *testing.T) {
	assert.Equal(t, "foo", stripNumbering("1. foo"))
	assert.Equal(t, "foo", stripNumbering("12) foo"))
	assert.Equal(t, "foo", stripNumbering("3、foo"))
	assert.Equal(t, "no numbering", stripNumbering("no numbering"))
	assert.Equal(t, "2026 review", stripNumbering("2026 review"))
}

func TestIdentityExpander(t *testing.T) {
	got, err := IdentityExpander{}.Expand(context.Background(), "  my query  ", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"my query"}, got)

	_, err = IdentityExpander{}.Expand(context.Background(), "  ", 5)
	assert.Error(t, err)
}

func TestLLMExpanderWithoutModelReturnsOriginal(t *testing.T) {
	e := NewLLMExpander(nil, 0)
	got, err := e.Expand(context.Background(), "query", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"query"}, got)
}
