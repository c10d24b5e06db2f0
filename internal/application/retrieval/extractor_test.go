package retrieval

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPlaintext(t *testing.T) {
	e := NewExtractor()
	got := e.Extract(context.Background(), "notes.txt", "text/plain", []byte("hello   world\r\nsecond line"))
	assert.Equal(t, "hello world\nsecond line", got)
}

func TestExtractEmptyData(t *testing.T) {
	e := NewExtractor()
	assert.Equal(t, "", e.Extract(context.Background(), "notes.txt", "text/plain", nil))
}

func TestExtractMarkdownStripsSyntax(t *testing.T) {
	e := NewExtractor()
	md := "# Title\n\nSome **bold** and *italic* text with a [link](https://example.com).\n\n- item one\n- item two\n\n```go\ncode block\n```\n"
	got := e.Extract(context.Background(), "readme.md", "", []byte(md))
	assert.Contains(t, got, "Title")
	assert.Contains(t, got, "Some bold and italic text with a link.")
	assert.Contains(t, got, "item one")
	assert.NotContains(t, got, "**")
	assert.NotContains(t, got, "https://example.com")
	assert.NotContains(t, got, "code block")
}

func TestExtractHTMLStripsMarkupAndScripts(t *testing.T) {
	e := NewExtractor()
	page := `<html><head><title>t</title><style>p{color:red}</style></head>
<body><script>alert(1)</script><h1>Heading</h1><p>First paragraph.</p><p>Second &amp; last.</p></body></html>`
	got := e.Extract(context.Background(), "page.html", "text/html", []byte(page))
	assert.Contains(t, got, "Heading")
	assert.Contains(t, got, "First paragraph.")
	assert.Contains(t, got, "Second & last.")
	assert.NotContains(t, got, "alert")
	assert.NotContains(t, got, "color:red")
}

func TestExtractDocx(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body><w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
<w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	e := NewExtractor()
	got := e.Extract(context.Background(), "report.docx", "", buf.Bytes())
	assert.Contains(t, got, "First paragraph.")
	assert.Contains(t, got, "Second paragraph.")
}

func TestExtractCorruptPDFYieldsEmpty(t *testing.T) {
	e := NewExtractor()
	// 非法 PDF：解析失败视为无可提取内容，原始字节不得入库
	got := e.Extract(context.Background(), "broken.pdf", "application/pdf", []byte("%PDF-1.7 binary junk stream xref trailer"))
	assert.Empty(t, got)
}

func TestExtractCorruptDocxYieldsEmpty(t *testing.T) {
	e := NewExtractor()
	got := e.Extract(context.Background(), "broken.docx", "", []byte("PK\x03\x04 not actually a zip"))
	assert.Empty(t, got)
}

func TestExtractMatchesByContentType(t *testing.T) {
	e := NewExtractor()
	got := e.Extract(context.Background(), "no-extension", "text/html; charset=utf-8", []byte("<p>via content type</p>"))
	assert.Equal(t, "via content type", got)
}

func TestCleanText(t *testing.T) {
	got := cleanText("  line one\t\tspaced  \r\n\r\n\r\n\r\nline two  ")
	assert.Equal(t, "line one spaced\n\nline two", got)
}
