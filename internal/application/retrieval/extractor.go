package retrieval

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"

	"doc-qa-api/pkg/logger"
	"doc-qa-api/pkg/metrics"
)

// extractorEntry 注册表条目。Match 按文件名与 content-type 判断是否适用。
type extractorEntry struct {
	Name    string
	Match   func(filename, contentType string) bool
	Extract func(data []byte) (string, error)
}

// Extractor 文本提取器。按注册表顺序选择格式相应的提取函数，
// 提取失败或无匹配时回退为纯文本解释，自身永不返回错误。
type Extractor struct {
	entries []extractorEntry
}

// NewExtractor 创建带默认注册表的提取器。
func NewExtractor() *Extractor {
	return &Extractor{
		entries: []extractorEntry{
			{
				Name:    "pdf",
				Match:   matchSuffixOrType(".pdf", "application/pdf"),
				Extract: extractPDF,
			},
			{
				Name:    "docx",
				Match:   matchSuffixOrType(".docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"),
				Extract: extractDocx,
			},
			{
				Name: "html",
				Match: func(filename, contentType string) bool {
					return matchSuffixOrType(".html", "text/html")(filename, contentType) ||
						strings.HasSuffix(strings.ToLower(filename), ".htm")
				},
				Extract: extractHTML,
			},
			{
				Name: "markdown",
				Match: func(filename, contentType string) bool {
					return matchSuffixOrType(".md", "text/markdown")(filename, contentType) ||
						strings.HasSuffix(strings.ToLower(filename), ".markdown")
				},
				Extract: extractMarkdown,
			},
		},
	}
}

// Extract 提取文档文本。返回值已做空白归一化，可能为空串。
// 匹配到的格式解析失败时返回空串，损坏文件不会以原始字节入库；
// 纯文本兜底仅用于未匹配任何格式的输入。
func (e *Extractor) Extract(ctx context.Context, filename, contentType string, data []byte) string {
	if len(data) == 0 {
		return ""
	}
	for _, entry := range e.entries {
		if !entry.Match(filename, contentType) {
			continue
		}
		text, err := entry.Extract(data)
		if err != nil {
			metrics.ExtractionFailuresTotal.WithLabelValues(entry.Name).Inc()
			logger.FromContext(ctx).Warn("text extraction failed, treating document as empty",
				"format", entry.Name,
				"filename", filename,
				"error", err.Error(),
			)
			return ""
		}
		return cleanText(text)
	}
	return cleanText(extractPlaintext(data))
}

func matchSuffixOrType(suffix, contentType string) func(string, string) bool {
	return func(filename, ct string) bool {
		if strings.HasSuffix(strings.ToLower(filename), suffix) {
			return true
		}
		base, _, _ := strings.Cut(ct, ";")
		return strings.TrimSpace(strings.ToLower(base)) == contentType
	}
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// 单页失败不终止整篇提取
			continue
		}
		sb.WriteString(text)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// docx 正文存放于 word/document.xml，段落边界由 <w:p> 标记。
func extractDocx(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var doc io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc, err = f.Open()
			if err != nil {
				return "", err
			}
			break
		}
	}
	if doc == nil {
		return "", ErrNoSearchableContent
	}
	defer doc.Close()

	decoder := xml.NewDecoder(doc)
	var sb strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" {
				sb.WriteString("\n\n")
			}
		}
	}
	return sb.String(), nil
}

func extractHTML(data []byte) (string, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "head":
				return
			case "p", "div", "br", "li", "h1", "h2", "h3", "h4", "h5", "h6", "tr":
				sb.WriteByte('\n')
			}
		case html.TextNode:
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return sb.String(), nil
}

var (
	mdCodeFence = regexp.MustCompile("(?s)```.*?```")
	mdInline    = regexp.MustCompile("`([^`]*)`")
	mdImage     = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	mdLink      = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdHeading   = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdEmphasis  = regexp.MustCompile(`(\*{1,3}|_{1,3})([^*_]+)` + "(\\*{1,3}|_{1,3})")
	mdListMark  = regexp.MustCompile(`(?m)^\s*([-*+]|\d+\.)\s+`)
	mdHTMLTag   = regexp.MustCompile(`<[^>]+>`)
)

// markdown 去除标记语法、保留文字内容。
func extractMarkdown(data []byte) (string, error) {
	s := string(data)
	s = mdCodeFence.ReplaceAllString(s, "")
	s = mdImage.ReplaceAllString(s, "$1")
	s = mdLink.ReplaceAllString(s, "$1")
	s = mdInline.ReplaceAllString(s, "$1")
	s = mdHeading.ReplaceAllString(s, "")
	s = mdEmphasis.ReplaceAllString(s, "$2")
	s = mdListMark.ReplaceAllString(s, "")
	s = mdHTMLTag.ReplaceAllString(s, "")
	return s, nil
}

// extractPlaintext 将字节解释为 UTF-8 文本并丢弃不可打印控制字符。
func extractPlaintext(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data))
	for _, r := range string(data) {
		if r == '�' {
			continue
		}
		if r < 0x20 && r != '\n' && r != '\t' && r != '\r' {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

var (
	reBlankLines = regexp.MustCompile(`\n{3,}`)
	reLineSpace  = regexp.MustCompile(`[ \t\x{00A0}]+`)
)

// cleanText 归一化换行与空白：折叠行内空白、压缩连续空行。
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = reLineSpace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	s = strings.Join(lines, "\n")
	s = reBlankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
