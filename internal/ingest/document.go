package ingest

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// Page is the text of one document page, numbered from 1
type Page struct {
	Number int
	Text   string
}

// Format is a supported document type
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

// DetectFormat sniffs the document type from content and an optional content type
func DetectFormat(data []byte, contentType string) (Format, error) {
	if bytes.HasPrefix(bytes.TrimSpace(data[:min(len(data), 1024)]), []byte("%PDF-")) {
		return FormatPDF, nil
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "application/pdf"):
		return FormatPDF, nil
	case strings.Contains(ct, "html"):
		return FormatHTML, nil
	}
	head := strings.ToLower(string(data[:min(len(data), 512)]))
	if strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html") {
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unsupported document type %q", contentType)
}

// ParseDocument extracts page texts from a PDF or HTML document
func ParseDocument(data []byte, format Format) ([]Page, error) {
	switch format {
	case FormatPDF:
		return ParsePDF(data)
	case FormatHTML:
		return ParseHTML(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported document format %q", format)
	}
}

// ParsePDF extracts the plain text of every page. Pages that fail to
// extract are skipped.
func ParsePDF(data []byte) ([]Page, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}

	total := reader.NumPage()
	pages := make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		text, ok := pageText(reader, i)
		if !ok {
			continue
		}
		if text = strings.TrimSpace(text); text == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no extractable text in %d pages", total)
	}
	return pages, nil
}

// pageText recovers from parser panics on malformed page content
func pageText(reader *pdf.Reader, n int) (text string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			text, ok = "", false
		}
	}()

	page := reader.Page(n)
	if page.V.IsNull() {
		return "", false
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", false
	}
	return text, true
}

// ParseHTML extracts visible text as a single page, one line per block element
func ParseHTML(r io.Reader) ([]Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	text := strings.TrimSpace(extractVisibleText(doc))
	if text == "" {
		return nil, fmt.Errorf("no visible text in HTML document")
	}
	return []Page{{Number: 1, Text: text}}, nil
}

// extractVisibleText extracts text nodes from HTML, skipping scripts, styles and page chrome
func extractVisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "nav", "header", "footer":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.Join(strings.Fields(n.Data), " ")
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && isBlock(n.Data) {
			buf.WriteString("\n")
		}
	}

	walk(n)

	lines := strings.Split(buf.String(), "\n")
	out := lines[:0]
	for _, ln := range lines {
		if ln = strings.TrimSpace(ln); ln != "" {
			out = append(out, ln)
		}
	}
	return strings.Join(out, "\n")
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6", "section", "article", "br", "table", "ul", "ol", "dt", "dd":
		return true
	}
	return false
}
