package channels

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/mobby57/memoLib-sub019/internal/units"
)

// htmlText extracts the readable text of an HTML email body. Block
// elements become line breaks; runs of whitespace inside a line collapse.
func htmlText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, tr, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var lines []string
	for line := range strings.SplitSeq(doc.Text(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func describeAttachment(name, contentType string, data []byte) units.Attachment {
	contentType = detectContentType(contentType, data)
	a := units.Attachment{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
	}
	if contentType == "application/pdf" {
		if pages, err := api.PageCount(bytes.NewReader(data), nil); err == nil {
			a.Pages = pages
		}
	}
	return a
}

func detectContentType(header string, data []byte) string {
	header = strings.TrimSpace(header)
	if header != "" && header != "application/octet-stream" {
		return header
	}
	return http.DetectContentType(data)
}
