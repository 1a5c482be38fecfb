package rag

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"
)

var multiSpace = regexp.MustCompile(`[ ]{2,}`)

// PDFParser extracts plain text from PDF documents.
type PDFParser struct {
	// MaxPages limits parsing to the first pages. Zero parses everything.
	MaxPages int
}

// Parse extracts the cleaned text of a PDF held in memory.
func (p PDFParser) Parse(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.Wrap(err, "open pdf")
	}

	total := r.NumPage()

	limit := total
	if p.MaxPages > 0 && p.MaxPages < total {
		limit = p.MaxPages
	}

	texts := make([]string, 0, limit)

	for i := 1; i <= limit; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", errors.Wrapf(err, "extract page %d", i)
		}

		texts = append(texts, text)
	}

	return CleanText(strings.Join(texts, "\n\n")), nil
}

// CleanText turns line breaks, tabs and non-breaking spaces into single
// spaces and trims the result.
func CleanText(s string) string {
	if s == "" {
		return ""
	}

	s = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ", "\u00a0", " ", "\t", " ").Replace(s)
	s = multiSpace.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}
