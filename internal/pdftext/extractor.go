// Package pdftext validates PDF bytes and pulls plain text out of them.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	ErrInvalidPDF     = errors.New("file is not a readable PDF")
	ErrPageOutOfRange = errors.New("page number out of range")
)

// Extractor reads page text from in-memory PDFs. The zero value is usable.
type Extractor struct{}

func relaxedConfig() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}

// Validate checks that data parses as a PDF.
func (Extractor) Validate(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty file", ErrInvalidPDF)
	}
	if err := api.Validate(bytes.NewReader(data), relaxedConfig()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	return nil
}

// PageCount returns the number of pages in data.
func (Extractor) PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), relaxedConfig())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	return n, nil
}

// PageText returns the plain text of one 1-based page.
func (Extractor) PageText(data []byte, page int) (string, error) {
	r, err := open(data)
	if err != nil {
		return "", err
	}
	if page < 1 || page > r.NumPage() {
		return "", fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, page, r.NumPage())
	}
	return pageText(r, page)
}

// LeadingText returns the text of the first maxPages pages, cut to at most
// maxWords words. It is the input used for subject classification.
func (Extractor) LeadingText(data []byte, maxPages, maxWords int) (string, error) {
	r, err := open(data)
	if err != nil {
		return "", err
	}
	var words []string
	for i := 1; i <= min(maxPages, r.NumPage()); i++ {
		text, err := pageText(r, i)
		if err != nil {
			return "", err
		}
		words = append(words, strings.Fields(text)...)
		if len(words) >= maxWords {
			words = words[:maxWords]
			break
		}
	}
	return strings.Join(words, " "), nil
}

func open(data []byte) (r *pdf.Reader, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if p := recover(); p != nil {
			r, err = nil, fmt.Errorf("%w: %v", ErrInvalidPDF, p)
		}
	}()
	r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	return r, nil
}

func pageText(r *pdf.Reader, n int) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("read page %d: %v", n, p)
		}
	}()
	p := r.Page(n)
	if p.V.IsNull() {
		return "", nil
	}
	text, err = p.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("read page %d: %w", n, err)
	}
	return strings.TrimSpace(text), nil
}
