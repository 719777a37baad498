// Package pdf extracts plain text from PDF files with pdfcpu.
package pdf

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// Extractor implements port.TextExtractor.
type Extractor struct {
	conf   *model.Configuration
	logger arbor.ILogger
}

func NewExtractor(logger arbor.ILogger) *Extractor {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Extractor{conf: conf, logger: logger}
}

// ExtractText returns the text of every page, pages separated by
// port.PageSeparator. A PDF without any extractable text is an error.
func (e *Extractor) ExtractText(ctx context.Context, r io.ReadSeeker) (string, error) {
	pages, err := e.ExtractPages(ctx, r)
	if err != nil {
		return "", err
	}
	text := strings.Join(pages, port.PageSeparator)
	if strings.TrimSpace(strings.ReplaceAll(text, port.PageSeparator, "")) == "" {
		return "", fmt.Errorf("%w: no text found in %d pages", domain.ErrExtraction, len(pages))
	}
	return text, nil
}

// ExtractPages returns one string per page in page order. Pages whose
// content cannot be read come back empty.
func (e *Extractor) ExtractPages(ctx context.Context, r io.ReadSeeker) ([]string, error) {
	pdfCtx, err := api.ReadContext(r, e.conf)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read PDF: %w", domain.ErrExtraction, err)
	}
	if err := api.ValidateContext(pdfCtx); err != nil {
		return nil, fmt.Errorf("%w: invalid PDF: %w", domain.ErrExtraction, err)
	}
	if err := pdfCtx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("%w: failed to count pages: %w", domain.ErrExtraction, err)
	}

	pages := make([]string, 0, pdfCtx.PageCount)
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
		if err != nil {
			e.logger.Warn().Err(err).Int("page", pageNr).Msg("Failed to read page content")
			pages = append(pages, "")
			continue
		}
		if content == nil {
			pages = append(pages, "")
			continue
		}

		text, err := ParseContentText(content)
		if err != nil {
			e.logger.Warn().Err(err).Int("page", pageNr).Msg("Failed to parse page content")
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}

	e.logger.Debug().Int("pages", len(pages)).Msg("Extracted PDF text")
	return pages, nil
}
