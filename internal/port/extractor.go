package port

import (
	"context"
	"io"
)

// PageSeparator separates the pages of extracted text.
const PageSeparator = "\f"

// TextExtractor pulls plain text out of a PDF, pages joined by PageSeparator.
type TextExtractor interface {
	ExtractText(ctx context.Context, r io.ReadSeeker) (string, error)
}
