package domain

import "errors"

var (
	ErrInvalidVector    = errors.New("invalid vector")
	ErrStorageWrite     = errors.New("storage write failed")
	ErrStorageRead      = errors.New("storage read failed")
	ErrDocumentNotFound = errors.New("document not found")
	ErrNoRelevantChunks = errors.New("no relevant chunks")
	ErrEmbedding        = errors.New("embedding failed")
	ErrUpstreamTimeout  = errors.New("upstream timeout")
	ErrRelevanceParse   = errors.New("relevance decision could not be parsed")
	ErrExtraction       = errors.New("text extraction failed")
	ErrFallbackAgent    = errors.New("fallback agent failed")
	ErrAnswerGeneration = errors.New("answer generation failed")
)

var categories = []error{
	ErrInvalidVector, ErrStorageWrite, ErrStorageRead, ErrDocumentNotFound,
	ErrNoRelevantChunks, ErrEmbedding, ErrUpstreamTimeout, ErrRelevanceParse,
	ErrExtraction, ErrFallbackAgent, ErrAnswerGeneration,
}

// Categorized reports whether err wraps one of the sentinels above.
func Categorized(err error) bool {
	for _, c := range categories {
		if errors.Is(err, c) {
			return true
		}
	}
	return false
}

// UserMessage maps an error to a message safe to show to end users.
// Unknown errors get a generic message.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUpstreamTimeout):
		return "an upstream service took too long to respond, please retry"
	case errors.Is(err, ErrDocumentNotFound):
		return "no chunks found for this document id, or the document does not exist"
	case errors.Is(err, ErrNoRelevantChunks):
		return "the document has no usable text chunks"
	case errors.Is(err, ErrEmbedding):
		return "could not compute embeddings"
	case errors.Is(err, ErrRelevanceParse):
		return "the answer generator returned an unreadable response"
	case errors.Is(err, ErrStorageWrite):
		return "the document could not be stored, please retry the upload"
	case errors.Is(err, ErrStorageRead):
		return "the vector store could not be read"
	case errors.Is(err, ErrExtraction):
		return "no text could be extracted from the PDF"
	case errors.Is(err, ErrInvalidVector):
		return "an embedding vector was invalid"
	case errors.Is(err, ErrFallbackAgent), errors.Is(err, ErrAnswerGeneration):
		return "the answering service failed"
	default:
		return "internal error"
	}
}

// ExitCode maps an error to a process exit status, loosely following the
// HTTP status families the errors would map to.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrDocumentNotFound), errors.Is(err, ErrNoRelevantChunks):
		return 4
	case errors.Is(err, ErrUpstreamTimeout):
		return 5
	default:
		return 1
	}
}
