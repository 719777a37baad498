package port

// Chunker splits extracted document text into chunks small enough to embed.
type Chunker interface {
	Split(text string) []string
}
