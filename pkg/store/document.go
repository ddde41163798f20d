package store

// Document represents a retrieved corpus chunk flowing through the RAG
// pipeline. Identity for fusion and deduplication is the (Content, Source)
// pair: two documents with the same content and source are the same document
// regardless of which fan-out query retrieved them.
type Document struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

const (
	// SourceVectorStore tags documents retrieved from the vector store when
	// the stored row carries no source of its own.
	SourceVectorStore = "vector_store"

	// SourceUnknown is the identity fallback when a document has no source.
	SourceUnknown = "unknown"
)

// Key returns the fusion identity of the document.
func (d Document) Key() string {
	source := d.Source
	if source == "" {
		source = SourceUnknown
	}
	return d.Content + "\x00" + source
}
