package vectorstore

import (
	"context"

	"astrolynx-be/pkg/store"
)

// Searcher is the similarity-search port the retrieval coordinator fans out
// to. Implementations must be safe for concurrent use: one turn issues up to
// seven queries at once and multiple turns may be in flight.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]store.Document, error)
}
