package retrieval

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"astrolynx-be/pkg/store"
	"astrolynx-be/pkg/vectorstore"
)

// resultsPerQuery keeps each fan-out query small so RRF works over diverse
// top slices rather than one long tail.
const resultsPerQuery = 5

// Coordinator scatters the fan-out query set across the vector store and
// gathers one ranked list per query, preserving query order.
type Coordinator struct {
	searcher vectorstore.Searcher
	logger   *log.Logger
}

func NewCoordinator(searcher vectorstore.Searcher, logger *log.Logger) *Coordinator {
	return &Coordinator{
		searcher: searcher,
		logger:   logger,
	}
}

// RetrieveAll issues every query concurrently and waits for all of them. A
// failing query leaves an empty list in its slot; it never cancels siblings
// and never surfaces as an error from this method.
func (c *Coordinator) RetrieveAll(ctx context.Context, queries []string) [][]store.Document {
	results := make([][]store.Document, len(queries))
	if len(queries) == 0 {
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, query := range queries {
		g.Go(func() error {
			docs, err := c.searcher.Search(gctx, query, resultsPerQuery)
			if err != nil {
				c.logger.Printf("[RETRIEVAL] query %d failed, slot left empty: %v", i, err)
				return nil
			}
			results[i] = docs
			return nil
		})
	}

	// Workers absorb their own errors, so Wait only acts as the join barrier.
	_ = g.Wait()

	c.logger.Printf("[RETRIEVAL] completed %d parallel retrievals", len(queries))
	return results
}
