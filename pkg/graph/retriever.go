package graph

import (
	"context"
	"strings"
)

// Degraded sentinels. Retrieve never returns an error: when the graph side of
// a turn cannot contribute, it returns one of these fixed texts and the
// context assembler substitutes its own "no results" line for them.
const (
	SentinelDriverUnavailable     = "No graph data available due to uninitialized driver."
	SentinelEmbeddingsUnavailable = "Embeddings unavailable for graph semantic search."
	SentinelNoMatches             = "No relevant semantic nodes found in the knowledge graph."
	sentinelErrorPrefix           = "Error retrieving semantic relations from the knowledge graph:"
)

// Retriever answers a question with a rendered text block of semantically
// related graph nodes and their one-hop relations.
type Retriever interface {
	Retrieve(ctx context.Context, question string) string
}

// IsDegraded reports whether a retrieved summary is one of the sentinel texts
// rather than real graph content.
func IsDegraded(summary string) bool {
	switch summary {
	case SentinelDriverUnavailable, SentinelEmbeddingsUnavailable, SentinelNoMatches, "":
		return true
	}
	return strings.HasPrefix(summary, sentinelErrorPrefix)
}
