package fusion

import (
	"log"
	"sort"

	"astrolynx-be/pkg/store"
)

// rrfK dampens the contribution of lower ranks. 60 is the value from the
// original RRF paper and works well without tuning.
const rrfK = 60

// Engine merges the ranked lists produced by fan-out retrieval into one
// deduplicated ranking using Reciprocal Rank Fusion.
type Engine struct {
	logger *log.Logger
}

func NewEngine(logger *log.Logger) *Engine {
	return &Engine{logger: logger}
}

// Fuse accumulates 1/(k+rank) per appearance of a document identity, keyed by
// (content, source). The first appearance of an identity fixes the Document
// instance returned for it; later appearances only add score. Ties are broken
// by first-seen order across the input lists so repeated calls over the same
// input produce the same output.
func (e *Engine) Fuse(rankedLists [][]store.Document) []store.Document {
	scores := make(map[string]float64)
	docs := make(map[string]store.Document)
	firstSeen := make(map[string]int)
	seq := 0

	for _, list := range rankedLists {
		for i, doc := range list {
			key := doc.Key()
			if _, ok := docs[key]; !ok {
				docs[key] = doc
				firstSeen[key] = seq
				seq++
			}
			rank := i + 1
			scores[key] += 1.0 / float64(rrfK+rank)
		}
	}

	keys := make([]string, 0, len(scores))
	for key := range scores {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(a, b int) bool {
		if scores[keys[a]] != scores[keys[b]] {
			return scores[keys[a]] > scores[keys[b]]
		}
		return firstSeen[keys[a]] < firstSeen[keys[b]]
	})

	fused := make([]store.Document, 0, len(keys))
	for _, key := range keys {
		doc := docs[key]
		doc.Score = scores[key]
		fused = append(fused, doc)
	}

	if e.logger != nil && len(fused) > 0 {
		e.logger.Printf("[FUSION] fused %d ranked lists into %d documents", len(rankedLists), len(fused))
	}
	return fused
}
