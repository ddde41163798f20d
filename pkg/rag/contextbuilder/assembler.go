package contextbuilder

import (
	"context"
	"log"
	"strings"

	"astrolynx-be/pkg/graph"
	"astrolynx-be/pkg/llm"
	"astrolynx-be/pkg/store"
)

const (
	maxContextTokens = 4000

	// Fragments shorter than this are boilerplate (headings, separators)
	// and only waste budget.
	minFragmentLength = 20

	documentSeparator = "\n---\n"

	noVectorResults = "Vector Search Results: No relevant information found from the vector store.\n\n"
	noGraphResults  = "Knowledge Graph Data: No relevant information found from the knowledge graph.\n\n"
)

// Assembler merges fused vector documents and the graph summary into one
// token-budgeted context string.
type Assembler struct {
	llmProvider llm.Provider
	logger      *log.Logger
}

func NewAssembler(llmProvider llm.Provider, logger *log.Logger) *Assembler {
	return &Assembler{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Assemble always returns non-empty context: empty inputs yield the fixed
// "no results" lines for their section. If the assembled text exceeds the
// token budget it is cut to the leading floor(len*budget/tokens) characters.
// The cut is character-proportional, not token-exact, and may land
// mid-sentence.
func (a *Assembler) Assemble(ctx context.Context, fusedDocs []store.Document, graphSummary string) string {
	var sb strings.Builder

	contents := make([]string, 0, len(fusedDocs))
	for _, doc := range fusedDocs {
		if len(doc.Content) > minFragmentLength {
			contents = append(contents, doc.Content)
		}
	}
	if len(contents) > 0 {
		sb.WriteString("Vector Search Results:\n")
		sb.WriteString(strings.Join(contents, documentSeparator))
		sb.WriteString("\n\n")
	} else {
		sb.WriteString(noVectorResults)
	}

	if graph.IsDegraded(graphSummary) {
		sb.WriteString(noGraphResults)
	} else {
		sb.WriteString("Knowledge Graph Data:\n")
		sb.WriteString(graphSummary)
		sb.WriteString("\n\n")
	}

	assembled := sb.String()

	tokens, err := a.llmProvider.CountTokens(ctx, assembled)
	if err != nil {
		a.logger.Printf("[CONTEXT] token count failed, skipping budget check: %v", err)
		return assembled
	}
	if tokens <= maxContextTokens {
		return assembled
	}

	ratio := float64(maxContextTokens) / float64(tokens)
	cut := int(float64(len(assembled)) * ratio)
	a.logger.Printf("[CONTEXT] context too large (%d tokens), truncating %d -> %d characters", tokens, len(assembled), cut)
	return assembled[:cut]
}
