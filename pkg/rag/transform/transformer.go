package transform

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"astrolynx-be/pkg/llm"
)

const maxRewrites = 5

const transformationPrompt = `You are an AI assistant tasked with generating diverse search queries and a hypothetical document to improve information retrieval.
Given the user's original question, perform two tasks:
1. Generate 3-5 alternative phrasings or expansions of the original question. These should be distinct but semantically similar.
2. Generate a concise, hypothetical ideal answer to the question. This answer should be what you would expect to see in a relevant document.

You MUST format your response as a JSON object with two keys: "rewritten_queries" (an array of strings) and "hypothetical_document" (a string).
Do NOT include any other text or formatting outside the JSON object.

Example:
Question: "What is the purpose of the Chandrayaan-3 mission?"
Output:
{
  "rewritten_queries": [
    "Chandrayaan-3 mission objectives",
    "Goals of India's Chandrayaan-3 lunar mission",
    "What was Chandrayaan-3 designed to achieve?",
    "Key aims of Chandrayaan-3"
  ],
  "hypothetical_document": "The Chandrayaan-3 mission's primary purpose is to demonstrate safe lunar landing and roving capabilities, and to conduct in-situ scientific experiments on the lunar surface."
}

Question: `

// Result carries the fan-out query set and the hypothetical document used for
// retrieval. FanOutQueries always contains the original question first.
type Result struct {
	FanOutQueries   []string
	HypotheticalDoc string
}

type transformationOutput struct {
	RewrittenQueries     []string `json:"rewritten_queries"`
	HypotheticalDocument string   `json:"hypothetical_document"`
}

// Transformer expands a question into alternative phrasings plus a HyDE-style
// hypothetical answer. Identical questions within the cache TTL reuse the
// previous expansion instead of paying another model call.
type Transformer struct {
	llmProvider llm.Provider
	cache       *gocache.Cache
	logger      *log.Logger
}

func NewTransformer(llmProvider llm.Provider, logger *log.Logger) *Transformer {
	return &Transformer{
		llmProvider: llmProvider,
		cache:       gocache.New(30*time.Minute, 45*time.Minute),
		logger:      logger,
	}
}

// Transform never fails: on any model or parse error the fan-out set degrades
// to the original question alone and the hypothetical document falls back to
// the question itself.
func (t *Transformer) Transform(ctx context.Context, question string) Result {
	if cached, ok := t.cache.Get(question); ok {
		if result, ok := cached.(Result); ok {
			t.logger.Printf("[TRANSFORM] cache hit for question")
			return result
		}
	}

	fallback := Result{
		FanOutQueries:   []string{question},
		HypotheticalDoc: question,
	}

	raw, err := t.llmProvider.Generate(ctx, transformationPrompt+question+"\nOutput:\n")
	if err != nil {
		t.logger.Printf("[TRANSFORM] model call failed, degrading to original question: %v", err)
		return fallback
	}

	var parsed transformationOutput
	if err := json.Unmarshal([]byte(stripJSONFences(raw)), &parsed); err != nil {
		t.logger.Printf("[TRANSFORM] output did not parse, degrading to original question: %v", err)
		return fallback
	}

	rewrites := parsed.RewrittenQueries
	if len(rewrites) > maxRewrites {
		rewrites = rewrites[:maxRewrites]
	}

	queries := make([]string, 0, len(rewrites)+2)
	queries = append(queries, question)
	for _, q := range rewrites {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}

	hypothetical := strings.TrimSpace(parsed.HypotheticalDocument)
	if hypothetical != "" {
		queries = append(queries, hypothetical)
	} else {
		hypothetical = question
	}

	result := Result{
		FanOutQueries:   queries,
		HypotheticalDoc: hypothetical,
	}
	t.cache.Set(question, result, gocache.DefaultExpiration)

	t.logger.Printf("[TRANSFORM] generated %d fan-out queries", len(queries))
	return result
}

// stripJSONFences removes a surrounding markdown code fence so models that
// wrap their JSON in ```json blocks still parse.
func stripJSONFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
