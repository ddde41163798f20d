package generate

import (
	"context"
	"fmt"
	"log"
	"strings"

	"astrolynx-be/pkg/llm"
)

// FallbackAnswer is returned whenever the generation call itself fails.
// Generation failures are always recoverable from the caller's point of view.
const FallbackAnswer = "I apologize, but I encountered an error while generating a response."

const answerPromptTemplate = `You are an AI assistant for a meteorological and oceanographic satellite data archive.
Answer the user's question based on the provided context and chat history.
If the context contains information relevant to the question, use it to provide the best possible answer.
If there is truly no relevant information, then say you cannot answer.
Do not make up information.

Context:
%s

Chat History:
%s

Question:
%s

Provide a clear, concise, factual answer based on the above.`

// Invoker builds the grounded answer prompt and makes the single generation
// call for a turn.
type Invoker struct {
	llmProvider llm.Provider
	logger      *log.Logger
}

func NewInvoker(llmProvider llm.Provider, logger *log.Logger) *Invoker {
	return &Invoker{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Generate returns the model's trimmed output, or FallbackAnswer if the call
// fails. An image, when present, rides along as an extra content part of the
// same user turn; providers without image support ignore it.
func (i *Invoker) Generate(ctx context.Context, question, assembledContext string, history []llm.Message, image *llm.ImageData) string {
	prompt := fmt.Sprintf(answerPromptTemplate, assembledContext, renderHistory(history), question)

	messages := []llm.Message{{
		Role:    "user",
		Content: prompt,
		Image:   image,
	}}

	response, err := i.llmProvider.Chat(ctx, messages)
	if err != nil {
		i.logger.Printf("[GENERATION] model call failed: %v", err)
		return FallbackAnswer
	}

	i.logger.Printf("[GENERATION] answer generated (%d characters)", len(response))
	return strings.TrimSpace(response)
}

func renderHistory(history []llm.Message) string {
	if len(history) == 0 {
		return "No prior chat history."
	}
	var sb strings.Builder
	for _, msg := range history {
		sb.WriteString(msg.Role)
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
