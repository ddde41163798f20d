package classify

import (
	"context"
	"log"
	"strings"

	"astrolynx-be/pkg/llm"
)

// Label is the routing signal for a turn. It is never persisted.
type Label string

const (
	LabelGreeting Label = "greeting"
	LabelDomain   Label = "domain"
	LabelOther    Label = "other"
)

const classificationPrompt = `You are an AI assistant whose ONLY task is to classify user queries into one of three predefined categories.
You MUST respond with ONLY ONE WORD, which is the category name. No other text, no punctuation, no explanations.

The categories are:
- "greeting": If the user's question is a simple salutation or friendly opening (e.g., "Hi", "Hello", "How are you?", "Good morning", "Hey there").
- "domain": If the user's question is directly or indirectly related to satellite data, space missions, Earth observation, or any scientific/technical information this system archives.
- "other": If the user's question falls into none of the above categories (e.g., general knowledge, personal questions, completely irrelevant topics).

Examples:
Question: "Hi there!"
Classification: greeting

Question: "Tell me about INSAT-3D."
Classification: domain

Question: "What's the weather like today?"
Classification: other

Question: "How do I make a cake?"
Classification: other

Question: "Good afternoon!"
Classification: greeting

Question: `

// Classifier routes a question into one of the three labels with a single
// closed-label model call.
type Classifier struct {
	llmProvider llm.Provider
	logger      *log.Logger
}

func NewClassifier(llmProvider llm.Provider, logger *log.Logger) *Classifier {
	return &Classifier{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Classify forces any unexpected model output, and any model failure, to
// LabelOther. It never returns an error to the caller.
func (c *Classifier) Classify(ctx context.Context, question string) Label {
	raw, err := c.llmProvider.Generate(ctx, classificationPrompt+question+"\nClassification:")
	if err != nil {
		c.logger.Printf("[CLASSIFY] model call failed, defaulting to other: %v", err)
		return LabelOther
	}

	label := Label(strings.ToLower(strings.TrimSpace(raw)))
	switch label {
	case LabelGreeting, LabelDomain, LabelOther:
		c.logger.Printf("[CLASSIFY] question classified as %q", label)
		return label
	}

	c.logger.Printf("[CLASSIFY] unexpected classification %q, forcing to other", raw)
	return LabelOther
}
