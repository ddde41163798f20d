package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string

	// Image optionally attaches an inline image to this message. Providers
	// without multimodal support ignore it; that is never an error here.
	Image *ImageData
}

// ImageData is an inline base64-encoded image payload.
type ImageData struct {
	MIMEType string
	Data     string // base64, no data URI prefix
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Provider defines the contract for any LLM backend
type Provider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)

	// CountTokens returns the model-countable token length of text.
	// Implementations may approximate; the value is used for context
	// budgeting, not billing.
	CountTokens(ctx context.Context, text string) (int, error)
}
