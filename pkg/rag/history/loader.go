package history

import (
	"context"

	"astrolynx-be/pkg/llm"
)

// WindowSize is how many recent question/answer pairs feed the generation
// prompt. The underlying log is unbounded; only the window is loaded per
// turn.
const WindowSize = 10

// Store is the session persistence port. Appends for one session are
// serialized by the implementation; reads may run concurrently.
type Store interface {
	AppendTurn(ctx context.Context, sessionID, question, answer string) error
	LoadWindow(ctx context.Context, sessionID string, n int) ([]llm.Message, error)
}

// Loader loads the recent-message window used as conversational memory.
type Loader struct {
	store Store
}

func NewLoader(store Store) *Loader {
	return &Loader{store: store}
}

// LoadConversationHistory returns up to WindowSize most recent
// question/answer pairs (two messages each) in chronological order. A
// missing session yields an empty window, not an error.
func (l *Loader) LoadConversationHistory(ctx context.Context, sessionID string) ([]llm.Message, error) {
	return l.store.LoadWindow(ctx, sessionID, 2*WindowSize)
}
