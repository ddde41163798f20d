package workflow

import (
	"astrolynx-be/pkg/llm"
	"astrolynx-be/pkg/rag/classify"
	"astrolynx-be/pkg/store"
)

// TurnState carries everything one turn accumulates while moving through the
// pipeline. Each stage overwrites only its own fields; the final state is
// what gets checkpointed.
type TurnState struct {
	SessionID        string           `json:"session_id"`
	Question         string           `json:"question"`
	OriginalQuestion string           `json:"original_question"`
	ChatHistory      []llm.Message    `json:"chat_history"`
	Image            *llm.ImageData   `json:"image,omitempty"`
	TargetLanguage   string           `json:"target_language"`
	AudioRequested   bool             `json:"audio_requested"`

	Label           classify.Label     `json:"label"`
	FanOutQueries   []string           `json:"fan_out_queries"`
	HypotheticalDoc string             `json:"hypothetical_doc"`
	RawResults      [][]store.Document `json:"raw_results"`
	FusedDocs       []store.Document   `json:"fused_docs"`
	GraphSummary    string             `json:"graph_summary"`
	Context         string             `json:"context"`

	Answer    string `json:"answer"`
	AudioData string `json:"audio_data,omitempty"`
}

// NewTurnState seeds a state for one inbound turn. Target language defaults
// to English.
func NewTurnState(sessionID, question string) *TurnState {
	return &TurnState{
		SessionID:        sessionID,
		Question:         question,
		OriginalQuestion: question,
		TargetLanguage:   "en",
	}
}
