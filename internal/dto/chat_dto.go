package dto

import (
	"time"

	"github.com/google/uuid"
)

type SendChatRequest struct {
	ChatSessionId  uuid.UUID `json:"chat_session_id" validate:"required"`
	Chat           string    `json:"chat" validate:"required"`
	ImageData      string    `json:"image_data,omitempty"`      // base64
	ImageMimeType  string    `json:"image_mime_type,omitempty"` // defaults to image/jpeg
	TargetLanguage string    `json:"target_language,omitempty"` // defaults to "en"
	AudioRequested bool      `json:"audio_requested,omitempty"`
}

type SendChatResponse struct {
	Id            uuid.UUID `json:"id"`
	ChatSessionId uuid.UUID `json:"chat_session_id"`
	Role          string    `json:"role"`
	Content       string    `json:"content"`
	AudioData     string    `json:"audio_data,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
