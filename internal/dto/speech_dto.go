package dto

type SynthesizeSpeechRequest struct {
	Text               string `json:"text" validate:"required"`
	TargetLanguageCode string `json:"target_language_code,omitempty"`
}

type SynthesizeSpeechResponse struct {
	AudioData string `json:"audio_data"`
}
