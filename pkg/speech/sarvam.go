package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const (
	sarvamTTSURL = "https://api.sarvam.ai/text-to-speech"

	// Sarvam rejects longer inputs; answers past this are cut rather than
	// failing the synthesis.
	maxTTSLength = 1500

	defaultSpeaker = "vidya"
)

// languageMap converts the turn's language codes to Sarvam locale codes.
// Hinglish falls back to Hindi for synthesis.
var languageMap = map[string]string{
	"en":    "en-IN",
	"hi":    "hi-IN",
	"hi-en": "hi-IN",
}

// Synthesizer converts answer text to speech. Implementations return the
// audio as base64.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) (string, error)
}

type ttsRequest struct {
	Text                string `json:"text"`
	TargetLanguageCode  string `json:"target_language_code"`
	Speaker             string `json:"speaker"`
	EnablePreprocessing bool   `json:"enable_preprocessing"`
	OutputAudioCodec    string `json:"output_audio_codec"`
}

type ttsResponse struct {
	Audios []string `json:"audios"`
}

// SarvamClient calls the Sarvam AI text-to-speech API.
type SarvamClient struct {
	apiKey  string
	speaker string
	client  *http.Client
	logger  *log.Logger
}

func NewSarvamClient(apiKey string, logger *log.Logger) *SarvamClient {
	return &SarvamClient{
		apiKey:  apiKey,
		speaker: defaultSpeaker,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

// Synthesize returns base64 mp3 audio for the text. Text over the vendor
// limit is truncated first.
func (s *SarvamClient) Synthesize(ctx context.Context, text, language string) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("sarvam api key is not configured")
	}

	if len(text) > maxTTSLength {
		s.logger.Printf("[TTS] text exceeds %d character limit (%d), truncating", maxTTSLength, len(text))
		text = text[:maxTTSLength]
	}

	langCode, ok := languageMap[language]
	if !ok {
		langCode = "en-IN"
	}

	payload, err := json.Marshal(ttsRequest{
		Text:                text,
		TargetLanguageCode:  langCode,
		Speaker:             s.speaker,
		EnablePreprocessing: true,
		OutputAudioCodec:    "mp3",
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sarvamTTSURL, bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-subscription-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("tts api returned status %d: %s", resp.StatusCode, string(body))
	}

	var ttsResp ttsResponse
	if err := json.NewDecoder(resp.Body).Decode(&ttsResp); err != nil {
		return "", fmt.Errorf("failed to decode tts response: %w", err)
	}
	if len(ttsResp.Audios) == 0 || ttsResp.Audios[0] == "" {
		return "", fmt.Errorf("tts api did not return audio data")
	}

	s.logger.Printf("[TTS] audio generated for language %s", langCode)
	return ttsResp.Audios[0], nil
}
