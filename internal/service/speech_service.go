package service

import (
	"context"

	"astrolynx-be/internal/dto"
	"astrolynx-be/internal/pkg/logger"
	"astrolynx-be/internal/pkg/serverutils"
	"astrolynx-be/pkg/speech"

	"github.com/gofiber/fiber/v2"
)

type ISpeechService interface {
	SynthesizeSpeech(ctx context.Context, request *dto.SynthesizeSpeechRequest) (*dto.SynthesizeSpeechResponse, error)
}

type speechService struct {
	synthesizer speech.Synthesizer
	logger      logger.ILogger
}

func NewSpeechService(synthesizer speech.Synthesizer, log logger.ILogger) ISpeechService {
	return &speechService{synthesizer: synthesizer, logger: log}
}

func (ss *speechService) SynthesizeSpeech(ctx context.Context, request *dto.SynthesizeSpeechRequest) (*dto.SynthesizeSpeechResponse, error) {
	if ss.synthesizer == nil {
		return nil, serverutils.NewAPIError(fiber.StatusServiceUnavailable, "Speech synthesis is not configured")
	}

	language := request.TargetLanguageCode
	if language == "" {
		language = "en"
	}

	audio, err := ss.synthesizer.Synthesize(ctx, request.Text, language)
	if err != nil {
		ss.logger.Error("SPEECH", "Failed to synthesize speech", map[string]interface{}{"error": err.Error()})
		return nil, serverutils.NewAPIError(fiber.StatusBadGateway, "Speech synthesis failed")
	}

	return &dto.SynthesizeSpeechResponse{AudioData: audio}, nil
}
