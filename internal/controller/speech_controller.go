package controller

import (
	"astrolynx-be/internal/dto"
	"astrolynx-be/internal/pkg/serverutils"
	"astrolynx-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISpeechController interface {
	RegisterRoutes(r fiber.Router)
	Synthesize(ctx *fiber.Ctx) error
}

type speechController struct {
	speechService service.ISpeechService
}

func NewSpeechController(speechService service.ISpeechService) ISpeechController {
	return &speechController{
		speechService: speechService,
	}
}

func (c *speechController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/speech/v1")
	h.Post("tts", c.Synthesize)
}

func (c *speechController) Synthesize(ctx *fiber.Ctx) error {
	var req dto.SynthesizeSpeechRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.speechService.SynthesizeSpeech(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success synthesize speech", res))
}
