package service

import (
	"context"
	"time"

	"astrolynx-be/internal/constant"
	"astrolynx-be/internal/dto"
	"astrolynx-be/internal/pkg/logger"
	"astrolynx-be/internal/pkg/serverutils"
	"astrolynx-be/internal/repository/specification"
	"astrolynx-be/internal/repository/unitofwork"
	"astrolynx-be/pkg/checkpoint"
	"astrolynx-be/pkg/events"
	"astrolynx-be/pkg/llm"
	"astrolynx-be/pkg/rag/history"
	"astrolynx-be/pkg/rag/workflow"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatService interface {
	SendChat(ctx context.Context, request *dto.SendChatRequest) (*dto.SendChatResponse, error)
}

// chatService runs one workflow execution per inbound chat request. The only
// hard failures are missing preconditions (unknown session, uninitialized
// pipeline); once a turn starts the answer is always best-effort.
type chatService struct {
	uowFactory       unitofwork.RepositoryFactory
	orchestrator     *workflow.Orchestrator
	sessionStore     history.Store
	historyLoader    *history.Loader
	checkpointStore  checkpoint.Store
	publisherService IPublisherService
	logger           logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	orchestrator *workflow.Orchestrator,
	sessionStore history.Store,
	checkpointStore checkpoint.Store,
	publisherService IPublisherService,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:       uowFactory,
		orchestrator:     orchestrator,
		sessionStore:     sessionStore,
		historyLoader:    history.NewLoader(sessionStore),
		checkpointStore:  checkpointStore,
		publisherService: publisherService,
		logger:           log,
	}
}

func (cs *chatService) SendChat(ctx context.Context, request *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	if cs.orchestrator == nil || cs.sessionStore == nil {
		return nil, serverutils.NewAPIError(fiber.StatusServiceUnavailable,
			"The chat service is not fully operational. Please try again later.")
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: request.ChatSessionId})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, serverutils.NewAPIError(fiber.StatusNotFound, "Chat session not found")
	}

	sessionID := request.ChatSessionId.String()

	window, err := cs.historyLoader.LoadConversationHistory(ctx, sessionID)
	if err != nil {
		cs.logger.Warn("CHAT", "Failed to load history window, recovering from last checkpoint",
			map[string]interface{}{"session_id": sessionID, "error": err.Error()})
		window = cs.recoverWindow(ctx, sessionID)
	}

	state := workflow.NewTurnState(sessionID, request.Chat)
	state.ChatHistory = window
	state.AudioRequested = request.AudioRequested
	if request.TargetLanguage != "" {
		state.TargetLanguage = request.TargetLanguage
	}
	if request.ImageData != "" {
		mimeType := request.ImageMimeType
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		state.Image = &llm.ImageData{MIMEType: mimeType, Data: request.ImageData}
	}

	cs.logger.Info("CHAT", "Starting workflow execution",
		map[string]interface{}{"session_id": sessionID, "audio": request.AudioRequested, "language": state.TargetLanguage})

	final := cs.orchestrator.Run(ctx, state)

	// The turn is appended with the question as the user typed it, not the
	// translated form.
	if err := cs.sessionStore.AppendTurn(ctx, sessionID, request.Chat, final.Answer); err != nil {
		cs.logger.Error("CHAT", "Failed to persist turn",
			map[string]interface{}{"session_id": sessionID, "error": err.Error()})
		return nil, err
	}

	if cs.checkpointStore != nil {
		if err := cs.checkpointStore.Save(ctx, sessionID, final); err != nil {
			cs.logger.Warn("CHAT", "Failed to save checkpoint",
				map[string]interface{}{"session_id": sessionID, "error": err.Error()})
		}
	}

	if cs.publisherService != nil {
		evt := events.NewTurnCompleted(sessionID, request.Chat, final.Answer, string(final.Label), final.AudioData != "")
		if err := cs.publisherService.Publish(ctx, evt); err != nil {
			cs.logger.Warn("CHAT", "Failed to publish turn event",
				map[string]interface{}{"session_id": sessionID, "error": err.Error()})
		}
	}

	return &dto.SendChatResponse{
		Id:            uuid.New(),
		ChatSessionId: request.ChatSessionId,
		Role:          constant.ChatMessageRoleModel,
		Content:       final.Answer,
		AudioData:     final.AudioData,
		CreatedAt:     time.Now(),
	}, nil
}

// recoverWindow rebuilds conversational memory from the last checkpointed
// turn when the message log is unreadable. The checkpoint holds the window
// that turn saw plus its own question and answer.
func (cs *chatService) recoverWindow(ctx context.Context, sessionID string) []llm.Message {
	if cs.checkpointStore == nil {
		return nil
	}

	var prior workflow.TurnState
	found, err := cs.checkpointStore.Load(ctx, sessionID, &prior)
	if err != nil || !found {
		return nil
	}

	window := append([]llm.Message{}, prior.ChatHistory...)
	if prior.OriginalQuestion != "" && prior.Answer != "" {
		window = append(window,
			llm.Message{Role: "user", Content: prior.OriginalQuestion},
			llm.Message{Role: "assistant", Content: prior.Answer},
		)
	}
	if len(window) > 2*history.WindowSize {
		window = window[len(window)-2*history.WindowSize:]
	}
	return window
}
