package service

import (
	"context"
	"time"

	"astrolynx-be/internal/constant"
	"astrolynx-be/internal/dto"
	"astrolynx-be/internal/entity"
	"astrolynx-be/internal/pkg/logger"
	"astrolynx-be/internal/pkg/serverutils"
	"astrolynx-be/internal/repository/specification"
	"astrolynx-be/internal/repository/unitofwork"
	"astrolynx-be/pkg/events"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ISessionService interface {
	CreateSession(ctx context.Context, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context) ([]*dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	DeleteSession(ctx context.Context, sessionId uuid.UUID) error
}

type sessionService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	logger           logger.ILogger
}

func NewSessionService(uowFactory unitofwork.RepositoryFactory, publisherService IPublisherService, log logger.ILogger) ISessionService {
	return &sessionService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		logger:           log,
	}
}

func (ss *sessionService) CreateSession(ctx context.Context, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	title := request.Title
	if title == "" {
		title = constant.DefaultSessionTitle
	}

	session := &entity.ChatSession{
		Id:        uuid.New(),
		Title:     title,
		CreatedAt: time.Now(),
	}

	uow := ss.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
		ss.logger.Error("SESSION", "Failed to create session", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	if ss.publisherService != nil {
		if err := ss.publisherService.Publish(ctx, events.NewSessionCreated(session.Id.String())); err != nil {
			ss.logger.Warn("SESSION", "Failed to publish session event",
				map[string]interface{}{"session_id": session.Id.String(), "error": err.Error()})
		}
	}

	return &dto.CreateSessionResponse{Id: session.Id}, nil
}

func (ss *sessionService) GetAllSessions(ctx context.Context) ([]*dto.GetAllSessionsResponse, error) {
	uow := ss.uowFactory.NewUnitOfWork(ctx)

	sessions, err := uow.ChatSessionRepository().FindAll(ctx, specification.OrderBy{Field: "created_at", Desc: true})
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.GetAllSessionsResponse, 0, len(sessions))
	for _, session := range sessions {
		responses = append(responses, &dto.GetAllSessionsResponse{
			Id:        session.Id,
			Title:     session.Title,
			CreatedAt: session.CreatedAt,
			UpdatedAt: session.UpdatedAt,
		})
	}
	return responses, nil
}

// GetChatHistory returns the full message log in chronological order. The
// generation window is bounded elsewhere; history reads are not.
func (ss *sessionService) GetChatHistory(ctx context.Context, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := ss.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, serverutils.NewAPIError(fiber.StatusNotFound, "Chat session not found")
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.GetChatHistoryResponse, 0, len(messages))
	for _, message := range messages {
		role := message.Role
		if role == constant.ChatMessageRoleModel {
			role = "assistant"
		}
		responses = append(responses, &dto.GetChatHistoryResponse{
			Id:        message.Id,
			Role:      role,
			Chat:      message.Chat,
			CreatedAt: message.CreatedAt,
		})
	}
	return responses, nil
}

func (ss *sessionService) DeleteSession(ctx context.Context, sessionId uuid.UUID) error {
	uow := ss.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return err
	}
	if session == nil {
		return serverutils.NewAPIError(fiber.StatusNotFound, "Chat session not found")
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, sessionId); err != nil {
		return err
	}
	if err := uow.ChatSessionRepository().Delete(ctx, sessionId); err != nil {
		return err
	}

	return uow.Commit()
}
