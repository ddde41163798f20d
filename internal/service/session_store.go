package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"astrolynx-be/internal/constant"
	"astrolynx-be/internal/entity"
	"astrolynx-be/internal/repository/specification"
	"astrolynx-be/internal/repository/unitofwork"
	"astrolynx-be/pkg/llm"
	"astrolynx-be/pkg/rag/history"

	"github.com/google/uuid"
)

// sessionStore implements the conversation log over the chat message tables.
// Appends to the same session are serialized by a per-session mutex so two
// concurrent turns cannot interleave their question/answer pairs; appends to
// different sessions proceed in parallel.
type sessionStore struct {
	uowFactory unitofwork.RepositoryFactory

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSessionStore(uowFactory unitofwork.RepositoryFactory) history.Store {
	return &sessionStore{
		uowFactory: uowFactory,
		locks:      make(map[string]*sync.Mutex),
	}
}

func (s *sessionStore) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

func (s *sessionStore) AppendTurn(ctx context.Context, sessionID, question, answer string) error {
	sid, err := uuid.Parse(sessionID)
	if err != nil {
		return fmt.Errorf("invalid session id %q: %w", sessionID, err)
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now()
	userMessage := entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          question,
		Role:          constant.ChatMessageRoleUser,
		ChatSessionId: sid,
		CreatedAt:     now,
	}
	modelMessage := entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          answer,
		Role:          constant.ChatMessageRoleModel,
		ChatSessionId: sid,
		CreatedAt:     now.Add(1 * time.Millisecond),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().Create(ctx, &userMessage); err != nil {
		return err
	}
	if err := uow.ChatMessageRepository().Create(ctx, &modelMessage); err != nil {
		return err
	}

	return uow.Commit()
}

func (s *sessionStore) LoadWindow(ctx context.Context, sessionID string, n int) ([]llm.Message, error) {
	sid, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, fmt.Errorf("invalid session id %q: %w", sessionID, err)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	rows, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sid},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: n, Offset: 0},
	)
	if err != nil {
		return nil, err
	}

	// Rows arrive newest first; the window is chronological.
	messages := make([]llm.Message, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		role := "user"
		if rows[i].Role == constant.ChatMessageRoleModel {
			role = "assistant"
		}
		messages = append(messages, llm.Message{
			Role:    role,
			Content: rows[i].Chat,
		})
	}
	return messages, nil
}
