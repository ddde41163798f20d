package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"astrolynx-be/internal/entity"
	"astrolynx-be/internal/repository/contract"
	"astrolynx-be/internal/repository/specification"
	"astrolynx-be/internal/repository/unitofwork"
	"astrolynx-be/pkg/rag/history"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is the shared backing state for the in-memory repositories. A
// configurable create delay widens the window in which unserialized writers
// would interleave.
type memStore struct {
	mu          sync.Mutex
	sessions    map[uuid.UUID]*entity.ChatSession
	messages    []*entity.ChatMessage
	audits      []*entity.TurnAudit
	createDelay time.Duration
	findErr     error
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[uuid.UUID]*entity.ChatSession)}
}

type memSessionRepo struct{ store *memStore }

func (r *memSessionRepo) Create(ctx context.Context, session *entity.ChatSession) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.sessions[session.Id] = session
	return nil
}

func (r *memSessionRepo) Update(ctx context.Context, session *entity.ChatSession) error {
	return r.Create(ctx, session)
}

func (r *memSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.sessions, id)
	return nil
}

func (r *memSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, spec := range specs {
		if byID, ok := spec.(specification.ByID); ok {
			return r.store.sessions[byID.ID], nil
		}
	}
	return nil, nil
}

func (r *memSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]*entity.ChatSession, 0, len(r.store.sessions))
	for _, s := range r.store.sessions {
		out = append(out, s)
	}
	return out, nil
}

type memMessageRepo struct{ store *memStore }

func (r *memMessageRepo) Create(ctx context.Context, message *entity.ChatMessage) error {
	if r.store.createDelay > 0 {
		time.Sleep(r.store.createDelay)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.messages = append(r.store.messages, message)
	return nil
}

func (r *memMessageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.messages[:0]
	for _, m := range r.store.messages {
		if m.Id != id {
			kept = append(kept, m)
		}
	}
	r.store.messages = kept
	return nil
}

func (r *memMessageRepo) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.messages[:0]
	for _, m := range r.store.messages {
		if m.ChatSessionId != sessionId {
			kept = append(kept, m)
		}
	}
	r.store.messages = kept
	return nil
}

func (r *memMessageRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error) {
	rows, err := r.FindAll(ctx, specs...)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// FindAll honors the session filter, created_at ordering, and pagination the
// way the pipeline uses them for window loads.
func (r *memMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	if r.store.findErr != nil {
		return nil, r.store.findErr
	}
	r.store.mu.Lock()
	rows := make([]*entity.ChatMessage, len(r.store.messages))
	copy(rows, r.store.messages)
	r.store.mu.Unlock()

	var limit int
	desc := false
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByChatSessionID:
			filtered := rows[:0]
			for _, m := range rows {
				if m.ChatSessionId == s.ChatSessionID {
					filtered = append(filtered, m)
				}
			}
			rows = filtered
		case specification.OrderBy:
			desc = s.Desc
		case specification.Pagination:
			limit = s.Limit
		}
	}

	for i := 0; i < len(rows); i++ {
		for j := i + 1; j < len(rows); j++ {
			before := rows[i].CreatedAt.Before(rows[j].CreatedAt)
			if (desc && before) || (!desc && !before) {
				rows[i], rows[j] = rows[j], rows[i]
			}
		}
	}

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (r *memMessageRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	rows, err := r.FindAll(ctx, specs...)
	return int64(len(rows)), err
}

type memAuditRepo struct{ store *memStore }

func (r *memAuditRepo) Create(ctx context.Context, audit *entity.TurnAudit) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.audits = append(r.store.audits, audit)
	return nil
}

func (r *memAuditRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.TurnAudit, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]*entity.TurnAudit, len(r.store.audits))
	copy(out, r.store.audits)
	return out, nil
}

func (r *memAuditRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.audits)), nil
}

type memUnitOfWork struct{ store *memStore }

func (u *memUnitOfWork) Begin(ctx context.Context) error { return nil }
func (u *memUnitOfWork) Commit() error                   { return nil }
func (u *memUnitOfWork) Rollback() error                 { return nil }

func (u *memUnitOfWork) ChatSessionRepository() contract.ChatSessionRepository {
	return &memSessionRepo{store: u.store}
}

func (u *memUnitOfWork) ChatMessageRepository() contract.ChatMessageRepository {
	return &memMessageRepo{store: u.store}
}

func (u *memUnitOfWork) TurnAuditRepository() contract.TurnAuditRepository {
	return &memAuditRepo{store: u.store}
}

type memFactory struct{ store *memStore }

func (f *memFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &memUnitOfWork{store: f.store}
}

func TestAppendTurnWritesUserThenModel(t *testing.T) {
	backing := newMemStore()
	store := NewSessionStore(&memFactory{store: backing})
	sessionId := uuid.New()

	err := store.AppendTurn(context.Background(), sessionId.String(), "What is INSAT-3D?", "INSAT-3D is a meteorological satellite.")
	require.NoError(t, err)

	require.Len(t, backing.messages, 2)
	assert.Equal(t, "user", backing.messages[0].Role)
	assert.Equal(t, "What is INSAT-3D?", backing.messages[0].Chat)
	assert.Equal(t, "model", backing.messages[1].Role)
	assert.Equal(t, "INSAT-3D is a meteorological satellite.", backing.messages[1].Chat)
	assert.True(t, backing.messages[0].CreatedAt.Before(backing.messages[1].CreatedAt))
}

func TestAppendTurnRejectsInvalidSessionId(t *testing.T) {
	store := NewSessionStore(&memFactory{store: newMemStore()})

	err := store.AppendTurn(context.Background(), "not-a-uuid", "q", "a")
	assert.Error(t, err)
}

func TestLoadWindowReturnsRecentMessagesChronologically(t *testing.T) {
	backing := newMemStore()
	store := NewSessionStore(&memFactory{store: backing})
	sessionId := uuid.New()

	base := time.Now()
	for i := 0; i < 15; i++ {
		role := "user"
		if i%2 == 1 {
			role = "model"
		}
		backing.messages = append(backing.messages, &entity.ChatMessage{
			Id:            uuid.New(),
			Chat:          fmt.Sprintf("message %d", i),
			Role:          role,
			ChatSessionId: sessionId,
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
		})
	}

	window, err := store.LoadWindow(context.Background(), sessionId.String(), 10)
	require.NoError(t, err)

	require.Len(t, window, 10)
	assert.Equal(t, "message 5", window[0].Content)
	assert.Equal(t, "message 14", window[9].Content)
	// Even-index rows were seeded as "user"; stored "model" rows surface
	// with the provider-facing role.
	assert.Equal(t, "user", window[9].Role)
	assert.Equal(t, "assistant", window[8].Role)
}

// The generation window is WindowSize question/answer pairs, so the loader
// must pull twice that many messages.
func TestConversationHistoryWindowIsTenPairs(t *testing.T) {
	backing := newMemStore()
	loader := history.NewLoader(NewSessionStore(&memFactory{store: backing}))
	sessionId := uuid.New()

	base := time.Now()
	for i := 0; i < 30; i++ {
		role := "user"
		if i%2 == 1 {
			role = "model"
		}
		backing.messages = append(backing.messages, &entity.ChatMessage{
			Id:            uuid.New(),
			Chat:          fmt.Sprintf("message %d", i),
			Role:          role,
			ChatSessionId: sessionId,
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
		})
	}

	window, err := loader.LoadConversationHistory(context.Background(), sessionId.String())
	require.NoError(t, err)

	require.Len(t, window, 2*history.WindowSize)
	assert.Equal(t, "message 10", window[0].Content)
	assert.Equal(t, "message 29", window[19].Content)
}

func TestLoadWindowIgnoresOtherSessions(t *testing.T) {
	backing := newMemStore()
	store := NewSessionStore(&memFactory{store: backing})
	mine := uuid.New()
	other := uuid.New()

	backing.messages = append(backing.messages,
		&entity.ChatMessage{Id: uuid.New(), Chat: "mine", Role: "user", ChatSessionId: mine, CreatedAt: time.Now()},
		&entity.ChatMessage{Id: uuid.New(), Chat: "theirs", Role: "user", ChatSessionId: other, CreatedAt: time.Now()},
	)

	window, err := store.LoadWindow(context.Background(), mine.String(), 10)
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "mine", window[0].Content)
}

// Concurrent turns against the same session must land as adjacent
// question/answer pairs, never interleaved.
func TestConcurrentAppendsToSameSessionDoNotInterleave(t *testing.T) {
	backing := newMemStore()
	backing.createDelay = 2 * time.Millisecond
	store := NewSessionStore(&memFactory{store: backing})
	sessionId := uuid.New()

	const turns = 8
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := fmt.Sprintf("question %d", i)
			a := fmt.Sprintf("answer %d", i)
			assert.NoError(t, store.AppendTurn(context.Background(), sessionId.String(), q, a))
		}(i)
	}
	wg.Wait()

	require.Len(t, backing.messages, turns*2)
	for i := 0; i < turns*2; i += 2 {
		q := backing.messages[i]
		a := backing.messages[i+1]
		assert.Equal(t, "user", q.Role, "row %d", i)
		assert.Equal(t, "model", a.Role, "row %d", i+1)
		// The answer row must belong to the question row it follows.
		assert.Equal(t, "question", q.Chat[:8])
		assert.Equal(t, "answer "+q.Chat[len("question "):], a.Chat)
	}
}

func TestConcurrentAppendsToDifferentSessionsProceed(t *testing.T) {
	backing := newMemStore()
	backing.createDelay = time.Millisecond
	store := NewSessionStore(&memFactory{store: backing})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sid := uuid.New().String()
			assert.NoError(t, store.AppendTurn(context.Background(), sid, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i)))
		}(i)
	}
	wg.Wait()

	assert.Len(t, backing.messages, 8)
}
