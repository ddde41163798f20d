package service

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"astrolynx-be/internal/dto"
	"astrolynx-be/internal/entity"
	"astrolynx-be/pkg/events"
	"astrolynx-be/pkg/llm"
	"astrolynx-be/pkg/rag/classify"
	"astrolynx-be/pkg/rag/transform"
	"astrolynx-be/pkg/rag/workflow"
	"astrolynx-be/pkg/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

type stubClassifier struct{ label classify.Label }

func (s stubClassifier) Classify(ctx context.Context, question string) classify.Label {
	return s.label
}

type stubTransformer struct{}

func (stubTransformer) Transform(ctx context.Context, question string) transform.Result {
	return transform.Result{FanOutQueries: []string{question}}
}

type stubRetriever struct{ docs []store.Document }

func (s stubRetriever) RetrieveAll(ctx context.Context, queries []string) [][]store.Document {
	return [][]store.Document{s.docs}
}

type stubFuser struct{}

func (stubFuser) Fuse(rankedLists [][]store.Document) []store.Document {
	var out []store.Document
	for _, list := range rankedLists {
		out = append(out, list...)
	}
	return out
}

type stubAssembler struct{}

func (stubAssembler) Assemble(ctx context.Context, fusedDocs []store.Document, graphSummary string) string {
	return "assembled context"
}

type stubGenerator struct{ answer string }

func (s stubGenerator) Generate(ctx context.Context, question, assembledContext string, history []llm.Message, image *llm.ImageData) string {
	return s.answer
}

type stubTranslator struct{}

func (stubTranslator) ToEnglish(ctx context.Context, text, sourceLang string) string { return text }
func (stubTranslator) ToTarget(ctx context.Context, text, targetLang string) string  { return text }

type stubGraphRetriever struct{}

func (stubGraphRetriever) Retrieve(ctx context.Context, question string) string {
	return "Graph Semantic Relations Retrieved:"
}

type stubSynthesizer struct {
	audio string
	err   error
}

func (s stubSynthesizer) Synthesize(ctx context.Context, text, language string) (string, error) {
	return s.audio, s.err
}

type stubLLM struct{ response string }

func (s stubLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.response, nil
}

func (s stubLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return s.response, nil
}

func (s stubLLM) CountTokens(ctx context.Context, text string) (int, error) {
	return len(text), nil
}

type capturingPublisher struct {
	published []events.Event
	err       error
}

func (p *capturingPublisher) Publish(ctx context.Context, event events.Event) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, event)
	return nil
}

type capturingCheckpoint struct {
	saved map[string]any
	err   error
}

func (c *capturingCheckpoint) Save(ctx context.Context, sessionID string, state any) error {
	if c.err != nil {
		return c.err
	}
	if c.saved == nil {
		c.saved = make(map[string]any)
	}
	c.saved[sessionID] = state
	return nil
}

func (c *capturingCheckpoint) Load(ctx context.Context, sessionID string, out any) (bool, error) {
	saved, ok := c.saved[sessionID]
	if !ok {
		return false, nil
	}
	state, ok := saved.(*workflow.TurnState)
	if !ok {
		return false, nil
	}
	if target, ok := out.(*workflow.TurnState); ok {
		*target = *state
		return true, nil
	}
	return false, nil
}

func newTestOrchestrator(label classify.Label, answer string, synth stubSynthesizer) *workflow.Orchestrator {
	return workflow.NewOrchestrator(
		stubClassifier{label: label},
		stubTransformer{},
		stubRetriever{docs: []store.Document{{ID: "d1", Content: "satellite coverage notes", Source: "docs"}}},
		stubGraphRetriever{},
		stubFuser{},
		stubAssembler{},
		stubGenerator{answer: answer},
		stubTranslator{},
		synth,
		stubLLM{response: "Hello! How can I help?"},
		log.New(io.Discard, "", 0),
	)
}

type chatFixture struct {
	backing    *memStore
	publisher  *capturingPublisher
	checkpoint *capturingCheckpoint
	service    IChatService
	sessionId  uuid.UUID
}

func newChatFixture(t *testing.T, label classify.Label, answer string, synth stubSynthesizer) *chatFixture {
	t.Helper()

	backing := newMemStore()
	sessionId := uuid.New()
	backing.sessions[sessionId] = &entity.ChatSession{Id: sessionId, Title: "New conversation", CreatedAt: time.Now()}

	factory := &memFactory{store: backing}
	publisher := &capturingPublisher{}
	checkpointStore := &capturingCheckpoint{}

	svc := NewChatService(
		factory,
		newTestOrchestrator(label, answer, synth),
		NewSessionStore(factory),
		checkpointStore,
		publisher,
		nopLogger{},
	)

	return &chatFixture{
		backing:    backing,
		publisher:  publisher,
		checkpoint: checkpointStore,
		service:    svc,
		sessionId:  sessionId,
	}
}

func TestSendChatAnswersAndPersistsTurn(t *testing.T) {
	f := newChatFixture(t, classify.LabelDomain, "INSAT-3D carries an imager and a sounder.", stubSynthesizer{})

	res, err := f.service.SendChat(context.Background(), &dto.SendChatRequest{
		ChatSessionId: f.sessionId,
		Chat:          "What instruments does INSAT-3D carry?",
	})
	require.NoError(t, err)

	assert.Equal(t, "model", res.Role)
	assert.Equal(t, "INSAT-3D carries an imager and a sounder.", res.Content)
	assert.Empty(t, res.AudioData)

	require.Len(t, f.backing.messages, 2)
	assert.Equal(t, "What instruments does INSAT-3D carry?", f.backing.messages[0].Chat)
	assert.Equal(t, "INSAT-3D carries an imager and a sounder.", f.backing.messages[1].Chat)
}

func TestSendChatUnknownSessionIsRejected(t *testing.T) {
	f := newChatFixture(t, classify.LabelDomain, "answer", stubSynthesizer{})

	_, err := f.service.SendChat(context.Background(), &dto.SendChatRequest{
		ChatSessionId: uuid.New(),
		Chat:          "hello",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	assert.Empty(t, f.backing.messages)
}

func TestSendChatPublishesTurnEvent(t *testing.T) {
	f := newChatFixture(t, classify.LabelGreeting, "", stubSynthesizer{})

	_, err := f.service.SendChat(context.Background(), &dto.SendChatRequest{
		ChatSessionId: f.sessionId,
		Chat:          "hi there",
	})
	require.NoError(t, err)

	require.Len(t, f.publisher.published, 1)
	evt := f.publisher.published[0]
	assert.Equal(t, events.EventTypeTurnCompleted, evt.EventType())
	assert.Equal(t, f.sessionId.String(), evt.Payload()["session_id"])
	assert.Equal(t, "hi there", evt.Payload()["question"])
}

func TestSendChatSavesCheckpoint(t *testing.T) {
	f := newChatFixture(t, classify.LabelDomain, "checkpointed answer", stubSynthesizer{})

	_, err := f.service.SendChat(context.Background(), &dto.SendChatRequest{
		ChatSessionId: f.sessionId,
		Chat:          "question",
	})
	require.NoError(t, err)

	saved, ok := f.checkpoint.saved[f.sessionId.String()]
	require.True(t, ok)
	state, ok := saved.(*workflow.TurnState)
	require.True(t, ok)
	assert.Equal(t, "checkpointed answer", state.Answer)
}

func TestSendChatPublishFailureDoesNotFailTurn(t *testing.T) {
	f := newChatFixture(t, classify.LabelDomain, "the answer", stubSynthesizer{})
	f.publisher.err = errors.New("bus down")

	res, err := f.service.SendChat(context.Background(), &dto.SendChatRequest{
		ChatSessionId: f.sessionId,
		Chat:          "question",
	})
	require.NoError(t, err)
	assert.Equal(t, "the answer", res.Content)
	assert.Len(t, f.backing.messages, 2)
}

func TestSendChatCheckpointFailureDoesNotFailTurn(t *testing.T) {
	f := newChatFixture(t, classify.LabelDomain, "the answer", stubSynthesizer{})
	f.checkpoint.err = errors.New("redis down")

	res, err := f.service.SendChat(context.Background(), &dto.SendChatRequest{
		ChatSessionId: f.sessionId,
		Chat:          "question",
	})
	require.NoError(t, err)
	assert.Equal(t, "the answer", res.Content)
}

func TestSendChatReturnsAudioWhenRequested(t *testing.T) {
	f := newChatFixture(t, classify.LabelDomain, "spoken answer", stubSynthesizer{audio: "bW9ja2F1ZGlv"})

	res, err := f.service.SendChat(context.Background(), &dto.SendChatRequest{
		ChatSessionId:  f.sessionId,
		Chat:           "question",
		AudioRequested: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "spoken answer", res.Content)
	assert.Equal(t, "bW9ja2F1ZGlv", res.AudioData)
}

func TestSendChatAttachesImageWithDefaultMime(t *testing.T) {
	var seen *llm.ImageData
	gen := imageCapturingGenerator{seen: &seen}

	backing := newMemStore()
	sessionId := uuid.New()
	backing.sessions[sessionId] = &entity.ChatSession{Id: sessionId, CreatedAt: time.Now()}
	factory := &memFactory{store: backing}

	orch := workflow.NewOrchestrator(
		stubClassifier{label: classify.LabelDomain},
		stubTransformer{},
		stubRetriever{},
		stubGraphRetriever{},
		stubFuser{},
		stubAssembler{},
		gen,
		stubTranslator{},
		stubSynthesizer{},
		stubLLM{},
		log.New(io.Discard, "", 0),
	)

	svc := NewChatService(factory, orch, NewSessionStore(factory), &capturingCheckpoint{}, &capturingPublisher{}, nopLogger{})

	_, err := svc.SendChat(context.Background(), &dto.SendChatRequest{
		ChatSessionId: sessionId,
		Chat:          "what is in this image?",
		ImageData:     strings.Repeat("QUJD", 4),
	})
	require.NoError(t, err)

	require.NotNil(t, seen)
	assert.Equal(t, "image/jpeg", seen.MIMEType)
	assert.Equal(t, strings.Repeat("QUJD", 4), seen.Data)
}

type imageCapturingGenerator struct{ seen **llm.ImageData }

func (g imageCapturingGenerator) Generate(ctx context.Context, question, assembledContext string, history []llm.Message, image *llm.ImageData) string {
	*g.seen = image
	return "described"
}

type historyCapturingGenerator struct{ seen *[]llm.Message }

func (g historyCapturingGenerator) Generate(ctx context.Context, question, assembledContext string, history []llm.Message, image *llm.ImageData) string {
	*g.seen = history
	return "answered"
}

// When the message log is unreadable the turn falls back to the memory held
// by the last checkpoint.
func TestSendChatRecoversMemoryFromCheckpoint(t *testing.T) {
	var seen []llm.Message

	backing := newMemStore()
	sessionId := uuid.New()
	backing.sessions[sessionId] = &entity.ChatSession{Id: sessionId, CreatedAt: time.Now()}
	backing.findErr = errors.New("db read timeout")
	factory := &memFactory{store: backing}

	checkpointStore := &capturingCheckpoint{saved: map[string]any{
		sessionId.String(): &workflow.TurnState{
			SessionID:        sessionId.String(),
			OriginalQuestion: "previous question",
			Answer:           "previous answer",
			ChatHistory: []llm.Message{
				{Role: "user", Content: "older question"},
				{Role: "assistant", Content: "older answer"},
			},
		},
	}}

	orch := workflow.NewOrchestrator(
		stubClassifier{label: classify.LabelDomain},
		stubTransformer{},
		stubRetriever{},
		stubGraphRetriever{},
		stubFuser{},
		stubAssembler{},
		historyCapturingGenerator{seen: &seen},
		stubTranslator{},
		stubSynthesizer{},
		stubLLM{},
		log.New(io.Discard, "", 0),
	)

	svc := NewChatService(factory, orch, NewSessionStore(factory), checkpointStore, &capturingPublisher{}, nopLogger{})

	_, err := svc.SendChat(context.Background(), &dto.SendChatRequest{
		ChatSessionId: sessionId,
		Chat:          "current question",
	})
	require.NoError(t, err)

	require.Len(t, seen, 4)
	assert.Equal(t, "older question", seen[0].Content)
	assert.Equal(t, "previous question", seen[2].Content)
	assert.Equal(t, "assistant", seen[3].Role)
	assert.Equal(t, "previous answer", seen[3].Content)
}
