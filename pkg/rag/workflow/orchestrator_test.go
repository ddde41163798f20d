package workflow

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"

	"astrolynx-be/pkg/llm"
	"astrolynx-be/pkg/rag/classify"
	"astrolynx-be/pkg/rag/transform"
	"astrolynx-be/pkg/store"
)

// callRecorder tracks stage invocation order across the fakes.
type callRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *callRecorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *callRecorder) indexOf(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.calls {
		if c == name {
			return i
		}
	}
	return -1
}

type fakeClassifier struct {
	rec   *callRecorder
	label classify.Label
}

func (f *fakeClassifier) Classify(ctx context.Context, question string) classify.Label {
	f.rec.record("classify")
	return f.label
}

type fakeTransformer struct {
	rec *callRecorder
}

func (f *fakeTransformer) Transform(ctx context.Context, question string) transform.Result {
	f.rec.record("transform")
	return transform.Result{
		FanOutQueries:   []string{question, "rewrite one", "rewrite two"},
		HypotheticalDoc: "hypothetical answer",
	}
}

type fakeRetriever struct {
	rec     *callRecorder
	results [][]store.Document
}

func (f *fakeRetriever) RetrieveAll(ctx context.Context, queries []string) [][]store.Document {
	f.rec.record("retrieve")
	if f.results != nil {
		return f.results
	}
	out := make([][]store.Document, len(queries))
	for i := range queries {
		out[i] = []store.Document{{Content: "document for " + queries[i], Source: "vector_store"}}
	}
	return out
}

type fakeGraphRetriever struct {
	rec     *callRecorder
	summary string
}

func (f *fakeGraphRetriever) Retrieve(ctx context.Context, question string) string {
	f.rec.record("graph")
	return f.summary
}

type fakeFuser struct {
	rec *callRecorder
}

func (f *fakeFuser) Fuse(rankedLists [][]store.Document) []store.Document {
	f.rec.record("fuse")
	var fused []store.Document
	for _, list := range rankedLists {
		fused = append(fused, list...)
	}
	return fused
}

type fakeAssembler struct {
	rec *callRecorder
}

func (f *fakeAssembler) Assemble(ctx context.Context, fusedDocs []store.Document, graphSummary string) string {
	f.rec.record("assemble")
	parts := make([]string, 0, len(fusedDocs)+1)
	for _, d := range fusedDocs {
		parts = append(parts, d.Content)
	}
	parts = append(parts, graphSummary)
	return strings.Join(parts, "|")
}

type fakeGenerator struct {
	rec    *callRecorder
	answer string
}

func (f *fakeGenerator) Generate(ctx context.Context, question, assembledContext string, history []llm.Message, image *llm.ImageData) string {
	f.rec.record("generate")
	return f.answer
}

type fakeTranslator struct {
	rec *callRecorder
}

func (f *fakeTranslator) ToEnglish(ctx context.Context, text, sourceLang string) string {
	if sourceLang == "en" {
		return text
	}
	f.rec.record("translateIn")
	return "english(" + text + ")"
}

func (f *fakeTranslator) ToTarget(ctx context.Context, text, targetLang string) string {
	if targetLang == "en" {
		return text
	}
	f.rec.record("translateOut")
	return targetLang + "(" + text + ")"
}

type fakeSynthesizer struct {
	rec      *callRecorder
	lastText string
	err      error
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text, language string) (string, error) {
	f.rec.record("synthesize")
	f.lastText = text
	if f.err != nil {
		return "", f.err
	}
	return "YXVkaW8=", nil
}

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) CountTokens(ctx context.Context, text string) (int, error) {
	return len(text) / 4, nil
}

type harness struct {
	rec          *callRecorder
	orchestrator *Orchestrator
	graphFake    *fakeGraphRetriever
	synthesizer  *fakeSynthesizer
	retriever    *fakeRetriever
	llm          *fakeLLM
}

func newHarness(label classify.Label) *harness {
	rec := &callRecorder{}
	graphFake := &fakeGraphRetriever{rec: rec, summary: "graph summary content"}
	synth := &fakeSynthesizer{rec: rec}
	retriever := &fakeRetriever{rec: rec}
	provider := &fakeLLM{response: "simple reply"}
	logger := log.New(io.Discard, "", 0)

	return &harness{
		rec:         rec,
		graphFake:   graphFake,
		synthesizer: synth,
		retriever:   retriever,
		llm:         provider,
		orchestrator: NewOrchestrator(
			&fakeClassifier{rec: rec, label: label},
			&fakeTransformer{rec: rec},
			retriever,
			graphFake,
			&fakeFuser{rec: rec},
			&fakeAssembler{rec: rec},
			&fakeGenerator{rec: rec, answer: "generated answer"},
			&fakeTranslator{rec: rec},
			synth,
			provider,
			logger,
		),
	}
}

func TestGreetingSkipsRetrieval(t *testing.T) {
	h := newHarness(classify.LabelGreeting)

	state := NewTurnState("s1", "Hi")
	h.orchestrator.Run(context.Background(), state)

	if state.Answer != "simple reply" {
		t.Errorf("answer = %q, want simple-response output", state.Answer)
	}
	for _, stage := range []string{"retrieve", "graph", "transform", "fuse", "assemble", "generate"} {
		if h.rec.indexOf(stage) != -1 {
			t.Errorf("stage %q ran for a greeting turn", stage)
		}
	}
	if h.rec.indexOf("synthesize") != -1 {
		t.Error("audio synthesized without being requested")
	}
}

func TestDomainQuestionRunsFullBranch(t *testing.T) {
	h := newHarness(classify.LabelDomain)

	state := NewTurnState("s1", "Tell me about INSAT-3D")
	h.orchestrator.Run(context.Background(), state)

	if state.Answer != "generated answer" {
		t.Errorf("answer = %q, want generated answer", state.Answer)
	}
	for _, stage := range []string{"classify", "transform", "retrieve", "graph", "fuse", "assemble", "generate"} {
		if h.rec.indexOf(stage) == -1 {
			t.Errorf("stage %q never ran", stage)
		}
	}
	if h.rec.indexOf("translateIn") != -1 || h.rec.indexOf("translateOut") != -1 {
		t.Error("translation ran for an English turn")
	}
	if len(state.FanOutQueries) != 3 {
		t.Errorf("fan-out queries = %v", state.FanOutQueries)
	}
	if len(state.FusedDocs) == 0 || state.Context == "" {
		t.Error("retrieval branch left fused documents or context empty")
	}
}

func TestRetrievalLegsJoinBeforeFusion(t *testing.T) {
	h := newHarness(classify.LabelDomain)

	state := NewTurnState("s1", "domain question")
	h.orchestrator.Run(context.Background(), state)

	fuse := h.rec.indexOf("fuse")
	if idx := h.rec.indexOf("retrieve"); idx == -1 || idx > fuse {
		t.Error("fusion started before vector retrieval finished")
	}
	if idx := h.rec.indexOf("graph"); idx == -1 || idx > fuse {
		t.Error("fusion started before graph retrieval finished")
	}
	if assemble := h.rec.indexOf("assemble"); assemble < fuse {
		t.Error("assembly ran before fusion")
	}
}

func TestTranslatedAudioTurnOrdering(t *testing.T) {
	h := newHarness(classify.LabelDomain)

	state := NewTurnState("s1", "uintaa prashna")
	state.TargetLanguage = "hi"
	state.AudioRequested = true
	h.orchestrator.Run(context.Background(), state)

	translateIn := h.rec.indexOf("translateIn")
	classifyIdx := h.rec.indexOf("classify")
	generateIdx := h.rec.indexOf("generate")
	translateOut := h.rec.indexOf("translateOut")
	synthesize := h.rec.indexOf("synthesize")

	if translateIn == -1 || translateIn > classifyIdx {
		t.Error("input translation did not run before classification")
	}
	if translateOut == -1 || translateOut < generateIdx {
		t.Error("output translation did not run after generation")
	}
	if synthesize == -1 || synthesize < translateOut {
		t.Error("synthesis did not run last")
	}
	if state.Question != "english(uintaa prashna)" {
		t.Errorf("question = %q, want translated input", state.Question)
	}
	if state.Answer != "hi(generated answer)" {
		t.Errorf("answer = %q, want translated output", state.Answer)
	}
	if h.synthesizer.lastText != state.Answer {
		t.Errorf("synthesized %q, want the translated answer", h.synthesizer.lastText)
	}
	if state.AudioData != "YXVkaW8=" {
		t.Errorf("audio data = %q", state.AudioData)
	}
}

func TestAllVectorQueriesFailingStillAnswers(t *testing.T) {
	h := newHarness(classify.LabelDomain)
	// Every fan-out slot comes back empty, as when the vector store is down.
	h.retriever.results = [][]store.Document{{}, {}, {}}

	state := NewTurnState("s1", "domain question")
	h.orchestrator.Run(context.Background(), state)

	if len(state.FusedDocs) != 0 {
		t.Errorf("fused docs = %v, want none", state.FusedDocs)
	}
	if !strings.Contains(state.Context, "graph summary content") {
		t.Errorf("graph summary missing from context %q", state.Context)
	}
	if state.Answer != "generated answer" {
		t.Errorf("answer = %q, degraded turn should still answer", state.Answer)
	}
}

func TestSimpleResponseFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		label classify.Label
		want  string
	}{
		{name: "greeting fallback", label: classify.LabelGreeting, want: FallbackGreeting},
		{name: "redirect fallback", label: classify.LabelOther, want: FallbackRedirect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(tt.label)
			h.llm.err = errors.New("model unavailable")

			state := NewTurnState("s1", "whatever")
			h.orchestrator.Run(context.Background(), state)

			if state.Answer != tt.want {
				t.Errorf("answer = %q, want fallback %q", state.Answer, tt.want)
			}
		})
	}
}

func TestSynthesisFailureKeepsTextAnswer(t *testing.T) {
	h := newHarness(classify.LabelGreeting)
	h.synthesizer.err = errors.New("tts down")

	state := NewTurnState("s1", "Hi")
	state.AudioRequested = true
	h.orchestrator.Run(context.Background(), state)

	if state.Answer == "" {
		t.Error("text answer lost when synthesis failed")
	}
	if state.AudioData != "" {
		t.Errorf("audio data = %q, want empty on failure", state.AudioData)
	}
}
