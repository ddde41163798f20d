package workflow

import (
	"context"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"astrolynx-be/pkg/graph"
	"astrolynx-be/pkg/llm"
	"astrolynx-be/pkg/rag/classify"
	"astrolynx-be/pkg/rag/transform"
	"astrolynx-be/pkg/speech"
	"astrolynx-be/pkg/store"
)

const (
	// Hardcoded fallbacks for the simple-response branch when the model
	// itself is unreachable.
	FallbackGreeting = "Hello! I'm an assistant for satellite data and space mission questions. How can I help you today?"
	FallbackRedirect = "I'm sorry, I can only help with questions about satellite data, space missions, and Earth observation. Is there anything in that area I can help you with?"
)

const greetingPrompt = `You are a friendly assistant for a meteorological and oceanographic satellite data archive.
The user has greeted you. Respond with a short, warm greeting (one or two sentences) and offer to help with satellite data, space missions, or Earth observation questions.
Respond with the greeting only, no other text.

User said: `

const redirectPrompt = `You are an assistant for a meteorological and oceanographic satellite data archive.
The user has asked about something outside your scope. Politely explain, in one or two sentences, that you can only help with satellite data, space missions, and Earth observation topics, and invite a question in that area.
Respond with the explanation only, no other text.

User asked: `

// Classifier routes a question into one of the three turn labels.
type Classifier interface {
	Classify(ctx context.Context, question string) classify.Label
}

// Transformer expands a question into the fan-out query set.
type Transformer interface {
	Transform(ctx context.Context, question string) transform.Result
}

// Retriever gathers one ranked document list per fan-out query.
type Retriever interface {
	RetrieveAll(ctx context.Context, queries []string) [][]store.Document
}

// Fuser merges the ranked lists into one deduplicated ranking.
type Fuser interface {
	Fuse(rankedLists [][]store.Document) []store.Document
}

// Assembler builds the token-budgeted context string.
type Assembler interface {
	Assemble(ctx context.Context, fusedDocs []store.Document, graphSummary string) string
}

// Generator produces the grounded answer.
type Generator interface {
	Generate(ctx context.Context, question, assembledContext string, history []llm.Message, image *llm.ImageData) string
}

// Translator converts text between English and the target language.
type Translator interface {
	ToEnglish(ctx context.Context, text, sourceLang string) string
	ToTarget(ctx context.Context, text, targetLang string) string
}

// Orchestrator drives one turn through translation, classification, the
// retrieval branch or the simple-response branch, and the optional output
// stages. Every dependency is passed in; nothing is read from globals.
type Orchestrator struct {
	classifier     Classifier
	transformer    Transformer
	retriever      Retriever
	graphRetriever graph.Retriever
	fuser          Fuser
	assembler      Assembler
	generator      Generator
	translator     Translator
	synthesizer    speech.Synthesizer
	llmProvider    llm.Provider
	logger         *log.Logger
}

func NewOrchestrator(
	classifier Classifier,
	transformer Transformer,
	retriever Retriever,
	graphRetriever graph.Retriever,
	fuser Fuser,
	assembler Assembler,
	generator Generator,
	translator Translator,
	synthesizer speech.Synthesizer,
	llmProvider llm.Provider,
	logger *log.Logger,
) *Orchestrator {
	return &Orchestrator{
		classifier:     classifier,
		transformer:    transformer,
		retriever:      retriever,
		graphRetriever: graphRetriever,
		fuser:          fuser,
		assembler:      assembler,
		generator:      generator,
		translator:     translator,
		synthesizer:    synthesizer,
		llmProvider:    llmProvider,
		logger:         logger,
	}
}

// Run executes the state machine for one turn. Once a turn has started every
// upstream failure is absorbed into degraded state, so Run itself never
// fails; the answer is always best-effort.
func (o *Orchestrator) Run(ctx context.Context, state *TurnState) *TurnState {
	if state.TargetLanguage == "" {
		state.TargetLanguage = "en"
	}

	if state.TargetLanguage != "en" {
		state.Question = o.translator.ToEnglish(ctx, state.Question, state.TargetLanguage)
		o.logger.Printf("[WORKFLOW] input translated to English for session %s", state.SessionID)
	}

	state.Label = o.classifier.Classify(ctx, state.Question)

	switch state.Label {
	case classify.LabelDomain:
		o.runRetrievalBranch(ctx, state)
	default:
		state.Answer = o.simpleResponse(ctx, state)
	}

	if state.TargetLanguage != "en" {
		state.Answer = o.translator.ToTarget(ctx, state.Answer, state.TargetLanguage)
	}

	if state.AudioRequested && state.Answer != "" {
		audio, err := o.synthesizer.Synthesize(ctx, state.Answer, state.TargetLanguage)
		if err != nil {
			o.logger.Printf("[WORKFLOW] speech synthesis failed, returning text only: %v", err)
		} else {
			state.AudioData = audio
		}
	}

	return state
}

// runRetrievalBranch is the full pipeline: transform, then vector and graph
// retrieval concurrently, then fuse, assemble and generate. Both retrieval
// legs must finish before fusion starts.
func (o *Orchestrator) runRetrievalBranch(ctx context.Context, state *TurnState) {
	result := o.transformer.Transform(ctx, state.Question)
	state.FanOutQueries = result.FanOutQueries
	state.HypotheticalDoc = result.HypotheticalDoc

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		state.RawResults = o.retriever.RetrieveAll(gctx, state.FanOutQueries)
		return nil
	})
	g.Go(func() error {
		state.GraphSummary = o.graphRetriever.Retrieve(gctx, state.Question)
		return nil
	})
	// Both legs absorb their own failures; Wait is the join barrier.
	_ = g.Wait()

	state.FusedDocs = o.fuser.Fuse(state.RawResults)
	state.Context = o.assembler.Assemble(ctx, state.FusedDocs, state.GraphSummary)
	state.Answer = o.generator.Generate(ctx, state.Question, state.Context, state.ChatHistory, state.Image)
}

// simpleResponse answers greetings and out-of-scope questions with one model
// call and never touches retrieval.
func (o *Orchestrator) simpleResponse(ctx context.Context, state *TurnState) string {
	var prompt, fallback string
	if state.Label == classify.LabelGreeting {
		prompt = greetingPrompt + state.Question
		fallback = FallbackGreeting
	} else {
		prompt = redirectPrompt + state.Question
		fallback = FallbackRedirect
	}

	response, err := o.llmProvider.Generate(ctx, prompt)
	if err != nil {
		o.logger.Printf("[WORKFLOW] simple response generation failed, using fallback: %v", err)
		return fallback
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return fallback
	}
	return response
}
