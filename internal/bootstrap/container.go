package bootstrap

import (
	"context"
	"log"
	"os"

	"astrolynx-be/internal/config"
	"astrolynx-be/internal/controller"
	"astrolynx-be/internal/pkg/logger"
	"astrolynx-be/internal/repository/unitofwork"
	"astrolynx-be/internal/service"
	"astrolynx-be/pkg/checkpoint"
	"astrolynx-be/pkg/embedding"
	"astrolynx-be/pkg/graph"
	"astrolynx-be/pkg/llm/factory"
	"astrolynx-be/pkg/rag/classify"
	"astrolynx-be/pkg/rag/contextbuilder"
	"astrolynx-be/pkg/rag/fusion"
	"astrolynx-be/pkg/rag/generate"
	"astrolynx-be/pkg/rag/retrieval"
	"astrolynx-be/pkg/rag/transform"
	"astrolynx-be/pkg/rag/workflow"
	"astrolynx-be/pkg/speech"
	"astrolynx-be/pkg/translate"
	"astrolynx-be/pkg/vectorstore"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController    controller.IChatController
	SessionController controller.ISessionController
	SpeechController  controller.ISpeechController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	ragLogger := log.New(os.Stdout, "", log.LstdFlags)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.GoogleGemini,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure
	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// Neo4j. A missing graph degrades retrieval instead of blocking startup.
	var graphDriver neo4j.DriverWithContext
	driver, err := neo4j.NewDriverWithContext(
		cfg.Graph.URI,
		neo4j.BasicAuth(cfg.Graph.User, cfg.Graph.Password, ""),
	)
	if err != nil {
		log.Printf("[WARN] Failed to initialize Neo4j driver: %v", err)
	} else {
		graphDriver = driver
	}

	// 5. Retrieval Pipeline
	searcher := vectorstore.NewPgVectorSearcher(db, embeddingProvider, ragLogger)
	graphRetriever := graph.NewNeo4jRetriever(graphDriver, embeddingProvider, ragLogger)
	coordinator := retrieval.NewCoordinator(searcher, ragLogger)
	fusionEngine := fusion.NewEngine(ragLogger)
	transformer := transform.NewTransformer(llmProvider, ragLogger)
	classifier := classify.NewClassifier(llmProvider, ragLogger)
	assembler := contextbuilder.NewAssembler(llmProvider, ragLogger)
	invoker := generate.NewInvoker(llmProvider, ragLogger)
	translator := translate.NewTranslator(llmProvider, ragLogger)
	synthesizer := speech.NewSarvamClient(cfg.Keys.SarvamAi, ragLogger)
	checkpointStore := checkpoint.NewRedisStore(rdb, ragLogger)

	orchestrator := workflow.NewOrchestrator(
		classifier,
		transformer,
		coordinator,
		graphRetriever,
		fusionEngine,
		assembler,
		invoker,
		translator,
		synthesizer,
		llmProvider,
		ragLogger,
	)

	// 6. Services
	publisherService := service.NewPublisherService(pubSub, cfg.App.TurnEventTopic)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.App.TurnEventTopic,
		uowFactory,
	)

	sessionStore := service.NewSessionStore(uowFactory)
	chatService := service.NewChatService(
		uowFactory,
		orchestrator,
		sessionStore,
		checkpointStore,
		publisherService,
		sysLogger,
	)
	sessionService := service.NewSessionService(uowFactory, publisherService, sysLogger)
	speechService := service.NewSpeechService(synthesizer, sysLogger)

	// 7. Controllers
	return &Container{
		ChatController:    controller.NewChatController(chatService),
		SessionController: controller.NewSessionController(sessionService),
		SpeechController:  controller.NewSpeechController(speechService),

		ConsumerService: consumerService,
	}
}
