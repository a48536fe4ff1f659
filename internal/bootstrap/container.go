package bootstrap

import (
	"context"
	"fmt"
	"log"

	"ai-agent-be/internal/config"
	"ai-agent-be/internal/controller"
	"ai-agent-be/internal/pkg/logger"
	"ai-agent-be/internal/pkg/serverutils"
	"ai-agent-be/internal/repository/contract"
	"ai-agent-be/internal/repository/implementation"
	"ai-agent-be/internal/repository/memory"
	"ai-agent-be/internal/repository/unitofwork"
	"ai-agent-be/internal/service"
	"ai-agent-be/pkg/auth"
	"ai-agent-be/pkg/embedding"
	"ai-agent-be/pkg/events"
	"ai-agent-be/pkg/llm/factory"
	"ai-agent-be/pkg/llm/router"
	pktNats "ai-agent-be/pkg/nats"
	"ai-agent-be/pkg/rag/retriever"
	"ai-agent-be/pkg/rag/stream"
	"ai-agent-be/pkg/rag/vectorstore"
	"ai-agent-be/pkg/rule"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// UsageTopic carries ChatCompleted events inside the process.
const UsageTopic = "chat.usage"

type Container struct {
	// Controllers
	ChatController    controller.IChatController
	RagController     controller.IRagController
	AccountController controller.IAccountController

	// Background Services (Exposed for main.go to run)
	UsageConsumerService service.IUsageConsumerService

	Logger logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	usageLogger := logger.NewIsolatedLogger(cfg.App.UsageLogFilePath)
	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	publishers := events.MultiPublisher{events.NewWatermillPublisher(pubSub, UsageTopic)}
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			publishers = append(publishers, natsPub)
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	// 3. Shared state: Redis when configured, process memory otherwise
	var (
		tagIndex contract.TagIndex
		counter  rule.Counter
	)
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		c.closers = append(c.closers, func() { _ = rdb.Close() })
		tagIndex = implementation.NewRedisTagIndex(rdb)
		counter = implementation.NewRedisVisitCounter(rdb)
		log.Printf("[INFO] Using Redis for context tags and access counters")
	} else {
		tagIndex = memory.NewTagIndex()
		counter = memory.NewVisitCounter()
		log.Printf("[INFO] REDIS_URL not set, using in-memory context tags and access counters")
	}

	// 4. Model routing table
	modelRouter, err := buildRouter(cfg, sysLogger)
	if err != nil {
		return nil, err
	}

	// 5. Rule registry, validated against the configured chains
	accountRepo := uowFactory.NewUnitOfWork(context.Background()).AccountRepository()
	registry, err := rule.NewRegistry(
		rule.NullRule{},
		rule.NewAccessLimitRule(counter, cfg.Rules.AccessLimitCount, cfg.Rules.AccessLimitWindow, cfg.Rules.Whitelist),
		rule.NewSensitiveWordRule(cfg.Rules.SensitiveWords),
		rule.AccountStatusRule{},
		rule.NewModelTypeRule(modelRouter.DefaultName()),
		rule.NewUserQuotaRule(accountRepo),
	)
	if err != nil {
		return nil, err
	}
	if err := registry.Validate(cfg.Rules.AnswerRules...); err != nil {
		return nil, fmt.Errorf("answer rules: %w", err)
	}
	if err := registry.Validate(cfg.Rules.TitleRules...); err != nil {
		return nil, fmt.Errorf("title rules: %w", err)
	}

	// 6. Retrieval
	embedder := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel, cfg.Ai.EmbeddingDims)
	log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)
	store := vectorstore.NewPgVectorStore(uowFactory, embedder)

	// 7. Services
	chatService := service.NewChatService(
		uowFactory,
		registry,
		modelRouter,
		retriever.New(store),
		stream.NewResponder(sysLogger),
		publishers,
		sysLogger,
		service.ChatOptions{
			AnswerRules:   cfg.Rules.AnswerRules,
			TitleRules:    cfg.Rules.TitleRules,
			TitleModel:    cfg.Ai.TitleModel,
			InitialQuota:  cfg.Rules.InitialQuota,
			AllowedModels: cfg.Rules.DefaultModels,
		},
	)
	ragService := service.NewRagService(tagIndex, store, sysLogger, service.RagOptions{
		TagLimit:       cfg.Rag.TagLimit,
		MaxUploadBytes: int64(cfg.Rag.MaxUploadBytes),
		MaxUploadFiles: cfg.Rag.MaxUploadFiles,
		ChunkSize:      cfg.Rag.ChunkSize,
		ChunkOverlap:   cfg.Rag.ChunkOverlap,
	})
	accountService := service.NewAccountService(uowFactory, cfg.Rules.InitialQuota, cfg.Rules.DefaultModels)
	c.UsageConsumerService = service.NewUsageConsumerService(pubSub, UsageTopic, usageLogger, sysLogger)

	// 8. Controllers
	verifier := auth.NewJWTVerifier(cfg.Auth.JWTSecret)
	jwtMiddleware := serverutils.JwtMiddleware(verifier)
	c.ChatController = controller.NewChatController(chatService, verifier, sysLogger)
	c.RagController = controller.NewRagController(ragService, jwtMiddleware, int64(cfg.Rag.MaxUploadBytes))
	c.AccountController = controller.NewAccountController(accountService, jwtMiddleware, serverutils.AdminMiddleware(verifier))

	c.closers = append(c.closers, func() {
		_ = usageLogger.Sync()
		_ = sysLogger.Sync()
	})
	return c, nil
}

// buildRouter creates a provider per model table entry. Entries that cannot be
// built are skipped with a warning; the router itself fails when the default
// is among them.
func buildRouter(cfg *config.Config, log logger.ILogger) (*router.Router, error) {
	table, err := config.LoadModelTable(cfg.Ai.ModelsConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load model table: %w", err)
	}

	bindings := make([]router.Binding, 0, len(table.Models))
	for _, entry := range table.Models {
		provider, err := factory.NewProvider(entry)
		if err != nil {
			log.Warn("ROUTER", "Skipping model binding", map[string]interface{}{
				"model": entry.Name,
				"error": err.Error(),
			})
			continue
		}
		bindings = append(bindings, router.Binding{Name: entry.Name, Provider: provider})
	}

	r, err := router.New(table.Default, log, bindings...)
	if err != nil {
		return nil, fmt.Errorf("build model router: %w", err)
	}
	log.Info("ROUTER", "Model routing table ready", map[string]interface{}{
		"default": r.DefaultName(),
		"models":  r.Names(),
	})
	return r, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
