package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"line-work-assistant/internal/config"
	"line-work-assistant/internal/constant"
	"line-work-assistant/internal/controller"
	"line-work-assistant/internal/pkg/logger"
	"line-work-assistant/internal/repository/memory"
	"line-work-assistant/internal/repository/redisstore"
	"line-work-assistant/internal/service"
	"line-work-assistant/pkg/audio"
	"line-work-assistant/pkg/conversation"
	"line-work-assistant/pkg/delivery"
	"line-work-assistant/pkg/line"

	pktNats "line-work-assistant/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

const audioJobTopic = "audio_jobs"

type Container struct {
	// Controllers
	WebhookController controller.IWebhookController
	HealthController  controller.IHealthController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger *logger.ZapLogger

	closers []func()
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	llmLogger := logger.NewIsolatedLogger(cfg.App.LLMLogFilePath)
	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Providers
	llmProvider, err := NewLLMProvider(cfg)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	lineClient := line.NewClient(
		cfg.Line.ChannelAccessToken,
		cfg.Line.APIBaseURL,
		cfg.Line.DataAPIBaseURL,
		cfg.Timeouts.Line,
		cfg.Timeouts.Download,
	)

	// 4. Conversation
	historyRepo := memory.NewConversationRepository(cfg.Session.TTL, cfg.Session.MaxUsers)
	quickCommands := conversation.NewQuickCommands(time.Now,
		conversation.QuickCommand{
			Name:    "help",
			Aliases: constant.HelpCommands,
			Render:  conversation.StaticReply(constant.HelpReply),
		},
		conversation.QuickCommand{
			Name:    "today_plan",
			Aliases: constant.TodayPlanCommands,
			Render: func(now time.Time) string {
				return fmt.Sprintf(constant.TodayPlanReplyFormat, now.Format(constant.TodayPlanDateLayout))
			},
		},
		conversation.QuickCommand{
			Name:    "efficiency_tips",
			Aliases: constant.EfficiencyTipsCommands,
			Render:  conversation.StaticReply(constant.EfficiencyTipsReply),
		},
		conversation.QuickCommand{
			Name:    "time_management",
			Aliases: constant.TimeManagementCommands,
			Render:  conversation.StaticReply(constant.TimeManagementReply),
		},
	)
	conversationManager := conversation.NewManager(
		conversation.Config{
			SystemPrompt:  constant.AssistantSystemPrompt,
			ApologyFormat: constant.ChatApologyFormat,
			HistoryTurns:  cfg.Session.HistoryTurns,
			MaxTokens:     cfg.Ai.ChatMaxTokens,
			Temperature:   cfg.Ai.ChatTemperature,
		},
		historyRepo,
		llmProvider,
		quickCommands,
		llmLogger,
	)

	// 5. Audio
	pipeline := NewAudioPipeline(cfg, llmProvider, sysLogger)
	deliverer := delivery.NewDeliverer(lineClient, delivery.Config{
		MaxChars:   cfg.Delivery.MaxMessageChars,
		PartBudget: cfg.Delivery.TranscriptPartChars,
		Delay:      cfg.Delivery.SendDelay,
	}, sysLogger)
	statusStore := c.newStatusStore(cfg)

	// 6. Infrastructure
	// NATS
	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
			natsPub = nil
		} else {
			c.closers = append(c.closers, natsPub.Close)
		}
	}
	jobEvents := service.NewNatsJobEventPublisher(natsPub, sysLogger)

	// 7. Services
	registry := service.NewJobRegistry(cfg.Workers.Workers + cfg.Workers.QueueDepth)
	publisherService := service.NewPublisherService(pubSub, audioJobTopic)

	assistantService := service.NewAssistantService(
		service.AssistantConfig{
			SyncJobTimeout: cfg.Timeouts.Job,
			JobTimeout:     cfg.Timeouts.Job,
		},
		lineClient,
		conversationManager,
		pipeline,
		deliverer,
		statusStore,
		registry,
		publisherService,
		jobEvents,
		sysLogger,
	)

	c.ConsumerService = service.NewConsumerService(
		pubSub,
		audioJobTopic,
		cfg.Workers.Workers,
		registry,
		assistantService,
		sysLogger,
	)

	// 8. Controllers
	c.WebhookController = controller.NewWebhookController(cfg.Line.ChannelSecret, assistantService, sysLogger)
	c.HealthController = controller.NewHealthController()

	return c
}

// newStatusStore keeps status in process memory unless STATUS_STORE=redis and
// Redis answers a ping.
func (c *Container) newStatusStore(cfg *config.Config) audio.StatusStore {
	if cfg.App.StatusStore != "redis" {
		return memory.NewStatusRepository(cfg.Session.TTL)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Using in-memory status store", err)
		_ = rdb.Close()
		return memory.NewStatusRepository(cfg.Session.TTL)
	}

	c.closers = append(c.closers, func() { _ = rdb.Close() })
	log.Printf("[INFO] Using status store: REDIS")
	return redisstore.NewStatusRepository(rdb, cfg.Session.TTL)
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
