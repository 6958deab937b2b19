package conversation

import (
	"context"
	"fmt"

	"line-work-assistant/internal/pkg/logger"
	"line-work-assistant/pkg/llm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Config struct {
	SystemPrompt  string
	ApologyFormat string
	HistoryTurns  int
	MaxTokens     int
	Temperature   float64
}

// Manager composes prompts from a bounded per-user history and never returns
// an error to the caller.
type Manager struct {
	cfg         Config
	store       HistoryStore
	llmProvider llm.LLMProvider
	quick       *QuickCommands
	logger      logger.ILogger
	tracer      trace.Tracer
}

func NewManager(
	cfg Config,
	store HistoryStore,
	llmProvider llm.LLMProvider,
	quick *QuickCommands,
	log logger.ILogger,
) *Manager {
	if cfg.ApologyFormat == "" {
		cfg.ApologyFormat = "抱歉，處理您的請求時發生錯誤。請稍後再試。\n錯誤詳情：%v"
	}
	return &Manager{
		cfg:         cfg,
		store:       store,
		llmProvider: llmProvider,
		quick:       quick,
		logger:      log,
		tracer:      otel.Tracer("line-work-assistant/conversation"),
	}
}

// Reply answers quick commands from their templates and everything else
// through Respond. Quick commands never touch history.
func (m *Manager) Reply(ctx context.Context, userID, text string) string {
	if reply, ok := m.quick.Match(text); ok {
		m.logger.Debug("CONVERSATION", "Quick command matched", map[string]interface{}{
			"user_id": userID,
			"command": text,
		})
		return reply
	}
	return m.Respond(ctx, userID, text)
}

func (m *Manager) Respond(ctx context.Context, userID, text string) string {
	ctx, span := m.tracer.Start(ctx, "conversation.Respond", trace.WithAttributes(
		attribute.String("user.id", userID),
	))
	defer span.End()

	messages := m.BuildPrompt(userID, text)

	m.logger.Debug("CONVERSATION", "Sending chat completion", map[string]interface{}{
		"user_id":  userID,
		"messages": len(messages),
		"input":    text,
	})

	reply, err := m.llmProvider.Chat(ctx, messages,
		llm.WithMaxTokens(m.cfg.MaxTokens),
		llm.WithTemperature(m.cfg.Temperature),
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		m.logger.Error("CONVERSATION", "Chat completion failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return fmt.Sprintf(m.cfg.ApologyFormat, err)
	}

	m.store.Append(userID, m.cfg.HistoryTurns, UserTurn(text), AssistantTurn(reply))

	m.logger.Debug("CONVERSATION", "Chat completion succeeded", map[string]interface{}{
		"user_id": userID,
		"output":  reply,
	})
	return reply
}

// BuildPrompt is system prompt, then retained history, then the new message.
func (m *Manager) BuildPrompt(userID, text string) []llm.Message {
	history := Recent(m.store.History(userID), m.cfg.HistoryTurns)

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: m.cfg.SystemPrompt})
	for _, turn := range history {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Text})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: text})
	return messages
}
