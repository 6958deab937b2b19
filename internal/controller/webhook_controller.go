package controller

import (
	"encoding/json"
	"fmt"

	"line-work-assistant/internal/dto"
	"line-work-assistant/internal/pkg/logger"
	"line-work-assistant/internal/pkg/serverutils"
	"line-work-assistant/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IWebhookController interface {
	RegisterRoutes(r fiber.Router)
	Callback(ctx *fiber.Ctx) error
}

type webhookController struct {
	channelSecret    string
	assistantService service.IAssistantService
	logger           logger.ILogger
}

func NewWebhookController(channelSecret string, assistantService service.IAssistantService, logger logger.ILogger) IWebhookController {
	return &webhookController{
		channelSecret:    channelSecret,
		assistantService: assistantService,
		logger:           logger,
	}
}

func (c *webhookController) RegisterRoutes(r fiber.Router) {
	r.Post("/callback", serverutils.LineSignatureMiddleware(c.channelSecret), c.Callback)
}

func (c *webhookController) Callback(ctx *fiber.Ctx) error {
	var req dto.LineWebhookRequest
	if err := json.Unmarshal(ctx.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid webhook body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	for _, event := range req.Events {
		c.dispatch(ctx, event)
	}
	return ctx.SendString("OK")
}

// dispatch handles one event; a panic is logged and does not affect the
// remaining events in the batch.
func (c *webhookController) dispatch(ctx *fiber.Ctx, event dto.LineEvent) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("WEBHOOK", "Event handler panicked", map[string]interface{}{
				"event_type": event.Type,
				"user_id":    event.Source.UserID,
				"panic":      fmt.Sprint(r),
			})
		}
	}()

	userCtx := ctx.UserContext()
	userID := event.Source.UserID

	switch event.Type {
	case dto.LineEventMessage:
		if event.Message == nil {
			return
		}
		msg := event.Message
		switch msg.Type {
		case dto.LineMessageText:
			c.assistantService.OnTextEvent(userCtx, event.ReplyToken, userID, msg.Text)
		case dto.LineMessageAudio:
			// audio events carry no size, the service probes it
			c.assistantService.OnAudioEvent(userCtx, event.ReplyToken, userID, msg.ID, 0)
		case dto.LineMessageFile:
			c.assistantService.OnFileEvent(userCtx, event.ReplyToken, userID, msg.ID, msg.FileName, msg.FileSize)
		case dto.LineMessageImage:
			c.assistantService.OnImageEvent(userCtx, event.ReplyToken, userID)
		default:
			c.logger.Debug("WEBHOOK", "Ignoring message type", map[string]interface{}{"type": msg.Type})
		}
	case dto.LineEventPostback:
		if event.Postback == nil {
			return
		}
		c.assistantService.OnPostbackEvent(userCtx, event.ReplyToken, userID, event.Postback.Data)
	default:
		c.logger.Debug("WEBHOOK", "Ignoring event type", map[string]interface{}{"type": event.Type})
	}
}
