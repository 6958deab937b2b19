package controller

import (
	"time"

	"line-work-assistant/internal/constant"
	"line-work-assistant/internal/dto"

	"github.com/gofiber/fiber/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Index(ctx *fiber.Ctx) error
	Test(ctx *fiber.Ctx) error
}

type healthController struct {
	now func() time.Time
}

func NewHealthController() IHealthController {
	return &healthController{now: time.Now}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/", c.Index)
	r.Get("/test", c.Test)
}

func (c *healthController) Index(ctx *fiber.Ctx) error {
	ctx.Type("html", "utf-8")
	return ctx.SendString(constant.HealthPageHTML)
}

func (c *healthController) Test(ctx *fiber.Ctx) error {
	return ctx.JSON(dto.HealthCheckResponse{
		Status:    "OK",
		Message:   constant.HealthTestMessage,
		Timestamp: c.now().Format(time.RFC3339),
	})
}
