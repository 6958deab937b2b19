package serverutils

import (
	"line-work-assistant/pkg/line"

	"github.com/gofiber/fiber/v2"
)

const LineSignatureHeader = "X-Line-Signature"

// LineSignatureMiddleware rejects requests whose body does not match the
// X-Line-Signature header with 400.
func LineSignatureMiddleware(channelSecret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if !line.ValidateSignature(channelSecret, ctx.Body(), ctx.Get(LineSignatureHeader)) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid signature")
		}
		return ctx.Next()
	}
}
