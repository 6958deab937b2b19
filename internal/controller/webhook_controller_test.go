package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"line-work-assistant/internal/dto"
	"line-work-assistant/internal/pkg/logger"
	"line-work-assistant/internal/pkg/serverutils"
	"line-work-assistant/pkg/line"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	kind   string
	userID string
	arg    string
	size   int64
}

type fakeAssistant struct {
	calls     []call
	panicText bool
}

func (f *fakeAssistant) OnTextEvent(ctx context.Context, replyToken, userID, text string) {
	if f.panicText {
		panic("boom")
	}
	f.calls = append(f.calls, call{kind: "text", userID: userID, arg: text})
}

func (f *fakeAssistant) OnAudioEvent(ctx context.Context, replyToken, userID, messageID string, sizeBytes int64) {
	f.calls = append(f.calls, call{kind: "audio", userID: userID, arg: messageID, size: sizeBytes})
}

func (f *fakeAssistant) OnFileEvent(ctx context.Context, replyToken, userID, messageID, filename string, sizeBytes int64) {
	f.calls = append(f.calls, call{kind: "file", userID: userID, arg: filename, size: sizeBytes})
}

func (f *fakeAssistant) OnImageEvent(ctx context.Context, replyToken, userID string) {
	f.calls = append(f.calls, call{kind: "image", userID: userID})
}

func (f *fakeAssistant) OnPostbackEvent(ctx context.Context, replyToken, userID, data string) {
	f.calls = append(f.calls, call{kind: "postback", userID: userID, arg: data})
}

func (f *fakeAssistant) RunAudioJob(ctx context.Context, job dto.AudioJobMessage) {}

func newTestApp(assistant *fakeAssistant) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewWebhookController("secret", assistant, logger.NewNopLogger()).RegisterRoutes(app)
	NewHealthController().RegisterRoutes(app)
	return app
}

func postCallback(t *testing.T, app *fiber.App, body, signature string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("POST", "/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(serverutils.LineSignatureHeader, signature)
	resp, err := app.Test(req)
	require.NoError(t, err)
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(out)
}

const webhookBody = `{
  "destination": "Ubot",
  "events": [
    {"type":"message","replyToken":"r1","source":{"type":"user","userId":"U1"},"message":{"id":"1","type":"text","text":"幫助"}},
    {"type":"message","replyToken":"r2","source":{"type":"user","userId":"U1"},"message":{"id":"2","type":"audio","duration":60000}},
    {"type":"message","replyToken":"r3","source":{"type":"user","userId":"U1"},"message":{"id":"3","type":"file","fileName":"a.m4a","fileSize":1024}},
    {"type":"message","replyToken":"r4","source":{"type":"user","userId":"U1"},"message":{"id":"4","type":"image"}},
    {"type":"postback","replyToken":"r5","source":{"type":"user","userId":"U1"},"postback":{"data":"cancel_job=j1"}},
    {"type":"follow","replyToken":"r6","source":{"type":"user","userId":"U1"}}
  ]
}`

func TestCallbackDispatchesEvents(t *testing.T) {
	assistant := &fakeAssistant{}
	app := newTestApp(assistant)

	code, body := postCallback(t, app, webhookBody, line.Sign("secret", []byte(webhookBody)))

	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "OK", body)
	assert.Equal(t, []call{
		{kind: "text", userID: "U1", arg: "幫助"},
		{kind: "audio", userID: "U1", arg: "2", size: 0},
		{kind: "file", userID: "U1", arg: "a.m4a", size: 1024},
		{kind: "image", userID: "U1"},
		{kind: "postback", userID: "U1", arg: "cancel_job=j1"},
	}, assistant.calls)
}

func TestCallbackRejectsBadSignature(t *testing.T) {
	assistant := &fakeAssistant{}
	app := newTestApp(assistant)

	code, _ := postCallback(t, app, webhookBody, line.Sign("other", []byte(webhookBody)))

	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Empty(t, assistant.calls)
}

func TestCallbackRejectsInvalidBody(t *testing.T) {
	app := newTestApp(&fakeAssistant{})

	body := `{"events":[{"type":"message","source":{"userId":"U1"},"message":{"type":"text","text":"hi"}}]}`
	code, _ := postCallback(t, app, body, line.Sign("secret", []byte(body)))
	assert.Equal(t, fiber.StatusBadRequest, code, "message id is required")

	code, _ = postCallback(t, app, "{", line.Sign("secret", []byte("{")))
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestCallbackSurvivesPanickingHandler(t *testing.T) {
	assistant := &fakeAssistant{panicText: true}
	app := newTestApp(assistant)

	code, _ := postCallback(t, app, webhookBody, line.Sign("secret", []byte(webhookBody)))

	assert.Equal(t, fiber.StatusOK, code)
	assert.Len(t, assistant.calls, 4)
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(&fakeAssistant{})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp, err = app.Test(httptest.NewRequest("GET", "/test", nil))
	require.NoError(t, err)
	var health dto.HealthCheckResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "OK", health.Status)
	assert.NotEmpty(t, health.Timestamp)
}
