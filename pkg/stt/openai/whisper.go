package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"line-work-assistant/pkg/stt"
	"line-work-assistant/pkg/utils"

	goopenai "github.com/sashabaranov/go-openai"
)

const maxErrorRunes = 400

type WhisperClient struct {
	client *goopenai.Client
	model  string
}

var _ stt.Transcriber = &WhisperClient{}

func NewWhisperClient(apiKey, baseURL, model string, timeout time.Duration) *WhisperClient {
	if model == "" {
		model = goopenai.Whisper1
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	config := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimRight(baseURL, "/")
	}
	config.HTTPClient = &http.Client{Timeout: timeout}

	return &WhisperClient{
		client: goopenai.NewClientWithConfig(config),
		model:  model,
	}
}

// TranscribeFile uploads one chunk file; the SDK streams it from disk.
func (c *WhisperClient) TranscribeFile(ctx context.Context, path string, language string) (string, error) {
	resp, err := c.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    c.model,
		FilePath: path,
		Language: language,
		Format:   goopenai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", describeError(err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func describeError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		msg, _ := utils.TruncateRunes(apiErr.Message, maxErrorRunes)
		return fmt.Errorf("transcription api error (status %d): %s", apiErr.HTTPStatusCode, msg)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		msg, _ := utils.TruncateRunes(reqErr.Error(), maxErrorRunes)
		return fmt.Errorf("transcription api error (status %d): %s", reqErr.HTTPStatusCode, msg)
	}
	return fmt.Errorf("transcription request failed: %w", err)
}
