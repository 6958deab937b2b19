package llm

import (
	"errors"
	"fmt"
	"strings"

	"line-work-assistant/pkg/utils"
)

const maxErrorBodyRunes = 400

var ErrEmptyResponse = errors.New("empty response from model")

// StatusError is a non-200 answer from a provider endpoint.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

// NewStatusError keeps at most maxErrorBodyRunes of the response body.
func NewStatusError(provider string, statusCode int, body []byte) *StatusError {
	text, cut := utils.TruncateRunes(strings.TrimSpace(string(body)), maxErrorBodyRunes)
	if cut {
		text += "..."
	}
	return &StatusError{Provider: provider, StatusCode: statusCode, Body: text}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s api error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}
