package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrContentTooLarge = errors.New("message content exceeds download limit")

// Client is a thin LINE Messaging API client covering reply, push and
// content download.
type Client struct {
	accessToken string
	apiBaseURL  string
	dataBaseURL string
	api         *http.Client
	data        *http.Client
}

type PostbackAction struct {
	Label string
	Data  string
}

type textMessage struct {
	Type       string      `json:"type"`
	Text       string      `json:"text"`
	QuickReply *quickReply `json:"quickReply,omitempty"`
}

type quickReply struct {
	Items []quickReplyItem `json:"items"`
}

type quickReplyItem struct {
	Type   string         `json:"type"`
	Action postbackAction `json:"action"`
}

type postbackAction struct {
	Type        string `json:"type"`
	Label       string `json:"label"`
	Data        string `json:"data"`
	DisplayText string `json:"displayText,omitempty"`
}

type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []textMessage `json:"messages"`
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

func NewClient(accessToken, apiBaseURL, dataBaseURL string, apiTimeout, downloadTimeout time.Duration) *Client {
	if apiBaseURL == "" {
		apiBaseURL = "https://api.line.me"
	}
	if dataBaseURL == "" {
		dataBaseURL = "https://api-data.line.me"
	}
	if apiTimeout <= 0 {
		apiTimeout = 15 * time.Second
	}
	if downloadTimeout <= 0 {
		downloadTimeout = 5 * time.Minute
	}
	return &Client{
		accessToken: accessToken,
		apiBaseURL:  strings.TrimRight(apiBaseURL, "/"),
		dataBaseURL: strings.TrimRight(dataBaseURL, "/"),
		api:         &http.Client{Timeout: apiTimeout},
		data:        &http.Client{Timeout: downloadTimeout},
	}
}

// ReplyText answers with a single-use reply token. Actions become quick reply
// postback buttons under the message.
func (c *Client) ReplyText(ctx context.Context, replyToken, text string, actions ...PostbackAction) error {
	body := replyRequest{
		ReplyToken: replyToken,
		Messages:   []textMessage{newTextMessage(text, actions)},
	}
	return c.post(ctx, "/v2/bot/message/reply", body)
}

func (c *Client) PushText(ctx context.Context, userID, text string) error {
	body := pushRequest{
		To:       userID,
		Messages: []textMessage{newTextMessage(text, nil)},
	}
	return c.post(ctx, "/v2/bot/message/push", body)
}

// Probe opens a message's content once. When the announced size is above
// keepUpTo only the size is returned and the body is dropped; otherwise the
// content is read, failing with ErrContentTooLarge past limit bytes.
func (c *Client) Probe(ctx context.Context, messageID string, keepUpTo, limit int64) (int64, []byte, error) {
	resp, err := c.getContent(ctx, messageID)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	if resp.ContentLength > keepUpTo {
		return resp.ContentLength, nil, nil
	}
	data, err := readContent(resp, messageID, limit)
	if err != nil {
		return 0, nil, err
	}
	return int64(len(data)), data, nil
}

// Download reads a message's content, failing with ErrContentTooLarge once
// more than limit bytes arrive. limit <= 0 means no limit.
func (c *Client) Download(ctx context.Context, messageID string, limit int64) ([]byte, error) {
	resp, err := c.getContent(ctx, messageID)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return readContent(resp, messageID, limit)
}

func readContent(resp *http.Response, messageID string, limit int64) ([]byte, error) {
	if limit > 0 && resp.ContentLength > limit {
		return nil, ErrContentTooLarge
	}

	var reader io.Reader = resp.Body
	if limit > 0 {
		reader = io.LimitReader(resp.Body, limit+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read content %s: %w", messageID, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, ErrContentTooLarge
	}
	return data, nil
}

func (c *Client) getContent(ctx context.Context, messageID string) (*http.Response, error) {
	url := fmt.Sprintf("%s/v2/bot/message/%s/content", c.dataBaseURL, messageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.data.Do(req)
	if err != nil {
		return nil, fmt.Errorf("content request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("line content api error (status %d): %s", resp.StatusCode, string(body))
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBaseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.api.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("line api error %s (status %d): %s", path, resp.StatusCode, string(body))
	}
	return nil
}

func newTextMessage(text string, actions []PostbackAction) textMessage {
	msg := textMessage{Type: "text", Text: text}
	if len(actions) == 0 {
		return msg
	}
	items := make([]quickReplyItem, 0, len(actions))
	for _, a := range actions {
		items = append(items, quickReplyItem{
			Type: "action",
			Action: postbackAction{
				Type:        "postback",
				Label:       a.Label,
				Data:        a.Data,
				DisplayText: a.Label,
			},
		})
	}
	msg.QuickReply = &quickReply{Items: items}
	return msg
}
