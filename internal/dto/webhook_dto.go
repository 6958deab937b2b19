package dto

const (
	LineEventMessage  = "message"
	LineEventPostback = "postback"

	LineMessageText  = "text"
	LineMessageAudio = "audio"
	LineMessageFile  = "file"
	LineMessageImage = "image"
)

// LineWebhookRequest is the body LINE posts to the callback URL.
type LineWebhookRequest struct {
	Destination string      `json:"destination"`
	Events      []LineEvent `json:"events" validate:"dive"`
}

type LineEvent struct {
	Type       string          `json:"type" validate:"required"`
	ReplyToken string          `json:"replyToken"`
	Timestamp  int64           `json:"timestamp"`
	Source     LineEventSource `json:"source"`
	Message    *LineMessage    `json:"message,omitempty"`
	Postback   *LinePostback   `json:"postback,omitempty"`
}

type LineEventSource struct {
	Type    string `json:"type"`
	UserID  string `json:"userId"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

type LineMessage struct {
	ID       string `json:"id" validate:"required"`
	Type     string `json:"type" validate:"required"`
	Text     string `json:"text,omitempty"`
	FileName string `json:"fileName,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
	Duration int64  `json:"duration,omitempty"`
}

type LinePostback struct {
	Data string `json:"data"`
}

type HealthCheckResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}
