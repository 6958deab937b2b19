package delivery

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"line-work-assistant/internal/pkg/logger"
	"line-work-assistant/pkg/utils"
)

// Pusher sends one text message to a user outside the reply cycle.
type Pusher interface {
	PushText(ctx context.Context, userID, text string) error
}

// Deliverer sends the header, the transcript parts and the summary as separate
// pushes, in that order, pausing between sends. A failed send is logged and
// skipped.
type Deliverer struct {
	pusher     Pusher
	maxChars   int
	partBudget int
	delay      time.Duration
	logger     logger.ILogger
}

type Config struct {
	MaxChars   int
	PartBudget int
	Delay      time.Duration
}

// Report counts what happened in one Deliver call.
type Report struct {
	Attempted int
	Sent      int
	Failed    int
}

func NewDeliverer(pusher Pusher, cfg Config, log logger.ILogger) *Deliverer {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 5000
	}
	if cfg.PartBudget <= 0 || cfg.PartBudget > cfg.MaxChars {
		cfg.PartBudget = cfg.MaxChars
	}
	return &Deliverer{
		pusher:     pusher,
		maxChars:   cfg.MaxChars,
		partBudget: cfg.PartBudget,
		delay:      cfg.Delay,
		logger:     log,
	}
}

// Plan builds the ordered message list without sending anything.
func (d *Deliverer) Plan(header, transcript, summary string) []string {
	var messages []string
	if header != "" {
		messages = append(messages, utils.SplitText(header, d.maxChars, 0)...)
	}

	if transcript != "" {
		parts := d.TranscriptParts(transcript)
		for i, part := range parts {
			messages = append(messages, partLabel(i+1, len(parts))+part)
		}
	}

	if summary != "" {
		messages = append(messages, utils.SplitText(summary, d.maxChars, 0)...)
	}
	return messages
}

// TranscriptParts splits the transcript into ceil(len/PartBudget) parts. When
// PartBudget leaves no room for the "(i/n)" label under MaxChars, the budget
// shrinks until every labeled part fits.
func (d *Deliverer) TranscriptParts(transcript string) []string {
	budget := d.partBudget
	for {
		parts := utils.SplitText(transcript, budget, 0)
		room := d.maxChars - partLabelLength(len(parts))
		if budget <= room || room <= 0 {
			return parts
		}
		budget = room
	}
}

func partLabel(i, total int) string {
	return fmt.Sprintf("%s(%d/%d)\n", transcriptPartTitle, i, total)
}

func partLabelLength(total int) int {
	return utf8.RuneCountInString(partLabel(total, total))
}

func (d *Deliverer) Deliver(ctx context.Context, userID, header, transcript, summary string) Report {
	return d.Send(ctx, userID, d.Plan(header, transcript, summary))
}

// Send pushes messages in order. It stops early only when ctx is done.
func (d *Deliverer) Send(ctx context.Context, userID string, messages []string) Report {
	var report Report
	for i, msg := range messages {
		if i > 0 && d.delay > 0 {
			select {
			case <-ctx.Done():
				return report
			case <-time.After(d.delay):
			}
		}
		if ctx.Err() != nil {
			return report
		}

		report.Attempted++
		if err := d.pusher.PushText(ctx, userID, msg); err != nil {
			report.Failed++
			d.logger.Error("DELIVERY", "Push message failed", map[string]interface{}{
				"user_id": userID,
				"index":   i,
				"total":   len(messages),
				"error":   err.Error(),
			})
			continue
		}
		report.Sent++
	}

	d.logger.Info("DELIVERY", "Delivery finished", map[string]interface{}{
		"user_id": userID,
		"sent":    report.Sent,
		"failed":  report.Failed,
	})
	return report
}

const transcriptPartTitle = "📄 逐字稿 "
