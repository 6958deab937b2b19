package service

import (
	"context"
	"time"

	"line-work-assistant/internal/dto"
	"line-work-assistant/internal/pkg/logger"
	"line-work-assistant/pkg/audio"
	pkgEvents "line-work-assistant/pkg/events"
	pktNats "line-work-assistant/pkg/nats"
)

// IJobEventPublisher reports audio job lifecycle changes. Publishing is best
// effort; failures are logged and never reach the caller.
type IJobEventPublisher interface {
	PublishQueued(ctx context.Context, job dto.AudioJobMessage)
	PublishCompleted(ctx context.Context, jobID, userID string, result *audio.Result)
	PublishFailed(ctx context.Context, jobID, userID string, status audio.Status, reason string)
	PublishRejected(ctx context.Context, userID, filename string, sizeBytes int64, reason string)
}

type eventSink interface {
	Publish(ctx context.Context, event pkgEvents.Event) error
}

// NatsJobEventPublisher is a no-op when built without a NATS publisher.
type NatsJobEventPublisher struct {
	publisher eventSink
	logger    logger.ILogger
}

func NewNatsJobEventPublisher(publisher *pktNats.Publisher, logger logger.ILogger) *NatsJobEventPublisher {
	p := &NatsJobEventPublisher{logger: logger}
	if publisher != nil {
		p.publisher = publisher
	}
	return p
}

func (p *NatsJobEventPublisher) PublishQueued(ctx context.Context, job dto.AudioJobMessage) {
	p.publish(ctx, pkgEvents.AudioJobQueued, map[string]interface{}{
		"job_id":     job.JobID,
		"user_id":    job.UserID,
		"filename":   job.Filename,
		"size_bytes": job.SizeBytes,
	})
}

func (p *NatsJobEventPublisher) PublishCompleted(ctx context.Context, jobID, userID string, result *audio.Result) {
	p.publish(ctx, pkgEvents.AudioJobCompleted, map[string]interface{}{
		"job_id":        jobID,
		"user_id":       userID,
		"filename":      result.Filename,
		"size_bytes":    result.SizeBytes,
		"method":        result.Method,
		"chunks":        len(result.Segments),
		"failed_chunks": result.FailedChunks(),
		"summarized":    result.SummaryErr == nil,
		"duration_ms":   result.Duration.Milliseconds(),
	})
}

func (p *NatsJobEventPublisher) PublishFailed(ctx context.Context, jobID, userID string, status audio.Status, reason string) {
	p.publish(ctx, pkgEvents.AudioJobFailed, map[string]interface{}{
		"job_id":  jobID,
		"user_id": userID,
		"status":  string(status),
		"reason":  reason,
	})
}

func (p *NatsJobEventPublisher) PublishRejected(ctx context.Context, userID, filename string, sizeBytes int64, reason string) {
	p.publish(ctx, pkgEvents.AudioJobRejected, map[string]interface{}{
		"user_id":    userID,
		"filename":   filename,
		"size_bytes": sizeBytes,
		"reason":     reason,
	})
}

func (p *NatsJobEventPublisher) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if p.publisher == nil {
		return
	}

	evt := pkgEvents.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}

	// a cancelled job context must not stop the lifecycle event
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := p.publisher.Publish(ctx, evt); err != nil {
		p.logger.Error("AUDIO_JOB", "Failed to publish "+eventType+" event", map[string]interface{}{"error": err.Error()})
	}
}
