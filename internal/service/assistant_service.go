package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"line-work-assistant/internal/constant"
	"line-work-assistant/internal/dto"
	"line-work-assistant/internal/pkg/logger"
	"line-work-assistant/pkg/audio"
	"line-work-assistant/pkg/conversation"
	"line-work-assistant/pkg/delivery"
	"line-work-assistant/pkg/line"

	"github.com/google/uuid"
)

// Messenger is the outbound LINE surface the assistant needs.
type Messenger interface {
	ReplyText(ctx context.Context, replyToken, text string, actions ...line.PostbackAction) error
	PushText(ctx context.Context, userID, text string) error
	Probe(ctx context.Context, messageID string, keepUpTo, limit int64) (int64, []byte, error)
	Download(ctx context.Context, messageID string, limit int64) ([]byte, error)
}

// IAssistantService dispatches inbound LINE events. None of the methods return
// errors: every failure ends as a message to the user and a log entry.
type IAssistantService interface {
	OnTextEvent(ctx context.Context, replyToken, userID, text string)
	OnAudioEvent(ctx context.Context, replyToken, userID, messageID string, sizeBytes int64)
	OnFileEvent(ctx context.Context, replyToken, userID, messageID, filename string, sizeBytes int64)
	OnImageEvent(ctx context.Context, replyToken, userID string)
	OnPostbackEvent(ctx context.Context, replyToken, userID, data string)
	RunAudioJob(ctx context.Context, job dto.AudioJobMessage)
}

type AssistantConfig struct {
	SyncJobTimeout time.Duration
	JobTimeout     time.Duration
}

type assistantService struct {
	cfg          AssistantConfig
	messenger    Messenger
	conversation *conversation.Manager
	pipeline     *audio.Pipeline
	deliverer    *delivery.Deliverer
	statusStore  audio.StatusStore
	registry     *JobRegistry
	publisher    IPublisherService
	jobEvents    IJobEventPublisher
	logger       logger.ILogger
	now          func() time.Time
}

func NewAssistantService(
	cfg AssistantConfig,
	messenger Messenger,
	conversationManager *conversation.Manager,
	pipeline *audio.Pipeline,
	deliverer *delivery.Deliverer,
	statusStore audio.StatusStore,
	registry *JobRegistry,
	publisher IPublisherService,
	jobEvents IJobEventPublisher,
	logger logger.ILogger,
) IAssistantService {
	return &assistantService{
		cfg:          cfg,
		messenger:    messenger,
		conversation: conversationManager,
		pipeline:     pipeline,
		deliverer:    deliverer,
		statusStore:  statusStore,
		registry:     registry,
		publisher:    publisher,
		jobEvents:    jobEvents,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *assistantService) OnTextEvent(ctx context.Context, replyToken, userID, text string) {
	s.logger.Info("ASSISTANT", "Text message received", map[string]interface{}{
		"user_id": userID,
		"length":  len([]rune(text)),
	})

	var reply string
	if conversation.Is(text, constant.StatusCommands) {
		reply = s.statusReply(ctx, userID)
	} else {
		reply = s.conversation.Reply(ctx, userID, text)
	}
	s.reply(ctx, replyToken, userID, reply)
}

func (s *assistantService) OnAudioEvent(ctx context.Context, replyToken, userID, messageID string, sizeBytes int64) {
	s.handleAudio(ctx, replyToken, userID, messageID, constant.DefaultAudioFilename, sizeBytes)
}

func (s *assistantService) OnFileEvent(ctx context.Context, replyToken, userID, messageID, filename string, sizeBytes int64) {
	if !audio.IsAudioFilename(filename) {
		s.reply(ctx, replyToken, userID, constant.FileUnsupportedReply)
		return
	}
	s.handleAudio(ctx, replyToken, userID, messageID, filename, sizeBytes)
}

func (s *assistantService) OnImageEvent(ctx context.Context, replyToken, userID string) {
	s.reply(ctx, replyToken, userID, constant.ImageReply)
}

func (s *assistantService) OnPostbackEvent(ctx context.Context, replyToken, userID, data string) {
	jobID, isCancel := strings.CutPrefix(data, constant.AudioCancelPostbackPrefix)
	if !isCancel {
		s.reply(ctx, replyToken, userID, fmt.Sprintf(constant.PostbackEchoReply, data))
		return
	}

	if !s.registry.Cancel(userID, jobID) {
		s.reply(ctx, replyToken, userID, constant.AudioCancelNotFoundReply)
		return
	}

	s.logger.Info("ASSISTANT", "Audio job cancelled by user", map[string]interface{}{
		"user_id": userID,
		"job_id":  jobID,
	})
	s.finishStatus(ctx, userID, jobID, audio.StatusFailed)
	s.jobEvents.PublishFailed(ctx, jobID, userID, audio.StatusFailed, "cancelled")
	s.reply(ctx, replyToken, userID, constant.AudioCancelledReply)
}

// handleAudio decides reject, synchronous or background before any transcription
// starts. When LINE does not tell the size up front the content is opened once:
// anything small enough for the synchronous path is kept, larger content is
// left for the worker to download.
func (s *assistantService) handleAudio(ctx context.Context, replyToken, userID, messageID, filename string, sizeBytes int64) {
	policy := s.pipeline.Policy()

	var data []byte
	if sizeBytes <= 0 {
		size, probed, err := s.messenger.Probe(ctx, messageID, policy.SyncMaxBytes, policy.HardCapBytes-1)
		if errors.Is(err, line.ErrContentTooLarge) {
			s.rejectTooLarge(ctx, replyToken, userID, filename, policy.HardCapBytes)
			return
		}
		if err != nil {
			s.logger.Error("ASSISTANT", "Audio download failed", map[string]interface{}{
				"user_id":    userID,
				"message_id": messageID,
				"error":      err.Error(),
			})
			s.reply(ctx, replyToken, userID, fmt.Sprintf(constant.AudioDownloadFailedReply, err))
			return
		}
		sizeBytes, data = size, probed
	}

	decision, err := policy.Decide(sizeBytes)
	if errors.Is(err, audio.ErrMediaTooLarge) {
		s.rejectTooLarge(ctx, replyToken, userID, filename, sizeBytes)
		return
	}

	job := dto.AudioJobMessage{
		JobID:      uuid.NewString(),
		UserID:     userID,
		MessageID:  messageID,
		Filename:   filename,
		SizeBytes:  sizeBytes,
		EnqueuedAt: s.now(),
	}

	s.logger.Info("ASSISTANT", "Audio job accepted", map[string]interface{}{
		"user_id":    userID,
		"job_id":     job.JobID,
		"size_mb":    fmt.Sprintf("%.1f", audio.ToMB(sizeBytes)),
		"split":      decision.Split,
		"background": decision.Background,
	})

	if decision.Background {
		s.enqueue(ctx, replyToken, job, data)
		return
	}
	s.runSync(ctx, replyToken, job, data)
}

func (s *assistantService) rejectTooLarge(ctx context.Context, replyToken, userID, filename string, sizeBytes int64) {
	limit := audio.ToMB(s.pipeline.Policy().HardCapBytes)
	s.logger.Warn("ASSISTANT", "Audio rejected as too large", map[string]interface{}{
		"user_id":    userID,
		"size_bytes": sizeBytes,
	})
	s.jobEvents.PublishRejected(ctx, userID, filename, sizeBytes, audio.ErrMediaTooLarge.Error())
	s.reply(ctx, replyToken, userID, fmt.Sprintf(constant.AudioTooLargeReply, audio.ToMB(sizeBytes), limit))
}

func (s *assistantService) enqueue(ctx context.Context, replyToken string, job dto.AudioJobMessage, data []byte) {
	if err := s.registry.Admit(job.JobID, job.UserID, data); err != nil {
		s.logger.Warn("ASSISTANT", "Audio job not admitted", map[string]interface{}{
			"user_id": job.UserID,
			"job_id":  job.JobID,
			"error":   err.Error(),
		})
		s.jobEvents.PublishRejected(ctx, job.UserID, job.Filename, job.SizeBytes, err.Error())
		s.reply(ctx, replyToken, job.UserID, constant.AudioBusyReply)
		return
	}

	s.startStatus(ctx, job)

	payload, err := json.Marshal(job)
	if err == nil {
		err = s.publisher.Publish(ctx, payload)
	}
	if err != nil {
		s.registry.Release(job.JobID)
		s.finishStatus(ctx, job.UserID, job.JobID, audio.StatusError)
		s.logger.Error("ASSISTANT", "Failed to enqueue audio job", map[string]interface{}{
			"user_id": job.UserID,
			"job_id":  job.JobID,
			"error":   err.Error(),
		})
		s.reply(ctx, replyToken, job.UserID, constant.AudioProcessingErrorReply)
		return
	}

	s.jobEvents.PublishQueued(ctx, job)
	s.reply(ctx, replyToken, job.UserID,
		fmt.Sprintf(constant.AudioBackgroundReply, audio.ToMB(job.SizeBytes)),
		line.PostbackAction{
			Label: constant.AudioCancelButtonLabel,
			Data:  constant.AudioCancelPostbackPrefix + job.JobID,
		},
	)
}

// runSync acknowledges with the reply token, then processes inline and
// delivers through push since the token is spent.
func (s *assistantService) runSync(ctx context.Context, replyToken string, job dto.AudioJobMessage, data []byte) {
	s.startStatus(ctx, job)
	s.reply(ctx, replyToken, job.UserID, fmt.Sprintf(constant.AudioReceivedReply, audio.ToMB(job.SizeBytes)))

	jobCtx := ctx
	if s.cfg.SyncJobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, s.cfg.SyncJobTimeout)
		defer cancel()
	}
	s.execute(jobCtx, job, data, s.cfg.SyncJobTimeout)
}

// RunAudioJob is the background worker entry point. The job stays
// cancellable through the registry until it returns.
func (s *assistantService) RunAudioJob(ctx context.Context, job dto.AudioJobMessage) {
	var cancel context.CancelFunc
	if s.cfg.JobTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.cfg.JobTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	data, ok := s.registry.Attach(job.JobID, cancel)
	if !ok {
		s.logger.Info("ASSISTANT", "Audio job cancelled before start", map[string]interface{}{
			"user_id": job.UserID,
			"job_id":  job.JobID,
		})
		return
	}
	defer s.registry.Release(job.JobID)

	s.execute(ctx, job, data, s.cfg.JobTimeout)
}

// execute never lets a fault escape: panics become the generic processing
// error and status error.
func (s *assistantService) execute(ctx context.Context, job dto.AudioJobMessage, data []byte, timeout time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("ASSISTANT", "Audio job panicked", map[string]interface{}{
				"user_id": job.UserID,
				"job_id":  job.JobID,
				"panic":   fmt.Sprint(r),
			})
			s.finishStatus(ctx, job.UserID, job.JobID, audio.StatusError)
			s.jobEvents.PublishFailed(ctx, job.JobID, job.UserID, audio.StatusError, fmt.Sprint(r))
			s.push(ctx, job.UserID, constant.AudioProcessingErrorReply)
		}
	}()

	status, reason := s.process(ctx, job, data, timeout)
	s.finishStatus(ctx, job.UserID, job.JobID, status)
	// user cancels are published by the postback handler
	if status != audio.StatusCompleted && !errors.Is(ctx.Err(), context.Canceled) {
		s.jobEvents.PublishFailed(ctx, job.JobID, job.UserID, status, reason)
	}
}

func (s *assistantService) process(ctx context.Context, job dto.AudioJobMessage, data []byte, timeout time.Duration) (audio.Status, string) {
	policy := s.pipeline.Policy()

	if data == nil {
		downloaded, err := s.messenger.Download(ctx, job.MessageID, policy.HardCapBytes-1)
		if err != nil {
			if ctx.Err() != nil {
				return s.interrupted(ctx, job, timeout)
			}
			s.logger.Error("ASSISTANT", "Audio download failed", map[string]interface{}{
				"user_id": job.UserID,
				"job_id":  job.JobID,
				"error":   err.Error(),
			})
			if errors.Is(err, line.ErrContentTooLarge) {
				s.push(ctx, job.UserID, fmt.Sprintf(constant.AudioTooLargeReply, audio.ToMB(policy.HardCapBytes), audio.ToMB(policy.HardCapBytes)))
			} else {
				s.push(ctx, job.UserID, fmt.Sprintf(constant.AudioDownloadFailedReply, err))
			}
			return audio.StatusFailed, err.Error()
		}
		data = downloaded
	}

	result, err := s.pipeline.Process(ctx, &audio.Job{
		ID:       job.JobID,
		OwnerID:  job.UserID,
		Filename: job.Filename,
		Data:     data,
	})
	if err != nil {
		if ctx.Err() != nil {
			return s.interrupted(ctx, job, timeout)
		}
		s.logger.Error("ASSISTANT", "Audio pipeline failed", map[string]interface{}{
			"user_id": job.UserID,
			"job_id":  job.JobID,
			"error":   err.Error(),
		})
		if errors.Is(err, audio.ErrMediaTooLarge) {
			s.push(ctx, job.UserID, fmt.Sprintf(constant.AudioTooLargeReply, audio.ToMB(int64(len(data))), audio.ToMB(policy.HardCapBytes)))
			return audio.StatusFailed, err.Error()
		}
		s.push(ctx, job.UserID, constant.AudioProcessingErrorReply)
		return audio.StatusError, err.Error()
	}

	// delivery outlives a late cancel or timeout
	header, summary := s.composeResult(result)
	report := s.deliverer.Deliver(context.WithoutCancel(ctx), job.UserID, header, result.Transcript, summary)

	s.logger.Info("ASSISTANT", "Audio job finished", map[string]interface{}{
		"user_id":       job.UserID,
		"job_id":        job.JobID,
		"status":        string(result.Status()),
		"chunks":        len(result.Segments),
		"failed_chunks": result.FailedChunks(),
		"sent":          report.Sent,
		"send_failures": report.Failed,
	})

	if result.Status() == audio.StatusCompleted {
		s.jobEvents.PublishCompleted(ctx, job.JobID, job.UserID, result)
		return audio.StatusCompleted, ""
	}
	return result.Status(), audio.ErrNoTranscript.Error()
}

func (s *assistantService) composeResult(result *audio.Result) (string, string) {
	if result.Status() == audio.StatusFailed {
		return fmt.Sprintf(constant.AudioFailedHeader, result.Filename, len(result.Segments)), ""
	}

	header := fmt.Sprintf(constant.AudioResultHeader,
		result.Filename,
		audio.ToMB(result.SizeBytes),
		result.Method,
		len(result.Segments),
		result.FailedChunks(),
		result.Duration.Seconds(),
	)

	var summary string
	if result.SummaryErr != nil {
		summary = fmt.Sprintf(constant.AudioSummaryFailedReply, result.SummaryErr)
	} else {
		summary = constant.AudioSummaryTitle + result.Summary
	}
	return header, summary
}

// interrupted handles a job whose context ended. A user cancel was already
// answered by the postback reply; a timeout is reported by push.
func (s *assistantService) interrupted(ctx context.Context, job dto.AudioJobMessage, timeout time.Duration) (audio.Status, string) {
	err := ctx.Err()
	s.logger.Warn("ASSISTANT", "Audio job interrupted", map[string]interface{}{
		"user_id": job.UserID,
		"job_id":  job.JobID,
		"error":   err.Error(),
	})
	if errors.Is(err, context.DeadlineExceeded) {
		s.push(ctx, job.UserID, fmt.Sprintf(constant.AudioTimeoutReply, timeout.Minutes()))
		return audio.StatusError, err.Error()
	}
	return audio.StatusFailed, err.Error()
}

func (s *assistantService) statusReply(ctx context.Context, userID string) string {
	status, err := s.statusStore.Get(ctx, userID)
	if err != nil {
		s.logger.Error("ASSISTANT", "Failed to load processing status", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return constant.StatusNoJobReply
	}
	if status == nil {
		return constant.StatusNoJobReply
	}
	return fmt.Sprintf(constant.StatusReplyFormat,
		status.Filename,
		statusLabel(status.Status),
		status.Elapsed(s.now()).Seconds(),
	)
}

func statusLabel(status audio.Status) string {
	switch status {
	case audio.StatusProcessing:
		return constant.StatusLabelProcessing
	case audio.StatusCompleted:
		return constant.StatusLabelCompleted
	case audio.StatusFailed:
		return constant.StatusLabelFailed
	default:
		return constant.StatusLabelError
	}
}

func (s *assistantService) startStatus(ctx context.Context, job dto.AudioJobMessage) {
	if err := s.statusStore.Start(ctx, job.UserID, job.JobID, job.Filename); err != nil {
		s.logger.Error("ASSISTANT", "Failed to record processing status", map[string]interface{}{
			"user_id": job.UserID,
			"job_id":  job.JobID,
			"error":   err.Error(),
		})
	}
}

func (s *assistantService) finishStatus(ctx context.Context, userID, jobID string, status audio.Status) {
	ctx = context.WithoutCancel(ctx)
	owned, err := s.statusStore.Finish(ctx, userID, jobID, status)
	if err != nil {
		s.logger.Error("ASSISTANT", "Failed to finish processing status", map[string]interface{}{
			"user_id": userID,
			"job_id":  jobID,
			"error":   err.Error(),
		})
		return
	}
	if !owned {
		s.logger.Debug("ASSISTANT", "Processing status owned by a newer job", map[string]interface{}{
			"user_id": userID,
			"job_id":  jobID,
		})
	}
}

func (s *assistantService) reply(ctx context.Context, replyToken, userID, text string, actions ...line.PostbackAction) {
	if err := s.messenger.ReplyText(ctx, replyToken, text, actions...); err != nil {
		s.logger.Error("ASSISTANT", "Reply failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}

// push ignores ctx cancellation so failure notices still go out after a
// timeout.
func (s *assistantService) push(ctx context.Context, userID, text string) {
	if err := s.messenger.PushText(context.WithoutCancel(ctx), userID, text); err != nil {
		s.logger.Error("ASSISTANT", "Push failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}
