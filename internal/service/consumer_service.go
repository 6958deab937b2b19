package service

import (
	"context"
	"encoding/json"
	"sync"

	"line-work-assistant/internal/dto"
	"line-work-assistant/internal/pkg/logger"
	"line-work-assistant/internal/pkg/serverutils"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// AudioJobRunner executes one dequeued job.
type AudioJobRunner interface {
	RunAudioJob(ctx context.Context, job dto.AudioJobMessage)
}

// consumerService runs a fixed number of workers over one subscription.
// Messages are acked on receipt so the next queued job can reach an idle
// worker; a job that fails is reported to the user, never redelivered.
type consumerService struct {
	pubSub    message.Subscriber
	topicName string
	workers   int
	registry  *JobRegistry
	runner    AudioJobRunner
	logger    logger.ILogger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewConsumerService(
	pubSub message.Subscriber,
	topicName string,
	workers int,
	registry *JobRegistry,
	runner AudioJobRunner,
	logger logger.ILogger,
) IConsumerService {
	if workers <= 0 {
		workers = 1
	}
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		workers:   workers,
		registry:  registry,
		runner:    runner,
		logger:    logger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		cancel()
		return err
	}
	cs.cancel = cancel

	for i := 0; i < cs.workers; i++ {
		cs.wg.Add(1)
		go func(worker int) {
			defer cs.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-messages:
					if !ok {
						return
					}
					cs.processMessage(ctx, worker, msg)
				}
			}
		}(i)
	}

	cs.logger.Info("CONSUMER", "Audio workers started", map[string]interface{}{
		"workers": cs.workers,
		"topic":   cs.topicName,
	})
	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, worker int, msg *message.Message) {
	msg.Ack()

	var job dto.AudioJobMessage
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		cs.logger.Error("CONSUMER", "Failed to unmarshal audio job", map[string]interface{}{
			"message_uuid": msg.UUID,
			"error":        err.Error(),
		})
		return
	}
	if err := serverutils.ValidateStruct(&job); err != nil {
		cs.logger.Error("CONSUMER", "Invalid audio job", map[string]interface{}{
			"message_uuid": msg.UUID,
			"error":        err.Error(),
		})
		cs.registry.Release(job.JobID)
		return
	}

	cs.logger.Info("CONSUMER", "Processing audio job", map[string]interface{}{
		"worker":  worker,
		"job_id":  job.JobID,
		"user_id": job.UserID,
	})
	cs.runner.RunAudioJob(ctx, job)
}

// Shutdown stops taking jobs, cancels running ones and waits for the workers
// until ctx ends.
func (cs *consumerService) Shutdown(ctx context.Context) error {
	if cs.cancel != nil {
		cs.cancel()
	}
	cs.registry.CancelAll()

	done := make(chan struct{})
	go func() {
		cs.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
