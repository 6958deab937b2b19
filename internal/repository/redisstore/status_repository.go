package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"line-work-assistant/pkg/audio"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix    = "line-work-assistant:status:"
	finishRetry  = 3
	fieldJobID   = "job_id"
	fieldStatus  = "status"
	fieldFile    = "filename"
	fieldStart   = "start_time"
	fieldFinish  = "finished_at"
	timeEncoding = time.RFC3339Nano
)

// StatusRepository stores one hash per user. Finish runs inside WATCH so a job
// that lost ownership of the hash cannot overwrite the newer job's state.
type StatusRepository struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

var _ audio.StatusStore = &StatusRepository{}

func NewStatusRepository(rdb *redis.Client, ttl time.Duration) *StatusRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &StatusRepository{rdb: rdb, ttl: ttl, now: time.Now}
}

func key(userID string) string {
	return keyPrefix + userID
}

func (r *StatusRepository) Start(ctx context.Context, userID, jobID, filename string) error {
	k := key(userID)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k,
			fieldJobID, jobID,
			fieldStatus, string(audio.StatusProcessing),
			fieldFile, filename,
			fieldStart, r.now().Format(timeEncoding),
		)
		pipe.Expire(ctx, k, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("start status for %s: %w", userID, err)
	}
	return nil
}

func (r *StatusRepository) Finish(ctx context.Context, userID, jobID string, status audio.Status) (bool, error) {
	k := key(userID)
	owned := false

	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, k, fieldJobID).Result()
		if errors.Is(err, redis.Nil) {
			owned = false
			return nil
		}
		if err != nil {
			return err
		}
		if current != jobID {
			owned = false
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, k,
				fieldStatus, string(status),
				fieldFinish, r.now().Format(timeEncoding),
			)
			pipe.Expire(ctx, k, r.ttl)
			return nil
		})
		if err == nil {
			owned = true
		}
		return err
	}

	for i := 0; i < finishRetry; i++ {
		err := r.rdb.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("finish status for %s: %w", userID, err)
		}
		return owned, nil
	}
	return false, fmt.Errorf("finish status for %s: %w", userID, redis.TxFailedErr)
}

func (r *StatusRepository) Get(ctx context.Context, userID string) (*audio.ProcessingStatus, error) {
	fields, err := r.rdb.HGetAll(ctx, key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get status for %s: %w", userID, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return decodeStatus(fields)
}

func decodeStatus(fields map[string]string) (*audio.ProcessingStatus, error) {
	status := &audio.ProcessingStatus{
		JobID:    fields[fieldJobID],
		Status:   audio.Status(fields[fieldStatus]),
		Filename: fields[fieldFile],
	}

	start, err := time.Parse(timeEncoding, fields[fieldStart])
	if err != nil {
		return nil, fmt.Errorf("decode start_time: %w", err)
	}
	status.StartTime = start

	if raw, ok := fields[fieldFinish]; ok && raw != "" {
		finished, err := time.Parse(timeEncoding, raw)
		if err != nil {
			return nil, fmt.Errorf("decode finished_at: %w", err)
		}
		status.FinishedAt = finished
	}
	return status, nil
}
