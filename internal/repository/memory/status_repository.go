package memory

import (
	"context"
	"sync"
	"time"

	"line-work-assistant/pkg/audio"

	"github.com/patrickmn/go-cache"
)

// StatusRepository holds the latest ProcessingStatus per user. Each user's
// entry has its own lock, and Finish only lands while the finishing job still
// owns the entry.
type StatusRepository struct {
	cache *cache.Cache
	now   func() time.Time
}

var _ audio.StatusStore = &StatusRepository{}

type statusEntry struct {
	mu     sync.Mutex
	status *audio.ProcessingStatus
}

func NewStatusRepository(ttl time.Duration) *StatusRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &StatusRepository{
		cache: cache.New(ttl, 10*time.Minute),
		now:   time.Now,
	}
}

func (r *StatusRepository) Start(ctx context.Context, userID, jobID, filename string) error {
	e := r.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.status = &audio.ProcessingStatus{
		JobID:     jobID,
		Status:    audio.StatusProcessing,
		Filename:  filename,
		StartTime: r.now(),
	}
	r.cache.SetDefault(userID, e)
	return nil
}

func (r *StatusRepository) Finish(ctx context.Context, userID, jobID string, status audio.Status) (bool, error) {
	v, found := r.cache.Get(userID)
	if !found {
		return false, nil
	}
	e := v.(*statusEntry)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status == nil || e.status.JobID != jobID {
		return false, nil
	}
	e.status.Status = status
	e.status.FinishedAt = r.now()
	return true, nil
}

func (r *StatusRepository) Get(ctx context.Context, userID string) (*audio.ProcessingStatus, error) {
	v, found := r.cache.Get(userID)
	if !found {
		return nil, nil
	}
	e := v.(*statusEntry)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status == nil {
		return nil, nil
	}
	snapshot := *e.status
	return &snapshot, nil
}

func (r *StatusRepository) entry(userID string) *statusEntry {
	if v, found := r.cache.Get(userID); found {
		return v.(*statusEntry)
	}
	e := &statusEntry{}
	if err := r.cache.Add(userID, e, cache.DefaultExpiration); err != nil {
		if v, found := r.cache.Get(userID); found {
			return v.(*statusEntry)
		}
	}
	return e
}
