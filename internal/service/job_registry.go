package service

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrQueueFull    = errors.New("audio job queue is full")
	ErrJobDuplicate = errors.New("audio job already registered")
)

// JobRegistry tracks every admitted background job from enqueue until its
// worker releases it. It bounds admission and holds each running job's
// cancel func.
type JobRegistry struct {
	mu       sync.Mutex
	capacity int
	jobs     map[string]*trackedJob
}

type trackedJob struct {
	ownerID string
	data    []byte
	cancel  context.CancelFunc
}

func NewJobRegistry(capacity int) *JobRegistry {
	return &JobRegistry{
		capacity: capacity,
		jobs:     make(map[string]*trackedJob),
	}
}

// Admit reserves a slot. data may be nil when the worker should download the
// content itself.
func (r *JobRegistry) Admit(jobID, ownerID string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[jobID]; exists {
		return ErrJobDuplicate
	}
	if r.capacity > 0 && len(r.jobs) >= r.capacity {
		return ErrQueueFull
	}
	r.jobs[jobID] = &trackedJob{ownerID: ownerID, data: data}
	return nil
}

// Attach marks the job as running and hands over any staged data. It reports
// false when the job was cancelled while still queued.
func (r *JobRegistry) Attach(jobID string, cancel context.CancelFunc) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, false
	}
	job.cancel = cancel
	data := job.data
	job.data = nil
	return data, true
}

// Cancel stops jobID if ownerID owns it. A queued job is dropped; a running
// job has its context cancelled and stays registered until Release.
func (r *JobRegistry) Cancel(ownerID, jobID string) bool {
	r.mu.Lock()
	job, ok := r.jobs[jobID]
	if !ok || job.ownerID != ownerID {
		r.mu.Unlock()
		return false
	}
	cancel := job.cancel
	if cancel == nil {
		delete(r.jobs, jobID)
	}
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return true
}

func (r *JobRegistry) Release(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, jobID)
}

func (r *JobRegistry) CancelAll() {
	r.mu.Lock()
	var cancels []context.CancelFunc
	for id, job := range r.jobs {
		if job.cancel != nil {
			cancels = append(cancels, job.cancel)
		} else {
			delete(r.jobs, id)
		}
	}
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

func (r *JobRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}
