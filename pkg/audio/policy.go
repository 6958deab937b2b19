package audio

import "fmt"

const MB = 1024 * 1024

// Policy holds the size thresholds that route a job.
type Policy struct {
	// Below DirectMaxBytes the whole file is one chunk.
	DirectMaxBytes int64
	// Above SyncMaxBytes the job goes to the background queue.
	SyncMaxBytes int64
	// At or above HardCapBytes the job is rejected outright.
	HardCapBytes int64
}

func DefaultPolicy() Policy {
	return Policy{
		DirectMaxBytes: 25 * MB,
		SyncMaxBytes:   30 * MB,
		HardCapBytes:   200 * MB,
	}
}

type Decision struct {
	Split      bool
	Background bool
}

// Decide routes a job by byte size. A size <= 0 means unknown and is treated
// as a small synchronous job; the download enforces the hard cap later.
func (p Policy) Decide(size int64) (Decision, error) {
	if p.HardCapBytes > 0 && size >= p.HardCapBytes {
		return Decision{}, fmt.Errorf("%w: %.1f MB (limit %.0f MB)", ErrMediaTooLarge, ToMB(size), ToMB(p.HardCapBytes))
	}
	return Decision{
		Split:      size >= p.DirectMaxBytes,
		Background: p.SyncMaxBytes > 0 && size > p.SyncMaxBytes,
	}, nil
}

func ToMB(size int64) float64 {
	return float64(size) / MB
}
