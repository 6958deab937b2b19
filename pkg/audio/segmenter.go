package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"line-work-assistant/internal/pkg/logger"
)

const (
	MethodSingle    = "single"
	MethodFFmpeg    = "ffmpeg"
	MethodByteRange = "byte-range"
)

// Segmenter splits a job's audio into ordered chunks. Implementations make no
// promise that every chunk is a valid media file.
type Segmenter interface {
	Segment(ctx context.Context, job *Job) (*Segmentation, error)
}

// ByteSegmenter slices raw bytes with no regard for frame or container
// boundaries. Chunks past the first usually lack headers and may be rejected
// upstream.
type ByteSegmenter struct {
	MaxChunkBytes int64
	Parts         int
}

func NewByteSegmenter(maxChunkBytes int64, parts int) *ByteSegmenter {
	return &ByteSegmenter{MaxChunkBytes: maxChunkBytes, Parts: parts}
}

// ChunkSize is min(MaxChunkBytes, total/Parts), clamped to [1, total].
func (s *ByteSegmenter) ChunkSize(total int64) int64 {
	size := s.MaxChunkBytes
	if s.Parts > 0 {
		if byParts := total / int64(s.Parts); byParts > 0 && (size <= 0 || byParts < size) {
			size = byParts
		}
	}
	if size <= 0 || size > total {
		size = total
	}
	if size <= 0 {
		size = 1
	}
	return size
}

func (s *ByteSegmenter) Segment(ctx context.Context, job *Job) (*Segmentation, error) {
	total := job.SizeBytes()
	if total == 0 {
		return nil, ErrNoChunks
	}

	size := s.ChunkSize(total)
	ext := job.Extension()
	var chunks []Chunk
	for start, idx := int64(0), 0; start < total; start, idx = start+size, idx+1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + size
		if end > total {
			end = total
		}
		chunks = append(chunks, Chunk{Index: idx, Data: job.Data[start:end], Ext: ext})
	}

	return &Segmentation{Method: MethodByteRange, Chunks: chunks}, nil
}

// FFmpegSegmenter cuts by duration with the ffmpeg segment muxer, copying
// streams without re-encoding.
type FFmpegSegmenter struct {
	Binary         string
	SegmentSeconds int
	TempDir        string
}

func NewFFmpegSegmenter(binary string, segmentSeconds int, tempDir string) *FFmpegSegmenter {
	if binary == "" {
		binary = "ffmpeg"
	}
	if segmentSeconds <= 0 {
		segmentSeconds = 600
	}
	return &FFmpegSegmenter{Binary: binary, SegmentSeconds: segmentSeconds, TempDir: tempDir}
}

func (s *FFmpegSegmenter) Available() bool {
	_, err := exec.LookPath(s.Binary)
	return err == nil
}

func (s *FFmpegSegmenter) Segment(ctx context.Context, job *Job) (*Segmentation, error) {
	if !s.Available() {
		return nil, fmt.Errorf("%w: %s not found", ErrSegmenterUnavailable, s.Binary)
	}

	workDir, err := os.MkdirTemp(s.TempDir, "segments-*")
	if err != nil {
		return nil, fmt.Errorf("create segment dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	ext := job.Extension()
	input := filepath.Join(workDir, "input"+ext)
	if err := os.WriteFile(input, job.Data, 0600); err != nil {
		return nil, fmt.Errorf("write segment input: %w", err)
	}

	pattern := filepath.Join(workDir, "part_%03d"+ext)
	cmd := exec.CommandContext(ctx, s.Binary,
		"-hide_banner", "-loglevel", "error",
		"-i", input,
		"-f", "segment",
		"-segment_time", strconv.Itoa(s.SegmentSeconds),
		"-c", "copy",
		"-reset_timestamps", "1",
		pattern,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg segment failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	parts, err := filepath.Glob(filepath.Join(workDir, "part_*"+ext))
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	sort.Strings(parts)
	if len(parts) == 0 {
		return nil, ErrNoChunks
	}

	chunks := make([]Chunk, 0, len(parts))
	for i, p := range parts {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read segment %d: %w", i, err)
		}
		chunks = append(chunks, Chunk{Index: i, Data: data, Ext: ext})
	}

	return &Segmentation{Method: MethodFFmpeg, Chunks: chunks}, nil
}

// FallbackSegmenter tries Primary and falls back to Fallback on any error.
type FallbackSegmenter struct {
	Primary  Segmenter
	Fallback Segmenter
	Logger   logger.ILogger
}

func NewFallbackSegmenter(primary, fallback Segmenter, log logger.ILogger) *FallbackSegmenter {
	return &FallbackSegmenter{Primary: primary, Fallback: fallback, Logger: log}
}

func (s *FallbackSegmenter) Segment(ctx context.Context, job *Job) (*Segmentation, error) {
	if s.Primary != nil {
		seg, err := s.Primary.Segment(ctx, job)
		if err == nil && len(seg.Chunks) > 0 {
			return seg, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err == nil {
			err = ErrNoChunks
		}
		s.Logger.Warn("SEGMENTER", "Primary segmentation failed, falling back to byte slicing", map[string]interface{}{
			"job_id": job.ID,
			"error":  err.Error(),
		})
	}
	return s.Fallback.Segment(ctx, job)
}
