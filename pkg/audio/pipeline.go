package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"line-work-assistant/internal/pkg/logger"
	"line-work-assistant/pkg/llm"
	"line-work-assistant/pkg/stt"
	"line-work-assistant/pkg/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrNoTranscript = errors.New("no chunk was transcribed")

type PipelineConfig struct {
	Policy            Policy
	Language          string
	ChunkDelay        time.Duration
	SummaryCharBudget int
	SummaryMaxTokens  int
	TempDir           string
}

// Pipeline runs received → (direct | split) → transcribing → stitching →
// summarizing for one job at a time. It is safe for concurrent use; all
// per-job state lives on the stack.
type Pipeline struct {
	cfg         PipelineConfig
	segmenter   Segmenter
	transcriber stt.Transcriber
	llmProvider llm.LLMProvider
	logger      logger.ILogger
	tracer      trace.Tracer
}

func NewPipeline(
	cfg PipelineConfig,
	segmenter Segmenter,
	transcriber stt.Transcriber,
	llmProvider llm.LLMProvider,
	log logger.ILogger,
) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		segmenter:   segmenter,
		transcriber: transcriber,
		llmProvider: llmProvider,
		logger:      log,
		tracer:      otel.Tracer("line-work-assistant/audio"),
	}
}

func (p *Pipeline) Policy() Policy {
	return p.cfg.Policy
}

type Result struct {
	JobID      string
	Filename   string
	SizeBytes  int64
	Method     string
	Segments   []TranscriptSegment
	Transcript string
	Summary    string
	SummaryErr error
	Truncated  bool
	Duration   time.Duration
}

func (r *Result) FailedChunks() int {
	n := 0
	for _, s := range r.Segments {
		if s.Failed {
			n++
		}
	}
	return n
}

// Status is completed as long as one chunk produced text; failed chunks are
// carried inline as placeholders.
func (r *Result) Status() Status {
	if len(r.Segments) == 0 || r.FailedChunks() == len(r.Segments) {
		return StatusFailed
	}
	return StatusCompleted
}

func (p *Pipeline) Process(ctx context.Context, job *Job) (*Result, error) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "audio.Process", trace.WithAttributes(
		attribute.String("job.id", job.ID),
		attribute.Int64("job.size_bytes", job.SizeBytes()),
	))
	defer span.End()

	decision, err := p.cfg.Policy.Decide(job.SizeBytes())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if job.SizeBytes() == 0 {
		return nil, ErrNoChunks
	}

	seg := &Segmentation{
		Method: MethodSingle,
		Chunks: []Chunk{{Index: 0, Data: job.Data, Ext: job.Extension()}},
	}
	if decision.Split {
		seg, err = p.segmenter.Segment(ctx, job)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("segment audio: %w", err)
		}
	}

	p.logger.Info("PIPELINE", "Audio segmented", map[string]interface{}{
		"job_id":  job.ID,
		"method":  seg.Method,
		"chunks":  len(seg.Chunks),
		"size_mb": fmt.Sprintf("%.1f", ToMB(job.SizeBytes())),
	})

	segments, err := p.TranscribeAll(ctx, job, seg.Chunks)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := &Result{
		JobID:      job.ID,
		Filename:   job.Filename,
		SizeBytes:  job.SizeBytes(),
		Method:     seg.Method,
		Segments:   segments,
		Transcript: Stitch(segments),
	}

	if result.Status() == StatusFailed {
		result.SummaryErr = ErrNoTranscript
	} else {
		result.Summary, result.Truncated, result.SummaryErr = p.Summarize(ctx, result.Transcript)
	}

	result.Duration = time.Since(start)
	span.SetAttributes(attribute.Int("job.failed_chunks", result.FailedChunks()))
	return result, nil
}

// TranscribeAll walks chunks strictly in index order. A failing chunk leaves a
// placeholder at its index; only cancellation stops the loop.
func (p *Pipeline) TranscribeAll(ctx context.Context, job *Job, chunks []Chunk) ([]TranscriptSegment, error) {
	segments := make([]TranscriptSegment, 0, len(chunks))
	for i, chunk := range chunks {
		if i > 0 && p.cfg.ChunkDelay > 0 {
			if err := sleepCtx(ctx, p.cfg.ChunkDelay); err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := p.transcribeChunk(ctx, job, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.Warn("PIPELINE", "Chunk transcription failed", map[string]interface{}{
				"job_id":      job.ID,
				"chunk_index": chunk.Index,
				"error":       err.Error(),
			})
			segments = append(segments, TranscriptSegment{
				ChunkIndex:  chunk.Index,
				Failed:      true,
				ErrorDetail: err.Error(),
			})
			continue
		}

		segments = append(segments, TranscriptSegment{ChunkIndex: chunk.Index, Text: text})
	}
	return segments, nil
}

// transcribeChunk writes the chunk to a scoped temp file right before the
// upstream call. The file is removed on every exit path, panics included.
func (p *Pipeline) transcribeChunk(ctx context.Context, job *Job, chunk Chunk) (text string, err error) {
	ctx, span := p.tracer.Start(ctx, "audio.TranscribeChunk", trace.WithAttributes(
		attribute.Int("chunk.index", chunk.Index),
		attribute.Int("chunk.size_bytes", len(chunk.Data)),
	))
	defer span.End()

	f, err := os.CreateTemp(p.cfg.TempDir, fmt.Sprintf("chunk-%03d-*%s", chunk.Index, chunk.Ext))
	if err != nil {
		return "", fmt.Errorf("create temp chunk: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transcriber panic: %v", r)
		}
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if _, err = f.Write(chunk.Data); err != nil {
		f.Close()
		return "", fmt.Errorf("write temp chunk: %w", err)
	}
	if err = f.Close(); err != nil {
		return "", fmt.Errorf("close temp chunk: %w", err)
	}

	return p.transcriber.TranscribeFile(ctx, path, p.cfg.Language)
}

// Stitch joins segments in slice order, each under its label, separated by a
// blank line.
func Stitch(segments []TranscriptSegment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		body := s.Text
		if s.Failed {
			body = failedPlaceholder(s.ErrorDetail)
		}
		parts = append(parts, SegmentLabel(s.ChunkIndex)+"\n"+body)
	}
	return strings.Join(parts, "\n\n")
}

// Summarize sends at most SummaryCharBudget characters of the transcript.
func (p *Pipeline) Summarize(ctx context.Context, transcript string) (string, bool, error) {
	ctx, span := p.tracer.Start(ctx, "audio.Summarize")
	defer span.End()

	input, truncated := utils.TruncateRunes(transcript, p.cfg.SummaryCharBudget)

	var opts []llm.Option
	if p.cfg.SummaryMaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(p.cfg.SummaryMaxTokens))
	}
	opts = append(opts, llm.WithTemperature(0.3))

	summary, err := p.llmProvider.Generate(ctx, fmt.Sprintf(SummaryPromptTemplate, input), opts...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", truncated, fmt.Errorf("summarize transcript: %w", err)
	}

	if truncated {
		summary += truncationNotice
	}
	return summary, truncated, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
