package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"line-work-assistant/internal/pkg/logger"
	"line-work-assistant/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranscriber struct {
	mu       sync.Mutex
	paths    []string
	existed  []bool
	failOn   map[int]error
	panicOn  map[int]bool
	calls    int
	language string
}

func (f *fakeTranscriber) TranscribeFile(ctx context.Context, path string, language string) (string, error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	_, statErr := os.Stat(path)
	f.paths = append(f.paths, path)
	f.existed = append(f.existed, statErr == nil)
	f.language = language
	f.mu.Unlock()

	if f.panicOn[idx] {
		panic("decoder crashed")
	}
	if err, ok := f.failOn[idx]; ok {
		return "", err
	}
	return fmt.Sprintf("text-%d", idx), nil
}

type fakeLLM struct {
	prompts []string
	reply   string
	err     error
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.Generate(ctx, history[len(history)-1].Content, options...)
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestPipeline(t *testing.T, policy Policy, tr *fakeTranscriber, model *fakeLLM, seg Segmenter) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	if seg == nil {
		seg = NewByteSegmenter(20*MB, 6)
	}
	return NewPipeline(PipelineConfig{
		Policy:            policy,
		Language:          "zh",
		SummaryCharBudget: 4000,
		SummaryMaxTokens:  1500,
		TempDir:           dir,
	}, seg, tr, model, logger.NewNopLogger()), dir
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary chunk files leaked")
}

func TestProcessSmallFileIsSingleChunk(t *testing.T) {
	tr := &fakeTranscriber{}
	model := &fakeLLM{reply: "摘要"}
	p, dir := newTestPipeline(t, DefaultPolicy(), tr, model, nil)

	job := &Job{ID: "j1", OwnerID: "U1", Filename: "memo.m4a", Data: make([]byte, 10*MB)}
	res, err := p.Process(context.Background(), job)

	require.NoError(t, err)
	assert.Equal(t, MethodSingle, res.Method)
	require.Len(t, res.Segments, 1)
	assert.Equal(t, 1, tr.calls)
	assert.Equal(t, "zh", tr.language)
	assert.True(t, tr.existed[0], "chunk file must exist during the upstream call")
	assert.True(t, strings.HasSuffix(tr.paths[0], ".m4a"))
	assert.Equal(t, SegmentLabel(0)+"\ntext-0", res.Transcript)
	assert.Equal(t, "摘要", res.Summary)
	assert.NoError(t, res.SummaryErr)
	assert.Equal(t, StatusCompleted, res.Status())
	assertDirEmpty(t, dir)
}

func TestProcessSplitKeepsFailedChunksInPlace(t *testing.T) {
	tr := &fakeTranscriber{failOn: map[int]error{1: errors.New("invalid media")}}
	model := &fakeLLM{reply: "摘要"}
	policy := Policy{DirectMaxBytes: 10, SyncMaxBytes: 1000, HardCapBytes: 10000}
	p, dir := newTestPipeline(t, policy, tr, model, NewByteSegmenter(10, 0))

	res, err := p.Process(context.Background(), &Job{ID: "j2", Filename: "long.mp3", Data: make([]byte, 30)})

	require.NoError(t, err)
	assert.Equal(t, MethodByteRange, res.Method)
	require.Len(t, res.Segments, 3)
	for i, s := range res.Segments {
		assert.Equal(t, i, s.ChunkIndex)
	}
	assert.True(t, res.Segments[1].Failed)
	assert.Equal(t, "invalid media", res.Segments[1].ErrorDetail)
	assert.Equal(t, 1, res.FailedChunks())
	assert.Equal(t, StatusCompleted, res.Status())

	want := strings.Join([]string{
		SegmentLabel(0) + "\ntext-0",
		SegmentLabel(1) + "\n" + failedPlaceholder("invalid media"),
		SegmentLabel(2) + "\ntext-2",
	}, "\n\n")
	assert.Equal(t, want, res.Transcript)

	// labels appear in ascending order
	assert.Less(t, strings.Index(res.Transcript, SegmentLabel(0)), strings.Index(res.Transcript, SegmentLabel(1)))
	assert.Less(t, strings.Index(res.Transcript, SegmentLabel(1)), strings.Index(res.Transcript, SegmentLabel(2)))
	assertDirEmpty(t, dir)
}

func TestProcessAllChunksFailed(t *testing.T) {
	boom := errors.New("upstream 500")
	tr := &fakeTranscriber{failOn: map[int]error{0: boom, 1: boom}}
	model := &fakeLLM{reply: "unused"}
	policy := Policy{DirectMaxBytes: 5, HardCapBytes: 1000}
	p, dir := newTestPipeline(t, policy, tr, model, NewByteSegmenter(5, 0))

	res, err := p.Process(context.Background(), &Job{ID: "j3", Data: make([]byte, 10)})

	require.NoError(t, err)
	assert.Equal(t, StatusFailed, res.Status())
	assert.ErrorIs(t, res.SummaryErr, ErrNoTranscript)
	assert.Empty(t, model.prompts)
	assert.Equal(t, 2, strings.Count(res.Transcript, "【第 "))
	assertDirEmpty(t, dir)
}

func TestProcessTranscriberPanicBecomesPlaceholder(t *testing.T) {
	tr := &fakeTranscriber{panicOn: map[int]bool{0: true}}
	model := &fakeLLM{reply: "ok"}
	policy := Policy{DirectMaxBytes: 5, HardCapBytes: 1000}
	p, dir := newTestPipeline(t, policy, tr, model, NewByteSegmenter(5, 0))

	res, err := p.Process(context.Background(), &Job{ID: "j4", Data: make([]byte, 10)})

	require.NoError(t, err)
	require.Len(t, res.Segments, 2)
	assert.True(t, res.Segments[0].Failed)
	assert.Contains(t, res.Segments[0].ErrorDetail, "decoder crashed")
	assert.False(t, res.Segments[1].Failed)
	assertDirEmpty(t, dir)
}

func TestProcessRejectsAtHardCap(t *testing.T) {
	tr := &fakeTranscriber{}
	policy := Policy{DirectMaxBytes: 5, HardCapBytes: 10}
	p, _ := newTestPipeline(t, policy, tr, &fakeLLM{}, nil)

	_, err := p.Process(context.Background(), &Job{ID: "j5", Data: make([]byte, 10)})

	assert.ErrorIs(t, err, ErrMediaTooLarge)
	assert.Equal(t, 0, tr.calls)
}

func TestProcessCancelled(t *testing.T) {
	tr := &fakeTranscriber{}
	p, dir := newTestPipeline(t, DefaultPolicy(), tr, &fakeLLM{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Process(ctx, &Job{ID: "j6", Data: []byte("abc")})
	assert.ErrorIs(t, err, context.Canceled)
	assertDirEmpty(t, dir)
}

func TestSummarizeTruncatesToBudget(t *testing.T) {
	model := &fakeLLM{reply: "摘要"}
	p, _ := newTestPipeline(t, DefaultPolicy(), &fakeTranscriber{}, model, nil)
	p.cfg.SummaryCharBudget = 5

	summary, truncated, err := p.Summarize(context.Background(), "一二三四五六七八")

	require.NoError(t, err)
	assert.True(t, truncated)
	assert.True(t, strings.HasPrefix(summary, "摘要"))
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "一二三四五")
	assert.NotContains(t, model.prompts[0], "六")
}

func TestSummaryFailureKeepsTranscript(t *testing.T) {
	model := &fakeLLM{err: errors.New("context deadline exceeded")}
	p, _ := newTestPipeline(t, DefaultPolicy(), &fakeTranscriber{}, model, nil)

	res, err := p.Process(context.Background(), &Job{ID: "j7", Filename: "a.wav", Data: []byte("abc")})

	require.NoError(t, err)
	assert.Error(t, res.SummaryErr)
	assert.Contains(t, res.SummaryErr.Error(), "context deadline exceeded")
	assert.Equal(t, SegmentLabel(0)+"\ntext-0", res.Transcript)
	assert.Equal(t, StatusCompleted, res.Status())
}
