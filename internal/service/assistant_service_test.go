package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"line-work-assistant/internal/constant"
	"line-work-assistant/internal/dto"
	"line-work-assistant/internal/pkg/logger"
	"line-work-assistant/internal/repository/memory"
	"line-work-assistant/pkg/audio"
	"line-work-assistant/pkg/conversation"
	"line-work-assistant/pkg/delivery"
	"line-work-assistant/pkg/line"
	"line-work-assistant/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentReply struct {
	token   string
	text    string
	actions []line.PostbackAction
}

type fakeMessenger struct {
	mu        sync.Mutex
	replies   []sentReply
	pushes    []string
	contents  map[string][]byte
	probes    int
	downloads int
	onPush    func()
}

func (m *fakeMessenger) ReplyText(ctx context.Context, replyToken, text string, actions ...line.PostbackAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, sentReply{token: replyToken, text: text, actions: actions})
	return nil
}

func (m *fakeMessenger) PushText(ctx context.Context, userID, text string) error {
	m.mu.Lock()
	m.pushes = append(m.pushes, text)
	onPush := m.onPush
	m.mu.Unlock()
	if onPush != nil {
		onPush()
	}
	return nil
}

func (m *fakeMessenger) Probe(ctx context.Context, messageID string, keepUpTo, limit int64) (int64, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes++
	data, ok := m.contents[messageID]
	if !ok {
		return 0, nil, errors.New("not found")
	}
	if int64(len(data)) > keepUpTo {
		return int64(len(data)), nil, nil
	}
	if limit > 0 && int64(len(data)) > limit {
		return 0, nil, line.ErrContentTooLarge
	}
	return int64(len(data)), data, nil
}

func (m *fakeMessenger) Download(ctx context.Context, messageID string, limit int64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads++
	data, ok := m.contents[messageID]
	if !ok {
		return nil, errors.New("not found")
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, line.ErrContentTooLarge
	}
	return data, nil
}

type countingTranscriber struct {
	mu    sync.Mutex
	calls int
	block chan struct{}
}

func (c *countingTranscriber) TranscribeFile(ctx context.Context, path, language string) (string, error) {
	c.mu.Lock()
	c.calls++
	n := c.calls
	c.mu.Unlock()
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return fmt.Sprintf("第%d段內容", n), nil
}

type stubLLM struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "AI 回覆", nil
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return s.Chat(ctx, nil, options...)
}

type capturePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (p *capturePublisher) Publish(ctx context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.payloads = append(p.payloads, payload)
	return nil
}

type harness struct {
	svc         IAssistantService
	messenger   *fakeMessenger
	transcriber *countingTranscriber
	model       *stubLLM
	publisher   *capturePublisher
	registry    *JobRegistry
	status      *memory.StatusRepository
	history     *memory.ConversationRepository
	tempDir     string
}

// kb scales the size policy down so tests keep the 25/30/200 proportions
// without allocating real megabytes.
const kb = 1024

func newHarness(t *testing.T, registryCapacity int) *harness {
	t.Helper()
	h := &harness{
		messenger:   &fakeMessenger{contents: make(map[string][]byte)},
		transcriber: &countingTranscriber{},
		model:       &stubLLM{},
		publisher:   &capturePublisher{},
		registry:    NewJobRegistry(registryCapacity),
		status:      memory.NewStatusRepository(time.Hour),
		history:     memory.NewConversationRepository(time.Hour, 100),
		tempDir:     t.TempDir(),
	}
	log := logger.NewNopLogger()

	quick := conversation.NewQuickCommands(nil, conversation.QuickCommand{
		Name:    "help",
		Aliases: constant.HelpCommands,
		Render:  conversation.StaticReply(constant.HelpReply),
	})
	manager := conversation.NewManager(conversation.Config{
		SystemPrompt:  constant.AssistantSystemPrompt,
		ApologyFormat: constant.ChatApologyFormat,
		HistoryTurns:  6,
		MaxTokens:     300,
		Temperature:   0.7,
	}, h.history, h.model, quick, log)

	pipeline := audio.NewPipeline(audio.PipelineConfig{
		Policy:            audio.Policy{DirectMaxBytes: 25 * kb, SyncMaxBytes: 30 * kb, HardCapBytes: 200 * kb},
		Language:          "zh",
		SummaryCharBudget: 4000,
		TempDir:           h.tempDir,
	}, audio.NewByteSegmenter(20*kb, 6), h.transcriber, h.model, log)

	deliverer := delivery.NewDeliverer(h.messenger, delivery.Config{MaxChars: 5000, PartBudget: 4500}, log)

	h.svc = NewAssistantService(
		AssistantConfig{JobTimeout: time.Minute},
		h.messenger, manager, pipeline, deliverer, h.status,
		h.registry, h.publisher, NewNatsJobEventPublisher(nil, log), log,
	)
	return h
}

func (h *harness) lastQueued(t *testing.T) dto.AudioJobMessage {
	t.Helper()
	h.publisher.mu.Lock()
	defer h.publisher.mu.Unlock()
	require.NotEmpty(t, h.publisher.payloads)
	var job dto.AudioJobMessage
	require.NoError(t, json.Unmarshal(h.publisher.payloads[len(h.publisher.payloads)-1], &job))
	return job
}

func TestTextHelpCommand(t *testing.T) {
	h := newHarness(t, 4)

	h.svc.OnTextEvent(context.Background(), "rt", "U1", "幫助")

	require.Len(t, h.messenger.replies, 1)
	assert.Equal(t, constant.HelpReply, h.messenger.replies[0].text)
	assert.Equal(t, 0, h.model.calls)
}

func TestTextChatTimeout(t *testing.T) {
	h := newHarness(t, 4)
	h.svc.OnTextEvent(context.Background(), "rt1", "U1", "你好")
	before := h.history.History("U1")

	h.model.err = context.DeadlineExceeded
	h.svc.OnTextEvent(context.Background(), "rt2", "U1", "幫我規劃明天")

	reply := h.messenger.replies[1].text
	assert.True(t, strings.HasPrefix(reply, "抱歉，處理您的請求時發生錯誤。請稍後再試。"))
	assert.Contains(t, reply, context.DeadlineExceeded.Error())
	assert.Equal(t, before, h.history.History("U1"))
}

func TestSmallAudioRunsSynchronously(t *testing.T) {
	h := newHarness(t, 4)
	h.messenger.contents["m1"] = make([]byte, 10*kb)

	h.svc.OnAudioEvent(context.Background(), "rt", "U1", "m1", 0)

	require.Len(t, h.messenger.replies, 1)
	assert.Equal(t, fmt.Sprintf(constant.AudioReceivedReply, audio.ToMB(10*kb)), h.messenger.replies[0].text)
	assert.Equal(t, 1, h.transcriber.calls)
	assert.Empty(t, h.publisher.payloads)
	assert.Equal(t, 1, h.messenger.probes)
	assert.Equal(t, 0, h.messenger.downloads, "content is fetched once")

	require.Len(t, h.messenger.pushes, 3)
	assert.True(t, strings.HasPrefix(h.messenger.pushes[0], "✅ 錄音處理完成"))
	assert.Contains(t, h.messenger.pushes[1], "(1/1)")
	assert.Contains(t, h.messenger.pushes[1], audio.SegmentLabel(0))
	assert.True(t, strings.HasPrefix(h.messenger.pushes[2], constant.AudioSummaryTitle))

	status, err := h.status.Get(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, audio.StatusCompleted, status.Status)

	entries, err := os.ReadDir(h.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLargeAudioGoesToBackground(t *testing.T) {
	h := newHarness(t, 4)
	h.messenger.contents["m1"] = make([]byte, 60*kb)

	h.svc.OnFileEvent(context.Background(), "rt", "U1", "m1", "meeting.mp3", 60*kb)

	require.Len(t, h.messenger.replies, 1)
	ack := h.messenger.replies[0]
	assert.Equal(t, fmt.Sprintf(constant.AudioBackgroundReply, audio.ToMB(60*kb)), ack.text)
	require.Len(t, ack.actions, 1)
	assert.True(t, strings.HasPrefix(ack.actions[0].Data, constant.AudioCancelPostbackPrefix))

	assert.Equal(t, 0, h.transcriber.calls, "nothing is transcribed before the worker runs")
	assert.Empty(t, h.messenger.pushes)
	assert.Equal(t, 0, h.messenger.downloads)

	job := h.lastQueued(t)
	assert.Equal(t, "meeting.mp3", job.Filename)
	assert.Equal(t, int64(60*kb), job.SizeBytes)

	h.svc.RunAudioJob(context.Background(), job)

	assert.Len(t, h.messenger.replies, 1, "results never use the reply token")
	// 60 KB in six byte ranges of 10 KB
	assert.Equal(t, 6, h.transcriber.calls)
	require.NotEmpty(t, h.messenger.pushes)
	assert.True(t, strings.HasPrefix(h.messenger.pushes[0], "✅ 錄音處理完成"))
	assert.Equal(t, 0, h.registry.Len())

	status, _ := h.status.Get(context.Background(), "U1")
	assert.Equal(t, audio.StatusCompleted, status.Status)
}

func TestAudioAtHardCapIsRejected(t *testing.T) {
	h := newHarness(t, 4)

	h.svc.OnFileEvent(context.Background(), "rt", "U1", "m1", "huge.wav", 200*kb)

	require.Len(t, h.messenger.replies, 1)
	assert.True(t, strings.HasPrefix(h.messenger.replies[0].text, "❌ 檔案過大"))
	assert.Equal(t, 0, h.messenger.downloads)
	assert.Empty(t, h.publisher.payloads)

	status, _ := h.status.Get(context.Background(), "U1")
	assert.Nil(t, status)
}

func TestNonAudioFileGetsStaticReply(t *testing.T) {
	h := newHarness(t, 4)

	h.svc.OnFileEvent(context.Background(), "rt", "U1", "m1", "report.pdf", 100)

	require.Len(t, h.messenger.replies, 1)
	assert.Equal(t, constant.FileUnsupportedReply, h.messenger.replies[0].text)
}

func TestBusyWhenQueueFull(t *testing.T) {
	h := newHarness(t, 1)
	h.messenger.contents["m1"] = make([]byte, 60*kb)
	h.messenger.contents["m2"] = make([]byte, 60*kb)

	h.svc.OnAudioEvent(context.Background(), "rt1", "U1", "m1", 0)
	h.svc.OnAudioEvent(context.Background(), "rt2", "U2", "m2", 0)

	require.Len(t, h.messenger.replies, 2)
	assert.Equal(t, constant.AudioBusyReply, h.messenger.replies[1].text)
	assert.Len(t, h.publisher.payloads, 1)
}

func TestCancelQueuedJob(t *testing.T) {
	h := newHarness(t, 4)
	h.messenger.contents["m1"] = make([]byte, 60*kb)

	h.svc.OnAudioEvent(context.Background(), "rt1", "U1", "m1", 0)
	job := h.lastQueued(t)

	h.svc.OnPostbackEvent(context.Background(), "rt2", "U2", constant.AudioCancelPostbackPrefix+job.JobID)
	assert.Equal(t, constant.AudioCancelNotFoundReply, h.messenger.replies[1].text)

	h.svc.OnPostbackEvent(context.Background(), "rt3", "U1", constant.AudioCancelPostbackPrefix+job.JobID)
	assert.Equal(t, constant.AudioCancelledReply, h.messenger.replies[2].text)

	h.svc.RunAudioJob(context.Background(), job)
	assert.Equal(t, 0, h.transcriber.calls)

	status, _ := h.status.Get(context.Background(), "U1")
	assert.Equal(t, audio.StatusFailed, status.Status)
}

func TestCancelRunningJob(t *testing.T) {
	h := newHarness(t, 4)
	h.transcriber.block = make(chan struct{})
	h.messenger.contents["m1"] = make([]byte, 60*kb)

	h.svc.OnAudioEvent(context.Background(), "rt1", "U1", "m1", 0)
	job := h.lastQueued(t)

	done := make(chan struct{})
	go func() {
		h.svc.RunAudioJob(context.Background(), job)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		h.transcriber.mu.Lock()
		defer h.transcriber.mu.Unlock()
		return h.transcriber.calls == 1
	}, time.Second, 5*time.Millisecond)

	h.svc.OnPostbackEvent(context.Background(), "rt2", "U1", constant.AudioCancelPostbackPrefix+job.JobID)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not stop after cancel")
	}

	h.messenger.mu.Lock()
	defer h.messenger.mu.Unlock()
	assert.Equal(t, constant.AudioCancelledReply, h.messenger.replies[1].text)
	assert.Empty(t, h.messenger.pushes)
	assert.Equal(t, 0, h.registry.Len())

	entries, err := os.ReadDir(h.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStatusCommand(t *testing.T) {
	h := newHarness(t, 4)

	h.svc.OnTextEvent(context.Background(), "rt1", "U1", "處理狀態")
	assert.Equal(t, constant.StatusNoJobReply, h.messenger.replies[0].text)

	h.messenger.contents["m1"] = make([]byte, 60*kb)
	h.svc.OnFileEvent(context.Background(), "rt2", "U1", "m1", "standup.m4a", 0)

	h.svc.OnTextEvent(context.Background(), "rt3", "U1", "STATUS")
	reply := h.messenger.replies[2].text
	assert.Contains(t, reply, "standup.m4a")
	assert.Contains(t, reply, constant.StatusLabelProcessing)
	assert.Equal(t, 0, h.model.calls)
}

func TestPostbackEchoAndImage(t *testing.T) {
	h := newHarness(t, 4)

	h.svc.OnPostbackEvent(context.Background(), "rt1", "U1", "action=menu")
	h.svc.OnImageEvent(context.Background(), "rt2", "U1")

	assert.Equal(t, "處理互動操作：action=menu", h.messenger.replies[0].text)
	assert.Equal(t, constant.ImageReply, h.messenger.replies[1].text)
}

func TestEnqueueFailureReleasesSlot(t *testing.T) {
	h := newHarness(t, 1)
	h.publisher.err = errors.New("pubsub closed")
	h.messenger.contents["m1"] = make([]byte, 60*kb)

	h.svc.OnAudioEvent(context.Background(), "rt", "U1", "m1", 0)

	assert.Equal(t, constant.AudioProcessingErrorReply, h.messenger.replies[0].text)
	assert.Equal(t, 0, h.registry.Len())
	status, _ := h.status.Get(context.Background(), "U1")
	assert.Equal(t, audio.StatusError, status.Status)
}

func TestBackgroundAudioWithoutSizeIsDownloadedByWorker(t *testing.T) {
	h := newHarness(t, 4)
	h.messenger.contents["m1"] = make([]byte, 60*kb)

	h.svc.OnAudioEvent(context.Background(), "rt", "U1", "m1", 0)
	job := h.lastQueued(t)
	assert.Equal(t, int64(60*kb), job.SizeBytes)
	assert.Equal(t, 0, h.messenger.downloads)

	h.svc.RunAudioJob(context.Background(), job)
	assert.Equal(t, 1, h.messenger.downloads)
	assert.Equal(t, 1, h.messenger.probes)
}

func TestDeliveryCompletesAfterLateCancel(t *testing.T) {
	h := newHarness(t, 4)
	h.messenger.contents["m1"] = make([]byte, 10*kb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.messenger.onPush = cancel

	h.svc.OnAudioEvent(ctx, "rt", "U1", "m1", 0)

	h.messenger.mu.Lock()
	defer h.messenger.mu.Unlock()
	require.Len(t, h.messenger.pushes, 3)
	assert.True(t, strings.HasPrefix(h.messenger.pushes[2], constant.AudioSummaryTitle))

	status, err := h.status.Get(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, audio.StatusCompleted, status.Status)
}
