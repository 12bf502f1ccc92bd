package scheduler

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aniworld-dev/media-grab-bot/internal/messages"
	"github.com/aniworld-dev/media-grab-bot/types"
)

type stubExtractor struct {
	dir     string
	content map[string]string // url -> artifact content
	err     error
	delay   time.Duration
}

func (s *stubExtractor) Extract(ctx context.Context, url string, quality types.Quality) (*types.DownloadResult, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	path := filepath.Join(s.dir, uuid.New().String()+".mp4")
	if err := os.WriteFile(path, []byte(s.content[url]), 0o644); err != nil {
		return nil, err
	}
	kind := types.MediaVideo
	if quality == types.QualityAudio {
		kind = types.MediaAudio
	}
	return &types.DownloadResult{LocalPath: path, Kind: kind, DisplayTitle: "Demo"}, nil
}

func (s *stubExtractor) Probe(ctx context.Context, url string) (*types.LinkPreview, error) {
	return &types.LinkPreview{Title: "Demo"}, nil
}

type sentMedia struct {
	chatID  int64
	kind    types.MediaKind
	content string
	caption string
}

type stubSender struct {
	mu       sync.Mutex
	media    []sentMedia
	texts    map[int64][]string
	videoErr error
}

func newStubSender() *stubSender {
	return &stubSender{texts: make(map[int64][]string)}
}

func (s *stubSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chatID := params.ChatID.(int64)
	s.texts[chatID] = append(s.texts[chatID], params.Text)
	return &models.Message{ID: 1}, nil
}

func (s *stubSender) SendVideo(_ context.Context, params *bot.SendVideoParams) (*models.Message, error) {
	if s.videoErr != nil {
		return nil, s.videoErr
	}
	return s.recordMedia(params.ChatID.(int64), types.MediaVideo, params.Video, params.Caption)
}

func (s *stubSender) SendAudio(_ context.Context, params *bot.SendAudioParams) (*models.Message, error) {
	return s.recordMedia(params.ChatID.(int64), types.MediaAudio, params.Audio, params.Caption)
}

func (s *stubSender) recordMedia(chatID int64, kind types.MediaKind, file models.InputFile, caption string) (*models.Message, error) {
	upload, ok := file.(*models.InputFileUpload)
	if !ok {
		return nil, errors.New("expected file upload")
	}
	data, err := io.ReadAll(upload.Data)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.media = append(s.media, sentMedia{chatID: chatID, kind: kind, content: string(data), caption: caption})
	return &models.Message{ID: 2}, nil
}

func (s *stubSender) EditMessageText(_ context.Context, _ *bot.EditMessageTextParams) (*models.Message, error) {
	return &models.Message{}, nil
}

func (s *stubSender) DeleteMessage(_ context.Context, _ *bot.DeleteMessageParams) (bool, error) {
	return true, nil
}

func (s *stubSender) mediaSnapshot() []sentMedia {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sentMedia, len(s.media))
	copy(out, s.media)
	return out
}

func (s *stubSender) textsFor(chatID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.texts[chatID]))
	copy(out, s.texts[chatID])
	return out
}

type stubStats struct {
	mu     sync.Mutex
	events []types.DownloadEvent
}

func (s *stubStats) RecordDownload(event types.DownloadEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *stubStats) snapshot() []types.DownloadEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.DownloadEvent, len(s.events))
	copy(out, s.events)
	return out
}

func noLeftoverFiles(t *testing.T, dir string) func() bool {
	return func() bool {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		return len(entries) == 0
	}
}

func TestProcessJobDeliversAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	extractor := &stubExtractor{dir: dir, content: map[string]string{"https://example.com/v": "video-bytes"}}
	sender := newStubSender()
	stats := &stubStats{}

	s := NewScheduler(extractor, sender, stats, Config{Workers: 1})
	s.Start()
	defer s.Stop()

	pos := s.Enqueue(Job{ID: "job1", UserID: 1, ChatID: 10, URL: "https://example.com/v", Quality: types.QualityHigh})
	assert.Equal(t, 0, pos)

	assert.Eventually(t, func() bool {
		return len(sender.mediaSnapshot()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	media := sender.mediaSnapshot()[0]
	assert.Equal(t, int64(10), media.chatID)
	assert.Equal(t, types.MediaVideo, media.kind)
	assert.Equal(t, "video-bytes", media.content)
	assert.Equal(t, "Demo", media.caption)

	assert.Eventually(t, noLeftoverFiles(t, dir), 5*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		events := stats.snapshot()
		return len(events) == 1 && events[0].Outcome == "ok" && events[0].URLHost == "example.com"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestProcessJobCleansUpOnDeliveryFailure(t *testing.T) {
	dir := t.TempDir()
	extractor := &stubExtractor{dir: dir, content: map[string]string{"https://example.com/v": "video-bytes"}}
	sender := newStubSender()
	sender.videoErr = errors.New("telegram rejected upload")
	stats := &stubStats{}

	s := NewScheduler(extractor, sender, stats, Config{Workers: 1})
	s.Start()
	defer s.Stop()

	s.Enqueue(Job{ID: "job1", UserID: 1, ChatID: 10, URL: "https://example.com/v", Quality: types.QualityHigh})

	assert.Eventually(t, func() bool {
		return len(sender.textsFor(10)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.Empty(t, sender.mediaSnapshot())
	assert.Eventually(t, noLeftoverFiles(t, dir), 5*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		events := stats.snapshot()
		return len(events) == 1 && events[0].Outcome == "send_failed"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestProcessJobReportsRestrictedContent(t *testing.T) {
	extractor := &stubExtractor{err: types.NewDownloadError(types.DownloadRestricted, errors.New("private video"))}
	sender := newStubSender()

	s := NewScheduler(extractor, sender, nil, Config{Workers: 1})
	s.Start()
	defer s.Stop()

	s.Enqueue(Job{ID: "job1", UserID: 1, ChatID: 10, URL: "https://example.com/v", Quality: types.QualityAudio})

	assert.Eventually(t, func() bool {
		texts := sender.textsFor(10)
		return len(texts) == 1 && texts[0] == messages.ErrorRestricted()
	}, 5*time.Second, 10*time.Millisecond)

	assert.Empty(t, sender.mediaSnapshot())
}

func TestConcurrentUsersGetTheirOwnArtifacts(t *testing.T) {
	dir := t.TempDir()
	extractor := &stubExtractor{
		dir:   dir,
		delay: 50 * time.Millisecond,
		content: map[string]string{
			"https://example.com/a": "artifact-a",
			"https://example.com/b": "artifact-b",
		},
	}
	sender := newStubSender()

	s := NewScheduler(extractor, sender, nil, Config{Workers: 2})
	s.Start()
	defer s.Stop()

	s.Enqueue(Job{ID: "jobA", UserID: 1, ChatID: 100, URL: "https://example.com/a", Quality: types.QualityHigh})
	s.Enqueue(Job{ID: "jobB", UserID: 2, ChatID: 200, URL: "https://example.com/b", Quality: types.QualityHigh})

	assert.Eventually(t, func() bool {
		return len(sender.mediaSnapshot()) == 2
	}, 5*time.Second, 10*time.Millisecond)

	byChat := map[int64]string{}
	for _, m := range sender.mediaSnapshot() {
		byChat[m.chatID] = m.content
	}
	assert.Equal(t, "artifact-a", byChat[100])
	assert.Equal(t, "artifact-b", byChat[200])

	assert.Eventually(t, noLeftoverFiles(t, dir), 5*time.Second, 10*time.Millisecond)
}

func TestEnqueueDuplicateJobID(t *testing.T) {
	extractor := &stubExtractor{dir: t.TempDir(), delay: time.Second, content: map[string]string{}}
	s := NewScheduler(extractor, newStubSender(), nil, Config{Workers: 1})
	s.Start()
	defer s.Stop()

	assert.Equal(t, 0, s.Enqueue(Job{ID: "dup", ChatID: 1, URL: "https://example.com/v", Quality: types.QualityHigh}))
	assert.Equal(t, -1, s.Enqueue(Job{ID: "dup", ChatID: 1, URL: "https://example.com/v", Quality: types.QualityHigh}))
}
