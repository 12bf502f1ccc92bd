package scheduler

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"github.com/aniworld-dev/media-grab-bot/internal/downloader"
	"github.com/aniworld-dev/media-grab-bot/internal/messages"
	"github.com/aniworld-dev/media-grab-bot/types"
)

// Sender is the slice of the Telegram client the scheduler needs to deliver
// results. *bot.Bot satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendVideo(ctx context.Context, params *bot.SendVideoParams) (*models.Message, error)
	SendAudio(ctx context.Context, params *bot.SendAudioParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
}

// Job is one quality selection to fulfil. URL is a local copy taken when the
// user pressed the button; a newer submission from the same user does not
// affect a job already queued.
type Job struct {
	ID              string
	UserID          int64
	ChatID          int64
	StatusMessageID int
	URL             string
	Quality         types.Quality
}

type Scheduler struct {
	extractor  downloader.Extractor
	sender     Sender
	stats      types.StatsStore
	workers    int
	timeout    time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
	jobQueue   chan Job
	inFlight   map[string]*inFlightEntry
	inFlightMu sync.RWMutex
}

type inFlightEntry struct {
	chatID    int64
	messageID int
	position  int
}

type Config struct {
	Workers int
	Timeout time.Duration
}

func NewScheduler(extractor downloader.Extractor, sender Sender, stats types.StatsStore, config Config) *Scheduler {
	if config.Workers <= 0 {
		config.Workers = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	queueSize := config.Workers * 2
	if queueSize < 10 {
		queueSize = 10
	}

	return &Scheduler{
		extractor: extractor,
		sender:    sender,
		stats:     stats,
		workers:   config.Workers,
		timeout:   config.Timeout,
		ctx:       ctx,
		cancel:    cancel,
		jobQueue:  make(chan Job, queueSize),
		inFlight:  make(map[string]*inFlightEntry),
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	log.Info().Int("workers", s.workers).Msg("scheduler started")

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	log.Info().Msg("stopping scheduler")
	s.cancel()
	s.wg.Wait()
	log.Info().Msg("scheduler stopped")
}

// Enqueue adds a job and returns its queue position: 0 when a worker picks
// it up immediately, otherwise the number of jobs ahead of it.
func (s *Scheduler) Enqueue(job Job) int {
	s.inFlightMu.Lock()
	if _, exists := s.inFlight[job.ID]; exists {
		s.inFlightMu.Unlock()
		return -1
	}

	running := 0
	maxPos := 0
	for _, e := range s.inFlight {
		if e == nil {
			continue
		}
		if e.position == 0 {
			running++
			continue
		}
		if e.position > maxPos {
			maxPos = e.position
		}
	}

	position := 0
	if running >= s.workers {
		position = maxPos + 1
	}

	s.inFlight[job.ID] = &inFlightEntry{
		chatID:    job.ChatID,
		messageID: job.StatusMessageID,
		position:  position,
	}
	s.inFlightMu.Unlock()

	go func() {
		select {
		case s.jobQueue <- job:
		case <-s.ctx.Done():
			s.inFlightMu.Lock()
			delete(s.inFlight, job.ID)
			s.inFlightMu.Unlock()
		}
	}()

	return position
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	log.Debug().Int("worker", id).Msg("worker started")

	for {
		select {
		case <-s.ctx.Done():
			log.Debug().Int("worker", id).Msg("worker stopped")
			return
		case job := <-s.jobQueue:
			if err := s.processJob(job); err != nil {
				log.Error().Err(err).Int("worker", id).Str("job_id", job.ID).
					Int64("user_id", job.UserID).Msg("job failed")
			}

			s.deleteStatusMessage(job)

			s.inFlightMu.Lock()
			delete(s.inFlight, job.ID)
			s.inFlightMu.Unlock()

			go s.decrementQueueAndUpdateMessages()
		}
	}
}

func (s *Scheduler) deleteStatusMessage(job Job) {
	if job.ChatID == 0 || job.StatusMessageID == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := s.sender.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    job.ChatID,
		MessageID: job.StatusMessageID,
	})
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", job.ChatID).Int("message_id", job.StatusMessageID).
			Msg("failed to delete status message")
	}
}

func (s *Scheduler) decrementQueueAndUpdateMessages() {
	type upd struct {
		chatID    int64
		messageID int
		text      string
	}
	updates := make([]upd, 0)

	s.inFlightMu.Lock()
	for _, entry := range s.inFlight {
		if entry == nil || entry.position == 0 {
			continue
		}

		entry.position--

		if entry.chatID == 0 || entry.messageID == 0 {
			continue
		}

		text := messages.QueueStarted()
		if entry.position > 0 {
			text = messages.QueueQueued(entry.position)
		}
		updates = append(updates, upd{chatID: entry.chatID, messageID: entry.messageID, text: text})
	}
	s.inFlightMu.Unlock()

	if len(updates) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	for _, u := range updates {
		_, err := s.sender.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    u.chatID,
			MessageID: u.messageID,
			Text:      u.text,
			ParseMode: messages.ParseModeHTML,
		})
		if err != nil {
			log.Warn().Err(err).Int64("chat_id", u.chatID).Int("message_id", u.messageID).
				Msg("failed to update queue position message")
		}
	}
}

// processJob runs one download end to end: extract under a deadline, deliver
// the artifact, remove the artifact on every exit path.
func (s *Scheduler) processJob(job Job) error {
	started := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := s.extractor.Extract(ctx, job.URL, job.Quality)
	if err != nil {
		s.reportFailure(ctx, job, err)
		s.record(job, outcomeFor(err), err.Error(), started)
		return err
	}

	defer func() {
		if rmErr := os.Remove(result.LocalPath); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Error().Err(rmErr).Str("path", result.LocalPath).Msg("failed to remove artifact")
		}
	}()

	if err := s.deliver(ctx, job, result); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("delivery failed")
		_, _ = s.sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    job.ChatID,
			Text:      messages.ErrorDownloadFailed(err.Error()),
			ParseMode: messages.ParseModeHTML,
		})
		s.record(job, "send_failed", err.Error(), started)
		return err
	}

	s.record(job, "ok", "", started)
	return nil
}

func (s *Scheduler) deliver(ctx context.Context, job Job, result *types.DownloadResult) error {
	file, err := os.Open(result.LocalPath)
	if err != nil {
		return err
	}
	defer file.Close()

	fileName := result.DisplayTitle + filepath.Ext(result.LocalPath)
	upload := &models.InputFileUpload{
		Filename: fileName,
		Data:     file,
	}

	if result.Kind == types.MediaAudio {
		_, err = s.sender.SendAudio(ctx, &bot.SendAudioParams{
			ChatID:  job.ChatID,
			Audio:   upload,
			Caption: result.DisplayTitle,
		})
		return err
	}

	_, err = s.sender.SendVideo(ctx, &bot.SendVideoParams{
		ChatID:  job.ChatID,
		Video:   upload,
		Caption: result.DisplayTitle,
	})
	return err
}

func (s *Scheduler) reportFailure(ctx context.Context, job Job, err error) {
	text := messages.ErrorDownloadFailed(err.Error())

	var dErr *types.DownloadError
	if errors.As(err, &dErr) {
		switch dErr.Kind {
		case types.DownloadRestricted:
			text = messages.ErrorRestricted()
		case types.DownloadArtifactMissing:
			log.Error().Err(err).Str("url", job.URL).
				Msg("extraction reported success but produced no artifact")
			text = messages.ErrorDownloadFailed("")
		}
	}

	_, _ = s.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    job.ChatID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	})
}

func outcomeFor(err error) string {
	var dErr *types.DownloadError
	if errors.As(err, &dErr) {
		return string(dErr.Kind)
	}
	return "error"
}

func (s *Scheduler) record(job Job, outcome, detail string, started time.Time) {
	if s.stats == nil {
		return
	}
	host := ""
	if u, err := url.Parse(job.URL); err == nil {
		host = u.Host
	}
	event := types.DownloadEvent{
		UserID:     job.UserID,
		URLHost:    host,
		Quality:    string(job.Quality),
		Outcome:    outcome,
		Detail:     detail,
		DurationMS: time.Since(started).Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.stats.RecordDownload(event); err != nil {
		log.Warn().Err(err).Msg("failed to record download event")
	}
}
