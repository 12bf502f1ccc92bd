package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aniworld-dev/media-grab-bot/internal/config"
	"github.com/aniworld-dev/media-grab-bot/internal/downloader"
	"github.com/aniworld-dev/media-grab-bot/internal/handlers"
	"github.com/aniworld-dev/media-grab-bot/internal/health"
	"github.com/aniworld-dev/media-grab-bot/internal/membership"
	"github.com/aniworld-dev/media-grab-bot/internal/middleware"
	"github.com/aniworld-dev/media-grab-bot/internal/scheduler"
	"github.com/aniworld-dev/media-grab-bot/store"
	"github.com/aniworld-dev/media-grab-bot/types"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("LOG_PRETTY") != "" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var sessions types.SessionStore
	if cfg.RedisAddr != "" {
		rdb, err := store.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "media_grab_bot")
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer rdb.Close()
		sessions = store.NewRedisSessionStore(rdb, 24)
		log.Info().Str("addr", cfg.RedisAddr).Msg("using Redis session store")
	} else {
		sessions = store.NewMemorySessionStore()
	}

	var stats types.StatsStore
	if cfg.PostgresDSN != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Postgres")
		}
		defer pgStore.Close()
		stats = pgStore
		log.Info().Msg("download log enabled")
	}

	httpClient := &http.Client{
		Timeout: 10 * time.Minute,
	}
	pollTimeout := 50 * time.Second

	b, err := bot.New(
		cfg.BotToken,
		bot.WithHTTPClient(pollTimeout, httpClient),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bot")
	}

	extractor := downloader.NewYtdlpExtractor(cfg.DownloadDir, cfg.CookiesFile)

	checker := membership.NewChecker(b, cfg.ChannelID, cfg.GroupID)

	sched := scheduler.NewScheduler(extractor, b, stats, scheduler.Config{
		Workers: cfg.Workers,
		Timeout: cfg.DownloadTimeout,
	})
	sched.Start()
	defer sched.Stop()

	h := handlers.NewHandlers(b, sessions, checker, sched, extractor, handlers.Links{
		Channel: cfg.ChannelLink,
		Group:   cfg.GroupLink,
	})

	middlewares := middleware.NewMessageAnalyzer()
	handlerChain := middlewares.AnalyzeMessageMiddleware(h.MainHandler)

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil
	}, handlerChain)

	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, handlerChain)

	go health.NewServer(cfg.HTTPPort).Run(ctx)

	log.Info().Msg("bot started, press Ctrl+C to stop")
	b.Start(ctx)
}
