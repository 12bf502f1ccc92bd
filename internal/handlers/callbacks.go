package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aniworld-dev/media-grab-bot/internal/contextkeys"
	"github.com/aniworld-dev/media-grab-bot/internal/messages"
	"github.com/aniworld-dev/media-grab-bot/internal/scheduler"
	"github.com/aniworld-dev/media-grab-bot/types"
)

func (bh *Handlers) HandleClickButton(ctx context.Context, update *models.Update, session *types.Session) {
	if update.CallbackQuery == nil {
		return
	}

	data, _ := contextkeys.GetCallbackData(ctx)
	if data == "" {
		data = update.CallbackQuery.Data
	}
	data = strings.TrimSpace(data)

	switch {
	case data == "verify_join":
		bh.handleVerifyJoin(ctx, update, session)
	case strings.HasPrefix(data, "dl_"):
		bh.handleQualitySelection(ctx, update, session, strings.TrimPrefix(data, "dl_"))
	default:
		_ = bh.answerCallback(ctx, update.CallbackQuery.ID, "")
	}
}

// handleVerifyJoin re-checks membership when the user claims to have joined.
// Denial answers with a toast so the join buttons stay usable; success
// replaces the prompt with the welcome text.
func (bh *Handlers) handleVerifyJoin(ctx context.Context, update *models.Update, session *types.Session) {
	decision := bh.membership.Check(ctx, session.UserID)

	if !decision.Allowed() {
		_ = bh.answerCallback(ctx, update.CallbackQuery.ID, messages.NotYetJoined())
		return
	}

	session.State = types.StateAwaitingLink
	if err := bh.sessions.Update(session); err != nil {
		log.Error().Err(err).Int64("user_id", session.UserID).Msg("failed to update session")
	}

	_ = bh.answerCallback(ctx, update.CallbackQuery.ID, "")
	if update.CallbackQuery.Message.Message != nil {
		msg := update.CallbackQuery.Message.Message
		_, _ = bh.tg.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    msg.Chat.ID,
			MessageID: msg.ID,
			Text:      messages.Verified(),
			ParseMode: messages.ParseModeHTML,
		})
		return
	}
	_, _ = bh.tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    session.ChatID,
		Text:      messages.Verified(),
		ParseMode: messages.ParseModeHTML,
	})
}

// handleQualitySelection consumes the pending URL and hands the download to
// the worker pool. The URL is copied out of the session here; later
// submissions from the same user cannot touch a job already queued.
func (bh *Handlers) handleQualitySelection(ctx context.Context, update *models.Update, session *types.Session, selector string) {
	quality, ok := types.ParseQuality(selector)
	if !ok {
		// The bot only ever emits the three known buttons; anything else
		// is a stale or forged payload.
		_ = bh.answerCallback(ctx, update.CallbackQuery.ID, "")
		return
	}

	pendingURL, _, found, err := bh.sessions.TakePendingURL(session.UserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", session.UserID).Msg("failed to take pending url")
		_ = bh.answerCallback(ctx, update.CallbackQuery.ID, "")
		_, _ = bh.tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    session.ChatID,
			Text:      messages.ErrorDefault(),
			ParseMode: messages.ParseModeHTML,
		})
		return
	}
	if !found {
		_ = bh.answerCallback(ctx, update.CallbackQuery.ID, "")
		_, _ = bh.tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    session.ChatID,
			Text:      messages.NoPendingLink(),
			ParseMode: messages.ParseModeHTML,
		})
		return
	}

	_ = bh.answerCallback(ctx, update.CallbackQuery.ID, "")

	statusMsg, _ := bh.tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    session.ChatID,
		Text:      messages.QueueStarted(),
		ParseMode: messages.ParseModeHTML,
	})
	statusMessageID := 0
	if statusMsg != nil {
		statusMessageID = statusMsg.ID
	}

	position := bh.scheduler.Enqueue(scheduler.Job{
		ID:              uuid.New().String(),
		UserID:          session.UserID,
		ChatID:          session.ChatID,
		StatusMessageID: statusMessageID,
		URL:             pendingURL,
		Quality:         quality,
	})

	if position > 0 && statusMessageID != 0 {
		_, _ = bh.tg.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    session.ChatID,
			MessageID: statusMessageID,
			Text:      messages.QueueQueued(position),
			ParseMode: messages.ParseModeHTML,
		})
	}
}

func (bh *Handlers) answerCallback(ctx context.Context, callbackID, text string) error {
	_, err := bh.tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	return err
}
