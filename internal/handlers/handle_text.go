package handlers

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"github.com/aniworld-dev/media-grab-bot/internal/messages"
	"github.com/aniworld-dev/media-grab-bot/types"
)

const previewTimeout = 30 * time.Second

// HandleText handles a link submission. Membership is re-verified on every
// submission; a valid link overwrites any prior pending one.
func (bh *Handlers) HandleText(ctx context.Context, update *models.Update, session *types.Session) {
	if update.Message == nil {
		return
	}
	text := strings.TrimSpace(update.Message.Text)

	decision := bh.membership.Check(ctx, session.UserID)
	if !decision.Allowed() {
		session.State = types.StateUnverified
		if err := bh.sessions.Update(session); err != nil {
			log.Error().Err(err).Int64("user_id", session.UserID).Msg("failed to update session")
		}
		bh.sendJoinPrompt(ctx, session.ChatID)
		return
	}

	if !isValidMediaURL(text) {
		_, _ = bh.tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    session.ChatID,
			Text:      messages.InvalidURL(),
			ParseMode: messages.ParseModeHTML,
		})
		return
	}

	preview := bh.probePreview(ctx, text)

	session.PendingURL = text
	session.Title = preview.Title
	session.State = types.StateAwaitingQuality
	if err := bh.sessions.Update(session); err != nil {
		log.Error().Err(err).Int64("user_id", session.UserID).Msg("failed to store pending url")
		_, _ = bh.tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    session.ChatID,
			Text:      messages.ErrorDefault(),
			ParseMode: messages.ParseModeHTML,
		})
		return
	}

	caption := messages.ChooseQuality(preview.Title)
	if preview.ThumbnailURL != "" {
		_, err := bh.tg.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:      session.ChatID,
			Photo:       &models.InputFileString{Data: preview.ThumbnailURL},
			Caption:     caption,
			ParseMode:   messages.ParseModeHTML,
			ReplyMarkup: qualityKeyboard(),
		})
		if err == nil {
			return
		}
		log.Warn().Err(err).Msg("thumbnail send failed, falling back to text")
	}

	_, _ = bh.tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      session.ChatID,
		Text:        caption,
		ParseMode:   messages.ParseModeHTML,
		ReplyMarkup: qualityKeyboard(),
	})
}

// probePreview fetches title and thumbnail for the quality prompt. Preview
// failure is never fatal; the prompt falls back to a generic title.
func (bh *Handlers) probePreview(ctx context.Context, link string) types.LinkPreview {
	if bh.preview == nil {
		return types.LinkPreview{}
	}
	probeCtx, cancel := context.WithTimeout(ctx, previewTimeout)
	defer cancel()

	preview, err := bh.preview.Probe(probeCtx, link)
	if err != nil || preview == nil {
		log.Debug().Err(err).Str("url", link).Msg("metadata preview failed")
		return types.LinkPreview{}
	}
	return *preview
}

func isValidMediaURL(s string) bool {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Host != ""
}
