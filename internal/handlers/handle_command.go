package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"github.com/aniworld-dev/media-grab-bot/internal/messages"
	"github.com/aniworld-dev/media-grab-bot/types"
)

func (bh *Handlers) HandleCommand(ctx context.Context, update *models.Update, session *types.Session) {
	if update.Message == nil {
		return
	}
	fields := strings.Fields(strings.TrimSpace(update.Message.Text))
	if len(fields) == 0 {
		return
	}
	cmd := fields[0]
	if strings.Contains(cmd, "@") {
		cmd = strings.SplitN(cmd, "@", 2)[0]
	}

	switch cmd {
	case "/start":
		bh.handleStart(ctx, session)
	case "/help":
		_, _ = bh.tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    session.ChatID,
			Text:      messages.Help(),
			ParseMode: messages.ParseModeHTML,
		})
	default:
		_, _ = bh.tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    session.ChatID,
			Text:      messages.ErrorUnknownCommand(),
			ParseMode: messages.ParseModeHTML,
		})
	}
}

// handleStart is the entry point of the gate: membership decides whether the
// user lands in the unverified state or straight at awaiting-link.
func (bh *Handlers) handleStart(ctx context.Context, session *types.Session) {
	decision := bh.membership.Check(ctx, session.UserID)

	if !decision.Allowed() {
		session.State = types.StateUnverified
		if err := bh.sessions.Update(session); err != nil {
			log.Error().Err(err).Int64("user_id", session.UserID).Msg("failed to update session")
		}
		bh.sendJoinPrompt(ctx, session.ChatID)
		return
	}

	session.State = types.StateAwaitingLink
	if err := bh.sessions.Update(session); err != nil {
		log.Error().Err(err).Int64("user_id", session.UserID).Msg("failed to update session")
	}
	_, _ = bh.tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    session.ChatID,
		Text:      messages.StartWelcome(),
		ParseMode: messages.ParseModeHTML,
	})
}
