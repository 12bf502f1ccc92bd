package middleware

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/aniworld-dev/media-grab-bot/internal/contextkeys"
)

type Middlewares struct{}

func NewMessageAnalyzer() *Middlewares {
	return &Middlewares{}
}

// AnalyzeMessageMiddleware classifies an update into a command, a free-text
// message or a button press and drops everything the bot has no business
// reacting to. Free text coming from group or channel chats is ignored
// entirely so the bot stays silent on unrelated group traffic; explicit
// commands still go through.
func (ma *Middlewares) AnalyzeMessageMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.CallbackQuery != nil && update.CallbackQuery.Data != "" {
			newCtx := contextkeys.WithMessageType(ctx, contextkeys.MessageTypeClickButton)
			newCtx = contextkeys.WithCallbackData(newCtx, update.CallbackQuery.Data)
			next(newCtx, b, update)
			return
		}

		if update.Message == nil || update.Message.From == nil {
			return
		}

		text := strings.TrimSpace(update.Message.Text)
		if strings.HasPrefix(text, "/") {
			next(contextkeys.WithMessageType(ctx, contextkeys.MessageTypeCommand), b, update)
			return
		}

		if update.Message.Chat.Type != models.ChatTypePrivate {
			return
		}
		if text == "" {
			next(contextkeys.WithMessageType(ctx, contextkeys.MessageTypeUnknown), b, update)
			return
		}

		next(contextkeys.WithMessageType(ctx, contextkeys.MessageTypeText), b, update)
	}
}
