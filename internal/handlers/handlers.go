package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"github.com/aniworld-dev/media-grab-bot/internal/contextkeys"
	"github.com/aniworld-dev/media-grab-bot/internal/messages"
	"github.com/aniworld-dev/media-grab-bot/internal/scheduler"
	"github.com/aniworld-dev/media-grab-bot/types"
)

// Replier is the slice of the Telegram client the handlers need.
// *bot.Bot satisfies it.
type Replier interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

type MembershipChecker interface {
	Check(ctx context.Context, userID int64) types.MembershipDecision
}

type JobEnqueuer interface {
	Enqueue(job scheduler.Job) int
}

type Previewer interface {
	Probe(ctx context.Context, url string) (*types.LinkPreview, error)
}

type Links struct {
	Channel string
	Group   string
}

type Handlers struct {
	tg         Replier
	sessions   types.SessionStore
	membership MembershipChecker
	scheduler  JobEnqueuer
	preview    Previewer
	links      Links
}

func NewHandlers(tg Replier, sessions types.SessionStore, membership MembershipChecker, scheduler JobEnqueuer, preview Previewer, links Links) *Handlers {
	return &Handlers{
		tg:         tg,
		sessions:   sessions,
		membership: membership,
		scheduler:  scheduler,
		preview:    preview,
		links:      links,
	}
}

// MainHandler routes one inbound event through the conversation state
// machine. Every failure ends in a user-facing message; nothing is allowed
// to take the event loop down.
func (bh *Handlers) MainHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := bh.getChatIDFromUpdate(update)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("handler panicked")
			if chatID != 0 {
				_, _ = bh.tg.SendMessage(ctx, &bot.SendMessageParams{
					ChatID:    chatID,
					Text:      messages.ErrorDefault(),
					ParseMode: messages.ParseModeHTML,
				})
			}
		}
	}()

	userID := bh.getUserIDFromUpdate(update)
	if userID == 0 || chatID == 0 {
		return
	}

	session, err := bh.sessions.GetOrCreate(userID, chatID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to load session")
		_, _ = bh.tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      messages.ErrorDefault(),
			ParseMode: messages.ParseModeHTML,
		})
		return
	}

	// Replies always go to the chat the event came from. A session whose
	// first contact was a group /start must not pull later private-chat
	// traffic back into the group.
	if session.ChatID != chatID {
		session.ChatID = chatID
		if err := bh.sessions.Update(session); err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("failed to update session chat")
		}
	}

	messageType, _ := contextkeys.GetMessageType(ctx)
	switch messageType {
	case contextkeys.MessageTypeCommand:
		bh.HandleCommand(ctx, update, session)
	case contextkeys.MessageTypeText:
		bh.HandleText(ctx, update, session)
	case contextkeys.MessageTypeClickButton:
		bh.HandleClickButton(ctx, update, session)
	default:
		_, _ = bh.tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      messages.ErrorUnsupportedMessageType(),
			ParseMode: messages.ParseModeHTML,
		})
	}
}

func (bh *Handlers) getChatIDFromUpdate(update *models.Update) int64 {
	if update == nil {
		return 0
	}
	if update.Message != nil {
		return update.Message.Chat.ID
	}
	if update.CallbackQuery != nil {
		if update.CallbackQuery.Message.Message != nil {
			return update.CallbackQuery.Message.Message.Chat.ID
		}
		if update.CallbackQuery.Message.InaccessibleMessage != nil {
			return update.CallbackQuery.Message.InaccessibleMessage.Chat.ID
		}
	}
	return 0
}

func (bh *Handlers) getUserIDFromUpdate(update *models.Update) int64 {
	if update == nil {
		return 0
	}
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.ID
	}
	return 0
}

// sendJoinPrompt shows the membership gate: two join links plus the
// verification button.
func (bh *Handlers) sendJoinPrompt(ctx context.Context, chatID int64) {
	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "📢 Join Channel", URL: bh.links.Channel}},
			{{Text: "💬 Join Group", URL: bh.links.Group}},
			{{Text: "✅ I've Joined", CallbackData: "verify_join"}},
		},
	}
	_, _ = bh.tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        messages.JoinPrompt(bh.links.Channel, bh.links.Group),
		ParseMode:   messages.ParseModeHTML,
		ReplyMarkup: keyboard,
	})
}

func qualityKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "🎥 High", CallbackData: "dl_high"},
				{Text: "📱 Low", CallbackData: "dl_low"},
				{Text: "🎵 Audio", CallbackData: "dl_audio"},
			},
		},
	}
}
