package membership

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"github.com/aniworld-dev/media-grab-bot/types"
)

// ChatMemberAPI is the slice of the Telegram client the checker needs.
// *bot.Bot satisfies it.
type ChatMemberAPI interface {
	GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*models.ChatMember, error)
}

type Checker struct {
	api       ChatMemberAPI
	channelID int64
	groupID   int64
}

func NewChecker(api ChatMemberAPI, channelID, groupID int64) *Checker {
	return &Checker{
		api:       api,
		channelID: channelID,
		groupID:   groupID,
	}
}

// Check queries the user's status in both required chats. Any transport
// failure counts as not-a-member: ambiguity must never grant access.
func (c *Checker) Check(ctx context.Context, userID int64) types.MembershipDecision {
	decision := types.MembershipDecision{UserID: userID}
	decision.IsChannelMember = c.isMember(ctx, c.channelID, userID)
	decision.IsGroupMember = c.isMember(ctx, c.groupID, userID)
	return decision
}

func (c *Checker) isMember(ctx context.Context, chatID, userID int64) bool {
	member, err := c.api.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: chatID,
		UserID: userID,
	})
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Int64("user_id", userID).
			Msg("membership check failed, treating as not a member")
		return false
	}
	return statusAllowed(member)
}

// statusAllowed admits member, administrator and owner. Restricted users are
// present in the chat but treated as not joined, same as the left and banned
// statuses.
func statusAllowed(member *models.ChatMember) bool {
	if member == nil {
		return false
	}
	switch member.Type {
	case models.ChatMemberTypeOwner,
		models.ChatMemberTypeAdministrator,
		models.ChatMemberTypeMember:
		return true
	default:
		return false
	}
}
