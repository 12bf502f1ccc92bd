package membership

import (
	"context"
	"errors"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testChannelID = int64(-1001)
	testGroupID   = int64(-1002)
)

type stubChatMemberAPI struct {
	byChat map[int64]*models.ChatMember
	err    error
}

func (s *stubChatMemberAPI) GetChatMember(_ context.Context, params *bot.GetChatMemberParams) (*models.ChatMember, error) {
	if s.err != nil {
		return nil, s.err
	}
	chatID, ok := params.ChatID.(int64)
	if !ok {
		return nil, errors.New("unexpected chat id type")
	}
	member, ok := s.byChat[chatID]
	if !ok {
		return nil, errors.New("chat not found")
	}
	return member, nil
}

func member(t models.ChatMemberType) *models.ChatMember {
	return &models.ChatMember{Type: t}
}

func TestCheckAllowedWhenMemberOfBoth(t *testing.T) {
	api := &stubChatMemberAPI{byChat: map[int64]*models.ChatMember{
		testChannelID: member(models.ChatMemberTypeMember),
		testGroupID:   member(models.ChatMemberTypeAdministrator),
	}}
	checker := NewChecker(api, testChannelID, testGroupID)

	decision := checker.Check(context.Background(), 42)
	require.True(t, decision.IsChannelMember)
	require.True(t, decision.IsGroupMember)
	assert.True(t, decision.Allowed())
}

func TestCheckDeniedWhenMissingOneChat(t *testing.T) {
	api := &stubChatMemberAPI{byChat: map[int64]*models.ChatMember{
		testChannelID: member(models.ChatMemberTypeMember),
		testGroupID:   member(models.ChatMemberTypeLeft),
	}}
	checker := NewChecker(api, testChannelID, testGroupID)

	decision := checker.Check(context.Background(), 42)
	assert.True(t, decision.IsChannelMember)
	assert.False(t, decision.IsGroupMember)
	assert.False(t, decision.Allowed())
}

func TestCheckRestrictedCountsAsDenied(t *testing.T) {
	api := &stubChatMemberAPI{byChat: map[int64]*models.ChatMember{
		testChannelID: member(models.ChatMemberTypeRestricted),
		testGroupID:   member(models.ChatMemberTypeMember),
	}}
	checker := NewChecker(api, testChannelID, testGroupID)

	assert.False(t, checker.Check(context.Background(), 42).Allowed())
}

func TestCheckFailsClosedOnTransportError(t *testing.T) {
	api := &stubChatMemberAPI{err: errors.New("timeout")}
	checker := NewChecker(api, testChannelID, testGroupID)

	decision := checker.Check(context.Background(), 42)
	assert.False(t, decision.IsChannelMember)
	assert.False(t, decision.IsGroupMember)
	assert.False(t, decision.Allowed())
}

func TestStatusAllowedMatrix(t *testing.T) {
	cases := []struct {
		status  models.ChatMemberType
		allowed bool
	}{
		{models.ChatMemberTypeOwner, true},
		{models.ChatMemberTypeAdministrator, true},
		{models.ChatMemberTypeMember, true},
		{models.ChatMemberTypeRestricted, false},
		{models.ChatMemberTypeLeft, false},
		{models.ChatMemberTypeBanned, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, statusAllowed(member(tc.status)), "status %v", tc.status)
	}
	assert.False(t, statusAllowed(nil))
}
