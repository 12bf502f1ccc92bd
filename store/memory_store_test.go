package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aniworld-dev/media-grab-bot/types"
)

func TestGetOrCreateIsLazy(t *testing.T) {
	s := NewMemorySessionStore()

	_, err := s.Get(7)
	require.Error(t, err)

	session, err := s.GetOrCreate(7, 70)
	require.NoError(t, err)
	assert.Equal(t, int64(7), session.UserID)
	assert.Equal(t, int64(70), session.ChatID)
	assert.Equal(t, types.StateUnverified, session.State)
	assert.Empty(t, session.PendingURL)

	again, err := s.GetOrCreate(7, 70)
	require.NoError(t, err)
	assert.Equal(t, session.CreatedAt, again.CreatedAt)
}

func TestPendingURLLastWriteWins(t *testing.T) {
	s := NewMemorySessionStore()
	session, err := s.GetOrCreate(1, 10)
	require.NoError(t, err)

	session.PendingURL = "https://example.com/first"
	session.State = types.StateAwaitingQuality
	require.NoError(t, s.Update(session))

	session.PendingURL = "https://example.com/second"
	require.NoError(t, s.Update(session))

	url, _, ok, err := s.TakePendingURL(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/second", url)
}

func TestTakePendingURLClearsAndResetsState(t *testing.T) {
	s := NewMemorySessionStore()
	session, err := s.GetOrCreate(1, 10)
	require.NoError(t, err)

	session.PendingURL = "https://example.com/video"
	session.Title = "Demo"
	session.State = types.StateAwaitingQuality
	require.NoError(t, s.Update(session))

	url, title, ok, err := s.TakePendingURL(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/video", url)
	assert.Equal(t, "Demo", title)

	after, err := s.Get(1)
	require.NoError(t, err)
	assert.Empty(t, after.PendingURL)
	assert.Equal(t, types.StateAwaitingLink, after.State)

	_, _, ok, err = s.TakePendingURL(1)
	require.NoError(t, err)
	assert.False(t, ok, "second take must find nothing")
}

func TestTakePendingURLWithoutSession(t *testing.T) {
	s := NewMemorySessionStore()
	_, _, ok, err := s.TakePendingURL(99)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateDoesNotShareMemoryWithCaller(t *testing.T) {
	s := NewMemorySessionStore()
	session, err := s.GetOrCreate(1, 10)
	require.NoError(t, err)

	session.PendingURL = "https://example.com/a"
	require.NoError(t, s.Update(session))

	// Mutating the caller's copy after Update must not leak into the store.
	session.PendingURL = "https://example.com/b"

	stored, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", stored.PendingURL)
}

func TestConcurrentAccessDistinctUsers(t *testing.T) {
	s := NewMemorySessionStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := int64(n)
			session, err := s.GetOrCreate(userID, userID*10)
			if err != nil {
				t.Error(err)
				return
			}
			session.PendingURL = fmt.Sprintf("https://example.com/%d", n)
			session.State = types.StateAwaitingQuality
			if err := s.Update(session); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		url, _, ok, err := s.TakePendingURL(int64(i))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("https://example.com/%d", i), url)
	}
}
