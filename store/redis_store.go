package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/aniworld-dev/media-grab-bot/types"
)

const (
	redisOpTimeout = 5 * time.Second

	// takeRetries bounds the optimistic-lock retry loop. Losing every
	// round means another press or submission keeps winning; re-reading
	// then resolves to "nothing pending", which is the correct answer.
	takeRetries = 3
)

// RedisSessionStore is an optional deployment choice for multi-instance
// setups. Sessions expire after the TTL; the conversation model tolerates
// that the same way it tolerates a restart with the memory store.
type RedisSessionStore struct {
	client *RedisClient
	ttl    time.Duration
}

func NewRedisSessionStore(redisClient *RedisClient, ttlHours int) *RedisSessionStore {
	ttl := time.Duration(ttlHours) * time.Hour
	if ttlHours <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisSessionStore{
		client: redisClient,
		ttl:    ttl,
	}
}

func (s *RedisSessionStore) sessionKey(userID int64) string {
	return s.client.generateKey("session", fmt.Sprintf("%d", userID))
}

func (s *RedisSessionStore) GetOrCreate(userID, chatID int64) (*types.Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	var session types.Session
	err := s.client.Get(ctx, s.sessionKey(userID), &session)
	if err == nil {
		return &session, nil
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}

	now := time.Now()
	session = types.Session{
		UserID:    userID,
		ChatID:    chatID,
		State:     types.StateUnverified,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.client.Set(ctx, s.sessionKey(userID), &session, s.ttl); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *RedisSessionStore) Get(userID int64) (*types.Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	var session types.Session
	if err := s.client.Get(ctx, s.sessionKey(userID), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *RedisSessionStore) Update(session *types.Session) error {
	if session == nil {
		return fmt.Errorf("nil session")
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	session.UpdatedAt = time.Now()
	return s.client.Set(ctx, s.sessionKey(session.UserID), session, s.ttl)
}

// TakePendingURL reads and clears the pending URL as one atomic step. The
// session key is watched; when two presses race, exactly one commit wins
// and the loser re-reads an empty session.
func (s *RedisSessionStore) TakePendingURL(userID int64) (string, string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	key := s.sessionKey(userID)

	var url, title string
	taken := false

	take := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		var session types.Session
		if err := json.Unmarshal(data, &session); err != nil {
			return err
		}
		if session.PendingURL == "" {
			return nil
		}

		url = session.PendingURL
		title = session.Title
		session.PendingURL = ""
		session.Title = ""
		session.State = types.StateAwaitingLink
		session.UpdatedAt = time.Now()

		payload, err := json.Marshal(&session)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		taken = true
		return nil
	}

	for i := 0; i < takeRetries; i++ {
		url, title, taken = "", "", false
		err := s.client.Watch(ctx, take, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return "", "", false, err
		}
		return url, title, taken, nil
	}
	return "", "", false, nil
}

func (s *RedisSessionStore) Delete(userID int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	return s.client.Del(ctx, s.sessionKey(userID))
}
