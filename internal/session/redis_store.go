package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// saveScript writes the session only if the stored version still equals
// ARGV[1]. Returns 1 on success, 0 on a version mismatch and -1 when the
// session no longer exists.
const saveScript = `
local current = redis.call('GET', KEYS[1])
local expected = tonumber(ARGV[1])
if current then
  local stored = cjson.decode(current)
  if tonumber(stored['version']) ~= expected then
    return 0
  end
elseif expected ~= 0 then
  return -1
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`

// RedisStore keeps sessions in Redis as JSON with a sliding TTL.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a new RedisStore.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

func sessionKey(id string) string {
	return keyPrefix + id
}

// Load returns the session stored under id.
func (s *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &sess, nil
}

// Save writes sess if nobody saved it since it was loaded, and bumps its version.
// A session with version 0 is created and must not exist yet.
func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	expected := sess.Version
	previousUpdate := sess.UpdatedAt
	sess.Version = expected + 1
	sess.UpdatedAt = s.now()

	payload, err := json.Marshal(sess)
	if err != nil {
		sess.Version, sess.UpdatedAt = expected, previousUpdate
		return fmt.Errorf("failed to encode session %s: %w", sess.ID, err)
	}

	result, err := s.client.Eval(ctx, saveScript, []string{sessionKey(sess.ID)},
		expected, string(payload), s.ttl.Milliseconds()).Int64()
	if err == nil && result != 1 {
		switch result {
		case 0:
			err = ErrStaleSession
		default:
			err = ErrSessionNotFound
		}
	}
	if err != nil {
		sess.Version, sess.UpdatedAt = expected, previousUpdate
		if errors.Is(err, ErrStaleSession) || errors.Is(err, ErrSessionNotFound) {
			return err
		}
		return fmt.Errorf("failed to save session %s: %w", sess.ID, err)
	}
	return nil
}

// Replace overwrites whatever is stored under sess.ID and starts it at version 1.
func (s *RedisStore) Replace(ctx context.Context, sess *Session) error {
	sess.Version = 1
	sess.UpdatedAt = s.now()

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", sess.ID, err)
	}
	if err := s.client.Set(ctx, sessionKey(sess.ID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to replace session %s: %w", sess.ID, err)
	}
	return nil
}

// Delete removes the session stored under id.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}
