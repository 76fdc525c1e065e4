package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultVerificationPrefix = "verification:"

// Entries are hashes with the fields v (value), e (expiry, unix millis)
// and a (attempts).

// consumeScript reads and deletes a key in one step.
var consumeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
local v = redis.call('HMGET', KEYS[1], 'v', 'e', 'a')
redis.call('DEL', KEYS[1])
return v
`)

// incrementScript bumps the attempt counter of an existing key only, so a
// deleted or expired entry is never recreated.
var incrementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
redis.call('HINCRBY', KEYS[1], 'a', 1)
return redis.call('HMGET', KEYS[1], 'v', 'e', 'a')
`)

// RedisVerificationStore keeps verifications in Redis with a native TTL.
type RedisVerificationStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisVerificationStore uses "verification:" when prefix is empty.
func NewRedisVerificationStore(client redis.UniversalClient, prefix string) *RedisVerificationStore {
	if prefix == "" {
		prefix = defaultVerificationPrefix
	}
	return &RedisVerificationStore{client: client, prefix: prefix}
}

func (s *RedisVerificationStore) Set(ctx context.Context, v Verification) error {
	ttl := time.Until(v.ExpiresAt)
	if ttl <= 0 {
		return s.Delete(ctx, v.Identifier)
	}
	key := s.prefix + v.Identifier
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, "v", v.Value, "e", v.ExpiresAt.UnixMilli(), "a", v.Attempts)
		p.PExpire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisVerificationStore) Get(ctx context.Context, identifier string) (Verification, error) {
	vals, err := s.client.HMGet(ctx, s.prefix+identifier, "v", "e", "a").Result()
	return s.decode(identifier, vals, err)
}

func (s *RedisVerificationStore) Consume(ctx context.Context, identifier string) (Verification, error) {
	vals, err := consumeScript.Run(ctx, s.client, []string{s.prefix + identifier}).Slice()
	return s.decode(identifier, vals, err)
}

func (s *RedisVerificationStore) IncrementAttempts(ctx context.Context, identifier string) (Verification, error) {
	vals, err := incrementScript.Run(ctx, s.client, []string{s.prefix + identifier}).Slice()
	return s.decode(identifier, vals, err)
}

func (s *RedisVerificationStore) Delete(ctx context.Context, identifier string) error {
	if err := s.client.Del(ctx, s.prefix+identifier).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisVerificationStore) decode(identifier string, vals []any, err error) (Verification, error) {
	if errors.Is(err, redis.Nil) {
		return Verification{}, ErrVerificationNotFound
	}
	if err != nil {
		return Verification{}, errors.Join(ErrStoreUnavailable, err)
	}
	if len(vals) != 3 || vals[0] == nil {
		return Verification{}, ErrVerificationNotFound
	}

	value, _ := vals[0].(string)
	expires, err := strconv.ParseInt(fmt.Sprint(vals[1]), 10, 64)
	if err != nil {
		return Verification{}, fmt.Errorf("decode verification %q expiry: %w", identifier, err)
	}
	attempts, err := strconv.Atoi(fmt.Sprint(vals[2]))
	if err != nil {
		return Verification{}, fmt.Errorf("decode verification %q attempts: %w", identifier, err)
	}

	v := Verification{Identifier: identifier, Value: value, ExpiresAt: time.UnixMilli(expires), Attempts: attempts}
	if v.Expired(time.Now()) {
		return Verification{}, ErrVerificationNotFound
	}
	return v, nil
}
