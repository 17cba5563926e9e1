package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"leave-bot/internal/model"
)

const (
	flowKeyPrefix    = "leavebot:flow:"
	profileKeyPrefix = "leavebot:profile:"
)

func FlowKey(conversationID string) string {
	return flowKeyPrefix + conversationID
}

func ProfileKey(userID string) string {
	return profileKeyPrefix + userID
}

// RedisState keeps conversation flows and user profiles as JSON strings.
// Flows expire after ttl. Profiles outlive conversations and never expire
// unless WithProfileTTL says otherwise. A zero ttl keeps keys forever.
type RedisState struct {
	rdb        *redis.Client
	ttl        time.Duration
	profileTTL time.Duration
}

func NewRedisState(rdb *redis.Client, ttl time.Duration) *RedisState {
	return &RedisState{rdb: rdb, ttl: ttl}
}

// WithProfileTTL sets the expiry of profile keys.
func (s *RedisState) WithProfileTTL(ttl time.Duration) *RedisState {
	s.profileTTL = ttl
	return s
}

// LoadFlow returns a fresh flow when the conversation has no saved state.
func (s *RedisState) LoadFlow(ctx context.Context, conversationID string) (*model.ConversationFlow, error) {
	flow := model.NewConversationFlow()
	found, err := s.get(ctx, FlowKey(conversationID), flow)
	if err != nil {
		return nil, fmt.Errorf("load flow: %w", err)
	}
	if !found {
		return model.NewConversationFlow(), nil
	}
	return flow, nil
}

func (s *RedisState) SaveFlow(ctx context.Context, conversationID string, flow *model.ConversationFlow) error {
	if err := s.set(ctx, FlowKey(conversationID), flow, s.ttl); err != nil {
		return fmt.Errorf("save flow: %w", err)
	}
	return nil
}

func (s *RedisState) LoadProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	profile := &model.UserProfile{}
	if _, err := s.get(ctx, ProfileKey(userID), profile); err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return profile, nil
}

func (s *RedisState) SaveProfile(ctx context.Context, userID string, profile *model.UserProfile) error {
	if err := s.set(ctx, ProfileKey(userID), profile, s.profileTTL); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (s *RedisState) get(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *RedisState) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.rdb.Set(ctx, key, data, ttl).Err()
}

// ConnectRedis opens a client and checks it with a ping.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}
