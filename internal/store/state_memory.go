package store

import (
	"context"
	"sync"

	"leave-bot/internal/model"
)

// MemoryState is the in-process counterpart of RedisState.
type MemoryState struct {
	mu       sync.Mutex
	flows    map[string]model.ConversationFlow
	profiles map[string]model.UserProfile
}

func NewMemoryState() *MemoryState {
	return &MemoryState{
		flows:    make(map[string]model.ConversationFlow),
		profiles: make(map[string]model.UserProfile),
	}
}

func (m *MemoryState) LoadFlow(_ context.Context, conversationID string) (*model.ConversationFlow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	flow, ok := m.flows[conversationID]
	if !ok {
		return model.NewConversationFlow(), nil
	}
	flow.BufferedRecognitions = append([]model.RecognitionResult(nil), flow.BufferedRecognitions...)
	return &flow, nil
}

func (m *MemoryState) SaveFlow(_ context.Context, conversationID string, flow *model.ConversationFlow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *flow
	c.BufferedRecognitions = append([]model.RecognitionResult(nil), flow.BufferedRecognitions...)
	m.flows[conversationID] = c
	return nil
}

func (m *MemoryState) LoadProfile(_ context.Context, userID string) (*model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.profiles[userID]
	return &p, nil
}

func (m *MemoryState) SaveProfile(_ context.Context, userID string, profile *model.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles[userID] = *profile
	return nil
}
