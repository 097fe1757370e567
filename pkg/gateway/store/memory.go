package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is an in-memory Store used by tests and for local development
// without a database.
type Memory struct {
	mu            sync.Mutex
	users         map[string]User
	voiceMinutes  map[string]float64 // userID|monthKey
	dailyMessages map[string]int     // userID|dayKey
	conversations map[string]Conversation
	messages      map[string][]Message // conversationID
	coaches       map[string]Coach
	library       map[string][]string // userID -> coach IDs
}

func NewMemory() *Memory {
	return &Memory{
		users:         make(map[string]User),
		voiceMinutes:  make(map[string]float64),
		dailyMessages: make(map[string]int),
		conversations: make(map[string]Conversation),
		messages:      make(map[string][]Message),
		coaches:       make(map[string]Coach),
		library:       make(map[string][]string),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) EnsureUser(_ context.Context, id, tier string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		if tier != "" && u.Tier != tier {
			u.Tier = tier
			m.users[id] = u
		}
		return u, nil
	}
	if tier == "" {
		tier = TierFree
	}
	u := User{ID: id, Tier: tier, CreatedAt: time.Now().UTC()}
	m.users[id] = u
	return u, nil
}

func (m *Memory) GetUser(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) SetAboutMe(_ context.Context, id, aboutMe string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.AboutMe = aboutMe
	m.users[id] = u
	return nil
}

func (m *Memory) VoiceTrialUsed(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return false, ErrNotFound
	}
	return u.VoiceTrialUsed, nil
}

func (m *Memory) MarkVoiceTrialUsed(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.VoiceTrialUsed = true
	m.users[userID] = u
	return nil
}

func (m *Memory) VoiceMinutesForMonth(_ context.Context, userID, monthKey string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.voiceMinutes[userID+"|"+monthKey], nil
}

func (m *Memory) AddVoiceMinutes(_ context.Context, userID, monthKey string, minutes float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voiceMinutes[userID+"|"+monthKey] += minutes
	return nil
}

func (m *Memory) MessagesSentOnDay(_ context.Context, userID, dayKey string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dailyMessages[userID+"|"+dayKey], nil
}

func (m *Memory) IncrMessagesSentOnDay(_ context.Context, userID, dayKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyMessages[userID+"|"+dayKey]++
	return nil
}

func (m *Memory) CreateConversation(_ context.Context, conv Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[conv.ID]; ok {
		return ErrAlreadyExists
	}
	m.conversations[conv.ID] = conv
	return nil
}

func (m *Memory) GetConversation(_ context.Context, userID, id string) (Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok || conv.UserID != userID {
		return Conversation{}, ErrNotFound
	}
	return conv, nil
}

func (m *Memory) ListConversations(_ context.Context, userID string) ([]Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Conversation, 0)
	for _, conv := range m.conversations {
		if conv.UserID == userID {
			out = append(out, conv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *Memory) DeleteConversation(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok || conv.UserID != userID {
		return ErrNotFound
	}
	delete(m.conversations, id)
	delete(m.messages, id)
	return nil
}

func (m *Memory) SetConversationTitle(_ context.Context, id, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok {
		return ErrNotFound
	}
	conv.Title = title
	m.conversations[id] = conv
	return nil
}

func (m *Memory) TouchConversation(_ context.Context, id string, addedMessages int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok {
		return ErrNotFound
	}
	conv.MessageCount += addedMessages
	conv.UpdatedAt = at
	m.conversations[id] = conv
	return nil
}

func (m *Memory) AppendMessages(_ context.Context, conversationID string, msgs []Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[conversationID]; !ok {
		return ErrNotFound
	}
	m.messages[conversationID] = append(m.messages[conversationID], msgs...)
	return nil
}

func (m *Memory) ListMessages(_ context.Context, conversationID string) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[conversationID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (m *Memory) CreateCoach(_ context.Context, c Coach) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.coaches[c.ID]; ok {
		return ErrAlreadyExists
	}
	m.coaches[c.ID] = c
	return nil
}

func (m *Memory) GetCoach(_ context.Context, id string) (Coach, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coaches[id]
	if !ok {
		return Coach{}, ErrNotFound
	}
	return c, nil
}

func (m *Memory) GetCoachByShareCode(_ context.Context, code string) (Coach, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.coaches {
		if c.ShareCode == code {
			return c, nil
		}
	}
	return Coach{}, ErrNotFound
}

func (m *Memory) ListCoachesByOwner(_ context.Context, ownerID string) ([]Coach, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Coach, 0)
	for _, c := range m.coaches {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) AddCoachToLibrary(_ context.Context, userID, coachID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.coaches[coachID]; !ok {
		return ErrNotFound
	}
	for _, id := range m.library[userID] {
		if id == coachID {
			return nil
		}
	}
	m.library[userID] = append(m.library[userID], coachID)
	return nil
}

func (m *Memory) ListLibrary(_ context.Context, userID string) ([]Coach, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Coach, 0, len(m.library[userID]))
	for _, id := range m.library[userID] {
		if c, ok := m.coaches[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Memory) Close() {}
