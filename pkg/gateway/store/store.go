// Package store persists users, conversations, coaches, and voice usage.
// Two implementations exist: Postgres for production and Memory for tests
// and local development.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

const (
	TierFree = "free"
	TierPro  = "pro"
)

type User struct {
	ID             string
	Tier           string
	AboutMe        string
	VoiceTrialUsed bool
	CreatedAt      time.Time
}

type Conversation struct {
	ID           string
	UserID       string
	CoachID      string
	Title        string
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Message struct {
	ID             string
	ConversationID string
	Role           string
	Content        string
	CreatedAt      time.Time
}

type Coach struct {
	ID        string
	OwnerID   string
	Name      string
	Style     string
	Topics    []string
	ShareCode string
	CreatedAt time.Time
}

type Store interface {
	// Users.
	EnsureUser(ctx context.Context, id, tier string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	SetAboutMe(ctx context.Context, id, aboutMe string) error

	// Voice entitlements. MarkVoiceTrialUsed is set-once: once true it
	// never reverts, even if the session that set it fails to start.
	VoiceTrialUsed(ctx context.Context, userID string) (bool, error)
	MarkVoiceTrialUsed(ctx context.Context, userID string) error
	VoiceMinutesForMonth(ctx context.Context, userID, monthKey string) (float64, error)
	// AddVoiceMinutes increments the month row atomically so concurrent
	// sessions never lose an update.
	AddVoiceMinutes(ctx context.Context, userID, monthKey string, minutes float64) error

	// Chat rate limiting.
	MessagesSentOnDay(ctx context.Context, userID, dayKey string) (int, error)
	IncrMessagesSentOnDay(ctx context.Context, userID, dayKey string) error

	// Conversations.
	CreateConversation(ctx context.Context, conv Conversation) error
	GetConversation(ctx context.Context, userID, id string) (Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]Conversation, error)
	DeleteConversation(ctx context.Context, userID, id string) error
	SetConversationTitle(ctx context.Context, id, title string) error
	TouchConversation(ctx context.Context, id string, addedMessages int, at time.Time) error

	// Messages.
	AppendMessages(ctx context.Context, conversationID string, msgs []Message) error
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)

	// Coaches.
	CreateCoach(ctx context.Context, c Coach) error
	GetCoach(ctx context.Context, id string) (Coach, error)
	GetCoachByShareCode(ctx context.Context, code string) (Coach, error)
	ListCoachesByOwner(ctx context.Context, ownerID string) ([]Coach, error)
	AddCoachToLibrary(ctx context.Context, userID, coachID string) error
	ListLibrary(ctx context.Context, userID string) ([]Coach, error)

	Close()
}

// MonthKey returns the UTC month bucket ("2026-08") used for voice usage.
// Monthly reset is implicit: a new month reads an absent row as zero.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// DayKey returns the UTC day bucket used for chat rate limiting.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
