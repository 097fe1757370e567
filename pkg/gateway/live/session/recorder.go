package session

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/mira-coach/backend/pkg/gateway/gemini"
	"github.com/mira-coach/backend/pkg/gateway/store"
)

// TitleGenerator names a finished session from its transcript.
type TitleGenerator interface {
	VoiceSessionTitle(ctx context.Context, model string, turns []gemini.TranscriptTurn) (string, error)
}

// Recorder persists the outcome of a voice session: the transcript as a
// conversation, and the minutes against the month's usage. Transcript
// and title writes are best effort; a failure is logged and the rest of
// the record still goes through.
type Recorder struct {
	Store  store.Store
	Titles TitleGenerator
	Model  string
	Logger *slog.Logger
	Now    func() time.Time
}

type RecordInput struct {
	UserID         string
	CoachID        string
	ConversationID string
	Turns          []Turn
	Elapsed        time.Duration
}

// Record writes the session outcome and returns the minutes charged,
// rounded to one decimal.
func (r *Recorder) Record(ctx context.Context, in RecordInput) float64 {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	minutes := math.Round(in.Elapsed.Seconds()/60*10) / 10

	if len(in.Turns) > 0 {
		r.saveTranscript(ctx, logger, in, now)
	}

	if minutes > 0 {
		if err := r.Store.AddVoiceMinutes(ctx, in.UserID, store.MonthKey(now), minutes); err != nil {
			logger.Error("voice usage not recorded", "user_id", in.UserID, "minutes", minutes, "error", err)
		}
	}
	return minutes
}

func (r *Recorder) saveTranscript(ctx context.Context, logger *slog.Logger, in RecordInput, now time.Time) {
	convID := in.ConversationID
	isNew := convID == ""
	if isNew {
		convID = uuid.NewString()
		err := r.Store.CreateConversation(ctx, store.Conversation{
			ID:        convID,
			UserID:    in.UserID,
			CoachID:   in.CoachID,
			Title:     gemini.DefaultTitle,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			logger.Error("transcript conversation not created", "user_id", in.UserID, "error", err)
			return
		}
	}

	msgs := make([]store.Message, 0, len(in.Turns))
	for _, t := range in.Turns {
		msgs = append(msgs, store.Message{
			ID:             uuid.NewString(),
			ConversationID: convID,
			Role:           t.Role,
			Content:        t.Text,
			CreatedAt:      now,
		})
	}
	if err := r.Store.AppendMessages(ctx, convID, msgs); err != nil {
		logger.Error("transcript not saved", "conversation_id", convID, "error", err)
		return
	}
	if err := r.Store.TouchConversation(ctx, convID, len(msgs), now); err != nil {
		logger.Warn("conversation not touched", "conversation_id", convID, "error", err)
	}

	// Titles come from the full consolidated transcript, so a resumed
	// conversation is re-titled too.
	if r.Titles != nil {
		turns := make([]gemini.TranscriptTurn, 0, len(in.Turns))
		for _, t := range in.Turns {
			turns = append(turns, gemini.TranscriptTurn{Role: t.Role, Text: t.Text})
		}
		title, err := r.Titles.VoiceSessionTitle(ctx, r.Model, turns)
		if err != nil {
			logger.Warn("session title not generated", "conversation_id", convID, "error", err)
			return
		}
		if err := r.Store.SetConversationTitle(ctx, convID, title); err != nil {
			logger.Warn("session title not saved", "conversation_id", convID, "error", err)
		}
	}
}
