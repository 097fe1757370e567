package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mira-coach/backend/pkg/gateway/auth"
	"github.com/mira-coach/backend/pkg/gateway/gemini"
	"github.com/mira-coach/backend/pkg/gateway/httpapi"
	"github.com/mira-coach/backend/pkg/gateway/sse"
	"github.com/mira-coach/backend/pkg/gateway/store"
)

// ChatGenerator is the slice of the Gemini client the chat endpoint
// uses.
type ChatGenerator interface {
	StreamChat(ctx context.Context, model, system string, history []gemini.Message, onDelta func(text string) error) error
	ConversationTitle(ctx context.Context, model, firstMessage string) (string, error)
}

// ChatHandler serves one text coaching turn over SSE.
type ChatHandler struct {
	Store  store.Store
	Gemini ChatGenerator
	Logger *slog.Logger

	TextModel         string
	FreeDailyMessages int
	MaxMessageLen     int
}

type chatRequest struct {
	Message        string `json:"message"`
	CoachID        string `json:"coach_id"`
	ConversationID string `json:"conversation_id"`
}

func (h ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, _ := auth.PrincipalFrom(ctx)

	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, httpapi.ErrInvalidRequest, err.Error(), "")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(w, r, httpapi.ErrInvalidRequest, "message is required", "message")
		return
	}
	if utf8.RuneCountInString(req.Message) > h.MaxMessageLen {
		writeError(w, r, httpapi.ErrInvalidRequest, "message is too long", "message")
		return
	}

	user, err := h.Store.EnsureUser(ctx, p.UserID, p.Tier)
	if err != nil {
		writeError(w, r, httpapi.ErrAPI, "failed to load profile", "")
		return
	}

	now := time.Now()
	if p.Tier != store.TierPro {
		sent, err := h.Store.MessagesSentOnDay(ctx, p.UserID, store.DayKey(now))
		if err != nil {
			writeError(w, r, httpapi.ErrAPI, "failed to check message limit", "")
			return
		}
		if sent >= h.FreeDailyMessages {
			writeError(w, r, httpapi.ErrRateLimit, "Daily message limit reached. Upgrade to Pro for unlimited messages.", "")
			return
		}
	}

	rc, err := resolveCoach(ctx, h.Store, p.UserID, p.Tier, req.CoachID)
	if err != nil {
		writeCoachError(w, r, err)
		return
	}

	var (
		conv    store.Conversation
		resumed = req.ConversationID != ""
	)
	if resumed {
		conv, err = h.Store.GetConversation(ctx, p.UserID, req.ConversationID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, r, httpapi.ErrNotFound, "session not found", "conversation_id")
				return
			}
			writeError(w, r, httpapi.ErrAPI, "failed to load session", "")
			return
		}
	} else {
		conv = store.Conversation{
			ID:        uuid.NewString(),
			UserID:    p.UserID,
			CoachID:   rc.ID,
			Title:     gemini.DefaultTitle,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := h.Store.CreateConversation(ctx, conv); err != nil {
			writeError(w, r, httpapi.ErrAPI, "failed to create session", "")
			return
		}
	}

	history, err := h.chatHistory(ctx, conv.ID, req.Message)
	if err != nil {
		writeError(w, r, httpapi.ErrAPI, "failed to load history", "")
		return
	}

	system := rc.Prompt(user.AboutMe, conv.MessageCount, resumed, false)

	stream, err := sse.New(w)
	if err != nil {
		writeError(w, r, httpapi.ErrAPI, "streaming is not supported", "")
		return
	}

	var reply strings.Builder
	streamErr := h.Gemini.StreamChat(ctx, h.TextModel, system, history, func(text string) error {
		reply.WriteString(text)
		return stream.Send("delta", map[string]string{"text": text})
	})
	if streamErr != nil && reply.Len() == 0 {
		_ = stream.Send("error", map[string]string{"message": "The coach is unavailable right now. Please try again."})
		return
	}
	if streamErr != nil {
		h.Logger.Warn("chat stream ended early", "conversation_id", conv.ID, "error", streamErr)
	}

	h.persistTurn(ctx, conv, req.Message, reply.String(), resumed, now)

	_ = stream.Send("done", map[string]string{"conversation_id": conv.ID})
}

func (h ChatHandler) chatHistory(ctx context.Context, convID, userMessage string) ([]gemini.Message, error) {
	stored, err := h.Store.ListMessages(ctx, convID)
	if err != nil {
		return nil, err
	}
	history := make([]gemini.Message, 0, len(stored)+1)
	for _, m := range stored {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		history = append(history, gemini.Message{Role: role, Text: m.Content})
	}
	history = append(history, gemini.Message{Role: "user", Text: userMessage})
	return history, nil
}

// persistTurn is best effort: the reply has already been streamed, so
// storage failures are logged, not surfaced.
func (h ChatHandler) persistTurn(ctx context.Context, conv store.Conversation, userMsg, reply string, resumed bool, now time.Time) {
	msgs := []store.Message{
		{ID: uuid.NewString(), ConversationID: conv.ID, Role: "user", Content: userMsg, CreatedAt: now},
	}
	if reply != "" {
		msgs = append(msgs, store.Message{ID: uuid.NewString(), ConversationID: conv.ID, Role: "assistant", Content: reply, CreatedAt: now})
	}
	if err := h.Store.AppendMessages(ctx, conv.ID, msgs); err != nil {
		h.Logger.Error("chat turn not saved", "conversation_id", conv.ID, "error", err)
		return
	}
	if err := h.Store.TouchConversation(ctx, conv.ID, len(msgs), now); err != nil {
		h.Logger.Warn("conversation not touched", "conversation_id", conv.ID, "error", err)
	}
	if err := h.Store.IncrMessagesSentOnDay(ctx, conv.UserID, store.DayKey(now)); err != nil {
		h.Logger.Error("daily message count not updated", "user_id", conv.UserID, "error", err)
	}

	if !resumed {
		title, err := h.Gemini.ConversationTitle(ctx, h.TextModel, userMsg)
		if err != nil {
			h.Logger.Warn("conversation title not generated", "conversation_id", conv.ID, "error", err)
			return
		}
		if err := h.Store.SetConversationTitle(ctx, conv.ID, title); err != nil {
			h.Logger.Warn("conversation title not saved", "conversation_id", conv.ID, "error", err)
		}
	}
}

func writeCoachError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errCoachNotFound):
		writeError(w, r, httpapi.ErrNotFound, err.Error(), "coach_id")
	case errors.Is(err, errCoachRequiresPro):
		writeError(w, r, httpapi.ErrPermission, err.Error(), "coach_id")
	case errors.Is(err, errCoachForbidden):
		writeError(w, r, httpapi.ErrPermission, "Forbidden", "coach_id")
	default:
		writeError(w, r, httpapi.ErrAPI, "failed to resolve coach", "")
	}
}
