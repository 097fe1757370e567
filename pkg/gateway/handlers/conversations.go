package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mira-coach/backend/pkg/gateway/auth"
	"github.com/mira-coach/backend/pkg/gateway/httpapi"
	"github.com/mira-coach/backend/pkg/gateway/store"
)

// ConversationsHandler serves the session history routes. Every lookup
// is scoped by the caller's user id; a conversation owned by someone
// else reads as not found.
type ConversationsHandler struct {
	Store store.Store
}

type conversationJSON struct {
	ID           string    `json:"id"`
	CoachID      string    `json:"coach_id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type messageJSON struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (h ConversationsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, _ := auth.PrincipalFrom(ctx)

	convs, err := h.Store.ListConversations(ctx, p.UserID)
	if err != nil {
		writeError(w, r, httpapi.ErrAPI, "failed to list sessions", "")
		return
	}
	out := make([]conversationJSON, 0, len(convs))
	for _, c := range convs {
		out = append(out, conversationJSON{
			ID:           c.ID,
			CoachID:      c.CoachID,
			Title:        c.Title,
			MessageCount: c.MessageCount,
			CreatedAt:    c.CreatedAt,
			UpdatedAt:    c.UpdatedAt,
		})
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (h ConversationsHandler) Messages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, _ := auth.PrincipalFrom(ctx)
	id := chi.URLParam(r, "id")

	if _, err := h.Store.GetConversation(ctx, p.UserID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, httpapi.ErrNotFound, "session not found", "id")
			return
		}
		writeError(w, r, httpapi.ErrAPI, "failed to load session", "")
		return
	}
	msgs, err := h.Store.ListMessages(ctx, id)
	if err != nil {
		writeError(w, r, httpapi.ErrAPI, "failed to load messages", "")
		return
	}
	out := make([]messageJSON, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageJSON{ID: m.ID, Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt})
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"messages": out})
}

func (h ConversationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, _ := auth.PrincipalFrom(ctx)
	id := chi.URLParam(r, "id")

	if err := h.Store.DeleteConversation(ctx, p.UserID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, httpapi.ErrNotFound, "session not found", "id")
			return
		}
		writeError(w, r, httpapi.ErrAPI, "failed to delete session", "")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
