package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mira-coach/backend/pkg/gateway/auth"
	"github.com/mira-coach/backend/pkg/gateway/coach"
	"github.com/mira-coach/backend/pkg/gateway/httpapi"
	"github.com/mira-coach/backend/pkg/gateway/store"
)

const shareCodeRetries = 5

type CoachesHandler struct {
	Store store.Store
}

type coachJSON struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Style       string   `json:"style,omitempty"`
	Topics      []string `json:"topics,omitempty"`
	Voice       string   `json:"voice"`
	RequiresPro bool     `json:"requires_pro"`
	ShareCode   string   `json:"share_code,omitempty"`
	BuiltIn     bool     `json:"built_in"`
}

func builtInJSON(id string) coachJSON {
	return coachJSON{
		ID:          id,
		Name:        coach.Name(id),
		Voice:       coach.Voice(id),
		RequiresPro: coach.RequiresPro(id),
		BuiltIn:     true,
	}
}

func customJSON(c store.Coach, includeCode bool) coachJSON {
	out := coachJSON{
		ID:     c.ID,
		Name:   c.Name,
		Style:  c.Style,
		Topics: c.Topics,
		Voice:  coach.DefaultVoice,
	}
	if includeCode {
		out.ShareCode = c.ShareCode
	}
	return out
}

// List returns the built-in coaches, the caller's own custom coaches,
// and coaches added from share codes.
func (h CoachesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, _ := auth.PrincipalFrom(ctx)

	out := make([]coachJSON, 0, 8)
	for _, id := range coach.BuiltInIDs() {
		out = append(out, builtInJSON(id))
	}

	owned, err := h.Store.ListCoachesByOwner(ctx, p.UserID)
	if err != nil {
		writeError(w, r, httpapi.ErrAPI, "failed to list coaches", "")
		return
	}
	seen := make(map[string]struct{}, len(owned))
	for _, c := range owned {
		seen[c.ID] = struct{}{}
		out = append(out, customJSON(c, true))
	}

	library, err := h.Store.ListLibrary(ctx, p.UserID)
	if err != nil {
		writeError(w, r, httpapi.ErrAPI, "failed to list coach library", "")
		return
	}
	for _, c := range library {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		out = append(out, customJSON(c, false))
	}

	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"coaches": out})
}

func (h CoachesHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, _ := auth.PrincipalFrom(ctx)

	var req struct {
		Name   string   `json:"name"`
		Style  string   `json:"style"`
		Topics []string `json:"topics"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, httpapi.ErrInvalidRequest, err.Error(), "")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || utf8.RuneCountInString(req.Name) > 50 {
		writeError(w, r, httpapi.ErrInvalidRequest, "name must be 1-50 characters", "name")
		return
	}
	if !coach.ValidStyle(req.Style) {
		writeError(w, r, httpapi.ErrInvalidRequest, "style must be warm, direct, or playful", "style")
		return
	}
	topics := make([]string, 0, len(req.Topics))
	for _, topic := range req.Topics {
		if t := strings.TrimSpace(topic); t != "" {
			topics = append(topics, t)
		}
	}
	if len(topics) == 0 {
		writeError(w, r, httpapi.ErrInvalidRequest, "at least one topic is required", "topics")
		return
	}

	c := store.Coach{
		ID:        uuid.NewString(),
		OwnerID:   p.UserID,
		Name:      req.Name,
		Style:     req.Style,
		Topics:    topics,
		CreatedAt: time.Now(),
	}
	var err error
	for i := 0; i < shareCodeRetries; i++ {
		c.ShareCode = coach.NewShareCode()
		err = h.Store.CreateCoach(ctx, c)
		if !errors.Is(err, store.ErrAlreadyExists) {
			break
		}
	}
	if err != nil {
		writeError(w, r, httpapi.ErrAPI, "failed to create coach", "")
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, customJSON(c, true))
}

func (h CoachesHandler) GetShared(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := strings.ToUpper(chi.URLParam(r, "code"))

	c, err := h.Store.GetCoachByShareCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, httpapi.ErrNotFound, "coach not found", "code")
			return
		}
		writeError(w, r, httpapi.ErrAPI, "failed to look up coach", "")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, customJSON(c, false))
}

func (h CoachesHandler) AddShared(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, _ := auth.PrincipalFrom(ctx)
	code := strings.ToUpper(chi.URLParam(r, "code"))

	c, err := h.Store.GetCoachByShareCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, httpapi.ErrNotFound, "coach not found", "code")
			return
		}
		writeError(w, r, httpapi.ErrAPI, "failed to look up coach", "")
		return
	}
	if err := h.Store.AddCoachToLibrary(ctx, p.UserID, c.ID); err != nil {
		writeError(w, r, httpapi.ErrAPI, "failed to add coach", "")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, customJSON(c, false))
}
