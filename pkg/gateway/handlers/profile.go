package handlers

import (
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/mira-coach/backend/pkg/gateway/auth"
	"github.com/mira-coach/backend/pkg/gateway/httpapi"
	"github.com/mira-coach/backend/pkg/gateway/store"
)

type ProfileHandler struct {
	Store         store.Store
	MaxAboutMeLen int
}

type profileResponse struct {
	UserID                string  `json:"user_id"`
	Tier                  string  `json:"tier"`
	AboutMe               string  `json:"about_me"`
	VoiceTrialUsed        bool    `json:"voice_trial_used"`
	VoiceMinutesThisMonth float64 `json:"voice_minutes_this_month"`
	MessagesToday         int     `json:"messages_today"`
}

func (h ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, _ := auth.PrincipalFrom(ctx)

	user, err := h.Store.EnsureUser(ctx, p.UserID, p.Tier)
	if err != nil {
		writeError(w, r, httpapi.ErrAPI, "failed to load profile", "")
		return
	}
	now := time.Now()
	minutes, err := h.Store.VoiceMinutesForMonth(ctx, p.UserID, store.MonthKey(now))
	if err != nil {
		writeError(w, r, httpapi.ErrAPI, "failed to load voice usage", "")
		return
	}
	sent, err := h.Store.MessagesSentOnDay(ctx, p.UserID, store.DayKey(now))
	if err != nil {
		writeError(w, r, httpapi.ErrAPI, "failed to load message usage", "")
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, profileResponse{
		UserID:                user.ID,
		Tier:                  p.Tier,
		AboutMe:               user.AboutMe,
		VoiceTrialUsed:        user.VoiceTrialUsed,
		VoiceMinutesThisMonth: minutes,
		MessagesToday:         sent,
	})
}

func (h ProfileHandler) PutAbout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, _ := auth.PrincipalFrom(ctx)

	var req struct {
		AboutMe string `json:"about_me"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, httpapi.ErrInvalidRequest, err.Error(), "about_me")
		return
	}
	if utf8.RuneCountInString(req.AboutMe) > h.MaxAboutMeLen {
		writeError(w, r, httpapi.ErrInvalidRequest, "about_me is too long", "about_me")
		return
	}

	if _, err := h.Store.EnsureUser(ctx, p.UserID, p.Tier); err != nil {
		writeError(w, r, httpapi.ErrAPI, "failed to load profile", "")
		return
	}
	if err := h.Store.SetAboutMe(ctx, p.UserID, req.AboutMe); err != nil {
		writeError(w, r, httpapi.ErrAPI, "failed to save profile", "")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]string{"about_me": req.AboutMe})
}
