package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mira-coach/backend/pkg/gateway/auth"
	"github.com/mira-coach/backend/pkg/gateway/config"
	"github.com/mira-coach/backend/pkg/gateway/gemini"
	"github.com/mira-coach/backend/pkg/gateway/httpapi"
	"github.com/mira-coach/backend/pkg/gateway/live/session"
	"github.com/mira-coach/backend/pkg/gateway/live/sessions"
	"github.com/mira-coach/backend/pkg/gateway/live/upstream"
	"github.com/mira-coach/backend/pkg/gateway/store"
)

// VoiceHandler upgrades /api/voice/session and runs the relay session.
type VoiceHandler struct {
	Config   config.Config
	Store    store.Store
	Titles   *gemini.Client
	Logger   *slog.Logger
	Sessions *sessions.Tracker

	// DialOverride replaces the Gemini Live dial in tests.
	DialOverride session.DialFunc
}

func (h VoiceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.Sessions.IsDraining() {
		writeError(w, r, httpapi.ErrAPI, "gateway is draining", "")
		return
	}
	p, _ := auth.PrincipalFrom(ctx)

	user, err := h.Store.EnsureUser(ctx, p.UserID, p.Tier)
	if err != nil {
		writeError(w, r, httpapi.ErrAPI, "failed to load profile", "")
		return
	}

	rc, err := resolveCoach(ctx, h.Store, p.UserID, p.Tier, r.URL.Query().Get("coach"))
	if err != nil {
		writeCoachError(w, r, err)
		return
	}

	conversationID := r.URL.Query().Get("conversation_id")
	messageCount := 0
	if conversationID != "" {
		conv, err := h.Store.GetConversation(ctx, p.UserID, conversationID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, r, httpapi.ErrPermission, "Forbidden", "conversation_id")
				return
			}
			writeError(w, r, httpapi.ErrAPI, "failed to load session", "")
			return
		}
		messageCount = conv.MessageCount
	}

	systemPrompt := rc.Prompt(user.AboutMe, messageCount, conversationID != "", true)

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	dial := h.DialOverride
	if dial == nil {
		cfg := upstream.Config{
			Project:          h.Config.GoogleProject,
			Location:         h.Config.GoogleLocation,
			APIKey:           h.Config.GoogleAPIKey,
			Token:            h.Config.GoogleAccessToken,
			Model:            h.Config.LiveModel,
			Voice:            rc.Voice,
			SystemPrompt:     systemPrompt,
			HandshakeTimeout: h.Config.HandshakeTimeout,
			WriteTimeout:     h.Config.WSWriteTimeout,
		}
		logger := h.Logger
		dial = func(ctx context.Context) (session.Upstream, error) {
			return upstream.Dial(ctx, cfg, logger)
		}
	}

	sessionID := uuid.NewString()
	logger := h.Logger.With("session_id", sessionID, "user_id", p.UserID)

	sess, err := session.New(session.Dependencies{
		Conn:   conn,
		Logger: logger,
		Store:  h.Store,
		Dial:   dial,
		Recorder: &session.Recorder{
			Store:  h.Store,
			Titles: h.Titles,
			Model:  h.Config.TextModel,
			Logger: logger,
		},
		UserID:         p.UserID,
		Tier:           p.Tier,
		CoachID:        rc.ID,
		ConversationID: conversationID,
		Limits: session.Limits{
			FreeTrialMinutes:  h.Config.FreeTrialMinutes,
			ProMonthlyMinutes: h.Config.ProMonthlyMinutes,
			SessionMaxMinutes: h.Config.SessionMaxMinutes,
		},
		KeepAliveInterval: h.Config.KeepAliveInterval,
		WriteTimeout:      h.Config.WSWriteTimeout,
	})
	if err != nil {
		logger.Error("voice session not created", "error", err)
		return
	}

	unregister := h.Sessions.Register(sessionID, sess.Shutdown)
	defer unregister()

	if err := sess.Run(); err != nil {
		logger.Warn("voice session ended with error", "error", err)
	}
}
