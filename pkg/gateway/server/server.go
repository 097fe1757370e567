// Package server assembles the router and middleware chain.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mira-coach/backend/pkg/gateway/auth"
	"github.com/mira-coach/backend/pkg/gateway/config"
	"github.com/mira-coach/backend/pkg/gateway/gemini"
	"github.com/mira-coach/backend/pkg/gateway/handlers"
	"github.com/mira-coach/backend/pkg/gateway/live/sessions"
	"github.com/mira-coach/backend/pkg/gateway/mw"
	"github.com/mira-coach/backend/pkg/gateway/store"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	router chi.Router

	store    store.Store
	verifier auth.Verifier
	gemini   *gemini.Client
	sessions *sessions.Tracker
}

type Dependencies struct {
	Store    store.Store
	Verifier auth.Verifier
	Gemini   *gemini.Client
}

func New(cfg config.Config, logger *slog.Logger, deps Dependencies) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		router:   chi.NewRouter(),
		store:    deps.Store,
		verifier: deps.Verifier,
		gemini:   deps.Gemini,
		sessions: sessions.NewTracker(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.NotFound(handlers.NotFoundHandler{}.ServeHTTP)

	s.router.Method(http.MethodGet, "/healthz", handlers.HealthHandler{})
	s.router.Method(http.MethodGet, "/readyz", handlers.ReadyHandler{Sessions: s.sessions})

	profile := handlers.ProfileHandler{Store: s.store, MaxAboutMeLen: s.cfg.MaxAboutMeLen}
	convs := handlers.ConversationsHandler{Store: s.store}
	coaches := handlers.CoachesHandler{Store: s.store}
	chat := handlers.ChatHandler{
		Store:             s.store,
		Gemini:            s.gemini,
		Logger:            s.logger,
		TextModel:         s.cfg.TextModel,
		FreeDailyMessages: s.cfg.FreeDailyMessages,
		MaxMessageLen:     s.cfg.MaxMessageLen,
	}
	voice := handlers.VoiceHandler{
		Config:   s.cfg,
		Store:    s.store,
		Titles:   s.gemini,
		Logger:   s.logger,
		Sessions: s.sessions,
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return mw.Auth(s.verifier, next)
		})

		r.Get("/voice/session", voice.ServeHTTP)

		r.Get("/profile", profile.Get)
		r.Put("/profile/about", profile.PutAbout)

		r.Get("/sessions", convs.List)
		r.Get("/sessions/{id}/messages", convs.Messages)
		r.Delete("/sessions/{id}", convs.Delete)

		r.Get("/coaches", coaches.List)
		r.Post("/coaches", coaches.Create)
		r.Get("/coaches/shared/{code}", coaches.GetShared)
		r.Post("/coaches/shared/{code}/add", coaches.AddShared)

		r.Post("/chat", chat.ServeHTTP)
	})
}

// Sessions exposes the voice session tracker so main can flip the
// draining flag and drain during shutdown.
func (s *Server) Sessions() *sessions.Tracker { return s.sessions }

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = mw.CORS(s.cfg.CORSAllowedOrigins, h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}
