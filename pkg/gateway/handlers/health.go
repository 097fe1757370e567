package handlers

import (
	"net/http"

	"github.com/mira-coach/backend/pkg/gateway/httpapi"
	"github.com/mira-coach/backend/pkg/gateway/live/sessions"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// ReadyHandler reports readiness. During shutdown the gateway flips to
// draining so load balancers stop routing new sessions here while the
// active ones finish.
type ReadyHandler struct {
	Sessions *sessions.Tracker
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK            bool `json:"ok"`
		Draining      bool `json:"draining"`
		VoiceSessions int  `json:"voice_sessions"`
	}
	resp := readyResp{
		OK:            true,
		Draining:      h.Sessions.IsDraining(),
		VoiceSessions: h.Sessions.Count(),
	}
	status := http.StatusOK
	if resp.Draining {
		resp.OK = false
		status = http.StatusServiceUnavailable
	}
	httpapi.WriteJSON(w, status, resp)
}
