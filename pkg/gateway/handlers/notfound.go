package handlers

import (
	"net/http"

	"github.com/mira-coach/backend/pkg/gateway/httpapi"
)

type NotFoundHandler struct{}

func (h NotFoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, httpapi.ErrNotFound, "not found", "")
}
