// Package handlers implements the HTTP and WebSocket endpoints of the
// gateway.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mira-coach/backend/pkg/gateway/httpapi"
	"github.com/mira-coach/backend/pkg/gateway/mw"
)

const maxBodyBytes = 64 << 10

func writeError(w http.ResponseWriter, r *http.Request, errType, message, param string) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	httpapi.WriteError(w, httpapi.StatusFor(errType), &httpapi.Error{
		Type:      errType,
		Message:   message,
		Param:     param,
		RequestID: reqID,
	})
}

func decodeBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return fmt.Errorf("body too large")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}
