// Package protocol defines the JSON frames exchanged with the voice client.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badRequest(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_request", Message: message, Param: param}
}

// Client -> server frames.

type ClientAudio struct {
	Type string `json:"type"`
	// Base64-encoded PCM chunk, forwarded upstream as-is.
	Data string `json:"data"`
}

type ClientEndSession struct {
	Type string `json:"type"`
}

func DecodeClientMessage(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid json frame", "")
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, badRequest("missing type", "type")
	}

	switch typ {
	case "audio":
		var msg ClientAudio
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid audio frame", "")
		}
		if strings.TrimSpace(msg.Data) == "" {
			return nil, badRequest("audio.data is required", "data")
		}
		return msg, nil
	case "end_session":
		var msg ClientEndSession
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid end_session frame", "")
		}
		return msg, nil
	default:
		return nil, badRequest("unsupported message type", "type")
	}
}

// Server -> client frames.

type ServerAudio struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

type ServerTranscript struct {
	Type string `json:"type"`
	Role string `json:"role"`
	Text string `json:"text"`
}

type ServerTurnComplete struct {
	Type string `json:"type"`
}

type ServerPing struct {
	Type string `json:"type"`
}

type ServerError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ServerSessionEnded struct {
	Type            string  `json:"type"`
	DurationMinutes float64 `json:"duration_minutes"`
}

func Audio(data string) ServerAudio {
	return ServerAudio{Type: "audio", Data: data}
}

func Transcript(role, text string) ServerTranscript {
	return ServerTranscript{Type: "transcript", Role: role, Text: text}
}

func TurnComplete() ServerTurnComplete {
	return ServerTurnComplete{Type: "turn_complete"}
}

func Ping() ServerPing {
	return ServerPing{Type: "ping"}
}

func Error(message string) ServerError {
	return ServerError{Type: "error", Message: message}
}

func SessionEnded(durationMinutes float64) ServerSessionEnded {
	return ServerSessionEnded{Type: "session_ended", DurationMinutes: durationMinutes}
}
