// Package upstream maintains the WebSocket connection to the Gemini Live
// API: dialing, the setup handshake, audio forwarding, and decoding of
// server frames into a small neutral message type.
package upstream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	vertexURLFormat = "wss://%s-aiplatform.googleapis.com/ws/google.cloud.aiplatform.v1beta1.LlmBidiService/BidiGenerateContent"
	apiKeyURL       = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	silenceDurationMS = 1000
	prefixPaddingMS   = 300
)

// ErrSetupTimeout is returned when the setup acknowledgment does not
// arrive within the configured handshake window.
var ErrSetupTimeout = errors.New("setup acknowledgment timed out")

type Config struct {
	// Project and Location select the Vertex endpoint. When Project is
	// empty the API-key endpoint is used instead.
	Project  string
	Location string
	APIKey   string

	Model        string
	Voice        string
	SystemPrompt string

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	// DialURL overrides the computed endpoint. Tests point this at a
	// local server.
	DialURL string

	// Token is the bearer token for the Vertex endpoint.
	Token string
}

// Conn is a live bidirectional connection after a completed handshake.
type Conn struct {
	ws           *websocket.Conn
	logger       *slog.Logger
	writeTimeout time.Duration
}

// MessageKind classifies a decoded upstream frame.
type MessageKind int

const (
	KindAudio MessageKind = iota
	KindInputTranscript
	KindOutputTranscript
	KindTurnComplete
	KindOther
)

// Message is one decoded frame from the model. Audio holds decoded PCM
// bytes for KindAudio; Text holds transcription text for the transcript
// kinds.
type Message struct {
	Kind  MessageKind
	Audio []byte
	Text  string
}

type setupFrame struct {
	Setup setupBody `json:"setup"`
}

type setupBody struct {
	Model             string             `json:"model"`
	GenerationConfig  generationConfig   `json:"generation_config"`
	SystemInstruction *systemInstruction `json:"system_instruction,omitempty"`
	RealtimeInput     realtimeInputCfg   `json:"realtime_input_config"`
	InputTranscribe   struct{}           `json:"input_audio_transcription"`
	OutputTranscribe  struct{}           `json:"output_audio_transcription"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"response_modalities"`
	SpeechConfig       speechConfig `json:"speech_config"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voice_config"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoice `json:"prebuilt_voice_config"`
}

type prebuiltVoice struct {
	VoiceName string `json:"voice_name"`
}

type systemInstruction struct {
	Parts []textPart `json:"parts"`
}

type textPart struct {
	Text string `json:"text"`
}

type realtimeInputCfg struct {
	AutomaticActivityDetection activityDetection `json:"automatic_activity_detection"`
}

type activityDetection struct {
	Disabled          bool `json:"disabled"`
	SilenceDurationMS int  `json:"silence_duration_ms"`
	PrefixPaddingMS   int  `json:"prefix_padding_ms"`
}

type realtimeInputFrame struct {
	RealtimeInput realtimeInput `json:"realtime_input"`
}

type realtimeInput struct {
	MediaChunks []mediaChunk `json:"media_chunks"`
}

type mediaChunk struct {
	Data     string `json:"data"`
	MimeType string `json:"mime_type"`
}

type serverFrame struct {
	SetupComplete json.RawMessage `json:"setupComplete"`
	ServerContent *serverContent  `json:"serverContent"`
}

type serverContent struct {
	ModelTurn           *modelTurn     `json:"modelTurn"`
	InputTranscription  *transcription `json:"inputTranscription"`
	OutputTranscription *transcription `json:"outputTranscription"`
	TurnComplete        bool           `json:"turnComplete"`
}

type modelTurn struct {
	Parts []modelPart `json:"parts"`
}

type modelPart struct {
	InlineData *inlineData `json:"inlineData"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type transcription struct {
	Text string `json:"text"`
}

func (c Config) endpoint() string {
	if strings.TrimSpace(c.DialURL) != "" {
		return c.DialURL
	}
	if strings.TrimSpace(c.Project) != "" {
		return fmt.Sprintf(vertexURLFormat, c.Location)
	}
	return apiKeyURL + "?key=" + c.APIKey
}

func (c Config) modelResource() string {
	if strings.TrimSpace(c.Project) != "" {
		return fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", c.Project, c.Location, c.Model)
	}
	return "models/" + c.Model
}

func buildSetup(cfg Config) setupFrame {
	frame := setupFrame{
		Setup: setupBody{
			Model: cfg.modelResource(),
			GenerationConfig: generationConfig{
				ResponseModalities: []string{"AUDIO"},
				SpeechConfig: speechConfig{
					VoiceConfig: voiceConfig{
						PrebuiltVoiceConfig: prebuiltVoice{VoiceName: cfg.Voice},
					},
				},
			},
			RealtimeInput: realtimeInputCfg{
				AutomaticActivityDetection: activityDetection{
					Disabled:          false,
					SilenceDurationMS: silenceDurationMS,
					PrefixPaddingMS:   prefixPaddingMS,
				},
			},
		},
	}
	if strings.TrimSpace(cfg.SystemPrompt) != "" {
		frame.Setup.SystemInstruction = &systemInstruction{
			Parts: []textPart{{Text: cfg.SystemPrompt}},
		}
	}
	return frame
}

// Dial connects to the voice model, sends the setup frame, and waits for
// the first server message. That message normally carries the setup
// acknowledgment; a different first message is logged and the handshake
// is still treated as complete.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}

	header := http.Header{}
	if strings.TrimSpace(cfg.Token) != "" {
		header.Set("Authorization", "Bearer "+cfg.Token)
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.HandshakeTimeout)
	defer cancel()

	ws, resp, err := websocket.DefaultDialer.DialContext(dialCtx, cfg.endpoint(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial voice service: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial voice service: %w", err)
	}

	conn := &Conn{ws: ws, logger: logger, writeTimeout: cfg.WriteTimeout}

	if err := conn.writeJSON(buildSetup(cfg)); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("send setup: %w", err)
	}
	if err := conn.awaitSetupComplete(cfg.HandshakeTimeout); err != nil {
		_ = ws.Close()
		return nil, err
	}
	return conn, nil
}

func (c *Conn) awaitSetupComplete(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	_ = c.ws.SetReadDeadline(deadline)
	defer c.ws.SetReadDeadline(time.Time{})

	_, data, err := c.ws.ReadMessage()
	if err != nil {
		if netTimeout(err) {
			return ErrSetupTimeout
		}
		return fmt.Errorf("read setup acknowledgment: %w", err)
	}
	var frame map[string]json.RawMessage
	if err := json.Unmarshal(data, &frame); err != nil {
		c.logger.Warn("unparseable frame instead of setup acknowledgment", "error", err)
		return nil
	}
	if _, ok := frame["setupComplete"]; !ok {
		c.logger.Warn("unexpected frame instead of setup acknowledgment", "keys", frameKeys(frame))
	}
	return nil
}

func netTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

func frameKeys(frame map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(frame))
	for k := range frame {
		keys = append(keys, k)
	}
	return keys
}

func (c *Conn) writeJSON(v any) error {
	if c.writeTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.ws.WriteJSON(v)
}

// SendAudio forwards one PCM chunk to the model.
func (c *Conn) SendAudio(pcm []byte) error {
	return c.writeJSON(realtimeInputFrame{
		RealtimeInput: realtimeInput{
			MediaChunks: []mediaChunk{{
				Data:     base64.StdEncoding.EncodeToString(pcm),
				MimeType: "audio/pcm",
			}},
		},
	})
}

// Read blocks for the next server frame and decodes it. A frame can
// carry several payloads at once, so Read returns a slice; unknown
// frames decode to a single KindOther message.
func (c *Conn) Read() ([]Message, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	return decodeServerFrame(data)
}

func decodeServerFrame(data []byte) ([]Message, error) {
	var frame serverFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("decode server frame: %w", err)
	}
	if frame.ServerContent == nil {
		return []Message{{Kind: KindOther}}, nil
	}

	var out []Message
	sc := frame.ServerContent
	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			audio, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decode audio chunk: %w", err)
			}
			out = append(out, Message{Kind: KindAudio, Audio: audio})
		}
	}
	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		out = append(out, Message{Kind: KindInputTranscript, Text: sc.InputTranscription.Text})
	}
	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		out = append(out, Message{Kind: KindOutputTranscript, Text: sc.OutputTranscription.Text})
	}
	if sc.TurnComplete {
		out = append(out, Message{Kind: KindTurnComplete})
	}
	if len(out) == 0 {
		out = append(out, Message{Kind: KindOther})
	}
	return out, nil
}

// Ping sends a WebSocket-level ping to keep intermediaries from idling
// out the connection.
func (c *Conn) Ping() error {
	deadline := time.Now().Add(5 * time.Second)
	if c.writeTimeout > 0 {
		deadline = time.Now().Add(c.writeTimeout)
	}
	return c.ws.WriteControl(websocket.PingMessage, nil, deadline)
}

func (c *Conn) Close() error {
	return c.ws.Close()
}
