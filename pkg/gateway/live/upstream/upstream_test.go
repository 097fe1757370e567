package upstream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// fakeLive accepts one connection, validates the setup frame, and hands
// the socket to the provided script.
func fakeLive(t *testing.T, script func(t *testing.T, ws *websocket.Conn, setup map[string]any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer ws.Close()

		var frame map[string]any
		if err := ws.ReadJSON(&frame); err != nil {
			t.Errorf("read setup: %v", err)
			return
		}
		setup, ok := frame["setup"].(map[string]any)
		if !ok {
			t.Errorf("first frame missing setup: %v", frame)
			return
		}
		script(t, ws, setup)
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func ackSetup(t *testing.T, ws *websocket.Conn) {
	t.Helper()
	if err := ws.WriteJSON(map[string]any{"setupComplete": map[string]any{}}); err != nil {
		t.Errorf("write ack: %v", err)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, nil))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestDial_SetupFrame(t *testing.T) {
	gotSetup := make(chan map[string]any, 1)
	srv := fakeLive(t, func(t *testing.T, ws *websocket.Conn, setup map[string]any) {
		gotSetup <- setup
		ackSetup(t, ws)
		time.Sleep(50 * time.Millisecond)
	})
	defer srv.Close()

	conn, err := Dial(context.Background(), Config{
		Project:          "proj",
		Location:         "us-central1",
		Model:            "gemini-2.0-flash-live-preview-04-09",
		Voice:            "Aoede",
		SystemPrompt:     "You are a coach.",
		HandshakeTimeout: 2 * time.Second,
		DialURL:          wsURL(srv),
	}, testLogger())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	setup := <-gotSetup
	model, _ := setup["model"].(string)
	if want := "projects/proj/locations/us-central1/publishers/google/models/gemini-2.0-flash-live-preview-04-09"; model != want {
		t.Errorf("model = %q, want %q", model, want)
	}
	gen, _ := setup["generation_config"].(map[string]any)
	if gen == nil {
		t.Fatal("setup missing generation_config")
	}
	mods, _ := gen["response_modalities"].([]any)
	if len(mods) != 1 || mods[0] != "AUDIO" {
		t.Errorf("response_modalities = %v, want [AUDIO]", mods)
	}
	sys, _ := setup["system_instruction"].(map[string]any)
	if sys == nil {
		t.Error("setup missing system_instruction")
	}
	ric, _ := setup["realtime_input_config"].(map[string]any)
	aad, _ := ric["automatic_activity_detection"].(map[string]any)
	if aad == nil {
		t.Fatal("setup missing automatic_activity_detection")
	}
	if ms, _ := aad["silence_duration_ms"].(float64); ms != 1000 {
		t.Errorf("silence_duration_ms = %v, want 1000", ms)
	}
	if _, ok := setup["input_audio_transcription"]; !ok {
		t.Error("setup missing input_audio_transcription")
	}
	if _, ok := setup["output_audio_transcription"]; !ok {
		t.Error("setup missing output_audio_transcription")
	}
}

func TestDial_FirstFrameCompletesHandshake(t *testing.T) {
	// The server replies with something other than the ack and never
	// sends setupComplete. Dial still succeeds: the first frame of any
	// shape ends the handshake, it does not keep waiting for the ack.
	srv := fakeLive(t, func(t *testing.T, ws *websocket.Conn, _ map[string]any) {
		if err := ws.WriteJSON(map[string]any{"unexpected": true}); err != nil {
			t.Errorf("write stray frame: %v", err)
			return
		}
		time.Sleep(500 * time.Millisecond)
	})
	defer srv.Close()

	conn, err := Dial(context.Background(), Config{
		APIKey:           "k",
		Model:            "m",
		Voice:            "Aoede",
		HandshakeTimeout: 200 * time.Millisecond,
		DialURL:          wsURL(srv),
	}, testLogger())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	conn.Close()
}

func TestDial_SetupTimeout(t *testing.T) {
	srv := fakeLive(t, func(t *testing.T, ws *websocket.Conn, _ map[string]any) {
		// Never ack.
		time.Sleep(500 * time.Millisecond)
	})
	defer srv.Close()

	_, err := Dial(context.Background(), Config{
		APIKey:           "k",
		Model:            "m",
		Voice:            "Aoede",
		HandshakeTimeout: 200 * time.Millisecond,
		DialURL:          wsURL(srv),
	}, testLogger())
	if err != ErrSetupTimeout {
		t.Fatalf("Dial error = %v, want ErrSetupTimeout", err)
	}
}

func TestSendAudio_Wire(t *testing.T) {
	gotAudio := make(chan map[string]any, 1)
	srv := fakeLive(t, func(t *testing.T, ws *websocket.Conn, _ map[string]any) {
		ackSetup(t, ws)
		var frame map[string]any
		if err := ws.ReadJSON(&frame); err != nil {
			t.Errorf("read audio: %v", err)
			return
		}
		gotAudio <- frame
	})
	defer srv.Close()

	conn, err := Dial(context.Background(), Config{
		APIKey:           "k",
		Model:            "m",
		Voice:            "Aoede",
		HandshakeTimeout: 2 * time.Second,
		DialURL:          wsURL(srv),
	}, testLogger())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	pcm := []byte{1, 2, 3, 4}
	if err := conn.SendAudio(pcm); err != nil {
		t.Fatalf("SendAudio: %v", err)
	}

	frame := <-gotAudio
	ri, _ := frame["realtime_input"].(map[string]any)
	chunks, _ := ri["media_chunks"].([]any)
	if len(chunks) != 1 {
		t.Fatalf("media_chunks = %v, want one chunk", chunks)
	}
	chunk, _ := chunks[0].(map[string]any)
	if mt, _ := chunk["mime_type"].(string); mt != "audio/pcm" {
		t.Errorf("mime_type = %q, want audio/pcm", mt)
	}
	if data, _ := chunk["data"].(string); data != base64.StdEncoding.EncodeToString(pcm) {
		t.Errorf("data = %q, want base64 of %v", data, pcm)
	}
}

func TestDecodeServerFrame(t *testing.T) {
	audio := base64.StdEncoding.EncodeToString([]byte("pcmpcm"))
	raw := `{
		"serverContent": {
			"modelTurn": {"parts": [{"inlineData": {"mimeType": "audio/pcm", "data": "` + audio + `"}}]},
			"inputTranscription": {"text": "hello there"},
			"outputTranscription": {"text": "hi, how are you"},
			"turnComplete": true
		}
	}`
	msgs, err := decodeServerFrame([]byte(raw))
	if err != nil {
		t.Fatalf("decodeServerFrame: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}
	if msgs[0].Kind != KindAudio || string(msgs[0].Audio) != "pcmpcm" {
		t.Errorf("msg 0 = %+v, want audio pcmpcm", msgs[0])
	}
	if msgs[1].Kind != KindInputTranscript || msgs[1].Text != "hello there" {
		t.Errorf("msg 1 = %+v, want input transcript", msgs[1])
	}
	if msgs[2].Kind != KindOutputTranscript || msgs[2].Text != "hi, how are you" {
		t.Errorf("msg 2 = %+v, want output transcript", msgs[2])
	}
	if msgs[3].Kind != KindTurnComplete {
		t.Errorf("msg 3 = %+v, want turn complete", msgs[3])
	}
}

func TestDecodeServerFrame_Unknown(t *testing.T) {
	msgs, err := decodeServerFrame([]byte(`{"usageMetadata": {"totalTokens": 12}}`))
	if err != nil {
		t.Fatalf("decodeServerFrame: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Kind != KindOther {
		t.Errorf("got %+v, want single KindOther", msgs)
	}
}

func TestDecodeServerFrame_BadAudio(t *testing.T) {
	raw := `{"serverContent": {"modelTurn": {"parts": [{"inlineData": {"data": "%%%"}}]}}}`
	if _, err := decodeServerFrame([]byte(raw)); err == nil {
		t.Fatal("expected error for invalid base64 audio")
	}
}

func TestEndpoint(t *testing.T) {
	vertex := Config{Project: "p", Location: "europe-west1"}
	if got, want := vertex.endpoint(), "wss://europe-west1-aiplatform.googleapis.com/ws/google.cloud.aiplatform.v1beta1.LlmBidiService/BidiGenerateContent"; got != want {
		t.Errorf("vertex endpoint = %q, want %q", got, want)
	}
	keyed := Config{APIKey: "secret"}
	if got := keyed.endpoint(); !strings.Contains(got, "generativelanguage.googleapis.com") || !strings.Contains(got, "key=secret") {
		t.Errorf("api key endpoint = %q", got)
	}
	keyed.Model = "gemini-2.0-flash-live-preview-04-09"
	if got, want := keyed.modelResource(), "models/gemini-2.0-flash-live-preview-04-09"; got != want {
		t.Errorf("modelResource = %q, want %q", got, want)
	}
}

func TestBuildSetup_NoSystemPrompt(t *testing.T) {
	frame := buildSetup(Config{APIKey: "k", Model: "m", Voice: "Puck"})
	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "system_instruction") {
		t.Errorf("setup should omit system_instruction when prompt is empty: %s", data)
	}
	if !strings.Contains(string(data), `"voice_name":"Puck"`) {
		t.Errorf("setup missing voice: %s", data)
	}
}
