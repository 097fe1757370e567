package protocol

import (
	"encoding/json"
	"testing"
)

func TestDecodeClientMessage_Audio(t *testing.T) {
	raw := []byte(`{"type":"audio","data":"AAAA"}`)

	msg, err := DecodeClientMessage(raw)
	if err != nil {
		t.Fatalf("DecodeClientMessage() error = %v", err)
	}
	audio, ok := msg.(ClientAudio)
	if !ok {
		t.Fatalf("decoded type = %T, want ClientAudio", msg)
	}
	if audio.Data != "AAAA" {
		t.Fatalf("data=%q", audio.Data)
	}
}

func TestDecodeClientMessage_AudioMissingData(t *testing.T) {
	raw := []byte(`{"type":"audio"}`)
	_, err := DecodeClientMessage(raw)
	if err == nil {
		t.Fatal("expected error")
	}
	decErr, ok := err.(*DecodeError)
	if !ok {
		t.Fatalf("err type = %T", err)
	}
	if decErr.Code != "bad_request" || decErr.Param != "data" {
		t.Fatalf("code=%q param=%q", decErr.Code, decErr.Param)
	}
}

func TestDecodeClientMessage_EndSession(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"end_session"}`))
	if err != nil {
		t.Fatalf("DecodeClientMessage() error = %v", err)
	}
	if _, ok := msg.(ClientEndSession); !ok {
		t.Fatalf("decoded type = %T, want ClientEndSession", msg)
	}
}

func TestDecodeClientMessage_UnsupportedType(t *testing.T) {
	_, err := DecodeClientMessage([]byte(`{"type":"reboot"}`))
	if err == nil {
		t.Fatal("expected error")
	}
	decErr, ok := err.(*DecodeError)
	if !ok {
		t.Fatalf("err type = %T", err)
	}
	if decErr.Code != "bad_request" || decErr.Param != "type" {
		t.Fatalf("code=%q param=%q", decErr.Code, decErr.Param)
	}
}

func TestDecodeClientMessage_InvalidJSON(t *testing.T) {
	_, err := DecodeClientMessage([]byte(`{`))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestServerFrameShapes(t *testing.T) {
	cases := []struct {
		name string
		msg  any
		want string
	}{
		{"audio", Audio("QUJD"), `{"type":"audio","data":"QUJD"}`},
		{"transcript", Transcript(RoleUser, "hello"), `{"type":"transcript","role":"user","text":"hello"}`},
		{"turn_complete", TurnComplete(), `{"type":"turn_complete"}`},
		{"ping", Ping(), `{"type":"ping"}`},
		{"error", Error("nope"), `{"type":"error","message":"nope"}`},
		{"session_ended", SessionEnded(4.2), `{"type":"session_ended","duration_minutes":4.2}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := json.Marshal(tc.msg)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(b) != tc.want {
				t.Fatalf("frame = %s, want %s", b, tc.want)
			}
		})
	}
}
