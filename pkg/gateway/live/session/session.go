// Package session runs one voice coaching session: the entitlement
// gate, the relay between the client WebSocket and the voice model,
// the session time limit, and the usage recording that follows.
package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mira-coach/backend/pkg/gateway/live/protocol"
	"github.com/mira-coach/backend/pkg/gateway/live/upstream"
	"github.com/mira-coach/backend/pkg/gateway/store"
)

const msgSetupTimeout = "Voice service timed out during setup"

// Limits holds the entitlement numbers for a session.
type Limits struct {
	FreeTrialMinutes  int
	ProMonthlyMinutes int
	SessionMaxMinutes int
}

// Upstream is the live model connection the session relays through.
type Upstream interface {
	SendAudio(pcm []byte) error
	Read() ([]upstream.Message, error)
	Ping() error
	Close() error
}

// DialFunc establishes the upstream connection after the entitlement
// gate has passed.
type DialFunc func(ctx context.Context) (Upstream, error)

type Dependencies struct {
	Conn     *websocket.Conn
	Logger   *slog.Logger
	Store    store.Store
	Dial     DialFunc
	Recorder *Recorder

	UserID string
	Tier   string
	// CoachID and ConversationID feed the recorder; ConversationID is
	// empty for a fresh session.
	CoachID        string
	ConversationID string

	Limits            Limits
	KeepAliveInterval time.Duration
	WriteTimeout      time.Duration

	Now func() time.Time
}

type Session struct {
	conn     *websocket.Conn
	logger   *slog.Logger
	store    store.Store
	dial     DialFunc
	recorder *Recorder

	userID         string
	tier           string
	coachID        string
	conversationID string

	limits    Limits
	keepAlive time.Duration
	writeWait time.Duration
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	writeMu sync.Mutex

	stateMu sync.Mutex
	state   State

	// fragments is only touched by the upstream pump.
	fragments []Turn
}

func New(deps Dependencies) (*Session, error) {
	if deps.Conn == nil {
		return nil, fmt.Errorf("connection is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Dial == nil {
		return nil, fmt.Errorf("dial func is required")
	}
	if deps.Recorder == nil {
		return nil, fmt.Errorf("recorder is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.KeepAliveInterval <= 0 {
		deps.KeepAliveInterval = 30 * time.Second
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		conn:           deps.Conn,
		logger:         deps.Logger,
		store:          deps.Store,
		dial:           deps.Dial,
		recorder:       deps.Recorder,
		userID:         deps.UserID,
		tier:           deps.Tier,
		coachID:        deps.CoachID,
		conversationID: deps.ConversationID,
		limits:         deps.Limits,
		keepAlive:      deps.KeepAliveInterval,
		writeWait:      deps.WriteTimeout,
		now:            deps.Now,
		ctx:            ctx,
		cancel:         cancel,
		state:          StateConnecting,
	}, nil
}

// Shutdown asks a running session to drain. Run still writes the usage
// record before returning.
func (s *Session) Shutdown() { s.cancel() }

func (s *Session) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

func (s *Session) transition(to State) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if !canTransition(s.state, to) {
		return fmt.Errorf("invalid session transition %s -> %s", s.state, to)
	}
	s.state = to
	return nil
}

// Run drives the session to completion and blocks until the usage
// record is written. The returned error is for logging; user-facing
// failures have already been sent as error frames.
func (s *Session) Run() error {
	defer s.cancel()

	limit, err := gate(s.ctx, s.store, s.userID, s.tier, s.limits, s.now())
	if err != nil {
		var denied *DeniedError
		if errors.As(err, &denied) {
			_ = s.sendJSON(protocol.Error(denied.Message))
			_ = s.transition(StateEnded)
			return nil
		}
		_ = s.sendJSON(protocol.Error("Failed to start voice session"))
		_ = s.transition(StateEnded)
		return err
	}

	if err := s.transition(StateHandshaking); err != nil {
		return err
	}
	up, err := s.dial(s.ctx)
	if err != nil {
		if errors.Is(err, upstream.ErrSetupTimeout) {
			_ = s.sendJSON(protocol.Error(msgSetupTimeout))
		} else {
			_ = s.sendJSON(protocol.Error("Failed to connect to voice service"))
		}
		_ = s.transition(StateEnded)
		return err
	}

	if err := s.transition(StateActive); err != nil {
		up.Close()
		return err
	}
	start := s.now()

	// Closing the upstream socket is what unblocks the upstream pump
	// once anything cancels the session.
	go func() {
		<-s.ctx.Done()
		up.Close()
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.downstreamPump(up)
	}()
	go func() {
		defer wg.Done()
		s.keepAlivePump(up)
	}()

	s.upstreamPump(up, start, limit)

	// Drain: the upstream pump has returned, stop the other pumps and
	// record what happened regardless of how the session ended.
	_ = s.transition(StateDraining)
	s.cancel()
	up.Close()
	// Unblock the downstream pump if it is parked in ReadMessage.
	_ = s.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	wg.Wait()

	elapsed := s.now().Sub(start)
	minutes := s.recorder.Record(context.Background(), RecordInput{
		UserID:         s.userID,
		CoachID:        s.coachID,
		ConversationID: s.conversationID,
		Turns:          Consolidate(s.fragments),
		Elapsed:        elapsed,
	})
	if err := s.sendJSON(protocol.SessionEnded(minutes)); err != nil {
		s.logger.Debug("session_ended frame not delivered", "error", err)
	}
	return s.transition(StateEnded)
}

// downstreamPump reads client frames: audio is forwarded upstream,
// end_session starts the drain. A frame that does not decode ends the
// session; the decode failure is logged, never sent to the client.
func (s *Session) downstreamPump(up Upstream) {
	defer s.cancel()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.DecodeClientMessage(data)
		if err != nil {
			s.logger.Warn("malformed client frame", "error", err)
			return
		}
		switch m := msg.(type) {
		case protocol.ClientAudio:
			pcm, err := base64.StdEncoding.DecodeString(m.Data)
			if err != nil {
				s.logger.Warn("malformed client frame", "error", err)
				return
			}
			if err := up.SendAudio(pcm); err != nil {
				if s.ctx.Err() == nil {
					s.logger.Warn("audio forward failed", "error", err)
				}
				return
			}
		case protocol.ClientEndSession:
			return
		}
	}
}

func (s *Session) keepAlivePump(up Upstream) {
	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.sendJSON(protocol.Ping()); err != nil {
				return
			}
			if err := up.Ping(); err != nil {
				return
			}
		}
	}
}

// upstreamPump relays model output to the client and enforces the time
// limit. The limit is checked per upstream message, so a silent model
// defers the check; the keepalive and client audio keep the socket
// itself alive in the meantime.
func (s *Session) upstreamPump(up Upstream, start time.Time, limit time.Duration) {
	for {
		if s.ctx.Err() != nil {
			return
		}
		msgs, err := up.Read()
		if err != nil {
			if s.ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("upstream read failed", "error", err)
			}
			return
		}
		for _, msg := range msgs {
			switch msg.Kind {
			case upstream.KindAudio:
				if err := s.sendJSON(protocol.Audio(base64.StdEncoding.EncodeToString(msg.Audio))); err != nil {
					return
				}
			case upstream.KindInputTranscript:
				s.fragments = append(s.fragments, Turn{Role: protocol.RoleUser, Text: msg.Text})
				if err := s.sendJSON(protocol.Transcript(protocol.RoleUser, msg.Text)); err != nil {
					return
				}
			case upstream.KindOutputTranscript:
				s.fragments = append(s.fragments, Turn{Role: protocol.RoleAssistant, Text: msg.Text})
				if err := s.sendJSON(protocol.Transcript(protocol.RoleAssistant, msg.Text)); err != nil {
					return
				}
			case upstream.KindTurnComplete:
				if err := s.sendJSON(protocol.TurnComplete()); err != nil {
					return
				}
			}
		}
		if s.checkTimeLimit(start, limit) {
			return
		}
	}
}

// checkTimeLimit returns true when the session is out of time. The
// warning fires on every check that lands inside its window; the
// client shows it as a coach message, and repeats are harmless.
func (s *Session) checkTimeLimit(start time.Time, limit time.Duration) bool {
	elapsed := s.now().Sub(start)
	if elapsed >= limit {
		_ = s.sendJSON(protocol.Error(s.limitMessage()))
		return true
	}
	remaining := (limit - elapsed).Minutes()
	if s.tier == store.TierPro {
		if remaining >= 4.9 && remaining <= 5.1 {
			_ = s.sendJSON(protocol.Transcript(protocol.RoleAssistant, "[5 minutes remaining in session]"))
		}
	} else if remaining >= 0.9 && remaining <= 1.1 {
		_ = s.sendJSON(protocol.Transcript(protocol.RoleAssistant, "[1 minute remaining in your free session]"))
	}
	return false
}

func (s *Session) limitMessage() string {
	if s.tier == store.TierPro {
		return fmt.Sprintf("Session time limit reached (%d minutes).", s.limits.SessionMaxMinutes)
	}
	return fmt.Sprintf("Free voice session complete (%d minutes). Upgrade to Pro for unlimited sessions.", s.limits.FreeTrialMinutes)
}

func (s *Session) sendJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.writeWait > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
	}
	return s.conn.WriteJSON(v)
}
