// Package client is the observer side of a session: it dials the host,
// mirrors the replicated roster and republishes host events on a local bus.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"pillarhunt-server/internal/core"
	"pillarhunt-server/internal/domain"
	"pillarhunt-server/internal/roster"
	"pillarhunt-server/pkg/api"
	"pillarhunt-server/pkg/logger"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	maxFrameSize = 1 << 20

	defaultSendQueue = 64
)

// ReasonConnectionLost is reported when the socket drops without a SHUTDOWN frame.
const ReasonConnectionLost = "Connection to host lost"

type Options struct {
	Name      string
	Codec     string    // json or msgpack; empty means json
	Bus       *core.Bus // subscribe before Dial to see every event; nil creates one
	SendQueue int
}

// Session is one connection to a host. Intent methods never block.
type Session struct {
	ID  string
	Bus *core.Bus

	conn  *websocket.Conn
	codec api.Codec
	send  chan api.ClientCommand
	log   *logrus.Entry

	mu        sync.RWMutex
	mirror    *roster.Mirror
	self      domain.ParticipantID
	sessionID string
	view      api.SessionView
	resyncing bool
	rejected  bool
	reason    string

	local    atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func newSession(conn *websocket.Conn, codec api.Codec, opts Options) *Session {
	bus := opts.Bus
	if bus == nil {
		bus = core.NewBus()
	}
	queue := opts.SendQueue
	if queue <= 0 {
		queue = defaultSendQueue
	}
	id := uuid.NewString()
	return &Session{
		ID:     id,
		Bus:    bus,
		conn:   conn,
		codec:  codec,
		send:   make(chan api.ClientCommand, queue),
		log:    logger.Component("client").WithField("client_id", id),
		mirror: roster.NewMirror(),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Dial connects to a host and says HELLO. The outcome of the join arrives
// on the bus as CLIENT_CONNECTED or CLIENT_FAILED_TO_JOIN.
func Dial(ctx context.Context, address string, port int, opts Options) (*Session, error) {
	if opts.Codec == "" {
		opts.Codec = "json"
	}
	codec, err := api.CodecByName(opts.Codec)
	if err != nil {
		return nil, err
	}

	u := url.URL{
		Scheme:   "ws",
		Host:     net.JoinHostPort(address, strconv.Itoa(port)),
		Path:     "/ws",
		RawQuery: url.Values{"codec": {codec.Name()}}.Encode(),
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Host, err)
	}

	raw, err := json.Marshal(api.HelloPayload{Name: opts.Name})
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.WriteJSON(api.ClientCommand{Action: "HELLO", Payload: raw}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("hello: %w", err)
	}

	s := newSession(conn, codec, opts)
	s.log.WithField("host", u.Host).Info("Connected to host")

	go s.writePump()
	go s.readPump()
	return s, nil
}

// --- intents ---

func (s *Session) ToggleRole()  { s.submit(domain.ActionRoleToggle, nil) }
func (s *Session) ToggleReady() { s.submit(domain.ActionReadyToggle, nil) }
func (s *Session) StartGame()   { s.submit(domain.ActionStartGame, nil) }
func (s *Session) Sync()        { s.submit(domain.ActionSync, nil) }

func (s *Session) ChangeName(name string) {
	s.submit(domain.ActionNameChange, api.NamePayload{Name: name})
}

func (s *Session) BeginInteract(objectiveID int) {
	s.submit(domain.ActionBeginInteract, api.ObjectivePayload{ObjectiveID: objectiveID})
}

func (s *Session) EndInteract(objectiveID int) {
	s.submit(domain.ActionEndInteract, api.ObjectivePayload{ObjectiveID: objectiveID})
}

// Hint asks for the nearest uncollected pillar from pos.
func (s *Session) Hint(pos domain.Vec2) {
	s.submit(domain.ActionHint, api.PositionPayload{X: pos.X, Z: pos.Z})
}

func (s *Session) submit(action domain.ActionType, payload any) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			s.log.WithError(err).WithField("action", action).Error("Failed to encode intent")
			return
		}
		raw = data
	}
	cmd := api.ClientCommand{Action: action.String(), Payload: raw}

	select {
	case <-s.stop:
		s.log.WithField("action", action).Debug("Intent after close ignored")
	case s.send <- cmd:
	default:
		s.log.WithField("action", action).Warn("Send queue full, intent dropped")
	}
}

// --- state ---

func (s *Session) Self() domain.ParticipantID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.self
}

func (s *Session) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Roster returns the mirrored entries in host order.
func (s *Session) Roster() []domain.RosterEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirror.Entries()
}

func (s *Session) Rows() []roster.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirror.Rows()
}

// View is the last snapshot received with WELCOME or SYNC.
func (s *Session) View() api.SessionView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Reason is why the session ended, once Done is closed.
func (s *Session) Reason() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}

// Done is closed when the connection is gone.
func (s *Session) Done() <-chan struct{} { return s.done }

// Close leaves the session. No HOST_DISCONNECTED event is published.
func (s *Session) Close() {
	s.local.Store(true)
	s.stopOnce.Do(func() { close(s.stop) })
}

// --- pumps ---

func (s *Session) readPump() {
	reason := ReasonConnectionLost
	defer func() {
		s.stopOnce.Do(func() { close(s.stop) })
		s.finish(reason)
	}()

	s.conn.SetReadLimit(maxFrameSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.log.WithError(err).Warn("Failed to set read deadline")
	}
	s.conn.SetPingHandler(func(data string) error {
		if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			return err
		}
		err := s.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Text != "" {
				reason = closeErr.Text
			}
			if !s.local.Load() && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.ClosePolicyViolation) {
				s.log.WithError(err).Warn("Read error")
			}
			return
		}

		var msg api.ServerMessage
		if err := s.codec.Decode(data, &msg); err != nil {
			s.log.WithError(err).Warn("Undecodable frame skipped")
			continue
		}
		if msg.Type == api.TypeShutdown {
			reason = msg.Reason
		}
		s.handle(msg)
	}
}

func (s *Session) writePump() {
	defer s.conn.Close()

	for {
		select {
		case cmd := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.log.WithError(err).Warn("Failed to set write deadline")
			}
			if err := s.conn.WriteJSON(cmd); err != nil {
				s.log.WithError(err).Debug("Write failed")
				return
			}

		case <-s.stop:
			closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if err := s.conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait)); err != nil {
				s.log.WithError(err).Debug("Write close failed")
			}
			return
		}
	}
}

func (s *Session) finish(reason string) {
	s.mu.Lock()
	rejected := s.rejected
	if s.reason == "" {
		s.reason = reason
	}
	s.mu.Unlock()
	close(s.done)

	if s.local.Load() || rejected {
		s.log.Info("Session closed")
		return
	}
	s.log.WithField("reason", reason).Info("Host disconnected")
	s.Bus.Publish(domain.Event{Kind: domain.EventHostDisconnected, Reason: reason})
}

// --- frames ---

func (s *Session) handle(msg api.ServerMessage) {
	switch msg.Type {
	case api.TypeWelcome:
		s.mu.Lock()
		s.self = domain.ParticipantID(msg.YourID)
		s.sessionID = msg.Session
		if msg.Snapshot != nil {
			s.view = *msg.Snapshot
		}
		s.mu.Unlock()
		s.log.WithField("participant_id", msg.YourID).Info("Joined session")
		s.Bus.Publish(domain.Event{Kind: domain.EventClientConnected, Participant: domain.ParticipantID(msg.YourID)})

	case api.TypeRejected:
		s.mu.Lock()
		s.rejected = true
		s.reason = msg.Reason
		s.mu.Unlock()
		s.log.WithField("reason", msg.Reason).Info("Join rejected")
		s.Bus.Publish(domain.Event{Kind: domain.EventClientFailedToJoin, Reason: msg.Reason})

	case api.TypeSync:
		if msg.Snapshot != nil {
			s.mu.Lock()
			s.view = *msg.Snapshot
			s.mu.Unlock()
		}

	case api.TypeRoster:
		if msg.Roster != nil {
			s.applyRoster(*msg.Roster)
		}

	case api.TypeEvent:
		if msg.Event == nil {
			return
		}
		ev := core.EventFromView(*msg.Event)
		// Our own arrival was already announced on WELCOME.
		if ev.Kind == domain.EventClientConnected && ev.Participant == s.Self() {
			return
		}
		s.Bus.Publish(ev)

	case api.TypeShutdown:
		s.mu.Lock()
		s.reason = msg.Reason
		s.mu.Unlock()
	}
}

// applyRoster folds one frame into the mirror. A gap asks the host for a
// fresh snapshot and ignores incremental frames until it arrives.
func (s *Session) applyRoster(v api.RosterChangeView) {
	change, err := roster.ChangeFromView(v)
	if err != nil {
		s.log.WithError(err).Warn("Bad roster frame")
		s.requestResync()
		return
	}

	s.mu.Lock()
	if s.resyncing && !change.Synthetic {
		s.mu.Unlock()
		return
	}
	if change.Synthetic && change.Kind == domain.ChangeClear {
		s.resyncing = false
	}
	err = s.mirror.Apply(change)
	s.mu.Unlock()

	if err != nil {
		s.log.WithError(err).WithField("seq", change.Seq).Warn("Roster out of sync")
		s.requestResync()
	}
}

func (s *Session) requestResync() {
	s.mu.Lock()
	already := s.resyncing
	s.resyncing = true
	s.mu.Unlock()
	if !already {
		s.Sync()
	}
}
