package engine

import (
	"context"
	"math/rand"
	"pillarhunt-server/internal/core"
	"pillarhunt-server/internal/domain"
	"pillarhunt-server/internal/engine/handlers"
	"pillarhunt-server/internal/engine/handlers/intents"
	"pillarhunt-server/internal/network"
	"pillarhunt-server/internal/roster"
	"pillarhunt-server/internal/systems"
	"pillarhunt-server/pkg/api"
	"pillarhunt-server/pkg/logger"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const inboxSize = 256

// JoinRequest describes a connection asking for a roster slot.
type JoinRequest struct {
	RemoteAddr string
}

// JoinResult is an admitted participant and its downstream frame channel.
type JoinResult struct {
	ID      domain.ParticipantID
	Updates <-chan api.ServerMessage
}

// SessionService is the authoritative session. All game state is owned by
// the Run goroutine; the exported methods only post messages to it.
type SessionService struct {
	ID string

	Bus     *core.Bus
	Hub     *network.Broadcaster
	Metrics *Metrics

	cfg   Config
	log   *logrus.Entry
	inbox chan any
	done  chan struct{}

	// Owned by the Run goroutine
	phase     domain.SessionPhase
	outcome   domain.Outcome
	allReady  bool
	nextID    domain.ParticipantID
	matches   int64
	lastTick  time.Time
	buckets   map[int]int
	roster    *roster.Store
	tracker   *systems.Tracker
	pillars   *systems.PillarSet
	adversary *systems.Adversary
	scheduler *Scheduler
	handlers  map[domain.ActionType]handlers.HandlerFunc
	now       func() time.Time
}

func NewService(cfg Config) *SessionService {
	cfg.Sanitize()

	s := &SessionService{
		ID:       uuid.NewString(),
		Bus:      core.NewBus(),
		Hub:      network.NewBroadcaster(network.DefaultBuffer),
		Metrics:  NewMetrics(),
		cfg:      cfg,
		inbox:    make(chan any, inboxSize),
		done:     make(chan struct{}),
		phase:    domain.SessionLobby,
		buckets:  make(map[int]int),
		roster:   roster.NewStore(),
		tracker:  systems.NewTracker(cfg.trackerConfig()),
		pillars:  systems.NewPillarSet(cfg.Pillar),
		handlers: make(map[domain.ActionType]handlers.HandlerFunc),
		now:      time.Now,
	}
	s.log = logger.Component("session").WithField("session_id", s.ID)
	s.scheduler = NewScheduler(func() time.Time { return s.now() })
	s.adversary = systems.NewAdversary(cfg.Adversary, s.scheduler, rand.New(rand.NewSource(cfg.Seed)), s.pillars)
	s.adversary.OnChange = s.onAdversaryChange

	s.roster.Subscribe(s.onRosterChange)
	s.Hub.OnEvict = func(id domain.ParticipantID) {
		s.Metrics.IncrementEvictions()
		s.log.WithField("participant_id", id).Warn("Participant evicted for falling behind")
	}

	s.registerHandlers()
	return s
}

func (s *SessionService) registerHandlers() {
	s.handlers[domain.ActionRoleToggle] = handlers.WithEmptyPayload(intents.HandleRoleToggle)
	s.handlers[domain.ActionReadyToggle] = handlers.WithEmptyPayload(intents.HandleReadyToggle)
	s.handlers[domain.ActionNameChange] = handlers.WithPayload(intents.HandleNameChange)
	s.handlers[domain.ActionStartGame] = handlers.WithEmptyPayload(intents.HandleStartGame)

	s.handlers[domain.ActionBeginInteract] = handlers.WithPayload(intents.HandleBeginInteract)
	s.handlers[domain.ActionEndInteract] = handlers.WithPayload(intents.HandleEndInteract)
	s.handlers[domain.ActionSync] = handlers.WithEmptyPayload(intents.HandleSync)
	s.handlers[domain.ActionHint] = handlers.WithPayload(intents.HandleHint)
}

// Config returns the sanitized rules the session runs with.
func (s *SessionService) Config() Config { return s.cfg }

// Done is closed once Run has returned.
func (s *SessionService) Done() <-chan struct{} { return s.done }

// --- inbox messages ---

type joinMsg struct {
	req   JoinRequest
	reply chan joinReply
}

type joinReply struct {
	res JoinResult
	err error
}

type leaveMsg struct {
	id domain.ParticipantID
}

type intentMsg struct {
	cmd domain.InternalCommand
}

type errMsg struct {
	op    func() error
	reply chan error
}

type reportMsg struct {
	kind reportKind
	id   domain.ParticipantID
}

type snapshotMsg struct {
	reply chan api.SessionView
}

type debugMsg struct {
	reply chan DebugState
}

type shutdownMsg struct {
	reply chan struct{}
}

// Run is the session loop. It returns when ctx is cancelled or Shutdown is called.
func (s *SessionService) Run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.TickInterval())
	defer ticker.Stop()

	s.lastTick = s.now()
	s.log.WithFields(logrus.Fields{
		"max_players": s.cfg.MaxPlayers,
		"objectives":  s.cfg.Objectives,
		"seed":        s.cfg.Seed,
	}).Info("Session loop started")

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case msg := <-s.inbox:
			if stop := s.handle(msg); stop {
				return
			}
		case <-ticker.C:
			s.tick(s.now())
		}
	}
}

// handle processes one inbox message and reports whether the loop must stop.
func (s *SessionService) handle(msg any) bool {
	switch m := msg.(type) {
	case joinMsg:
		res, err := s.join(m.req)
		m.reply <- joinReply{res: res, err: err}
	case leaveMsg:
		s.leave(m.id)
	case intentMsg:
		s.dispatch(m.cmd)
	case errMsg:
		m.reply <- m.op()
	case reportMsg:
		s.report(m.kind, m.id)
	case snapshotMsg:
		m.reply <- s.view()
	case debugMsg:
		m.reply <- s.debugState()
	case shutdownMsg:
		s.shutdown()
		close(m.reply)
		return true
	default:
		s.log.Errorf("Unknown inbox message %T", msg)
	}
	return false
}

// --- public API, safe for concurrent use ---

func (s *SessionService) post(ctx context.Context, msg any) error {
	select {
	case s.inbox <- msg:
		return nil
	case <-s.done:
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Join asks for a roster slot. On success the participant is already in the
// roster and its channel holds WELCOME followed by the roster snapshot.
func (s *SessionService) Join(ctx context.Context, req JoinRequest) (JoinResult, error) {
	reply := make(chan joinReply, 1)
	if err := s.post(ctx, joinMsg{req: req, reply: reply}); err != nil {
		return JoinResult{}, err
	}

	select {
	case r := <-reply:
		return r.res, r.err
	case <-s.done:
		return JoinResult{}, domain.ErrSessionClosed
	case <-ctx.Done():
		// The join may still land; release the slot if it does.
		go func() {
			select {
			case r := <-reply:
				if r.err == nil {
					s.Leave(r.res.ID)
				}
			case <-s.done:
			}
		}()
		return JoinResult{}, ctx.Err()
	}
}

// Leave removes a participant. Unknown ids are ignored.
func (s *SessionService) Leave(id domain.ParticipantID) {
	_ = s.post(context.Background(), leaveMsg{id: id})
}

// Submit queues an intent from the participant bound to a connection.
// Unknown actions are dropped here, before they reach the session goroutine.
func (s *SessionService) Submit(id domain.ParticipantID, cmd api.ClientCommand) {
	action := domain.ParseAction(cmd.Action)
	if action == domain.ActionUnknown {
		s.Metrics.IncrementMalformed()
		s.log.WithFields(logrus.Fields{
			"participant_id": id,
			"action":         cmd.Action,
		}).Debug("Unknown action ignored")
		return
	}
	s.Metrics.IncrementIntents()
	_ = s.post(context.Background(), intentMsg{cmd: domain.InternalCommand{
		Action:  action,
		Actor:   id,
		Payload: cmd.Payload,
	}})
}

func (s *SessionService) call(ctx context.Context, op func() error) error {
	reply := make(chan error, 1)
	if err := s.post(ctx, errMsg{op: op, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Approve reports whether a new connection would currently be admitted.
func (s *SessionService) Approve(ctx context.Context) error {
	return s.call(ctx, s.approve)
}

// StartGame starts the match on behalf of the host.
func (s *SessionService) StartGame(ctx context.Context) error {
	return s.call(ctx, s.startGame)
}

// Snapshot returns the current session view.
func (s *SessionService) Snapshot(ctx context.Context) (api.SessionView, error) {
	reply := make(chan api.SessionView, 1)
	if err := s.post(ctx, snapshotMsg{reply: reply}); err != nil {
		return api.SessionView{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-s.done:
		return api.SessionView{}, domain.ErrSessionClosed
	case <-ctx.Done():
		return api.SessionView{}, ctx.Err()
	}
}

// Debug returns the session view plus scheduler internals.
func (s *SessionService) Debug(ctx context.Context) (DebugState, error) {
	reply := make(chan DebugState, 1)
	if err := s.post(ctx, debugMsg{reply: reply}); err != nil {
		return DebugState{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-s.done:
		return DebugState{}, domain.ErrSessionClosed
	case <-ctx.Done():
		return DebugState{}, ctx.Err()
	}
}

// Shutdown notifies every participant, closes their channels and stops Run.
// Calling it on a stopped session is a no-op.
func (s *SessionService) Shutdown(ctx context.Context) error {
	reply := make(chan struct{})
	if err := s.post(ctx, shutdownMsg{reply: reply}); err != nil {
		if err == domain.ErrSessionClosed {
			return nil
		}
		return err
	}
	select {
	case <-reply:
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Host hooks for the physics/perception side of the game.

func (s *SessionService) ReportAdversaryContact(id domain.ParticipantID) {
	_ = s.post(context.Background(), reportMsg{kind: reportAdversaryContact, id: id})
}

func (s *SessionService) ReportMonsterContact(id domain.ParticipantID) {
	_ = s.post(context.Background(), reportMsg{kind: reportMonsterContact, id: id})
}

func (s *SessionService) ReportTargetSighted(id domain.ParticipantID) {
	_ = s.post(context.Background(), reportMsg{kind: reportTargetSighted, id: id})
}

func (s *SessionService) ReportTargetEvaded() {
	_ = s.post(context.Background(), reportMsg{kind: reportTargetEvaded})
}

func (s *SessionService) ReportAdversaryArrived() {
	_ = s.post(context.Background(), reportMsg{kind: reportAdversaryArrived})
}

// --- session goroutine ---

// dispatch runs one intent through its handler.
func (s *SessionService) dispatch(cmd domain.InternalCommand) {
	log := s.log.WithFields(logrus.Fields{
		"participant_id": cmd.Actor,
		"action":         cmd.Action.String(),
	})

	handler, ok := s.handlers[cmd.Action]
	if !ok {
		log.Warn("No handler registered")
		return
	}
	// Intents from connections that already left are stale.
	if s.roster.IndexOf(cmd.Actor) < 0 {
		log.Debug("Intent from non-participant ignored")
		return
	}
	if cmd.Action.LobbyOnly() && s.phase != domain.SessionLobby {
		s.reject(cmd.Action, cmd.Actor, domain.ErrGameInProgress)
		return
	}

	res, err := handler(handlers.Context{Session: actorSession{s}, Actor: cmd.Actor}, cmd.Payload)
	if err != nil {
		if domain.IsRejection(err) {
			s.reject(cmd.Action, cmd.Actor, err)
			return
		}
		s.Metrics.IncrementMalformed()
		log.WithError(err).Warn("Malformed intent ignored")
		return
	}
	if res.Msg != "" {
		log.Debug(res.Msg)
	}
}

// reject tells the requester why an intent had no effect.
func (s *SessionService) reject(action domain.ActionType, actor domain.ParticipantID, err error) {
	s.Metrics.IncrementRejections()
	reason := domain.Reason(err)
	s.log.WithFields(logrus.Fields{
		"participant_id": actor,
		"action":         action.String(),
		"reason":         reason,
	}).Info("Intent rejected")

	if action == domain.ActionNameChange {
		s.emit(domain.Event{Kind: domain.EventNameChangeResult, Participant: actor, Reason: reason})
		return
	}
	s.emit(domain.Event{Kind: domain.EventIntentRejected, Participant: actor, Action: action, Reason: reason})
}

// emit publishes ev locally and forwards it according to its scope.
func (s *SessionService) emit(ev domain.Event) {
	s.Bus.Publish(ev)

	switch ev.Kind.Scope() {
	case domain.ScopeBroadcast:
		s.broadcast(eventFrame(ev))
	case domain.ScopeDirect:
		s.sendTo(ev.Participant, eventFrame(ev))
	}
}

func (s *SessionService) broadcast(msg api.ServerMessage) {
	n := s.Hub.SubscriberCount()
	evicted := s.Hub.Broadcast(msg)
	s.Metrics.IncrementFrames(n - len(evicted))
}

func (s *SessionService) sendTo(id domain.ParticipantID, msg api.ServerMessage) {
	if s.Hub.SendTo(id, msg) {
		s.Metrics.IncrementFrames(1)
	}
}

func (s *SessionService) onRosterChange(c domain.RosterChange) {
	s.Metrics.IncrementRosterChanges()
	s.broadcast(rosterFrame(c))
}

func (s *SessionService) onAdversaryChange(v systems.AdversaryView) {
	s.emit(domain.Event{
		Kind:           domain.EventAdversaryState,
		Participant:    v.Target,
		AdversaryState: v.State.String(),
		Position:       v.Position,
	})
}

// shutdown is idempotent.
func (s *SessionService) shutdown() {
	if s.phase == domain.SessionClosed {
		return
	}
	s.phase = domain.SessionClosed
	s.scheduler.Clear()

	s.broadcast(api.ServerMessage{Type: api.TypeShutdown, Reason: domain.MsgHostDisconnected})
	s.Hub.CloseAll()
	s.log.WithField("participants", s.roster.Len()).Info("Session closed")
}

// actorSession exposes the session to intent handlers. It exists so that
// the unsynchronized methods are only reachable from dispatch.
type actorSession struct {
	s *SessionService
}

func (a actorSession) ToggleRole(id domain.ParticipantID) error {
	return a.s.toggleRole(id)
}

func (a actorSession) ToggleReady(id domain.ParticipantID) error {
	return a.s.toggleReady(id)
}

func (a actorSession) ChangeName(id domain.ParticipantID, name string) error {
	return a.s.changeName(id, name)
}

func (a actorSession) RequestStart(id domain.ParticipantID) error {
	return a.s.requestStart(id)
}

func (a actorSession) BeginInteract(id domain.ParticipantID, objectiveID int) error {
	return a.s.beginInteract(id, objectiveID)
}

func (a actorSession) EndInteract(id domain.ParticipantID, objectiveID int) error {
	return a.s.endInteract(id, objectiveID)
}

func (a actorSession) Resync(id domain.ParticipantID) error {
	return a.s.resync(id)
}

func (a actorSession) Hint(id domain.ParticipantID, from domain.Vec2) error {
	return a.s.hint(id, from)
}
