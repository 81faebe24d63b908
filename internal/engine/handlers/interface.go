package handlers

import (
	"encoding/json"
	"pillarhunt-server/internal/domain"
)

// Session is the part of the coordinator an intent handler may drive.
// The session actor implements it; every method runs on the session goroutine.
type Session interface {
	ToggleRole(id domain.ParticipantID) error
	ToggleReady(id domain.ParticipantID) error
	ChangeName(id domain.ParticipantID, name string) error
	RequestStart(id domain.ParticipantID) error
	BeginInteract(id domain.ParticipantID, objectiveID int) error
	EndInteract(id domain.ParticipantID, objectiveID int) error
	Resync(id domain.ParticipantID) error
	Hint(id domain.ParticipantID, from domain.Vec2) error
}

// Context hands the handler the session and the participant behind the intent.
// Actor comes from the connection, never from the payload.
type Context struct {
	Session Session
	Actor   domain.ParticipantID
}

// Result is what a handler reports back. Handlers do not log or notify
// on their own; rejections travel as errors.
type Result struct {
	Msg string // debug log line
}

// HandlerFunc is the contract for every intent (READY_TOGGLE, HINT, etc).
type HandlerFunc func(ctx Context, payload json.RawMessage) (Result, error)

// EmptyResult is a successful result with nothing to say.
func EmptyResult() Result {
	return Result{}
}
