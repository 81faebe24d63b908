package domain

import "errors"

// Rejection is an expected, user-facing refusal. Its message is shown to the player verbatim.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string { return r.Reason }

func reject(reason string) error { return &Rejection{Reason: reason} }

var (
	ErrGameFull           = reject("Game is full")
	ErrGameInProgress     = reject("Game is in progress")
	ErrNameTaken          = reject("Name is already taken, please type another")
	ErrNameTooLong        = reject("Name is too long")
	ErrNameInvalid        = reject("Name contains invalid characters")
	ErrRoleTaken          = reject("Monster role is already taken")
	ErrNotAllReady        = reject("Not all players are ready")
	ErrNotLobbyLeader     = reject("Only the lobby leader can start the game")
	ErrNotParticipant     = reject("Not a participant")
	ErrCannotInteract     = reject("Only living survivors can collect pillars")
	ErrNotInGame          = reject("No game in progress")
	ErrUnknownObjective   = reject("Unknown pillar")
	ErrObjectiveCollected = reject("Pillar already collected")
	ErrSessionClosed      = reject("Session is closed")
)

// Faults, not shown to players.
var (
	ErrDuplicateParticipant = errors.New("participant already in roster")
	ErrSecondMonster        = errors.New("roster already has a monster")
)

// IsRejection reports whether err (or anything it wraps) is a Rejection.
func IsRejection(err error) bool {
	var r *Rejection
	return errors.As(err, &r)
}

// Reason extracts the user-facing reason, or a generic text for faults.
func Reason(err error) string {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Reason
	}
	return "Request failed"
}
