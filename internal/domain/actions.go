package domain

import "strings"

// ActionType is the internal numeric id of a participant intent.
type ActionType uint8

const (
	ActionUnknown ActionType = iota
	ActionRoleToggle
	ActionReadyToggle
	ActionNameChange
	ActionStartGame
	ActionBeginInteract
	ActionEndInteract
	ActionSync
	ActionHint
)

// Wire string -> domain
var actionStringToCmd = map[string]ActionType{
	"ROLE_TOGGLE":    ActionRoleToggle,
	"READY_TOGGLE":   ActionReadyToggle,
	"NAME_CHANGE":    ActionNameChange,
	"START_GAME":     ActionStartGame,
	"BEGIN_INTERACT": ActionBeginInteract,
	"END_INTERACT":   ActionEndInteract,
	"SYNC":           ActionSync,
	"HINT":           ActionHint,
}

// Domain -> string for logs and frames
var actionCmdToString = map[ActionType]string{
	ActionRoleToggle:    "ROLE_TOGGLE",
	ActionReadyToggle:   "READY_TOGGLE",
	ActionNameChange:    "NAME_CHANGE",
	ActionStartGame:     "START_GAME",
	ActionBeginInteract: "BEGIN_INTERACT",
	ActionEndInteract:   "END_INTERACT",
	ActionSync:          "SYNC",
	ActionHint:          "HINT",
}

// ParseAction converts a wire action name into an ActionType.
// Matching is case-insensitive.
func ParseAction(s string) ActionType {
	upper := strings.ToUpper(s)
	if val, ok := actionStringToCmd[upper]; ok {
		return val
	}
	return ActionUnknown
}

// String implements fmt.Stringer.
func (a ActionType) String() string {
	if val, ok := actionCmdToString[a]; ok {
		return val
	}
	return "UNKNOWN"
}

// LobbyOnly reports whether the intent is only meaningful before a match starts.
func (a ActionType) LobbyOnly() bool {
	switch a {
	case ActionRoleToggle, ActionReadyToggle, ActionNameChange, ActionStartGame:
		return true
	}
	return false
}
