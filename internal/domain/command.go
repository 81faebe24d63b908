package domain

import "encoding/json"

// InternalCommand is an intent after the wire action has been parsed.
type InternalCommand struct {
	Action  ActionType
	Actor   ParticipantID
	Payload json.RawMessage // decoded by the handler
}
