package domain

// Messages shown to players
const (
	MsgVictory          = "All pillars activated! Survivors win!"
	MsgDefeat           = "All players defeated! Game over!"
	MsgHostDisconnected = "Host disconnected, returning to main menu"
)

// DefaultPort is where a host listens unless told otherwise.
const DefaultPort = 7777
