package domain

// SessionPhase is the coordinator's lifecycle stage.
type SessionPhase uint8

const (
	SessionLobby SessionPhase = iota
	SessionInGame
	SessionGameOver
	SessionClosed
)

func (p SessionPhase) String() string {
	switch p {
	case SessionLobby:
		return "LOBBY"
	case SessionInGame:
		return "IN_GAME"
	case SessionGameOver:
		return "GAME_OVER"
	case SessionClosed:
		return "CLOSED"
	}
	return "UNKNOWN"
}

// GamePhase is derived from the number of collected objectives and never regresses.
type GamePhase uint8

const (
	PhaseIdle GamePhase = iota
	PhaseStarted
	PhaseEscalating
	PhaseAggressive
	PhaseComplete
)

var gamePhaseNames = [...]string{"IDLE", "STARTED", "ESCALATING", "AGGRESSIVE", "COMPLETE"}

func (p GamePhase) String() string {
	if int(p) < len(gamePhaseNames) {
		return gamePhaseNames[p]
	}
	return "UNKNOWN"
}

// ParseGamePhase returns PhaseIdle for unknown names.
func ParseGamePhase(s string) GamePhase {
	for i, name := range gamePhaseNames {
		if name == s {
			return GamePhase(i)
		}
	}
	return PhaseIdle
}

// Outcome of a finished match.
type Outcome uint8

const (
	OutcomeNone Outcome = iota
	OutcomeVictory
	OutcomeDefeat
)

func (o Outcome) String() string {
	switch o {
	case OutcomeVictory:
		return "VICTORY"
	case OutcomeDefeat:
		return "DEFEAT"
	}
	return "NONE"
}

// ParseOutcome returns OutcomeNone for unknown names.
func ParseOutcome(s string) Outcome {
	switch s {
	case "VICTORY":
		return OutcomeVictory
	case "DEFEAT":
		return OutcomeDefeat
	}
	return OutcomeNone
}
