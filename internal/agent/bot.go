// Package agent is a headless player. It connects like any other client
// and drives itself from the events the host sends back.
package agent

import (
	"context"
	"pillarhunt-server/internal/client"
	"pillarhunt-server/internal/domain"
	"pillarhunt-server/pkg/logger"
	"sync"

	"github.com/sirupsen/logrus"
)

// Bot readies up in the lobby and, once a match runs, walks from pillar to
// pillar using HINT.
//
// Life cycle:
//  1. NewBot wraps a dialed session.
//  2. Run subscribes to the session bus and greets the lobby (name, ready).
//  3. GAME_STARTED asks for a hint, HINT starts an interaction, and each
//     collection of the bot's pillar asks for the next hint.
//  4. RETURNED_TO_LOBBY readies up again for the next match.
type Bot struct {
	Session *client.Session
	Name    string

	log   *logrus.Entry
	greet sync.Once

	mu     sync.Mutex
	pos    domain.Vec2
	target int // pillar being worked on, 0 for none
}

func NewBot(s *client.Session, name string) *Bot {
	return &Bot{
		Session: s,
		Name:    name,
		log:     logger.Component("bot").WithField("client_id", s.ID),
	}
}

// Run blocks until ctx ends or the session is gone.
func (b *Bot) Run(ctx context.Context) {
	sub := b.Session.Bus.Subscribe(b.onEvent,
		domain.EventClientConnected,
		domain.EventGameStarted,
		domain.EventHint,
		domain.EventObjectiveCollected,
		domain.EventPlayerKilled,
		domain.EventGameOver,
		domain.EventReturnedToLobby,
	)
	defer sub.Unsubscribe()

	// WELCOME may have been handled before we subscribed.
	if b.Session.Self() != 0 {
		b.greet.Do(b.joinLobby)
	}

	select {
	case <-ctx.Done():
	case <-b.Session.Done():
	}
	b.log.Info("Bot stopped")
}

func (b *Bot) joinLobby() {
	if b.Name != "" {
		b.Session.ChangeName(b.Name)
	}
	b.Session.ToggleReady()
	b.log.Info("Bot ready")
}

// onEvent runs on the session read goroutine.
func (b *Bot) onEvent(ev domain.Event) {
	self := b.Session.Self()

	switch ev.Kind {
	case domain.EventClientConnected:
		if ev.Participant == self {
			b.greet.Do(b.joinLobby)
		}

	case domain.EventGameStarted:
		b.mu.Lock()
		b.target = 0
		pos := b.pos
		b.mu.Unlock()
		b.Session.Hint(pos)

	case domain.EventHint:
		if ev.Participant != self {
			return
		}
		b.mu.Lock()
		b.pos = ev.Position
		b.target = ev.ObjectiveID
		b.mu.Unlock()
		b.log.WithField("objective_id", ev.ObjectiveID).Debug("Walking to pillar")
		b.Session.BeginInteract(ev.ObjectiveID)

	case domain.EventObjectiveCollected:
		b.mu.Lock()
		mine := ev.ObjectiveID == b.target
		if mine {
			b.target = 0
		}
		pos := b.pos
		b.mu.Unlock()
		if mine && ev.Remaining > 0 {
			b.Session.Hint(pos)
		}

	case domain.EventPlayerKilled, domain.EventGameOver:
		if ev.Kind == domain.EventPlayerKilled && ev.Participant != self {
			return
		}
		b.mu.Lock()
		b.target = 0
		b.mu.Unlock()

	case domain.EventReturnedToLobby:
		b.Session.ToggleReady()
	}
}
