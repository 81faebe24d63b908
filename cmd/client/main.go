package main

import (
	"context"
	"os"
	"os/signal"
	"pillarhunt-server/internal/agent"
	"pillarhunt-server/internal/client"
	"pillarhunt-server/internal/config"
	"pillarhunt-server/internal/core"
	"pillarhunt-server/internal/domain"
	"pillarhunt-server/pkg/logger"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

const dialTimeout = 5 * time.Second

func main() {
	cfg, err := config.LoadClient(os.Args[1:])
	if err != nil {
		logger.Log.Fatal("Config error: ", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Headless presentation: every event goes to the log.
	bus := core.NewBus()
	bus.Subscribe(logEvent)

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	session, err := client.Dial(dialCtx, cfg.Address, cfg.Port, client.Options{
		Name:  cfg.Name,
		Codec: cfg.Codec,
		Bus:   bus,
	})
	cancel()
	if err != nil {
		logger.Log.Fatal("Failed to connect: ", err)
	}

	if cfg.Bot {
		bot := agent.NewBot(session, cfg.Name)
		go bot.Run(ctx)
	}

	select {
	case <-ctx.Done():
		session.Close()
		<-session.Done()
	case <-session.Done():
	}
	logger.Log.WithField("reason", session.Reason()).Info("Client stopped")
}

func logEvent(ev domain.Event) {
	entry := logger.Component("presentation").WithFields(logrus.Fields{
		"event":          ev.Kind.String(),
		"participant_id": ev.Participant,
	})
	switch ev.Kind {
	case domain.EventClientFailedToJoin, domain.EventHostDisconnected, domain.EventIntentRejected:
		entry.WithField("reason", ev.Reason).Warn("Event")
	case domain.EventGameOver:
		entry.WithFields(logrus.Fields{
			"message": ev.Message,
			"outcome": ev.Outcome.String(),
		}).Info("Event")
	case domain.EventObjectiveProgress:
		entry.WithField("progress", ev.Progress).Debug("Event")
	default:
		entry.Info("Event")
	}
}
