package main

import (
	"context"
	"os"
	"os/signal"
	"pillarhunt-server/internal/config"
	"pillarhunt-server/internal/domain"
	"pillarhunt-server/internal/engine"
	"pillarhunt-server/internal/server"
	"pillarhunt-server/internal/version"
	"pillarhunt-server/pkg/logger"
	"syscall"
	"time"
)

func main() {
	// 1. Configuration
	cfg, err := config.LoadServer(os.Args[1:])
	if err != nil {
		logger.Log.Fatal("Config error: ", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	logger.Log.Info("Starting Pillar Hunt host...")
	logger.Log.Info(version.String())
	logger.Log.Infof("Using master seed: %d", cfg.Game.Seed)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Session
	session := engine.NewService(cfg.Game)
	go session.Run(context.Background())

	if cfg.AutoStart {
		session.Bus.Subscribe(func(ev domain.Event) {
			if !ev.AllReady {
				return
			}
			// Bus handlers run on the session goroutine.
			go func() {
				startCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := session.StartGame(startCtx); err != nil {
					logger.Log.WithField("reason", domain.Reason(err)).Info("Autostart skipped")
				}
			}()
		}, domain.EventAllReadyToggled)
	}

	// 3. Transport
	srv := server.New(session, server.Options{
		Addr:  cfg.Addr(),
		Codec: cfg.Codec,
		Admin: cfg.Admin,
	})

	httpCtx, stopHTTP := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Run(httpCtx)
	}()

	served := false
	select {
	case <-ctx.Done():
		logger.Log.Info("Shutting down...")
	case err := <-serveErr:
		served = true
		if err != nil {
			logger.Log.Fatal("Server start error: ", err)
		}
	}

	// Players are told first, then the listener goes away.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := session.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Warn("Session shutdown incomplete")
	}
	stopHTTP()
	if !served {
		<-serveErr
	}

	logger.Log.Info("Done.")
}
