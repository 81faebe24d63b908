package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	_ "net/http/pprof" // Profiling
	"pillarhunt-server/internal/domain"
	"pillarhunt-server/internal/engine"
	"pillarhunt-server/internal/version"
	"pillarhunt-server/pkg/api"
	"pillarhunt-server/pkg/logger"
	"time"
)

const shutdownTimeout = 5 * time.Second

// Options are the transport settings taken from config.
type Options struct {
	Addr  string
	Codec string // used when the client does not ask for one
	Admin bool
}

type Server struct {
	Session *engine.SessionService
	Opts    Options
}

func New(session *engine.SessionService, opts Options) *Server {
	return &Server{
		Session: session,
		Opts:    opts,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", enableCORS(s.handleWS))
	mux.HandleFunc("/health", enableCORS(s.handleHealth))
	mux.HandleFunc("/version", enableCORS(s.handleVersion))

	NewDebugHandler(s.Session).RegisterRoutes(mux)
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	if s.Opts.Admin {
		NewAdminHandler(s.Session).RegisterRoutes(mux)
	}
	return mux
}

// Run listens until ctx is cancelled. It announces the bound address as a
// host-local HOST_STARTED event once the listener is up.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Opts.Addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	addr := ln.Addr().String()
	logger.Log.Infof("Pillar Hunt host running on %s", addr)
	s.Session.Bus.Publish(domain.Event{Kind: domain.EventHostStarted, Address: addr})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Warn("HTTP shutdown incomplete")
		}
		return nil
	}
}

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		next(w, r)
	}
}

// handleWS upgrades the connection. ?codec= picks the downstream encoding.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("codec")
	if name == "" {
		name = s.Opts.Codec
	}
	codec, err := api.CodecByName(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.WithError(err).Warn("Upgrade error")
		return
	}

	client := NewClient(s.Session, conn, codec, r.RemoteAddr)
	go client.serve()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(version.Info())
}
