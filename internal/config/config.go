// Package config loads process settings from .env, PH_* variables and flags.
// Flags win over the environment, which wins over defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"pillarhunt-server/internal/domain"
	"pillarhunt-server/internal/engine"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Server is everything cmd/server needs.
type Server struct {
	Host      string
	Port      int
	LogLevel  string
	LogFormat string
	Codec     string // default downstream codec
	Admin     bool   // expose /admin/* report hooks
	AutoStart bool   // start the match as soon as everyone is ready

	Game engine.Config
}

// Client is everything cmd/client needs.
type Client struct {
	Address   string
	Port      int
	Name      string
	Codec     string
	Bot       bool
	LogLevel  string
	LogFormat string
}

// Addr is the listen address in host:port form.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// LoadServer builds the host settings. args excludes the program name.
func LoadServer(args []string) (*Server, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Server{
		Host:      "",
		Port:      domain.DefaultPort,
		LogLevel:  "info",
		LogFormat: "text",
		Codec:     "json",
		Game:      engine.NewConfig(),
	}
	cfg.Game.Seed = 0

	env := envReader{}
	env.strVar("PH_HOST", &cfg.Host)
	env.intVar("PH_PORT", &cfg.Port)
	env.strVar("PH_LOG_LEVEL", &cfg.LogLevel)
	env.strVar("PH_LOG_FORMAT", &cfg.LogFormat)
	env.strVar("PH_CODEC", &cfg.Codec)
	env.boolVar("PH_ADMIN", &cfg.Admin)
	env.boolVar("PH_AUTOSTART", &cfg.AutoStart)

	g := &cfg.Game
	env.int64Var("PH_SEED", &g.Seed)
	env.intVar("PH_MAX_PLAYERS", &g.MaxPlayers)
	env.intVar("PH_PLAYER_HP", &g.PlayerMaxHP)
	env.intVar("PH_OBJECTIVES", &g.Objectives)
	env.floatVar("PH_REQUIRED_TIME", &g.Pillar.RequiredTime)
	env.intVar("PH_COOP_THRESHOLD", &g.Pillar.CoopThreshold)
	env.floatVar("PH_COOP_FACTOR", &g.Pillar.CoopFactor)
	env.floatVar("PH_MAP_EXTENT", &g.MapExtent)
	env.intVar("PH_TICK_RATE", &g.TickRate)
	env.durationVar("PH_GAME_OVER_GRACE", &g.GameOverGrace)
	env.floatVar("PH_HUNT_CHANCE", &g.Adversary.HuntChance)
	if err := env.err(); err != nil {
		return nil, err
	}

	flags := flag.NewFlagSet("pillarhunt-server", flag.ContinueOnError)
	flags.StringVar(&cfg.Host, "host", cfg.Host, "Bind address (empty for all interfaces)")
	flags.IntVar(&cfg.Port, "port", cfg.Port, "Listen port")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug|info|warn|error")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text|json")
	flags.StringVar(&cfg.Codec, "codec", cfg.Codec, "Default downstream codec: json|msgpack")
	flags.BoolVar(&cfg.Admin, "admin", cfg.Admin, "Expose /admin report hooks")
	flags.BoolVar(&cfg.AutoStart, "autostart", cfg.AutoStart, "Start the match when everyone is ready")
	flags.Int64Var(&g.Seed, "seed", g.Seed, "Match seed (0 for random)")
	flags.IntVar(&g.MaxPlayers, "max-players", g.MaxPlayers, "Roster capacity")
	flags.IntVar(&g.Objectives, "objectives", g.Objectives, "Pillars per match")
	flags.Float64Var(&g.Pillar.RequiredTime, "required-time", g.Pillar.RequiredTime, "Seconds of work per pillar")
	flags.IntVar(&g.TickRate, "tick-rate", g.TickRate, "Objective ticks per second")
	flags.DurationVar(&g.GameOverGrace, "grace", g.GameOverGrace, "Delay before returning to the lobby")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	cfg.Sanitize()
	return cfg, nil
}

// Sanitize replaces invalid values with defaults.
func (s *Server) Sanitize() {
	s.Port = sanePort(s.Port)
	s.LogLevel = saneLevel(s.LogLevel)
	s.Codec = saneCodec(s.Codec)
	s.Game.Sanitize()
}

// LoadClient builds the observer settings. args excludes the program name.
func LoadClient(args []string) (*Client, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Client{
		Address:   "127.0.0.1",
		Port:      domain.DefaultPort,
		Codec:     "json",
		LogLevel:  "info",
		LogFormat: "text",
	}

	env := envReader{}
	env.strVar("PH_ADDRESS", &cfg.Address)
	env.intVar("PH_PORT", &cfg.Port)
	env.strVar("PH_NAME", &cfg.Name)
	env.strVar("PH_CODEC", &cfg.Codec)
	env.boolVar("PH_BOT", &cfg.Bot)
	env.strVar("PH_LOG_LEVEL", &cfg.LogLevel)
	env.strVar("PH_LOG_FORMAT", &cfg.LogFormat)
	if err := env.err(); err != nil {
		return nil, err
	}

	flags := flag.NewFlagSet("pillarhunt-client", flag.ContinueOnError)
	flags.StringVar(&cfg.Address, "address", cfg.Address, "Host address")
	flags.IntVar(&cfg.Port, "port", cfg.Port, "Host port")
	flags.StringVar(&cfg.Name, "name", cfg.Name, "Display name")
	flags.StringVar(&cfg.Codec, "codec", cfg.Codec, "Downstream codec: json|msgpack")
	flags.BoolVar(&cfg.Bot, "bot", cfg.Bot, "Play automatically")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug|info|warn|error")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text|json")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	cfg.Port = sanePort(cfg.Port)
	cfg.LogLevel = saneLevel(cfg.LogLevel)
	cfg.Codec = saneCodec(cfg.Codec)
	return cfg, nil
}

func sanePort(p int) int {
	if p < 1 || p > 65535 {
		return domain.DefaultPort
	}
	return p
}

func saneLevel(level string) string {
	if _, err := logrus.ParseLevel(level); err != nil {
		return "info"
	}
	return strings.ToLower(level)
}

func saneCodec(c string) string {
	switch strings.ToLower(c) {
	case "json", "msgpack":
		return strings.ToLower(c)
	}
	return "json"
}

// envReader collects parse errors so callers check once.
type envReader struct {
	errs []error
}

func (r *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (r *envReader) fail(key, v string, err error) {
	r.errs = append(r.errs, fmt.Errorf("%s=%q: %w", key, v, err))
}

func (r *envReader) strVar(key string, dst *string) {
	if v, ok := r.lookup(key); ok {
		*dst = v
	}
}

func (r *envReader) intVar(key string, dst *int) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, err)
		return
	}
	*dst = n
}

func (r *envReader) int64Var(key string, dst *int64) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.fail(key, v, err)
		return
	}
	*dst = n
}

func (r *envReader) floatVar(key string, dst *float64) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, v, err)
		return
	}
	*dst = f
}

func (r *envReader) boolVar(key string, dst *bool) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, v, err)
		return
	}
	*dst = b
}

func (r *envReader) durationVar(key string, dst *time.Duration) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, v, err)
		return
	}
	*dst = d
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}
