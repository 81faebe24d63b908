package engine

import (
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics counts session and transport activity. Safe for concurrent use.
type Metrics struct {
	// Connection metrics
	activeConnections int64
	totalConnections  int64
	rejectedJoins     int64
	evictions         int64

	// Message metrics
	intentsReceived int64
	framesQueued    int64
	rosterChanges   int64

	// Error metrics
	rejections          int64
	malformedIntents    int64
	rateLimitViolations int64

	// Match metrics
	gamesStarted       int64
	objectivesCaptured int64
	victories          int64
	defeats            int64

	startTime time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// Connection tracking
func (m *Metrics) IncrementConnections() {
	atomic.AddInt64(&m.activeConnections, 1)
	atomic.AddInt64(&m.totalConnections, 1)
}

func (m *Metrics) DecrementConnections() {
	atomic.AddInt64(&m.activeConnections, -1)
}

func (m *Metrics) IncrementRejectedJoins() { atomic.AddInt64(&m.rejectedJoins, 1) }
func (m *Metrics) IncrementEvictions()     { atomic.AddInt64(&m.evictions, 1) }

// Message tracking
func (m *Metrics) IncrementIntents()       { atomic.AddInt64(&m.intentsReceived, 1) }
func (m *Metrics) IncrementFrames(n int)   { atomic.AddInt64(&m.framesQueued, int64(n)) }
func (m *Metrics) IncrementRosterChanges() { atomic.AddInt64(&m.rosterChanges, 1) }

// Error tracking
func (m *Metrics) IncrementRejections()          { atomic.AddInt64(&m.rejections, 1) }
func (m *Metrics) IncrementMalformed()           { atomic.AddInt64(&m.malformedIntents, 1) }
func (m *Metrics) IncrementRateLimitViolations() { atomic.AddInt64(&m.rateLimitViolations, 1) }

// Match tracking
func (m *Metrics) IncrementGamesStarted() { atomic.AddInt64(&m.gamesStarted, 1) }
func (m *Metrics) IncrementObjectives()   { atomic.AddInt64(&m.objectivesCaptured, 1) }

func (m *Metrics) RecordOutcome(victory bool) {
	if victory {
		atomic.AddInt64(&m.victories, 1)
		return
	}
	atomic.AddInt64(&m.defeats, 1)
}

// MetricsSnapshot is a point-in-time copy for the debug endpoint.
type MetricsSnapshot struct {
	ActiveConnections int64 `json:"active_connections"`
	TotalConnections  int64 `json:"total_connections"`
	RejectedJoins     int64 `json:"rejected_joins"`
	Evictions         int64 `json:"evictions"`

	IntentsReceived int64 `json:"intents_received"`
	FramesQueued    int64 `json:"frames_queued"`
	RosterChanges   int64 `json:"roster_changes"`

	Rejections          int64 `json:"rejections"`
	MalformedIntents    int64 `json:"malformed_intents"`
	RateLimitViolations int64 `json:"rate_limit_violations"`

	GamesStarted       int64 `json:"games_started"`
	ObjectivesCaptured int64 `json:"objectives_captured"`
	Victories          int64 `json:"victories"`
	Defeats            int64 `json:"defeats"`

	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	UptimeSeconds int64   `json:"uptime_seconds"`
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return MetricsSnapshot{
		ActiveConnections:   atomic.LoadInt64(&m.activeConnections),
		TotalConnections:    atomic.LoadInt64(&m.totalConnections),
		RejectedJoins:       atomic.LoadInt64(&m.rejectedJoins),
		Evictions:           atomic.LoadInt64(&m.evictions),
		IntentsReceived:     atomic.LoadInt64(&m.intentsReceived),
		FramesQueued:        atomic.LoadInt64(&m.framesQueued),
		RosterChanges:       atomic.LoadInt64(&m.rosterChanges),
		Rejections:          atomic.LoadInt64(&m.rejections),
		MalformedIntents:    atomic.LoadInt64(&m.malformedIntents),
		RateLimitViolations: atomic.LoadInt64(&m.rateLimitViolations),
		GamesStarted:        atomic.LoadInt64(&m.gamesStarted),
		ObjectivesCaptured:  atomic.LoadInt64(&m.objectivesCaptured),
		Victories:           atomic.LoadInt64(&m.victories),
		Defeats:             atomic.LoadInt64(&m.defeats),
		Goroutines:          runtime.NumGoroutine(),
		MemoryAllocMB:       float64(mem.Alloc) / 1024 / 1024,
		UptimeSeconds:       int64(time.Since(m.startTime).Seconds()),
	}
}
