package engine

import (
	"container/heap"
	"pillarhunt-server/internal/systems"
	"pillarhunt-server/pkg/logger"
	"time"
)

// Scheduler owns the session's pending timers. Every method must be called
// from the session goroutine; callbacks run there too, from RunDue.
type Scheduler struct {
	queue TimerQueue
	now   func() time.Time
	seq   uint64
}

func NewScheduler(now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		queue: make(TimerQueue, 0),
		now:   now,
	}
}

// scheduledTimer is the cancellation handle given back to callers.
type scheduledTimer struct {
	s    *Scheduler
	item *TimerItem
}

// Stop removes the callback if it is still queued.
func (t *scheduledTimer) Stop() bool {
	if t.item.Index < 0 {
		return false
	}
	heap.Remove(&t.s.queue, t.item.Index)
	return true
}

// Schedule queues fn to run d from now. It implements systems.Clock.
func (s *Scheduler) Schedule(d time.Duration, fn func()) systems.Timer {
	s.seq++
	item := &TimerItem{
		Fn:  fn,
		At:  s.now().Add(d),
		Seq: s.seq,
	}
	heap.Push(&s.queue, item)
	return &scheduledTimer{s: s, item: item}
}

// RunDue fires every callback due at or before now, in deadline order.
// Callbacks may schedule or stop other timers.
func (s *Scheduler) RunDue(now time.Time) int {
	fired := 0
	for s.queue.Len() > 0 {
		next := s.queue[0]
		if next.At.After(now) {
			break
		}
		heap.Pop(&s.queue)
		fired++
		next.Fn()
	}
	if fired > 0 {
		logger.Log.WithField("fired", fired).Debug("Scheduler: timers fired")
	}
	return fired
}

// NextDeadline returns the earliest pending deadline.
func (s *Scheduler) NextDeadline() (time.Time, bool) {
	if s.queue.Len() == 0 {
		return time.Time{}, false
	}
	return s.queue[0].At, true
}

// Clear drops every pending timer.
func (s *Scheduler) Clear() {
	for _, item := range s.queue {
		item.Index = -1
	}
	s.queue = s.queue[:0]
}

func (s *Scheduler) Len() int {
	return s.queue.Len()
}

// DebugDump returns the pending deadlines for the debug endpoint.
func (s *Scheduler) DebugDump() []map[string]interface{} {
	// Empty slice, not nil, so JSON renders [] instead of null.
	result := make([]map[string]interface{}, 0)

	now := s.now()
	for _, item := range s.queue {
		result = append(result, map[string]interface{}{
			"seq":   item.Seq,
			"in_ms": item.At.Sub(now).Milliseconds(),
			"index": item.Index,
		})
	}
	return result
}
