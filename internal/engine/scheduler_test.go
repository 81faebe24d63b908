package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeNow struct{ t time.Time }

func (f *fakeNow) Now() time.Time { return f.t }
func (f *fakeNow) Add(d time.Duration) time.Time {
	f.t = f.t.Add(d)
	return f.t
}

func TestScheduler_RunsDueInOrder(t *testing.T) {
	clock := &fakeNow{t: time.Unix(1000, 0)}
	s := NewScheduler(clock.Now)

	var order []string
	s.Schedule(2*time.Second, func() { order = append(order, "b") })
	s.Schedule(time.Second, func() { order = append(order, "a") })
	s.Schedule(2*time.Second, func() { order = append(order, "c") })

	assert.Equal(t, 0, s.RunDue(clock.Add(500*time.Millisecond)))
	assert.Equal(t, 3, s.RunDue(clock.Add(2*time.Second)))
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, s.Len())
}

func TestScheduler_StopCancels(t *testing.T) {
	clock := &fakeNow{t: time.Unix(0, 0)}
	s := NewScheduler(clock.Now)

	fired := false
	timer := s.Schedule(time.Second, func() { fired = true })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop(), "second stop reports false")

	s.RunDue(clock.Add(time.Hour))
	assert.False(t, fired)
}

func TestScheduler_StopAfterFireReportsFalse(t *testing.T) {
	clock := &fakeNow{t: time.Unix(0, 0)}
	s := NewScheduler(clock.Now)

	timer := s.Schedule(0, func() {})
	s.RunDue(clock.Now())
	assert.False(t, timer.Stop())
}

func TestScheduler_CallbackCanReschedule(t *testing.T) {
	clock := &fakeNow{t: time.Unix(0, 0)}
	s := NewScheduler(clock.Now)

	count := 0
	var again func()
	again = func() {
		count++
		if count < 3 {
			s.Schedule(time.Second, again)
		}
	}
	s.Schedule(time.Second, again)

	for i := 0; i < 5; i++ {
		s.RunDue(clock.Add(time.Second))
	}
	assert.Equal(t, 3, count)

	deadline, ok := s.NextDeadline()
	assert.False(t, ok)
	assert.True(t, deadline.IsZero())
}

func TestScheduler_ClearInvalidatesHandles(t *testing.T) {
	clock := &fakeNow{t: time.Unix(0, 0)}
	s := NewScheduler(clock.Now)
	timer := s.Schedule(time.Second, func() { t.Fatal("cleared timer fired") })

	s.Clear()
	assert.False(t, timer.Stop())
	s.RunDue(clock.Add(time.Minute))
	assert.Empty(t, s.DebugDump())
}
