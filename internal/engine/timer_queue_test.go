package engine

import (
	"container/heap"
	"testing"
	"time"
)

func TestTimerQueue(t *testing.T) {
	pq := make(TimerQueue, 0)
	heap.Init(&pq)

	base := time.Unix(0, 0)
	item1 := &TimerItem{At: base.Add(10 * time.Second), Seq: 1}
	item2 := &TimerItem{At: base.Add(5 * time.Second), Seq: 2}
	item3 := &TimerItem{At: base.Add(20 * time.Second), Seq: 3}

	heap.Push(&pq, item1)
	heap.Push(&pq, item2)
	heap.Push(&pq, item3)

	if pq.Len() != 3 {
		t.Errorf("Expected length 3, got %d", pq.Len())
	}

	// First pop should be item2 (5s)
	first := heap.Pop(&pq).(*TimerItem)
	if first.Seq != 2 {
		t.Errorf("Expected seq 2, got %d", first.Seq)
	}
	if first.Index != -1 {
		t.Errorf("Popped item should have index -1, got %d", first.Index)
	}

	// Move item1 from 10s to 30s. item3 (20s) is now first.
	pq.Update(item1, base.Add(30*time.Second))

	second := heap.Pop(&pq).(*TimerItem)
	if second.Seq != 3 {
		t.Errorf("Expected seq 3 (20s), got %d", second.Seq)
	}

	third := heap.Pop(&pq).(*TimerItem)
	if third.Seq != 1 {
		t.Errorf("Expected seq 1 (30s), got %d", third.Seq)
	}
}

func TestTimerQueue_EqualDeadlinesKeepOrder(t *testing.T) {
	pq := make(TimerQueue, 0)
	at := time.Unix(100, 0)
	for seq := uint64(1); seq <= 4; seq++ {
		heap.Push(&pq, &TimerItem{At: at, Seq: seq})
	}

	for want := uint64(1); want <= 4; want++ {
		got := heap.Pop(&pq).(*TimerItem)
		if got.Seq != want {
			t.Fatalf("Expected seq %d, got %d", want, got.Seq)
		}
	}
}
