package engine

import (
	"container/heap"
	"time"
)

// TimerItem is one scheduled callback in the queue.
type TimerItem struct {
	Fn    func()    // callback, runs on the session goroutine
	At    time.Time // due time. Earlier fires first
	Seq   uint64    // tie-break, keeps scheduling order for equal deadlines
	Index int       // heap index, -1 once popped or removed
}

// TimerQueue implements heap.Interface over TimerItems.
type TimerQueue []*TimerItem

func (pq TimerQueue) Len() int { return len(pq) }

func (pq TimerQueue) Less(i, j int) bool {
	// MinHeap on deadline, then on scheduling order.
	if pq[i].At.Equal(pq[j].At) {
		return pq[i].Seq < pq[j].Seq
	}
	return pq[i].At.Before(pq[j].At)
}

func (pq TimerQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].Index = i
	pq[j].Index = j
}

func (pq *TimerQueue) Push(x interface{}) {
	n := len(*pq)
	item := x.(*TimerItem)
	item.Index = n
	*pq = append(*pq, item)
}

func (pq *TimerQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // avoid leaking the callback
	item.Index = -1 // no longer queued
	*pq = old[0 : n-1]
	return item
}

// Update moves an item to a new deadline.
func (pq *TimerQueue) Update(item *TimerItem, at time.Time) {
	item.At = at
	heap.Fix(pq, item.Index)
}
