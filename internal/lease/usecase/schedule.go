package usecase

import (
	"container/heap"
	"context"
	"time"
)

// action is one unit of due work: an expired lease to revoke or a rotation
// job to run.
type action struct {
	due time.Time
	run func(ctx context.Context)
}

// actionHeap orders due work by its original due time so the oldest work
// across both sources drains first within a batch.
type actionHeap []*action

func (h actionHeap) Len() int           { return len(h) }
func (h actionHeap) Less(i, j int) bool { return h[i].due.Before(h[j].due) }
func (h actionHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *actionHeap) Push(x any)        { *h = append(*h, x.(*action)) }
func (h *actionHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// newSchedule builds an empty heap.
func newSchedule() *actionHeap {
	h := make(actionHeap, 0)
	heap.Init(&h)
	return &h
}

func (h *actionHeap) add(due time.Time, run func(ctx context.Context)) {
	heap.Push(h, &action{due: due, run: run})
}

func (h *actionHeap) next() *action {
	if h.Len() == 0 {
		return nil
	}
	return heap.Pop(h).(*action)
}
