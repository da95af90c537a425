package explorer

import "github.com/nsg-ethz/netdice/pkg/model"

// queueItem is one entry of the exploration driver's priority queue: a
// partial state plus the marginal probability it was pushed with, negated so
// a min-heap behaves as a max-heap (spec.md §9 "priority queue with mutable
// payload" design note). seq is a monotonic insertion counter used to break
// ties deterministically (spec.md §4.1 "implementation-free" tie-break,
// resolved here as insertion order).
type queueItem struct {
	negProb float64
	seq     int
	state   model.State
}

// priorityQueue implements container/heap.Interface over queueItem values.
// Pushed states are owned by the queue until popped; the driver only
// mutates its own local working copy after popping one.
type priorityQueue []*queueItem

func (q priorityQueue) Len() int { return len(q) }

func (q priorityQueue) Less(i, j int) bool {
	if q[i].negProb != q[j].negProb {
		return q[i].negProb < q[j].negProb
	}
	return q[i].seq < q[j].seq
}

func (q priorityQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *priorityQueue) Push(x any) {
	*q = append(*q, x.(*queueItem))
}

func (q *priorityQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}
