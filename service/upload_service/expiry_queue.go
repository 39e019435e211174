package upload_service

import (
	"container/heap"
	"time"
)

// expiryItem session creation time as of Put
type expiryItem struct {
	sessionId string
	createdAt time.Time
	entry     *SessionEntry
}

// expiryQueue min-heap of sessions ordered by creation time. Not safe for
// concurrent use; MemorySessionStore guards it with its own lock.
type expiryQueue struct {
	items []*expiryItem
}

func newExpiryQueue() *expiryQueue {
	q := &expiryQueue{items: make([]*expiryItem, 0)}
	heap.Init(q)
	return q
}

func (q *expiryQueue) Len() int {
	return len(q.items)
}

// Less earlier creation time has higher priority
func (q *expiryQueue) Less(i, j int) bool {
	return q.items[i].createdAt.Before(q.items[j].createdAt)
}

func (q *expiryQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
}

func (q *expiryQueue) Push(x interface{}) {
	q.items = append(q.items, x.(*expiryItem))
}

func (q *expiryQueue) Pop() interface{} {
	old := q.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	q.items = old[0 : n-1]
	return item
}

func (q *expiryQueue) push(item *expiryItem) {
	heap.Push(q, item)
}

// popBefore removes and returns every item created before cutoff, oldest first
func (q *expiryQueue) popBefore(cutoff time.Time) []*expiryItem {
	var out []*expiryItem
	for q.Len() > 0 && q.items[0].createdAt.Before(cutoff) {
		out = append(out, heap.Pop(q).(*expiryItem))
	}
	return out
}
