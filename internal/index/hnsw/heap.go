package hnsw

import "container/heap"

// candidate is a graph node considered during a layer search, paired with
// its distance to the query. Ties on Distance break on ascending ID so
// that search order (and therefore results) is deterministic.
type candidate struct {
	ID       uint64
	Distance float32
}

func less(a, b *candidate) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.ID < b.ID
}

// minHeap pops the closest candidate first. searchLayer uses it as the
// frontier of candidates still to be expanded.
type minHeap struct {
	items []*candidate
}

func newMinHeap() *minHeap { return &minHeap{} }

func (h *minHeap) Len() int            { return len(h.items) }
func (h *minHeap) Less(i, j int) bool  { return less(h.items[i], h.items[j]) }
func (h *minHeap) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *minHeap) Push(x interface{})  { h.items = append(h.items, x.(*candidate)) }
func (h *minHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return item
}

func (h *minHeap) push(c *candidate) { heap.Push(h, c) }
func (h *minHeap) pop() *candidate {
	if h.Len() == 0 {
		return nil
	}
	return heap.Pop(h).(*candidate)
}

// maxHeap pops the farthest candidate first. searchLayer uses it to hold
// the current best-ef results, so the worst of them is always at the top
// and can be evicted in O(log ef) when a closer candidate is found.
type maxHeap struct {
	items []*candidate
}

func newMaxHeap() *maxHeap { return &maxHeap{} }

func (h *maxHeap) Len() int           { return len(h.items) }
func (h *maxHeap) Less(i, j int) bool { return less(h.items[j], h.items[i]) }
func (h *maxHeap) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *maxHeap) Push(x interface{}) { h.items = append(h.items, x.(*candidate)) }
func (h *maxHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return item
}

func (h *maxHeap) push(c *candidate) { heap.Push(h, c) }
func (h *maxHeap) pop() *candidate {
	if h.Len() == 0 {
		return nil
	}
	return heap.Pop(h).(*candidate)
}

func (h *maxHeap) top() *candidate {
	if h.Len() == 0 {
		return nil
	}
	return h.items[0]
}

// sortedAscending drains a maxHeap into a slice ordered nearest-first.
func (h *maxHeap) sortedAscending() []*candidate {
	out := make([]*candidate, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = h.pop()
	}
	return out
}
