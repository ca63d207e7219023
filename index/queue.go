package index

// mergeQueue is a binary min-heap ordered by less.
// It does NOT implement container/heap to avoid interface overhead.
type mergeQueue[T any] struct {
	items []T
	less  func(a, b T) bool
}

func newMergeQueue[T any](capacity int, less func(a, b T) bool) *mergeQueue[T] {
	return &mergeQueue[T]{items: make([]T, 0, capacity), less: less}
}

func (q *mergeQueue[T]) Len() int { return len(q.items) }

func (q *mergeQueue[T]) Reset() { clear(q.items); q.items = q.items[:0] }

func (q *mergeQueue[T]) Top() T { return q.items[0] }

func (q *mergeQueue[T]) Push(item T) {
	q.items = append(q.items, item)
	q.siftUp(len(q.items) - 1)
}

func (q *mergeQueue[T]) Pop() T {
	n := len(q.items) - 1
	item := q.items[0]
	q.items[0] = q.items[n]
	var zero T
	q.items[n] = zero
	q.items = q.items[:n]
	if n > 0 {
		q.siftDown(0)
	}
	return item
}

func (q *mergeQueue[T]) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !q.less(q.items[i], q.items[parent]) {
			break
		}
		q.items[i], q.items[parent] = q.items[parent], q.items[i]
		i = parent
	}
}

func (q *mergeQueue[T]) siftDown(i int) {
	n := len(q.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		child := left
		if right := left + 1; right < n && q.less(q.items[right], q.items[left]) {
			child = right
		}
		if !q.less(q.items[child], q.items[i]) {
			break
		}
		q.items[i], q.items[child] = q.items[child], q.items[i]
		i = child
	}
}
