package search

// priorityQueue is a binary min-heap ordered by less: Top is the element
// for which less holds against every other.
type priorityQueue[T any] struct {
	items []T
	less  func(a, b T) bool
}

func newPriorityQueue[T any](capacity int, less func(a, b T) bool) *priorityQueue[T] {
	return &priorityQueue[T]{items: make([]T, 0, capacity), less: less}
}

func (q *priorityQueue[T]) Len() int { return len(q.items) }

func (q *priorityQueue[T]) Top() T { return q.items[0] }

func (q *priorityQueue[T]) Push(item T) {
	q.items = append(q.items, item)
	q.siftUp(len(q.items) - 1)
}

func (q *priorityQueue[T]) Pop() T {
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

// UpdateTop restores heap order after the top element changed in place.
func (q *priorityQueue[T]) UpdateTop() {
	q.siftDown(0)
}

// ReplaceTop overwrites the top element and restores heap order.
func (q *priorityQueue[T]) ReplaceTop(item T) {
	q.items[0] = item
	q.siftDown(0)
}

func (q *priorityQueue[T]) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !q.less(q.items[i], q.items[parent]) {
			break
		}
		q.items[i], q.items[parent] = q.items[parent], q.items[i]
		i = parent
	}
}

func (q *priorityQueue[T]) siftDown(i int) {
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
