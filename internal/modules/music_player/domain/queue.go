package domain

import "math/rand/v2"

// Queue is a FIFO of pending entries.
// Entries leave the queue when they are popped for playback, skipped or cleared.
// Shuffle is the only operation that reorders entries in place.
type Queue struct {
	entries []QueueEntry
}

// NewQueue creates a new empty Queue.
func NewQueue() Queue {
	return Queue{
		entries: make([]QueueEntry, 0),
	}
}

// IsEmpty returns true if the queue has no entries.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Len returns the number of entries in the queue.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Front returns a copy of the first entry without removing it.
// Returns nil if the queue is empty.
func (q *Queue) Front() *QueueEntry {
	if q.IsEmpty() {
		return nil
	}
	entry := q.entries[0]
	return &entry
}

// PushBack appends entries to the tail of the queue.
func (q *Queue) PushBack(entries ...QueueEntry) {
	q.entries = append(q.entries, entries...)
}

// PopFront removes and returns the first entry.
func (q *Queue) PopFront() (QueueEntry, bool) {
	if q.IsEmpty() {
		return QueueEntry{}, false
	}

	entry := q.entries[0]
	q.entries[0] = QueueEntry{}
	q.entries = q.entries[1:]
	return entry, true
}

// DropFront removes up to n entries from the front of the queue
// and returns how many were removed.
func (q *Queue) DropFront(n int) int {
	if n <= 0 {
		return 0
	}
	n = min(n, q.Len())

	remaining := make([]QueueEntry, q.Len()-n)
	copy(remaining, q.entries[n:])
	q.entries = remaining
	return n
}

// Shuffle permutes the queue uniformly at random (Fisher-Yates).
func (q *Queue) Shuffle() {
	rand.Shuffle(len(q.entries), func(i, j int) {
		q.entries[i], q.entries[j] = q.entries[j], q.entries[i]
	})
}

// List returns a copy of all entries in queue order.
func (q *Queue) List() []QueueEntry {
	result := make([]QueueEntry, q.Len())
	copy(result, q.entries)
	return result
}

// Clear removes all entries and returns how many were removed.
func (q *Queue) Clear() int {
	n := q.Len()
	q.entries = make([]QueueEntry, 0)
	return n
}
