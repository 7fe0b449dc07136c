package middleware

import (
	"context"
	"sync"
)

// UserLocks serializes work per user in arrival order. Each user has a FIFO
// queue of tickets; only the head ticket is ready. Empty queues are dropped.
type UserLocks struct {
	mu     sync.Mutex
	queues map[string][]*Ticket
}

// Ticket is a place in one user's queue.
type Ticket struct {
	owner  *UserLocks
	userID string
	ready  chan struct{}
	once   sync.Once
}

// NewUserLocks creates an empty lock table.
func NewUserLocks() *UserLocks {
	return &UserLocks{queues: make(map[string][]*Ticket)}
}

// Enqueue appends a ticket to the user's queue without blocking.
// Call it in arrival order; tickets become ready in the same order.
func (l *UserLocks) Enqueue(userID string) *Ticket {
	t := &Ticket{owner: l, userID: userID, ready: make(chan struct{})}

	l.mu.Lock()
	defer l.mu.Unlock()

	q := l.queues[userID]
	if len(q) == 0 {
		close(t.ready)
	}
	l.queues[userID] = append(q, t)
	return t
}

// Lock blocks until the user's lock is held and returns the unlock func.
func (l *UserLocks) Lock(userID string) (unlock func()) {
	t := l.Enqueue(userID)
	<-t.ready
	return t.Release
}

// Wait blocks until every earlier ticket of the user is released.
func (t *Ticket) Wait(ctx context.Context) error {
	select {
	case <-t.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release leaves the queue and wakes the next ticket. It is safe to call
// more than once and on a ticket that never became ready.
func (t *Ticket) Release() {
	t.once.Do(func() {
		l := t.owner
		l.mu.Lock()
		defer l.mu.Unlock()

		q := l.queues[t.userID]
		for i, x := range q {
			if x != t {
				continue
			}
			q = append(q[:i:i], q[i+1:]...)
			if i == 0 && len(q) > 0 {
				close(q[0].ready)
			}
			break
		}
		if len(q) == 0 {
			delete(l.queues, t.userID)
			return
		}
		l.queues[t.userID] = q
	})
}

// Len returns the number of users holding or waiting for a lock.
func (l *UserLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queues)
}
