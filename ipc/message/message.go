// Package message implements a one-way SPSC (single producer single
// consumer) queue via the Inbox/Outbox pair, useful in situations with a
// single goroutine producing data and another single goroutine reading it.
package message

import (
	"sync"
	"time"

	"github.com/oxy-compositor/engine/ipc"
)

// channel is the shared state behind an Inbox/Outbox pair.
type channel[T any] struct {
	mu           sync.Mutex
	cond         *sync.Cond
	queue        []T
	inboxClosed  bool
	outboxClosed bool
}

func newChannel[T any](queue []T) *channel[T] {
	c := &channel[T]{queue: queue}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Inbox is the receiving end of a one-way message channel. See Outbox.
type Inbox[T any] struct {
	ch *channel[T]
}

// Outbox is the sending end of a one-way message channel. See Inbox.
type Outbox[T any] struct {
	ch        *channel[T]
	closeOnce sync.Once
}

// New creates a one-way message channel's Inbox and Outbox.
func New[T any]() (Inbox[T], Outbox[T]) {
	ch := newChannel[T](nil)
	return Inbox[T]{ch: ch}, Outbox[T]{ch: ch}
}

// WithCapacity creates a one-way message channel's Inbox and Outbox with
// space to store capacity messages without reallocating. More messages than
// capacity can still sit in the inbox at a time (the channel isn't bounded).
func WithCapacity[T any](capacity int) (Inbox[T], Outbox[T]) {
	ch := newChannel[T](make([]T, 0, capacity))
	return Inbox[T]{ch: ch}, Outbox[T]{ch: ch}
}

// WithStartingMessages creates a one-way message channel's Inbox and Outbox
// with starting messages already queued in the inbox.
func WithStartingMessages[T any](msgs []T) (Inbox[T], Outbox[T]) {
	queue := make([]T, len(msgs))
	copy(queue, msgs)
	ch := newChannel[T](queue)
	return Inbox[T]{ch: ch}, Outbox[T]{ch: ch}
}

func (c *channel[T]) popFront() (T, bool) {
	if len(c.queue) == 0 {
		var zero T
		return zero, false
	}
	msg := c.queue[0]
	c.queue = c.queue[1:]
	return msg, true
}

func (c *channel[T]) drainAll() []T {
	if len(c.queue) == 0 {
		return nil
	}
	all := c.queue
	c.queue = nil
	return all
}

// Wait waits for a message from the Outbox until one appears. For a version
// with a maximum wait time, see WaitTimeout. If you just want to check
// without waiting, see Check.
//
// ipc.ErrConnectionDropped is returned if the Outbox was closed and there
// are no more items in the queue.
func (in Inbox[T]) Wait() (T, error) {
	c := in.ch
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		if msg, ok := c.popFront(); ok {
			return msg, nil
		}
		if c.outboxClosed {
			var zero T
			return zero, ipc.ErrConnectionDropped
		}
		c.cond.Wait()
	}
}

// WaitTimeout waits for a message from the Outbox for up to timeout. After
// timeout elapses, a *ipc.TimeoutError is returned. This function's
// execution may take slightly longer than timeout.
func (in Inbox[T]) WaitTimeout(timeout time.Duration) (T, error) {
	c := in.ch
	c.mu.Lock()
	defer c.mu.Unlock()

	if msg, ok := c.popFront(); ok {
		return msg, nil
	}
	if c.outboxClosed {
		var zero T
		return zero, ipc.ErrConnectionDropped
	}

	deadline := time.Now().Add(timeout)

	// cond.Wait has no built-in deadline, so a timer wakes every waiter on
	// this channel once the deadline passes; the loop below then notices the
	// deadline has elapsed and returns a timeout instead of waiting again.
	timer := time.AfterFunc(timeout, func() {
		c.mu.Lock()
		c.cond.Broadcast()
		c.mu.Unlock()
	})
	defer timer.Stop()

	for {
		c.cond.Wait()

		if msg, ok := c.popFront(); ok {
			return msg, nil
		}
		if c.outboxClosed {
			var zero T
			return zero, ipc.ErrConnectionDropped
		}
		if time.Now().After(deadline) {
			var zero T
			return zero, &ipc.TimeoutError{Timeout: timeout}
		}
	}
}

// Check receives a message from the Outbox if one is waiting, returning
// ok=false otherwise. This may still block briefly while the Outbox is
// sending. For a version that never blocks, see CheckNonBlocking.
func (in Inbox[T]) Check() (T, bool, error) {
	c := in.ch
	c.mu.Lock()
	defer c.mu.Unlock()

	if msg, ok := c.popFront(); ok {
		return msg, true, nil
	}
	if c.outboxClosed {
		var zero T
		return zero, false, ipc.ErrConnectionDropped
	}
	var zero T
	return zero, false, nil
}

// CheckNonBlocking receives a message from the Outbox if the queue isn't
// locked and a message is waiting. ok=false is returned otherwise. This
// function never blocks.
//
// Note that ok=false doesn't always mean there are no messages in the inbox
// — if the Outbox is currently adding an item, ok=false is still returned
// even if there are items in the queue. If you don't want this behavior, see
// Check.
func (in Inbox[T]) CheckNonBlocking() (T, bool, error) {
	c := in.ch
	if !c.mu.TryLock() {
		var zero T
		return zero, false, nil
	}
	defer c.mu.Unlock()

	if msg, ok := c.popFront(); ok {
		return msg, true, nil
	}
	if c.outboxClosed {
		var zero T
		return zero, false, ipc.ErrConnectionDropped
	}
	var zero T
	return zero, false, nil
}

// WaitAll waits for a message from the Outbox until one appears, returning
// all messages if multiple have built up. The returned slice has at least 1
// element.
func (in Inbox[T]) WaitAll() ([]T, error) {
	first, err := in.Wait()
	if err != nil {
		return nil, err
	}
	c := in.ch
	c.mu.Lock()
	rest := c.drainAll()
	c.mu.Unlock()
	return append([]T{first}, rest...), nil
}

// CheckAll receives all messages from the Outbox if any are waiting,
// returning ok=false otherwise. The returned slice has at least 1 element
// when ok is true.
func (in Inbox[T]) CheckAll() ([]T, bool, error) {
	c := in.ch
	c.mu.Lock()
	defer c.mu.Unlock()

	all := c.drainAll()
	if len(all) == 0 {
		if c.outboxClosed {
			return nil, false, ipc.ErrConnectionDropped
		}
		return nil, false, nil
	}
	return all, true, nil
}

// Close marks the Inbox as dropped. After Close, the paired Outbox's Send
// calls return ipc.ErrConnectionDropped.
func (in Inbox[T]) Close() {
	c := in.ch
	c.mu.Lock()
	c.inboxClosed = true
	c.mu.Unlock()
}

// ConnectionOpen reports whether the Outbox is still open, the inverse of
// ConnectionClosed.
func (in Inbox[T]) ConnectionOpen() bool {
	c := in.ch
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.outboxClosed
}

// ConnectionClosed reports whether the Outbox has been closed, the inverse
// of ConnectionOpen.
func (in Inbox[T]) ConnectionClosed() bool { return !in.ConnectionOpen() }

// Send sends a message to the Inbox.
//
// ipc.ErrConnectionDropped is returned if the Inbox was closed.
func (out Outbox[T]) Send(msg T) error {
	c := out.ch
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inboxClosed {
		return ipc.ErrConnectionDropped
	}

	c.queue = append(c.queue, msg)
	c.cond.Broadcast()

	return nil
}

// ConnectionOpen reports whether the Inbox is still open, the inverse of
// ConnectionClosed.
func (out Outbox[T]) ConnectionOpen() bool {
	c := out.ch
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.inboxClosed
}

// ConnectionClosed reports whether the Inbox has been closed, the inverse of
// ConnectionOpen.
func (out Outbox[T]) ConnectionClosed() bool { return !out.ConnectionOpen() }

// Close marks the Outbox as dropped and wakes up anything waiting on the
// paired Inbox, which would otherwise wait forever for a message that will
// never come. Go has no destructors, so callers must call Close explicitly
// when they're done sending (typically via defer) — this plays the role the
// original implementation's Drop impl on Outbox played.
func (out Outbox[T]) Close() {
	out.closeOnce.Do(func() {
		c := out.ch
		c.mu.Lock()
		c.outboxClosed = true
		c.cond.Broadcast()
		c.mu.Unlock()
	})
}
