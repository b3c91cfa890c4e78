// Package request implements a two-way SPSC (single producer single
// consumer) request/response system via the Server/Client pair, useful in
// situations with a single goroutine making requests and another single
// goroutine responding to them. It's built directly on top of
// ipc/message's Inbox/Outbox.
package request

import (
	"sync"
	"time"

	"github.com/oxy-compositor/engine/ipc"
	"github.com/oxy-compositor/engine/ipc/message"
)

// ReqRes is the request data from a Client (Q) paired with the handle the
// Server uses to respond (nil for requests that don't expect a reply, see
// Client.Alert).
type ReqRes[Q, A any] struct {
	Request  Q
	Response *ResponseHandle[A]
}

// Server is the request receiver/responder of a two-way channel. See
// Client.
type Server[Q, A any] struct {
	inbox message.Inbox[ReqRes[Q, A]]
}

// New creates a two-way request channel's Server and Client. Q is the
// request type, A is the response type.
func New[Q, A any]() (Server[Q, A], Client[Q, A]) {
	inbox, outbox := message.New[ReqRes[Q, A]]()
	return Server[Q, A]{inbox: inbox}, Client[Q, A]{outbox: outbox}
}

// WithCapacity is like New but pre-allocates space for capacity requests.
func WithCapacity[Q, A any](capacity int) (Server[Q, A], Client[Q, A]) {
	inbox, outbox := message.WithCapacity[ReqRes[Q, A]](capacity)
	return Server[Q, A]{inbox: inbox}, Client[Q, A]{outbox: outbox}
}

// Wait waits for a request from the Client until one appears.
//
// ipc.ErrConnectionDropped is returned if the Client was dropped and there
// are no more queued requests.
func (s Server[Q, A]) Wait() (ReqRes[Q, A], error) { return s.inbox.Wait() }

// WaitTimeout waits for a request from the Client for up to timeout.
func (s Server[Q, A]) WaitTimeout(timeout time.Duration) (ReqRes[Q, A], error) {
	return s.inbox.WaitTimeout(timeout)
}

// Check receives a request from the Client if one is waiting.
func (s Server[Q, A]) Check() (ReqRes[Q, A], bool, error) { return s.inbox.Check() }

// CheckNonBlocking is like Check but never blocks.
func (s Server[Q, A]) CheckNonBlocking() (ReqRes[Q, A], bool, error) {
	return s.inbox.CheckNonBlocking()
}

// WaitAll waits for a request from the Client until one appears, returning
// all requests if multiple have built up.
func (s Server[Q, A]) WaitAll() ([]ReqRes[Q, A], error) { return s.inbox.WaitAll() }

// CheckAll receives all requests from the Client if any are waiting.
func (s Server[Q, A]) CheckAll() ([]ReqRes[Q, A], bool, error) { return s.inbox.CheckAll() }

// ConnectionOpen reports whether the Client is still connected.
func (s Server[Q, A]) ConnectionOpen() bool { return s.inbox.ConnectionOpen() }

// ConnectionClosed reports whether the Client has disconnected.
func (s Server[Q, A]) ConnectionClosed() bool { return s.inbox.ConnectionClosed() }

// Close marks the Server as dropped.
func (s Server[Q, A]) Close() { s.inbox.Close() }

// Client is the request sender/receiver of a two-way channel. See Server.
type Client[Q, A any] struct {
	outbox message.Outbox[ReqRes[Q, A]]
}

// Request sends a request to the Server and returns a Waiter that can be
// used to wait for its response.
//
// ipc.ErrConnectionDropped is returned if the Server was dropped.
func (c Client[Q, A]) Request(req Q) (*Waiter[A], error) {
	responder := &responder[A]{}
	responder.cond = sync.NewCond(&responder.mu)

	if err := c.outbox.Send(ReqRes[Q, A]{Request: req, Response: &ResponseHandle[A]{r: responder}}); err != nil {
		return nil, err
	}

	return &Waiter[A]{r: responder}, nil
}

// Alert sends a request to the Server that it doesn't need to reply to.
func (c Client[Q, A]) Alert(req Q) error {
	return c.outbox.Send(ReqRes[Q, A]{Request: req})
}

// ConnectionOpen reports whether the Server is still connected.
func (c Client[Q, A]) ConnectionOpen() bool { return c.outbox.ConnectionOpen() }

// ConnectionClosed reports whether the Server has disconnected.
func (c Client[Q, A]) ConnectionClosed() bool { return c.outbox.ConnectionClosed() }

// Close marks the Client as dropped.
func (c Client[Q, A]) Close() { c.outbox.Close() }

// responder is the shared state between a ResponseHandle and a Waiter.
type responder[A any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	response *A
	// handleClosed tracks whether the ResponseHandle was closed without
	// responding, taking the place of the original implementation's
	// Drop-triggered wakeup (Go has no destructors).
	handleClosed bool
}

// ResponseHandle is a handle for responding to a request from a Client.
type ResponseHandle[A any] struct {
	r *responder[A]
}

// Respond replies to the request this handle was issued for.
func (h *ResponseHandle[A]) Respond(response A) {
	h.r.mu.Lock()
	h.r.response = &response
	h.r.cond.Broadcast()
	h.r.mu.Unlock()
}

// Close gives up on responding to this request without a reply, waking the
// Waiter so it doesn't block forever. Call this (typically via defer) any
// time a request may go unanswered — it plays the role the original
// implementation's Drop impl on the response handle played.
func (h *ResponseHandle[A]) Close() {
	h.r.mu.Lock()
	h.r.handleClosed = true
	h.r.cond.Broadcast()
	h.r.mu.Unlock()
}

// Waiter is a handle to use to await a response to a request from a Server.
type Waiter[A any] struct {
	r         *responder[A]
	retrieved bool
}

// Wait waits for a response from the Server until one appears.
//
// ipc.ErrResponseAlreadyReceived is returned if this Waiter's response has
// already been retrieved. ipc.ErrConnectionDropped is returned if the handler
// closed without responding.
func (w *Waiter[A]) Wait() (A, error) {
	var zero A
	if w.retrieved {
		return zero, ipc.ErrResponseAlreadyReceived
	}

	r := w.r
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		if r.response != nil {
			w.retrieved = true
			return *r.response, nil
		}
		if r.handleClosed {
			return zero, ipc.ErrConnectionDropped
		}
		r.cond.Wait()
	}
}

// WaitTimeout waits for a response from the Server for up to timeout.
func (w *Waiter[A]) WaitTimeout(timeout time.Duration) (A, error) {
	var zero A
	if w.retrieved {
		return zero, ipc.ErrResponseAlreadyReceived
	}

	r := w.r
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.response != nil {
		w.retrieved = true
		return *r.response, nil
	}
	if r.handleClosed {
		return zero, ipc.ErrConnectionDropped
	}

	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, func() {
		r.mu.Lock()
		r.cond.Broadcast()
		r.mu.Unlock()
	})
	defer timer.Stop()

	for {
		r.cond.Wait()

		if r.response != nil {
			w.retrieved = true
			return *r.response, nil
		}
		if r.handleClosed {
			return zero, ipc.ErrConnectionDropped
		}
		if time.Now().After(deadline) {
			return zero, &ipc.TimeoutError{Timeout: timeout}
		}
	}
}

// Check receives a response from the Server if one is waiting.
func (w *Waiter[A]) Check() (A, bool, error) {
	var zero A
	if w.retrieved {
		return zero, false, ipc.ErrResponseAlreadyReceived
	}

	r := w.r
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.response != nil {
		w.retrieved = true
		return *r.response, true, nil
	}
	if r.handleClosed {
		return zero, false, ipc.ErrConnectionDropped
	}
	return zero, false, nil
}

// ResponseReceived reports whether a response to this request has already
// been retrieved.
func (w *Waiter[A]) ResponseReceived() bool { return w.retrieved }
