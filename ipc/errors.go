// Package ipc contains the single-producer single-consumer channel
// primitives the rest of the engine uses for cross-goroutine communication:
// message (one-way Inbox/Outbox) and request (two-way Server/Client).
package ipc

import (
	"errors"
	"fmt"
	"time"
)

// ErrConnectionDropped is returned by an Inbox/Server/Waiter when the other
// end of the channel has been closed and there are no more queued items to
// receive.
var ErrConnectionDropped = errors.New("ipc: connection dropped")

// ErrResponseAlreadyReceived is returned by Waiter methods once a response
// has already been taken out of the Waiter.
var ErrResponseAlreadyReceived = errors.New("ipc: response already received")

// TimeoutError is returned when a Wait call exceeds its deadline without a
// value arriving.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("ipc: timed out after %s", e.Timeout)
}

// IsTimeout reports whether err is (or wraps) a *TimeoutError.
func IsTimeout(err error) bool {
	var t *TimeoutError
	return errors.As(err, &t)
}
