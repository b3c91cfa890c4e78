// Package producer wraps a stream.FrameStream in a background worker that
// maintains a bounded, pre-fetched queue of frames, per §4.C of the
// node-graph compositor spec.
package producer

import (
	"errors"
	"fmt"
	"time"

	"github.com/oxy-compositor/engine/ipc"
	"github.com/oxy-compositor/engine/ipc/message"
	"github.com/oxy-compositor/engine/media"
	"github.com/oxy-compositor/engine/media/stream"
)

// DefaultFetchFrameTimeout bounds how long Producer.FetchFrame blocks
// before giving up, distinguishing a slow/overloaded machine from a
// deadlocked worker. It is 60 seconds in every build; there is no
// separate, shorter value for debug builds.
var DefaultFetchFrameTimeout = 60 * time.Second

// OnStreamEnd controls what a Producer does once its underlying stream is
// exhausted.
type OnStreamEnd int

const (
	// HoldLastFrame repeats the last produced frame forever. Invalid for
	// streams without a known length.
	HoldLastFrame OnStreamEnd = iota
	// HoldFirstFrame repeats the first produced frame forever.
	HoldFirstFrame
	// HoldFrame repeats an arbitrary caller-supplied frame forever. See
	// NewWithHoldFrame.
	HoldFrame
	// HoldSolidBlack produces solid black frames forever.
	HoldSolidBlack
	// Loop restarts the stream from the beginning. Invalid for streams
	// without a known length.
	Loop
	// Error returns ErrUnexpectedStreamEnd from every subsequent fetch.
	Error
	// Unreachable asserts the stream can never end; reaching end-of-stream
	// under this policy is a programmer error.
	Unreachable
)

// OnStreamEndError reports an invalid OnStreamEnd configuration, caught at
// construction time.
type OnStreamEndError struct {
	Reason string
}

func (e *OnStreamEndError) Error() string { return "producer: " + e.Reason }

// ErrUnexpectedStreamEnd is returned by FetchFrame when the stream ends
// under the Error policy.
var ErrUnexpectedStreamEnd = errors.New("producer: stream ended unexpectedly")

// ErrPermanentErrorState is returned by every FetchFrame call after the
// worker has hit an unrecoverable stream error.
var ErrPermanentErrorState = errors.New("producer: producer is stuck in a permanent error state")

// TimeoutError means FetchFrame's wait exceeded its deadline.
type TimeoutError struct{ Timeout time.Duration }

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("producer: fetch_frame timed out after %s", e.Timeout)
}

// UnexpectedDimensionsError means a frame produced by the stream didn't
// match the stream's own declared dimensions.
type UnexpectedDimensionsError struct {
	Expected, Actual media.Dimensions
}

func (e *UnexpectedDimensionsError) Error() string {
	return fmt.Sprintf("producer: expected frame dimensions %s but got %s", e.Expected, e.Actual)
}

// Producer runs a dedicated worker goroutine that keeps a stream.FrameStream's
// frames pre-fetched into a bounded queue, so FetchFrame returns close to
// instantly under normal load.
type Producer struct {
	bufferedFrames     message.Inbox[frameResult]
	frameFetchedSignal message.Outbox[struct{}]
	recycledFrames     message.Outbox[media.Frame]

	lastFrameUid      media.Uid
	haveLastFrameUid  bool
	lastFetchTimedOut bool
	streamStats       stream.Stats

	done chan struct{}
}

type frameResult struct {
	frame media.Frame
	err   error
}

// New creates a Producer that produces frames from s according to
// onStreamEnd. An error is returned if onStreamEnd's preconditions
// against s's Stats aren't satisfied (HoldLastFrame/Loop require a known
// stream length).
func New(s stream.FrameStream, onStreamEnd OnStreamEnd) (*Producer, error) {
	return newProducer(s, onStreamEnd, media.Frame{}, false)
}

// NewWithHoldFrame creates a Producer using the HoldFrame policy, holding
// holdFrame forever once s ends. holdFrame's dimensions must match s's.
func NewWithHoldFrame(s stream.FrameStream, holdFrame media.Frame) (*Producer, error) {
	return newProducer(s, HoldFrame, holdFrame, true)
}

func newProducer(s stream.FrameStream, onStreamEnd OnStreamEnd, holdFrame media.Frame, hasHoldFrame bool) (*Producer, error) {
	stats := s.Stats()

	switch onStreamEnd {
	case HoldLastFrame:
		if !stats.StreamLengthKnown {
			return nil, &OnStreamEndError{Reason: "HoldLastFrame is invalid for streams without a known length"}
		}
	case Loop:
		if !stats.StreamLengthKnown {
			return nil, &OnStreamEndError{Reason: "Loop is invalid for streams without a known length"}
		}
	case HoldFrame:
		if !hasHoldFrame {
			return nil, &OnStreamEndError{Reason: "HoldFrame requires a hold frame"}
		}
		if holdFrame.Dimensions() != stats.Dimensions {
			return nil, &OnStreamEndError{Reason: fmt.Sprintf("hold frame dimensions %s don't match stream dimensions %s", holdFrame.Dimensions(), stats.Dimensions)}
		}
	}

	buffering := stats.BufferingRecommendation
	if buffering < 1 {
		buffering = 1
	}

	bufferedFramesInbox, bufferedFramesOutbox := message.WithCapacity[frameResult](buffering)
	frameFetchedInbox, frameFetchedOutbox := message.WithCapacity[struct{}](buffering)
	recycledFramesInbox, recycledFramesOutbox := message.WithCapacity[media.Frame](buffering)

	fetcher := newFrameFetcher(s, recycledFramesInbox, onStreamEnd, holdFrame)

	done := make(chan struct{})
	go func() {
		defer close(done)
		runWorker(bufferedFramesOutbox, frameFetchedInbox, fetcher, buffering)
	}()

	return &Producer{
		bufferedFrames:     bufferedFramesInbox,
		frameFetchedSignal: frameFetchedOutbox,
		recycledFrames:     recycledFramesOutbox,
		streamStats:        stats,
		done:               done,
	}, nil
}

// Stats returns stats about the underlying stream.
func (p *Producer) Stats() stream.Stats { return p.streamStats }

// RecycleFrame returns the last frame FetchFrame produced so the decoder
// can reuse its storage. Panics if recycled isn't that exact frame — the
// same invariant the original engine asserts, since getting this wrong
// means a consumer is holding onto a frame it already gave back.
func (p *Producer) RecycleFrame(recycled media.Frame) {
	if !p.haveLastFrameUid || recycled.Uid() != p.lastFrameUid {
		panic("producer: you can only recycle the last frame that was returned")
	}
	p.recycledFrames.Send(recycled)
}

// FetchFrame fetches the next frame of the stream, blocking up to
// DefaultFetchFrameTimeout. See FetchFrameTimeout for a custom timeout.
func (p *Producer) FetchFrame() (media.Frame, error) {
	return p.FetchFrameTimeout(DefaultFetchFrameTimeout)
}

// FetchFrameTimeout fetches the next frame of the stream, blocking up to
// timeout. Make sure to RecycleFrame the previously returned frame before
// calling this again.
func (p *Producer) FetchFrameTimeout(timeout time.Duration) (media.Frame, error) {
	result, err := p.bufferedFrames.WaitTimeout(timeout)

	if !p.lastFetchTimedOut {
		p.frameFetchedSignal.Send(struct{}{})
	}

	if err != nil {
		if _, ok := err.(*ipc.TimeoutError); ok {
			p.lastFetchTimedOut = true
			return media.Frame{}, &TimeoutError{Timeout: timeout}
		}
		panic("producer: " + err.Error())
	}

	p.lastFetchTimedOut = false

	if result.err != nil {
		return media.Frame{}, result.err
	}

	frame := result.frame
	if frame.Dimensions() != p.streamStats.Dimensions {
		return media.Frame{}, &UnexpectedDimensionsError{Expected: p.streamStats.Dimensions, Actual: frame.Dimensions()}
	}

	p.lastFrameUid = frame.Uid()
	p.haveLastFrameUid = true

	return frame, nil
}

// Close tells the worker goroutine to wind down and waits for it to exit,
// the Go substitute for the original's Drop-joins-the-worker-thread
// behavior.
func (p *Producer) Close() {
	p.frameFetchedSignal.Close()
	p.recycledFrames.Close()
	p.bufferedFrames.Close()
	<-p.done
}
