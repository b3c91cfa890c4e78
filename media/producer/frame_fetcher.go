package producer

import (
	"github.com/oxy-compositor/engine/ipc/message"
	"github.com/oxy-compositor/engine/media"
	"github.com/oxy-compositor/engine/media/stream"
)

// streamEndState tracks what a frameFetcher does once its stream has ended.
type streamEndState int

const (
	streamEndNotYet streamEndState = iota
	streamEndHolding
	streamEndPermanentError
)

// frameFetcher owns the worker-side state: the stream itself, the channel
// of recycled frame buffers to reuse, and whatever happens once the stream
// runs dry. It lives entirely on the worker goroutine; Producer never
// touches it directly.
type frameFetcher struct {
	stream         stream.FrameStream
	recycledFrames message.Inbox[media.Frame]
	onStreamEnd    OnStreamEnd
	configuredHold media.Frame

	framesFetched uint64
	firstFrame    media.Frame
	haveFirst     bool
	lastFrame     media.Frame
	haveLast      bool

	state     streamEndState
	heldFrame media.Frame
}

func newFrameFetcher(s stream.FrameStream, recycledFrames message.Inbox[media.Frame], onStreamEnd OnStreamEnd, configuredHold media.Frame) *frameFetcher {
	return &frameFetcher{
		stream:         s,
		recycledFrames: recycledFrames,
		onStreamEnd:    onStreamEnd,
		configuredHold: configuredHold,
	}
}

// fetchFrame produces the next frame, transitioning through whatever
// end-of-stream policy applies once the underlying stream is exhausted.
//
// Per spec.md §4.C, the trigger is the fetched-frame counter, not the
// stream's own EOF signal: let n = framesFetched; if the stream's length
// is known and n == that length, the end-of-stream transition fires
// before the stream is asked for another frame at all.
func (f *frameFetcher) fetchFrame() (media.Frame, error) {
	switch f.state {
	case streamEndPermanentError:
		return media.Frame{}, ErrPermanentErrorState
	case streamEndHolding:
		return f.heldFrame.Clone(), nil
	}

	stats := f.stream.Stats()
	if stats.StreamLengthKnown && f.framesFetched == stats.StreamLength {
		return f.handleStreamEnd()
	}

	return f.getFrame()
}

// getFrame pulls one frame from the stream and advances the fetched-frame
// counter. A stream error here is fatal rather than routed through the
// OnStreamEnd policy, except ErrStreamEnd on a stream whose length isn't
// known up front: such a stream has no counter to gate on, so its own EOF
// signal is the only way it can ever announce its end. This mirrors
// producer.rs's FrameFetcher::get_frame, which treats any stream error as
// an unconditional failure and leaves the counter as the sole
// end-of-stream trigger for streams with a known length.
func (f *frameFetcher) getFrame() (media.Frame, error) {
	frame, err := f.readNext()
	if err != nil {
		if err == stream.ErrStreamEnd && !f.stream.Stats().StreamLengthKnown {
			return f.handleStreamEnd()
		}
		f.state = streamEndPermanentError
		return media.Frame{}, err
	}

	if !f.haveFirst {
		f.firstFrame, f.haveFirst = frame.Clone(), true
	}
	f.lastFrame, f.haveLast = frame, true
	f.framesFetched++
	return frame, nil
}

// readNext pulls the next frame from the stream, reusing a recycled buffer
// if one is available without blocking.
func (f *frameFetcher) readNext() (media.Frame, error) {
	if reuse, ok, err := f.recycledFrames.Check(); err == nil && ok {
		return f.stream.WriteNextFrame(reuse)
	}
	return f.stream.CreateNextFrame()
}

// handleStreamEnd applies this fetcher's OnStreamEnd policy the first time
// the stream reports it's exhausted.
func (f *frameFetcher) handleStreamEnd() (media.Frame, error) {
	switch f.onStreamEnd {
	case HoldLastFrame:
		if !f.haveLast {
			f.state = streamEndPermanentError
			return media.Frame{}, ErrUnexpectedStreamEnd
		}
		f.state = streamEndHolding
		f.heldFrame = f.lastFrame
		return f.heldFrame.Clone(), nil

	case HoldFirstFrame:
		if !f.haveFirst {
			f.state = streamEndPermanentError
			return media.Frame{}, ErrUnexpectedStreamEnd
		}
		f.state = streamEndHolding
		f.heldFrame = f.firstFrame
		return f.heldFrame.Clone(), nil

	case HoldFrame:
		f.state = streamEndHolding
		f.heldFrame = f.configuredHold
		return f.heldFrame.Clone(), nil

	case HoldSolidBlack:
		dims := f.stream.Stats().Dimensions
		f.state = streamEndHolding
		f.heldFrame = media.FrameFromFill(dims, media.PixelFromRGBA(0, 0, 0, 255))
		return f.heldFrame.Clone(), nil

	case Loop:
		if err := f.stream.StartOver(); err != nil {
			f.state = streamEndPermanentError
			return media.Frame{}, err
		}
		f.framesFetched = 0
		return f.getFrame()

	case Error:
		f.state = streamEndPermanentError
		return media.Frame{}, ErrUnexpectedStreamEnd

	case Unreachable:
		panic("producer: stream ended under the Unreachable policy")

	default:
		f.state = streamEndPermanentError
		return media.Frame{}, ErrUnexpectedStreamEnd
	}
}

// runWorker is the producer's background goroutine: it pre-fetches
// `buffering` frames unconditionally, then fetches one more frame each time
// the host signals it consumed one, until the host closes the producer.
func runWorker(bufferedFrames message.Outbox[frameResult], frameFetchedSignal message.Inbox[struct{}], fetcher *frameFetcher, buffering int) {
	for i := 0; i < buffering; i++ {
		frame, err := fetcher.fetchFrame()
		if sendErr := bufferedFrames.Send(frameResult{frame: frame, err: err}); sendErr != nil {
			return
		}
	}

	for {
		if _, err := frameFetchedSignal.Wait(); err != nil {
			bufferedFrames.Close()
			return
		}

		frame, err := fetcher.fetchFrame()
		if sendErr := bufferedFrames.Send(frameResult{frame: frame, err: err}); sendErr != nil {
			return
		}
	}
}
