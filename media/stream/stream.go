// Package stream implements media.Frame sources: a pull-based FrameStream
// interface, a looping still-image implementation, and a video decoder
// wrapping an ffmpeg subprocess, per §4.B of the node-graph compositor
// spec.
package stream

import (
	"errors"
	"fmt"

	"github.com/oxy-compositor/engine/media"
)

// ErrStreamEnd is returned by CreateNextFrame/WriteNextFrame when the
// stream has no more frames to produce.
var ErrStreamEnd = errors.New("stream: end of stream")

// Stats describes a FrameStream's fixed characteristics.
type Stats struct {
	// FPS is the intended playback rate. <= 0 means a still-frame source.
	FPS float64

	// StreamLength is the total number of frames this stream can produce,
	// or (0, false) if unknown (e.g. a live or still source).
	StreamLength      uint64
	StreamLengthKnown bool

	// Dimensions every frame this stream produces will have.
	Dimensions media.Dimensions

	// BufferingRecommendation is how many frames a FrameProducer should
	// try to keep pre-fetched.
	BufferingRecommendation int
}

// FrameStream is a pull-based source of frames: video decode, a looping
// still image, or any other frame-producing source a FrameProducer can
// wrap.
type FrameStream interface {
	// Stats returns this stream's fixed characteristics.
	Stats() Stats

	// StartOver reverts the stream to its first frame. No-ops for
	// streams with no notion of position (e.g. a live feed).
	StartOver() error

	// WriteNextFrame attempts to reuse reuse's storage for the next
	// frame, falling back to CreateNextFrame if reuse's buffer isn't
	// suitable. Returns ErrStreamEnd when the source is exhausted.
	WriteNextFrame(reuse media.Frame) (media.Frame, error)

	// CreateNextFrame allocates a fresh Frame for the next frame. Returns
	// ErrStreamEnd when the source is exhausted.
	CreateNextFrame() (media.Frame, error)
}

// Still is a FrameStream that returns clones of a single owned frame
// forever. Its Stats report StreamLengthKnown=false and FPS<=0 per §4.B.
type Still struct {
	frame media.Frame
}

var _ FrameStream = &Still{}

// NewStill creates a Still stream wrapping frame.
func NewStill(frame media.Frame) *Still {
	return &Still{frame: frame}
}

func (s *Still) Stats() Stats {
	return Stats{
		FPS:                     0,
		StreamLengthKnown:       false,
		Dimensions:              s.frame.Dimensions(),
		BufferingRecommendation: 1,
	}
}

func (s *Still) StartOver() error { return nil }

func (s *Still) WriteNextFrame(reuse media.Frame) (media.Frame, error) {
	if err := reuse.FillFromFrame(s.frame); err != nil {
		return s.CreateNextFrame()
	}
	return reuse, nil
}

func (s *Still) CreateNextFrame() (media.Frame, error) {
	return s.frame.Clone(), nil
}

// String satisfies fmt.Stringer, mainly for debug logging of stream stats.
func (s Stats) String() string {
	length := "unknown"
	if s.StreamLengthKnown {
		length = fmt.Sprintf("%d", s.StreamLength)
	}
	return fmt.Sprintf("Stats{fps=%.2f, length=%s, dims=%s, buffering=%d}", s.FPS, length, s.Dimensions, s.BufferingRecommendation)
}
