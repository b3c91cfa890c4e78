package stream

import (
	"testing"

	"github.com/oxy-compositor/engine/media"
)

func TestStillStats(t *testing.T) {
	dims := media.MustDimensions(4, 4)
	frame := media.FrameFromFill(dims, media.PixelFromRGBA(10, 20, 30, 255))
	s := NewStill(frame)

	stats := s.Stats()
	if stats.StreamLengthKnown {
		t.Fatalf("expected still stream length to be unknown")
	}
	if stats.FPS > 0 {
		t.Fatalf("expected still stream fps <= 0, got %v", stats.FPS)
	}
	if stats.Dimensions != dims {
		t.Fatalf("expected dimensions %v, got %v", dims, stats.Dimensions)
	}
}

func TestStillProducesClones(t *testing.T) {
	dims := media.MustDimensions(2, 2)
	frame := media.FrameFromFill(dims, media.PixelFromRGBA(1, 2, 3, 4))
	s := NewStill(frame)

	first, err := s.CreateNextFrame()
	if err != nil {
		t.Fatalf("create next frame: %v", err)
	}
	second, err := s.CreateNextFrame()
	if err != nil {
		t.Fatalf("create next frame: %v", err)
	}

	if first.Uid() == second.Uid() {
		t.Fatalf("expected each CreateNextFrame call to produce a distinct Uid")
	}
	if first.At(0, 0) != second.At(0, 0) {
		t.Fatalf("expected clones to share pixel content")
	}
}

func TestStillWriteNextFrameReuses(t *testing.T) {
	dims := media.MustDimensions(2, 2)
	frame := media.FrameFromFill(dims, media.PixelFromRGBA(9, 9, 9, 255))
	s := NewStill(frame)

	reuse := media.FrameFromFill(dims, media.PixelFromRGBA(0, 0, 0, 0))
	reuseUid := reuse.Uid()

	out, err := s.WriteNextFrame(reuse)
	if err != nil {
		t.Fatalf("write next frame: %v", err)
	}
	if out.Uid() != reuseUid {
		t.Fatalf("expected WriteNextFrame to preserve reuse's Uid, got a new one")
	}
	if out.At(0, 0) != frame.At(0, 0) {
		t.Fatalf("expected reused frame to be filled with the still frame's content")
	}
}

func TestStillStartOverIsNoop(t *testing.T) {
	s := NewStill(media.FrameFromFill(media.MustDimensions(1, 1), media.PixelFromRGBA(0, 0, 0, 0)))
	if err := s.StartOver(); err != nil {
		t.Fatalf("expected StartOver to be a no-op, got %v", err)
	}
}
