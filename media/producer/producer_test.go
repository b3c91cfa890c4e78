package producer

import (
	"testing"
	"time"

	"github.com/oxy-compositor/engine/media"
	"github.com/oxy-compositor/engine/media/stream"
)

// fakeStream is a deterministic, in-memory FrameStream for tests: it
// produces solid-color frames counting up from 0, ending after a fixed
// number of frames.
type fakeStream struct {
	dims   media.Dimensions
	length uint64
	known  bool
	index  uint64
}

var _ stream.FrameStream = &fakeStream{}

func (f *fakeStream) Stats() stream.Stats {
	return stream.Stats{
		FPS:                     30,
		StreamLength:            f.length,
		StreamLengthKnown:       f.known,
		Dimensions:              f.dims,
		BufferingRecommendation: 2,
	}
}

func (f *fakeStream) StartOver() error {
	f.index = 0
	return nil
}

func (f *fakeStream) CreateNextFrame() (media.Frame, error) {
	if f.known && f.index >= f.length {
		return media.Frame{}, stream.ErrStreamEnd
	}
	shade := byte(f.index % 255)
	frame := media.FrameFromFill(f.dims, media.PixelFromRGBA(shade, shade, shade, 255))
	f.index++
	return frame, nil
}

func (f *fakeStream) WriteNextFrame(reuse media.Frame) (media.Frame, error) {
	next, err := f.CreateNextFrame()
	if err != nil {
		return media.Frame{}, err
	}
	if err := reuse.FillFromFrame(next); err != nil {
		return next, nil
	}
	return reuse, nil
}

const testTimeout = 2 * time.Second

func TestProducerFetchesInOrder(t *testing.T) {
	s := &fakeStream{dims: media.MustDimensions(2, 2), length: 5, known: true}
	p, err := New(s, HoldSolidBlack)
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	defer p.Close()

	for i := 0; i < 5; i++ {
		frame, err := p.FetchFrameTimeout(testTimeout)
		if err != nil {
			t.Fatalf("fetch frame %d: %v", i, err)
		}
		want := byte(i % 255)
		if got := frame.At(0, 0).Red(); got != want {
			t.Fatalf("frame %d: expected shade %d, got %d", i, want, got)
		}
		p.RecycleFrame(frame)
	}
}

func TestProducerHoldSolidBlackAfterEnd(t *testing.T) {
	s := &fakeStream{dims: media.MustDimensions(2, 2), length: 2, known: true}
	p, err := New(s, HoldSolidBlack)
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	defer p.Close()

	for i := 0; i < 2; i++ {
		frame, err := p.FetchFrameTimeout(testTimeout)
		if err != nil {
			t.Fatalf("fetch frame %d: %v", i, err)
		}
		p.RecycleFrame(frame)
	}

	held, err := p.FetchFrameTimeout(testTimeout)
	if err != nil {
		t.Fatalf("fetch held frame: %v", err)
	}
	if held.At(0, 0) != media.PixelFromRGBA(0, 0, 0, 255) {
		t.Fatalf("expected solid black after stream end, got %v", held.At(0, 0))
	}
}

func TestProducerLoop(t *testing.T) {
	s := &fakeStream{dims: media.MustDimensions(2, 2), length: 3, known: true}
	p, err := New(s, Loop)
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	defer p.Close()

	var shades []byte
	for i := 0; i < 6; i++ {
		frame, err := p.FetchFrameTimeout(testTimeout)
		if err != nil {
			t.Fatalf("fetch frame %d: %v", i, err)
		}
		shades = append(shades, frame.At(0, 0).Red())
		p.RecycleFrame(frame)
	}

	for i := 0; i < 3; i++ {
		if shades[i] != shades[i+3] {
			t.Fatalf("expected loop to repeat the same sequence, got %v", shades)
		}
	}
}

func TestProducerErrorPolicy(t *testing.T) {
	s := &fakeStream{dims: media.MustDimensions(2, 2), length: 1, known: true}
	p, err := New(s, Error)
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	defer p.Close()

	frame, err := p.FetchFrameTimeout(testTimeout)
	if err != nil {
		t.Fatalf("fetch first frame: %v", err)
	}
	p.RecycleFrame(frame)

	if _, err := p.FetchFrameTimeout(testTimeout); err != ErrUnexpectedStreamEnd {
		t.Fatalf("expected ErrUnexpectedStreamEnd, got %v", err)
	}
}

func TestProducerRejectsHoldLastFrameWithoutKnownLength(t *testing.T) {
	s := &fakeStream{dims: media.MustDimensions(2, 2), known: false}
	if _, err := New(s, HoldLastFrame); err == nil {
		t.Fatalf("expected an error constructing a HoldLastFrame producer over a stream without a known length")
	}
}

func TestProducerRecycleMismatchPanics(t *testing.T) {
	s := &fakeStream{dims: media.MustDimensions(2, 2), length: 5, known: true}
	p, err := New(s, HoldSolidBlack)
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	defer p.Close()

	if _, err := p.FetchFrameTimeout(testTimeout); err != nil {
		t.Fatalf("fetch frame: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected recycling an unrelated frame to panic")
		}
	}()
	p.RecycleFrame(media.FrameFromFill(media.MustDimensions(2, 2), media.PixelFromRGBA(0, 0, 0, 0)))
}
