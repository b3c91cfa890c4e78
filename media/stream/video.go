package stream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/oxy-compositor/engine/media"
)

// Video decodes a video file into RGBA frames by piping ffmpeg's rawvideo
// output through a background goroutine, per §4.B's "video stream"
// contract. ffmpeg itself performs container demux, decode, and
// pixel-format normalization to RGBA — the responsibilities the spec
// assigns to a decoder plus a software scaler.
type Video struct {
	path       string
	dimensions media.Dimensions
	fps        float64
	length     uint64
	lengthKnown bool

	reader   *bufio.Reader
	cmd      *exec.Cmd
	pipeDone chan error
}

var _ FrameStream = &Video{}

// OpenVideo probes path for its stream dimensions/frame rate/frame count
// (via ffprobe, reusing ffmpeg-go's probe support) and starts decoding it
// to a raw RGBA pipe.
func OpenVideo(path string) (*Video, error) {
	probeData, err := ffmpeg.Probe(path)
	if err != nil {
		return nil, fmt.Errorf("stream: probe %s: %w", path, err)
	}

	width, height, fps, frameCount, lengthKnown, err := parseVideoProbe(probeData)
	if err != nil {
		return nil, fmt.Errorf("stream: probe %s: %w", path, err)
	}

	dimensions, ok := media.NewDimensions(width, height)
	if !ok {
		return nil, fmt.Errorf("stream: %s: invalid dimensions %dx%d", path, width, height)
	}

	v := &Video{
		path:        path,
		dimensions:  dimensions,
		fps:         fps,
		length:      frameCount,
		lengthKnown: lengthKnown,
	}

	if err := v.startDecode(); err != nil {
		return nil, err
	}

	return v, nil
}

func (v *Video) startDecode() error {
	pipeReader, pipeWriter := io.Pipe()

	cmd := ffmpeg.Input(v.path).
		Output("pipe:", ffmpeg.KwArgs{
			"format":  "rawvideo",
			"pix_fmt": "rgba",
			"s":       fmt.Sprintf("%dx%d", v.dimensions.Width(), v.dimensions.Height()),
		}).
		WithOutput(pipeWriter).
		ErrorToStdOut().
		Compile()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("stream: start ffmpeg decode of %s: %w", v.path, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
		pipeWriter.Close()
	}()

	v.cmd = cmd
	v.reader = bufio.NewReaderSize(pipeReader, int(v.dimensions.Area())*4)
	v.pipeDone = done

	return nil
}

func (v *Video) Stats() Stats {
	buffering := int(v.fps)
	if buffering < 1 {
		buffering = 1
	}
	return Stats{
		FPS:                     v.fps,
		StreamLength:            v.length,
		StreamLengthKnown:       v.lengthKnown,
		Dimensions:              v.dimensions,
		BufferingRecommendation: buffering,
	}
}

// StartOver restarts the ffmpeg decode from the beginning of the file.
func (v *Video) StartOver() error {
	if v.cmd != nil && v.cmd.Process != nil {
		_ = v.cmd.Process.Kill()
		<-v.pipeDone
	}
	return v.startDecode()
}

func (v *Video) WriteNextFrame(reuse media.Frame) (media.Frame, error) {
	raw := make([]byte, v.dimensions.Area()*4)
	if _, err := io.ReadFull(v.reader, raw); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return media.Frame{}, ErrStreamEnd
		}
		return media.Frame{}, fmt.Errorf("stream: read frame from %s: %w", v.path, err)
	}

	frame, err := media.FrameFromRawData(v.dimensions, raw)
	if err != nil {
		return media.Frame{}, err
	}
	if err := reuse.FillFromFrame(frame); err != nil {
		return frame, nil
	}
	return reuse, nil
}

func (v *Video) CreateNextFrame() (media.Frame, error) {
	raw := make([]byte, v.dimensions.Area()*4)
	if _, err := io.ReadFull(v.reader, raw); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return media.Frame{}, ErrStreamEnd
		}
		return media.Frame{}, fmt.Errorf("stream: read frame from %s: %w", v.path, err)
	}
	return media.FrameFromRawData(v.dimensions, raw)
}

// Close terminates the ffmpeg subprocess.
func (v *Video) Close() error {
	if v.cmd == nil || v.cmd.Process == nil {
		return nil
	}
	_ = v.cmd.Process.Kill()
	<-v.pipeDone
	return nil
}

// probeStream is the subset of ffprobe's JSON stream entry this package
// reads to determine a video's fixed dimensions and rate.
type probeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	NbFrames     string `json:"nb_frames"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

// parseVideoProbe extracts the first video stream's dimensions, frame
// rate, and frame count (if known) from ffprobe's JSON output.
func parseVideoProbe(probeJSON string) (width, height uint32, fps float64, frameCount uint64, lengthKnown bool, err error) {
	var out probeOutput
	if jsonErr := json.Unmarshal([]byte(probeJSON), &out); jsonErr != nil {
		return 0, 0, 0, 0, false, fmt.Errorf("parse ffprobe output: %w", jsonErr)
	}

	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}

		width, height = uint32(s.Width), uint32(s.Height)
		fps = parseFrameRate(s.RFrameRate)

		if n, convErr := strconv.ParseUint(s.NbFrames, 10, 64); convErr == nil && n > 0 {
			frameCount, lengthKnown = n, true
		}

		return width, height, fps, frameCount, lengthKnown, nil
	}

	return 0, 0, 0, 0, false, fmt.Errorf("no video stream found")
}

// parseFrameRate converts ffprobe's "num/den" rational frame rate string
// into a float, defaulting to 0 (treated as unknown) on any parse failure.
func parseFrameRate(rate string) float64 {
	parts := strings.SplitN(rate, "/", 2)
	if len(parts) != 2 {
		return 0
	}
	num, errNum := strconv.ParseFloat(parts[0], 64)
	den, errDen := strconv.ParseFloat(parts[1], 64)
	if errNum != nil || errDen != nil || den == 0 {
		return 0
	}
	return num / den
}
