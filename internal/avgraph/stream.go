package avgraph

import (
	"fmt"

	"talkvid/internal/artifact"
)

// Kind is the media type of a Stream.
type Kind uint8

const (
	Video Kind = iota + 1
	Audio
)

func (k Kind) String() string {
	switch k {
	case Video:
		return "video"
	case Audio:
		return "audio"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Size is a frame size in pixels.
type Size struct {
	W int
	H int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.W, s.H)
}

// Known reports whether both dimensions are set.
func (s Size) Known() bool {
	return s.W > 0 && s.H > 0
}

// Stream is one typed signal produced by exactly one Filter. Streams are
// immutable; any number of filters may consume the same Stream.
type Stream struct {
	kind     Kind
	producer *Filter
	index    int

	size     Size
	duration float64 // seconds, negative when unknown
	fps      int
	alpha    bool
}

// streamSpec describes an output a filter is about to create.
type streamSpec struct {
	kind     Kind
	size     Size
	duration float64
	fps      int
	alpha    bool
}

func videoSpec(size Size, duration float64, fps int) streamSpec {
	return streamSpec{kind: Video, size: size, duration: duration, fps: fps}
}

func audioSpec(duration float64) streamSpec {
	return streamSpec{kind: Audio, duration: duration}
}

// spec returns the stream's attributes as a template for a derived output.
func (s *Stream) spec() streamSpec {
	return streamSpec{kind: s.kind, size: s.size, duration: s.duration, fps: s.fps, alpha: s.alpha}
}

func (s *Stream) Kind() Kind { return s.kind }
func (s *Stream) Producer() *Filter { return s.producer }
func (s *Stream) Index() int { return s.index }
func (s *Stream) Size() Size { return s.size }
func (s *Stream) FPS() int { return s.fps }

// Duration returns the stream length in seconds when known.
func (s *Stream) Duration() (float64, bool) {
	return s.duration, s.duration >= 0
}

// Key identifies the stream: its producer's key plus its output position.
func (s *Stream) Key() artifact.Key {
	return artifact.New("stream").Hash(s.producer.Key()).Int(int64(s.index)).Sum()
}

// typeKey hashes only the media type. Filters fold it in for each output so
// that two filters differing only in output layout never share a key.
func typeKey(kind Kind) artifact.Key {
	return artifact.New("stream.type").String(kind.String()).Sum()
}
