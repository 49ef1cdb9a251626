package avgraph

import (
	"talkvid/internal/artifact"
)

// Format selects the container and codecs an Object is rendered with. Empty
// fields fall back to the renderer's defaults.
type Format struct {
	Container  string
	VideoCodec string
	AudioCodec string
}

// Object is an ordered bundle of streams plus output format. Every operation
// returns a new Object; operands are never modified.
type Object struct {
	streams []*Stream
	format  Format
}

// NewObject bundles streams in the given order.
func NewObject(streams ...*Stream) *Object {
	return &Object{streams: append([]*Stream(nil), streams...)}
}

func (o *Object) derive(streams ...*Stream) *Object {
	return &Object{streams: streams, format: o.format}
}

// Streams returns the object's streams in declared order.
func (o *Object) Streams() []*Stream {
	return append([]*Stream(nil), o.streams...)
}

// Format returns the output format.
func (o *Object) Format() Format { return o.format }

// WithFormat returns a copy rendered with the given format.
func (o *Object) WithFormat(format Format) *Object {
	return &Object{streams: o.streams, format: format}
}

// Key combines the stream keys in order with the format choice.
func (o *Object) Key() artifact.Key {
	h := artifact.New("object").Int(int64(len(o.streams)))
	for _, s := range o.streams {
		h.Hash(s.Key())
	}
	return h.
		String(o.format.Container).
		String(o.format.VideoCodec).
		String(o.format.AudioCodec).
		Sum()
}

func (o *Object) byKind(kind Kind) []*Stream {
	var out []*Stream
	for _, s := range o.streams {
		if s.kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// VideoStreams returns the video streams in order.
func (o *Object) VideoStreams() []*Stream { return o.byKind(Video) }

// AudioStreams returns the audio streams in order.
func (o *Object) AudioStreams() []*Stream { return o.byKind(Audio) }

// HasVideo reports whether the object carries at least one video stream.
func (o *Object) HasVideo() bool { return len(o.byKind(Video)) > 0 }

// HasAudio reports whether the object carries at least one audio stream.
func (o *Object) HasAudio() bool { return len(o.byKind(Audio)) > 0 }

// Video returns the first video stream.
func (o *Object) Video() (*Stream, error) {
	videos := o.byKind(Video)
	if len(videos) == 0 {
		return nil, graphErr(AttributeUnavailable, "video", "object has no video stream")
	}
	return videos[0], nil
}

// Size is the frame size of the first video stream.
func (o *Object) Size() (Size, error) {
	v, err := o.Video()
	if err != nil {
		return Size{}, graphErr(AttributeUnavailable, "size", "object has no video stream")
	}
	if !v.size.Known() {
		return Size{}, graphErr(AttributeUnavailable, "size", "video size unknown")
	}
	return v.size, nil
}

// Duration is the length of the first video stream in seconds.
func (o *Object) Duration() (float64, error) {
	v, err := o.Video()
	if err != nil {
		return 0, graphErr(AttributeUnavailable, "duration", "object has no video stream")
	}
	d, ok := v.Duration()
	if !ok {
		return 0, graphErr(AttributeUnavailable, "duration", "video duration unknown")
	}
	return d, nil
}

// FPS is the frame rate of the first video stream, 0 when unknown.
func (o *Object) FPS() int {
	v, err := o.Video()
	if err != nil {
		return 0
	}
	return v.fps
}

// streamDuration returns the best known length of any stream in the object.
func (o *Object) streamDuration() (float64, bool) {
	if d, err := o.Duration(); err == nil {
		return d, true
	}
	for _, s := range o.streams {
		if d, ok := s.Duration(); ok {
			return d, true
		}
	}
	return 0, false
}
