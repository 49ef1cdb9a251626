package avgraph

import (
	"math"
	"strconv"
)

// Concat plays operands one after another. Each operand must be exactly one
// video stream optionally followed by one audio stream. When any operand has
// audio, operands without it get generated silence of matching length.
func Concat(objs ...*Object) (*Object, error) {
	if len(objs) == 0 {
		return nil, graphErr(EmptyInputSet, "concat", "no operands")
	}
	withAudio := false
	for i, obj := range objs {
		if err := checkConcatLayout(i, obj); err != nil {
			return nil, err
		}
		if len(obj.streams) == 2 {
			withAudio = true
		}
	}
	if len(objs) == 1 {
		return objs[0], nil
	}

	first := objs[0].streams[0]
	total := 0.0
	known := true
	inputs := make([]*Stream, 0, len(objs)*2)
	for i, obj := range objs {
		v := obj.streams[0]
		if v.size.Known() && first.size.Known() && v.size != first.size {
			return nil, graphErr(TypeMismatch, "concat", "operand %d is %s, expected %s", i, v.size, first.size)
		}
		inputs = append(inputs, v)
		d, ok := v.Duration()
		if !ok {
			known = false
		}
		total += d
		if !withAudio {
			continue
		}
		if len(obj.streams) == 2 {
			inputs = append(inputs, obj.streams[1])
			continue
		}
		if !ok {
			return nil, graphErr(AttributeUnavailable, "concat", "operand %d has no audio and an unknown duration", i)
		}
		inputs = append(inputs, silence(d))
	}

	duration := total
	if !known {
		duration = -1
	}
	audioCount := 0
	outputs := []streamSpec{videoSpec(first.size, duration, first.fps)}
	if withAudio {
		audioCount = 1
		outputs = append(outputs, audioSpec(duration))
	}
	f := newFilter("concat", []Arg{
		intArg("n", len(objs)),
		intArg("v", 1),
		intArg("a", audioCount),
	}, inputs, outputs, nil)
	return objs[0].derive(f.Outputs()...), nil
}

func checkConcatLayout(i int, obj *Object) error {
	switch {
	case len(obj.streams) == 0:
		return graphErr(TypeMismatch, "concat", "operand %d has no streams", i)
	case len(obj.streams) > 2:
		return graphErr(TypeMismatch, "concat", "operand %d has %d streams, expected one video and at most one audio", i, len(obj.streams))
	case obj.streams[0].kind != Video:
		return graphErr(TypeMismatch, "concat", "operand %d starts with %s; video must precede audio", i, obj.streams[0].kind)
	case len(obj.streams) == 2 && obj.streams[1].kind != Audio:
		return graphErr(TypeMismatch, "concat", "operand %d has a second %s stream", i, obj.streams[1].kind)
	}
	return nil
}

// OverlayOptions position upper layers and control looping.
type OverlayOptions struct {
	X, Y int
	// Loop repeats upper layers shorter than the bottom one.
	Loop bool
}

// Overlay stacks operands: video of later operands is drawn on top of earlier
// ones and all audio is mixed. The bottom video decides size and length. A
// single video or audio contributor passes through untouched.
func Overlay(opts OverlayOptions, objs ...*Object) (*Object, error) {
	if len(objs) == 0 {
		return nil, graphErr(EmptyInputSet, "overlay", "no operands")
	}
	var videos, audios []*Stream
	for _, obj := range objs {
		for _, s := range obj.streams {
			switch s.kind {
			case Video:
				videos = append(videos, s)
			case Audio:
				audios = append(audios, s)
			default:
				return nil, graphErr(TypeMismatch, "overlay", "unknown stream kind %v", s.kind)
			}
		}
	}
	if len(videos) == 0 && len(audios) == 0 {
		return nil, graphErr(EmptyInputSet, "overlay", "operands carry no streams")
	}

	streams := make([]*Stream, 0, 2)
	if len(videos) > 0 {
		base := videos[0]
		for _, top := range videos[1:] {
			if opts.Loop {
				top = loopTo(top, base)
			}
			base = apply("overlay", []Arg{
				intArg("x", opts.X),
				intArg("y", opts.Y),
				arg("eof_action", "pass"),
			}, base.spec(), base, top)
		}
		streams = append(streams, base)
	}
	if mixed := mix(audios); mixed != nil {
		streams = append(streams, mixed)
	}
	return objs[0].derive(streams...), nil
}

func mix(audios []*Stream) *Stream {
	switch len(audios) {
	case 0:
		return nil
	case 1:
		return audios[0]
	}
	return apply("amix", []Arg{
		intArg("inputs", len(audios)),
		arg("duration", "first"),
		intArg("dropout_transition", 0),
		intArg("normalize", 0),
	}, audios[0].spec(), audios...)
}

// loopTo repeats top until it covers base.
func loopTo(top, base *Stream) *Stream {
	topDur, ok1 := top.Duration()
	baseDur, ok2 := base.Duration()
	if !ok1 || !ok2 || top.fps <= 0 || topDur <= 0 || topDur >= baseDur {
		return top
	}
	frames := int(math.Ceil(topDur * float64(top.fps)))
	out := top.spec()
	out.duration = -1
	s := apply("loop", []Arg{intArg("loop", -1), intArg("size", frames)}, out, top)
	s = apply("setpts", []Arg{arg("expr", ptsForRate(top.fps))}, out, s)
	out.duration = baseDur
	return apply("trim", []Arg{secondsArg("duration", baseDur)}, out, s)
}

// mapStreams rebuilds the object with each stream replaced by fn's result.
func (o *Object) mapStreams(fn func(*Stream) (*Stream, error)) (*Object, error) {
	out := make([]*Stream, 0, len(o.streams))
	for _, s := range o.streams {
		mapped, err := fn(s)
		if err != nil {
			return nil, err
		}
		if mapped != nil {
			out = append(out, mapped)
		}
	}
	return o.derive(out...), nil
}

func (o *Object) requireVideo(op string) error {
	if !o.HasVideo() {
		return graphErr(TypeMismatch, op, "object has no video stream")
	}
	return nil
}

func (o *Object) requireAudio(op string) error {
	if !o.HasAudio() {
		return graphErr(TypeMismatch, op, "object has no audio stream")
	}
	return nil
}

// ResizedBy scales every video stream to w×h.
func (o *Object) ResizedBy(w, h int) (*Object, error) {
	if w <= 0 || h <= 0 {
		return nil, graphErr(InvalidArgument, "resize", "size must be positive, got %dx%d", w, h)
	}
	if err := o.requireVideo("resize"); err != nil {
		return nil, err
	}
	return o.mapStreams(func(s *Stream) (*Stream, error) {
		if s.kind != Video {
			return s, nil
		}
		out := s.spec()
		out.size = Size{W: w, H: h}
		return apply("scale", []Arg{intArg("w", w), intArg("h", h)}, out, s), nil
	})
}

// Padded places every video stream at (x, y) on a w×h canvas.
func (o *Object) Padded(x, y, w, h int) (*Object, error) {
	if w <= 0 || h <= 0 || x < 0 || y < 0 {
		return nil, graphErr(InvalidArgument, "pad", "invalid box %dx%d+%d+%d", w, h, x, y)
	}
	if err := o.requireVideo("pad"); err != nil {
		return nil, err
	}
	return o.mapStreams(func(s *Stream) (*Stream, error) {
		if s.kind != Video {
			return s, nil
		}
		if s.size.Known() && (s.size.W+x > w || s.size.H+y > h) {
			return nil, graphErr(InvalidArgument, "pad", "%s at +%d+%d does not fit in %dx%d", s.size, x, y, w, h)
		}
		color := "black"
		if s.alpha {
			color = "black@0"
		}
		out := s.spec()
		out.size = Size{W: w, H: h}
		return apply("pad", []Arg{
			intArg("w", w),
			intArg("h", h),
			intArg("x", x),
			intArg("y", y),
			arg("color", color),
		}, out, s), nil
	})
}

// WithFPS converts every video stream to a constant frame rate.
func (o *Object) WithFPS(fps int) (*Object, error) {
	if fps <= 0 {
		return nil, graphErr(InvalidArgument, "fps", "frame rate must be positive, got %d", fps)
	}
	if err := o.requireVideo("fps"); err != nil {
		return nil, err
	}
	return o.mapStreams(func(s *Stream) (*Stream, error) {
		if s.kind != Video {
			return s, nil
		}
		out := s.spec()
		out.fps = fps
		return apply("fps", []Arg{intArg("fps", fps)}, out, s), nil
	})
}

// Muted drops every audio stream. It is the same as VideoOnly.
func (o *Object) Muted() *Object {
	return o.VideoOnly()
}

// VideoOnly drops all audio streams.
func (o *Object) VideoOnly() *Object {
	return o.derive(o.VideoStreams()...)
}

// AudioOnly drops all video streams.
func (o *Object) AudioOnly() *Object {
	return o.derive(o.AudioStreams()...)
}

// MonoAudio downmixes every audio stream to one channel.
func (o *Object) MonoAudio() (*Object, error) {
	if err := o.requireAudio("mono"); err != nil {
		return nil, err
	}
	return o.mapStreams(func(s *Stream) (*Stream, error) {
		if s.kind != Audio {
			return s, nil
		}
		return apply("aformat", []Arg{arg("channel_layouts", "mono")}, s.spec(), s), nil
	})
}

// ExportedAudio keeps only audio, resampled to rate, and renders it as raw
// or containerized audio in the given format (e.g. "s16le", "wav", "flac").
func (o *Object) ExportedAudio(format string, rate int) (*Object, error) {
	if rate <= 0 {
		return nil, graphErr(InvalidArgument, "export audio", "sample rate must be positive, got %d", rate)
	}
	if err := o.requireAudio("export audio"); err != nil {
		return nil, err
	}
	audio := o.AudioOnly()
	resampled, err := audio.mapStreams(func(s *Stream) (*Stream, error) {
		return apply("aformat", []Arg{intArg("sample_rates", rate)}, s.spec(), s), nil
	})
	if err != nil {
		return nil, err
	}
	return resampled.WithFormat(Format{Container: format, AudioCodec: audioCodecFor(format)}), nil
}

func audioCodecFor(format string) string {
	switch format {
	case "s16le", "s16be", "s32le", "f32le", "f64le", "u8":
		return "pcm_" + format
	case "wav":
		return "pcm_s16le"
	case "flac":
		return "flac"
	default:
		return ""
	}
}

// FadedIn fades video from black (or from transparent for images) and audio
// from silence over the first t seconds.
func (o *Object) FadedIn(t float64) (*Object, error) {
	if t <= 0 {
		return o, nil
	}
	return o.mapStreams(func(s *Stream) (*Stream, error) {
		return fade(s, "in", 0, t), nil
	})
}

// FadedOut fades over the last t seconds of each stream.
func (o *Object) FadedOut(t float64) (*Object, error) {
	if t <= 0 {
		return o, nil
	}
	return o.mapStreams(func(s *Stream) (*Stream, error) {
		d, ok := s.Duration()
		if !ok {
			return nil, graphErr(AttributeUnavailable, "fade out", "%s duration unknown", s.kind)
		}
		return fade(s, "out", math.Max(0, d-t), t), nil
	})
}

func fade(s *Stream, direction string, start, length float64) *Stream {
	args := []Arg{arg("t", direction), secondsArg("st", start), secondsArg("d", length)}
	switch s.kind {
	case Video:
		if s.alpha {
			args = append(args, intArg("alpha", 1))
		}
		return apply("fade", args, s.spec(), s)
	case Audio:
		return apply("afade", args, s.spec(), s)
	default:
		panic("avgraph: unknown stream kind " + s.kind.String())
	}
}

// Trimmed keeps [start, end) seconds. end <= 0 keeps everything after start.
func (o *Object) Trimmed(start, end float64) (*Object, error) {
	if start < 0 || (end > 0 && end <= start) {
		return nil, graphErr(InvalidArgument, "trim", "invalid range %v..%v", start, end)
	}
	args := []Arg{secondsArg("start", start)}
	if end > 0 {
		args = append(args, secondsArg("end", end))
	}
	return o.mapStreams(func(s *Stream) (*Stream, error) {
		out := s.spec()
		d, ok := s.Duration()
		switch {
		case end > 0 && ok:
			out.duration = math.Max(0, math.Min(end, d)-start)
		case end > 0:
			out.duration = end - start
		case ok:
			out.duration = math.Max(0, d-start)
		}
		switch s.kind {
		case Video:
			trimmed := apply("trim", args, out, s)
			return apply("setpts", []Arg{arg("expr", "PTS-STARTPTS")}, out, trimmed), nil
		case Audio:
			trimmed := apply("atrim", args, out, s)
			return apply("asetpts", []Arg{arg("expr", "PTS-STARTPTS")}, out, trimmed), nil
		default:
			return nil, graphErr(TypeMismatch, "trim", "unknown stream kind %v", s.kind)
		}
	})
}

// Delayed prepends t seconds of black video and silence.
func (o *Object) Delayed(t float64) (*Object, error) {
	if t <= 0 {
		return o, nil
	}
	if !o.HasVideo() {
		ms := strconv.FormatInt(int64(math.Round(t*1000)), 10)
		return o.mapStreams(func(s *Stream) (*Stream, error) {
			out := s.spec()
			if d, ok := s.Duration(); ok {
				out.duration = d + t
			}
			return apply("adelay", []Arg{arg("delays", ms), intArg("all", 1)}, out, s), nil
		})
	}
	v, err := o.Video()
	if err != nil {
		return nil, err
	}
	fps := v.fps
	if fps <= 0 {
		fps = 25
	}
	pad, err := blankVideo(t, v.size, fps)
	if err != nil {
		return nil, err
	}
	lead := NewObject(pad)
	if o.HasAudio() {
		lead = NewObject(pad, silence(t))
	}
	return Concat(lead, o)
}

// WithAudioFrom combines this object's video with other's audio.
func (o *Object) WithAudioFrom(other *Object) *Object {
	streams := append(o.VideoStreams(), other.AudioStreams()...)
	return o.derive(streams...)
}
