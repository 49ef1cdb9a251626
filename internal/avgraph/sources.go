package avgraph

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"talkvid/internal/artifact"
	"talkvid/internal/logging"
	"talkvid/internal/media/ffprobe"
)

// silenceSampleRate is the rate of generated silent audio. ffmpeg resamples
// it to match real audio wherever the two meet.
const silenceSampleRate = 48000

// Env carries what source constructors need to look at files on disk.
type Env struct {
	Store   *artifact.Store
	FFprobe string
	Logger  *slog.Logger
}

func (e Env) logger() *slog.Logger {
	return logging.NewComponentLogger(e.Logger, "avgraph")
}

// Input opens a media file as an Object: its first video stream (if any)
// followed by its first audio stream (if any). Metadata comes from ffprobe
// and is cached as a .probe artifact keyed by the input's hash.
func Input(ctx context.Context, env Env, path string) (*Object, error) {
	abs, key, result, err := probeInput(ctx, env, path)
	if err != nil {
		return nil, err
	}

	video, hasVideo := result.VideoStream()
	hasAudio := result.HasAudio()
	if !hasVideo && !hasAudio {
		return nil, graphErr(TypeMismatch, "input", "%s has neither video nor audio", abs)
	}

	duration := result.DurationSeconds()
	if hasVideo {
		if d := video.DurationSeconds(); d > 0 && !math.IsNaN(d) {
			duration = d
		}
	}
	if duration <= 0 || math.IsNaN(duration) {
		duration = -1
	}

	args := []Arg{{Key: "filename", Value: abs, Opaque: true}}
	var specs []streamSpec
	name := "movie"
	switch {
	case hasVideo && hasAudio:
		args = append(args, arg("s", "dv+da"))
		specs = []streamSpec{videoSpec(Size{W: video.Width, H: video.Height}, duration, frameRate(video)), audioSpec(duration)}
	case hasVideo:
		specs = []streamSpec{videoSpec(Size{W: video.Width, H: video.Height}, duration, frameRate(video))}
	default:
		name = "amovie"
		specs = []streamSpec{audioSpec(duration)}
	}

	source := newFilter(name, args, nil, specs, &key)
	streams := make([]*Stream, 0, len(source.outputs))
	for _, s := range source.outputs {
		streams = append(streams, resetTimestamps(s))
	}

	env.logger().Debug("input opened",
		logging.String("path", abs),
		logging.String(logging.FieldArtifact, key.Short()),
		logging.Bool("video", hasVideo),
		logging.Bool("audio", hasAudio),
		logging.Float64("duration", duration),
	)
	return NewObject(streams...), nil
}

// Image loops a still image into a video of the given duration. The alpha
// channel is kept so the result can be overlaid.
func Image(ctx context.Context, env Env, path string, duration float64, fps int) (*Object, error) {
	if duration <= 0 || fps <= 0 {
		return nil, graphErr(InvalidArgument, "image", "duration and fps must be positive")
	}
	abs, key, result, err := probeInput(ctx, env, path)
	if err != nil {
		return nil, err
	}
	video, ok := result.VideoStream()
	if !ok {
		// Still images report as a single-frame video stream; fall back to
		// the first video-typed stream regardless of codec.
		for _, s := range result.Streams {
			if s.CodecType == "video" {
				video, ok = s, true
				break
			}
		}
	}
	if !ok {
		return nil, graphErr(TypeMismatch, "image", "%s is not an image", abs)
	}
	size := Size{W: video.Width, H: video.Height}

	still := newFilter("movie", []Arg{{Key: "filename", Value: abs, Opaque: true}}, nil,
		[]streamSpec{{kind: Video, size: size, duration: -1, alpha: true}}, &key).outputs[0]
	out := streamSpec{kind: Video, size: size, duration: -1, fps: fps, alpha: true}
	s := apply("format", []Arg{arg("pix_fmts", "yuva420p")}, out, still)
	s = apply("loop", []Arg{intArg("loop", -1), intArg("size", 1)}, out, s)
	s = apply("setpts", []Arg{arg("expr", ptsForRate(fps))}, out, s)
	out.duration = duration
	s = apply("trim", []Arg{secondsArg("duration", duration)}, out, s)
	return NewObject(s), nil
}

// Blank is black video with silent audio.
func Blank(duration float64, size Size, fps int) (*Object, error) {
	v, err := blankVideo(duration, size, fps)
	if err != nil {
		return nil, err
	}
	return NewObject(v, silence(duration)), nil
}

// Silence is a silent audio-only Object.
func Silence(duration float64) (*Object, error) {
	if duration <= 0 {
		return nil, graphErr(InvalidArgument, "silence", "duration must be positive, got %v", duration)
	}
	return NewObject(silence(duration)), nil
}

func blankVideo(duration float64, size Size, fps int) (*Stream, error) {
	if duration <= 0 || !size.Known() || fps <= 0 {
		return nil, graphErr(InvalidArgument, "blank", "need positive duration, size and fps (got %v, %s, %d)", duration, size, fps)
	}
	return apply("color", []Arg{
		arg("c", "black"),
		arg("s", size.String()),
		intArg("r", fps),
		secondsArg("d", duration),
	}, videoSpec(size, duration, fps)), nil
}

func silence(duration float64) *Stream {
	s := apply("anullsrc", []Arg{
		intArg("r", silenceSampleRate),
		arg("cl", "stereo"),
	}, audioSpec(-1))
	return apply("atrim", []Arg{secondsArg("duration", duration)}, audioSpec(duration), s)
}

func resetTimestamps(s *Stream) *Stream {
	switch s.kind {
	case Video:
		return apply("setpts", []Arg{arg("expr", "PTS-STARTPTS")}, s.spec(), s)
	case Audio:
		return apply("asetpts", []Arg{arg("expr", "PTS-STARTPTS")}, s.spec(), s)
	default:
		panic(fmt.Sprintf("avgraph: unknown stream kind %v", s.kind))
	}
}

func ptsForRate(fps int) string {
	return "N/(" + strconv.Itoa(fps) + "*TB)"
}

func frameRate(s ffprobe.Stream) int {
	rate := s.FrameRate()
	if rate <= 0 || math.IsNaN(rate) {
		return 0
	}
	return int(math.Round(rate))
}

func probeInput(ctx context.Context, env Env, path string) (string, artifact.Key, ffprobe.Result, error) {
	if env.Store == nil {
		return "", artifact.Key{}, ffprobe.Result{}, fmt.Errorf("avgraph: no artifact store configured")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", artifact.Key{}, ffprobe.Result{}, fmt.Errorf("avgraph: resolve %s: %w", path, err)
	}
	key, err := env.Store.Input(abs)
	if err != nil {
		return "", artifact.Key{}, ffprobe.Result{}, fmt.Errorf("avgraph: %w", err)
	}

	desc := artifact.Description{
		Key:   artifact.New("probe").Hash(key).Sum(),
		Ext:   ".probe",
		Label: "probe " + filepath.Base(abs),
	}
	probePath, err := env.Store.GetOrBuild(ctx, desc, func(ctx context.Context, tmp string) error {
		raw, err := ffprobe.Run(ctx, env.FFprobe, abs)
		if err != nil {
			return err
		}
		return os.WriteFile(tmp, raw, 0o644)
	})
	if err != nil {
		return "", artifact.Key{}, ffprobe.Result{}, err
	}
	raw, err := os.ReadFile(probePath)
	if err != nil {
		return "", artifact.Key{}, ffprobe.Result{}, fmt.Errorf("avgraph: read probe: %w", err)
	}
	result, err := ffprobe.Parse(raw)
	if err != nil {
		return "", artifact.Key{}, ffprobe.Result{}, err
	}
	return abs, key, result, nil
}
