package avgraph

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"talkvid/internal/artifact"
	"talkvid/internal/ffmpeg"
	"talkvid/internal/logging"
)

// Renderer turns Objects into cached media files with a single ffmpeg run.
type Renderer struct {
	store     *artifact.Store
	ffmpeg    *ffmpeg.Runner
	defaults  Format
	extraArgs []string
	logger    *slog.Logger
}

// NewRenderer builds a renderer. defaults fill the format fields an Object
// leaves empty; extraArgs are passed to ffmpeg for outputs carrying video.
func NewRenderer(store *artifact.Store, runner *ffmpeg.Runner, defaults Format, extraArgs []string, logger *slog.Logger) *Renderer {
	return &Renderer{
		store:     store,
		ffmpeg:    runner,
		defaults:  defaults,
		extraArgs: append([]string(nil), extraArgs...),
		logger:    logging.NewComponentLogger(logger, "render"),
	}
}

// Store returns the artifact store renders are registered in.
func (r *Renderer) Store() *artifact.Store { return r.store }

// Render returns the path of obj rendered to a file, building it on a cache
// miss. The file is keyed by the object's hash, its effective format and the
// extra encoder arguments.
func (r *Renderer) Render(ctx context.Context, obj *Object) (string, error) {
	if obj == nil || len(obj.streams) == 0 {
		return "", graphErr(EmptyInputSet, "render", "object has no streams")
	}
	format := r.effectiveFormat(obj)
	target := obj.WithFormat(format)
	var extra []string
	if target.HasVideo() {
		extra = r.extraArgs
	}

	desc := artifact.Description{
		Key:   artifact.New("render").Hash(target.Key()).Strings(extra...).Sum(),
		Ext:   extensionFor(format.Container),
		Label: describeLabel(target),
	}
	return r.store.GetOrBuild(ctx, desc, func(ctx context.Context, tmpPath string) error {
		script, err := Compile(target)
		if err != nil {
			return err
		}
		scriptPath := tmpPath + ".graph"
		if err := os.WriteFile(scriptPath, []byte(script.String()), 0o644); err != nil {
			return fmt.Errorf("write filter script: %w", err)
		}
		defer os.Remove(scriptPath)

		logging.WithContext(ctx, r.logger).Debug("rendering filter graph",
			logging.Int("instructions", len(script.Instructions)),
			logging.Int("outputs", len(script.Outputs)),
		)
		total, err := target.Duration()
		if err != nil {
			total = 0
		}
		return r.ffmpeg.RunWithProgress(ctx, total, renderArgs(script, scriptPath, target, extra, tmpPath)...)
	})
}

func renderArgs(script *Script, scriptPath string, obj *Object, extra []string, outPath string) []string {
	args := []string{"-filter_complex_script", scriptPath}
	for _, out := range script.Outputs {
		args = append(args, "-map", "["+out.Pad+"]")
	}
	format := obj.format
	if obj.HasVideo() && format.VideoCodec != "" {
		args = append(args, "-c:v", format.VideoCodec)
	}
	if obj.HasAudio() && format.AudioCodec != "" {
		args = append(args, "-c:a", format.AudioCodec)
	}
	args = append(args, extra...)
	if format.Container != "" {
		args = append(args, "-f", format.Container)
	}
	return append(args, outPath)
}

func (r *Renderer) effectiveFormat(obj *Object) Format {
	format := obj.format
	if format.Container == "" {
		format.Container = r.defaults.Container
	}
	if format.VideoCodec == "" && obj.HasVideo() {
		format.VideoCodec = r.defaults.VideoCodec
	}
	if format.AudioCodec == "" && obj.HasAudio() {
		format.AudioCodec = r.defaults.AudioCodec
	}
	if !obj.HasVideo() {
		format.VideoCodec = ""
	}
	if !obj.HasAudio() {
		format.AudioCodec = ""
	}
	return format
}

func extensionFor(container string) string {
	switch strings.ToLower(container) {
	case "", "matroska":
		return ".mkv"
	case "mp4":
		return ".mp4"
	case "mov":
		return ".mov"
	case "webm":
		return ".webm"
	default:
		return "." + strings.ToLower(container)
	}
}

func describeLabel(obj *Object) string {
	kinds := make([]string, 0, len(obj.streams))
	for _, s := range obj.streams {
		kinds = append(kinds, s.kind.String())
	}
	label := "render " + strings.Join(kinds, "+")
	if d, ok := obj.streamDuration(); ok {
		label += " " + formatSeconds(d) + "s"
	}
	return label
}
