package avsync

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"

	"golang.org/x/sync/errgroup"

	"talkvid/internal/artifact"
	"talkvid/internal/avgraph"
	"talkvid/internal/config"
	"talkvid/internal/logging"
	"talkvid/internal/services"
)

// weakCorrelation is the |r| below which an alignment is reported as suspect.
const weakCorrelation = 0.9

// Result is the outcome of aligning two recordings.
type Result struct {
	Stats
	// Offset is how many seconds later the shared audio starts in B than
	// in A. Positive values mean A must be delayed.
	Offset float64
	Pairs  int
}

// Engine finds the time offset between two recordings of the same audio.
type Engine struct {
	renderer *avgraph.Renderer
	cfg      config.Sync
	logger   *slog.Logger
}

// NewEngine returns an engine that renders audio through renderer.
func NewEngine(renderer *avgraph.Renderer, cfg config.Sync, logger *slog.Logger) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	return &Engine{renderer: renderer, cfg: cfg, logger: logging.NewComponentLogger(logger, "avsync")}
}

// Align estimates the offset between the audio of a and b. The alignment
// path is cached, so repeated runs only redo the regression.
func (e *Engine) Align(ctx context.Context, a, b *avgraph.Object) (Result, error) {
	for i, obj := range []*avgraph.Object{a, b} {
		if !obj.HasAudio() {
			return Result{}, services.Wrap(services.ErrSyncPrecondition, "avsync", "align",
				fmt.Sprintf("recording %d has no audio", i+1), nil)
		}
	}
	ctx = services.WithStep(ctx, "sync")
	logger := logging.WithContext(ctx, e.logger)

	desc := artifact.Description{Key: e.pathKey(a, b), Ext: ".path", Label: "alignment path"}
	path, err := artifact.LoadOrBuildCBOR(ctx, e.renderer.Store(), desc, func(ctx context.Context) ([]Pair, error) {
		return e.computePath(ctx, a, b)
	})
	if err != nil {
		return Result{}, err
	}

	stats, err := Regress(path, e.cfg.Cutoff)
	if err != nil {
		return Result{}, err
	}
	result := Result{
		Stats:  stats,
		Offset: stats.OffsetSeconds(e.cfg.HopLength, e.cfg.SampleRate),
		Pairs:  len(path),
	}
	logger.Info("recordings aligned",
		logging.Float64("slope", stats.Slope),
		logging.Float64("intercept_frames", stats.Intercept),
		logging.Float64("offset_seconds", result.Offset),
		logging.Float64("r", stats.R),
		logging.Float64("stderr", stats.StdErr),
		logging.Int("pairs", len(path)),
	)
	if math.Abs(stats.R) < weakCorrelation {
		logging.WarnWithContext(logger, "weak alignment", "sync_weak_correlation",
			logging.Float64("r", stats.R),
			logging.String(logging.FieldErrorHint, "check that both recordings contain the same talk audio"),
			logging.String(logging.FieldImpact, "recordings may be visibly out of sync"),
		)
	}
	return result, nil
}

// FadeIn is the fade applied to whichever recording gets delayed.
func (e *Engine) FadeIn() float64 { return e.cfg.FadeIn }

// Synchronized aligns a and b and delays whichever one lags. The delayed
// recording fades in after a blank lead of the offset's length.
func (e *Engine) Synchronized(ctx context.Context, a, b *avgraph.Object) (*avgraph.Object, *avgraph.Object, Result, error) {
	result, err := e.Align(ctx, a, b)
	if err != nil {
		return nil, nil, Result{}, err
	}
	padA, padB, err := Shifted(a, b, result.Offset, e.cfg.FadeIn)
	if err != nil {
		return nil, nil, Result{}, err
	}
	return padA, padB, result, nil
}

func (e *Engine) pathKey(a, b *avgraph.Object) artifact.Key {
	c := e.cfg
	return artifact.New("avsync.path").
		Hash(a.Key()).
		Hash(b.Key()).
		Int(int64(c.SampleRate)).
		Int(int64(c.HopLength)).
		Int(int64(c.FFTSize)).
		Int(int64(c.MelBands)).
		Int(int64(c.Coefficients)).
		Int(int64(c.Window)).
		Int(int64(c.WindowMin)).
		Int(int64(c.WindowShrink)).
		Float(c.HopRatio).
		Sum()
}

func (e *Engine) computePath(ctx context.Context, a, b *avgraph.Object) ([]Pair, error) {
	features := make([][][]float64, 2)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, obj := range []*avgraph.Object{a, b} {
		g.Go(func() error {
			f, err := e.features(gctx, obj)
			if err != nil {
				return err
			}
			features[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(features[0]) < 2 || len(features[1]) < 2 {
		return nil, services.Wrap(services.ErrSyncPrecondition, "avsync", "features",
			"recording audio is too short to align", nil)
	}

	e.logger.Debug("correlating",
		logging.Int("frames_a", len(features[0])),
		logging.Int("frames_b", len(features[1])),
	)
	return WindowedPath(features[0], features[1], WindowOptions{
		Window:       e.cfg.Window,
		WindowMin:    e.cfg.WindowMin,
		WindowShrink: e.cfg.WindowShrink,
		HopRatio:     e.cfg.HopRatio,
	}), nil
}

func (e *Engine) features(ctx context.Context, obj *avgraph.Object) ([][]float64, error) {
	mono, err := obj.MonoAudio()
	if err != nil {
		return nil, err
	}
	pcm, err := mono.ExportedAudio("s16le", e.cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	path, err := e.renderer.Render(ctx, pcm)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pcm: %w", err)
	}
	defer f.Close()
	signal, err := ReadPCM(f)
	if err != nil {
		return nil, err
	}
	return MFCC(signal, MFCCOptions{
		SampleRate:   e.cfg.SampleRate,
		FFTSize:      e.cfg.FFTSize,
		HopLength:    e.cfg.HopLength,
		MelBands:     e.cfg.MelBands,
		Coefficients: e.cfg.Coefficients,
	})
}
