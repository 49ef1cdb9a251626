package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"talkvid/internal/fileutil"
	"talkvid/internal/logging"
	"talkvid/internal/services"
	"talkvid/internal/talk"
)

type manifestOverrides struct {
	output   string
	preview  bool
	avOffset float64
	screen   float64
	fps      int
}

func bindManifestOverrides(cmd *cobra.Command) *manifestOverrides {
	o := &manifestOverrides{}
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Write the finished video here instead of the manifest's output")
	cmd.Flags().BoolVar(&o.preview, "preview", false, "Only process the first 20 seconds of the recordings")
	cmd.Flags().Float64Var(&o.avOffset, "av-offset", 0, "Audio/video offset correction for the speaker video in seconds")
	cmd.Flags().Float64Var(&o.screen, "screen-offset", 0, "Seconds the talk starts later in the speaker video than in the screen grab; skips audio synchronization")
	cmd.Flags().IntVar(&o.fps, "fps", 0, "Output frame rate (defaults to the manifest, then the config)")
	return o
}

func (o *manifestOverrides) load(cmd *cobra.Command, path string, defaultFPS int) (*talk.Manifest, error) {
	m, err := talk.LoadManifest(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("preview") {
		m.Preview = o.preview
	}
	if cmd.Flags().Changed("av-offset") {
		m.AVOffset = o.avOffset
	}
	if cmd.Flags().Changed("screen-offset") {
		offset := o.screen
		m.ScreenOffset = &offset
	}
	if o.fps > 0 {
		m.FPS = o.fps
	}
	m.ApplyDefaults(defaultFPS)
	return m, m.Validate()
}

func newMakeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "make MANIFEST",
		Short: "Compose, render and publish a talk video",
		Args:  cobra.ExactArgs(1),
	}
	overrides := bindManifestOverrides(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := ctx.ensureServices(); err != nil {
			return err
		}
		runCtx := ctx.runContext(cmd)
		m, err := overrides.load(cmd, args[0], ctx.config.Render.FPS)
		if err != nil {
			return err
		}

		started := time.Now()
		obj, err := talk.Build(runCtx, ctx.talkEnv(), m)
		if err != nil {
			return err
		}
		artifactPath, err := ctx.renderer.Render(services.WithStep(runCtx, "render"), obj)
		if err != nil {
			return err
		}

		target := m.Resolve(m.Output)
		if strings.TrimSpace(overrides.output) != "" {
			target = overrides.output
		}
		method, err := fileutil.Publish(artifactPath, target)
		if err != nil {
			return err
		}
		logging.WithContext(runCtx, ctx.logger).Info("talk published",
			logging.String("output", target),
			logging.String("method", string(method)),
			logging.String(logging.FieldArtifact, artifactPath),
			logging.Int64("cache_hits", ctx.store.Hits()),
			logging.Int64("cache_builds", ctx.store.Builds()),
			logging.Duration("elapsed", time.Since(started)),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", target)
		return nil
	}
	return cmd
}
