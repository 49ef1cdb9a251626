package talk

import (
	"context"
	"log/slog"
	"math"

	"talkvid/internal/avgraph"
	"talkvid/internal/avsync"
	"talkvid/internal/logging"
	"talkvid/internal/qr"
	"talkvid/internal/services"
	"talkvid/internal/template"
)

// Element ids the template is expected to carry.
const (
	idSpeaker      = "txt-speaker"
	idTitle        = "txt-title"
	idEvent        = "txt-event"
	idDate         = "txt-date"
	idURL          = "txt-url"
	idQRCode       = "qrcode"
	idOverlay      = "slide-overlay"
	idLast         = "slide-last"
	idBlank        = "slide-blank"
	idScreenVideo  = "vid-screen"
	idSpeakerVideo = "vid-speaker"
)

const (
	previewSeconds   = 20
	slideSeconds     = 7
	fadeSeconds      = 0.5
	qrPixelsPerPoint = 2
)

// Env bundles the services a build needs.
type Env struct {
	Graph    avgraph.Env
	Inkscape *template.Renderer
	Sync     *avsync.Engine
	Logger   *slog.Logger
}

// Build assembles the talk video described by m: the speaker recording
// (optionally beside a synchronized screen grab) under the template's logo
// page and intro overlay, followed by a closing slide with a QR code of the
// talk URL, all on the template's blank slide. Nothing is rendered; the
// caller renders the returned Object.
func Build(ctx context.Context, env Env, m *Manifest) (*avgraph.Object, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	ctx = services.WithStep(ctx, "compose")
	logger := logging.WithContext(ctx, logging.NewComponentLogger(env.Logger, "talk"))
	store := env.Graph.Store

	tpl, err := template.Load(store, m.Resolve(m.Template))
	if err != nil {
		return nil, err
	}
	tpl, err = withTexts(tpl, m)
	if err != nil {
		return nil, err
	}
	page, err := tpl.Without(idQRCode)
	if err != nil {
		return nil, err
	}
	page, err = page.Without(idOverlay)
	if err != nil {
		return nil, err
	}

	last, err := closingSlide(ctx, env, tpl, page, m)
	if err != nil {
		return nil, err
	}

	speaker, err := openVideos(ctx, env.Graph, m.Resolve(m.SpeakerVideo), DefaultSpeakerPattern)
	if err != nil {
		return nil, err
	}
	if speaker, err = withAVOffset(speaker, m.AVOffset); err != nil {
		return nil, err
	}
	if m.Preview {
		if speaker, err = speaker.Trimmed(0, previewSeconds); err != nil {
			return nil, err
		}
	}

	var main *avgraph.Object
	if m.ScreenVideo != "" {
		main, err = screenLayout(ctx, env, page, speaker, m)
	} else {
		main, err = speakerLayout(ctx, env, page, speaker, m)
	}
	if err != nil {
		return nil, err
	}

	overlay, err := env.Inkscape.ExportedSlide(ctx, env.Graph, tpl, idOverlay, slideSeconds, m.FPS)
	if err != nil {
		return nil, err
	}
	if overlay, err = env.Inkscape.ResizedByTemplate(ctx, overlay, tpl, idOverlay); err != nil {
		return nil, err
	}
	if overlay, err = overlay.FadedOut(fadeSeconds); err != nil {
		return nil, err
	}
	if main, err = avgraph.Overlay(avgraph.OverlayOptions{}, main, overlay); err != nil {
		return nil, err
	}
	if main, err = main.FadedOut(fadeSeconds); err != nil {
		return nil, err
	}

	result, err := avgraph.Concat(main, last)
	if err != nil {
		return nil, err
	}
	total, err := result.Duration()
	if err != nil {
		return nil, err
	}
	blank, err := env.Inkscape.ExportedSlide(ctx, env.Graph, page, idBlank, total, m.FPS)
	if err != nil {
		return nil, err
	}
	if blank, err = env.Inkscape.ResizedByTemplate(ctx, blank, page, idBlank); err != nil {
		return nil, err
	}
	result, err = avgraph.Overlay(avgraph.OverlayOptions{}, blank, result)
	if err != nil {
		return nil, err
	}

	logger.Info("talk composed",
		logging.String("title", m.Title),
		logging.Float64("duration_seconds", total),
		logging.Bool("screen_grab", m.ScreenVideo != ""),
		logging.Bool("preview", m.Preview),
	)
	return result, nil
}

func withTexts(tpl *template.Template, m *Manifest) (*template.Template, error) {
	texts := []struct{ id, text string }{
		{idSpeaker, m.SpeakerText()},
		{idTitle, m.Title},
		{idEvent, m.Event},
		{idDate, m.Date},
		{idURL, m.URL},
	}
	var err error
	for _, t := range texts {
		if tpl, err = tpl.WithText(t.id, t.text); err != nil {
			return nil, err
		}
	}
	return tpl, nil
}

// closingSlide is the last slide with a QR code of the talk URL drawn into
// the qrcode placeholder, faded in.
func closingSlide(ctx context.Context, env Env, tpl, page *template.Template, m *Manifest) (*avgraph.Object, error) {
	last, err := env.Inkscape.ExportedSlide(ctx, env.Graph, page, idLast, slideSeconds, m.FPS)
	if err != nil {
		return nil, err
	}
	if last, err = env.Inkscape.ResizedByTemplate(ctx, last, page, idLast); err != nil {
		return nil, err
	}

	box, err := env.Inkscape.Geometry(ctx, tpl, idQRCode)
	if err != nil {
		return nil, err
	}
	code, err := qr.TextQR(ctx, env.Graph.Store, m.URL, qrPixelsPerPoint*max(box.W, box.H))
	if err != nil {
		return nil, err
	}
	duration, err := last.Duration()
	if err != nil {
		return nil, err
	}
	qrVideo, err := avgraph.Image(ctx, env.Graph, code.Path, duration, m.FPS)
	if err != nil {
		return nil, err
	}
	if qrVideo, err = env.Inkscape.ResizedByTemplate(ctx, qrVideo, tpl, idQRCode); err != nil {
		return nil, err
	}

	last, err = avgraph.Overlay(avgraph.OverlayOptions{}, last, qrVideo)
	if err != nil {
		return nil, err
	}
	return last.FadedIn(fadeSeconds)
}

// speakerLayout scales the speaker recording to the page and puts the logo
// page on top of it.
func speakerLayout(ctx context.Context, env Env, page *template.Template, speaker *avgraph.Object, m *Manifest) (*avgraph.Object, error) {
	width, err := page.Width()
	if err != nil {
		return nil, err
	}
	height, err := page.Height()
	if err != nil {
		return nil, err
	}
	if speaker, err = speaker.ResizedBy(width, height); err != nil {
		return nil, err
	}
	if speaker, err = speaker.WithFPS(m.FPS); err != nil {
		return nil, err
	}
	duration, err := speaker.Duration()
	if err != nil {
		return nil, err
	}
	logo, err := env.Inkscape.ExportedSlide(ctx, env.Graph, page, "", duration, m.FPS)
	if err != nil {
		return nil, err
	}
	if logo, err = logo.ResizedBy(width, height); err != nil {
		return nil, err
	}
	return avgraph.Overlay(avgraph.OverlayOptions{}, speaker, logo)
}

// screenLayout synchronizes the screen grab with the speaker recording and
// places both into their template boxes on the page. The speaker's
// microphone provides the sound. A manifest screen_offset skips the audio
// alignment.
func screenLayout(ctx context.Context, env Env, page *template.Template, speaker *avgraph.Object, m *Manifest) (*avgraph.Object, error) {
	if env.Sync == nil && m.ScreenOffset == nil {
		return nil, services.Wrap(services.ErrConfiguration, "talk", "screen layout", "no sync engine configured", nil)
	}
	screen, err := openVideos(ctx, env.Graph, m.Resolve(m.ScreenVideo), DefaultScreenPattern)
	if err != nil {
		return nil, err
	}
	if m.Preview {
		if screen, err = screen.Trimmed(0, previewSeconds); err != nil {
			return nil, err
		}
	}
	if m.ScreenOffset != nil {
		fade := avsync.DefaultFadeIn
		if env.Sync != nil {
			fade = env.Sync.FadeIn()
		}
		screen, speaker, err = avsync.Shifted(screen, speaker, *m.ScreenOffset, fade)
	} else {
		screen, speaker, _, err = env.Sync.Synchronized(ctx, screen, speaker)
	}
	if err != nil {
		return nil, err
	}

	if screen, err = screen.WithFPS(m.FPS); err != nil {
		return nil, err
	}
	if screen, err = env.Inkscape.ResizedByTemplate(ctx, screen.VideoOnly(), page, idScreenVideo); err != nil {
		return nil, err
	}
	if speaker, err = speaker.WithFPS(m.FPS); err != nil {
		return nil, err
	}
	if speaker, err = env.Inkscape.ResizedByTemplate(ctx, speaker, page, idSpeakerVideo); err != nil {
		return nil, err
	}

	background, err := page.Without(idScreenVideo)
	if err != nil {
		return nil, err
	}
	if background, err = background.Without(idSpeakerVideo); err != nil {
		return nil, err
	}
	screenLength, err := screen.Duration()
	if err != nil {
		return nil, err
	}
	speakerLength, err := speaker.Duration()
	if err != nil {
		return nil, err
	}
	pageVideo, err := env.Inkscape.ExportedSlide(ctx, env.Graph, background, "", math.Max(screenLength, speakerLength), m.FPS)
	if err != nil {
		return nil, err
	}
	width, err := page.Width()
	if err != nil {
		return nil, err
	}
	height, err := page.Height()
	if err != nil {
		return nil, err
	}
	if pageVideo, err = pageVideo.ResizedBy(width, height); err != nil {
		return nil, err
	}
	return avgraph.Overlay(avgraph.OverlayOptions{}, pageVideo, screen, speaker)
}

// openVideos concatenates every file matching pattern in name order.
func openVideos(ctx context.Context, env avgraph.Env, pattern, fallback string) (*avgraph.Object, error) {
	files, err := ExpandGlob(pattern, fallback)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "talk", "open videos", "", err)
	}
	parts := make([]*avgraph.Object, 0, len(files))
	for _, file := range files {
		obj, err := avgraph.Input(ctx, env, file)
		if err != nil {
			return nil, err
		}
		parts = append(parts, obj)
	}
	return avgraph.Concat(parts...)
}

// withAVOffset shifts the audio against the video by offset seconds; a
// positive offset delays the audio. The video length is preserved.
func withAVOffset(obj *avgraph.Object, offset float64) (*avgraph.Object, error) {
	if offset == 0 || !obj.HasAudio() || !obj.HasVideo() {
		return obj, nil
	}
	duration, err := obj.Duration()
	if err != nil {
		return nil, err
	}
	var audio *avgraph.Object
	if offset > 0 {
		if audio, err = obj.AudioOnly().Delayed(offset); err != nil {
			return nil, err
		}
		if audio, err = audio.Trimmed(0, duration); err != nil {
			return nil, err
		}
	} else if audio, err = obj.AudioOnly().Trimmed(-offset, 0); err != nil {
		return nil, err
	}
	return obj.WithAudioFrom(audio), nil
}
