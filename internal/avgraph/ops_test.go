package avgraph_test

import (
	"errors"
	"math"
	"testing"

	"talkvid/internal/avgraph"
	"talkvid/internal/services"
)

var hd = avgraph.Size{W: 1280, H: 720}

func mustBlank(t *testing.T, duration float64) *avgraph.Object {
	t.Helper()
	obj, err := avgraph.Blank(duration, hd, 25)
	if err != nil {
		t.Fatalf("Blank: %v", err)
	}
	return obj
}

func mustDuration(t *testing.T, obj *avgraph.Object) float64 {
	t.Helper()
	d, err := obj.Duration()
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	return d
}

func TestConcatSumsDurations(t *testing.T) {
	joined, err := avgraph.Concat(mustBlank(t, 6), mustBlank(t, 7))
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if d := mustDuration(t, joined); d != 13 {
		t.Fatalf("expected 13s, got %v", d)
	}
	if n := len(joined.VideoStreams()); n != 1 {
		t.Fatalf("expected exactly one video stream, got %d", n)
	}
	if n := len(joined.AudioStreams()); n != 1 {
		t.Fatalf("expected one audio stream, got %d", n)
	}
}

func TestConcatPadsMissingAudio(t *testing.T) {
	silent := mustBlank(t, 3).VideoOnly()
	joined, err := avgraph.Concat(silent, mustBlank(t, 4))
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	audio := joined.AudioStreams()
	if len(audio) != 1 {
		t.Fatalf("expected padded audio, got %d streams", len(audio))
	}
	if d, ok := audio[0].Duration(); !ok || d != 7 {
		t.Fatalf("unexpected audio duration %v %v", d, ok)
	}
	concat := audio[0].Producer()
	if concat.Name() != "concat" || len(concat.Inputs()) != 4 {
		t.Fatalf("expected concat with 4 inputs, got %s with %d", concat.Name(), len(concat.Inputs()))
	}
}

func TestConcatTypeMismatch(t *testing.T) {
	quiet, err := avgraph.Silence(2)
	if err != nil {
		t.Fatalf("Silence: %v", err)
	}
	_, err = avgraph.Concat(quiet, mustBlank(t, 1))
	if !avgraph.IsKind(err, avgraph.TypeMismatch) {
		t.Fatalf("expected type mismatch, got %v", err)
	}
	if !errors.Is(err, services.ErrGraphType) {
		t.Fatalf("graph errors should match ErrGraphType: %v", err)
	}

	small, _ := avgraph.Blank(1, avgraph.Size{W: 640, H: 360}, 25)
	if _, err := avgraph.Concat(mustBlank(t, 1), small); !avgraph.IsKind(err, avgraph.TypeMismatch) {
		t.Fatalf("expected size mismatch to be rejected, got %v", err)
	}
	if _, err := avgraph.Concat(); !avgraph.IsKind(err, avgraph.EmptyInputSet) {
		t.Fatalf("expected empty input set, got %v", err)
	}
}

func TestOverlayKeepsBottomGeometry(t *testing.T) {
	bottom := mustBlank(t, 10)
	top, err := mustBlank(t, 4).ResizedBy(320, 180)
	if err != nil {
		t.Fatalf("ResizedBy: %v", err)
	}
	stacked, err := avgraph.Overlay(avgraph.OverlayOptions{X: 10, Y: 20}, bottom, top)
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}
	if d := mustDuration(t, stacked); d != 10 {
		t.Fatalf("expected bottom duration, got %v", d)
	}
	size, err := stacked.Size()
	if err != nil || size != hd {
		t.Fatalf("expected bottom size, got %v %v", size, err)
	}
	audio := stacked.AudioStreams()
	if len(audio) != 1 || audio[0].Producer().Name() != "amix" {
		t.Fatalf("expected mixed audio, got %+v", audio)
	}
}

func TestOverlaySingleContributorPassesThrough(t *testing.T) {
	quiet, _ := avgraph.Silence(3)
	video := mustBlank(t, 3).VideoOnly()
	stacked, err := avgraph.Overlay(avgraph.OverlayOptions{}, video, quiet)
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}
	if stacked.Streams()[0] != video.Streams()[0] || stacked.Streams()[1] != quiet.Streams()[0] {
		t.Fatal("single contributors should pass through untouched")
	}
	if _, err := avgraph.Overlay(avgraph.OverlayOptions{}); !avgraph.IsKind(err, avgraph.EmptyInputSet) {
		t.Fatalf("expected empty input set, got %v", err)
	}
	if _, err := avgraph.Overlay(avgraph.OverlayOptions{}, avgraph.NewObject()); !avgraph.IsKind(err, avgraph.EmptyInputSet) {
		t.Fatalf("expected empty input set for streamless operands, got %v", err)
	}
}

func TestOverlayLoopCoversBottom(t *testing.T) {
	bottom := mustBlank(t, 10).VideoOnly()
	top := mustBlank(t, 3).VideoOnly()
	stacked, err := avgraph.Overlay(avgraph.OverlayOptions{Loop: true}, bottom, top)
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}
	overlay := stacked.Streams()[0].Producer()
	looped := overlay.Inputs()[1]
	if d, ok := looped.Duration(); !ok || d != 10 {
		t.Fatalf("expected looped layer to last 10s, got %v %v", d, ok)
	}
}

func TestAttributesUnavailableOnAudioOnly(t *testing.T) {
	quiet, _ := avgraph.Silence(2)
	if _, err := quiet.Duration(); !avgraph.IsKind(err, avgraph.AttributeUnavailable) {
		t.Fatalf("expected attribute unavailable, got %v", err)
	}
	if _, err := quiet.Size(); !avgraph.IsKind(err, avgraph.AttributeUnavailable) {
		t.Fatalf("expected attribute unavailable, got %v", err)
	}
	if _, err := quiet.ResizedBy(10, 10); !avgraph.IsKind(err, avgraph.TypeMismatch) {
		t.Fatalf("expected type mismatch for resizing audio, got %v", err)
	}
}

func TestResizePadAndFPS(t *testing.T) {
	obj, err := mustBlank(t, 2).ResizedBy(640, 360)
	if err != nil {
		t.Fatalf("ResizedBy: %v", err)
	}
	obj, err = obj.Padded(100, 50, 1280, 720)
	if err != nil {
		t.Fatalf("Padded: %v", err)
	}
	if size, _ := obj.Size(); size != hd {
		t.Fatalf("expected padded size %v, got %v", hd, size)
	}
	if _, err := obj.Padded(1000, 0, 1280, 720); !avgraph.IsKind(err, avgraph.InvalidArgument) {
		t.Fatalf("expected overflowing pad to fail, got %v", err)
	}
	obj, err = obj.WithFPS(30)
	if err != nil {
		t.Fatalf("WithFPS: %v", err)
	}
	if obj.FPS() != 30 {
		t.Fatalf("expected 30 fps, got %d", obj.FPS())
	}
}

func TestTrimFadeDelay(t *testing.T) {
	obj := mustBlank(t, 10)
	trimmed, err := obj.Trimmed(2, 5)
	if err != nil {
		t.Fatalf("Trimmed: %v", err)
	}
	if d := mustDuration(t, trimmed); math.Abs(d-3) > 1e-9 {
		t.Fatalf("expected 3s, got %v", d)
	}
	tail, err := obj.Trimmed(4, 0)
	if err != nil {
		t.Fatalf("Trimmed: %v", err)
	}
	if d := mustDuration(t, tail); d != 6 {
		t.Fatalf("expected 6s, got %v", d)
	}
	if _, err := obj.Trimmed(5, 2); !avgraph.IsKind(err, avgraph.InvalidArgument) {
		t.Fatalf("expected invalid range error, got %v", err)
	}

	faded, err := obj.FadedOut(0.5)
	if err != nil {
		t.Fatalf("FadedOut: %v", err)
	}
	fade := faded.Streams()[0].Producer()
	args := map[string]string{}
	for _, a := range fade.Args() {
		args[a.Key] = a.Value
	}
	if fade.Name() != "fade" || args["t"] != "out" || args["st"] != "9.5" || args["d"] != "0.5" {
		t.Fatalf("unexpected fade filter %s %v", fade.Name(), args)
	}

	delayed, err := obj.Delayed(2)
	if err != nil {
		t.Fatalf("Delayed: %v", err)
	}
	if d := mustDuration(t, delayed); d != 12 {
		t.Fatalf("expected 12s, got %v", d)
	}
}

func TestAudioHelpers(t *testing.T) {
	obj := mustBlank(t, 4)
	mono, err := obj.MonoAudio()
	if err != nil {
		t.Fatalf("MonoAudio: %v", err)
	}
	exported, err := mono.ExportedAudio("s16le", 22050)
	if err != nil {
		t.Fatalf("ExportedAudio: %v", err)
	}
	if exported.HasVideo() || !exported.HasAudio() {
		t.Fatal("exported audio should drop video")
	}
	if f := exported.Format(); f.Container != "s16le" || f.AudioCodec != "pcm_s16le" {
		t.Fatalf("unexpected format %+v", f)
	}
	if _, err := obj.VideoOnly().MonoAudio(); !avgraph.IsKind(err, avgraph.TypeMismatch) {
		t.Fatalf("expected type mismatch without audio, got %v", err)
	}

	other := mustBlank(t, 4)
	combined := obj.VideoOnly().WithAudioFrom(other)
	if combined.Streams()[1] != other.AudioStreams()[0] {
		t.Fatal("expected audio from the other object")
	}
}

func TestMutedDropsAudio(t *testing.T) {
	obj := mustBlank(t, 3)
	muted := obj.Muted()
	if muted.HasAudio() {
		t.Fatalf("muted object still has %d audio streams", len(muted.AudioStreams()))
	}
	if len(muted.Streams()) != 1 || muted.Streams()[0] != obj.VideoStreams()[0] {
		t.Fatal("muted object should keep the original video stream")
	}
	if muted.Key() != obj.VideoOnly().Key() {
		t.Fatal("Muted and VideoOnly should hash the same")
	}
	if !obj.HasAudio() {
		t.Fatal("Muted must not modify its receiver")
	}
}

func TestKeysAreDeterministic(t *testing.T) {
	build := func(d float64) *avgraph.Object {
		a, _ := avgraph.Blank(d, hd, 25)
		b, _ := avgraph.Blank(2, hd, 25)
		joined, _ := avgraph.Concat(a, b)
		out, _ := joined.FadedIn(0.5)
		return out
	}
	if build(3).Key() != build(3).Key() {
		t.Fatal("identical constructions must share a key")
	}
	if build(3).Key() == build(4).Key() {
		t.Fatal("different parameters must change the key")
	}
	obj := build(3)
	if obj.Key() == obj.WithFormat(avgraph.Format{Container: "mp4"}).Key() {
		t.Fatal("format must be part of the key")
	}
}
