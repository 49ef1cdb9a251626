package template_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"talkvid/internal/artifact"
	"talkvid/internal/services"
	"talkvid/internal/template"
	"talkvid/internal/testsupport"
)

const slideSVG = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="1920" height="1080">
  <flowRoot id="title"><flowRegion><rect width="100" height="20"/></flowRegion><flowPara>Placeholder</flowPara></flowRoot>
  <text id="speaker" x="10" y="10"><tspan>Name</tspan><tspan>Extra</tspan></text>
  <rect id="logo" x="5" y="6" width="70" height="80" style="fill:red"/>
  <rect id="qrcode" x="0" y="0" width="10" height="10"/>
</svg>
`

func loadSlide(t *testing.T) (*template.Template, *artifact.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	path := filepath.Join(t.TempDir(), "slide.svg")
	if err := os.WriteFile(path, []byte(slideSVG), 0o644); err != nil {
		t.Fatalf("write svg: %v", err)
	}
	tpl, err := template.Load(store, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return tpl, store
}

func serialized(t *testing.T, tpl *template.Template) string {
	t.Helper()
	data, err := tpl.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	return string(data)
}

func TestWithTextReplacesFlowParaAndTspan(t *testing.T) {
	tpl, _ := loadSlide(t)

	titled, err := tpl.WithText("title", "Cafe\u0301 talk")
	if err != nil {
		t.Fatalf("WithText title: %v", err)
	}
	named, err := titled.WithText("speaker", "Ada")
	if err != nil {
		t.Fatalf("WithText speaker: %v", err)
	}

	out := serialized(t, named)
	if !strings.Contains(out, "<flowPara>Caf\u00e9 talk</flowPara>") {
		t.Fatalf("expected NFC-normalized title, got:\n%s", out)
	}
	if !strings.Contains(out, "<tspan>Ada</tspan>") || strings.Contains(out, "Extra") {
		t.Fatalf("expected single tspan with new text, got:\n%s", out)
	}
	if strings.Contains(serialized(t, tpl), "Ada") {
		t.Fatalf("original template was modified")
	}
}

func TestEditsChangeKeyDeterministically(t *testing.T) {
	tpl, _ := loadSlide(t)

	a, err := tpl.WithText("title", "Hello")
	if err != nil {
		t.Fatalf("WithText: %v", err)
	}
	b, err := tpl.WithText("title", "Hello")
	if err != nil {
		t.Fatalf("WithText: %v", err)
	}
	c, err := tpl.WithText("title", "Bye")
	if err != nil {
		t.Fatalf("WithText: %v", err)
	}
	if a.Key() != b.Key() {
		t.Fatalf("same edit produced different keys")
	}
	if a.Key() == c.Key() || a.Key() == tpl.Key() {
		t.Fatalf("different content shares a key")
	}
}

func TestMissingElement(t *testing.T) {
	tpl, _ := loadSlide(t)

	if _, err := tpl.WithText("nope", "x"); !errors.Is(err, services.ErrMissingElement) {
		t.Fatalf("WithText: expected missing element, got %v", err)
	}
	if _, err := tpl.Without("nope"); !errors.Is(err, services.ErrMissingElement) {
		t.Fatalf("Without: expected missing element, got %v", err)
	}
	if _, err := tpl.WithImage("nope", artifact.Ref{Path: "/tmp/x.png"}); !errors.Is(err, services.ErrMissingElement) {
		t.Fatalf("WithImage: expected missing element, got %v", err)
	}
}

func TestWithoutRemovesElement(t *testing.T) {
	tpl, _ := loadSlide(t)
	out, err := tpl.Without("qrcode")
	if err != nil {
		t.Fatalf("Without: %v", err)
	}
	if strings.Contains(serialized(t, out), `id="qrcode"`) {
		t.Fatalf("qrcode element still present")
	}
}

func TestWithImageKeepsBox(t *testing.T) {
	tpl, _ := loadSlide(t)
	out, err := tpl.WithImage("logo", artifact.Ref{Path: "/tmp/logo.png"})
	if err != nil {
		t.Fatalf("WithImage: %v", err)
	}
	text := serialized(t, out)
	for _, want := range []string{
		`<image id="logo" xlink:href="/tmp/logo.png" width="70" height="80" x="5" y="6" preserveAspectRatio="none"/>`,
		`xmlns:xlink="http://www.w3.org/1999/xlink"`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %s in:\n%s", want, text)
		}
	}
	if strings.Contains(text, "fill:red") {
		t.Fatalf("old attributes kept:\n%s", text)
	}
}

func TestResizedAndDimensions(t *testing.T) {
	tpl, _ := loadSlide(t)
	w, err := tpl.Width()
	if err != nil || w != 1920 {
		t.Fatalf("Width = %d, %v", w, err)
	}
	small := tpl.Resized(640, 360)
	h, err := small.Height()
	if err != nil || h != 360 {
		t.Fatalf("Height = %d, %v", h, err)
	}
	if h, _ := tpl.Height(); h != 1080 {
		t.Fatalf("original height changed to %d", h)
	}
}

func TestSameContentDifferentPathSameKey(t *testing.T) {
	tpl, store := loadSlide(t)
	other := filepath.Join(t.TempDir(), "copy.svg")
	if err := os.WriteFile(other, []byte(slideSVG), 0o644); err != nil {
		t.Fatalf("write svg: %v", err)
	}
	copyTpl, err := template.Load(store, other)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if copyTpl.Key() != tpl.Key() {
		t.Fatalf("identical content produced different keys")
	}
}
