package avgraph_test

import (
	"strings"
	"testing"

	"talkvid/internal/avgraph"
)

func fanOutGraph(t *testing.T) *avgraph.Object {
	t.Helper()
	base := mustBlank(t, 5).VideoOnly()
	small, err := base.ResizedBy(320, 180)
	if err != nil {
		t.Fatalf("ResizedBy: %v", err)
	}
	faded, err := base.FadedIn(1)
	if err != nil {
		t.Fatalf("FadedIn: %v", err)
	}
	stacked, err := avgraph.Overlay(avgraph.OverlayOptions{}, base, faded, small)
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}
	return stacked
}

func TestCompileFanOutUsesSplit(t *testing.T) {
	script, err := avgraph.Compile(fanOutGraph(t))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	var splits int
	consumed := map[string]int{}
	produced := 0
	inputs := 0
	for _, in := range script.Instructions {
		if in.Op == "split" {
			splits++
			if len(in.Outputs) != 3 {
				t.Fatalf("expected a 3-way split, got %d outputs", len(in.Outputs))
			}
		}
		for _, pad := range in.Inputs {
			consumed[pad]++
			inputs++
		}
		produced += len(in.Outputs)
	}
	if splits != 1 {
		t.Fatalf("expected one split instruction, got %d\n%s", splits, script)
	}
	for pad, n := range consumed {
		if n > 1 {
			t.Fatalf("pad %s consumed %d times\n%s", pad, n, script)
		}
	}
	if produced != inputs+len(script.Outputs) {
		t.Fatalf("pad accounting: produced %d, consumed %d, terminal %d\n%s", produced, inputs, len(script.Outputs), script)
	}
}

func TestCompileSplitsTerminalReuse(t *testing.T) {
	base := mustBlank(t, 2).VideoOnly()
	faded, _ := base.FadedIn(1)
	obj := avgraph.NewObject(base.Streams()[0], faded.Streams()[0])
	script, err := avgraph.Compile(obj)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(script.String(), "split=outputs=2") {
		t.Fatalf("terminal use must count towards fan-out:\n%s", script)
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	first, err := avgraph.Compile(fanOutGraph(t))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	second, err := avgraph.Compile(fanOutGraph(t))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if first.String() != second.String() {
		t.Fatalf("compilation differs:\n%s\n---\n%s", first, second)
	}
	obj := fanOutGraph(t)
	a, _ := avgraph.Compile(obj)
	b, _ := avgraph.Compile(obj)
	if a.String() != b.String() {
		t.Fatal("compiling the same object twice must give identical text")
	}
}

func TestCompileSinksUnusedOutputs(t *testing.T) {
	joined, err := avgraph.Concat(mustBlank(t, 1), mustBlank(t, 2))
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	script, err := avgraph.Compile(joined.VideoOnly())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	text := script.String()
	if !strings.Contains(text, "anullsink") {
		t.Fatalf("expected unused concat audio to be sunk:\n%s", text)
	}
	if len(script.Outputs) != 1 || script.Outputs[0].Kind != avgraph.Video {
		t.Fatalf("unexpected outputs %+v", script.Outputs)
	}
}

func TestCompileRendersInstructions(t *testing.T) {
	obj, err := mustBlank(t, 2).VideoOnly().ResizedBy(320, 180)
	if err != nil {
		t.Fatalf("ResizedBy: %v", err)
	}
	script, err := avgraph.Compile(obj)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := "color=c=black:d=2:r=25:s=1280x720[s0];\n[s0]scale=h=180:w=320[s1]\n"
	if script.String() != want {
		t.Fatalf("unexpected script:\n%q\nwant\n%q", script.String(), want)
	}
	if script.Outputs[0].Pad != "s1" {
		t.Fatalf("unexpected terminal pad %q", script.Outputs[0].Pad)
	}
}

func TestCompileEmptyObject(t *testing.T) {
	if _, err := avgraph.Compile(avgraph.NewObject()); !avgraph.IsKind(err, avgraph.EmptyInputSet) {
		t.Fatalf("expected empty input set, got %v", err)
	}
}

func TestEscapeTable(t *testing.T) {
	cases := map[string]string{
		"plain":         "plain",
		"a:b":           `a\\\:b`,
		`back\slash`:    `back\\\\slash`,
		"it's":          `it\\\'s`,
		"[label]":       `\[label\]`,
		"one,two":       `one\,two`,
		"end;":          `end\;`,
		"/tmp/x y.png":  "/tmp/x y.png",
		"1280x720@0.5":  "1280x720@0.5",
	}
	for in, want := range cases {
		if got := avgraph.Escape(in); got != want {
			t.Fatalf("Escape(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDescribeListsInstructions(t *testing.T) {
	out, err := avgraph.Describe(fanOutGraph(t))
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	for _, want := range []string{"split", "overlay", "scale", "Filter", "outputs"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in description:\n%s", want, out)
		}
	}
	script, err := avgraph.Compile(fanOutGraph(t))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	for _, pad := range script.Outputs {
		if !strings.Contains(out, pad.Pad+" ("+pad.Kind.String()+")") {
			t.Fatalf("terminal pad %q not listed verbatim:\n%s", pad.Pad, out)
		}
	}
}
