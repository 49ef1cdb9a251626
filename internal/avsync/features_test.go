package avsync

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

var defaultMFCC = MFCCOptions{SampleRate: 22050, FFTSize: 2048, HopLength: 512, MelBands: 40, Coefficients: 10}

func TestReadPCM(t *testing.T) {
	var buf bytes.Buffer
	for _, v := range []int16{0, 16384, -32768, 32767} {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	buf.WriteByte(0x7f) // trailing odd byte is ignored

	samples, err := ReadPCM(&buf)
	if err != nil {
		t.Fatalf("ReadPCM: %v", err)
	}
	want := []float64{0, 0.5, -1, 32767.0 / 32768}
	if len(samples) != len(want) {
		t.Fatalf("got %d samples, want %d", len(samples), len(want))
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Fatalf("sample %d = %v, want %v", i, samples[i], want[i])
		}
	}
}

func TestMFCCShape(t *testing.T) {
	signal := make([]float64, 22050)
	for i := range signal {
		signal[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/22050)
	}
	features, err := MFCC(signal, defaultMFCC)
	if err != nil {
		t.Fatalf("MFCC: %v", err)
	}
	if len(features) != 1+22050/512 {
		t.Fatalf("frames = %d, want %d", len(features), 1+22050/512)
	}
	for _, frame := range features {
		if len(frame) != 10 {
			t.Fatalf("frame has %d coefficients", len(frame))
		}
		for _, v := range frame {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("non-finite coefficient %v", v)
			}
		}
	}
}

func TestMFCCOfSilenceIsFlat(t *testing.T) {
	features, err := MFCC(make([]float64, 4096), defaultMFCC)
	if err != nil {
		t.Fatalf("MFCC: %v", err)
	}
	// Every band sits at the -100 dB floor, so only the DC term survives.
	want := -100 * math.Sqrt(40)
	for f, frame := range features {
		if math.Abs(frame[0]-want) > 1e-6 {
			t.Fatalf("frame %d c0 = %v, want %v", f, frame[0], want)
		}
		for k := 1; k < len(frame); k++ {
			if math.Abs(frame[k]) > 1e-6 {
				t.Fatalf("frame %d c%d = %v, want 0", f, k, frame[k])
			}
		}
	}
}

func TestMFCCDistinguishesTones(t *testing.T) {
	tone := func(freq float64) []float64 {
		s := make([]float64, 8192)
		for i := range s {
			s[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/22050)
		}
		return s
	}
	low, err := MFCC(tone(300), defaultMFCC)
	if err != nil {
		t.Fatalf("MFCC: %v", err)
	}
	high, err := MFCC(tone(3000), defaultMFCC)
	if err != nil {
		t.Fatalf("MFCC: %v", err)
	}
	mid := len(low) / 2
	if distance(low[mid], high[mid]) < 10*distance(low[mid], low[mid+1]) {
		t.Fatalf("different tones are not separated: %v vs %v", distance(low[mid], high[mid]), distance(low[mid], low[mid+1]))
	}
}

func TestMFCCOptionsValidation(t *testing.T) {
	bad := []MFCCOptions{
		{SampleRate: 22050, FFTSize: 1000, HopLength: 512, MelBands: 40, Coefficients: 10},
		{SampleRate: 22050, FFTSize: 2048, HopLength: 0, MelBands: 40, Coefficients: 10},
		{SampleRate: 22050, FFTSize: 2048, HopLength: 512, MelBands: 8, Coefficients: 10},
	}
	for i, opts := range bad {
		if _, err := MFCC([]float64{0, 1}, opts); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
