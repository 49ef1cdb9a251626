package avsync

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// MFCCOptions describe the short-time analysis of a mono signal.
type MFCCOptions struct {
	SampleRate   int
	FFTSize      int
	HopLength    int
	MelBands     int
	Coefficients int
}

const (
	powerFloor = 1e-10
	topDB      = 80.0
)

// ReadPCM decodes little-endian signed 16-bit mono samples into [-1, 1).
func ReadPCM(r io.Reader) ([]float64, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pcm: %w", err)
	}
	samples := make([]float64, len(raw)/2)
	for i := range samples {
		samples[i] = float64(int16(binary.LittleEndian.Uint16(raw[2*i:]))) / 32768
	}
	return samples, nil
}

// MFCC returns one coefficient vector per hop. Frames are centered on
// multiples of the hop length with zero padding at both ends, weighted by a
// periodic Hann window, mapped onto a Slaney-style mel filterbank, converted
// to decibels clipped 80 dB below the peak and decorrelated with an
// orthonormal DCT-II.
func MFCC(signal []float64, opts MFCCOptions) ([][]float64, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if len(signal) == 0 {
		return nil, nil
	}

	nfft := opts.FFTSize
	frames := 1 + len(signal)/opts.HopLength
	padded := make([]float64, len(signal)+nfft)
	copy(padded[nfft/2:], signal)

	window := hannWindow(nfft)
	filters := melFilterbank(opts.SampleRate, nfft, opts.MelBands)
	fft := fourier.NewFFT(nfft)

	frame := make([]float64, nfft)
	power := make([]float64, nfft/2+1)
	var coeffs []complex128
	logMel := mat.NewDense(frames, opts.MelBands, nil)
	peak := math.Inf(-1)
	for f := 0; f < frames; f++ {
		start := f * opts.HopLength
		for i := range frame {
			frame[i] = padded[start+i] * window[i]
		}
		coeffs = fft.Coefficients(coeffs, frame)
		for k, c := range coeffs {
			power[k] = real(c)*real(c) + imag(c)*imag(c)
		}
		row := logMel.RawRowView(f)
		for m, weights := range filters {
			energy := 0.0
			for k, w := range weights {
				energy += w * power[k]
			}
			row[m] = 10 * math.Log10(math.Max(powerFloor, energy))
			peak = math.Max(peak, row[m])
		}
	}
	logMel.Apply(func(_, _ int, v float64) float64 {
		return math.Max(v, peak-topDB)
	}, logMel)

	var out mat.Dense
	out.Mul(logMel, dctMatrix(opts.Coefficients, opts.MelBands).T())

	features := make([][]float64, frames)
	for f := range features {
		features[f] = append([]float64(nil), out.RawRowView(f)...)
	}
	return features, nil
}

func (o MFCCOptions) validate() error {
	switch {
	case o.SampleRate <= 0, o.HopLength <= 0, o.MelBands <= 0, o.Coefficients <= 0:
		return fmt.Errorf("mfcc: parameters must be positive: %+v", o)
	case o.FFTSize < 2 || o.FFTSize&(o.FFTSize-1) != 0:
		return fmt.Errorf("mfcc: fft size %d is not a power of two", o.FFTSize)
	case o.Coefficients > o.MelBands:
		return fmt.Errorf("mfcc: %d coefficients exceed %d mel bands", o.Coefficients, o.MelBands)
	}
	return nil
}

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	melLinearStep = 200.0 / 3
	melLogHz      = 1000.0
	melLogMel     = melLogHz / melLinearStep
)

var melLogStep = math.Log(6.4) / 27

func hzToMel(hz float64) float64 {
	if hz < melLogHz {
		return hz / melLinearStep
	}
	return melLogMel + math.Log(hz/melLogHz)/melLogStep
}

func melToHz(mel float64) float64 {
	if mel < melLogMel {
		return mel * melLinearStep
	}
	return melLogHz * math.Exp(melLogStep*(mel-melLogMel))
}

// melFilterbank returns bands triangular filters over the nfft/2+1 FFT bins,
// area-normalized so every band has comparable energy.
func melFilterbank(rate, nfft, bands int) [][]float64 {
	bins := nfft/2 + 1
	fftFreqs := make([]float64, bins)
	for k := range fftFreqs {
		fftFreqs[k] = float64(k) * float64(rate) / float64(nfft)
	}
	maxMel := hzToMel(float64(rate) / 2)
	edges := make([]float64, bands+2)
	for i := range edges {
		edges[i] = melToHz(maxMel * float64(i) / float64(bands+1))
	}

	filters := make([][]float64, bands)
	for m := range filters {
		lower, center, upper := edges[m], edges[m+1], edges[m+2]
		norm := 2 / (upper - lower)
		weights := make([]float64, bins)
		for k, f := range fftFreqs {
			rising := (f - lower) / (center - lower)
			falling := (upper - f) / (upper - center)
			weights[k] = math.Max(0, math.Min(rising, falling)) * norm
		}
		filters[m] = weights
	}
	return filters
}

// dctMatrix is the first rows of the orthonormal DCT-II basis of size n.
func dctMatrix(rows, n int) *mat.Dense {
	d := mat.NewDense(rows, n, nil)
	for k := 0; k < rows; k++ {
		scale := math.Sqrt(2 / float64(n))
		if k == 0 {
			scale = math.Sqrt(1 / float64(n))
		}
		for i := 0; i < n; i++ {
			d.Set(k, i, scale*math.Cos(math.Pi*float64(k)*float64(2*i+1)/float64(2*n)))
		}
	}
	return d
}
