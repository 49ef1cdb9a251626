package avgraph

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"talkvid/internal/artifact"
)

// Arg is one key=value option of a filter.
type Arg struct {
	Key   string
	Value string
	// Opaque args (input file names) are rendered but left out of the key;
	// the filter's source key stands in for them.
	Opaque bool
}

// Filter is an immutable graph node: an ffmpeg filter applied to ordered
// input streams, producing ordered output streams.
type Filter struct {
	name    string
	args    []Arg
	inputs  []*Stream
	outputs []*Stream
	source  *artifact.Key
	key     artifact.Key
}

func newFilter(name string, args []Arg, inputs []*Stream, outputs []streamSpec, source *artifact.Key) *Filter {
	sorted := append([]Arg(nil), args...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	f := &Filter{
		name:   name,
		args:   sorted,
		inputs: append([]*Stream(nil), inputs...),
		source: source,
	}

	h := artifact.New("filter").String(name).Int(int64(len(sorted)))
	for _, arg := range sorted {
		h.String(arg.Key)
		if arg.Opaque {
			h.Bool(true)
			continue
		}
		h.String(arg.Value)
	}
	h.Int(int64(len(inputs)))
	for _, in := range inputs {
		h.Hash(in.Key())
	}
	h.Int(int64(len(outputs)))
	for _, out := range outputs {
		h.Hash(typeKey(out.kind))
	}
	if source != nil {
		h.Hash(*source)
	}
	f.key = h.Sum()

	f.outputs = make([]*Stream, len(outputs))
	for i, spec := range outputs {
		f.outputs[i] = &Stream{
			kind:     spec.kind,
			producer: f,
			index:    i,
			size:     spec.size,
			duration: spec.duration,
			fps:      spec.fps,
			alpha:    spec.alpha,
		}
	}
	return f
}

// apply is shorthand for a filter with one output.
func apply(name string, args []Arg, out streamSpec, inputs ...*Stream) *Stream {
	return newFilter(name, args, inputs, []streamSpec{out}, nil).outputs[0]
}

func (f *Filter) Name() string { return f.name }
func (f *Filter) Key() artifact.Key { return f.key }
func (f *Filter) Args() []Arg { return append([]Arg(nil), f.args...) }
func (f *Filter) Inputs() []*Stream { return append([]*Stream(nil), f.inputs...) }
func (f *Filter) Outputs() []*Stream { return append([]*Stream(nil), f.outputs...) }

func arg(key, value string) Arg { return Arg{Key: key, Value: value} }

func intArg(key string, value int) Arg { return Arg{Key: key, Value: strconv.Itoa(value)} }

func secondsArg(key string, value float64) Arg { return Arg{Key: key, Value: formatSeconds(value)} }

// formatSeconds renders a time with microsecond precision and no trailing zeros.
func formatSeconds(value float64) string {
	rounded := math.Round(value*1e6) / 1e6
	s := strconv.FormatFloat(rounded, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
