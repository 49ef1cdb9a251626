package avgraph

import (
	"fmt"
	"strconv"
	"strings"
)

// Instruction is one filter invocation in a compiled script.
type Instruction struct {
	Inputs  []string
	Op      string
	Args    []Arg
	Outputs []string
}

func (in Instruction) String() string {
	var b strings.Builder
	for _, pad := range in.Inputs {
		b.WriteString("[" + pad + "]")
	}
	b.WriteString(in.Op)
	for i, a := range in.Args {
		if i == 0 {
			b.WriteByte('=')
		} else {
			b.WriteByte(':')
		}
		b.WriteString(a.Key)
		b.WriteByte('=')
		b.WriteString(Escape(a.Value))
	}
	for _, pad := range in.Outputs {
		b.WriteString("[" + pad + "]")
	}
	return b.String()
}

// Output is a terminal pad of a script, in the object's declared order.
type Output struct {
	Pad  string
	Kind Kind
}

// Script is a compiled filter graph.
type Script struct {
	Instructions []Instruction
	Outputs      []Output
}

// String renders the script in ffmpeg filter graph syntax, one instruction
// per line.
func (s *Script) String() string {
	lines := make([]string, len(s.Instructions))
	for i, in := range s.Instructions {
		lines[i] = in.String()
	}
	return strings.Join(lines, ";\n") + "\n"
}

type compiler struct {
	uses    map[*Stream]int
	pads    map[*Stream][]string
	emitted map[*Filter]bool
	next    int
	script  Script
}

// Compile walks the graph behind obj depth-first in post-order, starting
// from the object's streams in declared order and visiting inputs in order,
// so the same graph always compiles to the same text. Streams consumed more
// than once are duplicated with split/asplit; outputs nobody consumes are
// sent to nullsink/anullsink.
func Compile(obj *Object) (*Script, error) {
	if obj == nil || len(obj.streams) == 0 {
		return nil, graphErr(EmptyInputSet, "compile", "object has no streams")
	}
	c := &compiler{
		uses:    map[*Stream]int{},
		pads:    map[*Stream][]string{},
		emitted: map[*Filter]bool{},
	}

	counted := map[*Filter]bool{}
	for _, s := range obj.streams {
		c.uses[s]++
		c.count(s.producer, counted)
	}
	for _, s := range obj.streams {
		if err := c.emit(s.producer); err != nil {
			return nil, err
		}
	}
	for _, s := range obj.streams {
		pad, err := c.take(s)
		if err != nil {
			return nil, err
		}
		c.script.Outputs = append(c.script.Outputs, Output{Pad: pad, Kind: s.kind})
	}
	return &c.script, nil
}

// count records how many times each stream is consumed by filters.
func (c *compiler) count(f *Filter, seen map[*Filter]bool) {
	if seen[f] {
		return
	}
	seen[f] = true
	for _, in := range f.inputs {
		c.uses[in]++
		c.count(in.producer, seen)
	}
}

func (c *compiler) pad() string {
	name := "s" + strconv.Itoa(c.next)
	c.next++
	return name
}

func (c *compiler) emit(f *Filter) error {
	if c.emitted[f] {
		return nil
	}
	c.emitted[f] = true
	for _, in := range f.inputs {
		if err := c.emit(in.producer); err != nil {
			return err
		}
	}

	inputs := make([]string, 0, len(f.inputs))
	for _, in := range f.inputs {
		pad, err := c.take(in)
		if err != nil {
			return err
		}
		inputs = append(inputs, pad)
	}
	outputs := make([]string, len(f.outputs))
	for i := range f.outputs {
		outputs[i] = c.pad()
	}
	c.script.Instructions = append(c.script.Instructions, Instruction{
		Inputs:  inputs,
		Op:      f.name,
		Args:    f.args,
		Outputs: outputs,
	})

	for i, out := range f.outputs {
		if err := c.route(out, outputs[i]); err != nil {
			return err
		}
	}
	return nil
}

// route makes pad available to every consumer of s.
func (c *compiler) route(s *Stream, pad string) error {
	n := c.uses[s]
	switch {
	case n == 0:
		sink, err := sinkFor(s.kind)
		if err != nil {
			return err
		}
		c.script.Instructions = append(c.script.Instructions, Instruction{Inputs: []string{pad}, Op: sink})
	case n == 1:
		c.pads[s] = []string{pad}
	default:
		split, err := splitFor(s.kind)
		if err != nil {
			return err
		}
		copies := make([]string, n)
		for i := range copies {
			copies[i] = c.pad()
		}
		c.script.Instructions = append(c.script.Instructions, Instruction{
			Inputs:  []string{pad},
			Op:      split,
			Args:    []Arg{intArg("outputs", n)},
			Outputs: copies,
		})
		c.pads[s] = copies
	}
	return nil
}

func (c *compiler) take(s *Stream) (string, error) {
	queue := c.pads[s]
	if len(queue) == 0 {
		return "", fmt.Errorf("avgraph: compile: no pad left for %s stream %d of %s", s.kind, s.index, s.producer.name)
	}
	c.pads[s] = queue[1:]
	return queue[0], nil
}

func splitFor(kind Kind) (string, error) {
	switch kind {
	case Video:
		return "split", nil
	case Audio:
		return "asplit", nil
	default:
		return "", graphErr(TypeMismatch, "compile", "cannot split %v stream", kind)
	}
}

func sinkFor(kind Kind) (string, error) {
	switch kind {
	case Video:
		return "nullsink", nil
	case Audio:
		return "anullsink", nil
	default:
		return "", graphErr(TypeMismatch, "compile", "cannot sink %v stream", kind)
	}
}
