package avgraph

import (
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Describe renders the compiled instruction list of obj as a table.
func Describe(obj *Object) (string, error) {
	script, err := Compile(obj)
	if err != nil {
		return "", err
	}
	// Pad names must read exactly as in the script, so no case folding.
	style := table.StyleRounded
	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault
	tw := table.NewWriter()
	tw.SetStyle(style)
	tw.AppendHeader(table.Row{"#", "Inputs", "Filter", "Options", "Outputs"})
	for i, in := range script.Instructions {
		opts := make([]string, 0, len(in.Args))
		for _, a := range in.Args {
			opts = append(opts, a.Key+"="+a.Value)
		}
		tw.AppendRow(table.Row{
			strconv.Itoa(i + 1),
			strings.Join(in.Inputs, " "),
			in.Op,
			strings.Join(opts, " "),
			strings.Join(in.Outputs, " "),
		})
	}
	terminals := make([]string, 0, len(script.Outputs))
	for _, out := range script.Outputs {
		terminals = append(terminals, out.Pad+" ("+out.Kind.String()+")")
	}
	tw.AppendFooter(table.Row{"", "", "", "outputs", strings.Join(terminals, " ")})
	return tw.Render(), nil
}
