package processor

import (
	"io"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/output"
)

// LogTap is a graph that passes IN through to OUT while printing every value
// to a console writer:
//
//	IN -> TAP (Split) -> OUT[0] -> OUT
//	                  -> OUT[1] -> LOG (ConsoleLineWriter)
type LogTap struct {
	*component.Graph
	w      io.Writer
	prefix string
}

// NewLogTap creates a LogTap printing to w
func NewLogTap(name string, w io.Writer) *LogTap {
	return &LogTap{Graph: component.NewGraph(name), w: w}
}

// WithPrefix sets a prefix printed before every tapped value
func (t *LogTap) WithPrefix(prefix string) *LogTap {
	t.prefix = prefix
	return t
}

// Initialize declares IN and OUT and wires the inner components
func (t *LogTap) Initialize() error {
	in := t.DeclareInput("IN")
	out := t.DeclareOutput("OUT")

	tap := NewSplit("TAP")
	log := output.NewConsoleLineWriter("LOG", t.w).WithPrefix(t.prefix)
	if err := t.Add(tap, log); err != nil {
		return err
	}

	if err := t.Connect(in, tap.In("IN")); err != nil {
		return err
	}
	if err := t.Connect(tap.Out("OUT[0]"), out); err != nil {
		return err
	}
	return t.Connect(tap.Out("OUT[1]"), log.In("IN"))
}
