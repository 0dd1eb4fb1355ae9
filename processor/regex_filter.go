package processor

import (
	"context"
	"fmt"
	"regexp"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/errors"
)

// RegexFilter forwards the strings from IN that contain a match of REGEX and
// drops the rest. REGEX is read once, before the first packet.
type RegexFilter struct {
	*component.Base
	in      *component.InputPort
	regexIn *component.InputPort
	out     *component.OutputPort
	re      *regexp.Regexp
}

// NewRegexFilter creates a RegexFilter component
func NewRegexFilter(name string) *RegexFilter {
	return &RegexFilter{Base: component.NewBase(name)}
}

// Initialize declares IN, REGEX and OUT
func (f *RegexFilter) Initialize() error {
	f.in = f.DeclareInput("IN", component.WithTypes(component.TypeString))
	f.regexIn = f.DeclareInput("REGEX", component.WithTypes(component.TypeString),
		component.WithDescription("Regular expression matched anywhere in each value"))
	f.out = f.DeclareOutput("OUT", component.WithTypes(component.TypeString))
	return nil
}

// Run filters one packet
func (f *RegexFilter) Run(ctx context.Context) error {
	if f.re == nil {
		if err := f.compile(ctx); err != nil {
			return err
		}
	}

	pkt, err := f.in.ReceivePacket(ctx)
	if err != nil {
		return err
	}
	v, err := pkt.Value()
	if err != nil {
		return err
	}

	s, ok := v.(string)
	if !ok {
		_ = f.Drop(pkt)
		return errors.WrapInvalid(fmt.Errorf("%w: IN must be a string, got %T", errors.ErrTypeMismatch, v),
			f.Path(), "Run", "read IN")
	}
	if f.re.MatchString(s) {
		f.Log().Debug("match", "value", s, "regex", f.re.String())
		return f.out.SendPacket(ctx, pkt)
	}
	f.Log().Debug("no match", "value", s, "regex", f.re.String())
	return f.Drop(pkt)
}

func (f *RegexFilter) compile(ctx context.Context) error {
	v, err := f.regexIn.Receive(ctx)
	if err != nil {
		return err
	}
	expr, ok := v.(string)
	if !ok {
		return errors.WrapInvalid(fmt.Errorf("%w: REGEX must be a string, got %T", errors.ErrTypeMismatch, v),
			f.Path(), "Run", "read REGEX")
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return errors.WrapInvalid(err, f.Path(), "Run", "compile REGEX")
	}
	f.re = re
	return nil
}
