package component

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wildparky/pflow/errors"
)

// ArrayInputPort is a fixed-size ordered group of input ports sharing a name.
// Members are named NAME[0] .. NAME[n-1] and are connected independently.
type ArrayInputPort struct {
	name    string
	owner   *Base
	ports   []*InputPort
	missing bool
}

// Name returns the array name
func (a *ArrayInputPort) Name() string { return a.name }

// Len returns the number of members
func (a *ArrayInputPort) Len() int { return len(a.ports) }

// Index returns member i
func (a *ArrayInputPort) Index(i int) (*InputPort, error) {
	if a.missing {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s.%s", errors.ErrUnknownPort, a.owner.Path(), a.name),
			"ArrayInputPort", "Index", "port lookup")
	}
	if i < 0 || i >= len(a.ports) {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s[%d] (size %d)", errors.ErrIndexOutOfRange, a.name, i, len(a.ports)),
			"ArrayInputPort", "Index", "bounds check")
	}
	return a.ports[i], nil
}

// Ports returns every member in index order, connected or not
func (a *ArrayInputPort) Ports() []*InputPort {
	return append([]*InputPort(nil), a.ports...)
}

// Connected returns the members that have an upstream, in index order
func (a *ArrayInputPort) Connected() []*InputPort {
	var connected []*InputPort
	for _, p := range a.ports {
		if p.IsConnected() {
			connected = append(connected, p)
		}
	}
	return connected
}

// ArrayOutputPort is a fixed-size ordered group of output ports sharing a name.
type ArrayOutputPort struct {
	name    string
	owner   *Base
	ports   []*OutputPort
	missing bool
}

// Name returns the array name
func (a *ArrayOutputPort) Name() string { return a.name }

// Len returns the number of members
func (a *ArrayOutputPort) Len() int { return len(a.ports) }

// Index returns member i
func (a *ArrayOutputPort) Index(i int) (*OutputPort, error) {
	if a.missing {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s.%s", errors.ErrUnknownPort, a.owner.Path(), a.name),
			"ArrayOutputPort", "Index", "port lookup")
	}
	if i < 0 || i >= len(a.ports) {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s[%d] (size %d)", errors.ErrIndexOutOfRange, a.name, i, len(a.ports)),
			"ArrayOutputPort", "Index", "bounds check")
	}
	return a.ports[i], nil
}

// Ports returns every member in index order, connected or not
func (a *ArrayOutputPort) Ports() []*OutputPort {
	return append([]*OutputPort(nil), a.ports...)
}

// Connected returns the members that have a downstream, in index order
func (a *ArrayOutputPort) Connected() []*OutputPort {
	var connected []*OutputPort
	for _, p := range a.ports {
		if p.IsConnected() {
			connected = append(connected, p)
		}
	}
	return connected
}

// ParsePortName splits "NAME" or "NAME[i]" into its name and index.
// The index is -1 for scalar references.
func ParsePortName(ref string) (string, int, error) {
	open := strings.IndexByte(ref, '[')
	if open < 0 {
		if ref == "" {
			return "", -1, errors.WrapInvalid(errors.ErrUnknownPort, "Port", "ParsePortName", "empty name")
		}
		return ref, -1, nil
	}
	if !strings.HasSuffix(ref, "]") || open == 0 {
		return "", -1, errors.WrapInvalid(
			fmt.Errorf("%w: malformed port reference %q", errors.ErrUnknownPort, ref),
			"Port", "ParsePortName", "syntax check")
	}
	idx, err := strconv.Atoi(ref[open+1 : len(ref)-1])
	if err != nil || idx < 0 {
		return "", -1, errors.WrapInvalid(
			fmt.Errorf("%w: bad index in %q", errors.ErrIndexOutOfRange, ref),
			"Port", "ParsePortName", "index parse")
	}
	return ref[:open], idx, nil
}
