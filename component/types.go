package component

import (
	"fmt"
	"slices"
	"strings"

	"github.com/wildparky/pflow/errors"
)

// ValueType enumerates the value kinds a port may constrain itself to.
type ValueType int

const (
	// TypeAny accepts every value. A port with no types is also unconstrained.
	TypeAny ValueType = iota
	TypeInt
	TypeFloat
	TypeString
	TypeBool
	TypeBytes
)

var valueTypeNames = map[ValueType]string{
	TypeAny:    "any",
	TypeInt:    "int",
	TypeFloat:  "float",
	TypeString: "string",
	TypeBool:   "bool",
	TypeBytes:  "bytes",
}

// String returns the type name
func (t ValueType) String() string {
	if name, ok := valueTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ValueType(%d)", int(t))
}

// ParseValueType converts a type name back into a ValueType
func ParseValueType(name string) (ValueType, error) {
	for t, n := range valueTypeNames {
		if n == strings.ToLower(name) {
			return t, nil
		}
	}
	return TypeAny, errors.WrapInvalid(fmt.Errorf("unknown value type %q", name), "ValueType", "Parse", "lookup")
}

// TypeOf classifies a Go value. Values outside the enumeration report TypeAny.
func TypeOf(v any) ValueType {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInt
	case float32, float64:
		return TypeFloat
	case string:
		return TypeString
	case bool:
		return TypeBool
	case []byte:
		return TypeBytes
	default:
		return TypeAny
	}
}

func unconstrained(types []ValueType) bool {
	return len(types) == 0 || slices.Contains(types, TypeAny)
}

// TypesIntersect reports whether a connection between ports with the given
// constraints can ever carry a value.
func TypesIntersect(a, b []ValueType) bool {
	if unconstrained(a) || unconstrained(b) {
		return true
	}
	for _, t := range a {
		if slices.Contains(b, t) {
			return true
		}
	}
	return false
}

// Accepts reports whether v satisfies the constraint.
func Accepts(types []ValueType, v any) bool {
	if unconstrained(types) {
		return true
	}
	t := TypeOf(v)
	return t != TypeAny && slices.Contains(types, t)
}

func checkValue(types []ValueType, v any, port string) error {
	if Accepts(types, v) {
		return nil
	}
	return errors.WrapInvalid(
		fmt.Errorf("%w: %T not allowed on %s (allowed %v)", errors.ErrTypeMismatch, v, port, types),
		"Port", "Send", "type check")
}

func typeNames(types []ValueType) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}
