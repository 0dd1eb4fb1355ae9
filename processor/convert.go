package processor

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// toInt converts numeric values and numeric strings, truncating floats
func toInt(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int8:
		return int(t), nil
	case int16:
		return int(t), nil
	case int32:
		return int(t), nil
	case int64:
		return int(t), nil
	case uint:
		return int(t), nil
	case uint8:
		return int(t), nil
	case uint16:
		return int(t), nil
	case uint32:
		return int(t), nil
	case uint64:
		return int(t), nil
	case float32:
		return int(t), nil
	case float64:
		return int(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.Atoi(s); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to int", t)
		}
		return int(f), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
}

// toSeconds converts a number of seconds or a duration string to a duration
func toSeconds(v any) (time.Duration, error) {
	switch t := v.(type) {
	case time.Duration:
		return t, nil
	case float64:
		return secondsDuration(t)
	case float32:
		return secondsDuration(float64(t))
	case string:
		if d, err := time.ParseDuration(strings.TrimSpace(t)); err == nil {
			return d, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to a delay", t)
		}
		return secondsDuration(f)
	default:
		n, err := toInt(v)
		if err != nil {
			return 0, err
		}
		return secondsDuration(float64(n))
	}
}

func secondsDuration(s float64) (time.Duration, error) {
	if s < 0 || math.IsNaN(s) || s > math.MaxInt64/float64(time.Second) {
		return 0, fmt.Errorf("delay %v out of range", s)
	}
	return time.Duration(s * float64(time.Second)), nil
}
