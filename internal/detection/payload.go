package detection

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Result is the normalised reading of one payload.
type Result int

const (
	Clear Result = iota
	Detected
	Malformed
)

func (r Result) String() string {
	switch r {
	case Clear:
		return "clear"
	case Detected:
		return "detected"
	case Malformed:
		return "malformed"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// DefaultField is the node field that holds the detection value.
const DefaultField = "detection"

// ErrMalformed wraps every reason a payload could not be read.
var ErrMalformed = errors.New("detection: malformed payload")

// Parse reads a detection payload. Accepted shapes:
//
//	1                          bare value
//	{"status": 1}              status object
//	{"detection": 1}           node object, field holds a bare value
//	{"detection": {"status":1}} node object, field holds a status object
//
// Values are coerced weakly to a number: 0 is clear and any other number
// is detected, so "1", 2 and true all mean detected. Values that do not
// coerce to a number are Malformed. JSON null and a node object without
// the field read as Clear: the sensor simply has not reported.
//
// The returned error is non-nil only for Malformed.
func Parse(payload []byte, field string) (Result, error) {
	if field == "" {
		field = DefaultField
	}

	var raw any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Malformed, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return parseValue(raw, field, true)
}

func parseValue(raw any, field string, topLevel bool) (Result, error) {
	switch v := raw.(type) {
	case nil:
		return Clear, nil
	case map[string]any:
		if status, ok := v["status"]; ok {
			return coerce(status)
		}
		if topLevel {
			inner, ok := v[field]
			if !ok {
				return Clear, nil
			}
			return parseValue(inner, field, false)
		}
		return Malformed, fmt.Errorf("%w: object without status", ErrMalformed)
	default:
		return coerce(v)
	}
}

func coerce(v any) (Result, error) {
	var n float64
	if err := mapstructure.WeakDecode(v, &n); err != nil {
		return Malformed, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if n == 0 {
		return Clear, nil
	}
	return Detected, nil
}
