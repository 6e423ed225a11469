package kvschema

import (
	"fmt"
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

// Encode converts v into the wire text described by d.
//
// JSON documents and object hash fields are marshaled as JSON; a value that
// cannot be marshaled yields a *SerializationError. Everything else uses its
// natural text form.
func Encode(v any, d Descriptor) (string, error) {
	if d.core().usesJSON() {
		raw, err := json.Marshal(v)
		if err != nil {
			return "", &SerializationError{Value: v, Err: err}
		}
		return string(raw), nil
	}
	return scalarText(v)
}

func scalarText(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.FormatInt(int64(v), 10), nil
	case int8:
		return strconv.FormatInt(int64(v), 10), nil
	case int16:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float32:
		return formatNumber(float64(v)), nil
	case float64:
		return formatNumber(v), nil
	case nil:
		return "", &SerializationError{Value: v, Err: fmt.Errorf("nil value")}
	case fmt.Stringer:
		return v.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == math.Trunc(f) && math.Abs(f) < 1e21:
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

// Decode converts wire text back into a value described by d. The only error
// it returns is a *DecodeError, for malformed JSON or a document rejected by a
// validator. Absent keys never reach Decode.
//
// Numbers that fail to parse are returned as the original string.
func Decode(raw string, d Descriptor) (any, error) {
	dd := d.core()
	if dd.usesJSON() {
		v, err := dd.decodeDoc([]byte(raw))
		if err != nil {
			return nil, &DecodeError{Raw: raw, Err: err}
		}
		if dd.check != nil && !dd.check(v) {
			return nil, &DecodeError{Raw: raw, Err: ErrValidation}
		}
		return v, nil
	}
	switch dd.runtime {
	case RuntimeNumber:
		f, err := parseNumber(raw)
		if err != nil {
			return raw, nil
		}
		return f, nil
	case RuntimeBoolean:
		return raw == "true", nil
	default:
		return raw, nil
	}
}

func parseNumber(raw string) (float64, error) {
	switch raw {
	case "Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(raw, 64)
}

// decodeAs is Decode followed by a conversion to T. A decoded value of another
// Go type (an unparsable number, say) is reported as a DecodeError.
func decodeAs[T any](raw string, d Descriptor) (T, error) {
	var zero T
	v, err := Decode(raw, d)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, &DecodeError{Raw: raw, Err: fmt.Errorf("decoded %T, wanted %T", v, zero)}
	}
	return t, nil
}
