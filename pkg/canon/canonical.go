package canon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// EncodingError is returned when a value cannot be rendered into canonical
// form: a cycle, a non-finite float, or anything else encoding/json itself
// refuses to marshal.
type EncodingError struct {
	Cause error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("canon: value is not representable: %v", e.Cause)
}

func (e *EncodingError) Unwrap() error {
	return e.Cause
}

// CanonicalBytes renders v into Atlas's canonical byte form: object keys
// sorted lexicographically, no insignificant whitespace, numbers and
// strings in their standard JSON form. v is first marshaled with the
// standard encoding/json so struct tags, omitempty, and MarshalJSON
// implementations are honored exactly as they would be anywhere else in
// Atlas; the result is then decoded into a generic tree and re-emitted
// with deterministic key order.
func CanonicalBytes(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, &EncodingError{Cause: err}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, &EncodingError{Cause: err}
	}

	var buf bytes.Buffer
	if err := encodeCanonical(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		buf.WriteString(val.String())
	case string:
		quoted, err := json.Marshal(val)
		if err != nil {
			return &EncodingError{Cause: err}
		}
		buf.Write(quoted)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeCanonical(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyBytes, err := json.Marshal(k)
			if err != nil {
				return &EncodingError{Cause: err}
			}
			buf.Write(keyBytes)
			buf.WriteByte(':')
			if err := encodeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return &EncodingError{Cause: fmt.Errorf("unhandled canonical type %T", v)}
	}
	return nil
}
