package hummingbird

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Props is the untyped props object handed to InitFunc initializers.
type Props map[string]any

var emptyProps = json.RawMessage(`{}`)

// ParseProps decodes a props marker value. An absent or empty marker yields
// an empty Props; anything that is not a JSON object is a *PropsError.
func ParseProps(raw string, present bool) (Props, error) {
	if !present || raw == "" {
		return Props{}, nil
	}
	return decodeProps(json.RawMessage(raw))
}

func decodeProps(raw json.RawMessage) (Props, error) {
	var p Props
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &PropsError{Raw: string(raw), Err: err}
	}
	if p == nil {
		p = Props{}
	}
	return p, nil
}

// checkProps reports whether raw holds exactly one JSON object (or null).
func checkProps(raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if !json.Valid(trimmed) {
		var v any
		err := json.Unmarshal(trimmed, &v)
		if err == nil {
			err = errors.New("invalid JSON")
		}
		return &PropsError{Raw: string(raw), Err: err}
	}
	if len(trimmed) > 0 && trimmed[0] != '{' && !bytes.Equal(trimmed, []byte("null")) {
		return &PropsError{Raw: string(raw), Err: errors.New("props must be a JSON object")}
	}
	return nil
}

// Int returns the named prop as an int. JSON numbers decode as float64, so
// this saves initializers the conversion.
func (p Props) Int(key string, def int) int {
	switch v := p[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return def
}

// String returns the named prop as a string.
func (p Props) String(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

// Bool returns the named prop as a bool.
func (p Props) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}
