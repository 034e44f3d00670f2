package core

import (
	"bytes"
	"encoding/json"
)

// MarshalQuery encodes v as compact JSON without HTML escaping, so heads
// such as "fk->" and ">" keep their list form in stored and printed queries.
func MarshalQuery(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// decodeNumbers unmarshals data keeping numbers as json.Number.
func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// numberValue turns a decoded json.Number into int when it is integral,
// else float64, matching what rule YAML decodes to.
func numberValue(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
