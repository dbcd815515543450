package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// decodeObject splits a JSON object into its raw members.
func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// takeMember decodes and removes key from members. Numbers decode as json.Number so they are
// written back verbatim.
func takeMember(members map[string]json.RawMessage, key string, v any) error {
	raw, ok := members[key]
	if !ok {
		return nil
	}
	delete(members, key)

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// encodeObject writes known and extra members as one object with sorted keys. Known members win
// over extra ones of the same name.
func encodeObject(known map[string]any, extra map[string]json.RawMessage) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(known)+len(extra))
	for k, v := range extra {
		out[k] = v
	}
	for k, v := range known {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		out[k] = b
	}
	return json.Marshal(out)
}
