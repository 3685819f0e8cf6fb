package fetch

import "encoding/json"

// JSON is a successful response body, kept as the raw text the server
// sent. An empty body decodes as an empty object.
type JSON struct {
	raw string
}

func NewJSON(raw string) JSON {
	return JSON{raw: raw}
}

func (j JSON) String() string {
	return j.raw
}

// Object decodes the body as a JSON object.
func (j JSON) Object() (map[string]any, error) {
	out := map[string]any{}
	if j.raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(j.raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Array decodes the body as a JSON array.
func (j JSON) Array() ([]any, error) {
	out := []any{}
	if j.raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(j.raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Decode unmarshals the body into v. An empty body leaves v untouched.
func (j JSON) Decode(v any) error {
	if j.raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(j.raw), v)
}
