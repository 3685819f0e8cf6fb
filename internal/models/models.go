package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Well-known event keys.
const (
	KeyCategory     = "category"
	KeyAction       = "action"
	KeyFunnel       = "funnel"
	KeyOutcome      = "outcome"
	KeySuperOutcome = "superOutcome"
	KeyResult       = "result"
	KeyName         = "name"
	KeyDetails      = "details"
	KeyType         = "type"
	KeyIdentifier   = "identifier"
	KeyCount        = "count"
	KeyTimestamp    = "timestamp"
	KeyPlatform     = "platform"
	KeyTags         = "tags"
)

// Event is a single journey record: a string-keyed map that remembers the
// order keys were first set in. The zero value is ready to use.
type Event struct {
	keys   []string
	values map[string]any
}

// NewEvent builds an event from alternating key/value arguments.
// It panics on an odd argument count or a non-string key.
func NewEvent(pairs ...any) *Event {
	if len(pairs)%2 != 0 {
		panic("models: NewEvent needs key/value pairs")
	}
	e := &Event{}
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("models: event key %v is not a string", pairs[i]))
		}
		e.Set(key, pairs[i+1])
	}
	return e
}

// Set stores value under key. Existing keys keep their position.
func (e *Event) Set(key string, value any) {
	if e.values == nil {
		e.values = make(map[string]any)
	}
	if _, ok := e.values[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.values[key] = value
}

func (e *Event) Get(key string) (any, bool) {
	if e == nil || e.values == nil {
		return nil, false
	}
	v, ok := e.values[key]
	return v, ok
}

func (e *Event) Has(key string) bool {
	_, ok := e.Get(key)
	return ok
}

// String returns the value under key when it is a string.
func (e *Event) String(key string) (string, bool) {
	v, ok := e.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (e *Event) Delete(key string) {
	if e == nil || e.values == nil {
		return
	}
	if _, ok := e.values[key]; !ok {
		return
	}
	delete(e.values, key)
	for i, k := range e.keys {
		if k == key {
			e.keys = append(e.keys[:i], e.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (e *Event) Keys() []string {
	if e == nil {
		return nil
	}
	out := make([]string, len(e.keys))
	copy(out, e.keys)
	return out
}

func (e *Event) Len() int {
	if e == nil {
		return 0
	}
	return len(e.keys)
}

// HasAllKeys reports whether every key of other is also present in e.
func (e *Event) HasAllKeys(other *Event) bool {
	for _, k := range other.Keys() {
		if !e.Has(k) {
			return false
		}
	}
	return true
}

// SameValue reports whether both events carry key with equal values.
// A key missing on either side is never equal.
func (e *Event) SameValue(other *Event, key string) bool {
	a, ok := e.Get(key)
	if !ok {
		return false
	}
	b, ok := other.Get(key)
	if !ok {
		return false
	}
	return reflect.DeepEqual(normalize(a), normalize(b))
}

// Float returns the value under key when it is numeric.
func (e *Event) Float(key string) (float64, bool) {
	v, ok := e.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Count returns the aggregation counter, 1 when the key is absent.
func (e *Event) Count() int {
	v, ok := e.Get(KeyCount)
	if !ok {
		return 1
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	}
	return 1
}

// Clone returns a copy whose top-level keys can be changed without
// affecting e. Nested values are shared.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	out := &Event{
		keys:   make([]string, len(e.keys)),
		values: make(map[string]any, len(e.values)),
	}
	copy(out.keys, e.keys)
	for k, v := range e.values {
		out.values[k] = v
	}
	return out
}

// Map returns the event as a plain map, losing key order.
func (e *Event) Map() map[string]any {
	out := make(map[string]any, e.Len())
	for _, k := range e.Keys() {
		out[k] = e.values[k]
	}
	return out
}

func (e *Event) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range e.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(e.values[k])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event field %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (e *Event) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	token, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("event must be a JSON object")
	}
	*e = Event{}
	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return err
		}
		key, ok := token.(string)
		if !ok {
			return fmt.Errorf("invalid event key %v", token)
		}
		var value any
		if err := decoder.Decode(&value); err != nil {
			return fmt.Errorf("failed to decode event field %q: %w", key, err)
		}
		e.Set(key, value)
	}
	_, err = decoder.Token()
	return err
}

// normalize folds numeric representations together so that a count of
// 2 compares equal whether it came from Go code or from decoded JSON.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return v
}

// Platform describes the device and software the journey was recorded on.
type Platform struct {
	SoftwareVersion        string `json:"softwareVersion"`
	DeviceModel            string `json:"deviceModel"`
	OperatingSystemName    string `json:"operatingSystemName"`
	OperatingSystemVersion string `json:"operatingSystemVersion"`
}

func (p Platform) IsZero() bool {
	return p == Platform{}
}

// Person is the identity attached to a session on deanonymization.
type Person map[string]any

// Parameters is the per-endpoint body the collection endpoint receives
// under "parameters".
type Parameters struct {
	UUID      string    `json:"uuid"`
	Timestamp float64   `json:"timestamp"`
	Journey   []*Event  `json:"journey,omitempty"`
	Platform  *Platform `json:"platform,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Person    Person    `json:"person,omitzero"`
}

// Batch is the request envelope posted to the collection endpoint.
type Batch struct {
	Name       string     `json:"name,omitempty"`
	Parameters Parameters `json:"parameters"`
}
