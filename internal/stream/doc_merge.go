package stream

import (
	"encoding/json"
	"fmt"
)

// Doc is a flat JSON object keyed by top-level field name.
type Doc map[string]json.RawMessage

// ParseDoc decodes a message that must be a JSON object.
func ParseDoc(raw []byte) (Doc, error) {
	var d Doc
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse stream message: %w", err)
	}
	if d == nil {
		return nil, fmt.Errorf("parse stream message: not an object")
	}
	return d, nil
}

// DocOf encodes v into a Doc. v must marshal to a JSON object.
func DocOf(v any) (Doc, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode doc: %w", err)
	}
	return ParseDoc(raw)
}

// Merge returns a new Doc holding d overlaid with incoming. Keys in
// incoming win; d is not modified.
func (d Doc) Merge(incoming Doc) Doc {
	out := make(Doc, len(d)+len(incoming))
	for k, v := range d {
		out[k] = v
	}
	for k, v := range incoming {
		out[k] = v
	}
	return out
}

// Has reports whether key is present.
func (d Doc) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Clone returns a shallow copy.
func (d Doc) Clone() Doc {
	return Doc(nil).Merge(d)
}

// Split partitions d into the entries whose keys are listed and the rest.
func (d Doc) Split(keys ...string) (picked, rest Doc) {
	picked, rest = Doc{}, Doc{}
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	for k, v := range d {
		if _, ok := want[k]; ok {
			picked[k] = v
		} else {
			rest[k] = v
		}
	}
	return picked, rest
}

// Field decodes the value under key into dest, reporting whether the key
// was present.
func (d Doc) Field(key string, dest any) (bool, error) {
	raw, ok := d[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Decode converts a Doc into a typed view.
func Decode[T any](d Doc) (T, error) {
	var out T
	if len(d) == 0 {
		return out, nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return out, fmt.Errorf("encode doc: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode doc: %w", err)
	}
	return out, nil
}
