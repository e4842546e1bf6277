package zadm

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
	"github.com/tidwall/sjson"
)

// Config is the structured view of a zone configuration: property names
// mapped to canonical typed values (string, bool, int64 or []string). It is
// semantically the union of the zone's attribute records and its
// schema-known zone properties.
type Config struct {
	Brand  Brand
	Values map[string]interface{}
}

// NewConfig creates an empty configuration for a brand
func NewConfig(brand Brand) *Config {
	return &Config{
		Brand: brand,
		Values: map[string]interface{}{
			"brand": string(brand),
		},
	}
}

// Keys returns the property names in sorted order
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.Values))
	for key := range c.Values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy
func (c *Config) Clone() *Config {
	clone := NewConfig(c.Brand)
	for key, value := range c.Values {
		if list, ok := value.([]string); ok {
			cp := make([]string, len(list))
			copy(cp, list)
			clone.Values[key] = cp
			continue
		}
		clone.Values[key] = value
	}
	return clone
}

// Serialize renders the canonical textual form presented on the edit
// surface: pretty-printed JSON with properties in sorted order
func (c *Config) Serialize() ([]byte, error) {
	doc := map[string]interface{}{}
	for key, value := range c.Values {
		doc[key] = value
	}
	doc["brand"] = string(c.Brand)
	buf, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(buf, '\n'), nil
}

// ParseConfig parses the relaxed textual form: JSON extended with comments
// and trailing commas. Syntax errors report 1-based line numbers. Indexed
// property names in the document are folded into their list property the
// same way indexed attribute records are.
func ParseConfig(text []byte) (*Config, error) {
	stripped := jsonc.ToJSON(text)

	var doc map[string]interface{}
	if err := json.Unmarshal(stripped, &doc); err != nil {
		return nil, ParseError{Line: lineOfOffset(text, errOffset(err)), Err: err}
	}

	brand, _ := doc["brand"].(string)
	cfg := NewConfig(Brand(brand))
	for key, value := range doc {
		cfg.Values[key] = normalizeNumber(value)
	}
	if err := cfg.fold(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fold merges indexed property names (disk0, disk5) into their base list
// property, explicit indices first in ascending order
func (c *Config) fold() error {
	slots := map[string][]listSlot{}

	for _, key := range c.Keys() {
		entry, known := Lookup(c.Brand, key)
		if known && entry.List {
			list, err := toStringList(key, entry, c.Values[key])
			if err != nil {
				return err
			}
			for _, v := range list {
				slots[key] = append(slots[key], listSlot{indexed: false, value: v})
			}
			delete(c.Values, key)
			continue
		}
		if known {
			continue
		}
		base, idx, ok := splitIndex(key)
		if !ok {
			continue
		}
		if entry, known := Lookup(c.Brand, base); known {
			if entry.Derived {
				delete(c.Values, key)
				continue
			}
			if !entry.List {
				continue
			}
			s, isString := c.Values[key].(string)
			if !isString {
				return TypeMismatchError{Key: key, Expected: entry.Type, Value: formatRaw(c.Values[key])}
			}
			slots[base] = append(slots[base], listSlot{index: idx, indexed: true, value: s})
			delete(c.Values, key)
		}
	}

	for base, group := range slots {
		ordered, err := orderSlots(base, group)
		if err != nil {
			return err
		}
		c.Values[base] = ordered
	}
	return nil
}

// MergeOverrides applies key=value overrides onto the configuration's
// canonical form and reparses the result. Values parse as JSON literals when
// they can and as plain strings otherwise.
func (c *Config) MergeOverrides(pairs []string) (*Config, error) {
	buf, err := c.Serialize()
	if err != nil {
		return nil, err
	}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, ValidationError{Key: pair, Reason: "expected key=value"}
		}
		buf, err = sjson.SetRawBytes(buf, key, rawJSONValue(value))
		if err != nil {
			return nil, ValidationError{Key: key, Reason: err.Error()}
		}
	}
	return ParseConfig(buf)
}

// rawJSONValue renders an override value as a JSON literal, quoting it when
// it is not already one
func rawJSONValue(value string) []byte {
	trimmed := strings.TrimSpace(value)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return []byte(trimmed)
	}
	quoted, _ := json.Marshal(value)
	return quoted
}

// normalizeNumber maps integral JSON numbers to int64, the canonical integer
// representation
func normalizeNumber(value interface{}) interface{} {
	switch v := value.(type) {
	case float64:
		if v == float64(int64(v)) {
			return int64(v)
		}
	case []interface{}:
		for i, elem := range v {
			v[i] = normalizeNumber(elem)
		}
	}
	return value
}

// errOffset pulls the byte offset out of a json decoding error, if it has one
func errOffset(err error) int64 {
	switch e := err.(type) {
	case *json.SyntaxError:
		return e.Offset
	case *json.UnmarshalTypeError:
		return e.Offset
	}
	return 0
}

// lineOfOffset translates a byte offset into a 1-based line number. The
// comment-stripped form is offset-stable with the original text, so offsets
// from the strict parser map directly onto what the user typed.
func lineOfOffset(text []byte, offset int64) int {
	if offset > int64(len(text)) {
		offset = int64(len(text))
	}
	return 1 + bytes.Count(text[:offset], []byte{'\n'})
}
