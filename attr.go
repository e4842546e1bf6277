package zadm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type (
	// AttrType is the declared type of a persisted attribute record
	AttrType string

	// Record is a flat persisted attribute: name, declared type and string
	// value. Identity is the name.
	Record struct {
		Name  string   `json:"name"`
		Type  AttrType `json:"type"`
		Value string   `json:"value"`
	}

	// MutationOp distinguishes attribute store mutations
	MutationOp int

	// Mutation is a single attribute store change. A replace is expressed
	// as a remove followed by an add, matching the granularity of the
	// underlying store primitives.
	Mutation struct {
		Op     MutationOp
		Record Record
	}
)

// Attribute record types as persisted
const (
	AttrString  AttrType = "string"
	AttrBoolean AttrType = "boolean"
	AttrInteger AttrType = "integer"
)

// Mutation operations
const (
	MutationRemove MutationOp = iota
	MutationAdd
)

// splitIndex splits a trailing numeric suffix off an attribute name.
// "disk5" yields ("disk", 5, true); names without a suffix report false.
func splitIndex(name string) (string, int, bool) {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) || i == 0 {
		return name, 0, false
	}
	idx, err := strconv.Atoi(name[i:])
	if err != nil {
		return name, 0, false
	}
	return name[:i], idx, true
}

// coerceRaw converts a persisted string value to its canonical typed form
func coerceRaw(key string, t AttrType, value string) (interface{}, error) {
	switch t {
	case AttrBoolean:
		switch value {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	case AttrInteger:
		n, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return n, nil
		}
	default:
		return value, nil
	}
	return nil, TypeMismatchError{Key: key, Expected: t, Value: value}
}

// formatRaw converts a canonical typed value back to its persisted string form
func formatRaw(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", value)
}

// inferType derives the attribute type to persist for a property the schema
// does not describe
func inferType(value interface{}) AttrType {
	switch value.(type) {
	case bool:
		return AttrBoolean
	case int64:
		return AttrInteger
	}
	return AttrString
}

// listSlot is one element of an indexed list while ordering is resolved
type listSlot struct {
	index   int
	indexed bool
	value   string
}

// Decode reconstructs a structured configuration from zone properties and
// attribute records. Suffix grouping applies only to schema-known list
// properties; records the schema marks as derived are dropped because they
// are recomputed on every commit. Unknown attribute records pass through
// untouched, while zone properties the schema does not describe stay with
// zonecfg.
func Decode(brand Brand, props map[string]string, records []Record) (*Config, error) {
	cfg := NewConfig(brand)

	for key, value := range props {
		entry, known := Lookup(brand, key)
		if !known {
			// Top-level properties outside the schema (ip-type, pool,
			// limitpriv) are zonecfg's own, not attribute records; taking
			// them in would re-emit them as attrs on the next commit
			continue
		}
		v, err := coerceRaw(key, entry.Type, value)
		if err != nil {
			return nil, err
		}
		cfg.Values[key] = v
	}

	// Sort by name so unindexed list entries land in a deterministic spot
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	lists := map[string][]listSlot{}
	for _, rec := range sorted {
		if entry, known := Lookup(brand, rec.Name); known {
			if entry.Derived {
				continue
			}
			if entry.List {
				lists[rec.Name] = append(lists[rec.Name], listSlot{indexed: false, value: rec.Value})
				continue
			}
			v, err := coerceRaw(rec.Name, entry.Type, rec.Value)
			if err != nil {
				return nil, err
			}
			cfg.Values[rec.Name] = v
			continue
		}

		if base, idx, ok := splitIndex(rec.Name); ok {
			if entry, known := Lookup(brand, base); known {
				if entry.Derived {
					continue
				}
				if entry.List {
					lists[base] = append(lists[base], listSlot{index: idx, indexed: true, value: rec.Value})
					continue
				}
			}
		}

		// Unknown attribute: preserve verbatim as its declared type
		v, err := coerceRaw(rec.Name, rec.Type, rec.Value)
		if err != nil {
			return nil, err
		}
		cfg.Values[rec.Name] = v
	}

	for base, slots := range lists {
		ordered, err := orderSlots(base, slots)
		if err != nil {
			return nil, err
		}
		cfg.Values[base] = ordered
	}

	return cfg, nil
}

// orderSlots sorts list entries by explicit index, unindexed entries last.
// Two entries claiming the same explicit index cannot be ordered.
func orderSlots(key string, slots []listSlot) ([]string, error) {
	seen := map[int]bool{}
	for _, slot := range slots {
		if !slot.indexed {
			continue
		}
		if seen[slot.index] {
			return nil, MalformedIndexError{Key: key, Index: slot.index}
		}
		seen[slot.index] = true
	}
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].indexed != slots[j].indexed {
			return slots[i].indexed
		}
		return slots[i].index < slots[j].index
	})
	values := make([]string, len(slots))
	for i, slot := range slots {
		values[i] = slot.value
	}
	return values, nil
}

// Encode is the inverse of Decode: it produces the full attribute record set
// for a configuration. List properties are re-emitted with contiguous
// suffixes 0..n-1 in list order and derived records are recomputed from
// their source property, never copied forward.
func Encode(cfg *Config) ([]Record, error) {
	var records []Record

	for _, key := range cfg.Keys() {
		value := cfg.Values[key]
		entry, known := Lookup(cfg.Brand, key)

		if known && (entry.NonAttr || entry.Derived) {
			continue
		}

		if known && entry.List {
			list, err := toStringList(key, entry, value)
			if err != nil {
				return nil, err
			}
			for i, v := range list {
				records = append(records, Record{
					Name:  fmt.Sprintf("%s%d", key, i),
					Type:  entry.Type,
					Value: v,
				})
				if entry.DeriveKey != "" {
					records = append(records, Record{
						Name:  fmt.Sprintf("%s%d", entry.DeriveKey, i),
						Type:  AttrString,
						Value: entry.Derive(v),
					})
				}
			}
			continue
		}

		t := inferType(value)
		if known {
			t = entry.Type
		}
		records = append(records, Record{Name: key, Type: t, Value: formatRaw(value)})
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

// toStringList accepts the value shapes a list property may arrive in
func toStringList(key string, entry Entry, value interface{}) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []interface{}:
		list := make([]string, len(v))
		for i, elem := range v {
			s, ok := elem.(string)
			if !ok {
				return nil, TypeMismatchError{Key: key, Expected: entry.Type, Value: fmt.Sprintf("%v", elem)}
			}
			list[i] = s
		}
		return list, nil
	case string:
		return []string{v}, nil
	}
	return nil, TypeMismatchError{Key: key, Expected: entry.Type, Value: fmt.Sprintf("%v", value)}
}

// Diff computes the minimal mutation set taking the store from prev to next.
// Removes are emitted before adds so a changed record is replaced, not
// duplicated.
func Diff(prev, next []Record) []Mutation {
	prevByName := map[string]Record{}
	for _, rec := range prev {
		prevByName[rec.Name] = rec
	}
	nextByName := map[string]Record{}
	for _, rec := range next {
		nextByName[rec.Name] = rec
	}

	var mutations []Mutation
	for _, rec := range sortedRecords(prev) {
		if cur, ok := nextByName[rec.Name]; !ok || cur != rec {
			mutations = append(mutations, Mutation{Op: MutationRemove, Record: rec})
		}
	}
	for _, rec := range sortedRecords(next) {
		if old, ok := prevByName[rec.Name]; !ok || old != rec {
			mutations = append(mutations, Mutation{Op: MutationAdd, Record: rec})
		}
	}
	return mutations
}

func sortedRecords(records []Record) []Record {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return sorted
}

// ParseZonecfgInfo parses the output of a full zonecfg info listing into
// zone properties and attribute records. The capped-memory resource's
// physical figure surfaces as the "ram" property.
func ParseZonecfgInfo(lines []string) (map[string]string, []Record, error) {
	props := map[string]string{}
	var records []Record

	var cur *Record
	block := ""
	flush := func() error {
		if cur == nil {
			return nil
		}
		if cur.Name == "" {
			return fmt.Errorf("attr record missing a name")
		}
		records = append(records, *cur)
		cur = nil
		return nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		indented := len(line) > 0 && (line[0] == ' ' || line[0] == '\t')

		if !indented {
			if err := flush(); err != nil {
				return nil, nil, err
			}
			key, value, ok := strings.Cut(trimmed, ":")
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			if value == "" {
				block = key
				if block == "attr" {
					cur = &Record{}
				}
				continue
			}
			block = ""
			props[key] = unquote(value)
			continue
		}

		key, value, ok := strings.Cut(strings.Trim(trimmed, "[]"), ":")
		if !ok {
			continue
		}
		value = unquote(strings.TrimSpace(value))
		if cur != nil {
			switch key {
			case "name":
				cur.Name = value
			case "type":
				cur.Type = AttrType(value)
			case "value":
				cur.Value = value
			}
			continue
		}
		if block == "capped-memory" && key == "physical" {
			props["ram"] = value
		}
	}
	if err := flush(); err != nil {
		return nil, nil, err
	}

	return props, records, nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
