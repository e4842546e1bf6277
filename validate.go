package zadm

import (
	"fmt"
	"strconv"
)

// Validate applies the brand schema to a candidate configuration. Defaults
// are filled for absent schema-known properties, values are coerced to their
// declared types, derived entries are dropped so the codec recomputes them
// at commit, and unknown properties pass through untouched. previous is the
// last committed configuration, or nil for a zone being created; immutable
// properties may not change relative to it. Validation is fail-fast: the
// first problem found is returned.
func Validate(brand Brand, candidate, previous *Config) (*Config, error) {
	if !KnownBrand(brand) {
		return nil, ValidationError{Key: "brand", Reason: fmt.Sprintf("unknown brand %q", brand)}
	}
	if b, ok := candidate.Values["brand"].(string); ok && b != "" && Brand(b) != brand {
		return nil, ValidationError{Key: "brand", Reason: fmt.Sprintf("cannot change brand from %q to %q", brand, b)}
	}

	out := NewConfig(brand)

	for key, value := range candidate.Values {
		entry, known := Lookup(brand, key)
		if !known {
			if base, _, ok := splitIndex(key); ok {
				if e, k := Lookup(brand, base); k && e.Derived {
					continue
				}
			}
			out.Values[key] = value
			continue
		}
		if entry.Derived {
			// Recomputed from the source property on every commit
			continue
		}
		coerced, err := coerceValue(key, entry, value)
		if err != nil {
			return nil, err
		}
		out.Values[key] = coerced
	}

	out.Values["brand"] = string(brand)

	// Known properties get defaults
	for key, entry := range schemas[brand] {
		if _, present := out.Values[key]; present || entry.Default == nil {
			continue
		}
		out.Values[key] = entry.Default
	}

	if previous != nil {
		for key, entry := range schemas[brand] {
			if !entry.Immutable {
				continue
			}
			prev, hadPrev := previous.Values[key]
			cur, hasCur := out.Values[key]
			if hadPrev && hasCur && prev != cur {
				return nil, ValidationError{Key: key, Reason: fmt.Sprintf("cannot change from %q to %q", formatRaw(prev), formatRaw(cur))}
			}
		}
	}

	if name, ok := out.Values["zonename"].(string); ok && name != "" {
		if path, _ := out.Values["zonepath"].(string); path == "" {
			out.Values["zonepath"] = "/zones/" + name
		}
	}

	return out, nil
}

// coerceValue converts a candidate value to the canonical form for its
// schema entry, tolerating the shapes the edit surface produces
func coerceValue(key string, entry Entry, value interface{}) (interface{}, error) {
	if entry.List {
		list, err := toStringList(key, entry, value)
		if err != nil {
			return nil, ValidationError{Key: key, Reason: fmt.Sprintf("expected a list of %s values", entry.Type)}
		}
		return list, nil
	}

	switch entry.Type {
	case AttrBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b, nil
			}
		}
	case AttrInteger:
		switch v := value.(type) {
		case int64:
			return v, nil
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n, nil
			}
		}
	case AttrString:
		switch v := value.(type) {
		case string:
			return v, nil
		case bool, int64, float64:
			return formatRaw(v), nil
		}
	}
	return nil, ValidationError{Key: key, Reason: fmt.Sprintf("expected a %s value, got %q", entry.Type, formatRaw(value))}
}
