package zadm

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/citrus-it/zadm/pkg/runner"
)

var (
	// ZonePath is the directory holding serialized zone configurations
	ZonePath = "/etc/zones"
)

type (
	// Zone is a zone known to the host
	Zone struct {
		context *Context
		ID      int    `json:"id"`
		Name    string `json:"zonename"`
		UUID    string `json:"uuid"`
		Brand   Brand  `json:"brand"`
		State   string `json:"state"`
		Path    string `json:"zonepath"`
	}

	// Zones is an alias to a slice of *Zone
	Zones []*Zone
)

// NewZone creates a Zone handle for a zone that may not exist yet
func (c *Context) NewZone(name string, brand Brand) *Zone {
	return &Zone{
		context: c,
		ID:      -1,
		Name:    name,
		Brand:   brand,
		State:   "configured",
	}
}

// Zones lists every zone configured on the host
func (c *Context) Zones() (Zones, error) {
	lines, err := c.runner.Run("zoneadm", "list", "-cp")
	if err != nil {
		return nil, err
	}
	infos, err := runner.ParseZoneList(lines)
	if err != nil {
		return nil, err
	}
	zones := make(Zones, len(infos))
	for i, info := range infos {
		zones[i] = &Zone{
			context: c,
			ID:      info.ID,
			Name:    info.Name,
			UUID:    info.UUID,
			Brand:   Brand(info.Brand),
			State:   info.State,
			Path:    info.Path,
		}
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].Name < zones[j].Name })
	return zones, nil
}

// Zone fetches a single zone by name or UUID
func (c *Context) Zone(name string) (*Zone, error) {
	zones, err := c.Zones()
	if err != nil {
		return nil, err
	}
	for _, z := range zones {
		if z.Name == name || (z.UUID != "" && z.UUID == name) {
			return z, nil
		}
	}
	return nil, fmt.Errorf("zone %q not found", name)
}

// ConfigPath is the computed path of the zone's serialized configuration
func (z *Zone) ConfigPath() string {
	return filepath.Join(ZonePath, z.Name+".xml")
}

// Exists reports whether the serialized configuration is present on disk
func (z *Zone) Exists() bool {
	_, err := os.Stat(z.ConfigPath())
	return err == nil
}

// ModTime is the last-modified timestamp of the serialized configuration
func (z *Zone) ModTime() (time.Time, error) {
	fi, err := os.Stat(z.ConfigPath())
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}

// SerializedConfig reads the serialized configuration verbatim
func (z *Zone) SerializedConfig() ([]byte, error) {
	return os.ReadFile(z.ConfigPath())
}

// WriteSerializedConfig writes the serialized configuration verbatim
func (z *Zone) WriteSerializedConfig(content []byte) error {
	return os.WriteFile(z.ConfigPath(), content, 0644)
}

// CurrentConfig decodes the zone's persisted configuration. A zone that has
// not been created yet yields a minimal configuration carrying just its
// identity.
func (z *Zone) CurrentConfig() (*Config, error) {
	if !z.Exists() {
		cfg := NewConfig(z.Brand)
		cfg.Values["zonename"] = z.Name
		return cfg, nil
	}

	lines, err := z.context.runner.Run("zonecfg", "-z", z.Name, "info")
	if err != nil {
		return nil, err
	}
	props, records, err := ParseZonecfgInfo(lines)
	if err != nil {
		return nil, err
	}
	cfg, err := Decode(z.Brand, props, records)
	if err != nil {
		return nil, err
	}
	cfg.Values["zonename"] = z.Name
	return cfg, nil
}

// Commit persists a validated configuration. The attribute record set is
// fully recomputed and diffed against the previous one; the store is never
// partially edited record by record.
func (z *Zone) Commit(cfg, prev *Config) error {
	records, err := Encode(cfg)
	if err != nil {
		return err
	}
	var prevRecords []Record
	if prev != nil {
		if prevRecords, err = Encode(prev); err != nil {
			return err
		}
	}

	if !z.Exists() {
		zonepath, _ := cfg.Values["zonepath"].(string)
		cmd := fmt.Sprintf("create -b; set brand=%s; set zonepath=%s", z.Brand, zonepath)
		if _, err := z.context.runner.Run("zonecfg", "-z", z.Name, cmd); err != nil {
			return err
		}
	}

	if err := z.commitProperties(cfg, prev); err != nil {
		return err
	}

	for _, m := range Diff(prevRecords, records) {
		var cmd string
		switch m.Op {
		case MutationRemove:
			cmd = fmt.Sprintf("remove -F attr name=%s", m.Record.Name)
		case MutationAdd:
			cmd = fmt.Sprintf("add attr; set name=%s; set type=%s; set value=%q; end",
				m.Record.Name, m.Record.Type, m.Record.Value)
		}
		if _, err := z.context.runner.Run("zonecfg", "-z", z.Name, cmd); err != nil {
			return err
		}
	}

	log.WithFields(log.Fields{
		"zone":  z.Name,
		"brand": z.Brand,
	}).Info("configuration committed")
	return nil
}

// commitProperties persists the schema-known non-attribute properties
func (z *Zone) commitProperties(cfg, prev *Config) error {
	for _, key := range cfg.Keys() {
		entry, known := Lookup(z.Brand, key)
		if !known || !entry.NonAttr || entry.Immutable {
			continue
		}
		value := cfg.Values[key]
		if prev != nil && prev.Values[key] == value {
			continue
		}

		if key == "ram" {
			// The memory limit lives in a resource block; replace it
			// wholesale like an attr. The remove tolerates absence.
			if _, _, err := z.context.runner.RunTolerant("zonecfg", "-z", z.Name, "remove -F capped-memory"); err != nil {
				return err
			}
			cmd := fmt.Sprintf("add capped-memory; set physical=%s; end", formatRaw(value))
			if _, err := z.context.runner.Run("zonecfg", "-z", z.Name, cmd); err != nil {
				return err
			}
			continue
		}

		cmd := fmt.Sprintf("set %s=%s", key, formatRaw(value))
		if _, err := z.context.runner.Run("zonecfg", "-z", z.Name, cmd); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the zone's configuration from the host
func (z *Zone) Delete() error {
	_, err := z.context.runner.Run("zonecfg", "-z", z.Name, "delete", "-F")
	return err
}

// Console attaches to the zone console, replacing the current process
// image. It only returns on failure.
func (z *Zone) Console() error {
	return z.context.runner.Exec("zlogin", "-C", z.Name)
}
