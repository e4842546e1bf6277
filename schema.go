package zadm

import "sort"

type (
	// Brand identifies the schema profile governing a zone's configuration
	Brand string

	// Entry describes a recognized configuration property for a brand
	Entry struct {
		Type    AttrType
		Default interface{}
		// List marks a property whose attribute records carry numeric
		// suffixes denoting list slots
		List bool
		// NonAttr marks a property persisted as a zone property or
		// resource rather than an attr record
		NonAttr bool
		// Immutable properties cannot change once a zone exists
		Immutable bool
		// Derived marks records that are recomputed from another
		// property on every commit and never user-authored
		Derived   bool
		DeriveKey string
		Derive    func(string) string
	}
)

// Recognized brands
const (
	BrandKVM    Brand = "kvm"
	BrandBhyve  Brand = "bhyve"
	BrandLX     Brand = "lx"
	BrandSparse Brand = "sparse"
)

// zvolDevice maps a disk dataset to its character device node
func zvolDevice(dataset string) string {
	return "/dev/zvol/rdsk/" + dataset
}

// commonSchema holds the properties shared by every brand
var commonSchema = map[string]Entry{
	"zonename": {Type: AttrString, NonAttr: true, Immutable: true},
	"brand":    {Type: AttrString, NonAttr: true, Immutable: true},
	"zonepath": {Type: AttrString, NonAttr: true},
	"autoboot": {Type: AttrBoolean, Default: false, NonAttr: true},
}

// hvmSchema holds the properties shared by the hardware virtualization brands
var hvmSchema = map[string]Entry{
	"bootdisk":  {Type: AttrString, Default: ""},
	"bootorder": {Type: AttrString, Default: "cd"},
	"disk":      {Type: AttrString, List: true, DeriveKey: "device", Derive: zvolDevice},
	"device":    {Type: AttrString, Derived: true},
	"cdrom":     {Type: AttrString, Default: ""},
	"vcpus":     {Type: AttrInteger, Default: int64(1)},
	"ram":       {Type: AttrString, Default: "1G", NonAttr: true},
	"diskif":    {Type: AttrString, Default: "virtio"},
	"netif":     {Type: AttrString, Default: "virtio"},
	"vnc":       {Type: AttrString, Default: "off"},
	"extra":     {Type: AttrString, Default: ""},
}

var brandSchemas = map[Brand]map[string]Entry{
	BrandKVM: {
		"cpu": {Type: AttrString, Default: "qemu64"},
	},
	BrandBhyve: {
		"acpi":    {Type: AttrBoolean, Default: true},
		"bootrom": {Type: AttrString, Default: "BHYVE"},
	},
	BrandLX: {
		"kernel-version": {Type: AttrString, Default: "4.4"},
		"ipv6":           {Type: AttrBoolean, Default: false},
		"docker":         {Type: AttrBoolean, Default: false},
	},
	BrandSparse: {},
}

// schemas is the assembled per-brand property table. Built once at init and
// read-only thereafter.
var schemas = map[Brand]map[string]Entry{}

func init() {
	for brand, extra := range brandSchemas {
		table := map[string]Entry{}
		for k, e := range commonSchema {
			table[k] = e
		}
		if brand == BrandKVM || brand == BrandBhyve {
			for k, e := range hvmSchema {
				table[k] = e
			}
		}
		for k, e := range extra {
			table[k] = e
		}
		schemas[brand] = table
	}
}

// Lookup returns the schema entry for a brand property. The second return is
// false for properties the brand does not recognize; such properties pass
// through every operation untouched.
func Lookup(brand Brand, key string) (Entry, bool) {
	table, ok := schemas[brand]
	if !ok {
		return Entry{}, false
	}
	entry, ok := table[key]
	return entry, ok
}

// Defaults returns the sorted property names a brand fills with defaults
func Defaults(brand Brand) []string {
	var keys []string
	for key, entry := range schemas[brand] {
		if entry.Default != nil {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// KnownBrand reports whether a brand has a registered schema
func KnownBrand(brand Brand) bool {
	_, ok := schemas[brand]
	return ok
}

// Brands returns the sorted list of registered brands
func Brands() []string {
	brands := make([]string, 0, len(schemas))
	for brand := range schemas {
		brands = append(brands, string(brand))
	}
	sort.Strings(brands)
	return brands
}
