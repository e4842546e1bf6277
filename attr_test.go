package zadm_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/citrus-it/zadm"
)

type CodecTestSuite struct {
	CommonTestSuite
}

func TestCodecTestSuite(t *testing.T) {
	suite.Run(t, new(CodecTestSuite))
}

// propsOf extracts the zone properties the store would hold for a config,
// mirroring what a commit writes and a later info listing reads back
func propsOf(cfg *zadm.Config) map[string]string {
	props := map[string]string{}
	for _, key := range cfg.Keys() {
		entry, known := zadm.Lookup(cfg.Brand, key)
		if !known || !entry.NonAttr {
			continue
		}
		switch v := cfg.Values[key].(type) {
		case string:
			props[key] = v
		case bool:
			if v {
				props[key] = "true"
			} else {
				props[key] = "false"
			}
		}
	}
	return props
}

func (s *CodecTestSuite) TestListOrdering() {
	records := []zadm.Record{
		{Name: "disk5", Type: zadm.AttrString, Value: "tank/five"},
		{Name: "disk", Type: zadm.AttrString, Value: "tank/plain"},
		{Name: "disk0", Type: zadm.AttrString, Value: "tank/zero"},
	}
	cfg, err := zadm.Decode(zadm.BrandKVM, nil, records)
	s.Require().NoError(err)

	// Explicit indices in ascending order, the unsuffixed entry last
	s.Equal([]string{"tank/zero", "tank/five", "tank/plain"}, cfg.Values["disk"])

	// Re-encoding compacts the indices with no gaps
	encoded, err := zadm.Encode(cfg)
	s.Require().NoError(err)
	names := map[string]string{}
	for _, rec := range encoded {
		names[rec.Name] = rec.Value
	}
	s.Equal("tank/zero", names["disk0"])
	s.Equal("tank/five", names["disk1"])
	s.Equal("tank/plain", names["disk2"])
	s.NotContains(names, "disk5")
	s.NotContains(names, "disk")
}

func (s *CodecTestSuite) TestDuplicateIndexRejected() {
	records := []zadm.Record{
		{Name: "disk1", Type: zadm.AttrString, Value: "tank/one"},
		{Name: "disk1", Type: zadm.AttrString, Value: "tank/other"},
	}
	_, err := zadm.Decode(zadm.BrandKVM, nil, records)
	s.Error(err)
	s.IsType(zadm.MalformedIndexError{}, err)
}

func (s *CodecTestSuite) TestDerivedRecords() {
	cfg := zadm.NewConfig(zadm.BrandKVM)
	cfg.Values["disk"] = []string{"tank/a", "tank/b"}

	encoded, err := zadm.Encode(cfg)
	s.Require().NoError(err)
	names := map[string]string{}
	for _, rec := range encoded {
		names[rec.Name] = rec.Value
	}
	s.Equal("/dev/zvol/rdsk/tank/a", names["device0"])
	s.Equal("/dev/zvol/rdsk/tank/b", names["device1"])

	// Stale derived records in the store are dropped, not trusted. The
	// encoded set already carries device0/device1, so a decode that leaks
	// them would show up here too.
	records := append(encoded, zadm.Record{Name: "device7", Type: zadm.AttrString, Value: "/dev/zvol/rdsk/tank/gone"})
	decoded, err := zadm.Decode(zadm.BrandKVM, nil, records)
	s.Require().NoError(err)
	for _, key := range []string{"device", "device0", "device1", "device7"} {
		s.NotContains(decoded.Values, key, "derived records never survive decode")
	}
	s.Equal([]string{"tank/a", "tank/b"}, decoded.Values["disk"])

	// Re-encoding recomputes the derived set exactly once per disk entry
	reencoded, err := zadm.Encode(decoded)
	s.Require().NoError(err)
	counts := map[string]int{}
	for _, rec := range reencoded {
		counts[rec.Name]++
	}
	s.Equal(1, counts["device0"])
	s.Equal(1, counts["device1"])
	s.Zero(counts["device7"], "stale derived record should not be copied forward")
}

func (s *CodecTestSuite) TestRoundTrip() {
	candidate := zadm.NewConfig(zadm.BrandKVM)
	candidate.Values["zonename"] = "roundtrip"
	candidate.Values["bootdisk"] = "tank/roundtrip/root"
	candidate.Values["disk"] = []string{"tank/one", "tank/two"}
	candidate.Values["vcpus"] = int64(8)
	candidate.Values["fancy"] = "custom-value"

	validated, err := zadm.Validate(zadm.BrandKVM, candidate, nil)
	s.Require().NoError(err)

	records, err := zadm.Encode(validated)
	s.Require().NoError(err)
	decoded, err := zadm.Decode(zadm.BrandKVM, propsOf(validated), records)
	s.Require().NoError(err)

	s.Equal(validated.Values, decoded.Values)
}

func (s *CodecTestSuite) TestUnknownAttrPreserved() {
	records := []zadm.Record{
		{Name: "operator-note", Type: zadm.AttrString, Value: "kept verbatim"},
		{Name: "ticket", Type: zadm.AttrInteger, Value: "12345"},
		{Name: "flagged", Type: zadm.AttrBoolean, Value: "true"},
	}
	cfg, err := zadm.Decode(zadm.BrandSparse, nil, records)
	s.Require().NoError(err)

	encoded, err := zadm.Encode(cfg)
	s.Require().NoError(err)
	s.ElementsMatch(records, encoded)
}

func (s *CodecTestSuite) TestZonecfgOwnPropertiesSkipped() {
	props := map[string]string{
		"zonepath": "/zones/plumbed",
		"ip-type":  "exclusive",
		"pool":     "perf-pool",
	}
	cfg, err := zadm.Decode(zadm.BrandKVM, props, nil)
	s.Require().NoError(err)
	s.Equal("/zones/plumbed", cfg.Values["zonepath"])
	s.NotContains(cfg.Values, "ip-type")
	s.NotContains(cfg.Values, "pool")

	encoded, err := zadm.Encode(cfg)
	s.Require().NoError(err)
	for _, rec := range encoded {
		s.NotContains([]string{"ip-type", "pool"}, rec.Name)
	}
}

func (s *CodecTestSuite) TestTypeMismatch() {
	tests := []struct {
		description string
		record      zadm.Record
	}{
		{"bad integer", zadm.Record{Name: "vcpus", Type: zadm.AttrInteger, Value: "lots"}},
		{"bad boolean", zadm.Record{Name: "marker", Type: zadm.AttrBoolean, Value: "yes"}},
	}

	for _, test := range tests {
		msg := testMsgFunc(test.description)
		_, err := zadm.Decode(zadm.BrandKVM, nil, []zadm.Record{test.record})
		s.Error(err, msg("should be rejected"))
		s.IsType(zadm.TypeMismatchError{}, err, msg("should be a type mismatch"))
	}
}

func (s *CodecTestSuite) TestDiff() {
	prev := []zadm.Record{
		{Name: "bootdisk", Type: zadm.AttrString, Value: "tank/old"},
		{Name: "vcpus", Type: zadm.AttrInteger, Value: "2"},
		{Name: "gone", Type: zadm.AttrString, Value: "bye"},
	}
	next := []zadm.Record{
		{Name: "bootdisk", Type: zadm.AttrString, Value: "tank/new"},
		{Name: "vcpus", Type: zadm.AttrInteger, Value: "2"},
		{Name: "fresh", Type: zadm.AttrString, Value: "hi"},
	}

	mutations := zadm.Diff(prev, next)
	s.Len(mutations, 4)

	var removes, adds []string
	for _, m := range mutations {
		if m.Op == zadm.MutationRemove {
			removes = append(removes, m.Record.Name)
		} else {
			adds = append(adds, m.Record.Name)
		}
	}
	s.Equal([]string{"bootdisk", "gone"}, removes)
	s.Equal([]string{"bootdisk", "fresh"}, adds)

	s.Empty(zadm.Diff(prev, prev), "identical sets should need no mutations")
}

func (s *CodecTestSuite) TestParseZonecfgInfo() {
	props, records, err := zadm.ParseZonecfgInfo(kvmInfoLines("parsed"))
	s.Require().NoError(err)

	s.Equal("parsed", props["zonename"])
	s.Equal("kvm", props["brand"])
	s.Equal("false", props["autoboot"])
	s.Equal("2G", props["ram"])

	s.Len(records, 2)
	s.Equal(zadm.Record{Name: "bootdisk", Type: zadm.AttrString, Value: "tank/parsed/root"}, records[0])
	s.Equal(zadm.Record{Name: "vcpus", Type: zadm.AttrInteger, Value: "4"}, records[1])
}
