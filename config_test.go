package zadm_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/citrus-it/zadm"
)

type ConfigTestSuite struct {
	CommonTestSuite
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (s *ConfigTestSuite) TestSerializeCanonical() {
	cfg := zadm.NewConfig(zadm.BrandKVM)
	cfg.Values["zonename"] = "canon"
	cfg.Values["vcpus"] = int64(2)
	cfg.Values["disk"] = []string{"tank/a"}

	buf, err := cfg.Serialize()
	s.Require().NoError(err)

	text := string(buf)
	s.True(strings.HasSuffix(text, "\n"), "serialized form should end in a newline")
	s.True(strings.Index(text, `"brand"`) < strings.Index(text, `"disk"`), "keys should be sorted")
	s.True(strings.Index(text, `"disk"`) < strings.Index(text, `"vcpus"`), "keys should be sorted")

	reparsed, err := zadm.ParseConfig(buf)
	s.Require().NoError(err)
	s.Equal(cfg.Values, reparsed.Values)
}

func (s *ConfigTestSuite) TestParseRelaxed() {
	text := []byte(`{
    // boot from the mirror
    "brand": "kvm",
    "bootdisk": "tank/mirror/root",
    "vcpus": 2, /* trailing comma below */
    "autoboot": true,
}`)
	cfg, err := zadm.ParseConfig(text)
	s.Require().NoError(err)
	s.Equal("tank/mirror/root", cfg.Values["bootdisk"])
	s.Equal(int64(2), cfg.Values["vcpus"])
	s.Equal(true, cfg.Values["autoboot"])
}

func (s *ConfigTestSuite) TestParseErrorLineNumber() {
	text := []byte("{\n    \"brand\": \"kvm\",\n    \"vcpus\": oops,\n    \"autoboot\": true\n}\n")
	_, err := zadm.ParseConfig(text)
	s.Require().Error(err)

	parseErr, ok := err.(zadm.ParseError)
	s.Require().True(ok, "should be a ParseError")
	s.Equal(3, parseErr.Line)
}

func (s *ConfigTestSuite) TestParseFoldsIndexedKeys() {
	text := []byte(`{
    "brand": "kvm",
    "disk5": "tank/five",
    "disk0": "tank/zero"
}`)
	cfg, err := zadm.ParseConfig(text)
	s.Require().NoError(err)
	s.Equal([]string{"tank/zero", "tank/five"}, cfg.Values["disk"])

	dup := []byte(`{
    "brand": "kvm",
    "disk": ["tank/base"],
    "disk0": "tank/zero",
    "disk00": "tank/alias"
}`)
	_, err = zadm.ParseConfig(dup)
	s.Error(err)
	s.IsType(zadm.MalformedIndexError{}, err)
}

func (s *ConfigTestSuite) TestParseDropsDerivedKeys() {
	text := []byte(`{
    "brand": "kvm",
    "disk0": "tank/zero",
    "device0": "/dev/zvol/rdsk/tank/stale",
    "device4": "/dev/zvol/rdsk/tank/staler"
}`)
	cfg, err := zadm.ParseConfig(text)
	s.Require().NoError(err)
	s.Equal([]string{"tank/zero"}, cfg.Values["disk"])
	s.NotContains(cfg.Values, "device0")
	s.NotContains(cfg.Values, "device4")
}

func (s *ConfigTestSuite) TestMergeOverrides() {
	cfg := zadm.NewConfig(zadm.BrandKVM)
	cfg.Values["zonename"] = "merged"
	cfg.Values["vcpus"] = int64(1)

	tests := []struct {
		description string
		pairs       []string
		key         string
		expected    interface{}
		expectedErr bool
	}{
		{"string value", []string{"bootdisk=tank/merged/root"}, "bootdisk", "tank/merged/root", false},
		{"integer value", []string{"vcpus=8"}, "vcpus", int64(8), false},
		{"boolean value", []string{"autoboot=true"}, "autoboot", true, false},
		{"list value", []string{`disk=["tank/a","tank/b"]`}, "disk", []string{"tank/a", "tank/b"}, false},
		{"missing separator", []string{"bootdisk"}, "", nil, true},
		{"empty key", []string{"=value"}, "", nil, true},
	}

	for _, test := range tests {
		msg := testMsgFunc(test.description)
		merged, err := cfg.MergeOverrides(test.pairs)
		if test.expectedErr {
			s.Error(err, msg("should fail"))
		} else {
			s.NoError(err, msg("should succeed"))
			s.Equal(test.expected, merged.Values[test.key], msg("should carry the override"))
			s.Equal("merged", merged.Values["zonename"], msg("should keep existing values"))
		}
	}
}

func (s *ConfigTestSuite) TestClone() {
	cfg := zadm.NewConfig(zadm.BrandBhyve)
	cfg.Values["disk"] = []string{"tank/a"}

	clone := cfg.Clone()
	clone.Values["disk"].([]string)[0] = "tank/changed"
	s.Equal([]string{"tank/a"}, cfg.Values["disk"], "clone should not share list storage")
}
