package zadm_test

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pborman/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/citrus-it/zadm"
	"github.com/citrus-it/zadm/pkg/runner"
)

type CommonTestSuite struct {
	suite.Suite
	ZoneDir     string
	Runner      *runner.StubRunner
	Context     *zadm.Context
	oldZonePath string
}

func (s *CommonTestSuite) SetupTest() {
	s.ZoneDir, _ = os.MkdirTemp("", "zadmTest-"+uuid.New())
	s.oldZonePath = zadm.ZonePath
	zadm.ZonePath = s.ZoneDir

	s.Runner = runner.NewStub()
	s.Runner.Respond("zonecfg")
	s.Runner.Respond("zoneadm list -cp")
	s.Context = zadm.NewContext(s.Runner)
}

func (s *CommonTestSuite) TearDownTest() {
	zadm.ZonePath = s.oldZonePath
	s.Require().NoError(os.RemoveAll(s.ZoneDir))
}

// stubZone registers a zone in the zoneadm listing and writes its serialized
// configuration so it exists on disk
func (s *CommonTestSuite) stubZone(name string, brand zadm.Brand, infoLines []string) *zadm.Zone {
	s.Runner.Respond("zoneadm list -cp",
		fmt.Sprintf("-:%s:installed:/zones/%s:%s:%s:excl", name, name, uuid.New(), brand))
	s.Runner.Respond(fmt.Sprintf("zonecfg -z %s info", name), infoLines...)
	s.Require().NoError(os.WriteFile(
		filepath.Join(s.ZoneDir, name+".xml"), serializedZoneXML(name, brand), 0644))

	z, err := s.Context.Zone(name)
	s.Require().NoError(err)
	return z
}

// age pushes a zone's serialized config mtime well into the past so later
// writes are detectable regardless of filesystem timestamp granularity
func (s *CommonTestSuite) age(name string) time.Time {
	path := filepath.Join(s.ZoneDir, name+".xml")
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	s.Require().NoError(os.Chtimes(path, old, old))
	fi, err := os.Stat(path)
	s.Require().NoError(err)
	return fi.ModTime()
}

func serializedZoneXML(name string, brand zadm.Brand) []byte {
	return []byte(fmt.Sprintf("<zone name=%q brand=%q></zone>\n", name, brand))
}

// kvmInfoLines is canned zonecfg info output for a small kvm zone
func kvmInfoLines(name string) []string {
	return []string{
		"zonename: " + name,
		"zonepath: /zones/" + name,
		"brand: kvm",
		"autoboot: false",
		"capped-memory:",
		"\t[physical: 2G]",
		"attr:",
		"\tname: bootdisk",
		"\ttype: string",
		"\tvalue: \"tank/" + name + "/root\"",
		"attr:",
		"\tname: vcpus",
		"\ttype: integer",
		"\tvalue: 4",
	}
}

func testMsgFunc(prefix string) func(...interface{}) string {
	return func(val ...interface{}) string {
		if len(val) == 0 {
			return prefix
		}
		msgPrefix := prefix + " : "
		if len(val) == 1 {
			return msgPrefix + val[0].(string)
		} else {
			return msgPrefix + fmt.Sprintf(val[0].(string), val[1:]...)
		}
	}
}
