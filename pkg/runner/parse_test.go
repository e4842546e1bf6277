package runner_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/citrus-it/zadm/pkg/runner"
)

type ParseTestSuite struct {
	suite.Suite
}

func TestParseTestSuite(t *testing.T) {
	suite.Run(t, new(ParseTestSuite))
}

func (s *ParseTestSuite) TestParseZoneList() {
	zones, err := runner.ParseZoneList([]string{
		"0:global:running:/::ipkg:shared",
		"-:web:installed:/zones/web:deadbeef-0000-1111-2222-333344445555:kvm:excl",
		"",
	})
	s.Require().NoError(err)
	s.Require().Len(zones, 2)
	s.Equal(0, zones[0].ID)
	s.Equal("global", zones[0].Name)
	s.Equal(-1, zones[1].ID)
	s.Equal("web", zones[1].Name)
	s.Equal("installed", zones[1].State)
	s.Equal("/zones/web", zones[1].Path)
	s.Equal("deadbeef-0000-1111-2222-333344445555", zones[1].UUID)
	s.Equal("kvm", zones[1].Brand)
	s.Equal("excl", zones[1].IPType)
}

func (s *ParseTestSuite) TestParseZoneListMalformed() {
	tests := []struct {
		description string
		line        string
	}{
		{"too few fields", "0:global:running"},
		{"bad id", "x:global:running:/::ipkg:shared"},
	}
	for _, test := range tests {
		_, err := runner.ParseZoneList([]string{test.line})
		s.Error(err, test.description)
	}
}

func (s *ParseTestSuite) TestParseSwap() {
	usage, err := runner.ParseSwap(
		"total: 1774912k bytes allocated + 240928k reserved = 2015840k used, 14230588k available")
	s.Require().NoError(err)
	s.Equal(uint64(2015840), usage.UsedKB)
	s.Equal(uint64(14230588), usage.AvailableKB)

	_, err = runner.ParseSwap("no swap devices configured")
	s.Error(err)
}

func (s *ParseTestSuite) TestParseSchedulerClass() {
	class, err := runner.ParseSchedulerClass([]string{"FSS\t(Fair Share)"})
	s.NoError(err)
	s.Equal("FSS", class)

	_, err = runner.ParseSchedulerClass(nil)
	s.Error(err)
}
