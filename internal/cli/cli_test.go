package cli_test

import (
	"strings"
	"testing"

	"github.com/citrus-it/zadm/internal/cli"
	"github.com/stretchr/testify/suite"
)

type CLISuite struct {
	suite.Suite
}

func TestCLI(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) TestRead() {
	reader := strings.NewReader("")
	s.Len(cli.Read(reader), 0)
	reader = strings.NewReader("zone1\nzone2\nzone3 vcpus=2\n")
	s.Len(cli.Read(reader), 4)
}

func (s *CLISuite) TestJMap() {
	j := cli.JMap{
		"zonename": "testzone",
		"brand":    "kvm",
	}
	s.Equal("testzone", j.Name())
	s.Equal(`{"brand":"kvm","zonename":"testzone"}`, j.String())
	s.Empty(cli.JMap{"brand": "kvm"}.Name())
}
