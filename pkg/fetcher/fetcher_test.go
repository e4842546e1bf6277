package fetcher_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/citrus-it/zadm/pkg/fetcher"
)

type FetcherTestSuite struct {
	suite.Suite
	Dir    string
	Server *httptest.Server
}

func TestFetcherTestSuite(t *testing.T) {
	suite.Run(t, new(FetcherTestSuite))
}

func (s *FetcherTestSuite) SetupTest() {
	var err error
	s.Dir, err = os.MkdirTemp("", "fetcherTest-")
	s.Require().NoError(err)

	mux := http.NewServeMux()
	mux.HandleFunc("/images/", func(w http.ResponseWriter, r *http.Request) {
		if filepath.Base(r.URL.Path) == "missing.tar.gz" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("image: " + filepath.Base(r.URL.Path)))
	})
	s.Server = httptest.NewServer(mux)
}

func (s *FetcherTestSuite) TearDownTest() {
	s.Server.Close()
	s.Require().NoError(os.RemoveAll(s.Dir))
}

func (s *FetcherTestSuite) TestFetch() {
	urls := []string{
		s.Server.URL + "/images/lx-alpine.tar.gz",
		s.Server.URL + "/images/kvm-debian.tar.gz",
	}
	results := fetcher.Fetch(urls, s.Dir, 2)
	s.Require().Len(results, 2)

	for i, result := range results {
		s.Equal(urls[i], result.URL, "results keep input order")
		s.NoError(result.Err)
		content, err := os.ReadFile(result.Path)
		s.Require().NoError(err)
		s.Equal("image: "+filepath.Base(result.Path), string(content))
	}
}

func (s *FetcherTestSuite) TestPartialFailure() {
	urls := []string{
		s.Server.URL + "/images/missing.tar.gz",
		s.Server.URL + "/images/good.tar.gz",
	}
	results := fetcher.Fetch(urls, s.Dir, 1)
	s.Require().Len(results, 2)

	s.Error(results[0].Err, "a 404 fails its own download")
	s.Empty(results[0].Path)
	s.NoError(results[1].Err, "siblings are unaffected")
	s.FileExists(results[1].Path)
}

func (s *FetcherTestSuite) TestNoDerivableName() {
	results := fetcher.Fetch([]string{s.Server.URL + "/"}, s.Dir, 1)
	s.Require().Len(results, 1)
	s.Error(results[0].Err)
}

func (s *FetcherTestSuite) TestNoPartialsLeftBehind() {
	fetcher.Fetch([]string{s.Server.URL + "/images/missing.tar.gz"}, s.Dir, 1)
	entries, err := os.ReadDir(s.Dir)
	s.Require().NoError(err)
	s.Empty(entries, "a failed download leaves no temporary files")
}
