// Package fetcher downloads zone images with bounded parallelism. Each
// download succeeds or fails on its own; one bad URL never aborts its
// siblings.
package fetcher

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/pborman/uuid"
	log "github.com/sirupsen/logrus"
)

// Result reports the outcome for a single URL
type Result struct {
	URL  string
	Path string
	Err  error
}

// Fetch downloads each URL into dir using at most workers concurrent
// downloads. Results are returned in input order.
func Fetch(urls []string, dir string, workers int) []Result {
	if workers < 1 {
		workers = 1
	}
	if workers > len(urls) {
		workers = len(urls)
	}

	results := make([]Result, len(urls))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = fetchOne(urls[i], dir)
			}
		}()
	}
	for i := range urls {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// fetchOne downloads a single URL to a temporary file and renames it into
// place, so a partial download never masquerades as a complete image
func fetchOne(rawurl, dir string) Result {
	result := Result{URL: rawurl}

	u, err := url.Parse(rawurl)
	if err != nil {
		result.Err = err
		return result
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		result.Err = fmt.Errorf("cannot derive a file name from %q", rawurl)
		return result
	}

	resp, err := http.Get(rawurl)
	if err != nil {
		result.Err = err
		return result
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.WithField("error", err).Warn("failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		result.Err = fmt.Errorf("unexpected status %s", resp.Status)
		return result
	}

	tmp := filepath.Join(dir, "."+uuid.New()+".partial")
	f, err := os.Create(tmp)
	if err != nil {
		result.Err = err
		return result
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		result.Err = err
		return result
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		result.Err = err
		return result
	}

	result.Path = filepath.Join(dir, name)
	if err := os.Rename(tmp, result.Path); err != nil {
		_ = os.Remove(tmp)
		result.Path = ""
		result.Err = err
		return result
	}

	log.WithFields(log.Fields{
		"url":  rawurl,
		"path": result.Path,
	}).Info("image downloaded")
	return result
}
