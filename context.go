package zadm

import "github.com/citrus-it/zadm/pkg/runner"

// Context carries around the capabilities needed for zone operations
type Context struct {
	runner runner.Runner
}

// NewContext creates a Context backed by the given command runner
func NewContext(r runner.Runner) *Context {
	return &Context{
		runner: r,
	}
}

// Runner exposes the command runner boundary
func (c *Context) Runner() runner.Runner {
	return c.runner
}
