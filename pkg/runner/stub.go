package runner

import "strings"

// StubRunner returns scripted output instead of executing anything. Output
// is keyed by the logical name joined with the arguments; a name-only key
// acts as a fallback. Every invocation is recorded.
type StubRunner struct {
	Responses map[string][]string
	Statuses  map[string]int
	Errors    map[string]error
	Calls     []string
}

// NewStub creates an empty StubRunner
func NewStub() *StubRunner {
	return &StubRunner{
		Responses: map[string][]string{},
		Statuses:  map[string]int{},
		Errors:    map[string]error{},
	}
}

// Respond scripts the output for an exact command invocation
func (s *StubRunner) Respond(key string, lines ...string) {
	s.Responses[key] = lines
}

// Fail scripts an error for an exact command invocation
func (s *StubRunner) Fail(key string, err error) {
	s.Errors[key] = err
}

func key(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

func (s *StubRunner) lookup(name string, args []string) (string, bool) {
	k := key(name, args)
	if _, ok := s.Responses[k]; ok {
		return k, true
	}
	if _, ok := s.Errors[k]; ok {
		return k, true
	}
	if _, ok := s.Responses[name]; ok {
		return name, true
	}
	if _, ok := s.Errors[name]; ok {
		return name, true
	}
	return "", false
}

// Run returns the scripted output for the invocation
func (s *StubRunner) Run(name string, args ...string) ([]string, error) {
	s.Calls = append(s.Calls, key(name, args))
	k, ok := s.lookup(name, args)
	if !ok {
		return nil, CommandNotFoundError{Name: name}
	}
	if err := s.Errors[k]; err != nil {
		return nil, err
	}
	return s.Responses[k], nil
}

// RunTolerant returns the scripted output and status for the invocation
func (s *StubRunner) RunTolerant(name string, args ...string) ([]string, int, error) {
	s.Calls = append(s.Calls, key(name, args))
	k, ok := s.lookup(name, args)
	if !ok {
		return nil, 0, CommandNotFoundError{Name: name}
	}
	if err := s.Errors[k]; err != nil {
		return nil, 0, err
	}
	return s.Responses[k], s.Statuses[k], nil
}

// Exec records the invocation; a stub never replaces the process image
func (s *StubRunner) Exec(name string, args ...string) error {
	s.Calls = append(s.Calls, key(name, args))
	k, ok := s.lookup(name, args)
	if !ok {
		return CommandNotFoundError{Name: name}
	}
	return s.Errors[k]
}

// Called reports whether any recorded invocation starts with prefix
func (s *StubRunner) Called(prefix string) bool {
	for _, call := range s.Calls {
		if strings.HasPrefix(call, prefix) {
			return true
		}
	}
	return false
}
