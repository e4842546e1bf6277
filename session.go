package zadm

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pborman/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/citrus-it/zadm/pkg/editor"
)

type (
	// SessionState tracks an edit session's progress
	SessionState int

	// Snapshot is the pre-session serialized configuration, held so a
	// failed session can restore the store exactly
	Snapshot struct {
		Content []byte
		ModTime time.Time
	}

	// Session drives the edit/validate/commit workflow for one zone. A
	// session obtains a candidate configuration from exactly one source,
	// validates it and either commits it or leaves the persisted store
	// as it found it.
	Session struct {
		zone  *Zone
		state SessionState

		ed          editor.Editor
		overrides   []string
		replacement []byte

		confirm func(string) bool

		snapshot *Snapshot
		result   *Config
	}
)

// Session states
const (
	SessionInit SessionState = iota
	SessionSnapshotted
	SessionAwaitingInput
	SessionValidating
	SessionCommitted
	SessionRolledBack
	SessionAbandoned
)

var sessionStateNames = map[SessionState]string{
	SessionInit:          "init",
	SessionSnapshotted:   "snapshotted",
	SessionAwaitingInput: "awaiting-input",
	SessionValidating:    "validating",
	SessionCommitted:     "committed",
	SessionRolledBack:    "rolled-back",
	SessionAbandoned:     "abandoned",
}

func (s SessionState) String() string {
	return sessionStateNames[s]
}

// NewSession creates a session for a zone. Configure exactly one candidate
// source before calling Run.
func NewSession(zone *Zone) *Session {
	return &Session{
		zone:  zone,
		state: SessionInit,
	}
}

// WithEditor sets an interactive editor as the candidate source
func (s *Session) WithEditor(ed editor.Editor) *Session {
	s.ed = ed
	return s
}

// WithOverrides sets a batch of key=value overrides as the candidate source
func (s *Session) WithOverrides(pairs []string) *Session {
	s.overrides = pairs
	return s
}

// WithReplacement sets a full textual replacement as the candidate source
func (s *Session) WithReplacement(text []byte) *Session {
	s.replacement = text
	return s
}

// Confirm provides the interactive consent prompt. Without one the session
// is non-interactive: it never retries and never creates a zone from an
// unmodified template.
func (s *Session) Confirm(fn func(string) bool) *Session {
	s.confirm = fn
	return s
}

// State reports the session's current state
func (s *Session) State() SessionState {
	return s.state
}

// Result is the validated configuration after a successful commit
func (s *Session) Result() *Config {
	return s.result
}

func (s *Session) sources() int {
	n := 0
	if s.ed != nil {
		n++
	}
	if s.overrides != nil {
		n++
	}
	if s.replacement != nil {
		n++
	}
	return n
}

// Run drives the session to one of its terminal states. The returned error
// is nil when the session committed, or when it was abandoned without the
// store being touched.
func (s *Session) Run() error {
	if s.sources() != 1 {
		return fmt.Errorf("session requires exactly one candidate source")
	}

	existed := s.zone.Exists()
	if existed {
		content, err := s.zone.SerializedConfig()
		if err != nil {
			return err
		}
		mtime, err := s.zone.ModTime()
		if err != nil {
			return err
		}
		s.snapshot = &Snapshot{Content: content, ModTime: mtime}
	}
	s.state = SessionSnapshotted

	var prev *Config
	current, err := s.zone.CurrentConfig()
	if err != nil {
		return err
	}
	if existed {
		prev = current
	} else {
		// Seed the edit surface with a fully defaulted configuration
		if current, err = Validate(s.zone.Brand, current, nil); err != nil {
			return err
		}
	}

	text, err := current.Serialize()
	if err != nil {
		return err
	}

	for {
		s.state = SessionAwaitingInput
		candidate, done, err := s.obtain(current, text, existed)
		if done || err != nil {
			return err
		}

		s.state = SessionValidating
		validated, err := s.check(candidate, prev)
		if err != nil {
			log.WithFields(log.Fields{
				"zone":  s.zone.Name,
				"error": err,
			}).Error("configuration rejected")

			if s.ed == nil || s.confirm == nil || !s.confirm("Retry editing the configuration?") {
				return s.rollback(err)
			}
			// Re-edit the rejected text rather than the original so
			// the operator's work is not thrown away
			text = candidate
			continue
		}

		if err := s.zone.Commit(validated, prev); err != nil {
			return s.rollback(err)
		}
		s.state = SessionCommitted
		s.result = validated
		return nil
	}
}

// obtain produces the candidate text from the configured source. done is
// true when the session reached a terminal state without a candidate.
func (s *Session) obtain(current *Config, text []byte, existed bool) ([]byte, bool, error) {
	switch {
	case s.ed != nil:
		return s.obtainFromEditor(text, existed)

	case s.overrides != nil:
		merged, err := current.MergeOverrides(s.overrides)
		if err != nil {
			return nil, true, s.rollback(err)
		}
		buf, err := merged.Serialize()
		if err != nil {
			return nil, true, s.rollback(err)
		}
		return buf, false, nil

	default:
		return s.replacement, false, nil
	}
}

func (s *Session) obtainFromEditor(text []byte, existed bool) ([]byte, bool, error) {
	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("zadm-%s-%s.json", s.zone.Name, uuid.New()))
	if err := os.WriteFile(tmp, text, 0600); err != nil {
		return nil, true, err
	}
	defer logRemove(tmp)

	outcome, err := s.ed.Invoke(tmp)
	if outcome == editor.LaunchFailed {
		return nil, true, s.rollback(fmt.Errorf("failed to launch editor: %s", err))
	}

	if outcome == editor.Unchanged {
		if existed {
			// Nothing to do: the existing configuration stands
			s.state = SessionAbandoned
			log.WithField("zone", s.zone.Name).Info("no changes made")
			return nil, true, nil
		}
		if s.confirm == nil || !s.confirm(fmt.Sprintf("Create zone %q with the default configuration?", s.zone.Name)) {
			s.state = SessionAbandoned
			return nil, true, nil
		}
		return text, false, nil
	}

	candidate, err := os.ReadFile(tmp)
	if err != nil {
		return nil, true, err
	}
	return candidate, false, nil
}

// check parses and validates a candidate's textual form
func (s *Session) check(candidate []byte, prev *Config) (*Config, error) {
	cfg, err := ParseConfig(candidate)
	if err != nil {
		return nil, err
	}
	if _, ok := cfg.Values["zonename"]; !ok {
		cfg.Values["zonename"] = s.zone.Name
	}
	return Validate(s.zone.Brand, cfg, prev)
}

// rollback restores the pre-session serialized configuration if the store
// changed while the session ran. When the timestamp never moved nothing was
// written and nothing needs restoring. cause is passed through so callers
// see the failure that triggered the rollback.
func (s *Session) rollback(cause error) error {
	s.state = SessionRolledBack
	if s.snapshot == nil {
		return cause
	}

	mtime, err := s.zone.ModTime()
	if err == nil && mtime.Equal(s.snapshot.ModTime) {
		return cause
	}

	if err := s.zone.WriteSerializedConfig(s.snapshot.Content); err != nil {
		return RestoreFailure{Path: s.zone.ConfigPath(), Err: err}
	}
	log.WithFields(log.Fields{
		"zone": s.zone.Name,
		"path": s.zone.ConfigPath(),
	}).Warn("configuration changed during session; restored pre-session backup")
	return cause
}

func logRemove(path string) {
	if err := os.Remove(path); err != nil {
		log.WithFields(log.Fields{
			"path":  path,
			"error": err,
		}).Warn("failed to remove temporary file")
	}
}
