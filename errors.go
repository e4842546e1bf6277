package zadm

import "fmt"

type (
	// MalformedIndexError indicates indexed attribute records that cannot be
	// ordered, such as two records claiming the same explicit slot
	MalformedIndexError struct {
		Key   string
		Index int
	}

	// TypeMismatchError indicates a value that failed coercion to its
	// declared attribute type
	TypeMismatchError struct {
		Key      string
		Expected AttrType
		Value    string
	}

	// ParseError indicates malformed syntax in the textual configuration
	// form. Line is 1-based for user display
	ParseError struct {
		Line int
		Err  error
	}

	// ValidationError indicates a configuration value the schema rejected
	ValidationError struct {
		Key    string
		Reason string
	}

	// RestoreFailure indicates the backup write-back itself failed. No
	// further automatic recovery is attempted after one of these
	RestoreFailure struct {
		Path string
		Err  error
	}
)

func (e MalformedIndexError) Error() string {
	return fmt.Sprintf("attribute %q: duplicate index %d", e.Key, e.Index)
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("attribute %q: %q is not a valid %s", e.Key, e.Value, e.Expected)
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err)
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("property %q: %s", e.Key, e.Reason)
}

func (e RestoreFailure) Error() string {
	return fmt.Sprintf("failed to restore backup to %s: %s", e.Path, e.Err)
}
