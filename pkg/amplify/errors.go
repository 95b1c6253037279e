package amplify

import "fmt"

type ConfigErrorKind int

const (
	FetchFailed ConfigErrorKind = iota + 1
	NoToolsConfigured
)

func (k ConfigErrorKind) String() string {
	switch k {
	case FetchFailed:
		return "failed to fetch configuration"
	case NoToolsConfigured:
		return "no tools configured for this project"
	default:
		return "unknown configuration error"
	}
}

// ConfigError reports a configuration that could not be obtained or used.
type ConfigError struct {
	Kind       ConfigErrorKind
	StatusCode int
	Err        error
}

func (e *ConfigError) Error() string {
	msg := e.Kind.String()
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": http status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// SubmissionError reports an artifact the backend did not accept.
// StatusCode is 0 when no response was received.
type SubmissionError struct {
	StatusCode int
	Err        error
}

func (e *SubmissionError) Error() string {
	msg := "failed to submit artifact"
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": http status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
