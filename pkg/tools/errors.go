package tools

import "fmt"

type ErrorKind int

const (
	ChecksumMismatch ErrorKind = iota + 1
	SetupFailed
	ScanFailed
	InvalidOutputEncoding
)

func (k ErrorKind) String() string {
	switch k {
	case ChecksumMismatch:
		return "checksum mismatch"
	case SetupFailed:
		return "setup failed"
	case ScanFailed:
		return "scan failed"
	case InvalidOutputEncoding:
		return "invalid output encoding"
	default:
		return "unknown tool error"
	}
}

// ToolError reports a failed Setup or Launch. ExitCode is -1 when the
// process was killed by a signal and 0 when no process ran.
type ToolError struct {
	Tool     string
	Kind     ErrorKind
	ExitCode int
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Tool, e.Kind)
	if e.Kind == ScanFailed && e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code %d)", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	return e.Err
}
