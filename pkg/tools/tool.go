// Package tools runs the static-analysis tools a project is configured
// for. Every tool goes through Setup then Launch; Launch yields the
// Artifact submitted to the backend.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/user/amplify-runner/pkg/httpclient"
	"github.com/user/amplify-runner/pkg/logging"
)

// Kind names a tool as the backend's configuration API spells it.
type Kind string

const (
	// KindSemgrep is served by the Opengrep engine.
	KindSemgrep Kind = "SEMGREP"
	KindUname   Kind = "UNAME"
)

func (k Kind) Valid() bool {
	switch k {
	case KindSemgrep, KindUname:
		return true
	}
	return false
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("tool kind must be a string: %w", err)
	}
	if !Kind(s).Valid() {
		return fmt.Errorf("unknown tool kind %q", s)
	}
	*k = Kind(s)
	return nil
}

// Tool is one configured scanner.
type Tool interface {
	Name() string
	// Setup installs whatever the tool needs. Any failure is fatal.
	Setup(ctx context.Context) error
	Launch(ctx context.Context) (Artifact, error)
}

// Deps are the shared collaborators handed to every tool.
type Deps struct {
	HTTP   *httpclient.Client
	Logger *zerolog.Logger
	Runner CommandRunner
	Groups logging.Groups
	// SearchPath is the PATH the runner was started with.
	SearchPath string
	// WorkDir is the checkout to scan.
	WorkDir string
}

// New maps a configured kind to a fresh tool instance.
func New(kind Kind, deps Deps) (Tool, error) {
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	if deps.Runner == nil {
		deps.Runner = &ExecRunner{}
	}

	switch kind {
	case KindSemgrep:
		return NewOpengrep(deps), nil
	case KindUname:
		return &Uname{deps: deps}, nil
	default:
		return nil, fmt.Errorf("unsupported tool kind %q", kind)
	}
}
