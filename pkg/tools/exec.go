package tools

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"slices"
	"sort"
	"strings"
)

// Command describes one subprocess. Env entries override the inherited
// environment.
type Command struct {
	Path string
	Args []string
	// Dir is the working directory; empty means the runner's own.
	Dir           string
	Env           map[string]string
	CaptureStdout bool
}

// Result is what a finished subprocess left behind.
type Result struct {
	Stdout   []byte
	ExitCode int
	// Signaled is set when the process was terminated by a signal and has
	// no exit code.
	Signaled bool
}

type CommandRunner interface {
	// Run executes c to completion. A non-zero exit is reported in Result,
	// not as an error; errors mean the process could not be run at all.
	Run(ctx context.Context, c Command) (Result, error)
}

// ExecRunner runs commands with os/exec. Stderr always passes through;
// stdout passes through unless captured.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = mergeEnv(os.Environ(), c.Env)
	cmd.Stderr = writerOr(r.Stderr, os.Stderr)

	var stdout bytes.Buffer
	if c.CaptureStdout {
		cmd.Stdout = &stdout
	} else {
		cmd.Stdout = writerOr(r.Stdout, os.Stdout)
	}

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{}, err
		}
		res.ExitCode = exitErr.ExitCode()
		res.Signaled = res.ExitCode == -1
	}
	return res, nil
}

// Classify applies the exit-code policy: 0 and the tool's own "findings
// found" codes are success, anything else (or a signal) is ScanFailed.
func Classify(tool string, res Result, findingsCodes ...int) error {
	if res.Signaled {
		return &ToolError{Tool: tool, Kind: ScanFailed, ExitCode: -1,
			Err: errors.New("scan was prematurely terminated by an external signal")}
	}
	if res.ExitCode == 0 || slices.Contains(findingsCodes, res.ExitCode) {
		return nil
	}
	return &ToolError{Tool: tool, Kind: ScanFailed, ExitCode: res.ExitCode}
}

func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	env := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		k, _, _ := strings.Cut(kv, "=")
		if _, replaced := overrides[k]; !replaced {
			env = append(env, kv)
		}
	}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+overrides[k])
	}
	return env
}

func writerOr(w, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}
