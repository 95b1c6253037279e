package tools_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/user/amplify-runner/mocks/toolsmock"
	"github.com/user/amplify-runner/pkg/httpclient"
	"github.com/user/amplify-runner/pkg/logging"
	"github.com/user/amplify-runner/pkg/tools"
)

type fakeRunner struct {
	result tools.Result
	err    error
	got    []tools.Command
}

func (f *fakeRunner) Run(_ context.Context, c tools.Command) (tools.Result, error) {
	f.got = append(f.got, c)
	return f.result, f.err
}

func sha(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func testDeps(runner tools.CommandRunner) tools.Deps {
	return tools.Deps{
		HTTP: httpclient.New(logging.Nop(),
			httpclient.WithInitialInterval(5*time.Millisecond),
			httpclient.WithMaxElapsedTime(50*time.Millisecond)),
		Logger:     logging.Nop(),
		Runner:     runner,
		SearchPath: "/usr/local/bin:/usr/bin",
	}
}

func requireToolError(t *testing.T, err error, kind tools.ErrorKind) *tools.ToolError {
	t.Helper()
	var toolErr *tools.ToolError
	require.True(t, errors.As(err, &toolErr), "expected *tools.ToolError, got %v", err)
	assert.Equal(t, kind, toolErr.Kind)
	return toolErr
}

func TestKindUnmarshalJSON(t *testing.T) {
	var kinds []tools.Kind
	require.NoError(t, json.Unmarshal([]byte(`["SEMGREP","UNAME"]`), &kinds))
	assert.Equal(t, []tools.Kind{tools.KindSemgrep, tools.KindUname}, kinds)

	err := json.Unmarshal([]byte(`["BANDIT"]`), &kinds)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BANDIT")

	assert.Error(t, json.Unmarshal([]byte(`[3]`), &kinds))
}

func TestNewMapsKinds(t *testing.T) {
	tool, err := tools.New(tools.KindSemgrep, tools.Deps{})
	require.NoError(t, err)
	assert.Equal(t, "opengrep", tool.Name())

	tool, err = tools.New(tools.KindUname, tools.Deps{})
	require.NoError(t, err)
	assert.Equal(t, "uname", tool.Name())

	_, err = tools.New(tools.Kind("BANDIT"), tools.Deps{})
	assert.Error(t, err)
}

func TestContentTypeMIME(t *testing.T) {
	assert.Equal(t, "application/json", tools.ContentTypeJSON.MIME())
	assert.Equal(t, "application/sarif+json", tools.ContentTypeSARIF.MIME())
}

func TestVerifyChecksum(t *testing.T) {
	data := []byte("binary")
	assert.NoError(t, tools.VerifyChecksum(data, sha(data)))
	assert.Error(t, tools.VerifyChecksum([]byte("binarY"), sha(data)))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		res      tools.Result
		findings []int
		wantErr  bool
	}{
		{name: "clean exit", res: tools.Result{ExitCode: 0}},
		{name: "findings code", res: tools.Result{ExitCode: 1}, findings: []int{1}},
		{name: "exit 1 without findings code", res: tools.Result{ExitCode: 1}, wantErr: true},
		{name: "exit 2", res: tools.Result{ExitCode: 2}, findings: []int{1}, wantErr: true},
		{name: "signal", res: tools.Result{ExitCode: -1, Signaled: true}, findings: []int{1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tools.Classify("scanner", tt.res, tt.findings...)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			requireToolError(t, err, tools.ScanFailed)
		})
	}
}

func newOpengrep(t *testing.T, serverURL string, runner tools.CommandRunner, checksum string) *tools.Opengrep {
	t.Helper()
	dir := t.TempDir()
	o := tools.NewOpengrep(testDeps(runner))
	o.BinaryURL = serverURL + "/opengrep"
	o.RulesURL = serverURL + "/rules.json"
	o.BinaryPath = filepath.Join(dir, "bin", "opengrep")
	o.RulesPath = filepath.Join(dir, "ruleset.json")
	o.Checksum = checksum
	return o
}

func releaseServer(t *testing.T, binary, rules []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/opengrep", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(binary)
	})
	mux.HandleFunc("/rules.json", func(w http.ResponseWriter, r *http.Request) {
		if rules == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(rules)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestOpengrepDefaults(t *testing.T) {
	o := tools.NewOpengrep(tools.Deps{})
	assert.Equal(t, "https://github.com/opengrep/opengrep/releases/download/v1.9.1/opengrep_musllinux_x86", o.BinaryURL)
	assert.Equal(t, "/usr/bin/opengrep", o.BinaryPath)
	assert.Equal(t, "/ruleset.json", o.RulesPath)
	assert.Equal(t, tools.OpengrepChecksum, o.Checksum)
}

func TestOpengrepSetupInstallsBinaryAndRules(t *testing.T) {
	binary := []byte("#!/bin/sh\necho '{}'\n")
	rules := []byte(`{"rules":[]}`)
	server := releaseServer(t, binary, rules)
	o := newOpengrep(t, server.URL, &fakeRunner{}, sha(binary))

	require.NoError(t, o.Setup(context.Background()))

	got, err := os.ReadFile(o.BinaryPath)
	require.NoError(t, err)
	assert.Equal(t, binary, got)
	info, err := os.Stat(o.BinaryPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	got, err = os.ReadFile(o.RulesPath)
	require.NoError(t, err)
	assert.Equal(t, rules, got)
}

func TestOpengrepSetupRejectsTamperedBinary(t *testing.T) {
	binary := []byte("#!/bin/sh\necho '{}'\n")
	tampered := bytes.Clone(binary)
	tampered[len(tampered)-2] = 'X'
	server := releaseServer(t, tampered, []byte(`{}`))
	o := newOpengrep(t, server.URL, &fakeRunner{}, sha(binary))

	err := o.Setup(context.Background())
	requireToolError(t, err, tools.ChecksumMismatch)

	_, statErr := os.Stat(o.BinaryPath)
	assert.True(t, os.IsNotExist(statErr), "tampered binary must not be installed")
}

func TestOpengrepSetupFailsWithoutRules(t *testing.T) {
	binary := []byte("#!/bin/sh\n")
	server := releaseServer(t, binary, nil)
	o := newOpengrep(t, server.URL, &fakeRunner{}, sha(binary))

	err := o.Setup(context.Background())
	requireToolError(t, err, tools.SetupFailed)
}

func TestOpengrepLaunch(t *testing.T) {
	runner := &fakeRunner{result: tools.Result{ExitCode: 1, Stdout: []byte(`{"results":[{}]}`)}}
	o := newOpengrep(t, "http://unused", runner, "")

	artifact, err := o.Launch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tools.ContentTypeJSON, artifact.ContentType)
	assert.Equal(t, []byte(`{"results":[{}]}`), artifact.Payload)

	require.Len(t, runner.got, 1)
	cmd := runner.got[0]
	assert.Equal(t, o.BinaryPath, cmd.Path)
	assert.Equal(t, []string{"ci", "--json", "--oss-only"}, cmd.Args)
	assert.True(t, cmd.CaptureStdout)
	assert.Equal(t, map[string]string{
		"PATH":                      "/usr/local/bin:/usr/bin:/opengrep/bin",
		"SEMGREP_RULES":             o.RulesPath,
		"SEMGREP_IN_DOCKER":         "1",
		"SEMGREP_USER_AGENT_APPEND": "Docker",
	}, cmd.Env)
}

func TestOpengrepLaunchFailures(t *testing.T) {
	tests := []struct {
		name string
		res  tools.Result
		kind tools.ErrorKind
	}{
		{name: "exit 2", res: tools.Result{ExitCode: 2}, kind: tools.ScanFailed},
		{name: "killed", res: tools.Result{ExitCode: -1, Signaled: true}, kind: tools.ScanFailed},
		{name: "invalid utf-8", res: tools.Result{Stdout: []byte{0xff, 0xfe, 0xfd}}, kind: tools.InvalidOutputEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOpengrep(t, "http://unused", &fakeRunner{result: tt.res}, "")
			_, err := o.Launch(context.Background())
			requireToolError(t, err, tt.kind)
		})
	}
}

func TestOpengrepLaunchStartFailure(t *testing.T) {
	o := newOpengrep(t, "http://unused", &fakeRunner{err: os.ErrNotExist}, "")
	_, err := o.Launch(context.Background())
	requireToolError(t, err, tools.ScanFailed)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpengrepLaunchCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := toolsmock.NewMockCommandRunner(ctrl)
	ctx, cancel := context.WithCancel(context.Background())

	runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, tools.Command) (tools.Result, error) {
		cancel()
		return tools.Result{ExitCode: -1, Signaled: true}, nil
	})

	o := newOpengrep(t, "http://unused", runner, "")
	_, err := o.Launch(ctx)
	requireToolError(t, err, tools.ScanFailed)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnameLaunch(t *testing.T) {
	runner := &fakeRunner{}
	tool, err := tools.New(tools.KindUname, testDeps(runner))
	require.NoError(t, err)

	require.NoError(t, tool.Setup(context.Background()))
	artifact, err := tool.Launch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, artifact.Payload)
	assert.Equal(t, tools.ContentTypeJSON, artifact.ContentType)

	require.Len(t, runner.got, 1)
	assert.Equal(t, "uname", runner.got[0].Path)
	assert.Equal(t, []string{"-a"}, runner.got[0].Args)
	assert.False(t, runner.got[0].CaptureStdout)
}

func TestUnameLaunchFailure(t *testing.T) {
	tool, err := tools.New(tools.KindUname, testDeps(&fakeRunner{result: tools.Result{ExitCode: 1}}))
	require.NoError(t, err)

	_, err = tool.Launch(context.Background())
	toolErr := requireToolError(t, err, tools.ScanFailed)
	assert.Equal(t, 1, toolErr.ExitCode)
}

func TestExecRunner(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
	var stdout, stderr bytes.Buffer
	runner := &tools.ExecRunner{Stdout: &stdout, Stderr: &stderr}
	ctx := context.Background()

	t.Run("captures stdout and env", func(t *testing.T) {
		res, err := runner.Run(ctx, tools.Command{
			Path:          "/bin/sh",
			Args:          []string{"-c", `printf '%s' "$SCAN_MARKER"`},
			Env:           map[string]string{"SCAN_MARKER": "marker"},
			CaptureStdout: true,
		})
		require.NoError(t, err)
		assert.Equal(t, 0, res.ExitCode)
		assert.Equal(t, "marker", string(res.Stdout))
	})

	t.Run("passes stdout through", func(t *testing.T) {
		stdout.Reset()
		res, err := runner.Run(ctx, tools.Command{Path: "/bin/sh", Args: []string{"-c", "echo hello"}})
		require.NoError(t, err)
		assert.Empty(t, res.Stdout)
		assert.Equal(t, "hello\n", stdout.String())
	})

	t.Run("reports exit code", func(t *testing.T) {
		res, err := runner.Run(ctx, tools.Command{Path: "/bin/sh", Args: []string{"-c", "exit 2"}})
		require.NoError(t, err)
		assert.Equal(t, 2, res.ExitCode)
		assert.False(t, res.Signaled)
	})

	t.Run("reports signal", func(t *testing.T) {
		res, err := runner.Run(ctx, tools.Command{Path: "/bin/sh", Args: []string{"-c", "kill -9 $$"}})
		require.NoError(t, err)
		assert.True(t, res.Signaled)
		requireToolError(t, tools.Classify("sh", res), tools.ScanFailed)
	})

	t.Run("missing binary is an error", func(t *testing.T) {
		_, err := runner.Run(ctx, tools.Command{Path: filepath.Join(t.TempDir(), "missing")})
		assert.Error(t, err)
	})
}
