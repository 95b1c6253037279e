package tools

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	OpengrepVersion = "1.9.1"
	// SHA-256 of opengrep_musllinux_x86 from the opengrep release page.
	OpengrepChecksum = "d2ccdaf540b865b8bd54902b2c7e66dc5893e13577ff50eb0fb278ca60ef8500"
	OpengrepRulesURL = "https://github.com/amplify-security/opengrep-rules/releases/download/latest/rules.json"

	opengrepBinaryName = "opengrep_musllinux_x86"
	// Opengrep follows Semgrep's convention: 1 means the scan ran and
	// found issues.
	opengrepFindingsExitCode = 1
)

// Opengrep runs the Opengrep engine, which serves the SEMGREP tool kind.
type Opengrep struct {
	BinaryURL  string
	BinaryPath string
	Checksum   string
	RulesURL   string
	RulesPath  string
	// ExtraPath is appended to PATH when scanning.
	ExtraPath string

	deps Deps
}

func NewOpengrep(deps Deps) *Opengrep {
	return &Opengrep{
		BinaryURL:  "https://github.com/opengrep/opengrep/releases/download/v" + OpengrepVersion + "/" + opengrepBinaryName,
		BinaryPath: "/usr/bin/opengrep",
		Checksum:   OpengrepChecksum,
		RulesURL:   OpengrepRulesURL,
		RulesPath:  "/ruleset.json",
		ExtraPath:  "/opengrep/bin",
		deps:       deps,
	}
}

func (o *Opengrep) Name() string {
	return "opengrep"
}

// Setup downloads and verifies the binary, then fetches the ruleset. A
// binary that fails verification is never written to BinaryPath.
func (o *Opengrep) Setup(ctx context.Context) error {
	defer o.deps.Groups.Start("opengrep install")()
	log := o.deps.Logger

	log.Info().Str("version", OpengrepVersion).Msg("installing opengrep")
	binary, err := download(ctx, o.deps.HTTP, o.BinaryURL)
	if err != nil {
		return &ToolError{Tool: o.Name(), Kind: SetupFailed, Err: fmt.Errorf("failed to fetch Opengrep binary: %w", err)}
	}
	if err := VerifyChecksum(binary, o.Checksum); err != nil {
		return &ToolError{Tool: o.Name(), Kind: ChecksumMismatch,
			Err: fmt.Errorf("downloaded Opengrep binary failed checksum verification: %w", err)}
	}
	if err := installFile(o.BinaryPath, binary, 0o755); err != nil {
		return &ToolError{Tool: o.Name(), Kind: SetupFailed, Err: fmt.Errorf("installing %s: %w", o.BinaryPath, err)}
	}
	log.Debug().Str("path", o.BinaryPath).Int("bytes", len(binary)).Msg("opengrep binary installed")

	rules, err := download(ctx, o.deps.HTTP, o.RulesURL)
	if err != nil {
		return &ToolError{Tool: o.Name(), Kind: SetupFailed, Err: fmt.Errorf("failed to fetch Amplify ruleset for Opengrep: %w", err)}
	}
	if err := installFile(o.RulesPath, rules, 0o644); err != nil {
		return &ToolError{Tool: o.Name(), Kind: SetupFailed, Err: fmt.Errorf("writing ruleset: %w", err)}
	}

	log.Info().Msg("completed opengrep installation")
	return nil
}

func (o *Opengrep) Launch(ctx context.Context) (Artifact, error) {
	defer o.deps.Groups.Start("opengrep ci (scan job)")()
	log := o.deps.Logger

	// Switch --json to --sarif and the content type once the backend
	// ingests SARIF artifacts.
	cmd := Command{
		Path: o.BinaryPath,
		Args: []string{"ci", "--json", "--oss-only"},
		Dir:  o.deps.WorkDir,
		Env: map[string]string{
			"PATH":                      joinPath(o.deps.SearchPath, o.ExtraPath),
			"SEMGREP_RULES":             o.RulesPath,
			"SEMGREP_IN_DOCKER":         "1",
			"SEMGREP_USER_AGENT_APPEND": "Docker",
		},
		CaptureStdout: true,
	}

	log.Info().Str("binary", cmd.Path).Strs("args", cmd.Args).Msg("started opengrep scan")
	res, err := o.deps.Runner.Run(ctx, cmd)
	if err != nil {
		return Artifact{}, &ToolError{Tool: o.Name(), Kind: ScanFailed, Err: fmt.Errorf("failed to start Opengrep scan: %w", err)}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Artifact{}, &ToolError{Tool: o.Name(), Kind: ScanFailed, ExitCode: res.ExitCode, Err: ctxErr}
	}
	log.Info().Int("exitCode", res.ExitCode).Bool("signaled", res.Signaled).Msg("finished opengrep scan")

	if err := Classify(o.Name(), res, opengrepFindingsExitCode); err != nil {
		return Artifact{}, err
	}
	if !utf8.Valid(res.Stdout) {
		return Artifact{}, &ToolError{Tool: o.Name(), Kind: InvalidOutputEncoding,
			Err: errors.New("failed to read stdout from Opengrep as UTF-8")}
	}
	return Artifact{ContentType: ContentTypeJSON, Payload: res.Stdout}, nil
}

func joinPath(base, extra string) string {
	switch {
	case base == "":
		return extra
	case extra == "":
		return base
	default:
		return base + ":" + extra
	}
}
