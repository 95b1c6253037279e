// Package pipeline drives one runner invocation from CI identity to the
// last submitted artifact. Stages run strictly in order and the first
// failure ends the run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/user/amplify-runner/pkg/amplify"
	"github.com/user/amplify-runner/pkg/auth"
	"github.com/user/amplify-runner/pkg/config"
	"github.com/user/amplify-runner/pkg/findings"
	"github.com/user/amplify-runner/pkg/linecount"
	"github.com/user/amplify-runner/pkg/logging"
	"github.com/user/amplify-runner/pkg/tools"
)

// LocalCredential stands in for the backend credential in local mode.
const LocalCredential = "local amplify token"

// LocalConfiguration is used in local mode instead of fetching one.
func LocalConfiguration() amplify.RunConfiguration {
	return amplify.RunConfiguration{Tools: []tools.Kind{tools.KindUname}}
}

// ToolFactory builds the tool for a configured kind.
type ToolFactory func(kind tools.Kind) (tools.Tool, error)

// LineCounter measures the checkout rooted at dir.
type LineCounter func(dir string) (linecount.Stats, error)

type Pipeline struct {
	settings   config.Settings
	provider   auth.Provider
	backend    amplify.Backend
	newTool    ToolFactory
	countLines LineCounter
	logger     *zerolog.Logger
	groups     logging.Groups
}

type Option func(*Pipeline)

func WithLineCounter(c LineCounter) Option {
	return func(p *Pipeline) { p.countLines = c }
}

func WithGroups(g logging.Groups) Option {
	return func(p *Pipeline) { p.groups = g }
}

func New(
	settings config.Settings,
	provider auth.Provider,
	backend amplify.Backend,
	newTool ToolFactory,
	logger *zerolog.Logger,
	opts ...Option,
) *Pipeline {
	if logger == nil {
		logger = logging.Nop()
	}
	p := &Pipeline{
		settings:   settings,
		provider:   provider,
		backend:    backend,
		newTool:    newTool,
		countLines: linecount.Count,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ToolReport describes one completed tool.
type ToolReport struct {
	Kind     tools.Kind
	Tool     string
	Bytes    int
	Findings int
}

// Report is the outcome of a successful run.
type Report struct {
	RunID     string
	CodeLines int
	Tools     []ToolReport
	Duration  time.Duration
}

// Run executes every stage. Errors are wrapped with the stage that
// produced them.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	report := Report{RunID: uuid.New().String()}
	log := p.logger.With().Str("runId", report.RunID).Logger()
	local := p.settings.CI == config.CILocal

	log.Info().Str("ci", p.settings.CI).Str("endpoint", p.settings.Endpoint).Msg("starting amplify runner")

	identity, err := p.provider.Token(ctx)
	if err != nil {
		return report, fmt.Errorf("identity: %w", err)
	}
	log.Debug().Str("provider", identity.Provider).Msg("obtained CI identity token")
	if claims, ok := auth.InspectClaims(identity.Token); ok {
		log.Debug().Str("issuer", claims.Issuer).Str("subject", claims.Subject).
			Strs("audience", claims.Audience).
			Time("issuedAt", claims.IssuedAt).Time("expiresAt", claims.ExpiresAt).
			Msg("identity token claims")
	}

	var (
		cred amplify.Credential
		cfg  amplify.RunConfiguration
	)
	if local {
		log.Info().Msg("local mode: skipping token exchange and configuration fetch")
		cred = amplify.Credential{Token: LocalCredential}
		cfg = LocalConfiguration()
	} else {
		cred, err = p.backend.ExchangeToken(ctx, identity)
		if err != nil {
			return report, fmt.Errorf("token exchange: %w", err)
		}
		cfg, err = p.backend.FetchConfig(ctx, cred)
		if err != nil {
			return report, fmt.Errorf("configuration: %w", err)
		}
	}
	log.Info().Interface("tools", cfg.Tools).Msg("retrieved configuration")

	report.CodeLines = p.codeLines(&log)

	for _, kind := range cfg.Tools {
		tr, err := p.runTool(ctx, &log, kind, cred, report.CodeLines)
		if err != nil {
			return report, err
		}
		report.Tools = append(report.Tools, tr)
	}

	report.Duration = time.Since(start)
	log.Info().Int("tools", len(report.Tools)).Dur("duration", report.Duration).Msg("amplify runner finished")
	return report, nil
}

func (p *Pipeline) runTool(ctx context.Context, log *zerolog.Logger, kind tools.Kind, cred amplify.Credential, codeLines int) (ToolReport, error) {
	tool, err := p.newTool(kind)
	if err != nil {
		return ToolReport{}, fmt.Errorf("tool %s: %w", kind, err)
	}
	tr := ToolReport{Kind: kind, Tool: tool.Name()}

	if err := tool.Setup(ctx); err != nil {
		return tr, fmt.Errorf("setup %s: %w", tr.Tool, err)
	}
	artifact, err := tool.Launch(ctx)
	if err != nil {
		return tr, fmt.Errorf("launch %s: %w", tr.Tool, err)
	}
	tr.Bytes = len(artifact.Payload)

	if summary, err := findings.Summarize(artifact); err != nil {
		log.Warn().Err(err).Str("tool", tr.Tool).Msg("could not summarize artifact")
	} else {
		tr.Findings = summary.Total()
		ev := log.Info().Str("tool", tr.Tool).Int("findings", summary.Total()).Int("errors", summary.Errors)
		for _, sev := range summary.Severities() {
			ev = ev.Int(sev, summary.BySeverity[sev])
		}
		ev.Msg("scan summary")
	}

	if err := p.backend.SubmitArtifact(ctx, cred, artifact, codeLines); err != nil {
		return tr, fmt.Errorf("submit %s: %w", tr.Tool, err)
	}
	return tr, nil
}

// codeLines never fails the run; an unreadable checkout counts as zero.
func (p *Pipeline) codeLines(log *zerolog.Logger) int {
	done := p.groups.Start("count lines of code")
	defer done()

	stats, err := p.countLines(p.settings.WorkDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", p.settings.WorkDir).Msg("could not count lines of code")
		return 0
	}
	if len(stats.Skipped) > 0 {
		log.Debug().Strs("skipped", stats.Skipped).Msg("files skipped while counting")
	}
	log.Info().Int("codeLines", stats.Code).Int("files", stats.Files).Msg("counted lines of code")
	if ev := log.Debug(); ev.Enabled() {
		byLang := zerolog.Dict()
		for name, code := range stats.ByLanguage {
			byLang.Int(name, code)
		}
		ev.Int("comments", stats.Comments).Int("blanks", stats.Blanks).
			Dict("byLanguage", byLang).Msg("line count breakdown")
	}
	return stats.Code
}
