// Package findings normalizes scanner output so a run can report what it
// found before the artifact is submitted.
package findings

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/user/amplify-runner/pkg/tools"
)

// Finding is one result, normalized across output formats.
type Finding struct {
	RuleID   string `json:"rule_id"`
	Severity string `json:"severity"` // lowercased as reported by the tool
	File     string `json:"file"`
	Line     int    `json:"line"`
	Message  string `json:"message"`
}

// Summary counts what an artifact contains.
type Summary struct {
	Findings   []Finding
	Errors     int
	BySeverity map[string]int
}

func (s Summary) Total() int {
	return len(s.Findings)
}

// Severities lists the severities present, sorted.
func (s Summary) Severities() []string {
	out := make([]string, 0, len(s.BySeverity))
	for sev := range s.BySeverity {
		out = append(out, sev)
	}
	sort.Strings(out)
	return out
}

// Semgrep-compatible JSON, as written by `opengrep ci --json`.
type semgrepOutput struct {
	Results []semgrepResult   `json:"results"`
	Errors  []json.RawMessage `json:"errors"`
}

type semgrepResult struct {
	CheckID string `json:"check_id"`
	Path    string `json:"path"`
	Start   struct {
		Line int `json:"line"`
	} `json:"start"`
	Extra struct {
		Message  string `json:"message"`
		Severity string `json:"severity"`
	} `json:"extra"`
}

// Summarize parses an artifact payload. An empty payload has nothing to
// report and yields an empty summary.
func Summarize(a tools.Artifact) (Summary, error) {
	if len(a.Payload) == 0 {
		return Summary{BySeverity: map[string]int{}}, nil
	}

	var (
		found    []Finding
		errCount int
		err      error
	)
	switch a.ContentType {
	case tools.ContentTypeSARIF:
		found, err = normalizeSARIF(a.Payload)
	default:
		found, errCount, err = normalizeSemgrep(a.Payload)
	}
	if err != nil {
		return Summary{}, fmt.Errorf("parsing %s artifact: %w", a.ContentType, err)
	}

	s := Summary{Findings: found, Errors: errCount, BySeverity: map[string]int{}}
	for _, f := range found {
		s.BySeverity[f.Severity]++
	}
	return s, nil
}

func normalizeSemgrep(raw []byte) ([]Finding, int, error) {
	var o semgrepOutput
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, 0, err
	}
	out := make([]Finding, 0, len(o.Results))
	for _, r := range o.Results {
		out = append(out, Finding{
			RuleID:   r.CheckID,
			Severity: severity(r.Extra.Severity),
			File:     r.Path,
			Line:     r.Start.Line,
			Message:  r.Extra.Message,
		})
	}
	return out, len(o.Errors), nil
}

func normalizeSARIF(raw []byte) ([]Finding, error) {
	report, err := sarif.FromBytes(raw)
	if err != nil {
		return nil, err
	}
	var out []Finding
	for _, run := range report.Runs {
		if run == nil {
			continue
		}
		for _, r := range run.Results {
			if r == nil {
				continue
			}
			f := Finding{RuleID: deref(r.RuleID), Severity: severity(deref(r.Level)), Message: deref(r.Message.Text)}
			if len(r.Locations) > 0 && r.Locations[0] != nil {
				if loc := r.Locations[0].PhysicalLocation; loc != nil {
					if loc.ArtifactLocation != nil {
						f.File = deref(loc.ArtifactLocation.URI)
					}
					if loc.Region != nil && loc.Region.StartLine != nil {
						f.Line = *loc.Region.StartLine
					}
				}
			}
			out = append(out, f)
		}
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func severity(s string) string {
	if s == "" {
		return "unknown"
	}
	return strings.ToLower(s)
}
