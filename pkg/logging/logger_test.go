package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupsWritesMarkersWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	g := Groups{Out: &buf, Enabled: true}

	end := g.Start("opengrep install")
	buf.WriteString("installing\n")
	end()

	assert.Equal(t, "::group::opengrep install\ninstalling\n::endgroup::\n", buf.String())
}

func TestGroupsDisabledIsSilent(t *testing.T) {
	var buf bytes.Buffer
	g := Groups{Out: &buf}

	g.Start("anything")()

	assert.Empty(t, buf.String())
}

func TestNewRespectsDebugFlag(t *testing.T) {
	var buf bytes.Buffer

	DebugEnabled = false
	New(&buf).Debug().Msg("hidden")
	assert.Empty(t, buf.String())

	DebugEnabled = true
	defer func() { DebugEnabled = false }()
	New(&buf).Debug().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
