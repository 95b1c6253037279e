package amplify

import (
	"time"

	"github.com/user/amplify-runner/pkg/tools"
)

// Credential is the backend JWT obtained by exchanging a provider token.
// It is reused for every later call of the run and never refreshed.
type Credential struct {
	Token string
	// ExpiresAt is zero when the token carries no readable expiry.
	ExpiresAt time.Time
}

// RunConfiguration is the per-project configuration served by the backend.
type RunConfiguration struct {
	Tools                 []tools.Kind `json:"tools"`
	MergeCommentsEnabled  bool         `json:"merge_comments_enabled"`
	MergeApprovalsEnabled bool         `json:"merge_approvals_enabled"`
	Deleted               bool         `json:"deleted"`
}

type tokenResponse struct {
	Token string `json:"token"`
}
