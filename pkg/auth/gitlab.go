package auth

import (
	"context"
	"fmt"
)

// GitLabProvider reads the ID token GitLab mints per pipeline from the
// id_tokens section of the job definition.
type GitLabProvider struct {
	IDToken string
}

func (p *GitLabProvider) Name() string {
	return "gitlab"
}

func (p *GitLabProvider) Token(_ context.Context) (Identity, error) {
	if p.IDToken == "" {
		return Identity{}, unavailable(p.Name(),
			fmt.Errorf("%w: AMPLIFY_ID_TOKEN is not set, add it under id_tokens in the job", ErrNotConfigured))
	}
	return Identity{Provider: p.Name(), Token: p.IDToken}, nil
}
