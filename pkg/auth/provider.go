// Package auth obtains a CI platform identity token. Each supported
// platform is a Provider; NewProvider picks one from the resolved settings.
package auth

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/user/amplify-runner/pkg/config"
	"github.com/user/amplify-runner/pkg/httpclient"
)

// Identity is a provider-native bearer token and the audience it was
// minted for.
type Identity struct {
	Provider string
	Token    string
	Audience string
}

type Provider interface {
	Name() string
	Token(ctx context.Context) (Identity, error)
}

func NewProvider(settings config.Settings, client *httpclient.Client, logger *zerolog.Logger) (Provider, error) {
	switch settings.CI {
	case config.CILocal:
		return &LocalProvider{}, nil
	case config.CIGitHub:
		return &GitHubProvider{
			RequestURL:   settings.GitHub.RequestURL,
			RequestToken: settings.GitHub.RequestToken,
			Audience:     settings.Endpoint,
			Client:       client,
			Logger:       logger,
		}, nil
	case config.CIGitLab:
		return &GitLabProvider{IDToken: settings.GitLab.IDToken}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEnvironment, settings.CI)
	}
}
