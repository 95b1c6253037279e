package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/user/amplify-runner/pkg/httpclient"
)

// GitHubProvider requests an OIDC token from the GitHub Actions token
// service. The job needs `permissions: id-token: write`.
type GitHubProvider struct {
	RequestURL   string
	RequestToken string
	Audience     string
	Client       *httpclient.Client
	Logger       *zerolog.Logger
}

type idTokenResponse struct {
	Value string `json:"value"`
}

func (p *GitHubProvider) Name() string {
	return "github"
}

func (p *GitHubProvider) Token(ctx context.Context) (Identity, error) {
	if p.RequestToken == "" {
		return Identity{}, unavailable(p.Name(), fmt.Errorf(
			"%w: could not find ACTIONS_ID_TOKEN_REQUEST_TOKEN, ensure the workflow has a permissions setting with `id-token: write`",
			ErrNotConfigured))
	}
	if p.RequestURL == "" {
		return Identity{}, unavailable(p.Name(),
			fmt.Errorf("%w: could not find ACTIONS_ID_TOKEN_REQUEST_URL", ErrNotConfigured))
	}

	reqURL, err := p.tokenURL()
	if err != nil {
		return Identity{}, unavailable(p.Name(), err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return Identity{}, unavailable(p.Name(), fmt.Errorf("building id token request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+p.RequestToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return Identity{}, unavailable(p.Name(), fmt.Errorf("couldn't get ID token from GitHub: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Identity{}, unavailable(p.Name(), fmt.Errorf("reading id token response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.logger().Debug().Str("responseBody", string(body)).Int("status", resp.StatusCode).Msg("id token request rejected")
		return Identity{}, &AuthError{
			Provider:   p.Name(),
			Kind:       ProviderTokenUnavailable,
			StatusCode: resp.StatusCode,
			Err:        errors.New("failed to mint an OIDC token from GitHub"),
		}
	}

	var data idTokenResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return Identity{}, unavailable(p.Name(), fmt.Errorf("failed to process id token response body: %w", err))
	}
	if data.Value == "" {
		return Identity{}, unavailable(p.Name(), errors.New("id token response carried no value"))
	}

	if claims, ok := InspectClaims(data.Value); ok {
		p.logger().Debug().
			Str("subject", claims.Subject).
			Strs("audience", claims.Audience).
			Time("issuedAt", claims.IssuedAt).
			Time("expiresAt", claims.ExpiresAt).
			Msg("received GitHub OIDC token")
	}
	return Identity{Provider: p.Name(), Token: data.Value, Audience: p.Audience}, nil
}

func (p *GitHubProvider) logger() *zerolog.Logger {
	if p.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return p.Logger
}

func (p *GitHubProvider) tokenURL() (string, error) {
	u, err := url.Parse(p.RequestURL)
	if err != nil {
		return "", fmt.Errorf("invalid ACTIONS_ID_TOKEN_REQUEST_URL: %w", err)
	}
	q := u.Query()
	q.Set("audience", p.Audience)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
