// Package amplify talks to the Amplify backend: it exchanges a CI identity
// for a backend credential, fetches the project configuration and submits
// scan artifacts.
package amplify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/user/amplify-runner/pkg/auth"
	"github.com/user/amplify-runner/pkg/httpclient"
	"github.com/user/amplify-runner/pkg/tools"
)

const (
	CodeLinesHeader = "X-Amplify-Code-Lines"
	RequestIDHeader = "X-Request-Id"
)

type Backend interface {
	ExchangeToken(ctx context.Context, identity auth.Identity) (Credential, error)
	FetchConfig(ctx context.Context, cred Credential) (RunConfiguration, error)
	SubmitArtifact(ctx context.Context, cred Credential, artifact tools.Artifact, codeLines int) error
}

type Client struct {
	httpClient *httpclient.Client
	logger     *zerolog.Logger
	endpoint   string
	userAgent  string
}

var _ Backend = (*Client)(nil)

func NewClient(logger *zerolog.Logger, httpClient *httpclient.Client, endpoint, userAgent string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   endpoint,
		userAgent:  userAgent,
	}
}

// ExchangeToken trades a provider token for a backend credential.
func (c *Client) ExchangeToken(ctx context.Context, identity auth.Identity) (Credential, error) {
	rejected := func(status int, err error) error {
		return &auth.AuthError{Provider: identity.Provider, Kind: auth.ExchangeRejected, StatusCode: status, Err: err}
	}

	url := c.endpoint + "/v1.0/auth/jwt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return Credential{}, rejected(0, fmt.Errorf("building token exchange request: %w", err))
	}
	c.setCommonHeaders(url, identity.Token, req)

	status, body, err := c.do(req)
	if err != nil {
		c.logger.Debug().Err(err).Msg("token exchange request HTTP error")
		return Credential{}, rejected(0, err)
	}
	if !isSuccess(status) {
		c.logger.Debug().Str("responseBody", string(body)).Int("status", status).Msg("token exchange rejected")
		return Credential{}, rejected(status, errors.New("the backend refused the CI identity token"))
	}

	var data tokenResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return Credential{}, rejected(status, fmt.Errorf("failed to decode token exchange response: %w", err))
	}
	if data.Token == "" {
		return Credential{}, rejected(status, errors.New("token exchange response carried no token"))
	}

	cred := Credential{Token: data.Token}
	if claims, ok := auth.InspectClaims(data.Token); ok {
		cred.ExpiresAt = claims.ExpiresAt
	}
	c.logger.Debug().Time("expiresAt", cred.ExpiresAt).Msg("obtained backend credential")
	return cred, nil
}

// FetchConfig loads the run configuration. A configuration without tools
// is rejected.
func (c *Client) FetchConfig(ctx context.Context, cred Credential) (RunConfiguration, error) {
	url := c.endpoint + "/v1.0/config"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return RunConfiguration{}, &ConfigError{Kind: FetchFailed, Err: err}
	}
	c.setCommonHeaders(url, cred.Token, req)

	status, body, err := c.do(req)
	if err != nil {
		return RunConfiguration{}, &ConfigError{Kind: FetchFailed, Err: err}
	}
	if !isSuccess(status) {
		c.logger.Debug().Str("responseBody", string(body)).Int("status", status).Msg("config request failed")
		return RunConfiguration{}, &ConfigError{Kind: FetchFailed, StatusCode: status}
	}

	var cfg RunConfiguration
	if err := json.Unmarshal(body, &cfg); err != nil {
		return RunConfiguration{}, &ConfigError{Kind: FetchFailed, StatusCode: status,
			Err: fmt.Errorf("failed to decode configuration: %w", err)}
	}
	if cfg.Deleted {
		c.logger.Warn().Msg("the backend reports this project as deleted")
	}
	if len(cfg.Tools) == 0 {
		return RunConfiguration{}, &ConfigError{Kind: NoToolsConfigured}
	}

	c.logger.Debug().Interface("tools", cfg.Tools).
		Bool("mergeComments", cfg.MergeCommentsEnabled).
		Bool("mergeApprovals", cfg.MergeApprovalsEnabled).
		Msg("fetched configuration")
	return cfg, nil
}

// SubmitArtifact uploads one artifact. The retrying client already covers
// transient failures, so a rejection here is final.
func (c *Client) SubmitArtifact(ctx context.Context, cred Credential, artifact tools.Artifact, codeLines int) error {
	url := c.endpoint + "/v1.0/artifact"
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(artifact.Payload))
	if err != nil {
		return &SubmissionError{Err: err}
	}
	c.setCommonHeaders(url, cred.Token, req)
	req.Header.Set("Content-Type", artifact.ContentType.MIME())
	req.Header.Set(CodeLinesHeader, strconv.Itoa(codeLines))

	status, body, err := c.do(req)
	if err != nil {
		return &SubmissionError{Err: err}
	}
	if !isSuccess(status) {
		c.logger.Debug().Str("responseBody", string(body)).Int("status", status).Msg("artifact rejected")
		return &SubmissionError{StatusCode: status}
	}

	c.logger.Info().Int("bytes", len(artifact.Payload)).Str("contentType", artifact.ContentType.MIME()).Msg("submitted artifact")
	return nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) setCommonHeaders(url, token string, req *http.Request) {
	requestID := uuid.New().String()
	c.logger.Debug().Msgf("making amplify api request to url: %s, requestId: %s", url, requestID)
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}
