package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured means the CI job does not expose what a provider
	// needs, as opposed to the provider being unreachable.
	ErrNotConfigured = errors.New("environment not configured for identity federation")

	ErrUnsupportedEnvironment = errors.New("this CI environment is currently unsupported")
)

type ErrorKind int

const (
	ProviderTokenUnavailable ErrorKind = iota + 1
	ExchangeRejected
)

func (k ErrorKind) String() string {
	switch k {
	case ProviderTokenUnavailable:
		return "provider token unavailable"
	case ExchangeRejected:
		return "token exchange rejected"
	default:
		return "unknown auth error"
	}
}

// AuthError reports a failure to obtain or exchange an identity.
type AuthError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("%s (%s)", e.Kind, e.Provider)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": http status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func unavailable(provider string, err error) *AuthError {
	return &AuthError{Provider: provider, Kind: ProviderTokenUnavailable, Err: err}
}

// IsNotConfigured reports whether err stems from missing CI configuration.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}
