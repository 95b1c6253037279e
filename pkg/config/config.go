package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const DefaultEndpoint = "https://api.amplify.security"

// Environment variable names read by the runner.
const (
	EnvEndpoint           = "AMPLIFY_ENDPOINT"
	EnvConfigPath         = "AMPLIFY_RUNNER_CONFIG"
	EnvGitLabIDToken      = "AMPLIFY_ID_TOKEN"
	EnvGitHubRequestURL   = "ACTIONS_ID_TOKEN_REQUEST_URL"
	EnvGitHubRequestToken = "ACTIONS_ID_TOKEN_REQUEST_TOKEN"
	EnvGitHubActions      = "GITHUB_ACTIONS"
	EnvGitLabCI           = "GITLAB_CI"
	EnvPath               = "PATH"
)

// CI environments.
const (
	CIGitHub = "github"
	CIGitLab = "gitlab"
	CILocal  = "local"
)

var ErrUnknownCI = errors.New("CI environment is unknown, you may need to specify one via --ci")

// Environment is a snapshot of the process environment taken once at startup.
type Environment map[string]string

// FromOS snapshots os.Environ.
func FromOS() Environment {
	env := Environment{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			env[k] = v
		}
	}
	return env
}

func (e Environment) Get(key string) string {
	return e[key]
}

// DetectCI guesses the CI platform from variables the platforms set.
func (e Environment) DetectCI() string {
	if e.Get(EnvGitHubActions) == "true" {
		return CIGitHub
	}
	if e.Get(EnvGitLabCI) == "true" {
		return CIGitLab
	}
	return ""
}

// File is the optional YAML config file.
type File struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	CI       string `yaml:"ci,omitempty"`
	WorkDir  string `yaml:"workdir,omitempty"`
}

// LoadFile reads path. An empty path or a missing file yields an empty File.
func LoadFile(path string) (*File, error) {
	if path == "" {
		return &File{}, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &File{}, nil
	}
	if err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &f, nil
}

type GitHubSettings struct {
	RequestURL   string `yaml:"request_url,omitempty"`
	RequestToken string `yaml:"-"`
}

type GitLabSettings struct {
	IDToken string `yaml:"-"`
}

// Settings is everything a run needs from its surroundings, resolved once
// and passed down explicitly.
type Settings struct {
	CI         string         `yaml:"ci" validate:"required,oneof=github gitlab local"`
	Endpoint   string         `yaml:"endpoint" validate:"required,url"`
	WorkDir    string         `yaml:"workdir" validate:"required"`
	SearchPath string         `yaml:"path"`
	GitHub     GitHubSettings `yaml:"github"`
	GitLab     GitLabSettings `yaml:"-"`
}

// Overrides carries values given on the command line.
type Overrides struct {
	CI       string
	Endpoint string
	WorkDir  string
}

// Resolve merges flags, environment, file and defaults, in that order of
// precedence, and validates the result.
func Resolve(env Environment, file *File, flags Overrides) (Settings, error) {
	if file == nil {
		file = &File{}
	}
	s := Settings{
		CI:         firstNonEmpty(flags.CI, file.CI, env.DetectCI()),
		Endpoint:   firstNonEmpty(flags.Endpoint, env.Get(EnvEndpoint), file.Endpoint, DefaultEndpoint),
		WorkDir:    firstNonEmpty(flags.WorkDir, file.WorkDir, "."),
		SearchPath: env.Get(EnvPath),
		GitHub: GitHubSettings{
			RequestURL:   env.Get(EnvGitHubRequestURL),
			RequestToken: env.Get(EnvGitHubRequestToken),
		},
		GitLab: GitLabSettings{
			IDToken: env.Get(EnvGitLabIDToken),
		},
	}
	s.CI = strings.ToLower(s.CI)
	s.Endpoint = strings.TrimRight(s.Endpoint, "/")

	if s.CI == "" {
		return s, ErrUnknownCI
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

var validate = validator.New()

func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid setting %s=%q (%s)", strings.ToLower(fe.Field()), fe.Value(), fe.Tag())
		}
		return err
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
