package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/amplify-runner/pkg/amplify"
	"github.com/user/amplify-runner/pkg/auth"
	"github.com/user/amplify-runner/pkg/config"
	"github.com/user/amplify-runner/pkg/httpclient"
	"github.com/user/amplify-runner/pkg/logging"
	"github.com/user/amplify-runner/pkg/pipeline"
	"github.com/user/amplify-runner/pkg/tools"
)

var rootCmd = &cobra.Command{
	Use:   "amplify-runner",
	Short: "Run Amplify Security scans from a CI job",
	Long: `amplify-runner authenticates the CI job with Amplify Security using the
platform's OIDC identity, fetches the project's tool configuration, runs
each configured scanner and submits the results.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPipeline,
}

var (
	DebugMode  bool
	overrides  config.Overrides
	configPath string
)

// Execute adds all child commands to the root command and sets flags appropriately.
// SIGINT and SIGTERM cancel the run and any scanner it started.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	cobra.CheckErr(err)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&DebugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&overrides.CI, "ci", "", "CI environment (github, gitlab, local); detected when omitted")
	rootCmd.PersistentFlags().StringVar(&overrides.Endpoint, "endpoint", "", "Amplify API endpoint (default "+config.DefaultEndpoint+")")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (env "+config.EnvConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&overrides.WorkDir, "workdir", "", "Checkout to scan (default \".\")")
}

// loadSettings reads the environment once and resolves it together with
// the config file and flags.
func loadSettings() (config.Settings, error) {
	env := config.FromOS()
	path := configPath
	if path == "" {
		path = env.Get(config.EnvConfigPath)
	}
	file, err := config.LoadFile(path)
	if err != nil {
		return config.Settings{}, err
	}
	return config.Resolve(env, file, overrides)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	logging.DebugEnabled = DebugMode
	logger := logging.New(cmd.ErrOrStderr())

	settings, err := loadSettings()
	if err != nil {
		return err
	}

	httpClient := httpclient.New(logger)
	provider, err := auth.NewProvider(settings, httpClient, logger)
	if err != nil {
		return err
	}
	backend := amplify.NewClient(logger, httpClient, settings.Endpoint, UserAgent())

	groups := logging.Groups{Out: cmd.OutOrStdout(), Enabled: settings.CI == config.CIGitHub}
	deps := tools.Deps{
		HTTP:       httpClient,
		Logger:     logger,
		Runner:     &tools.ExecRunner{Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()},
		Groups:     groups,
		SearchPath: settings.SearchPath,
		WorkDir:    settings.WorkDir,
	}
	newTool := func(kind tools.Kind) (tools.Tool, error) {
		return tools.New(kind, deps)
	}

	p := pipeline.New(settings, provider, backend, newTool, logger, pipeline.WithGroups(groups))
	_, err = p.Run(cmd.Context())
	return err
}
