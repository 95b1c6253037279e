package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/amplify-runner/pkg/config"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Print the CI environment the runner would use",
	RunE: func(cmd *cobra.Command, args []string) error {
		ci := overrides.CI
		if ci == "" {
			ci = config.FromOS().DetectCI()
		}
		if ci == "" {
			return config.ErrUnknownCI
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.ToLower(ci))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
