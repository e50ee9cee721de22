// Package commands implements the workflow CLI commands
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bucketsio/workflow/config"
	"github.com/bucketsio/workflow/pkg/api/v1/client"
	"github.com/bucketsio/workflow/pkg/api/v1/routes"
)

// flag names
const (
	flagServerAddress = "server-address"
	flagToken         = "token"
	flagWorkspace     = "workspace"
)

// environment variable names
const (
	envServerAddress = "WORKFLOW_SERVER_ADDRESS"
)

var (
	// apiClient is the shared API client instance
	apiClient client.Client
	// serverAddress holds the target backend address. Flag parsing sets this.
	serverAddress string
	// token holds an explicitly supplied access token
	token string
	// workspacePath overrides the default workspace file location
	workspacePath string
)

// initClient initializes the API client
func initClient() error {
	var err error
	opts := client.DefaultOptions()
	opts.BaseURL = serverAddress
	opts.Token = token

	apiClient, err = client.NewClient(opts)
	return err
}

func init() {
	// Basic defaults; PersistentPreRunE handles the env var override.
	RootCmd.PersistentFlags().StringVarP(&serverAddress, flagServerAddress, "s", routes.DefaultBaseURL, "Address of the buckets backend (env: WORKFLOW_SERVER_ADDRESS)")
	RootCmd.PersistentFlags().StringVar(&token, flagToken, "", "Access token (falls back to env vars, then the secrets directory)")
	RootCmd.PersistentFlags().StringVar(&workspacePath, flagWorkspace, "", "Path to the workspace file (default ~/.config/workflow/workspace.yml)")

	RootCmd.AddCommand(depositCmd)
	RootCmd.AddCommand(withdrawCmd)
	RootCmd.AddCommand(updateCmd)
	RootCmd.AddCommand(deleteCmd)
	RootCmd.AddCommand(healthCmd)
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Workflow CLI - submit, claim, and manage work items on the buckets backend",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// Flag > env var > default
		if !cmd.Flags().Changed(flagServerAddress) {
			serverAddress = config.GetEnv(envServerAddress, serverAddress)
		}

		if serverAddress == "" {
			return fmt.Errorf("server address cannot be empty")
		}
		return initClient()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}
