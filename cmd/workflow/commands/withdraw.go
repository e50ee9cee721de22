package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bucketsio/workflow/pkg/api/v1/client"
)

// withdraw flag names
const (
	flagPipeline = "pipeline"
	flagSite     = "site"
	flagUser     = "user"
	flagPriority = "priority"
	flagTags     = "tags"
	flagEvent    = "event"
	flagParent   = "parent"
)

func init() {
	withdrawCmd.Flags().StringP(flagPipeline, "p", "", "Pipeline to claim work from")
	withdrawCmd.Flags().String(flagSite, "", "Only claim work for this site")
	withdrawCmd.Flags().String(flagUser, "", "Only claim work submitted by this user")
	withdrawCmd.Flags().Int(flagPriority, 0, "Only claim work with this priority")
	withdrawCmd.Flags().StringSlice(flagTags, nil, "Only claim work carrying all of these tags")
	withdrawCmd.Flags().IntSlice(flagEvent, nil, "Only claim work with this event")
	withdrawCmd.Flags().String(flagParent, "", "Only claim work with this parent")
	_ = withdrawCmd.MarkFlagRequired(flagPipeline)
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Claim one queued work item matching the filters",
	RunE: func(cmd *cobra.Command, _ []string) error {
		params := client.WithdrawParams{}

		var err error
		if params.Pipeline, err = cmd.Flags().GetString(flagPipeline); err != nil {
			return fmt.Errorf("error getting pipeline flag: %w", err)
		}
		if params.Site, err = cmd.Flags().GetString(flagSite); err != nil {
			return fmt.Errorf("error getting site flag: %w", err)
		}
		if params.User, err = cmd.Flags().GetString(flagUser); err != nil {
			return fmt.Errorf("error getting user flag: %w", err)
		}
		if params.Priority, err = cmd.Flags().GetInt(flagPriority); err != nil {
			return fmt.Errorf("error getting priority flag: %w", err)
		}
		if params.Tags, err = cmd.Flags().GetStringSlice(flagTags); err != nil {
			return fmt.Errorf("error getting tags flag: %w", err)
		}
		if params.Event, err = cmd.Flags().GetIntSlice(flagEvent); err != nil {
			return fmt.Errorf("error getting event flag: %w", err)
		}
		if params.Parent, err = cmd.Flags().GetString(flagParent); err != nil {
			return fmt.Errorf("error getting parent flag: %w", err)
		}

		claimed, err := apiClient.Withdraw(context.Background(), params)
		if err != nil {
			return fmt.Errorf("error withdrawing work: %w", err)
		}
		if claimed == nil {
			fmt.Println("no work available")
			return nil
		}

		return printJSON(claimed)
	},
}
