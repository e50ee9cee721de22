package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bucketsio/workflow/pkg/work"
)

// work item flag names
const (
	flagWorkID = "id"
)

func init() {
	updateCmd.Flags().StringP(flagFile, "f", "-", "Updated work document JSON file ('-' reads stdin)")

	deleteCmd.Flags().StringP(flagWorkID, "i", "", "Work item id")
	_ = deleteCmd.MarkFlagRequired(flagWorkID)
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Persist an updated work document back to the backend",
	RunE: func(cmd *cobra.Command, _ []string) error {
		file, err := cmd.Flags().GetString(flagFile)
		if err != nil {
			return fmt.Errorf("error getting file flag: %w", err)
		}

		data, err := readDocument(file)
		if err != nil {
			return err
		}

		// The document already carries backend-assigned state, so decode it
		// as-is instead of re-running construction validation
		var w work.Work
		if err := json.Unmarshal(data, &w); err != nil {
			return fmt.Errorf("error decoding work document: %w", err)
		}

		if err := apiClient.Update(context.Background(), &w); err != nil {
			return fmt.Errorf("error updating work: %w", err)
		}
		fmt.Println("work updated")
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove a work item record from the backend",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := cmd.Flags().GetString(flagWorkID)
		if err != nil {
			return fmt.Errorf("error getting id flag: %w", err)
		}
		if id == "" {
			return fmt.Errorf("id cannot be empty")
		}

		if err := apiClient.Delete(context.Background(), &work.Work{ID: id}); err != nil {
			return fmt.Errorf("error deleting work: %w", err)
		}
		fmt.Println("work deleted")
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the backend",
	RunE: func(_ *cobra.Command, _ []string) error {
		health, err := apiClient.HealthCheck(context.Background())
		if err != nil {
			return fmt.Errorf("error checking backend health: %w", err)
		}
		return printJSON(health)
	},
}
