package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bucketsio/workflow/internal/workspace"
	"github.com/bucketsio/workflow/pkg/work"
)

// deposit flag names
const (
	flagFile      = "file"
	flagReturnIDs = "return-ids"
)

func init() {
	depositCmd.Flags().StringP(flagFile, "f", "-", "Work document JSON file ('-' reads stdin)")
	depositCmd.Flags().Bool(flagReturnIDs, true, "Print the ids assigned by the backend")
}

var depositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Validate a work document and submit it to the queue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		file, err := cmd.Flags().GetString(flagFile)
		if err != nil {
			return fmt.Errorf("error getting file flag: %w", err)
		}
		returnIDs, err := cmd.Flags().GetBool(flagReturnIDs)
		if err != nil {
			return fmt.Errorf("error getting return-ids flag: %w", err)
		}

		data, err := readDocument(file)
		if err != nil {
			return err
		}

		ws, err := workspace.Load(workspacePath)
		if err != nil {
			return err
		}

		w, err := work.FromJSON(data, ws.Sites)
		if err != nil {
			return err
		}

		ids, err := apiClient.Deposit(context.Background(), w, returnIDs)
		if err != nil {
			return fmt.Errorf("error depositing work: %w", err)
		}

		if returnIDs {
			return printJSON(map[string]interface{}{"ids": ids})
		}
		fmt.Println("work deposited")
		return nil
	},
}

// readDocument reads a JSON document from path, or stdin when path is "-"
func readDocument(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("error reading stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading work document: %w", err)
	}
	return data, nil
}

// printJSON pretty-prints v to stdout
func printJSON(v interface{}) error {
	prettyJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error formatting response: %w", err)
	}
	fmt.Println(string(prettyJSON))
	return nil
}
