package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var crateCmd = &cobra.Command{
	Use:   "crate",
	Short: "Show the RO-Crate root dataset entity, if any",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		ex, provider, err := openExplorer(ctx)
		if err != nil {
			return err
		}
		if err := ex.ExtractMetadata(ctx); err != nil {
			return err
		}

		root, err := provider.Crate()
		if err != nil {
			return err
		}

		if jsonOut {
			enc, err := json.MarshalIndent(root, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(enc))
			return nil
		}

		fmt.Printf("id:          %s\n", root.ID)
		fmt.Printf("name:        %s\n", root.Name)
		fmt.Printf("description: %s\n", root.Description)
		fmt.Printf("entities:    %d\n", len(provider.Entities()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(crateCmd)
}
