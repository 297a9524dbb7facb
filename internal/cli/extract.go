package cli

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var outputPath string

var extractCmd = &cobra.Command{
	Use:   "extract <path>",
	Short: "Extract one archive member to stdout or --output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		ex, _, err := openExplorer(ctx)
		if err != nil {
			return err
		}
		archive, err := ex.Archive()
		if err != nil {
			return err
		}

		entry, ok := archive.Entry(args[0])
		if !ok {
			return errors.Errorf("no such entry: %s", args[0])
		}

		rc, err := archive.ExtractStream(ctx, entry)
		if err != nil {
			return err
		}
		defer rc.Close()

		out := cmd.OutOrStdout()
		if outputPath != "" {
			f, err := os.Create(outputPath)
			if err != nil {
				return errors.Wrapf(err, "creating %s", outputPath)
			}
			defer f.Close()
			out = f
		}

		if _, err := io.Copy(out, rc); err != nil {
			return errors.Wrapf(err, "extracting %s", args[0])
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write to this path instead of stdout")
	rootCmd.AddCommand(extractCmd)
}
