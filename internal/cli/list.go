package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/rocratezip/explorer/explorer"
	"github.com/rocratezip/explorer/zip"
)

var longFormat bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List archive entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		ex, provider, err := openExplorer(ctx)
		if err != nil {
			return err
		}
		archive, err := ex.Archive()
		if err != nil {
			return err
		}

		if err := ex.ExtractMetadata(ctx); err != nil {
			return err
		}

		entries := archive.Entries()
		if jsonOut {
			return printListJSON(ex, entries)
		}

		tbl := table.New("kind", "size", "compressed", "modified", "path", "name")
		for _, e := range entries {
			m := entryMetadata(ex, e)
			tbl.AddRow(
				e.Kind.String(),
				m.Size,
				e.CompressedSize,
				m.ModifiedTime.Format("2006-01-02 15:04:05"),
				e.Path,
				displayNameOf(m),
			)
		}
		tbl.Print()

		if provider.HasCrate() {
			fmt.Println("\nro-crate-metadata.json found; see `zipexplore crate` for the root entity")
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVarP(&longFormat, "long", "l", false, "include Unix file mode in JSON output")
	rootCmd.AddCommand(listCmd)
}

// entryMetadata returns the enrichment record for e, falling back to the
// archive's own base fields if the provider left this entry unbuilt.
func entryMetadata(ex *explorer.Explorer, e *zip.Entry) *explorer.EntryMetadata {
	if m, err := ex.Metadata(e.Path); err == nil {
		return m
	}
	return &explorer.EntryMetadata{
		Entry:        e,
		Size:         e.UncompressedSize,
		ModifiedTime: e.ModifiedTime,
		Name:         e.Name(),
	}
}

func displayNameOf(m *explorer.EntryMetadata) string {
	if m.Name != "" {
		return m.Name
	}
	if m.Entry != nil {
		return m.Entry.Name()
	}
	return ""
}

type listEntryJSON struct {
	Path             string `json:"path"`
	Name             string `json:"name"`
	Kind             string `json:"kind"`
	UncompressedSize uint64 `json:"uncompressedSize"`
	CompressedSize   uint64 `json:"compressedSize"`
	ModifiedTime     string `json:"modifiedTime"`
	Mode             string `json:"mode,omitempty"`
}

func printListJSON(ex *explorer.Explorer, entries []*zip.Entry) error {
	out := make([]listEntryJSON, 0, len(entries))
	for _, e := range entries {
		m := entryMetadata(ex, e)
		row := listEntryJSON{
			Path:             e.Path,
			Name:             displayNameOf(m),
			Kind:             e.Kind.String(),
			UncompressedSize: m.Size,
			CompressedSize:   e.CompressedSize,
			ModifiedTime:     m.ModifiedTime.Format(time.RFC3339),
		}
		if longFormat {
			row.Mode = e.Mode().String()
		}
		out = append(out, row)
	}
	enc, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(enc))
	return nil
}
