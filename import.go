package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/rixian/drive-go/pkg/drive"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <manifest.json>",
		Short: "Import externally stored files",
		Long: `Import externally stored files.

The manifest is a JSON array of records with the members name, alternateId,
length, contentType, importPath and overwrite. A manifest of "-" is read from
standard input. Without --path the service chooses the destination.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().String("path", "", "destination directory (label:/path)")

	return cmd
}

// readManifest decodes and validates an import manifest.
func readManifest(r io.Reader) ([]drive.ImportRecord, error) {
	var records []drive.ImportRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("manifest contains no records")
	}

	for i := range records {
		if err := records[i].Validate(); err != nil {
			return nil, fmt.Errorf("manifest record %d: %w", i, err)
		}
	}

	return records, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	var dest drive.CloudPath

	if dir, _ := cmd.Flags().GetString("path"); dir != "" {
		p, err := parsePath(dir)
		if err != nil {
			return err
		}

		dest = p
	}

	var in io.Reader = cmd.InOrStdin()

	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening manifest: %w", err)
		}
		defer f.Close()

		in = f
	}

	records, err := readManifest(in)
	if err != nil {
		return err
	}

	client, err := cc.Client(cmd.Context())
	if err != nil {
		return err
	}

	items, err := client.ImportFiles(cmd.Context(), records, dest, cc.CallOptions()...)
	if err != nil {
		return fmt.Errorf("importing files: %w", err)
	}

	if cc.Flags.JSON {
		return printJSON(cc.Out, items)
	}

	printItemsTable(cc.Out, items)
	cc.Statusf("Imported %d files\n", len(items))

	return nil
}
