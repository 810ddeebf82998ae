package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"studydeck/internal/content"
)

func newContentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Prepare deck content files",
	}
	cmd.AddCommand(newContentConvertCmd())
	return cmd
}

func newContentConvertCmd() *cobra.Command {
	config := content.DefaultConvertConfig()
	var output string

	cmd := &cobra.Command{
		Use:   "convert <file.xlsx|file.csv>",
		Short: "Convert a spreadsheet into a deck JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config.FilePath = args[0]

			result, err := content.Convert(config)
			if err != nil {
				return err
			}
			for _, msg := range result.Errors {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", msg)
			}

			if output == "" {
				output = strings.TrimSuffix(config.FilePath, filepath.Ext(config.FilePath)) + ".json"
			}

			data, err := json.MarshalIndent(result.Document, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode deck: %w", err)
			}
			if output == "-" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			if err := os.WriteFile(output, append(data, '\n'), 0o644); err != nil {
				return fmt.Errorf("failed to write deck: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d items to %s (%d rows skipped)\n", len(result.Document.Items), output, result.Skipped)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&config.SheetName, "sheet", "", "workbook sheet to read (default: first sheet)")
	flags.StringVar(&config.IDColumn, "id-column", config.IDColumn, "header of the identifier column")
	flags.StringVarP(&output, "output", "o", "", "output file, - for stdout (default: input name with .json)")
	return cmd
}
