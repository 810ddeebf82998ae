package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"studydeck/internal/config"
	"studydeck/internal/service"
)

func newBackupCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or import stored progress, settings and activity",
	}
	cmd.AddCommand(newBackupExportCmd(cfg), newBackupImportCmd(cfg))
	return cmd
}

func newBackupExportCmd(cfg *config.Config) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all stored entries to a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if output == "" {
				output = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
			}

			backupService := service.NewBackupService(db, cfg.NewLogger())
			data, err := backupService.ExportToFile(output)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(data.Entries), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	return cmd
}

func newBackupImportCmd(cfg *config.Config) *cobra.Command {
	var (
		input string
		clear bool
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import entries from a JSON backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				return fmt.Errorf("--input is required")
			}
			if _, err := os.Stat(input); os.IsNotExist(err) {
				return fmt.Errorf("input file does not exist: %s", input)
			}

			if clear && !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout()) {
				fmt.Fprintln(cmd.OutOrStdout(), "Import cancelled")
				return nil
			}

			_, db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			backupService := service.NewBackupService(db, cfg.NewLogger())
			result, err := backupService.ImportFromFile(input, clear)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries (%d skipped, %d cleared)\n", result.Imported, result.Skipped, result.Cleared)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&input, "input", "i", "", "backup file to import")
	flags.BoolVar(&clear, "clear", false, "delete all existing entries before importing")
	flags.BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt for --clear")
	return cmd
}

func confirm(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "WARNING: This will delete all existing data. Type 'yes' to confirm: ")
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(line) == "yes"
}
