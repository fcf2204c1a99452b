package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/cwarden/termin/internal/calendar"
	"github.com/cwarden/termin/internal/ics"
)

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download the calendar as " + calendar.ExportFileName,
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Upload an iCalendar file",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "Target directory (default: export_dir from the config)")
	rootCmd.AddCommand(exportCmd, importCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	client, session, err := newClient()
	if err != nil {
		return err
	}
	dir := cfg.ExportDir
	if exportDir != "" {
		if dir, err = homedir.Expand(exportDir); err != nil {
			return err
		}
	}

	path, err := session.Export(cmd.Context(), client, dir)
	if err != nil {
		return fmt.Errorf("%s: %w", calendar.AlertExportFailed, err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s\n", calendar.StatusExported, path)

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if summary, err := ics.Summarize(data, session.Location()); err == nil {
		fmt.Fprintln(out, summary)
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	client, session, err := newClient()
	if err != nil {
		return err
	}
	path := args[0]
	body, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// The service has the final word; a file we cannot read is still sent.
	out := cmd.OutOrStdout()
	if summary, err := ics.Summarize(body, session.Location()); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("Warnung: %v", err))
	} else {
		fmt.Fprintln(out, summary)
	}

	msg, err := session.Import(cmd.Context(), client, path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %s", calendar.AlertImportFailed, calendar.ErrorDetail(err))
	}
	fmt.Fprintln(out, msg)
	return nil
}
