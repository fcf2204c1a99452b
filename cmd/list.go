package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/cwarden/termin/internal/calendar"
)

var listFormat string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print all entries and exit",
	Long:  `Load the entries once and print them in chronological order.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listFormat, "format", "table", "Output format: table or html")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	if listFormat != "table" && listFormat != "html" {
		return fmt.Errorf("unknown format %q", listFormat)
	}
	client, session, err := newClient()
	if err != nil {
		return err
	}
	if err := session.Reload(cmd.Context(), client); err != nil {
		return fmt.Errorf("%s: %w", session.Status(), err)
	}

	out := cmd.OutOrStdout()
	if listFormat == "html" {
		fmt.Fprintln(out, calendar.RenderHTML(session.List(calendar.HTMLEscaper)))
		return nil
	}
	writeTable(out, session.List(calendar.TerminalEscaper))
	return nil
}

func writeTable(w io.Writer, list calendar.List) {
	if list.Empty {
		fmt.Fprintln(w, calendar.EmptyListText)
		return
	}

	bold := color.New(color.Bold).SprintFunc()
	table := uitable.New()
	table.MaxColWidth = 50
	table.Wrap = true
	table.AddRow(bold("DATUM"), bold("ZEIT"), bold("TITEL"), bold("KATEGORIE"), bold("BESCHREIBUNG"))
	for _, item := range list.Items {
		table.AddRow(item.Date, item.TimeRange, item.Title, color.MagentaString(item.Category), item.Description)
	}
	fmt.Fprintln(w, table)
}
