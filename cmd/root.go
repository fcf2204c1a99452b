package cmd

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cwarden/termin/internal/backend"
	"github.com/cwarden/termin/internal/calendar"
	"github.com/cwarden/termin/internal/config"
	"github.com/cwarden/termin/internal/log"
	"github.com/cwarden/termin/internal/ui"
)

var (
	cfgFile    string
	backendURL string
	logFile    string
	debug      bool
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "termin",
	Short: "A terminal client for the calendar service",
	Long: `Termin shows the entries of a calendar service as a month grid and a
chronological list, and creates, edits, deletes, imports and exports them.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

func Execute() error {
	defer log.Sync()
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: first of $TERMIN_CONFIG, ~/.config/termin/config.yaml, ~/.terminrc)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "Base URL of the calendar API")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write the log to this file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

func initConfig() {
	var err error
	cfg, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if backendURL != "" {
		cfg.BackendURL = backendURL
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if debug {
		cfg.Debug = true
	}
	if err := log.Setup(cfg.LogFile, cfg.Debug); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	log.Debug("config loaded", "path", cfg.Path, "backend", cfg.BackendURL)
}

// newClient builds the gateway and an empty session for the configured
// backend and time zone.
func newClient() (*backend.Client, *calendar.Session, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	client, err := backend.New(cfg.BackendURL, backend.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		return nil, nil, err
	}
	return client, calendar.NewSession(loc), nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	client, session, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	model := ui.NewModel(ctx, cfg, session, client)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	// Restyle and rebind when the config file changes.
	if cfg.Path != "" {
		w, err := config.Watch(cfg.Path, func(c *config.Config, err error) {
			if err == nil {
				p.Send(ui.ConfigReloadedMsg{Config: c})
			}
		})
		if err != nil {
			log.Error("watch config", err, "path", cfg.Path)
		} else {
			defer w.Close()
		}
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}
