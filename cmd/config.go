package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwarden/termin/internal/config"
)

var (
	initPath  string
	initForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage local and remote settings",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var darkModeCmd = &cobra.Command{
	Use:       "dark-mode on|off",
	Short:     "Set the dark mode preference stored by the service",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off"},
	RunE:      runDarkMode,
}

func init() {
	configInitCmd.Flags().StringVar(&initPath, "path", "", "Where to write the file (default: "+config.DefaultPath()+")")
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd, darkModeCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := initPath
	if path == "" {
		path = config.DefaultPath()
	}
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := config.Save(path, config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func runDarkMode(cmd *cobra.Command, args []string) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}
	remote, err := client.GetConfig(cmd.Context())
	if err != nil {
		return err
	}
	remote.DarkMode = args[0] == "on"
	if err := client.SetConfig(cmd.Context(), remote); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "dark mode %s\n", args[0])
	return nil
}
