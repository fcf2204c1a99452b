package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Actions that keys can be bound to.
var Actions = []string{
	"quit", "help", "today", "refresh", "new_event", "edit_event",
	"delete_event", "next_month", "prev_month", "toggle_dark", "export",
	"import", "focus",
}

type Config struct {
	// Backend settings
	BackendURL     string        `yaml:"backend_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Display settings
	Timezone         string `yaml:"timezone"`
	WrapText         bool   `yaml:"wrap_text"`
	DescriptionWidth int    `yaml:"description_width"`

	// UI settings
	Colors      map[string]string `yaml:"colors"`
	KeyBindings map[string]string `yaml:"bindings"`

	// Behavior settings
	AutoRefresh   bool   `yaml:"auto_refresh"`
	RefreshCron   string `yaml:"refresh_cron"`
	ConfirmDelete bool   `yaml:"confirm_delete"`
	ExportDir     string `yaml:"export_dir"`

	// Logging
	LogFile string `yaml:"log_file"`
	Debug   bool   `yaml:"debug"`

	// Path is the file the config was read from, if any.
	Path string `yaml:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		BackendURL: "http://localhost:8080/api/calendar",

		Timezone:         "Local",
		WrapText:         true,
		DescriptionWidth: 60,

		Colors: map[string]string{
			"normal":   "252",
			"today":    "220",
			"selected": "reverse",
			"weekend":  "39",
			"event":    "40",
			"header":   "bold",
			"category": "141",
			"alert":    "196",
			"status":   "241",
		},

		KeyBindings: map[string]string{
			"q":   "quit",
			"?":   "help",
			"t":   "today",
			"r":   "refresh",
			"n":   "new_event",
			"e":   "edit_event",
			"d":   "delete_event",
			">":   "next_month",
			"<":   "prev_month",
			"D":   "toggle_dark",
			"x":   "export",
			"i":   "import",
			"tab": "focus",
		},

		AutoRefresh:   true,
		RefreshCron:   "*/5 * * * *",
		ConfirmDelete: true,
		ExportDir:     "~/Downloads",

		LogFile: defaultLogFile(),
	}
}

// SearchPaths lists the config locations tried by LoadConfig, in order.
func SearchPaths() []string {
	home, _ := homedir.Dir()
	xdg := os.Getenv("XDG_CONFIG_HOME")
	paths := []string{os.Getenv("TERMIN_CONFIG")}
	if xdg != "" {
		paths = append(paths,
			filepath.Join(xdg, "termin", "config.yaml"),
			filepath.Join(xdg, "termin", "terminrc"))
	}
	if home != "" {
		paths = append(paths,
			filepath.Join(home, ".config", "termin", "config.yaml"),
			filepath.Join(home, ".config", "termin", "terminrc"),
			filepath.Join(home, ".terminrc"))
	}
	return paths
}

// DefaultPath is where `config init` writes a fresh config.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "termin", "config.yaml")
	}
	home, _ := homedir.Dir()
	return filepath.Join(home, ".config", "termin", "config.yaml")
}

// LoadConfig reads path when given, otherwise the first existing file of
// SearchPaths. No file at all yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return LoadFile(path)
	}
	for _, p := range SearchPaths() {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	cfg := DefaultConfig()
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads one config file. Files ending in .yaml or .yml are YAML,
// anything else uses the rc syntax.
func LoadFile(path string) (*Config, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expand %s: %w", path, err)
	}
	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(expanded)) {
	case ".yaml", ".yml":
		err = cfg.loadYAML(expanded)
	default:
		err = cfg.loadFromFile(expanded)
	}
	if err != nil {
		return nil, fmt.Errorf("error loading config from %s: %w", expanded, err)
	}
	cfg.Path = expanded
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("config %s: %w", expanded, err)
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Maps in the file are merged over the defaults.
	colors, bindings := c.Colors, c.KeyBindings
	c.Colors, c.KeyBindings = nil, nil
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}
	for k, v := range c.Colors {
		colors[k] = v
	}
	for k, v := range c.KeyBindings {
		if err := checkAction(v); err != nil {
			return err
		}
		bindings[k] = v
	}
	c.Colors, c.KeyBindings = colors, bindings
	return nil
}

func (c *Config) loadFromFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := c.parseLine(line); err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
	}

	return scanner.Err()
}

var (
	setRe   = regexp.MustCompile(`^set\s+(\w+)\s+(.+)$`)
	bindRe  = regexp.MustCompile(`^bind\s+(\S+)\s+(\S+)$`)
	colorRe = regexp.MustCompile(`^color\s+(\w+)\s+(.+)$`)
)

func (c *Config) parseLine(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	// set variable value
	if matches := setRe.FindStringSubmatch(line); matches != nil {
		return c.setVariable(matches[1], matches[2])
	}

	// bind key action
	if matches := bindRe.FindStringSubmatch(line); matches != nil {
		if err := checkAction(matches[2]); err != nil {
			return err
		}
		c.KeyBindings[matches[1]] = matches[2]
		return nil
	}

	// color element color_spec
	if matches := colorRe.FindStringSubmatch(line); matches != nil {
		c.Colors[matches[1]] = strings.TrimSpace(matches[2])
		return nil
	}

	return fmt.Errorf("unknown config line: %s", line)
}

func (c *Config) setVariable(name, value string) error {
	// Remove quotes if present
	value = strings.Trim(value, `"'`)

	switch name {
	case "backend_url", "backend":
		c.BackendURL = value

	case "request_timeout":
		d, err := parseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid request_timeout: %s", value)
		}
		c.RequestTimeout = d

	case "timezone":
		c.Timezone = value

	case "wrap_text":
		c.WrapText = parseBool(value)

	case "description_width":
		width, err := strconv.Atoi(value)
		if err != nil || width < 0 {
			return fmt.Errorf("invalid description_width: %s", value)
		}
		c.DescriptionWidth = width

	case "auto_refresh":
		c.AutoRefresh = parseBool(value)

	case "refresh_cron":
		if _, err := cron.ParseStandard(value); err != nil {
			return fmt.Errorf("invalid refresh_cron %q: %w", value, err)
		}
		c.RefreshCron = value

	case "confirm_delete":
		c.ConfirmDelete = parseBool(value)

	case "export_dir":
		c.ExportDir = value

	case "log_file":
		c.LogFile = value

	case "debug":
		c.Debug = parseBool(value)

	default:
		return fmt.Errorf("unknown config variable: %s", name)
	}

	return nil
}

// Normalize expands paths and validates the values a file may have set.
func (c *Config) Normalize() error {
	var err error
	if c.BackendURL == "" {
		c.BackendURL = DefaultConfig().BackendURL
	}
	if c.RequestTimeout < 0 {
		return errors.New("request_timeout must not be negative")
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.RefreshCron != "" {
		if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
			return fmt.Errorf("invalid refresh_cron %q: %w", c.RefreshCron, err)
		}
	}
	if c.ExportDir, err = homedir.Expand(c.ExportDir); err != nil {
		return fmt.Errorf("export_dir: %w", err)
	}
	if c.LogFile, err = homedir.Expand(c.LogFile); err != nil {
		return fmt.Errorf("log_file: %w", err)
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// RefreshSchedule returns the auto-refresh schedule, or nil when auto
// refresh is off.
func (c *Config) RefreshSchedule() (cron.Schedule, error) {
	if !c.AutoRefresh || c.RefreshCron == "" {
		return nil, nil
	}
	return cron.ParseStandard(c.RefreshCron)
}

// ActionFor returns the action bound to key, if any.
func (c *Config) ActionFor(key string) string {
	return c.KeyBindings[key]
}

// KeysFor lists the keys bound to action.
func (c *Config) KeysFor(action string) []string {
	var keys []string
	for k, a := range c.KeyBindings {
		if a == action {
			keys = append(keys, k)
		}
	}
	return keys
}

// Save writes cfg as YAML to path, atomically and readable by the owner only.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".termin-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func checkAction(action string) error {
	for _, a := range Actions {
		if a == action {
			return nil
		}
	}
	return fmt.Errorf("unknown action: %s", action)
}

func parseBool(value string) bool {
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

func parseDuration(value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		// Try parsing as seconds
		seconds, err2 := strconv.Atoi(value)
		if err2 != nil {
			return 0, err
		}
		d = time.Duration(seconds) * time.Second
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", value)
	}
	return d, nil
}

func defaultLogFile() string {
	if state := os.Getenv("XDG_STATE_HOME"); state != "" {
		return filepath.Join(state, "termin", "termin.log")
	}
	return filepath.Join("~", ".local", "state", "termin", "termin.log")
}
