// Package cmd provides CLI commands for contapila.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lucasew/contapila/pkg/beancount"
	"github.com/lucasew/contapila/pkg/config"
	"github.com/lucasew/contapila/pkg/moduleconfig"
	"github.com/lucasew/contapila/pkg/parser"
	"github.com/lucasew/contapila/pkg/pathutil"
)

var (
	cfgFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "contapila",
	Short: "Parse Beancount-style ledgers",
	Long: `contapila parses plain-text accounting ledgers written in a
Beancount-like syntax into structured entries.

It supports:
- The core directives (open, close, balance, price, note), transactions
  and budgets
- Extra directive modules declared in YAML
- Inferring the single missing amount of a transaction
- Recording parse history in SQLite
- Converting Beancount JSON records into entries
- Watching the ledger and serving the parser over HTTP

Example:
  contapila parse 2024/2024-01.beancount
  contapila parse --year 2024 --balance --format summary
  contapila stats`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logLevel := slog.LevelInfo
		if debug {
			logLevel = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(convertCmd)
}

// loadEnvironment loads the configuration and the path resolver built
// from it.
func loadEnvironment() (*config.Config, *pathutil.PathResolver) {
	cfg, err := config.Load(cfgFile)
	exitOnError(err, "failed to load configuration")

	if err := cfg.Validate([]string{"ledger", "root"}); err != nil {
		exitOnError(err, "invalid configuration")
	}
	if debug {
		cfg.Debug = true
	}

	resolver := pathutil.New(pathutil.Config{
		LedgerRoot:   cfg.Ledger.Root,
		DatabasePath: cfg.Ledger.DBPath,
		ModulesFile:  cfg.Ledger.ModulesFile,
	})
	return cfg, resolver
}

// parserConfig returns the builtin modules plus the modules declared in the
// configured YAML file, with the named validators available to them.
func parserConfig(resolver *pathutil.PathResolver) parser.Config {
	var extra []parser.Module
	if path := resolver.GetModulesFile(); path != "" {
		modules, err := moduleconfig.Load(path)
		exitOnError(err, "failed to load directive modules")
		slog.Debug("Loaded directive modules", "path", path, "modules", len(modules))
		extra = modules
	}

	cfg := beancount.Config(extra...)
	cfg.Validators = moduleconfig.Validators()
	return cfg
}

// Helper function to handle errors and exit.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
