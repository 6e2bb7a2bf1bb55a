// Package main provides the Kist CLI entry point.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/spf13/cobra"

	"github.com/tbergin/kist/pkg/config"
	"github.com/tbergin/kist/pkg/engine"
	"github.com/tbergin/kist/pkg/kist"
)

var (
	version   = "0.1.0"
	commit    = "dev"
	buildTime = "unknown" // Set via ldflags: -X main.buildTime=$(date +%Y%m%d-%H%M%S)
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kist",
		Short: "Kist - embedded record store with typed queries",
		Long: `Kist is an embedded record store written in Go, with typed
query conditions, reusable parameterized queries, relation traversal
and nearest-neighbor vector search.`,
	}
	rootCmd.PersistentFlags().String("config", "", "Config file path (default: search kist.yaml)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Kist v%s (%s) built %s\n", version, commit, buildTime)
		},
	})

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new Kist store",
		RunE:  runInit,
	}
	initCmd.Flags().String("data-dir", "", "Data directory (overrides config)")
	rootCmd.AddCommand(initCmd)

	statsCmd := &cobra.Command{
		Use:   "stats [entity-id...]",
		Short: "Show record counts per entity",
		RunE:  runStats,
	}
	statsCmd.Flags().String("data-dir", "", "Data directory (overrides config)")
	rootCmd.AddCommand(statsCmd)

	compactCmd := &cobra.Command{
		Use:   "compact",
		Short: "Run value-log garbage collection once",
		RunE:  runCompact,
	}
	compactCmd.Flags().String("data-dir", "", "Data directory (overrides config)")
	compactCmd.Flags().Float64("discard-ratio", 0, "Discard ratio (overrides config)")
	rootCmd.AddCommand(compactCmd)

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Print(cfg.String())
			return nil
		},
	}
	rootCmd.AddCommand(configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.FindConfigFile()
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.Store.DataDir = dir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*kist.Store, error) {
	opts := &kist.Options{
		InMemory:   cfg.Store.InMemory,
		SyncWrites: cfg.Store.SyncWrites,
		LowMemory:  cfg.Store.LowMemory,
		Passphrase: cfg.Store.EncryptionPassphrase,
	}
	if cfg.Logging.Engine {
		opts.Logger = engine.StdLogger(log.Default(), cfg.Logging.Level)
	}
	return kist.Open(cfg.Store.DataDir, opts)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	if err := store.Close(); err != nil {
		return err
	}
	fmt.Printf("Initialized store in %s\n", cfg.Store.DataDir)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 0 {
		return errors.New("stats: give at least one entity id")
	}
	for _, arg := range args {
		id, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return fmt.Errorf("stats: bad entity id %q: %w", arg, err)
		}
		n, err := store.Engine().RecordCount(engine.EntityID(id))
		if err != nil {
			return err
		}
		fmt.Printf("entity %d: %d records\n", id, n)
	}
	return nil
}

func runCompact(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ratio, _ := cmd.Flags().GetFloat64("discard-ratio")
	if ratio <= 0 {
		ratio = cfg.Maintenance.GCDiscardRatio
	}
	if err := store.Engine().RunValueLogGC(ratio); err != nil {
		if errors.Is(err, badger.ErrNoRewrite) {
			fmt.Println("Nothing to compact")
			return nil
		}
		return err
	}
	fmt.Println("Compaction done")
	return nil
}
