package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fentz26/shelfcam/internal/audit"
	"github.com/fentz26/shelfcam/internal/catalog"
	"github.com/fentz26/shelfcam/internal/config"
	"github.com/fentz26/shelfcam/internal/logging"
	"github.com/fentz26/shelfcam/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "shelfcam",
	Short: "shelfcam - camera, scanner and product catalog",
	Long: `shelfcam captures product photos and videos, reads QR codes and barcodes,
and registers products with the captured image.

Running without a subcommand opens the interactive menu.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.SetLevel(viper.GetString("log-level"))
	},
	RunE: runTUI,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", config.DefaultPath(), "config file")
	rootCmd.PersistentFlags().String("store", "", "product database (overrides store.path)")
	rootCmd.PersistentFlags().String("platform", "", "zoom range platform: android or ios")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	for _, name := range []string{"config", "store", "platform", "log-level"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}

	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(decisionsCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	viper.SetEnvPrefix("SHELFCAM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies flag and environment
// overrides on top of it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(viper.GetString("config"))
	if err != nil {
		return nil, err
	}
	if v := viper.GetString("store"); v != "" {
		cfg.Store.Path = v
	}
	if v := viper.GetString("platform"); v != "" {
		cfg.Platform = v
	}
	if v := viper.GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if err := cfg.ExpandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := logging.SetLevel(cfg.Log.Level); err != nil {
		return nil, err
	}
	return cfg, nil
}

// backend is the storage side shared by every command.
type backend struct {
	store    *store.Store
	recorder *audit.Recorder
	catalog  *catalog.Service
}

func openBackend(cfg *config.Config) (*backend, error) {
	s, err := store.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	recorder := audit.NewRecorder(s)
	return &backend{
		store:    s,
		recorder: recorder,
		catalog:  catalog.NewService(s, recorder, logging.For("catalog", "")),
	}, nil
}

func (b *backend) Close() error {
	return b.store.Close()
}
