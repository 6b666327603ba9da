package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fentz26/shelfcam/internal/device/sim"
	"github.com/fentz26/shelfcam/internal/logging"
	"github.com/fentz26/shelfcam/internal/scan"
	"github.com/fentz26/shelfcam/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive TUI",
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so logs go to a file.
	logFile, err := logging.ToFile(cfg.Log.File)
	if err != nil {
		return err
	}
	defer logFile.Close()

	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	app := tui.New(tui.Deps{
		Config:    cfg,
		Catalog:   b.catalog,
		Device:    sim.New(cfg.Sim.MediaDir, logging.For("device", "")),
		Gallery:   sim.Gallery{Dir: cfg.Sim.GalleryDir},
		Requester: sim.Permissions{Deny: cfg.Sim.Deny},
		Linker:    scan.NewBrowserLinker(),
		Recorder:  b.recorder,
	})
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
