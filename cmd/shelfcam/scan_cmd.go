package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/fentz26/shelfcam/internal/device"
	"github.com/fentz26/shelfcam/internal/device/sim"
	"github.com/fentz26/shelfcam/internal/logging"
	"github.com/fentz26/shelfcam/internal/permission"
	"github.com/fentz26/shelfcam/internal/scan"
	"github.com/fentz26/shelfcam/internal/screen"
	"github.com/fentz26/shelfcam/internal/tui"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a scanner on stdin",
	Long: `Run a scanner without the TUI. Each input line is one decoded code,
optionally prefixed with its symbology ("ean13:4006381333931"). When a code
is locked the prompt is printed and the next line answers it.`,
	RunE: runScan,
}

var (
	scanProfile   string
	scanNoBrowser bool
)

func init() {
	scanCmd.Flags().StringVar(&scanProfile, "profile", "qr", "scanner profile")
	scanCmd.Flags().BoolVar(&scanNoBrowser, "no-browser", false, "log links instead of opening them")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	scfg, err := cfg.ScanConfig(scanProfile)
	if err != nil {
		return err
	}

	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	log := logging.For("scan", scanProfile)
	var linker scan.Linker = scan.NewBrowserLinker()
	if scanNoBrowser {
		linker = scan.LinkerFunc(func(ctx context.Context, uri string) error {
			log.Infof("Would open %s", uri)
			return nil
		})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	dev := sim.New(cfg.Sim.MediaDir, logging.For("device", ""))
	deps := scan.Deps{
		Gate:     permission.NewGate(sim.Permissions{Deny: cfg.Sim.Deny}, log),
		Device:   dev,
		Linker:   linker,
		Recorder: b.recorder,
		Log:      log,
	}
	return runConsole(ctx, scfg, deps, dev, os.Stdin, cmd.OutOrStdout())
}

// feeder delivers typed codes to the decoder.
type feeder interface {
	Feed(ev device.ScanEvent) error
}

// console drives a debouncer from line input. It waits for each line's
// effect to settle before reading the next, so piped input is answered in
// order.
type console struct {
	d       *scan.Debouncer
	dev     feeder
	cfg     scan.Config
	out     io.Writer
	changed chan struct{}

	mu      sync.Mutex
	pending []string
}

func runConsole(ctx context.Context, cfg scan.Config, deps scan.Deps, dev feeder, in io.Reader, out io.Writer) error {
	if deps.Navigator == nil {
		deps.Navigator = screen.NavigatorFunc(func() {})
	}
	c := &console{
		dev:     dev,
		cfg:     cfg,
		out:     out,
		changed: make(chan struct{}, 1),
	}
	c.d = scan.New(cfg, deps)
	c.d.OnStateChanged(func(scan.Snapshot) { c.signal() })
	c.d.OnPrompt(func(p scan.Prompt) {
		c.print(fmt.Sprintf("%s\n  %s\n  %s\n", p.Title, p.Message, formatChoices(&p)))
	})
	c.d.OnNotice(func(n screen.Notice) {
		c.print(fmt.Sprintf("%s: %s\n", n.Title, n.Message))
	})

	runErr := make(chan error, 1)
	go func() { runErr <- c.d.Run(ctx) }()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-c.d.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-c.changed:
			c.flush()
		case line, ok := <-lines:
			if !ok {
				lines = nil
				c.d.Exit()
				continue
			}
			c.handle(line)
		case <-c.d.Done():
			c.flush()
			fmt.Fprintf(c.out, "Scanner closed (%d codes ignored)\n", c.d.Dropped())
			return <-runErr
		}
	}
}

func (c *console) signal() {
	select {
	case c.changed <- struct{}{}:
	default:
	}
}

func (c *console) handle(line string) {
	c.waitFor(func(st scan.State) bool { return st != scan.StateAwaitingPermission })

	snap := c.d.Snapshot()
	switch snap.State {
	case scan.StateScanning:
		c.feed(line)
	case scan.StateAwaitingChoice:
		c.choose(snap.Prompt, line)
	}
}

func (c *console) feed(line string) {
	fallback := device.QR
	if len(c.cfg.Symbologies) > 0 {
		fallback = c.cfg.Symbologies[0]
	}
	ev, ok := tui.ParseCode(line, fallback, c.cfg.Symbologies)
	if !ok {
		return
	}

	before := c.d.Dropped()
	if err := c.dev.Feed(ev); err != nil {
		fmt.Fprintf(c.out, "error: %v\n", err)
		return
	}
	if c.d.Dropped() > before {
		fmt.Fprintf(c.out, "ignored %s code\n", ev.Symbology)
		return
	}
	c.waitFor(func(st scan.State) bool {
		return st == scan.StateAwaitingChoice || st == scan.StateClosed
	})
}

func (c *console) choose(p *scan.Prompt, line string) {
	if p == nil {
		return
	}
	choice, ok := parseChoice(p, line)
	if !ok {
		fmt.Fprintf(c.out, "choose one of: %s\n", formatChoices(p))
		return
	}
	c.d.ResolveChoice(choice)
	c.waitFor(func(st scan.State) bool { return st != scan.StateAwaitingChoice })
}

// waitFor blocks until the debouncer reaches a state matching ok or closes.
func (c *console) waitFor(ok func(scan.State) bool) {
	for {
		c.flush()
		if ok(c.d.Snapshot().State) {
			return
		}
		select {
		case <-c.changed:
		case <-c.d.Done():
			return
		}
	}
}

// print queues output from the debouncer loop for the console goroutine.
func (c *console) print(text string) {
	c.mu.Lock()
	c.pending = append(c.pending, text)
	c.mu.Unlock()
	c.signal()
}

// flush writes queued prompts and notices.
func (c *console) flush() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, text := range pending {
		fmt.Fprint(c.out, text)
	}
}

func formatChoices(p *scan.Prompt) string {
	parts := make([]string, len(p.Choices))
	for i, ch := range p.Choices {
		parts[i] = fmt.Sprintf("[%d] %s", i+1, ch.Label())
	}
	return strings.Join(parts, "  ")
}

// parseChoice accepts a choice's number, its name or its first letter.
func parseChoice(p *scan.Prompt, line string) (scan.Choice, bool) {
	line = strings.ToLower(strings.TrimSpace(line))
	if line == "" {
		return "", false
	}
	if n, err := strconv.Atoi(line); err == nil {
		if n >= 1 && n <= len(p.Choices) {
			return p.Choices[n-1], true
		}
		return "", false
	}
	for _, ch := range p.Choices {
		label := strings.ToLower(ch.Label())
		if line == string(ch) || line == label || (len(line) == 1 && line[0] == string(ch)[0]) {
			return ch, true
		}
	}
	return "", false
}
