package cmd

import (
	"fmt"

	"github.com/atikulmunna/fleetwatch/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

const tuiLogFile = "fleetwatch.log"

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Run the terminal dashboard",
	Long: `Run the fleet telemetry dashboard in the terminal. Diagnostics are
written to fleetwatch.log so they do not corrupt the screen.

Keys: space/p pause or resume, ? help, q quit.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logFile, err := tea.LogToFile(tuiLogFile, "fleetwatch")
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	frames := a.hub.Subscribe()
	a.start(ctx)
	defer a.stop()

	p := tea.NewProgram(tui.New(a.sched, a.agg, frames), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("terminal dashboard: %w", err)
	}
	return nil
}
