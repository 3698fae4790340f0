package cmd

import (
	"fmt"
	"log"
	"strings"

	"github.com/atikulmunna/fleetwatch/internal/model"
	"github.com/atikulmunna/fleetwatch/internal/output"
	"github.com/spf13/cobra"
)

var (
	outputFmt   string
	levelFilter string
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Stream telemetry lines to stdout",
	Long: `Stream telemetry entries to the terminal as they are revealed.
Supports colorized output and JSON mode for piping.

Examples:
  fleetwatch stream
  fleetwatch stream --level warn,crit
  fleetwatch stream --seeds "seeds/**/*.log" --output json`,
	Args: cobra.NoArgs,
	RunE: runStream,
}

func init() {
	streamCmd.Flags().StringVarP(&outputFmt, "output", "o", "text", "output format: text, json")
	streamCmd.Flags().StringVarP(&levelFilter, "level", "l", "", "filter by severity (comma-separated: info,warn,crit,sys)")
	rootCmd.AddCommand(streamCmd)
}

func runStream(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// --- Choose renderer ---
	var renderer output.Renderer
	switch strings.ToLower(outputFmt) {
	case "json":
		renderer = output.NewJSONRenderer()
	case "text", "":
		renderer = output.NewTextRenderer()
	default:
		return fmt.Errorf("unknown output format %q (want text or json)", outputFmt)
	}

	filter, err := output.ParseLevelFilter(levelFilter)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	frames := a.hub.Subscribe()
	a.start(ctx)

	go func() {
		<-ctx.Done()
		a.stop()
	}()

	// --- Render entries revealed since the previous frame ---
	var lastID string
	for frame := range frames {
		renderNew(renderer, filter, frame, lastID)
		if id := frame.LastID(); id != "" {
			lastID = id
		}
	}

	return nil
}

func renderNew(r output.Renderer, filter output.LevelFilter, frame model.Frame, lastID string) {
	for _, entry := range frame.After(lastID) {
		if !filter.Allows(entry) {
			continue
		}
		if err := r.Render(entry); err != nil {
			log.Printf("stream: render error: %v", err)
		}
	}
}
