package cmd

import (
	"fmt"

	"github.com/atikulmunna/fleetwatch/internal/config"
	"github.com/atikulmunna/fleetwatch/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the live web dashboard",
	Long: `Serve the fleet telemetry dashboard over HTTP. The page receives
frames over a WebSocket and can pause or resume the stream.

Examples:
  fleetwatch serve
  fleetwatch serve --port 9000 --pprof`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "8080", "HTTP port for the dashboard")
	serveCmd.Flags().Bool("pprof", false, "expose /debug/pprof routes")
	cobra.CheckErr(viper.BindPFlag(config.KeyPort, serveCmd.Flags().Lookup("port")))
	cobra.CheckErr(viper.BindPFlag(config.KeyPprof, serveCmd.Flags().Lookup("pprof")))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	a.start(ctx)
	defer a.stop()

	srv := server.New(a.hub, a.sched, a.agg, cfg.Server.Port, server.Options{Pprof: cfg.Server.Pprof})
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("dashboard server: %w", err)
	}
	return nil
}
