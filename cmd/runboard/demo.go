// ABOUTME: The demo subcommand: runs a local synthetic orchestrator so the dashboard can be
// ABOUTME: exercised without real infrastructure.
package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/runboard/runboard/demo"
)

var (
	demoBindFlag     string
	demoTokenFlag    string
	demoPipelineFlag string
	demoTicksFlag    int
	demoIntervalFlag time.Duration
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Start a local demo orchestrator with one synthetic run",
	RunE:  runDemo,
}

func init() {
	demoCmd.Flags().StringVar(&demoBindFlag, "bind", "127.0.0.1:7777", "Listen address")
	demoCmd.Flags().StringVar(&demoTokenFlag, "demo-token", "demo-token", "Bearer token the demo server requires")
	demoCmd.Flags().StringVar(&demoPipelineFlag, "pipeline", "deploy", "Pipeline name for the synthetic run")
	demoCmd.Flags().IntVar(&demoTicksFlag, "ticks", 120, "How many log/metric events the run produces")
	demoCmd.Flags().DurationVar(&demoIntervalFlag, "interval", time.Second, "Delay between synthetic events")
}

func runDemo(cmd *cobra.Command, args []string) error {
	server := demo.NewServer(demoTokenFlag)
	run := demo.NewRun(demoPipelineFlag)
	server.AddRun(run)
	run.Start(demoIntervalFlag, demoTicksFlag)

	fmt.Printf("demo orchestrator on http://%s\n", demoBindFlag)
	fmt.Printf("run id: %s\n\n", run.ID())
	fmt.Printf("  RUNBOARD_SERVER=http://%s RUNBOARD_TOKEN=%s runboard watch %s\n\n",
		demoBindFlag, demoTokenFlag, run.ID())

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	httpServer := &http.Server{Addr: demoBindFlag, Handler: server.Handler()}
	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("demo server: %w", err)
	}
	return nil
}
