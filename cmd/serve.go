package cmd

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/chatcal/schedcore/internal/instrumentation"
	"github.com/chatcal/schedcore/internal/server"
	"github.com/chatcal/schedcore/internal/tools/scheduling_tools"
)

func newServeCmd() *cobra.Command {
	var (
		debugMode      bool
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP scheduling server",
		Long: `Start the Model Context Protocol (MCP) server exposing the scheduling
tools over stdio for AI assistants.

Tools:
  - scheduling_book_meeting: book from a natural-language date/time
  - scheduling_cancel_meeting: cancel by ID or attendee name + time
  - scheduling_check_availability: check a slot or list free slots
  - scheduling_list_meetings: list upcoming confirmed meetings

A sidecar HTTP server exposes Prometheus metrics and health probes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			shutdownCtx, cancel := signal.NotifyContext(context.Background(),
				syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			comps, err := buildComponents(shutdownCtx, debugMode)
			if err != nil {
				return err
			}
			defer comps.Close()

			provider, err := instrumentation.NewProvider(shutdownCtx, instrumentation.Config{
				Enabled:        metricsEnabled,
				ServiceName:    "schedcore",
				ServiceVersion: version,
			})
			if err != nil {
				return err
			}
			defer func() {
				if err := provider.Shutdown(context.Background()); err != nil {
					comps.logger.Warn("instrumentation shutdown failed", "error", err)
				}
			}()
			comps.calendar.SetRecorder(provider.Metrics())
			comps.vault.SetRecorder(provider.Metrics())

			sc := server.NewServerContext(shutdownCtx,
				comps.resolver, comps.engine, comps.scheduler, comps.vault,
				provider.Metrics())
			defer func() { _ = sc.Shutdown() }()

			var metricsServer *server.MetricsServer
			if metricsEnabled {
				health := server.NewHealthChecker(sc)
				metricsServer = server.NewMetricsServer(metricsAddr, health)
				go func() {
					if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
						log.Printf("metrics server error: %v", err)
					}
				}()
			}

			mcpSrv := mcpserver.NewMCPServer("schedcore", version,
				mcpserver.WithToolCapabilities(true),
			)
			if err := scheduling_tools.RegisterSchedulingTools(mcpSrv, sc); err != nil {
				return err
			}

			serveErr := make(chan error, 1)
			go func() {
				serveErr <- mcpserver.ServeStdio(mcpSrv)
			}()

			select {
			case err := <-serveErr:
				cancel()
				if metricsServer != nil {
					shutdown, stop := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
					defer stop()
					_ = metricsServer.Shutdown(shutdown)
				}
				return err
			case <-shutdownCtx.Done():
				comps.logger.Info("shutting down")
				if metricsServer != nil {
					shutdown, stop := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
					defer stop()
					_ = metricsServer.Shutdown(shutdown)
				}
				return nil
			}
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics", true, "Enable the Prometheus metrics server")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Address for the metrics server")

	return cmd
}
