package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/sheetmail/internal/google"
	"github.com/teemow/sheetmail/internal/instrumentation"
	"github.com/teemow/sheetmail/internal/resources"
	"github.com/teemow/sheetmail/internal/server"
	"github.com/teemow/sheetmail/internal/tools/gmail_tools"
	"github.com/teemow/sheetmail/internal/tools/sheets_tools"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"

	mcpEndpointPath = "/mcp"
)

type serveOptions struct {
	transport      string
	httpAddr       string
	yolo           bool
	maxMB          int
	qps            float64
	metricsEnabled bool
	metricsAddr    string
}

func (o *serveOptions) validate() error {
	switch o.transport {
	case transportStdio, transportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", o.transport)
	}
	if o.qps < 0 {
		return fmt.Errorf("--qps must not be negative, got %v", o.qps)
	}
	if o.maxMB < 0 {
		return fmt.Errorf("--max-mb must not be negative, got %d", o.maxMB)
	}
	return nil
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server to provide Gmail and Google
Sheets tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on ` + mcpEndpointPath + `

Safety Mode:
  By default, the server operates in read-only mode and only offers
  sheets_get_cells and sheets_get_filters. Use --yolo to enable write
  operations (sending mail, clearing and applying filters).

Credentials:
  The server uses the credential saved by 'sheetmail auth'. With the stdio
  transport the browser consent flow runs on first use if none is saved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Load metrics config from environment if not set via flags
			if !cmd.Flags().Changed("metrics-enabled") && os.Getenv("METRICS_ENABLED") == "true" {
				opts.metricsEnabled = true
			}
			if !cmd.Flags().Changed("metrics-addr") {
				opts.metricsAddr = getEnvOrDefault("METRICS_ADDR", opts.metricsAddr)
			}
			if err := opts.validate(); err != nil {
				return err
			}
			return runServe(opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	f.StringVar(&opts.httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	f.BoolVar(&opts.yolo, "yolo", false, "Enable write operations (sending mail, changing filters)")
	f.IntVar(&opts.maxMB, "max-mb", defaultMaxMB(), "Default message size budget in MB for gmail_send_message. Can also use "+envMaxMB+" env var.")
	f.Float64Var(&opts.qps, "qps", 5, "Maximum Google API requests per second (0 disables limiting)")
	f.BoolVar(&opts.metricsEnabled, "metrics-enabled", true, "Serve Prometheus metrics and health probes (non-stdio transports)")
	f.StringVar(&opts.metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(opts *serveOptions) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			slog.Warn("error during instrumentation shutdown", slog.String("error", err.Error()))
		}
	}()

	tokens := &google.StoreTokenProvider{
		Store:       google.NewStore(globals.credentials),
		SecretsFile: globals.clientSecret,
		Scopes:      google.AllScopes,
		Interactive: opts.transport == transportStdio,
	}

	serverContext := server.NewServerContext(shutdownCtx, tokens,
		server.WithTransport(google.TransportConfig{
			MaxRetries:        google.DefaultTransportConfig().MaxRetries,
			RequestsPerSecond: opts.qps,
			CircuitBreaker:    true,
		}),
		server.WithInstrumentation(provider.Metrics(),
			instrumentation.NewAuditLogger(slog.Default(), instrConfig.AuditLogging)),
		server.WithMaxMB(opts.maxMB),
	)
	health := server.NewHealthChecker(serverContext)

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if opts.transport != transportStdio && opts.metricsEnabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:     opts.metricsAddr,
			Provider: provider,
			Health:   health,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil {
				slog.Error("metrics server failed", slog.String("error", err.Error()))
			}
		}()
	}

	defer func() {
		// Shutdown metrics server first
		if metricsServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				slog.Warn("error during metrics server shutdown", slog.String("error", err.Error()))
			}
		}
		if err := serverContext.Shutdown(); err != nil {
			slog.Warn("error during server context shutdown", slog.String("error", err.Error()))
		}
	}()

	mcpSrv := mcpserver.NewMCPServer("sheetmail", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)

	// readOnly is the inverse of yolo
	readOnly := !opts.yolo
	if readOnly {
		slog.Info("starting server in read-only mode (use --yolo to enable write operations)")
	} else {
		slog.Info("starting server with write operations enabled")
	}

	if err := registerAllTools(mcpSrv, serverContext, readOnly); err != nil {
		return err
	}
	health.SetReady(true)

	switch opts.transport {
	case transportStdio:
		return runStdioServer(mcpSrv)
	default:
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, opts.httpAddr, provider.Metrics(), health)
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, addr string, metrics *instrumentation.Metrics, health *server.HealthChecker) error {
	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath(mcpEndpointPath),
	)

	mux := http.NewServeMux()
	mux.Handle(mcpEndpointPath, server.InstrumentHTTP(streamable, metrics))
	health.RegisterHealthEndpoints(mux)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		slog.Info("starting MCP server", slog.String("transport", transportStreamableHTTP),
			slog.String("addr", addr), slog.String("endpoint", mcpEndpointPath))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		health.SetReady(false)
		slog.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
		return nil
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}
}

// registerAllTools registers the Gmail and Sheets tools and the MCP resources.
func registerAllTools(mcpSrv *mcpserver.MCPServer, ctx *server.ServerContext, readOnly bool) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Gmail tools",
			register: func() error {
				return gmail_tools.RegisterGmailTools(mcpSrv, ctx, readOnly)
			},
		},
		{
			name: "Sheets tools",
			register: func() error {
				return sheets_tools.RegisterSheetsTools(mcpSrv, ctx, readOnly)
			},
		},
		{
			name: "resources",
			register: func() error {
				return resources.RegisterResources(mcpSrv, ctx, readOnly)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}
	return nil
}
