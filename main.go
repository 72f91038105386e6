// Command polyfit starts the Polyfit puzzle server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Settings come from a YAML file (see settings.Settings); flags and
// environment variables override it. Optional ngrok tunneling gives easy
// external access during development.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/polyfit/api"
	"github.com/wricardo/polyfit/game/config"
	"github.com/wricardo/polyfit/game/service"
	"github.com/wricardo/polyfit/game/session"
	"github.com/wricardo/polyfit/metrics"
	"github.com/wricardo/polyfit/settings"
	"github.com/wricardo/polyfit/transport/mcp"
	"github.com/wricardo/polyfit/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Polyfit Puzzle Server"
)

// services bundles everything a running server needs
type services struct {
	settings *settings.Settings
	sessions *session.Manager
	configs  *config.Manager
	puzzle   service.PuzzleService
	metrics  *metrics.Collector
	hub      *websocket.Hub
	api      *api.Server
}

// newCommand builds the CLI. Flags are shared by every subcommand.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:           "polyfit",
		Usage:          "polyomino puzzle server with REST, WebSocket and MCP interfaces",
		Version:        Version,
		DefaultCommand: "server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "settings",
				Value:   "polyfit.yaml",
				Usage:   "YAML settings file (ignored when missing)",
				Sources: cli.EnvVars("POLYFIT_SETTINGS"),
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "HTTP server host",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "HTTP server port",
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Usage:   "Directory containing puzzle configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.IntFlag{
				Name:  "tick-rate",
				Usage: "Frame ticks per second for snapping pieces",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Enable ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					s, err := loadSettings(cmd)
					if err != nil {
						return err
					}
					return runHTTPServer(ctx, s, cmd.String("ngrok-auth"))
				},
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					s, err := loadSettings(cmd)
					if err != nil {
						return err
					}
					return runStdioMCPWithInternalServer(ctx, s)
				},
			},
		},
	}
}

// main loads .env, parses flags, and starts the selected mode.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadSettings reads the settings file and applies flag overrides
func loadSettings(cmd *cli.Command) (*settings.Settings, error) {
	s, err := settings.LoadOrDefault(cmd.String("settings"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("host") {
		s.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		s.Server.Port = cmd.Int("port")
	}
	if cmd.IsSet("config-dir") {
		s.Server.ConfigDir = cmd.String("config-dir")
	}
	if cmd.IsSet("tick-rate") {
		s.Frames.TickRate = cmd.Int("tick-rate")
	}
	if cmd.IsSet("debug") {
		s.Server.Debug = cmd.Bool("debug")
	}
	if cmd.IsSet("ngrok") {
		s.Ngrok.Enabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-domain") {
		s.Ngrok.Domain = cmd.String("ngrok-domain")
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	if s.Server.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
	return s, nil
}

// initializeServices wires session/config managers, the puzzle service, the
// WebSocket hub and the API server.
func initializeServices(s *settings.Settings) (*services, error) {
	configManager, err := config.NewManager(s.Server.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	sessionManager := session.NewManager()
	collector := metrics.NewCollector()
	puzzleService := service.NewPuzzleService(sessionManager, configManager)

	hub := websocket.NewHub(websocket.WithMetrics(collector))
	apiServer := api.NewServer(puzzleService, hub, collector)
	hub.SetInputHandler(apiServer.HandleInput)

	return &services{
		settings: s,
		sessions: sessionManager,
		configs:  configManager,
		puzzle:   puzzleService,
		metrics:  collector,
		hub:      hub,
		api:      apiServer,
	}, nil
}

// startBackground runs the hub and every periodic routine until ctx ends
func (svc *services) startBackground(ctx context.Context, wg *sync.WaitGroup) {
	go svc.hub.Run()
	go func() {
		<-ctx.Done()
		svc.hub.Stop()
	}()

	routines := []func(context.Context){
		func(ctx context.Context) {
			frameRoutine(ctx, svc.puzzle, svc.api, svc.metrics, svc.settings.FrameInterval())
		},
		func(ctx context.Context) {
			auditRoutine(ctx, svc.puzzle, svc.metrics, svc.settings.Frames.AuditInterval)
		},
		func(ctx context.Context) {
			sessionCleanupRoutine(ctx, svc.sessions, svc.settings.Sessions.MaxAge, svc.settings.Sessions.CleanupInterval)
		},
		func(ctx context.Context) {
			reloadRoutine(ctx, svc.configs)
		},
	}
	for _, routine := range routines {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(ctx)
		}(routine)
	}
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(parent context.Context, s *settings.Settings, ngrokAuth string) error {
	svc, err := initializeServices(s)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	addr := s.Addr()
	log.Printf("Starting %s v%s on %s", AppName, Version, addr)

	// Create MCP client for /mcp endpoint
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", svc.api)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Setup graceful shutdown context
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	var wg sync.WaitGroup
	svc.startBackground(ctx, &wg)

	serveErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)
		log.Printf("Frame rate: %d Hz", s.Frames.TickRate)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if s.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, s.Ngrok.Domain, ngrokAuth, mainRouter)
		}()
	}

	// Wait for shutdown signal
	var runErr error
	select {
	case sig := <-stop:
		log.Printf("Received signal: %v. Shutting down...", sig)
	case runErr = <-serveErr:
		log.Printf("Shutting down: %v", runErr)
	case <-parent.Done():
	}
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")
	return runErr
}

// mcpHandler serves MCP JSON-RPC messages over plain HTTP POST
func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx ends
func runNgrokTunnel(ctx context.Context, domain, authToken string, handler http.Handler) {
	if authToken == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Printf("Using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("🚀 Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// frameRoutine advances snapping pieces in every session and broadcasts what
// changed. dt is the measured time since the previous frame.
func frameRoutine(ctx context.Context, svc service.PuzzleService, apiServer *api.Server, collector *metrics.Collector, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now

			start := time.Now()
			reports, err := svc.TickAll(ctx, dt)
			collector.RecordTick(time.Since(start))
			if err != nil && ctx.Err() == nil {
				log.Printf("[TICK] frame failed: %v", err)
			}
			apiServer.PublishTicks(reports)
		}
	}
}

// auditRoutine periodically checks grid and piece consistency in every
// session. It only reads; violations are logged and counted.
func auditRoutine(ctx context.Context, svc service.PuzzleService, collector *metrics.Collector, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := svc.Audit(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("[AUDIT] failed: %v", err)
				}
				continue
			}
			collector.RecordAudit(len(report.Violations))
			for id, violation := range report.Violations {
				log.Printf("[AUDIT] session=%s %s", id, violation)
			}
		}
	}
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within the provided retention window.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, maxAge, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(maxAge); removed > 0 {
				log.Printf("Cleaned up %d expired sessions", removed)
			}
		}
	}
}

// reloadRoutine drops the config cache on SIGHUP so edited puzzle files are
// picked up by new sessions.
func reloadRoutine(ctx context.Context, configs *config.Manager) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := configs.RefreshCache(); err != nil {
				log.Printf("Warning: config reload failed: %v", err)
				continue
			}
			log.Println("Reloaded puzzle configurations")
		}
	}
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API first; if unavailable, it starts an
// internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, s *settings.Settings) error {
	externalURL := s.MCP.ExternalURL
	log.Printf("Checking for external API server at %s...", externalURL)

	baseURL := externalURL
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Printf("External API server found at %s, using it for MCP", externalURL)
	} else {
		if resp != nil {
			resp.Body.Close()
		}
		log.Printf("No external API server found, starting internal HTTP server")

		svc, err := initializeServices(s)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		internalAddr := listener.Addr().String()
		log.Printf("Starting internal HTTP server on %s for MCP stdio", internalAddr)

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		var wg sync.WaitGroup
		svc.startBackground(ctx, &wg)

		httpServer := &http.Server{Handler: svc.api}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()
		defer httpServer.Close()

		baseURL = fmt.Sprintf("http://%s", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Printf("MCP stdio server ready (API at %s)", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
