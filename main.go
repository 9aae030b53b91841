// Command parkingjam starts the Parking Jam game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, metrics and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, levels directory, session expiry, debug logging,
// version output, and optional ngrok tunneling for external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/parkingjam/api"
	"github.com/wricardo/parkingjam/game/config"
	"github.com/wricardo/parkingjam/game/engine"
	"github.com/wricardo/parkingjam/game/metrics"
	"github.com/wricardo/parkingjam/game/service"
	"github.com/wricardo/parkingjam/game/session"
	"github.com/wricardo/parkingjam/transport/mcp"
	"github.com/wricardo/parkingjam/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Parking Jam Server"
)

// cleanupInterval is how often expired sessions are pruned.
const cleanupInterval = 10 * time.Minute

// Configuration flags control how the server starts and which services are enabled.
var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	levelsDir    = flag.String("levels-dir", getLevelsDirDefault(), "Directory containing level files (.json, .hcl)")
	staticDir    = flag.String("static-dir", os.Getenv("STATIC_DIR"), "Directory with the browser client (optional)")
	sessionTTL   = flag.Duration("session-ttl", 24*time.Hour, "Remove sessions idle for longer than this")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

// getLevelsDirDefault returns the default levels directory.
// It first honors the LEVELS_DIR environment variable, then falls back to "levels".
func getLevelsDirDefault() string {
	if dir := os.Getenv("LEVELS_DIR"); dir != "" {
		return dir
	}
	return "levels"
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                         # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090              # Run HTTP server on port 9090\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -levels-dir ./levels    # Load levels from ./levels\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp               # Run MCP stdio server\n", os.Args[0])
	}
}

// services holds everything the HTTP and MCP modes share.
type services struct {
	game     service.GameService
	sessions *session.Manager
	levels   *config.Manager
	hub      *websocket.Hub
	metrics  *metrics.Collector
	logger   *log.Logger
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	logger := log.Default()

	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Error loading .env file", "error", err)
		}
	} else {
		logger.Debug("Loaded environment variables from .env file")
	}

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	logger.SetLevel(logLevel(*debug, os.Getenv("LOG_LEVEL")))
	if *debug {
		logger.SetReportCaller(true)
	}

	args := flag.Args()
	mode := "server"
	if len(args) > 0 {
		mode = args[0]
	}

	logger.Info("Starting", "app", AppName, "version", Version, "mode", mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := initializeServices(*levelsDir, logger)
	if err != nil {
		logger.Fatal("Failed to initialize services", "error", err)
	}
	go svc.hub.Run(ctx)
	go sessionCleanupRoutine(ctx, svc.sessions, *sessionTTL, logger)

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCPWithInternalServer(ctx, svc)

	case "server", "http":
		runHTTPServer(ctx, svc)

	default:
		logger.Fatal("Unknown mode. Use 'server' (default) or 'stdio-mcp'", "mode", mode)
	}
}

// logLevel picks the logger level. -debug wins over LOG_LEVEL.
func logLevel(debug bool, env string) log.Level {
	if debug {
		return log.DebugLevel
	}
	if env != "" {
		if lvl, err := log.ParseLevel(env); err == nil {
			return lvl
		}
	}
	return log.InfoLevel
}

// initializeServices wires the level and session managers, the WebSocket hub,
// metrics and the game service.
func initializeServices(dir string, logger *log.Logger) (*services, error) {
	levelManager, err := config.NewManager(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create level manager: %w", err)
	}

	sessionManager := session.NewManager()
	hub := websocket.NewHub(logger.WithPrefix("ws"))
	collector := metrics.NewCollector(sessionManager.Count)

	// Browser tabs watching a removed session are disconnected.
	sessionManager.OnRemove(hub.CloseSession)

	gameService := service.NewGameService(sessionManager, levelManager,
		service.WithPresenterFactory(func(id string) engine.Presenter {
			return hub.Presenter(id)
		}),
		service.WithObserver(collector),
		service.WithLogger(logger),
	)

	return &services{
		game:     gameService,
		sessions: sessionManager,
		levels:   levelManager,
		hub:      hub,
		metrics:  collector,
		logger:   logger,
	}, nil
}

// newRouter mounts the REST API and the /mcp proxy endpoint for the given base URL.
func newRouter(svc *services, baseURL string) http.Handler {
	apiServer := api.NewServer(svc.game, svc.hub,
		api.WithMetrics(svc.metrics.Handler()),
		api.WithStaticDir(*staticDir),
		api.WithLogger(svc.logger.WithPrefix("api")),
	)

	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
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
	})
	return mainRouter
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled (via flag or environment), it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, svc *services) {
	logger := svc.logger
	addr := fmt.Sprintf("%s:%d", *host, *port)
	mainRouter := newRouter(svc, fmt.Sprintf("http://%s", addr))

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     mainRouter,
		ReadTimeout: 15 * time.Second,
		// Dispatches hold the response until their animations finish.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening", "addr", addr)
		logger.Info("Endpoints",
			"api", fmt.Sprintf("http://%s/api", addr),
			"ws", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr),
			"metrics", fmt.Sprintf("http://%s/metrics", addr))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", "error", err)
		}
	}()

	ngrokShouldRun := *ngrokEnabled
	if !ngrokShouldRun {
		if envEnabled := os.Getenv("NGROK_ENABLED"); envEnabled == "true" || envEnabled == "1" {
			ngrokShouldRun = true
		}
	}

	if ngrokShouldRun {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, mainRouter, logger)
		}()
	}

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	wg.Wait()
	logger.Info("Server stopped")
}

// runNgrok serves handler through an ngrok tunnel until ctx is cancelled.
func runNgrok(ctx context.Context, handler http.Handler, logger *log.Logger) {
	// Get auth token from flag or environment (support both naming conventions)
	authToken := *ngrokAuth
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTHTOKEN")
		if authToken == "" {
			authToken = os.Getenv("NGROK_AUTH_TOKEN")
		}
	}
	if authToken == "" {
		logger.Warn("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	logger.Info("Starting ngrok tunnel...")

	domain := *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Info("Using custom ngrok domain", "domain", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("Failed to start ngrok tunnel", "error", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Error("Failed to close ngrok tunnel", "error", err)
		}
	}()

	ngrokURL := tun.URL()
	logger.Info("Ngrok tunnel established", "url", ngrokURL,
		"api", ngrokURL+"/api",
		"ws", ngrokURL+"/ws?session=<session_id>",
		"mcp", ngrokURL+"/mcp")

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		logger.Error("Ngrok server error", "error", err)
	}
	logger.Info("Ngrok tunnel closed")
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within ttl. Sessions in the middle of an animation are kept.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, ttl time.Duration, logger *log.Logger) {
	if ttl <= 0 {
		return
	}
	interval := cleanupInterval
	if ttl < interval {
		interval = ttl
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				logger.Info("Cleaned up expired sessions", "count", removed)
			}
		}
	}
}

// externalAPIAvailable reports whether a server at baseURL answers its
// health check without a server error.
func externalAPIAvailable(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/healthz")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at http://localhost:<port>; if unavailable, it
// starts an internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, svc *services) {
	logger := svc.logger
	externalURL := fmt.Sprintf("http://localhost:%d", *port)
	baseURL := externalURL

	logger.Info("Checking for external API server", "url", externalURL)

	testClient := &http.Client{Timeout: 2 * time.Second}
	if externalAPIAvailable(testClient, externalURL) {
		logger.Info("External API server found, using it for MCP", "url", externalURL)
	} else {
		logger.Info("No external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			logger.Fatal("Failed to get available port", "error", err)
		}

		internalAddr := listener.Addr().String()
		baseURL = fmt.Sprintf("http://%s", internalAddr)

		httpServer := &http.Server{Handler: newRouter(svc, baseURL)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				logger.Error("Internal HTTP server error", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			httpServer.Close()
		}()

		logger.Info("Internal HTTP server started", "addr", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready", "api", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		logger.Fatal("MCP stdio server error", "error", err)
	}
}
