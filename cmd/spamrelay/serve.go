package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/mwhitford/spamrelay/internal/config"
	"github.com/mwhitford/spamrelay/internal/creds"
	"github.com/mwhitford/spamrelay/internal/events"
	"github.com/mwhitford/spamrelay/internal/lookup"
	"github.com/mwhitford/spamrelay/internal/server"
	"github.com/mwhitford/spamrelay/internal/transport"
)

var (
	serveConfigPath string
	serveListen     string
	serveLogLevel   string
	serveCredStore  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server over HTTP",
	Long: `Run spamrelay as an MCP server exposing the search and fetch tools
over two transports:

  POST /mcp   synchronous JSON request/response
  POST /sse   single response framed as a server-sent event
  GET  /sse   long-lived keep-alive event stream

Upstream credentials come from the configured credential store
(default: the TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN environment
variables). Missing credentials are not fatal at startup; lookups will
fail with an authentication error until they are provided.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to config file (default: ~/.config/spamrelay/config.json)")
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (overrides config and environment)")
	serveCmd.Flags().StringVarP(&serveLogLevel, "log-level", "l", "info", "Log level (debug, info, warn, error, off)")
	serveCmd.Flags().StringVar(&serveCredStore, "credential-store", "", "Credential store: env, file, or keyring (default: config or env)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	configureLogging(serveLogLevel)

	log.Printf("spamrelay serve starting (version=%s)", version)

	resolvedConfigPath, err := resolveConfigPath(serveConfigPath)
	if err != nil {
		return err
	}

	cfg, err := config.LoadFrom(resolvedConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	bus := events.NewBus()
	defer bus.Close()
	bus.Subscribe(logEvent)

	handler, err := buildHandler(cfg, bus)
	if err != nil {
		return err
	}
	app := &reloadableHandler{handler: handler}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down", sig)
		cancel()
	}()

	// Watch the config file so credential-store or stream settings can
	// change without a restart.
	go watchConfig(ctx, resolvedConfigPath, func(newCfg *config.Config) {
		newHandler, err := buildHandler(newCfg, bus)
		if err != nil {
			log.Printf("Config reload failed: %v (keeping current handler)", err)
			return
		}
		app.Swap(newHandler)
		log.Printf("Config reload complete")
	})

	addr := serveListen
	if addr == "" {
		addr = cfg.ListenAddr()
	}

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: app,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown: %v", err)
		}
	}()

	log.Printf("Listening on %s", addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	log.Println("spamrelay serve exiting")
	return nil
}

// configureLogging sets up stdlib logging per the requested level.
func configureLogging(level string) {
	switch level {
	case "debug":
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	case "info", "warn", "error":
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags)
	default:
		log.SetOutput(io.Discard)
	}
}

// resolveConfigPath expands ~ in a user-provided path or falls back to
// the default config location.
func resolveConfigPath(path string) (string, error) {
	if path == "" {
		resolved, err := config.ConfigPath()
		if err != nil {
			return "", fmt.Errorf("failed to get config path: %w", err)
		}
		return resolved, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home dir: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// buildHandler assembles the full request path: credential store →
// lookup client → dispatch table → HTTP transports.
func buildHandler(cfg *config.Config, bus *events.Bus) (http.Handler, error) {
	mode := creds.StoreMode(serveCredStore)
	if mode == "" {
		mode = creds.StoreMode(cfg.CredentialStore)
	}
	store, err := creds.Open(mode)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	cred, err := store.Get()
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	if cred.IsZero() {
		log.Printf("Warning: upstream credentials not configured; lookups will fail with authentication errors")
	}

	client := lookup.New(lookup.Options{
		BaseURL:    cfg.UpstreamBaseURL,
		Credential: cred,
	})

	srv := server.New(server.Options{
		Lookups:         client,
		Bus:             bus,
		ServerName:      "spamrelay",
		ServerVersion:   version,
		ProtocolVersion: "2024-11-05",
	})

	return transport.NewHandler(srv, transport.Options{
		Bus:               bus,
		ServiceName:       "spamrelay",
		ServiceVersion:    version,
		KeepAliveInterval: cfg.KeepAliveInterval(),
		MaxStreamLifetime: cfg.MaxStreamLifetime(),
	}), nil
}

// logEvent is the bus subscriber that turns lifecycle events into log
// lines. Phone numbers in events are already masked.
func logEvent(e events.Event) {
	switch ev := e.(type) {
	case events.LookupCompletedEvent:
		log.Printf("Spam check completed for %s: score=%d reputation=%s", ev.MaskedNumber, ev.SpamScore, ev.Reputation)
	case events.LookupFailedEvent:
		log.Printf("Spam check failed for %s: %s", ev.MaskedNumber, ev.Reason)
	case events.StreamOpenedEvent:
		log.Printf("Stream %s opened from %s", ev.StreamID, ev.RemoteAddr)
	case events.StreamClosedEvent:
		log.Printf("Stream %s closed: %s", ev.StreamID, ev.Reason)
	}
}

// reloadableHandler atomically swaps the HTTP handler on config reload.
type reloadableHandler struct {
	mu      sync.RWMutex
	handler http.Handler
}

func (h *reloadableHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	handler := h.handler
	h.mu.RUnlock()
	handler.ServeHTTP(w, r)
}

func (h *reloadableHandler) Swap(handler http.Handler) {
	h.mu.Lock()
	h.handler = handler
	h.mu.Unlock()
}

// watchConfig watches the config file for changes and invokes apply
// with each successfully loaded new config. It watches the parent
// directory (not the file) to handle atomic renames.
func watchConfig(ctx context.Context, configPath string, apply func(*config.Config)) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("Failed to create config watcher: %v", err)
		return
	}
	defer watcher.Close()

	dir := filepath.Dir(configPath)
	filename := filepath.Base(configPath)

	if err := watcher.Add(dir); err != nil {
		log.Printf("Failed to watch config directory %s: %v", dir, err)
		return
	}

	log.Printf("Watching config file: %s", configPath)

	const debounceDelay = 150 * time.Millisecond
	var debounceTimer *time.Timer
	var debounceMu sync.Mutex

	triggerReload := func() {
		debounceMu.Lock()
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(debounceDelay, func() {
			log.Printf("Config file changed, loading new config")

			newCfg, err := config.LoadFrom(configPath)
			if err != nil {
				log.Printf("Failed to load config after change: %v (keeping current config)", err)
				return
			}
			apply(newCfg)
		})
		debounceMu.Unlock()
	}

	for {
		select {
		case <-ctx.Done():
			debounceMu.Lock()
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceMu.Unlock()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			// Atomic writes show up as rename/create depending on OS/editor
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				log.Printf("Config file event: %s (%s)", event.Name, event.Op)
				triggerReload()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Config watcher error: %v", err)
		}
	}
}
