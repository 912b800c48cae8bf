package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/codevoice/internal/api"
	"github.com/kalambet/codevoice/internal/composer"
	"github.com/kalambet/codevoice/internal/config"
	"github.com/kalambet/codevoice/internal/engine"
	"github.com/kalambet/codevoice/internal/intent"
	"github.com/kalambet/codevoice/internal/ollama"
	"github.com/kalambet/codevoice/internal/proxy"
	"github.com/kalambet/codevoice/internal/session"
	"github.com/kalambet/codevoice/internal/tone"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the codevoice daemon (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show codevoice daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	startCmd.Flags().Bool("mcp", false, "also serve MCP over stdio")
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// completionModel returns the model name for the configured backend.
func completionModel(cfg config.Config) string {
	if cfg.Completion.Backend == "ollama" {
		return cfg.Ollama.Model
	}
	return cfg.Completion.Model
}

// buildManager wires the completion backend, intent catalog and session
// manager from cfg. Local backends are made ready before it returns.
func buildManager(ctx context.Context, cfg config.Config, w io.Writer) (*session.Manager, error) {
	if cfg.Session.DefaultTone != "" {
		if _, err := tone.Lookup(cfg.Session.DefaultTone); err != nil {
			return nil, fmt.Errorf("session.default_tone: %w", err)
		}
	}

	catalog, err := intent.Load(cfg.Catalog.IntentsPath)
	if err != nil {
		return nil, fmt.Errorf("loading intent catalog: %w", err)
	}

	var keys proxy.KeySource
	if cfg.Completion.Backend != "ollama" {
		keys = config.APIKeySource()
	}

	eng, err := engine.Detect(engine.DetectConfig{
		Backend:       cfg.Completion.Backend,
		OpenAIBaseURL: cfg.Completion.BaseURL,
		Keys:          keys,
		OllamaBaseURL: cfg.Ollama.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("detecting completion backend: %w", err)
	}

	model := completionModel(cfg)
	if err := engine.EnsureReady(ctx, eng, model, w); err != nil {
		return nil, err
	}

	ex := session.NewExplainer(eng, catalog, composer.Options{
		Model:       model,
		MaxTokens:   cfg.Completion.MaxTokens,
		Temperature: cfg.Completion.Temperature,
	})
	m := session.NewManager(ex, keys)
	m.DefaultTone = cfg.Session.DefaultTone
	return m, nil
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "codevoice version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(newLogger(os.Stderr, cfg.Log.Level))

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(daemonURL(cfg) + "/health"); err == nil {
		resp.Body.Close()
		printWarning("codevoice is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mgr, err := buildManager(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer mgr.CloseAll()

	if _, err := config.APIKeySource()(); err != nil && cfg.Completion.Backend != "ollama" {
		slog.Warn("no API key configured; sessions will be refused until one is set", "error", err)
	}
	if cfg.Server.Token == "" {
		slog.Info("management API is unauthenticated; set CODEVOICE_SERVER_TOKEN to require a bearer token")
	}

	srv := &http.Server{
		Addr: addr,
		Handler: api.NewHandler(api.Deps{
			Sessions: mgr,
			Token:    cfg.Server.Token,
			BaseURL:  daemonURL(cfg),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "codevoice listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		mgr.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if withMCP {
		stdioSrv := server.NewStdioServer(api.NewMCPServer(api.MCPDeps{Sessions: mgr, Version: version}))
		g.Go(func() error {
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("MCP stdio server: %w", err)
			}
			return nil
		})
		slog.Info("MCP server started (stdio transport)")
	}

	return g.Wait()
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(daemonURL(cfg) + "/health")
	if err != nil {
		printField("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			printField("Server", "running on port %d", cfg.Server.Port)
		} else {
			printField("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printField("Backend", "%s", cfg.Completion.Backend)
	printField("Model", "%s", completionModel(cfg))

	if cfg.Completion.Backend == "ollama" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if ollama.New(cfg.Ollama.BaseURL).IsRunning(ctx) {
			printField("Ollama", "running at %s", cfg.Ollama.BaseURL)
		} else {
			printField("Ollama", "not running")
		}
	} else {
		printField("Endpoint", "%s", cfg.Completion.BaseURL)
		if _, err := config.APIKeySource()(); err != nil {
			printField("API key", "missing")
		} else {
			printField("API key", "configured")
		}
	}

	defaultTone := cfg.Session.DefaultTone
	if defaultTone == "" {
		defaultTone = "(none, choose per session: " + strings.Join(tone.Names(), ", ") + ")"
	}
	printField("Default tone", "%s", defaultTone)
	return nil
}
