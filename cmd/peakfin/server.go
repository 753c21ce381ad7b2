package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/peakfin/peakfin/internal/advisor"
	"github.com/peakfin/peakfin/internal/api"
	"github.com/peakfin/peakfin/internal/compliance"
	"github.com/peakfin/peakfin/internal/config"
	"github.com/peakfin/peakfin/internal/provider"
	"github.com/peakfin/peakfin/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the peakfin server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		mcpUser, _ := cmd.Flags().GetString("mcp-user")
		return runServer(mcpUser)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running peakfin server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show peakfin system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	serveCmd.Flags().String("mcp-user", "", "email of the account MCP tools act as (stdio transport has no login step)")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "peakfin.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer(mcpUser string) error {
	fmt.Fprintf(os.Stderr, "peakfin version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Refuse to double-start. The health endpoint is the authority; the
	// PID file only names the culprit.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("peakfin is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("peakfin is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Build the advisory pipeline: provider behind the compliance gate,
	// audited through the store.
	prov, err := provider.New(provider.Config{
		Kind:      cfg.Advisor.Provider,
		BaseURL:   cfg.Advisor.BaseURL,
		APIKey:    cfg.Advisor.APIKey,
		Model:     cfg.Advisor.Model,
		Timeout:   time.Duration(cfg.Advisor.TimeoutSeconds) * time.Second,
		MaxTokens: cfg.Advisor.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("building advisor provider: %w", err)
	}
	mode := compliance.ModeFor(cfg.Mode.RegulatedPartner)
	mediator := advisor.NewMediator(mode, prov, store)
	slog.Info("advisor ready", "provider", cfg.Advisor.Provider, "mode", mode.String())

	handler := api.NewHandler(api.Deps{
		Store:        store,
		Mediator:     mediator,
		MaxDTI:       cfg.Finance.MaxDTI,
		FunRatio:     cfg.Finance.FunRatio,
		DefaultCPI:   cfg.Finance.DefaultCPI,
		BcryptCost:   cfg.Auth.BcryptCost,
		SessionTTL:   time.Duration(cfg.Auth.SessionTTLHours) * time.Hour,
		AskPerMinute: cfg.Limits.AdvisorPerMinute,
		MaxImportMB:  cfg.Limits.MaxCSVMB,
	})

	// Resolve the MCP-bound account. Stdio has no login step, so the MCP
	// tools act as this one user for the life of the process.
	var mcpUserRef string
	if mcpUser != "" {
		u, err := store.GetUserByEmail(strings.ToLower(strings.TrimSpace(mcpUser)))
		if err != nil {
			return fmt.Errorf("resolving --mcp-user %q: %w", mcpUser, err)
		}
		mcpUserRef = u.ID
	}
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:      store,
		Mediator:   mediator,
		UserRef:    mcpUserRef,
		FunRatio:   cfg.Finance.FunRatio,
		DefaultCPI: cfg.Finance.DefaultCPI,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	// HTTP and MCP stdio run under one group. A dying HTTP listener takes
	// the process down; a dying MCP stream only logs.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "peakfin listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	stdioSrv := server.NewStdioServer(mcpSrv)
	g.Go(func() error {
		err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
			slog.Error("MCP stdio server error", "error", err)
		}
		return nil
	})
	slog.Info("MCP server started (stdio transport)")

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("peakfin is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop peakfin (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to peakfin (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	// Check server health.
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if cfg.Mode.RegulatedPartner {
		printStatus("Mode", "regulated partner")
	} else {
		printStatus("Mode", "educational only")
	}
	if cfg.Advisor.Provider == "remote" {
		printStatus("Advisor", "remote (%s)", cfg.Advisor.Model)
	} else {
		printStatus("Advisor", "offline")
	}

	// Show record counts if the server is running and a session is cached.
	token, tokenErr := readCachedToken(cfg.Storage.DataDir)
	if tokenErr == nil && token != "" && running {
		expResp, err := apiGet(client, serverURL+"/v1/data/expenses", token)
		if err == nil {
			var expenses []json.RawMessage
			if json.NewDecoder(expResp.Body).Decode(&expenses) == nil {
				printStatus("Expenses", "%d", len(expenses))
			}
			expResp.Body.Close()
		}
		auditResp, err2 := apiGet(client, serverURL+"/v1/audit?limit=100", token)
		if err2 == nil {
			var records []json.RawMessage
			if json.NewDecoder(auditResp.Body).Decode(&records) == nil {
				printStatus("Audit records", "%s", countLabel(len(records), 100))
			}
			auditResp.Body.Close()
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}

func apiGet(client *http.Client, url, token string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return client.Do(req)
}
