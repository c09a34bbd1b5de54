// Command openapi-bridge converts an OpenAPI description into an MCP
// tool server: one invocable, schema-validated tool per operation,
// dispatched against the live API.
//
// File mode serves the descriptions named on the command line over
// stdio or streamable HTTP. Database mode (DATABASE_URL set) mounts
// every active stored spec under its endpoint path and exposes a
// management REST API beside the MCP mounts.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/getkin/kin-openapi/openapi3"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/phuslu/log"

	"github.com/toolfront/openapi-bridge/pkg/auth"
	"github.com/toolfront/openapi-bridge/pkg/database"
	"github.com/toolfront/openapi-bridge/pkg/loader"
	"github.com/toolfront/openapi-bridge/pkg/server"
	"github.com/toolfront/openapi-bridge/pkg/services"
	"github.com/toolfront/openapi-bridge/pkg/toolgen"
)

func main() {
	cfg, err := server.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Stdout carries the stdio protocol stream; logging goes to stderr.
	log.DefaultLogger = log.Logger{
		Level:  cfg.ParsedLogLevel(),
		Writer: &log.IOWriter{Writer: os.Stderr},
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if cfg.DatabaseMode() {
		err = runDatabaseMode(cfg)
	} else {
		err = runFileMode(cfg)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// runFileMode serves the descriptions named on the command line.
func runFileMode(cfg *server.Config) error {
	ctx := context.Background()
	specs := loader.New()

	type mount struct {
		endpoint string
		srv      *mcpserver.MCPServer
	}
	var mounts []mount

	for _, source := range cfg.Sources {
		document, err := specs.Load(ctx, source)
		if err != nil {
			return err
		}
		doc := document.Doc

		resolved, err := resolveAuth(cfg, doc)
		if err != nil {
			return err
		}

		if cfg.Summary {
			ops, err := toolgen.ExtractOperations(doc)
			if err != nil {
				return err
			}
			toolgen.PrintToolSummary(ops)
			continue
		}

		srv, err := toolgen.NewServer(serverName(cfg, doc, document.Endpoint), serverVersion(cfg, doc), doc, toolgen.Options{
			BaseURL:  cfg.BaseURL,
			Resolved: resolved,
		})
		if err != nil {
			return err
		}
		mounts = append(mounts, mount{endpoint: document.Endpoint, srv: srv})
	}

	if cfg.Summary || len(mounts) == 0 {
		return nil
	}

	if cfg.HTTPAddr == "" {
		// Stdio carries exactly one description.
		return toolgen.ServeStdio(mounts[0].srv)
	}

	mux := http.NewServeMux()
	for _, m := range mounts {
		mux.Handle("/"+m.endpoint, toolgen.HandlerForStreamableHTTP(m.srv, "/"+m.endpoint, nil))
		log.Info().Str("url", toolgen.GetStreamableHTTPURL(cfg.HTTPAddr, m.endpoint)).Msg("serving description")
	}
	return serveHTTP(cfg.HTTPAddr, server.CORS(mux))
}

// resolveAuth builds the startup authentication context and enforces
// the credential precondition, prompting once in interactive mode.
func resolveAuth(cfg *server.Config, doc *openapi3.T) (*auth.Resolved, error) {
	resolved := auth.Resolve(doc, cfg.APIKey, cfg.Headers)

	var prompt func(hint string) (string, error)
	if cfg.Interactive {
		prompt = promptCredential
	}
	credential, err := auth.EnsureCredential(doc, resolved, cfg.APIKey, prompt)
	if err != nil {
		return nil, err
	}
	if credential != cfg.APIKey {
		resolved = auth.Resolve(doc, credential, cfg.Headers)
	}
	return resolved, nil
}

func promptCredential(hint string) (string, error) {
	rl, err := readline.New(fmt.Sprintf("Enter %s: ", hint))
	if err != nil {
		return "", err
	}
	defer rl.Close()

	line, err := rl.Readline()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func serverName(cfg *server.Config, doc *openapi3.T, fallback string) string {
	if cfg.Name != "" {
		return cfg.Name
	}
	if doc.Info != nil && doc.Info.Title != "" {
		return doc.Info.Title
	}
	return fallback
}

func serverVersion(cfg *server.Config, doc *openapi3.T) string {
	if cfg.Version != "" {
		return cfg.Version
	}
	if doc.Info != nil && doc.Info.Version != "" {
		return doc.Info.Version
	}
	return "1.0.0"
}

// muxHolder swaps the active handler atomically when the stored spec
// set changes, so reloads never interrupt in-flight requests.
type muxHolder struct {
	mu  sync.RWMutex
	mux *http.ServeMux
}

func (h *muxHolder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	mux := h.mux
	h.mu.RUnlock()
	mux.ServeHTTP(w, r)
}

func (h *muxHolder) swap(mux *http.ServeMux) {
	h.mu.Lock()
	h.mux = mux
	h.mu.Unlock()
}

// runDatabaseMode mounts every active stored spec and keeps the mounts
// in sync with the store by polling for changes.
func runDatabaseMode(cfg *server.Config) error {
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	specService := services.NewSpecService(db)
	states := auth.NewStateManager()
	holder := &muxHolder{}

	var rebuild func() ([]string, error)
	rebuild = func() ([]string, error) {
		mux, mounted, err := buildDatabaseMux(ctx, cfg, specService, states, rebuild)
		if err != nil {
			return nil, err
		}
		holder.swap(mux)
		return mounted, nil
	}

	mounted, err := rebuild()
	if err != nil {
		return err
	}
	log.Info().Strs("endpoints", mounted).Str("addr", cfg.HTTPAddr).Msg("database mode ready")

	lastHash, err := specSetHash(specService)
	if err != nil {
		return err
	}

	if cfg.PollInterval > 0 {
		go pollSpecChanges(ctx, cfg.PollInterval, specService, &lastHash, rebuild)
	}

	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: server.CORS(holder)}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// buildDatabaseMux assembles a fresh mux: one MCP mount per active
// spec plus the management API. reload is what the management API's
// /reload endpoint triggers; it rebuilds and swaps the whole mux.
func buildDatabaseMux(ctx context.Context, cfg *server.Config, specService *services.SpecService, states *auth.StateManager, reload func() ([]string, error)) (*http.ServeMux, []string, error) {
	loadedSpecs, err := specService.LoadActive(ctx)
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	var mounted []string

	for _, spec := range loadedSpecs {
		endpoint := strings.Trim(spec.Row.EndpointPath, "/")
		srv, err := toolgen.NewServerWithSpec(spec.Row.Name, serverVersion(cfg, spec.Doc), spec.Doc, spec.Row, toolgen.Options{
			BaseURL: cfg.BaseURL,
		})
		if err != nil {
			log.Warn().Str("spec", spec.Row.Name).Err(err).Msg("skipping spec")
			continue
		}
		ctxFn := server.SecureAuthContextFunc(spec.Doc, states)
		mux.Handle("/"+endpoint, toolgen.HandlerForStreamableHTTP(srv, "/"+endpoint, ctxFn))
		mounted = append(mounted, endpoint)
	}

	management := server.NewManagementHandler(specService, reload)
	management.Register(mux)

	updateStates(specService, states)
	return mux, mounted, nil
}

func updateStates(specService *services.SpecService, states *auth.StateManager) {
	rows, err := specService.GetActiveSpecs()
	if err != nil {
		log.Warn().Err(err).Msg("failed to refresh auth state")
		return
	}
	states.UpdateSpecs(rows)
}

// specSetHash fingerprints the active spec set for change detection.
func specSetHash(specService *services.SpecService) (string, error) {
	rows, err := specService.GetActiveSpecs()
	if err != nil {
		return "", err
	}
	digest := sha256.New()
	for _, row := range rows {
		fmt.Fprintf(digest, "%d|%s|%s|%v|", row.ID, row.Name, row.EndpointPath, row.UpdatedAt)
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

// pollSpecChanges rebuilds the mounts whenever the stored spec set
// changes.
func pollSpecChanges(ctx context.Context, intervalSeconds int, specService *services.SpecService, lastHash *string, rebuild func() ([]string, error)) {
	ticker := time.NewTicker(time.Duration(intervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hash, err := specSetHash(specService)
			if err != nil {
				log.Warn().Err(err).Msg("spec polling failed")
				continue
			}
			if hash == *lastHash {
				continue
			}
			mounted, err := rebuild()
			if err != nil {
				log.Warn().Err(err).Msg("spec reload failed")
				continue
			}
			*lastHash = hash
			log.Info().Strs("endpoints", mounted).Msg("spec set changed, mounts rebuilt")
		}
	}
}

func serveHTTP(addr string, handler http.Handler) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{Addr: addr, Handler: handler}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
