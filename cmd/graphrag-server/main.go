// graphrag-server is the query gateway: the streaming tool surface
// agents connect to.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/repograph/gateway/internal/config"
	"github.com/repograph/gateway/internal/dispatch"
	apperrors "github.com/repograph/gateway/internal/errors"
	"github.com/repograph/gateway/internal/guard"
	"github.com/repograph/gateway/internal/llm"
	"github.com/repograph/gateway/internal/logging"
	"github.com/repograph/gateway/internal/rpc"
	"github.com/repograph/gateway/internal/store"
	"github.com/repograph/gateway/internal/tracing"
	"github.com/repograph/gateway/internal/translate"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "graphrag-server",
	Short: "Serve the graph query tools over streaming RPC",
	RunE:  serve,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default: ./graphrag.yaml)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// unconfiguredCompleter stands in when no LLM key is set, so the
// deterministic tool surface stays up.
type unconfiguredCompleter struct{}

func (unconfiguredCompleter) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return nil, apperrors.New(apperrors.ErrorTypeConfig, apperrors.SeverityMedium,
		"no llm api key is configured; use the deterministic tools").WithKind(apperrors.KindUnavailable)
}

func serve(cmd *cobra.Command, args []string) error {
	_ = logging.Initialize(logging.DefaultConfig(verbose))
	defer logging.Close()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if result := cfg.Validate(config.ValidationContextServer); result.HasErrors() {
		return errors.New(result.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store gateway behind its own breaker.
	storeBreaker := guard.NewCircuitBreaker("neo4j_query", 5, 60*time.Second)
	gateway := store.NewGateway(store.Config{
		URI:            cfg.Store.URI,
		User:           cfg.Store.User,
		Password:       cfg.Store.Password,
		Database:       cfg.Store.Database,
		MaxPoolSize:    cfg.Store.MaxPoolSize,
		ConnectTimeout: cfg.Store.ConnectTimeout,
		QueryTimeout:   cfg.Store.QueryTimeout,
	}, storeBreaker)
	defer gateway.Close(context.Background())

	// Translator behind the generation breaker. Without an API key the
	// deterministic tools still serve; only translation degrades.
	var completer translate.Completer
	if cfg.LLM.APIKey != "" {
		client, err := llm.NewClient(llm.Config{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.Timeout,
		})
		if err != nil {
			return err
		}
		completer = client
	} else {
		completer = unconfiguredCompleter{}
	}
	generationBreaker := guard.NewCircuitBreaker("cypher_generation", 3, 30*time.Second)
	rowCap := guard.NewRowCap(cfg.RPC.RowCapDefault, cfg.RPC.RowCapAbsolute)
	translator := translate.NewTranslator(completer, gateway, generationBreaker, rowCap)

	var tracer tracing.Tracer = tracing.NewNoop()
	if cfg.Tracing.Enabled {
		tracer = tracing.NewLogging()
		translator.OnTokens = func(count int) {
			_, span := tracer.StartSpan(context.Background(), "llm.tokens")
			span.RecordTokens(count)
			span.End(nil)
		}
	}

	// Session store: bbolt-backed so a restart keeps repository scope.
	var sessions dispatch.SessionStore
	if cfg.RPC.SessionDBPath != "" {
		boltStore, err := dispatch.NewBoltSessionStore(cfg.RPC.SessionDBPath)
		if err != nil {
			return err
		}
		defer boltStore.Shutdown()
		sessions = boltStore
	} else {
		sessions = dispatch.NewMemorySessionStore()
	}

	deps := dispatch.Deps{
		Store:    gateway,
		Sessions: sessions,
		Sanitizer: &guard.PathSanitizer{
			BaseDir: cfg.RPC.PathSanitizerBaseDir,
		},
		QueryTimeout: cfg.Store.QueryTimeout,
	}
	queryDeps := dispatch.QueryDeps{Deps: deps, Translator: translator}

	dispatcher := dispatch.NewDispatcher(sessions, tracer)
	dispatcher.Register(dispatch.NewSetRepositoryContext(deps))
	dispatcher.Register(dispatch.NewQueryCodebase(queryDeps))
	dispatcher.Register(dispatch.NewQueryWithRAG(queryDeps))
	dispatcher.Register(dispatch.NewFindDependencies(deps))
	dispatcher.Register(dispatch.NewTraceVariable(deps))
	dispatcher.Register(dispatch.NewGetRoleUsage(deps))
	dispatcher.Register(dispatch.NewAnalyzePlaybook(deps))
	dispatcher.Register(dispatch.NewFindTasksByModule(deps))
	dispatcher.Register(dispatch.NewGetTaskHierarchy(deps))
	dispatcher.Register(dispatch.NewFindTemplateUsage(deps))

	limiter := guard.NewRateLimiter(cfg.RPC.RateLimitRPM, cfg.RPC.RateLimitBurst)
	var shared *guard.RedisRateLimiter
	if cfg.RPC.RateLimitRedisAddr != "" {
		shared, err = guard.NewRedisRateLimiter(cfg.RPC.RateLimitRedisAddr, cfg.RPC.RateLimitRPM, cfg.RPC.RateLimitBurst)
		if err != nil {
			return err
		}
		defer shared.Close()
	}

	server := rpc.NewServer(dispatcher, limiter, shared)
	httpServer := &http.Server{
		Addr:    cfg.RPC.ListenAddr,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("gateway listening", "addr", cfg.RPC.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.RPC.ShutdownGrace)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
