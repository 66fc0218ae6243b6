// graphrag-index is the repository indexer: detect a repo's type,
// extract its graph, and upsert it into the store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/repograph/gateway/internal/config"
	"github.com/repograph/gateway/internal/detect"
	apperrors "github.com/repograph/gateway/internal/errors"
	"github.com/repograph/gateway/internal/extract"
	"github.com/repograph/gateway/internal/extract/ansible"
	"github.com/repograph/gateway/internal/extract/generic"
	"github.com/repograph/gateway/internal/extract/python"
	"github.com/repograph/gateway/internal/extract/workerpool"
	"github.com/repograph/gateway/internal/graph"
	"github.com/repograph/gateway/internal/guard"
	"github.com/repograph/gateway/internal/ingestion"
	"github.com/repograph/gateway/internal/logging"
	"github.com/repograph/gateway/internal/schema"
	"github.com/repograph/gateway/internal/store"
)

// Exit codes: 0 success, 1 user error (bad path, bad profile,
// cancelled), 2 unrecoverable store or configuration error.
const (
	exitOK        = 0
	exitUserError = 1
	exitFatal     = 2
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "graphrag-index",
	Short: "Index source repositories into the code-intelligence graph",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			_ = logging.Initialize(logging.DebugConfig())
		} else {
			_ = logging.Initialize(logging.Config{Level: logging.INFO})
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitFatal)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./graphrag.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(clearCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitUserError)
	}
}

// signalContext cancels on SIGINT/SIGTERM so a flush in progress can
// stop cleanly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// exitCodeFor maps a run failure onto the CLI contract: bad input exits
// 1, unrecoverable store or configuration failures (unavailable store,
// deadline expiry, open breaker, internal faults) exit 2.
func exitCodeFor(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindUserInput:
		return exitUserError
	default:
		return exitFatal
	}
}

func newExtractorRegistry() *extract.Registry {
	pool := workerpool.Config{
		Workers:     cfg.Pipeline.MaxWorkers,
		ItemTimeout: 30 * time.Second,
	}
	registry := extract.NewRegistry()
	registry.Register(ansible.New(pool))
	registry.Register(python.New(pool))
	registry.Register(generic.New(pool))
	return registry
}

func openGateway() *store.Gateway {
	breaker := guard.NewCircuitBreaker("neo4j_query", 5, 60*time.Second)
	return store.NewGateway(store.Config{
		URI:            cfg.Store.URI,
		User:           cfg.Store.User,
		Password:       cfg.Store.Password,
		Database:       cfg.Store.Database,
		MaxPoolSize:    cfg.Store.MaxPoolSize,
		ConnectTimeout: cfg.Store.ConnectTimeout,
		QueryTimeout:   cfg.Store.QueryTimeout,
	}, breaker)
}

var (
	profileFlag string
	clearFirst  bool
)

var runCmd = &cobra.Command{
	Use:   "run <path>",
	Short: "Index a repository into the graph store",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if result := cfg.Validate(config.ValidationContextIndex); result.HasErrors() {
			fmt.Fprint(os.Stderr, result.Error())
			os.Exit(exitFatal)
		}

		repositoryID := cfg.Pipeline.RepositoryID
		if flag, _ := cmd.Flags().GetString("repository"); flag != "" {
			repositoryID = flag
		}
		if repositoryID == "" {
			fmt.Fprintln(os.Stderr, "Error: no repository id (set --repository or PIPELINE_REPOSITORY_ID)")
			os.Exit(exitUserError)
		}

		ctx, cancel := signalContext()
		defer cancel()

		gateway := openGateway()
		defer gateway.Close(context.Background())
		if err := gateway.VerifyConnectivity(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitFatal)
		}

		schemaRegistry, err := schema.NewRegistry()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitFatal)
		}

		pipeline := ingestion.NewPipeline(newExtractorRegistry(), func(profile string) *graph.Builder {
			return graph.NewBuilder(gateway, schemaRegistry, profile, cfg.Pipeline.BatchSize)
		})

		report, err := pipeline.Run(ctx, args[0], repositoryID, ingestion.Options{
			Profile:    profileFlag,
			ClearFirst: clearFirst,
		})
		if err != nil {
			if ctx.Err() != nil {
				fmt.Fprintln(os.Stderr, "Cancelled.")
				os.Exit(exitUserError)
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitCodeFor(err))
		}

		fmt.Printf("Indexed %s as %q (profile %s, confidence %.2f)\n",
			args[0], report.RepositoryID, report.Profile, report.Confidence)
		fmt.Printf("  entities: %d upserted, %d dropped\n",
			report.Stats.EntitiesUpserted, report.Stats.EntitiesDropped)
		fmt.Printf("  edges:    %d upserted, %d dropped\n",
			report.Stats.EdgesUpserted, report.Stats.EdgesDropped)
		if report.Stats.BatchesFailed > 0 {
			fmt.Printf("  failed batches: %d (see log)\n", report.Stats.BatchesFailed)
		}
		if report.ParseErrors > 0 {
			fmt.Printf("  parse errors: %d (files indexed as bare File nodes)\n", report.ParseErrors)
		}
		fmt.Printf("  elapsed: %s\n", report.Elapsed.Round(time.Millisecond))
	},
}

var detectCmd = &cobra.Command{
	Use:   "detect <path>",
	Short: "Classify a repository without indexing it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		info, err := os.Stat(args[0])
		if err != nil || !info.IsDir() {
			fmt.Fprintf(os.Stderr, "Error: %q is not a readable directory\n", args[0])
			os.Exit(exitUserError)
		}
		result := detect.Detect(args[0])
		fmt.Printf("profile:    %s\n", result.Profile)
		fmt.Printf("confidence: %.2f\n", result.Confidence)
		for _, indicator := range result.Indicators {
			fmt.Printf("  - %s\n", indicator)
		}
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear <repository-id>",
	Short: "Delete a repository's nodes from the graph (Role nodes survive)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := guard.ValidateRepositoryID(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitUserError)
		}

		ctx, cancel := signalContext()
		defer cancel()

		gateway := openGateway()
		defer gateway.Close(context.Background())

		schemaRegistry, err := schema.NewRegistry()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitFatal)
		}

		builder := graph.NewBuilder(gateway, schemaRegistry, "generic", cfg.Pipeline.BatchSize)
		if err := builder.ClearRepository(ctx, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitFatal)
		}
		fmt.Printf("Cleared repository %q.\n", args[0])
	},
}

func init() {
	runCmd.Flags().StringVar(&profileFlag, "profile", "", "force a schema profile (ansible, python, generic)")
	runCmd.Flags().String("repository", "", "repository id to index under")
	runCmd.Flags().BoolVar(&clearFirst, "clear-first", false, "clear the repository's previous nodes before indexing")
}
