package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/synckit/synckit/internal/api"
	"github.com/synckit/synckit/internal/cache"
	"github.com/synckit/synckit/internal/config"
	"github.com/synckit/synckit/internal/dag"
	"github.com/synckit/synckit/internal/db"
	"github.com/synckit/synckit/internal/engine"
	"github.com/synckit/synckit/internal/nodes"
	"github.com/synckit/synckit/internal/repository"
	"github.com/synckit/synckit/internal/schedule"
	"github.com/synckit/synckit/internal/synckit"

	_ "github.com/lib/pq"
)

const usage = `synckit — DAG workflow engine for media sync pipelines

Usage:
  synckit validate <workflow.json>
  synckit execute <workflow.json> [--max-workers N] [--no-cache] [--node-timeout D] [--output report.json]
  synckit list-nodes
  synckit clear-cache
  synckit serve
  synckit schedule --cron "<expr>" <workflow.json>
`

func main() {
	// Credentials (SYNCKIT_STORAGE_TOKEN, SYNCKIT_LIPSYNC_API_KEY) may come
	// from a local .env during development.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadDefault()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	var code int
	switch os.Args[1] {
	case "validate":
		code = runValidate(cfg, os.Args[2:])
	case "execute":
		code = runExecute(cfg, os.Args[2:])
	case "list-nodes":
		code = runListNodes(cfg)
	case "clear-cache":
		code = runClearCache(cfg)
	case "serve":
		code = runServe(cfg)
	case "schedule":
		code = runSchedule(cfg, os.Args[2:])
	case "version":
		fmt.Println("synckit v0.3.0")
	default:
		fmt.Fprint(os.Stderr, usage)
		code = 2
	}
	os.Exit(code)
}

func newRegistry(cfg *config.Config) *nodes.Registry {
	r := nodes.NewRegistry()
	nodes.RegisterBuiltins(r, nodes.BuiltinConfig{
		StorageEndpoint:   cfg.Storage.Endpoint,
		StorageBucket:     cfg.Storage.Bucket,
		StorageToken:      os.Getenv("SYNCKIT_STORAGE_TOKEN"),
		LipsyncURL:        cfg.Lipsync.URL,
		LipsyncAPIKey:     os.Getenv("SYNCKIT_LIPSYNC_API_KEY"),
		LipsyncMaxWorkers: cfg.Lipsync.MaxWorkers,
	})
	return r
}

func openStore(cfg *config.Config) cache.Store {
	store, err := cache.NewFileStore(cfg.Cache.Dir)
	if err != nil {
		slog.Warn("cache unavailable, falling back to in-memory", "dir", cfg.Cache.Dir, "err", err)
		return cache.NewMemoryStore()
	}
	return store
}

// openRunRepository returns persistent run history when a database URL is
// configured, in-memory otherwise. A DB connection failure degrades to
// in-memory rather than aborting.
func openRunRepository(ctx context.Context, cfg *config.Config) repository.RunRepository {
	mem := repository.NewMemoryRunRepository()
	if cfg.Database.URL == "" {
		return mem
	}
	database, err := db.New(ctx, cfg.Database.URL)
	if err != nil {
		slog.Warn("database unavailable, run history in memory only", "err", err)
		return mem
	}
	if err := database.Migrate(ctx); err != nil {
		slog.Warn("database migration failed, run history in memory only", "err", err)
		database.Close()
		return mem
	}
	return repository.NewPersistentRunRepository(mem, database)
}

func runValidate(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: synckit validate <workflow.json>")
		return 2
	}

	wf, err := synckit.LoadWorkflow(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if _, err := dag.Build(wf, newRegistry(cfg)); err != nil {
		printValidationErrors(err)
		return 1
	}
	fmt.Println("workflow is valid")
	return 0
}

func runExecute(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("execute", flag.ExitOnError)
	maxWorkers := fs.Int("max-workers", cfg.Executor.MaxWorkers, "max concurrent node invocations")
	noCache := fs.Bool("no-cache", false, "disable result caching")
	nodeTimeout := fs.Duration("node-timeout", cfg.Executor.NodeTimeout, "per-node timeout (0 = none)")
	output := fs.String("output", "", "report file path (default stdout)")
	fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: synckit execute <workflow.json> [flags]")
		return 2
	}

	wf, err := synckit.LoadWorkflow(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := openStore(cfg)
	exec := engine.New(newRegistry(cfg), store, engine.Options{
		MaxWorkers:  *maxWorkers,
		UseCache:    !*noCache,
		NodeTimeout: *nodeTimeout,
	})

	result, err := exec.Execute(ctx, wf)
	if err != nil {
		printValidationErrors(err)
		return 1
	}

	runs := openRunRepository(ctx, cfg)
	if err := runs.Create(ctx, synckit.NewRunRecord(fs.Arg(0), result)); err != nil {
		slog.Warn("run history write failed", "err", err)
	}

	if err := engine.WriteReport(result, *output); err != nil {
		slog.Error("report write failed", "err", err)
	}
	if !result.Success {
		return 1
	}
	return 0
}

func runListNodes(cfg *config.Config) int {
	for _, c := range newRegistry(cfg).List() {
		fmt.Printf("%-18s [%s] %s\n", c.Type(), c.Category(), c.Description())
		for _, in := range c.Inputs() {
			req := "optional"
			if in.Required {
				req = "required"
			}
			fmt.Printf("    in  %-16s %-10s %s\n", in.Name, in.Type, req)
		}
		for _, out := range c.Outputs() {
			fmt.Printf("    out %-16s %s\n", out.Name, out.Type)
		}
	}
	return 0
}

func runClearCache(cfg *config.Config) int {
	store, err := cache.NewFileStore(cfg.Cache.Dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := store.Clear(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("cache cleared:", cfg.Cache.Dir)
	return 0
}

func runServe(cfg *config.Config) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := api.NewServer(newRegistry(cfg), openStore(cfg), openRunRepository(ctx, cfg), engine.Options{
		MaxWorkers:  cfg.Executor.MaxWorkers,
		UseCache:    true,
		NodeTimeout: cfg.Executor.NodeTimeout,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	slog.Info("starting synckit server", "addr", addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "err", err)
		return 1
	}
	return 0
}

func runSchedule(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("schedule", flag.ExitOnError)
	cronExpr := fs.String("cron", "", `cron expression, e.g. "0 2 * * *"`)
	fs.Parse(args)
	if fs.NArg() != 1 || *cronExpr == "" {
		fmt.Fprintln(os.Stderr, `usage: synckit schedule --cron "<expr>" <workflow.json>`)
		return 2
	}

	// Reject an unloadable workflow up front; the file is re-read per tick.
	if _, err := synckit.LoadWorkflow(fs.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exec := engine.New(newRegistry(cfg), openStore(cfg), engine.Options{
		MaxWorkers:  cfg.Executor.MaxWorkers,
		UseCache:    true,
		NodeTimeout: cfg.Executor.NodeTimeout,
	})

	sched := schedule.New(exec, openRunRepository(ctx, cfg))
	entry, err := sched.Add(*cronExpr, fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid cron expression:", err)
		return 2
	}
	sched.Start()
	slog.Info("scheduling workflow", "id", entry.ID, "next_run", sched.List()[0].NextRunAt)

	<-ctx.Done()
	sched.Stop()
	return 0
}

func printValidationErrors(err error) {
	var verrs dag.ValidationErrors
	if errors.As(err, &verrs) {
		fmt.Fprintf(os.Stderr, "workflow is invalid (%d error(s)):\n", len(verrs))
		for _, e := range verrs {
			fmt.Fprintf(os.Stderr, "  - %s\n", e.Error())
		}
		return
	}
	fmt.Fprintln(os.Stderr, err)
}
