package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joelkehle/painradar/internal/archive"
	"github.com/joelkehle/painradar/internal/cluster"
	"github.com/joelkehle/painradar/internal/httpapi"
	"github.com/joelkehle/painradar/internal/insight"
	"github.com/joelkehle/painradar/internal/jobs"
	"github.com/joelkehle/painradar/internal/source"
)

func main() {
	_ = godotenv.Load()

	addrFlag := flag.String("addr", "", "listen address (overrides PORT env var)")
	dbFlag := flag.String("db", "", "path to SQLite run archive (overrides ARCHIVE_DB env var)")
	flag.Parse()

	addr := *addrFlag
	if addr == "" {
		addr = ":8080"
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	python := os.Getenv("PYTHON_BIN")

	registry := source.NewRegistry()
	if script := os.Getenv("DOUYIN_SCRIPT"); script != "" {
		registry.Register(source.NewDouyinSource(python, script))
		log.Printf("registered douyin source (%s)", script)
	}
	if script := os.Getenv("XHS_SCRIPT"); script != "" {
		registry.Register(source.NewXiaohongshuSource(python, script, os.Getenv("XHS_COOKIE")))
		log.Printf("registered xiaohongshu source (%s)", script)
	}
	if len(registry.Names()) == 0 {
		log.Fatal("no data sources configured: set DOUYIN_SCRIPT and/or XHS_SCRIPT")
	}

	gateway := cluster.NewGateway(clusteringService(python), cluster.Config{})

	var caller insight.LLMCaller
	if c, err := insight.NewAnthropicCallerFromEnv(); err != nil {
		log.Printf("warning: %v; cluster analysis will run degraded", err)
	} else {
		caller = c
	}
	analyzer := insight.NewAnalyzer(caller)

	store := jobs.NewStore(jobs.StoreConfig{})
	go store.Run(ctx)

	orchCfg := jobs.OrchestratorConfig{}
	dbPath := *dbFlag
	if dbPath == "" {
		dbPath = os.Getenv("ARCHIVE_DB")
	}
	if dbPath != "" {
		arch, err := archive.Open(dbPath)
		if err != nil {
			log.Fatalf("open run archive (%s): %v", dbPath, err)
		}
		defer arch.Close()
		orchCfg.Archiver = arch
		log.Printf("archiving runs to %s", dbPath)
	}

	orch := jobs.NewOrchestrator(store, registry, gateway, analyzer, orchCfg)

	srv := &http.Server{Addr: addr, Handler: httpapi.NewServer(orch, registry)}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("painradar listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

// clusteringService picks the primary clustering path: the external
// embedding script when configured, the in-process token clusterer when
// CLUSTER_MODE=local, otherwise none (the gateway's keyword fallback carries
// every run).
func clusteringService(python string) cluster.Service {
	if os.Getenv("CLUSTER_MODE") == "local" {
		log.Print("using in-process clustering")
		return cluster.NewLocalClusterer()
	}
	if script := os.Getenv("CLUSTERING_SCRIPT"); script != "" {
		log.Printf("using clustering service %s", script)
		return cluster.NewSubprocessService(python, script)
	}
	log.Print("warning: no clustering service configured; keyword fallback only")
	return nil
}
