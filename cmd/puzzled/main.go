package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MrMysteryCode/Friendle/internal/config"
	"github.com/MrMysteryCode/Friendle/internal/server"
	"github.com/MrMysteryCode/Friendle/internal/store"
	"github.com/MrMysteryCode/Friendle/internal/version"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var (
		versionFlag bool
		addr        string
		backend     string
		sqlitePath  string
		redisAddr   string
	)

	flag.BoolVar(&versionFlag, "version", false, "Print build version and exit")
	flag.StringVar(&addr, "addr", "", "HTTP listen address")
	flag.StringVar(&backend, "store", "", "KV backend: redis, sqlite, or memory")
	flag.StringVar(&sqlitePath, "sqlite-path", "", "Path to the sqlite database file")
	flag.StringVar(&redisAddr, "redis-addr", "", "Redis server address")
	flag.Parse()

	if versionFlag {
		fmt.Printf(
			"puzzled version: %s (commit %s, built %s)\n",
			version.Version,
			version.Commit,
			version.BuildTime,
		)
		os.Exit(0)
	}

	overrides := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		overrides[f.Name] = true
	})

	cfg := config.Load()
	if overrides["addr"] {
		cfg.HTTP.Addr = strings.TrimSpace(addr)
	}
	if overrides["store"] {
		cfg.Store.Backend = strings.ToLower(strings.TrimSpace(backend))
	}
	if overrides["sqlite-path"] {
		cfg.Store.SQLitePath = strings.TrimSpace(sqlitePath)
	}
	if overrides["redis-addr"] {
		cfg.Store.RedisAddr = strings.TrimSpace(redisAddr)
	}

	if cfg.Ingest.Secret == "" {
		log.Fatal("puzzled: shared secret is required (FRIENDLE_SHARED_SECRET)")
	}

	log.Printf("puzzled: config %s", cfg.RedactedJSON())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		kv  store.KV
		err error
	)
	switch cfg.Store.Backend {
	case "redis":
		kv, err = store.OpenRedis(ctx, store.RedisOptions{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
	case "sqlite":
		kv, err = store.OpenSQLite(cfg.Store.SQLitePath)
	case "memory":
		kv = store.NewMemory()
	default:
		log.Fatalf("puzzled: unknown store backend %q", cfg.Store.Backend)
	}
	if err != nil {
		log.Fatalf("puzzled: open %s store: %v", cfg.Store.Backend, err)
	}
	defer kv.Close()
	log.Printf("puzzled: using %s store", cfg.Store.Backend)

	srv := server.New(kv, server.Options{
		Addr:            cfg.HTTP.Addr,
		Secret:          cfg.Ingest.Secret,
		StatsToken:      cfg.HTTP.StatsToken,
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		RateLimitRPS:    cfg.HTTP.RateRPS,
		RateLimitBurst:  cfg.HTTP.RateBurst,
		EnableMetrics:   true,
		EnableAccessLog: true,
		Build: server.BuildInfo{
			Version:  version.Version,
			Revision: version.Commit,
			BuiltAt:  version.BuildTime,
		},
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("puzzled: received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			log.Fatalf("puzzled: server: %v", err)
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("puzzled: shutdown: %v", err)
	}
	log.Printf("puzzled: stopped")
}
