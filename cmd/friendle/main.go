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

	"github.com/MrMysteryCode/Friendle/internal/acquire"
	"github.com/MrMysteryCode/Friendle/internal/config"
	"github.com/MrMysteryCode/Friendle/internal/discord"
	"github.com/MrMysteryCode/Friendle/internal/ingest"
	"github.com/MrMysteryCode/Friendle/internal/pipeline"
	"github.com/MrMysteryCode/Friendle/internal/registry"
	"github.com/MrMysteryCode/Friendle/internal/version"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var (
		versionFlag bool
		token       string
		guildID     string
		optinFile   string
		apiURL      string
		secret      string
		quoteMinLen int
		paceMS      int
		every       time.Duration
	)

	flag.BoolVar(&versionFlag, "version", false, "Print build version and exit")
	flag.StringVar(&token, "discord-token", "", "Discord bot token")
	flag.StringVar(&guildID, "guild", "", "Guild (community) ID to run against")
	flag.StringVar(&optinFile, "optin-file", "", "Path to the opt-in registry JSON file")
	flag.StringVar(&apiURL, "api-url", "", "Base URL of the storage service")
	flag.StringVar(&secret, "secret", "", "Shared HMAC secret for signed ingestion")
	flag.IntVar(&quoteMinLen, "quote-min-len", 0, "Minimum raw length for quote candidates")
	flag.IntVar(&paceMS, "pace-ms", 0, "Courtesy delay between history fetches, in ms")
	flag.DurationVar(&every, "every", 0, "Rerun the pipeline on this interval (0 = run once)")
	flag.Parse()

	if versionFlag {
		fmt.Printf(
			"friendle version: %s (commit %s, built %s)\n",
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
	if overrides["discord-token"] {
		cfg.Discord.Token = strings.TrimSpace(token)
	}
	if overrides["guild"] {
		cfg.Discord.GuildID = strings.TrimSpace(guildID)
	}
	if overrides["optin-file"] {
		cfg.Pipeline.OptInFile = strings.TrimSpace(optinFile)
	}
	if overrides["api-url"] {
		cfg.Ingest.BaseURL = strings.TrimSpace(apiURL)
	}
	if overrides["secret"] {
		cfg.Ingest.Secret = strings.TrimSpace(secret)
	}
	if overrides["quote-min-len"] && quoteMinLen > 0 {
		cfg.Pipeline.QuoteMinLen = quoteMinLen
	}
	if overrides["pace-ms"] && paceMS > 0 {
		cfg.Pipeline.PaceMS = paceMS
	}

	if cfg.Discord.Token == "" {
		log.Fatal("friendle: discord token is required (FRIENDLE_DISCORD_TOKEN)")
	}
	if cfg.Discord.GuildID == "" {
		log.Fatal("friendle: guild id is required (FRIENDLE_GUILD_ID)")
	}
	if cfg.Ingest.BaseURL == "" {
		log.Fatal("friendle: storage api url is required (FRIENDLE_API_URL)")
	}
	if cfg.Ingest.Secret == "" {
		log.Fatal("friendle: shared secret is required (FRIENDLE_SHARED_SECRET)")
	}

	log.Printf("friendle: config %s", cfg.RedactedJSON())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("friendle: received %s, shutting down", sig)
		cancel()
	}()

	optin, err := registry.OpenFile(cfg.Pipeline.OptInFile)
	if err != nil {
		log.Fatalf("friendle: open opt-in registry: %v", err)
	}
	log.Printf("friendle: opt-in registry loaded with %d members", len(optin.List()))

	client := discord.New(discord.Config{
		Token:   cfg.Discord.Token,
		GuildID: cfg.Discord.GuildID,
		APIBase: cfg.Discord.APIBase,
	})
	submitter := ingest.New(cfg.Ingest.BaseURL, cfg.Ingest.Secret)

	// Each pass pins a snapshot of the registry so the opt-in set cannot
	// shift mid-run.
	runOnce := func(ctx context.Context) error {
		snapshot := optin.Snapshot()
		engine := acquire.New(client, snapshot, acquire.Options{Pace: cfg.Pace()})
		runner := pipeline.NewRunner(engine, client, snapshot, submitter, pipeline.Options{
			CommunityID: cfg.Discord.GuildID,
			QuoteMinLen: cfg.Pipeline.QuoteMinLen,
		})
		return runner.Run(ctx)
	}

	if every <= 0 {
		if err := runOnce(ctx); err != nil {
			log.Fatalf("friendle: pipeline run: %v", err)
		}
		log.Printf("friendle: run complete")
		return
	}

	if err := optin.Watch(); err != nil {
		log.Printf("friendle: registry watch unavailable: %v", err)
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if err := runOnce(ctx); err != nil {
			log.Printf("friendle: pipeline run: %v", err)
		} else {
			log.Printf("friendle: run complete, next in %s", every)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
