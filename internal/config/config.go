package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Discord  DiscordConfig
	Pipeline PipelineConfig
	Ingest   IngestConfig
	Store    StoreConfig
	HTTP     HTTPConfig
}

type DiscordConfig struct {
	Token   string
	GuildID string
	APIBase string
}

type PipelineConfig struct {
	OptInFile   string
	QuoteMinLen int
	PaceMS      int
}

type IngestConfig struct {
	BaseURL string
	Secret  string
}

type StoreConfig struct {
	Backend       string // "redis" | "sqlite" | "memory"
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
}

type HTTPConfig struct {
	Addr        string
	CORSOrigins []string
	RateRPS     int
	RateBurst   int
	StatsToken  string
}

const (
	defaultOptInFile   = "optin.json"
	defaultQuoteMinLen = 40
	defaultPaceMS      = 350
	defaultBackend     = "sqlite"
	defaultRedisAddr   = "localhost:6379"
	defaultSQLitePath  = "puzzles.db"
	defaultHTTPAddr    = ":8790"
	defaultRateRPS     = 20
	defaultRateBurst   = 40
)

func Load() Config {
	cfg := Config{}

	cfg.Discord.Token = strings.TrimSpace(os.Getenv("FRIENDLE_DISCORD_TOKEN"))
	cfg.Discord.GuildID = strings.TrimSpace(os.Getenv("FRIENDLE_GUILD_ID"))
	cfg.Discord.APIBase = strings.TrimSpace(os.Getenv("FRIENDLE_DISCORD_API"))

	cfg.Pipeline.OptInFile = strings.TrimSpace(os.Getenv("FRIENDLE_OPTIN_FILE"))
	if cfg.Pipeline.OptInFile == "" {
		cfg.Pipeline.OptInFile = defaultOptInFile
	}
	cfg.Pipeline.QuoteMinLen = readInt("FRIENDLE_QUOTE_MIN_LEN", defaultQuoteMinLen)
	cfg.Pipeline.PaceMS = readInt("FRIENDLE_PACE_MS", defaultPaceMS)

	cfg.Ingest.BaseURL = strings.TrimSpace(os.Getenv("FRIENDLE_API_URL"))
	cfg.Ingest.Secret = strings.TrimSpace(os.Getenv("FRIENDLE_SHARED_SECRET"))

	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(os.Getenv("FRIENDLE_STORE")))
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = defaultBackend
	}
	cfg.Store.RedisAddr = strings.TrimSpace(os.Getenv("FRIENDLE_REDIS_ADDR"))
	if cfg.Store.RedisAddr == "" {
		cfg.Store.RedisAddr = defaultRedisAddr
	}
	cfg.Store.RedisPassword = os.Getenv("FRIENDLE_REDIS_PASSWORD")
	cfg.Store.RedisDB = readIntAllowZero("FRIENDLE_REDIS_DB", 0)
	cfg.Store.SQLitePath = strings.TrimSpace(os.Getenv("FRIENDLE_SQLITE_PATH"))
	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = defaultSQLitePath
	}

	cfg.HTTP.Addr = strings.TrimSpace(os.Getenv("FRIENDLE_HTTP_ADDR"))
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = defaultHTTPAddr
	}
	cfg.HTTP.CORSOrigins = splitList(os.Getenv("FRIENDLE_CORS_ORIGINS"))
	cfg.HTTP.RateRPS = readInt("FRIENDLE_HTTP_RATE_RPS", defaultRateRPS)
	cfg.HTTP.RateBurst = readInt("FRIENDLE_HTTP_RATE_BURST", defaultRateBurst)
	cfg.HTTP.StatsToken = strings.TrimSpace(os.Getenv("FRIENDLE_STATS_TOKEN"))

	return cfg
}

func splitList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', ';', ' ', '\t', '\n':
			return true
		}
		return false
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func readInt(name string, def int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n <= 0 {
		return def
	}
	return n
}

func readIntAllowZero(name string, def int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// Pace returns the courtesy delay inserted between platform fetches.
func (c Config) Pace() time.Duration {
	if c.Pipeline.PaceMS <= 0 {
		return 0
	}
	return time.Duration(c.Pipeline.PaceMS) * time.Millisecond
}

// Redacted returns a config snapshot safe to log.
func (c Config) Redacted() map[string]any {
	return map[string]any{
		"discord": map[string]any{
			"token":    redactString(c.Discord.Token),
			"guild_id": c.Discord.GuildID,
			"api_base": c.Discord.APIBase,
		},
		"pipeline": map[string]any{
			"optin_file":    c.Pipeline.OptInFile,
			"quote_min_len": c.Pipeline.QuoteMinLen,
			"pace_ms":       c.Pipeline.PaceMS,
		},
		"ingest": map[string]any{
			"base_url": c.Ingest.BaseURL,
			"secret":   redactString(c.Ingest.Secret),
		},
		"store": map[string]any{
			"backend":        c.Store.Backend,
			"redis_addr":     c.Store.RedisAddr,
			"redis_password": redactString(c.Store.RedisPassword),
			"redis_db":       c.Store.RedisDB,
			"sqlite_path":    c.Store.SQLitePath,
		},
		"http": map[string]any{
			"addr":         c.HTTP.Addr,
			"cors_origins": append([]string(nil), c.HTTP.CORSOrigins...),
			"rate_rps":     c.HTTP.RateRPS,
			"rate_burst":   c.HTTP.RateBurst,
			"stats_token":  redactString(c.HTTP.StatsToken),
		},
	}
}

func (c Config) RedactedJSON() []byte {
	data, _ := json.Marshal(c.Redacted())
	return data
}

func redactString(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return "***REDACTED*** (len=" + strconv.Itoa(len(value)) + ")"
}
