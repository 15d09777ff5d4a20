package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Ad hoc source overrides
	Subreddits []string `short:"s" long:"subreddit" description:"Subreddit to fetch (repeatable, overrides sources file)"`
	Hours      int      `short:"H" long:"hours" env:"DIGEST_HOURS" default:"24" description:"Hours to look back"`
	TopN       int      `short:"n" long:"top-n" env:"DIGEST_TOP_N" default:"0" description:"How many top posts to keep per source (0 = all)"`
	Comments   bool     `short:"c" long:"comments" env:"DIGEST_COMMENTS" description:"Include comments and extracted links"`

	// Application configuration
	SourcesFile string `long:"sources-file" env:"SOURCES_FILE" default:"./sources.yml" description:"YAML file with source and reference definitions"`
	OutputDir   string `long:"output-dir" env:"OUTPUT_DIR" default:"./digests" description:"Directory for rendered digest files"`
	CacheDB     string `long:"cache-db" env:"CACHE_DB" default:"./digest.db" description:"SQLite file for the author account cache"`
	WorkerCount int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of concurrent source workers"`
	NoUpload    bool   `long:"no-upload" env:"NO_UPLOAD" description:"Disable Google Drive upload"`

	// Fetch configuration
	MaxAttempts       int `long:"max-attempts" env:"MAX_ATTEMPTS" default:"4" description:"Maximum fetch attempts per page before giving up"`
	RequestsPerMinute int `long:"requests-per-minute" env:"REQUESTS_PER_MINUTE" default:"60" description:"Shared request budget across all source workers"`

	// Reddit credentials
	RedditClientID     string `long:"reddit-client-id" env:"REDDIT_CLIENT_ID" description:"Reddit API client ID (omit to use the anonymous RSS client)"`
	RedditClientSecret string `long:"reddit-client-secret" env:"REDDIT_CLIENT_SECRET" description:"Reddit API client secret"`

	// Serve mode
	Serve             bool   `long:"serve" env:"SERVE" description:"Run as an HTTP server regenerating the digest on a schedule"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port (serve mode)"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"3600" description:"Digest regeneration interval in seconds (serve mode)"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for the refresh endpoint (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"reddit-digest/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Subreddits:         raw.Subreddits,
		Hours:              raw.Hours,
		TopN:               raw.TopN,
		Comments:           raw.Comments,
		SourcesFile:        raw.SourcesFile,
		OutputDir:          raw.OutputDir,
		CacheDB:            raw.CacheDB,
		WorkerCount:        raw.WorkerCount,
		NoUpload:           raw.NoUpload,
		MaxAttempts:        raw.MaxAttempts,
		RequestsPerMinute:  raw.RequestsPerMinute,
		RedditClientID:     raw.RedditClientID,
		RedditClientSecret: raw.RedditClientSecret,
		Serve:              raw.Serve,
		Port:               raw.Port,
		SchedulerInterval:  raw.SchedulerInterval,
		APIAccessKey:       raw.APIAccessKey,
		UserAgent:          raw.UserAgent,
		Timezone:           raw.Timezone,
		Debug:              raw.Debug,
		Version:            GetVersion(),
	}

	if cfg.Hours <= 0 {
		return nil, fmt.Errorf("hours must be positive, got %d", cfg.Hours)
	}
	if cfg.TopN < 0 {
		return nil, fmt.Errorf("top-n must be non-negative, got %d", cfg.TopN)
	}
	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("worker-count must be at least 1, got %d", cfg.WorkerCount)
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("max-attempts must be at least 1, got %d", cfg.MaxAttempts)
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
