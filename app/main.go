package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/lysyi3m/reddit-digest/app/api"
	"github.com/lysyi3m/reddit-digest/app/authors"
	"github.com/lysyi3m/reddit-digest/app/cfg"
	"github.com/lysyi3m/reddit-digest/app/digest"
	"github.com/lysyi3m/reddit-digest/app/extract"
	"github.com/lysyi3m/reddit-digest/app/markets"
	"github.com/lysyi3m/reddit-digest/app/reddit"
	"github.com/lysyi3m/reddit-digest/app/render"
	"github.com/lysyi3m/reddit-digest/app/sources"
	"github.com/lysyi3m/reddit-digest/app/tasks"
	"github.com/lysyi3m/reddit-digest/app/upload"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting Reddit Digest", "version", appCfg.Version)

	srcFile, err := sources.Load(appCfg.SourcesFile)
	if err != nil {
		if len(appCfg.Subreddits) == 0 {
			slog.Error("Failed to load sources file", "file", appCfg.SourcesFile, "error", err)
			os.Exit(1)
		}
		// Ad hoc subreddits don't need a sources file.
		slog.Debug("Sources file not loaded, using ad hoc sources only", "error", err)
		srcFile = &sources.File{}
		srcFile.Settings.MaxComments = 5
		srcFile.Settings.Timeout = 30
	}

	specs := buildSpecs(appCfg, srcFile)
	if len(specs) == 0 {
		slog.Error("No sources configured; add sources to the sources file or pass --subreddit")
		os.Exit(1)
	}
	slog.Info("Sources configured", "count", len(specs))

	authorRepo, err := authors.Open(appCfg.CacheDB)
	if err != nil {
		slog.Error("Failed to open author cache", "path", appCfg.CacheDB, "error", err)
		os.Exit(1)
	}
	defer authorRepo.Close()

	httpClient := &http.Client{Timeout: time.Duration(srcFile.Settings.Timeout) * time.Second}
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(appCfg.RequestsPerMinute)), 1)
	clock := digest.SystemClock()

	var client digest.SourceClient
	if appCfg.RedditClientID != "" && appCfg.RedditClientSecret != "" {
		auth := reddit.NewAppAuth(appCfg.RedditClientID, appCfg.RedditClientSecret, appCfg.UserAgent, httpClient)
		client = reddit.NewClient(httpClient, auth, authorRepo, limiter, clock, appCfg.UserAgent, appCfg.MaxAttempts)
	} else {
		slog.Warn("No Reddit credentials configured, falling back to the RSS client (no scores or comments)")
		client = reddit.NewRSSClient(httpClient, appCfg.UserAgent)
	}

	var reference digest.ReferenceProvider
	if provider := markets.NewProvider(httpClient, srcFile.Reference); provider.Enabled() {
		reference = provider
	}

	orchestrator := digest.NewOrchestrator(
		client,
		digest.NewFilterer(clock),
		digest.NewEnricher(clock),
		extract.NewExtractor(httpClient, appCfg.UserAgent),
		reference,
		clock,
		appCfg.WorkerCount,
		srcFile.Settings.CommentAgeThresholdDays,
	)

	runner := &digestRunner{
		orchestrator: orchestrator,
		renderer:     render.NewRenderer(srcFile.Settings.MaxComments),
		specs:        specs,
		clock:        clock,
		local:        upload.NewLocalWriter(appCfg.OutputDir, clock),
	}

	if srcFile.Upload.Enabled && !appCfg.NoUpload {
		auth, err := upload.NewGoogleAuth(srcFile.Upload.CredentialsFile, httpClient)
		if err != nil {
			slog.Error("Failed to load upload credentials", "error", err)
			os.Exit(1)
		}
		runner.drive = upload.NewDriveUploader(httpClient, auth, srcFile.Upload.FolderName, clock)
	}

	if !appCfg.Serve {
		runOnce(runner)
		return
	}

	serve(appCfg, runner, authorRepo, len(specs))
}

// runOnce generates a single digest and exits non-zero on total failure.
func runOnce(runner *digestRunner) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runner.Generate(ctx); err != nil {
		if errors.Is(err, digest.ErrTotalFailure) {
			slog.Error("All sources failed, no digest produced")
		} else {
			slog.Error("Digest generation failed", "error", err)
		}
		os.Exit(1)
	}
}

// serve runs the scheduler and HTTP server until interrupted.
func serve(appCfg *cfg.Cfg, runner *digestRunner, authorRepo *authors.Repository, sourceCount int) {
	store := tasks.NewStore()
	runner.store = store

	scheduler := tasks.NewScheduler(runner, time.Duration(appCfg.SchedulerInterval)*time.Second)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(store, scheduler, runner, authorRepo, sourceCount)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}

// buildSpecs derives the source list from either the ad hoc --subreddit
// flags or the sources file.
func buildSpecs(appCfg *cfg.Cfg, srcFile *sources.File) []digest.SourceSpec {
	if len(appCfg.Subreddits) > 0 {
		specs := make([]digest.SourceSpec, 0, len(appCfg.Subreddits))
		for _, name := range appCfg.Subreddits {
			specs = append(specs, digest.SourceSpec{
				Name:            name,
				Mode:            "new",
				WindowHours:     appCfg.Hours,
				TopN:            appCfg.TopN,
				IncludeComments: appCfg.Comments,
			})
		}
		return specs
	}
	return srcFile.Sources
}

// digestRunner generates one digest end to end: orchestrate, render, write
// locally, upload, publish to the serve-mode store.
type digestRunner struct {
	orchestrator *digest.Orchestrator
	renderer     *render.Renderer
	specs        []digest.SourceSpec
	clock        digest.Clock
	local        *upload.LocalWriter
	drive        upload.Uploader
	store        *tasks.Store
}

func (r *digestRunner) Generate(ctx context.Context) error {
	report, failures, err := r.orchestrator.Run(ctx, r.specs)
	for _, failure := range failures {
		slog.Warn("Source failed", "source", failure.Source, "error", failure.Err)
	}
	if err != nil {
		return err
	}

	text, err := r.renderer.Run(report)
	if err != nil {
		return fmt.Errorf("failed to render digest: %w", err)
	}

	name := upload.Filename(r.clock)

	path, err := r.local.Upload(ctx, name, text)
	if err != nil {
		return fmt.Errorf("failed to write digest: %w", err)
	}
	slog.Info("Digest written", "path", path, "sections", len(report.Sections), "failures", len(failures))

	if r.drive != nil {
		if _, err := r.drive.Upload(ctx, name, text); err != nil {
			return fmt.Errorf("failed to upload digest: %w", err)
		}
	}

	if r.store != nil {
		r.store.Set(name, text, report.GeneratedAt, len(report.Sections), failures)
	}

	return nil
}
