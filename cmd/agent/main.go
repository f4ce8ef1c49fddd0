package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reelforge/reelforge-agent/internal/api"
	"github.com/reelforge/reelforge-agent/internal/config"
	"github.com/reelforge/reelforge-agent/internal/db"
	"github.com/reelforge/reelforge-agent/internal/logging"
	"github.com/reelforge/reelforge-agent/internal/media"
	"github.com/reelforge/reelforge-agent/internal/playback"
	"github.com/reelforge/reelforge-agent/internal/probe"
	"github.com/reelforge/reelforge-agent/internal/project"
	"github.com/reelforge/reelforge-agent/internal/render"
	"github.com/reelforge/reelforge-agent/internal/timeline"
	"github.com/reelforge/reelforge-agent/internal/tracker"
	"github.com/reelforge/reelforge-agent/internal/ui"
	"github.com/reelforge/reelforge-agent/internal/watcher"
)

var Version = "0.1.0"

const (
	scheduleMemoSize   = 64
	previewIdleTimeout = 10 * time.Minute
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting reelforge agent", "version", Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	authToken, err := ensureAuthToken(database)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║                   REELFORGE AGENT v%-8s               ║\n", Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	blobs, err := media.NewStore(cfg.MediaDir(), cfg.MinFreeBytes(), logger)
	if err != nil {
		return fmt.Errorf("failed to open media store: %w", err)
	}

	store, files, err := openProjectStore(cfg, database, logger)
	if err != nil {
		return err
	}

	fps := cfg.FPS()
	svc := project.NewService(store, blobs, project.Settings{
		FPS:         fps,
		TailSeconds: cfg.TailSeconds(),
	}, logger)

	var renderer render.Client
	if cfg.RenderURL() != "" {
		renderer = render.NewHTTPClient(cfg.RenderURL(), cfg.RenderToken(), logger)
		logger.Info("render service configured", "base_url", cfg.RenderURL())
	} else {
		renderer = render.NewStubClient(logger)
	}

	sessions := tracker.NewSessions(func(ctx context.Context, title string) (timeline.Schedule, error) {
		restored, err := svc.Restore(ctx, title)
		if err != nil {
			return timeline.Schedule{}, err
		}
		return restored.Schedule, nil
	}, cfg.PollInterval(), logging.WithComponent(logger, "tracker"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sessions.Run(ctx, previewIdleTimeout)

	manifests := watcher.NewManifestWatcher(project.ManifestFilename, logging.WithComponent(logger, "watcher"))
	manifests.OnChange(func(title string, event watcher.EventType) {
		manifestChanged(ctx, store, files, sessions, logger, title, event)
	})
	if err := manifests.Watch(ctx, cfg.ProjectsDir()); err != nil {
		logger.Warn("manifest watcher unavailable", "error", err)
	}
	defer manifests.Stop()

	apiServer := api.NewServer(api.ServerConfig{
		Port:         cfg.Port(),
		Tokens:       database,
		Projects:     svc,
		Blobs:        blobs,
		Presets:      project.NewPresets(cfg.DataDir()),
		Playback:     playback.NewServer(blobs, store, logger),
		Prober:       probe.Available(cfg.FFprobePath(), logger),
		Renderer:     renderer,
		RenderTarget: cfg.RenderURL(),
		Sessions:     sessions,
		Schedules:    timeline.NewMemo(scheduleMemoSize),
		Editor: api.EditorSettings{
			FPS:                 fps,
			ImageDurationFrames: cfg.ImageDurationFrames(),
			DissolveFrames:      timeline.DissolveFrames(cfg.DissolveSeconds(), fps),
			AudioFadeFrames:     timeline.DissolveFrames(cfg.AudioFadeSeconds(), fps),
		},
		RatePerMinute: cfg.UploadRatePerMinute(),
		Logger:        logger,
		StartTime:     startTime,
		Version:       Version,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Stats: func(ctx context.Context) (ui.Stats, error) {
				return libraryStats(ctx, svc, blobs)
			},
			Address: apiServer.Addr(),
			Logger:  logger,
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}
	sessions.CloseAll()

	logger.Info("shutdown complete")
	return nil
}

// openProjectStore returns the configured manifest backend and the on-disk
// store underneath it. The SQLite backend picks up manifests written by the
// file backend on every start.
func openProjectStore(cfg config.Config, database *db.DB, logger *slog.Logger) (project.Store, *project.FileStore, error) {
	files, err := project.NewFileStore(cfg.ProjectsDir(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open project directory: %w", err)
	}
	if cfg.ManifestBackend() == config.BackendFile {
		return files, files, nil
	}

	sq, err := project.NewSQLiteStore(database.Conn(), cfg.ProjectsDir(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open project index: %w", err)
	}
	importManifests(context.Background(), sq, files, logger)
	return sq, files, nil
}

func importManifests(ctx context.Context, sq *project.SQLiteStore, files *project.FileStore, logger *slog.Logger) {
	n, err := sq.ImportFiles(ctx, files)
	if err != nil {
		logger.Warn("manifest import incomplete", "error", err)
	} else if n > 0 {
		logger.Info("imported project manifests", "count", n)
	}
}

// manifestChanged reacts to a manifest edited on disk. Open previews of the
// project pick up the new schedule.
func manifestChanged(ctx context.Context, store project.Store, files *project.FileStore, sessions *tracker.Sessions, logger *slog.Logger, title string, event watcher.EventType) {
	logging.WithProject(logger, title).Debug("manifest changed on disk", "event", event)

	if sq, ok := store.(*project.SQLiteStore); ok {
		if event == watcher.EventCreate {
			importManifests(ctx, sq, files, logger)
		}
		return
	}

	if event == watcher.EventDelete {
		sessions.Close(title)
		return
	}
	if err := sessions.Reload(ctx, title); err != nil {
		logging.WithProject(logger, title).Warn("preview reload failed", "error", err)
	}
}

func libraryStats(ctx context.Context, svc *project.Service, blobs *media.Store) (ui.Stats, error) {
	projects, err := svc.List(ctx)
	if err != nil {
		return ui.Stats{}, err
	}
	st, err := blobs.Stats()
	if err != nil {
		return ui.Stats{}, err
	}
	return ui.Stats{
		Projects:    len(projects),
		Blobs:       st.Blobs,
		StoredBytes: st.Bytes,
		FreeBytes:   st.FreeBytes,
	}, nil
}

func ensureAuthToken(database *db.DB) (string, error) {
	ctx := context.Background()

	existing, err := database.GetConfig(ctx, api.AuthTokenKey)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := database.SetConfig(ctx, api.AuthTokenKey, token); err != nil {
		return "", err
	}

	return token, nil
}
