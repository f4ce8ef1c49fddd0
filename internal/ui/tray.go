package ui

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/reelforge/reelforge-agent/internal/logging"
)

// DefaultRefreshInterval is how often the tray re-reads library stats.
const DefaultRefreshInterval = 30 * time.Second

// Stats is what the tray menu shows about the local library.
type Stats struct {
	Projects    int
	Blobs       int
	StoredBytes int64
	FreeBytes   uint64
}

type Tray struct {
	stats   func(ctx context.Context) (Stats, error)
	logger  *slog.Logger
	every   time.Duration
	address string

	statusItem   *systray.MenuItem
	projectsItem *systray.MenuItem
	storageItem  *systray.MenuItem

	mu sync.Mutex

	onQuit func()
	stop   chan struct{}
}

type TrayConfig struct {
	Stats           func(ctx context.Context) (Stats, error)
	Address         string
	RefreshInterval time.Duration
	Logger          *slog.Logger
	OnQuit          func()
}

func NewTray(cfg TrayConfig) *Tray {
	every := cfg.RefreshInterval
	if every <= 0 {
		every = DefaultRefreshInterval
	}
	return &Tray{
		stats:   cfg.Stats,
		logger:  cfg.Logger,
		every:   every,
		address: cfg.Address,
		onQuit:  cfg.OnQuit,
		stop:    make(chan struct{}),
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Reelforge")
	systray.SetTooltip("Reelforge Agent on " + t.address)

	t.statusItem = systray.AddMenuItem("Status: Starting", "Current agent status")
	t.statusItem.Disable()

	t.projectsItem = systray.AddMenuItem("Projects: 0", "Saved projects")
	t.projectsItem.Disable()

	t.storageItem = systray.AddMenuItem("Media: 0 B", "Content-addressed media store")
	t.storageItem.Disable()

	systray.AddSeparator()

	refreshItem := systray.AddMenuItem("Refresh", "Re-read library stats")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Reelforge Agent")

	t.refresh()

	go func() {
		ticker := time.NewTicker(t.every)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.refresh()
			case <-refreshItem.ClickedCh:
				t.refresh()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			case <-t.stop:
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) refresh() {
	if t.stats == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st, err := t.stats(ctx)
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.logger.Warn("tray stats unavailable", "error", err)
		t.statusItem.SetTitle("Status: Storage error")
		return
	}
	status, projects, storage := menuTitles(st)
	t.statusItem.SetTitle(status)
	t.projectsItem.SetTitle(projects)
	t.storageItem.SetTitle(storage)
}

func menuTitles(st Stats) (status, projects, storage string) {
	status = "Status: Ready"
	if st.FreeBytes > 0 && st.FreeBytes < lowDiskBytes {
		status = "Status: Low disk space"
	}
	projects = fmt.Sprintf("Projects: %d", st.Projects)
	storage = fmt.Sprintf("Media: %d files, %s (%s free)",
		st.Blobs, logging.Bytes(st.StoredBytes), logging.Bytes(int64(st.FreeBytes)))
	return status, projects, storage
}

const lowDiskBytes = 1 << 30

// Quit stops the refresh loop and removes the tray icon.
func (t *Tray) Quit() {
	select {
	case <-t.stop:
	default:
		close(t.stop)
	}
	systray.Quit()
}
