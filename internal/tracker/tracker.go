// Package tracker follows a preview player and reports which timeline
// segment should be highlighted. It only polls while the player is paused;
// during playback it does no work at all.
package tracker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/reelforge/reelforge-agent/internal/timeline"
)

// DefaultPollInterval is how often a paused player is sampled.
const DefaultPollInterval = 120 * time.Millisecond

// Player is the pull side of a preview player.
type Player interface {
	// CurrentFrame reports false when no frame is available yet.
	CurrentFrame() (int, bool)
	IsPlaying() bool
}

// Update is one published highlight state. OK is false when nothing is
// highlighted: during playback or for an empty schedule.
type Update struct {
	Index   int  `json:"index"`
	OK      bool `json:"ok"`
	Frame   int  `json:"frame"`
	Playing bool `json:"playing"`
}

type Tracker struct {
	player   Player
	observer func(Update)
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	schedule timeline.Schedule
	current  Update
	stop     chan struct{}
	done     chan struct{}
	closed   bool

	// emitMu keeps observer calls ordered.
	emitMu sync.Mutex
}

// New returns an idle tracker. Call Pause or Sync to start following the
// player. observer may be nil; it is called synchronously and must not call
// back into the tracker.
func New(player Player, observer func(Update), interval time.Duration, logger *slog.Logger) *Tracker {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Tracker{
		player:   player,
		observer: observer,
		interval: interval,
		logger:   logger,
	}
}

// Play handles a play notification.
func (t *Tracker) Play() { t.Sync() }

// Pause handles a pause notification.
func (t *Tracker) Pause() { t.Sync() }

// Sync aligns polling with the player's state: a playing player stops the
// poll timer and clears the highlight, a paused one starts the timer and
// recomputes right away.
func (t *Tracker) Sync() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	if t.player.IsPlaying() {
		stopped := t.stopLocked()
		t.mu.Unlock()
		stopped()
		t.emit(Update{Playing: true})
		return
	}

	if t.stop == nil {
		t.stop = make(chan struct{})
		t.done = make(chan struct{})
		go t.poll(t.stop, t.done)
		if t.logger != nil {
			t.logger.Debug("position polling started", "interval", t.interval)
		}
	}
	t.mu.Unlock()
	t.Refresh()
}

// TimeUpdate handles a time-update notification from the player.
func (t *Tracker) TimeUpdate() {
	if !t.player.IsPlaying() {
		t.Refresh()
	}
}

// SetSchedule replaces the schedule. A paused tracker republishes at once.
func (t *Tracker) SetSchedule(s timeline.Schedule) {
	t.mu.Lock()
	t.schedule = s
	polling := t.stop != nil
	t.mu.Unlock()

	if polling {
		t.Refresh()
	}
}

// Refresh samples the player and publishes the active segment. The sample,
// the schedule read and the publish happen under emitMu, so a refresh that
// started before SetSchedule cannot publish after the one SetSchedule runs.
func (t *Tracker) Refresh() {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()

	frame, ok := t.player.CurrentFrame()
	if !ok {
		return
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	sched := t.schedule
	t.mu.Unlock()

	idx, found := timeline.FrameToActiveSegmentIndex(sched, frame)
	t.publishLocked(Update{Index: idx, OK: found, Frame: frame})
}

// Current returns the last published update.
func (t *Tracker) Current() Update {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Polling reports whether the poll timer is running.
func (t *Tracker) Polling() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}

// Close stops the poll timer and waits for it to exit. The tracker is inert
// afterwards.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	stopped := t.stopLocked()
	t.mu.Unlock()
	stopped()
}

// stopLocked detaches the poll goroutine and returns a func that waits for
// it. The wait must happen without t.mu held.
func (t *Tracker) stopLocked() func() {
	if t.stop == nil {
		return func() {}
	}
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	close(stop)
	if t.logger != nil {
		t.logger.Debug("position polling stopped")
	}
	return func() { <-done }
}

func (t *Tracker) poll(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.Refresh()
		}
	}
}

func (t *Tracker) emit(u Update) {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()
	t.publishLocked(u)
}

// publishLocked requires emitMu.
func (t *Tracker) publishLocked(u Update) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.current = u
	t.mu.Unlock()

	if t.observer != nil {
		t.observer(u)
	}
}
