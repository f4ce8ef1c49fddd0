package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/reelforge/reelforge-agent/internal/metrics"
	"github.com/reelforge/reelforge-agent/internal/timeline"
)

// RemotePlayer is a Player fed by state reports from a browser preview.
type RemotePlayer struct {
	mu       sync.Mutex
	frame    int
	hasFrame bool
	playing  bool
	seen     time.Time
}

func (p *RemotePlayer) Report(frame int, playing bool, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frame = frame
	p.hasFrame = true
	p.playing = playing
	p.seen = at
}

func (p *RemotePlayer) CurrentFrame() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame, p.hasFrame
}

func (p *RemotePlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *RemotePlayer) lastSeen() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seen
}

type session struct {
	player  *RemotePlayer
	tracker *Tracker
}

// ScheduleLoader resolves the schedule for a project title.
type ScheduleLoader func(ctx context.Context, title string) (timeline.Schedule, error)

// Sessions holds one tracker per previewed project.
type Sessions struct {
	load     ScheduleLoader
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func NewSessions(load ScheduleLoader, interval time.Duration, logger *slog.Logger) *Sessions {
	return &Sessions{
		load:     load,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Report records a player state for title, opening a session on first use,
// and returns the resulting highlight.
func (s *Sessions) Report(ctx context.Context, title string, frame int, playing bool) (Update, error) {
	sess, err := s.open(ctx, title)
	if err != nil {
		return Update{}, err
	}
	sess.player.Report(frame, playing, s.now())
	sess.tracker.Sync()
	return sess.tracker.Current(), nil
}

// Active returns the current highlight for title.
func (s *Sessions) Active(title string) (Update, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[title]
	s.mu.Unlock()
	if !ok {
		return Update{}, false
	}
	return sess.tracker.Current(), true
}

// SetSchedule pushes a recomputed schedule into an open session.
func (s *Sessions) SetSchedule(title string, sched timeline.Schedule) {
	s.mu.Lock()
	sess, ok := s.sessions[title]
	s.mu.Unlock()
	if ok {
		sess.tracker.SetSchedule(sched)
	}
}

// Reload re-reads the schedule of an open session from the loader. A
// project that no longer loads closes its session.
func (s *Sessions) Reload(ctx context.Context, title string) error {
	s.mu.Lock()
	_, ok := s.sessions[title]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	sched, err := s.load(ctx, title)
	if err != nil {
		s.Close(title)
		return err
	}
	s.SetSchedule(title, sched)
	return nil
}

func (s *Sessions) Close(title string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[title]
	delete(s.sessions, title)
	n := len(s.sessions)
	s.mu.Unlock()

	if ok {
		sess.tracker.Close()
		metrics.SetPreviewSessions(n)
	}
	return ok
}

// Expire closes sessions with no report for longer than idle.
func (s *Sessions) Expire(idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	var stale []*session
	for title, sess := range s.sessions {
		if sess.player.lastSeen().Before(cutoff) {
			stale = append(stale, sess)
			delete(s.sessions, title)
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	for _, sess := range stale {
		sess.tracker.Close()
	}
	if len(stale) > 0 {
		metrics.SetPreviewSessions(n)
	}
	return len(stale)
}

// Run expires idle sessions until ctx is done, then closes the rest.
func (s *Sessions) Run(ctx context.Context, idle time.Duration) {
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.CloseAll()
			return
		case <-ticker.C:
			if n := s.Expire(idle); n > 0 && s.logger != nil {
				s.logger.Debug("expired preview sessions", "count", n)
			}
		}
	}
}

func (s *Sessions) CloseAll() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range all {
		sess.tracker.Close()
	}
	metrics.SetPreviewSessions(0)
}

func (s *Sessions) open(ctx context.Context, title string) (*session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[title]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}

	sched, err := s.load(ctx, title)
	if err != nil {
		return nil, err
	}

	player := &RemotePlayer{}
	created := &session{player: player, tracker: New(player, nil, s.interval, s.logger)}
	created.tracker.SetSchedule(sched)

	s.mu.Lock()
	if existing, ok := s.sessions[title]; ok {
		s.mu.Unlock()
		created.tracker.Close()
		return existing, nil
	}
	s.sessions[title] = created
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.SetPreviewSessions(n)
	return created, nil
}
