package tracker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/reelforge/reelforge-agent/internal/timeline"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakePlayer struct {
	mu      sync.Mutex
	frame   int
	ready   bool
	playing bool
}

func (p *fakePlayer) CurrentFrame() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame, p.ready
}

func (p *fakePlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePlayer) seek(frame int) {
	p.mu.Lock()
	p.frame, p.ready = frame, true
	p.mu.Unlock()
}

func (p *fakePlayer) setPlaying(v bool) {
	p.mu.Lock()
	p.playing = v
	p.mu.Unlock()
}

func threeImages() timeline.Schedule {
	items := make([]timeline.MediaItem, 3)
	for i := range items {
		items[i] = timeline.MediaItem{
			Kind:                  timeline.KindImage,
			SourceRef:             "0000000000000000.jpg",
			NaturalDurationFrames: 120,
			Transform:             timeline.DefaultTransform,
		}
	}
	// [0,109) [94,203) [188,297)
	return timeline.ComputeSchedule(items, 300, 15)
}

func newTracked(t *testing.T, p Player, interval time.Duration) (*Tracker, chan Update) {
	t.Helper()
	updates := make(chan Update, 256)
	tr := New(p, func(u Update) { updates <- u }, interval, nil)
	t.Cleanup(tr.Close)
	return tr, updates
}

func next(t *testing.T, updates <-chan Update) Update {
	t.Helper()
	select {
	case u := <-updates:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("no update published")
		return Update{}
	}
}

func TestTracker_PausePublishesImmediately(t *testing.T) {
	p := &fakePlayer{}
	p.seek(100)
	tr, updates := newTracked(t, p, time.Hour)
	tr.SetSchedule(threeImages())

	tr.Pause()

	u := next(t, updates)
	assert.Equal(t, Update{Index: 0, OK: true, Frame: 100}, u)
	assert.True(t, tr.Polling())
	assert.Equal(t, u, tr.Current())
}

func TestTracker_PollingFollowsSeeks(t *testing.T) {
	p := &fakePlayer{}
	p.seek(0)
	tr, updates := newTracked(t, p, 5*time.Millisecond)
	tr.SetSchedule(threeImages())
	tr.Pause()
	require.Equal(t, 0, next(t, updates).Index)

	p.seek(150)
	require.Eventually(t, func() bool {
		return tr.Current().Index == 1 && tr.Current().Frame == 150
	}, 2*time.Second, 5*time.Millisecond)

	p.seek(250)
	require.Eventually(t, func() bool {
		return tr.Current().Index == 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestTracker_PlayStopsPolling(t *testing.T) {
	p := &fakePlayer{}
	p.seek(10)
	tr, updates := newTracked(t, p, 5*time.Millisecond)
	tr.SetSchedule(threeImages())
	tr.Pause()
	next(t, updates)

	p.setPlaying(true)
	tr.Play()

	assert.False(t, tr.Polling())
	assert.Equal(t, Update{Playing: true}, tr.Current())

	// drain whatever ticks landed before the stop, then nothing more arrives
	for len(updates) > 0 {
		<-updates
	}
	p.seek(200)
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, updates)
}

func TestTracker_TimeUpdateWhilePlayingIsIgnored(t *testing.T) {
	p := &fakePlayer{playing: true}
	p.seek(10)
	tr, updates := newTracked(t, p, time.Hour)
	tr.SetSchedule(threeImages())

	tr.TimeUpdate()
	assert.Empty(t, updates)

	p.setPlaying(false)
	tr.TimeUpdate()
	assert.Equal(t, Update{Index: 0, OK: true, Frame: 10}, next(t, updates))
}

func TestTracker_SetScheduleRepublishes(t *testing.T) {
	p := &fakePlayer{}
	p.seek(100)
	tr, updates := newTracked(t, p, time.Hour)
	tr.Pause()

	first := next(t, updates)
	assert.False(t, first.OK, "empty schedule highlights nothing")

	tr.SetSchedule(threeImages())
	assert.Equal(t, Update{Index: 0, OK: true, Frame: 100}, next(t, updates))

	tr.SetSchedule(timeline.Schedule{})
	assert.False(t, next(t, updates).OK)
}

// gatedPlayer blocks CurrentFrame while a gate is installed.
type gatedPlayer struct {
	fakePlayer
	gate    chan struct{}
	entered chan struct{}
}

func (p *gatedPlayer) CurrentFrame() (int, bool) {
	p.mu.Lock()
	gate, entered := p.gate, p.entered
	p.mu.Unlock()
	if gate != nil {
		close(entered)
		<-gate
	}
	return p.fakePlayer.CurrentFrame()
}

func (p *gatedPlayer) hold() (entered, release chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gate, p.entered = make(chan struct{}), make(chan struct{})
	return p.entered, p.gate
}

func (p *gatedPlayer) unhold(release chan struct{}) {
	p.mu.Lock()
	p.gate, p.entered = nil, nil
	p.mu.Unlock()
	close(release)
}

func TestTracker_InFlightSampleCannotOverwriteNewSchedule(t *testing.T) {
	p := &gatedPlayer{}
	p.seek(100)
	tr, updates := newTracked(t, p, time.Hour)
	tr.SetSchedule(threeImages())
	tr.Pause()
	require.Equal(t, Update{Index: 0, OK: true, Frame: 100}, next(t, updates))

	entered, release := p.hold()
	stale := make(chan struct{})
	go func() {
		defer close(stale)
		tr.Refresh()
	}()
	<-entered

	swapped := make(chan struct{})
	go func() {
		defer close(swapped)
		tr.SetSchedule(timeline.Schedule{})
	}()

	select {
	case <-swapped:
		t.Fatal("SetSchedule published while an earlier sample was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	p.unhold(release)
	<-stale
	<-swapped

	var last Update
	for len(updates) > 0 {
		last = <-updates
	}
	assert.False(t, last.OK, "last publish must use the new, empty schedule")
	assert.Equal(t, last, tr.Current())
}

func TestTracker_NoFrameYet(t *testing.T) {
	p := &fakePlayer{}
	tr, updates := newTracked(t, p, time.Hour)
	tr.SetSchedule(threeImages())
	tr.Pause()
	assert.Empty(t, updates)
	assert.True(t, tr.Polling())
}

func TestTracker_CloseIsFinal(t *testing.T) {
	p := &fakePlayer{}
	p.seek(5)
	tr, updates := newTracked(t, p, 5*time.Millisecond)
	tr.SetSchedule(threeImages())
	tr.Pause()
	next(t, updates)

	tr.Close()
	assert.False(t, tr.Polling())

	for len(updates) > 0 {
		<-updates
	}
	tr.Pause()
	tr.Refresh()
	assert.False(t, tr.Polling())
	assert.Empty(t, updates)

	tr.Close()
}

func TestNew_DefaultInterval(t *testing.T) {
	tr := New(&fakePlayer{}, nil, 0, nil)
	assert.Equal(t, DefaultPollInterval, tr.interval)
}
