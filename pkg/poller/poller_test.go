package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/raykavin/upbitwatch/pkg/core"
	"github.com/raykavin/upbitwatch/pkg/detector"
	"github.com/raykavin/upbitwatch/pkg/logger/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu    sync.Mutex
	keys  []string
	err   error
	calls int
}

func (f *fakeSource) Resource() string { return "fake" }

func (f *fakeSource) Fetch(context.Context) ([]core.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	entities := make([]core.Entity, 0, len(f.keys))
	for _, k := range f.keys {
		entities = append(entities, core.Entity{Key: k})
	}
	return entities, nil
}

func (f *fakeSource) set(keys []string, err error) {
	f.mu.Lock()
	f.keys, f.err = keys, err
	f.mu.Unlock()
}

type collector struct {
	mu     sync.Mutex
	events []core.Event
}

func (c *collector) OnEvent(e core.Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

type recorder struct{ lines []string }

func (r *recorder) Record(text string) { r.lines = append(r.lines, text) }

func newPoller(source *fakeSource, interval time.Duration, options ...Option) (*Poller, *collector) {
	engine := detector.NewEngine()
	d := engine.Track(source.Resource(), detector.Membership{})
	feed := NewFeed()
	sink := &collector{}
	feed.Subscribe(sink.OnEvent)
	return New("listings", source, d, feed, interval, zerolog.NewNop(), options...), sink
}

func TestPoller_EndToEnd(t *testing.T) {
	source := &fakeSource{keys: []string{"KRW-BTC", "KRW-ETH"}}
	rec := &recorder{}
	p, sink := newPoller(source, 30*time.Second, WithRecorder(rec))
	ctx := context.Background()

	// t=0: priming
	events, err := p.Poll(ctx)
	require.NoError(t, err)
	require.Empty(t, events)
	require.Equal(t, []string{"listings primed: 2 entries"}, rec.lines)

	// t=30s: one new market upstream
	source.set([]string{"KRW-BTC", "KRW-ETH", "KRW-NEW"}, nil)
	events, err = p.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "KRW-NEW", events[0].Key)
	require.Equal(t, 1, sink.len())

	// t=60s: nothing changed
	events, err = p.Poll(ctx)
	require.NoError(t, err)
	require.Empty(t, events)
	require.Equal(t, 1, sink.len())
}

func TestPoller_FetchErrorKeepsSnapshot(t *testing.T) {
	source := &fakeSource{keys: []string{"A"}}
	rec := &recorder{}
	p, sink := newPoller(source, time.Second, WithRecorder(rec))
	ctx := context.Background()

	_, err := p.Poll(ctx)
	require.NoError(t, err)

	source.set(nil, errors.New("timeout"))
	_, err = p.Poll(ctx)
	require.ErrorContains(t, err, "listings: timeout")
	require.Contains(t, rec.lines, "listings check error: timeout")

	source.set([]string{"A", "B"}, nil)
	events, err := p.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "B", events[0].Key)
	require.Equal(t, 1, sink.len())
}

func TestFeed_SubscribeByKind(t *testing.T) {
	feed := NewFeed()
	all, listings := &collector{}, &collector{}
	feed.Subscribe(all.OnEvent)
	feed.Subscribe(listings.OnEvent, core.EventNewListing)

	feed.Publish(core.Event{Kind: core.EventNewListing})
	feed.Publish(core.Event{Kind: core.EventVolumeSpike})

	require.Equal(t, 2, all.len())
	require.Equal(t, 1, listings.len())
}

func TestScheduler_Run(t *testing.T) {
	source := &fakeSource{keys: []string{"A"}}
	p, sink := newPoller(source, 10*time.Millisecond)

	manual := &fakeSource{keys: []string{"X"}}
	onDemand, _ := newPoller(manual, 0)

	scheduler := NewScheduler(zerolog.NewNop(), p)
	scheduler.Add(onDemand)
	require.Len(t, scheduler.Pollers(), 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = scheduler.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return p.detector.Primed() }, time.Second, 5*time.Millisecond)

	source.set([]string{"A", "B"}, nil)
	require.Eventually(t, func() bool { return sink.len() == 1 }, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, sink.len())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}

	manual.mu.Lock()
	require.Zero(t, manual.calls)
	manual.mu.Unlock()
}
