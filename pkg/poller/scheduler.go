package poller

import (
	"context"
	"sync"
	"time"

	"github.com/raykavin/upbitwatch/pkg/logger"
)

// Scheduler drives each poller from its own ticker. A poller polls once when
// the scheduler starts, then on every tick; a slow cycle makes the ticker
// drop ticks instead of starting a second cycle of the same poller.
type Scheduler struct {
	mu      sync.Mutex
	pollers []*Poller
	log     logger.Logger
}

func NewScheduler(log logger.Logger, pollers ...*Poller) *Scheduler {
	return &Scheduler{pollers: pollers, log: log}
}

func (s *Scheduler) Add(p *Poller) {
	s.mu.Lock()
	s.pollers = append(s.pollers, p)
	s.mu.Unlock()
}

// Pollers returns every registered poller, timed or not.
func (s *Scheduler) Pollers() []*Poller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Poller(nil), s.pollers...)
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, p := range s.Pollers() {
		if p.Interval() <= 0 {
			s.log.Infof("%s: on demand only", p.Name())
			continue
		}

		wg.Add(1)
		go func(p *Poller) {
			defer wg.Done()
			s.loop(ctx, p)
		}(p)
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}

func (s *Scheduler) loop(ctx context.Context, p *Poller) {
	s.log.Infof("%s: polling every %s", p.Name(), p.Interval())

	ticker := time.NewTicker(p.Interval())
	defer ticker.Stop()

	for {
		_, _ = p.Poll(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
