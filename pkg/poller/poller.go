// Package poller runs fetch, diff and publish cycles for every monitored
// resource.
package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/raykavin/upbitwatch/pkg/core"
	"github.com/raykavin/upbitwatch/pkg/detector"
	"github.com/raykavin/upbitwatch/pkg/logger"
)

// Recorder receives the human readable outcome of notable cycles.
type Recorder interface {
	Record(text string)
}

// Poller checks one resource: fetch the current state, diff it against the
// snapshot and publish the detected events.
type Poller struct {
	name     string
	source   core.Source
	detector *detector.Detector
	feed     *Feed
	interval time.Duration
	recorder Recorder
	log      logger.Logger
}

type Option func(*Poller)

// WithRecorder records priming and fetch failures, e.g. into the journal.
func WithRecorder(recorder Recorder) Option {
	return func(p *Poller) {
		p.recorder = recorder
	}
}

// New builds a poller. A zero interval leaves the poller to on-demand use.
func New(name string, source core.Source, d *detector.Detector, feed *Feed, interval time.Duration,
	log logger.Logger, options ...Option) *Poller {

	p := &Poller{
		name:     name,
		source:   source,
		detector: d,
		feed:     feed,
		interval: interval,
		log:      log.WithField("poller", name),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

func (p *Poller) Name() string {
	return p.name
}

func (p *Poller) Interval() time.Duration {
	return p.interval
}

func (p *Poller) Resource() string {
	return p.source.Resource()
}

// Poll runs one cycle. A fetch error aborts the cycle and leaves the
// snapshot untouched.
func (p *Poller) Poll(ctx context.Context) ([]core.Event, error) {
	entities, err := p.source.Fetch(ctx)
	if err != nil {
		p.log.WithError(err).Warn("fetch failed")
		p.record(fmt.Sprintf("%s check error: %v", p.name, err))
		return nil, fmt.Errorf("%s: %w", p.name, err)
	}

	primed := p.detector.Primed()
	events := p.detector.Detect(entities)
	if !primed && p.detector.Primed() {
		p.log.Infof("snapshot primed with %d entries", len(entities))
		p.record(fmt.Sprintf("%s primed: %d entries", p.name, len(entities)))
	}

	for _, event := range events {
		p.log.WithField("key", event.Key).Info(event.Summary())
		p.feed.Publish(event)
	}

	p.log.Debugf("cycle done: %d fetched, %d new", len(entities), len(events))
	return events, nil
}

func (p *Poller) record(text string) {
	if p.recorder != nil {
		p.recorder.Record(text)
	}
}
