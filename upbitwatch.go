// Package upbitwatch wires the listing, wallet and volume watchers to the
// Telegram chat.
package upbitwatch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/raykavin/upbitwatch/pkg/command"
	"github.com/raykavin/upbitwatch/pkg/core"
	"github.com/raykavin/upbitwatch/pkg/detector"
	"github.com/raykavin/upbitwatch/pkg/history"
	"github.com/raykavin/upbitwatch/pkg/journal"
	"github.com/raykavin/upbitwatch/pkg/keepalive"
	"github.com/raykavin/upbitwatch/pkg/logger"
	"github.com/raykavin/upbitwatch/pkg/notification"
	"github.com/raykavin/upbitwatch/pkg/poller"
	"github.com/raykavin/upbitwatch/pkg/source/dexscreener"
	"github.com/raykavin/upbitwatch/pkg/source/etherscan"
	"github.com/raykavin/upbitwatch/pkg/source/fetch"
	"github.com/raykavin/upbitwatch/pkg/source/upbit"
	"github.com/raykavin/upbitwatch/pkg/watchlist"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const StartupMessage = "🔥 Upbit Listing Bot Started..."

type Watcher struct {
	settings core.Settings
	log      logger.Logger

	notifier  core.Notifier
	keepAlive bool

	httpClient     *http.Client
	upbitURL       string
	etherscanURL   string
	dexscreenerURL string

	engine     *detector.Engine
	feed       *poller.Feed
	scheduler  *poller.Scheduler
	watchlist  *watchlist.WatchList
	history    *history.History
	journal    *journal.Journal
	dispatcher *command.Dispatcher
	server     *keepalive.Server

	explorer *etherscan.Client
	volumes  *dexscreener.Client
}

// NewWatcher builds every component from settings. Unless WithNotifier is
// given, a Telegram bot is created, which contacts the Telegram API.
func NewWatcher(settings core.Settings, log logger.Logger, options ...Option) (*Watcher, error) {
	w := &Watcher{
		settings:  settings,
		log:       log,
		keepAlive: settings.Port > 0,
		engine:    detector.NewEngine(),
		feed:      poller.NewFeed(),
	}
	for _, option := range options {
		option(w)
	}

	var err error
	if w.journal, err = journal.New(settings.LogsDir); err != nil {
		return nil, err
	}
	if w.history, err = history.New(settings.HistorySize, log); err != nil {
		return nil, err
	}

	list, rejected := watchlist.New(settings.Volume.Tokens...)
	for _, err := range rejected {
		log.WithError(err).Warn("ignoring watch token")
	}
	w.watchlist = list

	w.scheduler = poller.NewScheduler(log)
	w.initializePollers()

	runners := lo.Map(w.scheduler.Pollers(), func(p *poller.Poller, _ int) command.Runner {
		return p
	})
	dispatcherOptions := []command.Option{
		command.WithRunners(runners...),
		command.WithVolumes(w.volumes),
		command.WithWatchList(w.watchlist),
		command.WithEvents(w.history),
		command.WithJournal(w.journal),
	}
	if w.explorer != nil {
		dispatcherOptions = append(dispatcherOptions, command.WithTransfers(w.explorer))
	}
	w.dispatcher = command.NewDispatcher(settings, log, dispatcherOptions...)

	if err := w.initializeNotifications(); err != nil {
		w.history.Close()
		return nil, err
	}

	if w.keepAlive {
		w.server = keepalive.New(settings.Port, log)
	}

	return w, nil
}

func (w *Watcher) fetchClient() *fetch.Client {
	if w.httpClient != nil {
		return fetch.New(fetch.WithHTTPClient(w.httpClient))
	}
	return fetch.New()
}

// initializePollers registers one poller per monitored resource.
func (w *Watcher) initializePollers() {
	s := w.settings
	f := w.fetchClient()

	var upbitOptions []upbit.Option
	if w.upbitURL != "" {
		upbitOptions = append(upbitOptions, upbit.WithURL(w.upbitURL))
	}
	listings := upbit.NewListingSource(upbit.NewClient(f, upbitOptions...))
	w.addPoller("listings", listings, detector.Membership{}, s.ListingInterval)

	if s.Etherscan.Enabled() {
		var etherscanOptions []etherscan.Option
		if w.etherscanURL != "" {
			etherscanOptions = append(etherscanOptions, etherscan.WithBaseURL(w.etherscanURL))
		}
		w.explorer = etherscan.NewClient(f, s.Etherscan.APIKey, etherscanOptions...)

		for _, address := range s.Etherscan.Wallets {
			source := etherscan.NewWalletSource(w.explorer, address)
			name := "wallet " + notification.ShortAddress(address)
			w.addPoller(name, source, detector.Latest{}, s.Etherscan.Interval)
		}
	} else {
		w.log.Warn("wallet tracker disabled: ETHERSCAN_API or UPBIT_WALLETS not set")
	}

	var dexOptions []dexscreener.Option
	if w.dexscreenerURL != "" {
		dexOptions = append(dexOptions, dexscreener.WithBaseURL(w.dexscreenerURL))
	}
	w.volumes = dexscreener.NewClient(f, dexOptions...)
	volumes := dexscreener.NewVolumeSource(w.volumes, w.watchlist, w.log)
	w.addPoller("volume", volumes, detector.Threshold{Ratio: s.Volume.Ratio, Floor: s.Volume.Floor}, s.Volume.Interval)
}

func (w *Watcher) addPoller(name string, source core.Source, policy detector.Policy, interval time.Duration) {
	d := w.engine.Track(source.Resource(), policy)
	w.scheduler.Add(poller.New(name, source, d, w.feed, interval, w.log, poller.WithRecorder(w.journal)))
}

// initializeNotifications sets up the chat sink and subscribes every event
// consumer to the feed
func (w *Watcher) initializeNotifications() error {
	if w.notifier == nil {
		telegram, err := notification.NewTelegram(w.settings.Telegram, w.log,
			notification.WithCommandHandler(w.dispatcher))
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		w.notifier = telegram
	}

	w.feed.Subscribe(w.history.OnEvent)
	w.feed.Subscribe(w.journal.OnEvent)
	w.feed.Subscribe(w.notifier.OnEvent)
	return nil
}

func (w *Watcher) Dispatcher() *command.Dispatcher {
	return w.dispatcher
}

func (w *Watcher) WatchList() *watchlist.WatchList {
	return w.watchlist
}

func (w *Watcher) Engine() *detector.Engine {
	return w.engine
}

// Exec runs one chat command synchronously, answering through reply.
func (w *Watcher) Exec(ctx context.Context, text string, reply func(text string)) {
	w.dispatcher.Handle(ctx, text, reply)
}

// Run starts the bot, the pollers and the keep-alive server and blocks until
// ctx is cancelled or a component fails.
func (w *Watcher) Run(ctx context.Context) error {
	w.journal.Record(StartupMessage)
	w.log.Info(StartupMessage)

	if starter, ok := w.notifier.(core.NotifierWithStart); ok {
		starter.Start()
		defer starter.Stop()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.scheduler.Run(ctx)
	})
	if w.server != nil {
		g.Go(func() error {
			return w.server.Run(ctx)
		})
	}

	return g.Wait()
}

// Close releases the alert history.
func (w *Watcher) Close() error {
	return w.history.Close()
}
