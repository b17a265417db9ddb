// Package command maps chat commands to synchronous checks and formatted
// replies.
package command

import (
	"context"
	"slices"
	"strings"
	"unicode"

	"github.com/raykavin/upbitwatch/pkg/core"
	"github.com/raykavin/upbitwatch/pkg/logger"
	"github.com/raykavin/upbitwatch/pkg/source/dexscreener"
	"github.com/raykavin/upbitwatch/pkg/source/etherscan"
	"github.com/raykavin/upbitwatch/pkg/watchlist"
)

const (
	AlertsLimit      = 20
	ScanLimit        = 10
	ScanShown        = 5
	DefaultTailLines = 200
)

// Command is a parsed chat command.
type Command struct {
	Name string
	Arg  string
}

// Parse splits "/name[@bot] [argument]". Text that does not start with a
// slash is not a command.
func Parse(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return Command{}, false
	}

	head, arg := text[1:], ""
	if i := strings.IndexFunc(head, unicode.IsSpace); i >= 0 {
		head, arg = head[:i], head[i:]
	}
	name, _, _ := strings.Cut(head, "@")
	if name == "" {
		return Command{}, false
	}

	return Command{Name: strings.ToLower(name), Arg: strings.TrimSpace(arg)}, true
}

// Responder sends one reply to whoever issued the command.
type Responder func(text string)

// Runner is a poller that can be run on demand.
type Runner interface {
	Name() string
	Poll(ctx context.Context) ([]core.Event, error)
}

type TransferLister interface {
	TokenTransfers(ctx context.Context, address string, limit int) ([]etherscan.Transfer, string, error)
}

type VolumeReader interface {
	Volume24h(ctx context.Context, contract string) (dexscreener.TokenVolume, bool, error)
}

type EventLister interface {
	Recent(limit int) ([]core.Event, error)
}

type LogReader interface {
	Today() string
	Tail(n int) ([]string, error)
}

var specs = []core.CommandSpec{
	{Name: "start", Description: "Main menu"},
	{Name: "help", Description: "Show the command list"},
	{Name: "features", Description: "Show active features"},
	{Name: "checknow", Description: "Run every check now"},
	{Name: "scanwallet", Description: "Scan the tracked wallets"},
	{Name: "checkvolume", Description: "Show 24h volume of watched tokens"},
	{Name: "watch", Description: "Watch a token contract"},
	{Name: "unwatch", Description: "Stop watching a token contract"},
	{Name: "watchlist", Description: "List watched tokens"},
	{Name: "alerts", Description: "Show recent alerts"},
	{Name: "logs", Description: "Show today's log"},
}

type handler func(ctx context.Context, cmd Command, reply Responder)

// Dispatcher runs commands against the watcher components. Every dependency
// is optional; commands whose dependency is missing answer with a
// configuration notice.
type Dispatcher struct {
	settings  core.Settings
	runners   []Runner
	transfers TransferLister
	volumes   VolumeReader
	watchlist *watchlist.WatchList
	events    EventLister
	journal   LogReader
	log       logger.Logger
	handlers  map[string]handler
}

type Option func(*Dispatcher)

func WithRunners(runners ...Runner) Option {
	return func(d *Dispatcher) {
		d.runners = append(d.runners, runners...)
	}
}

func WithTransfers(transfers TransferLister) Option {
	return func(d *Dispatcher) {
		d.transfers = transfers
	}
}

func WithVolumes(volumes VolumeReader) Option {
	return func(d *Dispatcher) {
		d.volumes = volumes
	}
}

func WithWatchList(list *watchlist.WatchList) Option {
	return func(d *Dispatcher) {
		d.watchlist = list
	}
}

func WithEvents(events EventLister) Option {
	return func(d *Dispatcher) {
		d.events = events
	}
}

func WithJournal(journal LogReader) Option {
	return func(d *Dispatcher) {
		d.journal = journal
	}
}

func NewDispatcher(settings core.Settings, log logger.Logger, options ...Option) *Dispatcher {
	d := &Dispatcher{
		settings: settings,
		log:      log.WithField("component", "command"),
	}
	for _, option := range options {
		option(d)
	}

	d.handlers = map[string]handler{
		"start":       d.menu,
		"help":        d.menu,
		"features":    d.features,
		"checknow":    d.checkNow,
		"scanwallet":  d.scanWallet,
		"checkvolume": d.checkVolume,
		"watch":       d.watch,
		"unwatch":     d.unwatch,
		"watchlist":   d.watchList,
		"alerts":      d.alerts,
		"logs":        d.logs,
	}
	return d
}

// Commands lists the supported commands in menu order.
func (d *Dispatcher) Commands() []core.CommandSpec {
	return slices.Clone(specs)
}

// Handle parses text and dispatches it. Text that is not a command is ignored.
func (d *Dispatcher) Handle(ctx context.Context, text string, reply func(text string)) {
	cmd, ok := Parse(text)
	if !ok {
		return
	}
	d.Dispatch(ctx, cmd, reply)
}

// Dispatch runs cmd to completion, answering through reply.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command, reply Responder) {
	h, found := d.handlers[cmd.Name]
	if !found {
		d.log.Debugf("unknown command %q", cmd.Name)
		reply("❓ Unknown command. Send /help for the command list.")
		return
	}

	d.log.WithField("arg", cmd.Arg).Infof("running /%s", cmd.Name)
	h(ctx, cmd, reply)
}
