package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/raykavin/upbitwatch/pkg/core"
	"github.com/raykavin/upbitwatch/pkg/journal"
	nt "github.com/raykavin/upbitwatch/pkg/notification"
	"github.com/raykavin/upbitwatch/pkg/source/etherscan"
	"github.com/raykavin/upbitwatch/pkg/watchlist"
	"github.com/samber/lo"
	"github.com/xhit/go-str2duration/v2"
)

// maxLogChars keeps a /logs reply under the chat message size limit.
const maxLogChars = 3500

func (d *Dispatcher) menu(_ context.Context, _ Command, reply Responder) {
	var sb strings.Builder
	sb.WriteString("🔥 *Upbit Listing Detector - Menu*\n\n*Commands:*\n")
	for _, spec := range d.Commands() {
		name := spec.Name
		if name == "watch" || name == "unwatch" {
			name += " <address>"
		}
		fmt.Fprintf(&sb, "/%s - %s\n", name, spec.Description)
	}
	reply(sb.String())
}

func every(interval time.Duration) string {
	if interval <= 0 {
		return "manual only"
	}
	return "every " + str2duration.String(interval)
}

func (d *Dispatcher) features(_ context.Context, _ Command, reply Responder) {
	s := d.settings

	var sb strings.Builder
	sb.WriteString("*Active features*\n")
	fmt.Fprintf(&sb, "• Upbit new listing detector (%s)\n", every(s.ListingInterval))

	switch {
	case !s.Etherscan.Enabled():
		sb.WriteString("• Wallet tracker: disabled, ETHERSCAN\\_API or UPBIT\\_WALLETS not set\n")
	case s.Etherscan.Interval <= 0:
		fmt.Fprintf(&sb, "• Wallet tracker: %d wallet(s), manual scan with /scanwallet\n", len(s.Etherscan.Wallets))
	default:
		fmt.Fprintf(&sb, "• Wallet tracker: %d wallet(s), %s\n", len(s.Etherscan.Wallets), every(s.Etherscan.Interval))
	}

	watched := 0
	if d.watchlist != nil {
		watched = d.watchlist.Len()
	}
	fmt.Fprintf(&sb, "• Volume watcher: %d token(s), spike above x%.2f and $%s (%s)\n",
		watched, s.Volume.Ratio, nt.FormatVolume(s.Volume.Floor), every(s.Volume.Interval))
	sb.WriteString("• Recent alerts with /alerts, daily log with /logs\n")
	reply(sb.String())
}

func (d *Dispatcher) checkNow(ctx context.Context, _ Command, reply Responder) {
	reply("⏳ Running manual check...")

	var sb strings.Builder
	sb.WriteString("🔎 *Manual check*\n\n")
	if len(d.runners) == 0 {
		sb.WriteString("No checks configured.\n")
	}
	for _, r := range d.runners {
		events, err := r.Poll(ctx)
		if err != nil {
			fmt.Fprintf(&sb, "⚠️ %s: %s\n", nt.EscapeMarkdown(r.Name()), nt.EscapeMarkdown(err.Error()))
			continue
		}
		fmt.Fprintf(&sb, "✅ %s: %d new\n", nt.EscapeMarkdown(r.Name()), len(events))
	}
	reply(sb.String())

	reply(d.walletReport(ctx))
	reply("✅ Manual check done.")
}

func (d *Dispatcher) scanWallet(ctx context.Context, _ Command, reply Responder) {
	reply("⏳ Scanning wallet transfers...")
	reply(d.walletReport(ctx))
}

func (d *Dispatcher) walletReport(ctx context.Context) string {
	if d.transfers == nil || !d.settings.Etherscan.Enabled() {
		return "⚠️ ETHERSCAN\\_API or UPBIT\\_WALLETS is not set."
	}

	sections := lo.Map(d.settings.Etherscan.Wallets, func(wallet string, _ int) string {
		return d.walletSection(ctx, wallet)
	})
	return strings.Join(sections, "\n")
}

func (d *Dispatcher) walletSection(ctx context.Context, wallet string) string {
	short := nt.Code(nt.ShortAddress(wallet))

	txs, status, err := d.transfers.TokenTransfers(ctx, wallet, ScanLimit)
	if err != nil {
		d.log.WithError(err).WithField("wallet", wallet).Warn("wallet scan failed")
		return fmt.Sprintf("⚠️ Wallet scan failed for %s: %s\n", short, nt.EscapeMarkdown(err.Error()))
	}
	if len(txs) == 0 {
		if status == "" {
			status = "OK"
		}
		return fmt.Sprintf("🔍 No incoming tokens recently for %s.\n\nStatus: %s\n", short, nt.EscapeMarkdown(status))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔍 *Incoming tokens*\nWallet: %s\n\n", short)
	for _, tx := range lo.Slice(txs, 0, ScanShown) {
		name := lo.Ternary(tx.TokenName != "", tx.TokenName, tx.ContractAddress)
		symbol := lo.Ternary(tx.TokenSymbol != "", tx.TokenSymbol, "—")
		fmt.Fprintf(&sb, "🪙 *Token:* %s (%s)\n", nt.EscapeMarkdown(name), nt.EscapeMarkdown(symbol))
		fmt.Fprintf(&sb, "*Amount:* %s\n", nt.EscapeMarkdown(nt.FormatAmount(tx.Amount.String())))
		fmt.Fprintf(&sb, "From: %s\n", nt.Code(nt.ShortAddress(tx.From)))
		fmt.Fprintf(&sb, "[View Tx](%s%s)\n\n", etherscan.TxURL, tx.Hash)
	}
	return sb.String()
}

func (d *Dispatcher) checkVolume(ctx context.Context, _ Command, reply Responder) {
	if d.volumes == nil || d.watchlist == nil {
		reply("⚠️ Volume watcher is not configured.")
		return
	}

	tokens := d.watchlist.Items()
	if len(tokens) == 0 {
		reply("📭 Watch-list is empty. Add a token with /watch <address>.")
		return
	}

	reply("⏳ Checking 24h volume...")

	var sb strings.Builder
	sb.WriteString("📊 *24h volume*\n\n")
	for _, token := range tokens {
		v, ok, err := d.volumes.Volume24h(ctx, token)
		switch {
		case err != nil:
			d.log.WithError(err).WithField("token", token).Warn("volume check failed")
			fmt.Fprintf(&sb, "⚠️ %s: %s\n", nt.Code(token), nt.EscapeMarkdown(err.Error()))
		case !ok:
			fmt.Fprintf(&sb, "❔ %s: no pairs found\n", nt.Code(token))
		default:
			symbol := lo.Ternary(v.Symbol != "", v.Symbol, "?")
			fmt.Fprintf(&sb, "🪙 %s %s: $%s (%d pairs)\n",
				nt.EscapeMarkdown(symbol), nt.Code(nt.ShortAddress(token)), nt.FormatVolume(v.Volume24h), v.Pairs)
		}
	}
	reply(sb.String())
}

func (d *Dispatcher) watch(_ context.Context, cmd Command, reply Responder) {
	address, ok := d.addressArg(cmd, reply)
	if !ok {
		return
	}

	switch err := d.watchlist.Add(address); {
	case errors.Is(err, watchlist.ErrInvalidAddress):
		reply("❌ Invalid address. Expected 0x followed by 40 hex characters.")
	case errors.Is(err, watchlist.ErrAlreadyWatched):
		reply(fmt.Sprintf("ℹ️ %s is already watched.", nt.Code(address)))
	case err != nil:
		reply("⚠️ " + nt.EscapeMarkdown(err.Error()))
	default:
		reply(fmt.Sprintf("✅ Watching %s. Spikes are measured against the last volume stored for it, or against a baseline taken on the next check.", nt.Code(address)))
	}
}

func (d *Dispatcher) unwatch(_ context.Context, cmd Command, reply Responder) {
	address, ok := d.addressArg(cmd, reply)
	if !ok {
		return
	}

	switch err := d.watchlist.Remove(address); {
	case errors.Is(err, watchlist.ErrInvalidAddress):
		reply("❌ Invalid address. Expected 0x followed by 40 hex characters.")
	case errors.Is(err, watchlist.ErrNotWatched):
		reply(fmt.Sprintf("ℹ️ %s is not in the watch-list.", nt.Code(address)))
	case err != nil:
		reply("⚠️ " + nt.EscapeMarkdown(err.Error()))
	default:
		reply(fmt.Sprintf("🗑 Stopped watching %s.", nt.Code(address)))
	}
}

// addressArg takes the first word of the argument as the token address.
func (d *Dispatcher) addressArg(cmd Command, reply Responder) (string, bool) {
	if d.watchlist == nil {
		reply("⚠️ Volume watcher is not configured.")
		return "", false
	}

	fields := strings.Fields(cmd.Arg)
	if len(fields) == 0 {
		reply(fmt.Sprintf("Usage: /%s <token contract address>", cmd.Name))
		return "", false
	}
	return fields[0], true
}

func (d *Dispatcher) watchList(_ context.Context, _ Command, reply Responder) {
	if d.watchlist == nil {
		reply("⚠️ Volume watcher is not configured.")
		return
	}

	items := d.watchlist.Items()
	if len(items) == 0 {
		reply("📭 Watch-list is empty. Add a token with /watch <address>.")
		return
	}

	lines := lo.Map(items, func(address string, i int) string {
		return fmt.Sprintf("%d. %s", i+1, nt.Code(address))
	})
	reply(fmt.Sprintf("👀 *Watched tokens (%d)*\n\n%s", len(items), strings.Join(lines, "\n")))
}

func (d *Dispatcher) alerts(_ context.Context, _ Command, reply Responder) {
	if d.events == nil {
		reply("📭 No alerts yet.")
		return
	}

	events, err := d.events.Recent(AlertsLimit)
	if err != nil {
		d.log.WithError(err).Error("failed to read alert history")
		reply("⚠️ Failed to read alerts: " + nt.EscapeMarkdown(err.Error()))
		return
	}
	if len(events) == 0 {
		reply("📭 No alerts yet.")
		return
	}

	reply(fmt.Sprintf("🔔 *Recent alerts (%d)*\n\n```\n%s```", len(events), alertsTable(events)))
}

func alertsTable(events []core.Event) string {
	buffer := &strings.Builder{}
	table := tablewriter.NewWriter(buffer)
	table.SetHeader([]string{"Time", "Kind", "Subject"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)

	for _, event := range events {
		table.Append([]string{
			event.Time.UTC().Format("01-02 15:04"),
			string(event.Kind),
			alertSubject(event),
		})
	}
	table.Render()

	return strings.ReplaceAll(buffer.String(), "`", "")
}

func alertSubject(event core.Event) string {
	e := event.Entity
	switch event.Kind {
	case core.EventWalletReceive:
		return fmt.Sprintf("%s %s", nt.FormatAmount(e.Attr(core.AttrAmount, "0")), e.Attr(core.AttrTokenSymbol, "?"))
	case core.EventVolumeSpike:
		return fmt.Sprintf("%s %s", e.Attr(core.AttrTokenSymbol, nt.ShortAddress(event.Key)), lo.Ternary(event.Previous > 0,
			fmt.Sprintf("x%.2f", e.Value/event.Previous), "new"))
	default:
		return event.Key
	}
}

func (d *Dispatcher) logs(_ context.Context, _ Command, reply Responder) {
	if d.journal == nil {
		reply("⚠️ Log is not configured.")
		return
	}

	today := d.journal.Today()
	n := d.settings.LogTailLines
	if n <= 0 {
		n = DefaultTailLines
	}

	lines, err := d.journal.Tail(n)
	switch {
	case errors.Is(err, journal.ErrNoLog):
		reply(fmt.Sprintf("📝 No log yet for today (%s)", today))
		return
	case err != nil:
		d.log.WithError(err).Error("failed to read log")
		reply("⚠️ Failed to read log: " + nt.EscapeMarkdown(err.Error()))
		return
	case len(lines) == 0:
		reply("📝 Log is empty.")
		return
	}

	reply(fmt.Sprintf("📝 *Today's log (%s)*\n\n```\n%s\n```", today, fitLog(lines, maxLogChars)))
}

// fitLog joins the newest lines that fit in limit bytes, cutting a single
// oversized line. Backticks are removed so the code block cannot be closed
// early.
func fitLog(lines []string, limit int) string {
	size := 0
	start := len(lines)
	for start > 0 {
		next := len(lines[start-1]) + 1
		if size+next > limit && start < len(lines) {
			break
		}
		size += next
		start--
	}

	text := strings.Join(lines[start:], "\n")
	if len(text) > limit {
		text = strings.ToValidUTF8(text[:limit], "")
	}
	return strings.ReplaceAll(text, "`", "'")
}
