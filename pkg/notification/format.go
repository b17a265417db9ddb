package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/raykavin/upbitwatch/pkg/core"
	"github.com/raykavin/upbitwatch/pkg/source/dexscreener"
	"github.com/raykavin/upbitwatch/pkg/source/etherscan"
	"github.com/raykavin/upbitwatch/pkg/source/upbit"
	"github.com/shopspring/decimal"
)

var markdownEscaper = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
)

// EscapeMarkdown makes upstream text safe to embed in a Markdown message.
// Escapes only apply outside entities, so the result must not be placed
// inside a bold, italic or code span.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// Code renders s as an inline code span. Backticks cannot be escaped inside
// a span, so they are dropped.
func Code(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "") + "`"
}

// ShortAddress keeps the first ten characters of an address.
func ShortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:10] + "..."
}

// FormatAmount renders a decimal string with thousands separators and at
// most three fraction digits. Unparsable input is returned as is.
func FormatAmount(amount string) string {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return amount
	}
	return formatDecimal(d, 3)
}

// FormatVolume renders a volume with thousands separators and two fraction
// digits at most.
func FormatVolume(v float64) string {
	return formatDecimal(decimal.NewFromFloat(v), 2)
}

func formatDecimal(d decimal.Decimal, places int32) string {
	s := d.Round(places).String()

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + b.String()
}

// FormatEvent renders event as a Markdown chat message.
func FormatEvent(event core.Event) string {
	switch event.Kind {
	case core.EventNewListing:
		return formatListing(event)
	case core.EventWalletReceive:
		return formatWalletReceive(event)
	case core.EventVolumeSpike:
		return formatVolumeSpike(event)
	default:
		return EscapeMarkdown(event.Summary())
	}
}

func detectedAt(t time.Time) string {
	return "⏰ Detected at: " + t.UTC().Format(time.RFC3339)
}

func formatListing(event core.Event) string {
	e := event.Entity
	var sb strings.Builder
	sb.WriteString("🚀 *UPBIT NEW LISTING DETECTED!*\n\n")
	fmt.Fprintf(&sb, "🪙 *Name:* %s (%s)\n", EscapeMarkdown(e.Attr(core.AttrEnglishName, "-")), EscapeMarkdown(e.Attr(core.AttrKoreanName, "-")))
	fmt.Fprintf(&sb, "📊 Market: %s\n", Code(event.Key))
	fmt.Fprintf(&sb, "🔗 %s\n\n", upbit.ExchangeURL(event.Key))
	sb.WriteString(detectedAt(event.Time))
	return sb.String()
}

func formatWalletReceive(event core.Event) string {
	e := event.Entity
	var sb strings.Builder
	sb.WriteString("💰 *NEW TOKEN TRANSFER*\n\n")
	fmt.Fprintf(&sb, "🪙 *Token:* %s (%s)\n",
		EscapeMarkdown(e.Attr(core.AttrTokenName, e.Attr(core.AttrContract, "?"))),
		EscapeMarkdown(e.Attr(core.AttrTokenSymbol, "—")))
	fmt.Fprintf(&sb, "*Amount:* %s\n", EscapeMarkdown(FormatAmount(e.Attr(core.AttrAmount, "0"))))
	fmt.Fprintf(&sb, "From: %s\n", Code(ShortAddress(e.Attr(core.AttrFrom, "?"))))
	fmt.Fprintf(&sb, "Wallet: %s\n", Code(ShortAddress(e.Attr(core.AttrWallet, ""))))
	fmt.Fprintf(&sb, "[View Tx](%s%s)\n\n", etherscan.TxURL, event.Key)
	sb.WriteString(detectedAt(event.Time))
	return sb.String()
}

func formatVolumeSpike(event core.Event) string {
	e := event.Entity
	address := e.Attr(core.AttrAddress, event.Key)

	var sb strings.Builder
	sb.WriteString("📈 *VOLUME SPIKE DETECTED!*\n\n")
	fmt.Fprintf(&sb, "🪙 *Token:* %s (%s)\n",
		EscapeMarkdown(e.Attr(core.AttrTokenName, "?")),
		EscapeMarkdown(e.Attr(core.AttrTokenSymbol, "—")))
	fmt.Fprintf(&sb, "📄 Contract: %s\n", Code(address))
	fmt.Fprintf(&sb, "📊 24h volume: *$%s* → *$%s*", FormatVolume(event.Previous), FormatVolume(e.Value))
	if event.Previous > 0 {
		fmt.Fprintf(&sb, " (x%.2f)", e.Value/event.Previous)
	}
	fmt.Fprintf(&sb, "\n🔗 %s%s\n\n", dexscreener.TokenURL, address)
	sb.WriteString(detectedAt(event.Time))
	return sb.String()
}
