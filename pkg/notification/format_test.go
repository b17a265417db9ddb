package notification

import (
	"strings"
	"testing"
	"time"

	"github.com/raykavin/upbitwatch/pkg/core"
	"github.com/stretchr/testify/require"
)

var detected = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func TestEscapeMarkdown(t *testing.T) {
	require.Equal(t, `a\_b\*c\`+"`"+`d\[e]`, EscapeMarkdown("a_b*c`d[e]"))
	require.Equal(t, "plain text", EscapeMarkdown("plain text"))
	require.Equal(t, `C:\dir`, EscapeMarkdown(`C:\dir`))
}

// balancedMarkdown reports whether every entity of a legacy Markdown message
// is closed. Backslash escapes count only outside entities.
func balancedMarkdown(s string) bool {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			if i+1 < len(s) && strings.IndexByte("_*`[", s[i+1]) >= 0 {
				i++
			}
		case '*', '_':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				return false
			}
			i += end + 1
		case '`':
			if strings.HasPrefix(s[i:], "```") {
				end := strings.Index(s[i+3:], "```")
				if end < 0 {
					return false
				}
				i += end + 5
				continue
			}
			end := strings.IndexByte(s[i+1:], '`')
			if end < 0 {
				return false
			}
			i += end + 1
		case '[':
			text := strings.Index(s[i:], "](")
			if text < 0 {
				return false
			}
			end := strings.IndexByte(s[i+text:], ')')
			if end < 0 {
				return false
			}
			i += text + end
		}
	}
	return true
}

func TestBalancedMarkdown(t *testing.T) {
	require.True(t, balancedMarkdown("*bold* `code` [link](http://x) a\\*b"))
	require.False(t, balancedMarkdown(`*Moon\*Dog*`))
	require.False(t, balancedMarkdown("`open"))
}

func TestCode(t *testing.T) {
	require.Equal(t, "`KRW-BTC`", Code("KRW-`BTC"))
}

func TestShortAddress(t *testing.T) {
	require.Equal(t, "0x74de5d4f...", ShortAddress("0x74de5d4fcbf63e00296fd95d33236b9794016631"))
	require.Equal(t, "0x1", ShortAddress("0x1"))
}

func TestFormatAmount(t *testing.T) {
	testCases := map[string]string{
		"0":            "0",
		"12":           "12",
		"1234":         "1,234",
		"1234567.891":  "1,234,567.891",
		"999999.99999": "1,000,000",
		"-4321.5":      "-4,321.5",
		"0.00012":      "0",
		"100000.10":    "100,000.1",
		"not-a-number": "not-a-number",
	}

	for in, want := range testCases {
		require.Equal(t, want, FormatAmount(in), in)
	}
}

func TestFormatVolume(t *testing.T) {
	require.Equal(t, "1,600", FormatVolume(1600))
	require.Equal(t, "12,345.68", FormatVolume(12345.678))
}

func TestFormatEvent_Listing(t *testing.T) {
	msg := FormatEvent(core.Event{
		Kind: core.EventNewListing,
		Key:  "KRW-PEPE",
		Time: detected,
		Entity: core.Entity{Key: "KRW-PEPE", Attrs: map[string]string{
			core.AttrEnglishName: "Pepe_Coin",
			core.AttrKoreanName:  "페페",
		}},
	})

	require.Contains(t, msg, "*UPBIT NEW LISTING DETECTED!*")
	require.Contains(t, msg, `*Name:* Pepe\_Coin (페페)`)
	require.Contains(t, msg, "Market: `KRW-PEPE`")
	require.Contains(t, msg, "https://upbit.com/exchange?code=CRIX.UPBIT.KRW-PEPE")
	require.Contains(t, msg, "2024-06-01T09:30:00Z")
}

func TestFormatEvent_WalletReceive(t *testing.T) {
	msg := FormatEvent(core.Event{
		Kind:     core.EventWalletReceive,
		Key:      "0xhash",
		Resource: "wallet:0x74de5d4fcbf63e00296fd95d33236b9794016631",
		Time:     detected,
		Entity: core.Entity{Key: "0xhash", Attrs: map[string]string{
			core.AttrTokenName:   "Tether USD",
			core.AttrTokenSymbol: "USDT",
			core.AttrAmount:      "1234.56789",
			core.AttrFrom:        "0x1111111111111111111111111111111111111111",
			core.AttrWallet:      "0x74de5d4fcbf63e00296fd95d33236b9794016631",
		}},
	})

	require.Contains(t, msg, "*Token:* Tether USD (USDT)")
	require.Contains(t, msg, "*Amount:* 1,234.568")
	require.Contains(t, msg, "From: `0x11111111...`")
	require.Contains(t, msg, "[View Tx](https://etherscan.io/tx/0xhash)")
}

func TestFormatEvent_VolumeSpike(t *testing.T) {
	msg := FormatEvent(core.Event{
		Kind:     core.EventVolumeSpike,
		Key:      "0xabc",
		Previous: 1000,
		Time:     detected,
		Entity: core.Entity{Key: "0xabc", Value: 1600, Attrs: map[string]string{
			core.AttrAddress:     "0xABC",
			core.AttrTokenSymbol: "ABC",
		}},
	})

	require.Contains(t, msg, "*VOLUME SPIKE DETECTED!*")
	require.Contains(t, msg, "*$1,000* → *$1,600* (x1.60)")
	require.Contains(t, msg, "Contract: `0xABC`")
	require.Contains(t, msg, "https://dexscreener.com/ethereum/0xABC")
}

func TestFormatEvent_HostileUpstreamText(t *testing.T) {
	hostile := "Moon*Dog_`x[1]"
	escaped := `Moon\*Dog\_\` + "`" + `x\[1]`

	events := []core.Event{
		{
			Kind: core.EventNewListing,
			Key:  "KRW-MOON",
			Entity: core.Entity{Key: "KRW-MOON", Attrs: map[string]string{
				core.AttrEnglishName: hostile,
				core.AttrKoreanName:  hostile,
			}},
		},
		{
			Kind: core.EventWalletReceive,
			Key:  "0xhash",
			Entity: core.Entity{Key: "0xhash", Attrs: map[string]string{
				core.AttrTokenName:   hostile,
				core.AttrTokenSymbol: hostile,
				core.AttrAmount:      hostile,
				core.AttrFrom:        hostile,
				core.AttrWallet:      hostile,
			}},
		},
		{
			Kind:     core.EventVolumeSpike,
			Key:      "0xabc",
			Previous: 1000,
			Entity: core.Entity{Key: "0xabc", Value: 1600, Attrs: map[string]string{
				core.AttrTokenName:   hostile,
				core.AttrTokenSymbol: hostile,
			}},
		},
	}

	for _, event := range events {
		t.Run(string(event.Kind), func(t *testing.T) {
			event.Time = detected
			msg := FormatEvent(event)
			require.True(t, balancedMarkdown(msg), msg)
			require.Contains(t, msg, escaped+" ("+escaped+")")
		})
	}
}
