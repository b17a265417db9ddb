package upbitwatch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/raykavin/upbitwatch/pkg/core"
	"github.com/raykavin/upbitwatch/pkg/journal"
	"github.com/raykavin/upbitwatch/pkg/logger/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testWallet = "0x74de5d4fcbf63e00296fd95d33236b9794016631"
	testToken  = "0x6982508145454ce325ddbe47a25d4ec3d2311933"
)

type upstream struct {
	mu      sync.Mutex
	markets []string
	txHash  string
	volume  float64
}

func (u *upstream) set(fn func(u *upstream)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fn(u)
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/v1/market/all":
		items := make([]string, 0, len(u.markets))
		for _, m := range u.markets {
			items = append(items, fmt.Sprintf(`{"market":%q,"korean_name":"코인","english_name":"Coin %s"}`, m, m))
		}
		fmt.Fprintf(w, "[%s]", strings.Join(items, ","))
	case r.URL.Path == "/v2/api":
		fmt.Fprintf(w, `{"status":"1","message":"OK","result":[{"hash":%q,"from":"0x1111111111111111111111111111111111111111",
			"to":%q,"contractAddress":"0xdac17f958d2ee523a2206206994597c13d831ec7","tokenName":"Tether USD",
			"tokenSymbol":"USDT","tokenDecimal":"6","value":"2500000000","timeStamp":"1700000000"}]}`, u.txHash, testWallet)
	case strings.HasPrefix(r.URL.Path, "/dex/"):
		fmt.Fprintf(w, `{"pairs":[{"baseToken":{"address":%q,"name":"Pepe","symbol":"PEPE"},"volume":{"h24":%f}}]}`,
			testToken, u.volume)
	default:
		http.NotFound(w, r)
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []core.Event
	texts  []string
}

func (n *recordingNotifier) Notify(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
}

func (n *recordingNotifier) OnEvent(event core.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []core.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]core.Event(nil), n.events...)
}

func testSettings(t *testing.T) core.Settings {
	return core.Settings{
		Telegram: core.TelegramSettings{Token: "123:abc", ChatID: "42"},
		Etherscan: core.EtherscanSettings{
			APIKey:   "key",
			Wallets:  []string{testWallet},
			Interval: 0,
		},
		Volume: core.VolumeSettings{
			Tokens: []string{testToken, "not-an-address"},
			Ratio:  1.5,
			Floor:  1000,
		},
		LogsDir:      t.TempDir(),
		LogTailLines: 200,
		HistorySize:  200,
	}
}

func newTestWatcher(t *testing.T, settings core.Settings, up *upstream) (*Watcher, *recordingNotifier) {
	server := httptest.NewServer(up)
	t.Cleanup(server.Close)

	notifier := &recordingNotifier{}
	w, err := NewWatcher(settings, zerolog.NewNop(),
		WithNotifier(notifier),
		WithHTTPClient(server.Client()),
		WithUpbitURL(server.URL+"/v1/market/all"),
		WithEtherscanURL(server.URL+"/v2/api"),
		WithDexScreenerURL(server.URL+"/dex/"),
		WithoutKeepAlive(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w, notifier
}

func exec(w *Watcher, text string) []string {
	var replies []string
	w.Exec(context.Background(), text, func(reply string) {
		replies = append(replies, reply)
	})
	return replies
}

func TestWatcher_CheckNowPrimesThenDetects(t *testing.T) {
	up := &upstream{markets: []string{"KRW-BTC", "KRW-ETH"}, txHash: "0xaaa", volume: 1000}
	settings := testSettings(t)
	w, notifier := newTestWatcher(t, settings, up)

	require.Equal(t, []string{testToken}, w.WatchList().Items())

	replies := exec(w, "/checknow")
	require.Len(t, replies, 4)
	require.Contains(t, replies[1], "listings: 0 new")
	require.Contains(t, replies[1], "wallet 0x74de5d4f...: 0 new")
	require.Contains(t, replies[1], "volume: 0 new")
	require.Contains(t, replies[2], "Tether USD")
	require.Empty(t, notifier.Events())

	up.set(func(u *upstream) {
		u.markets = append(u.markets, "KRW-NEW")
		u.txHash = "0xbbb"
		u.volume = 1600
	})

	replies = exec(w, "/checknow")
	require.Contains(t, replies[1], "listings: 1 new")
	require.Contains(t, replies[1], "volume: 1 new")

	events := notifier.Events()
	require.Len(t, events, 3)
	require.Equal(t, core.EventNewListing, events[0].Kind)
	require.Equal(t, "KRW-NEW", events[0].Key)
	require.Equal(t, core.EventWalletReceive, events[1].Kind)
	require.Equal(t, "0xbbb", events[1].Key)
	require.Equal(t, "2500", events[1].Entity.Attr(core.AttrAmount, ""))
	require.Equal(t, core.EventVolumeSpike, events[2].Kind)
	require.Equal(t, 1000.0, events[2].Previous)

	alerts := exec(w, "/alerts")
	require.Contains(t, alerts[0], "Recent alerts (3)")
	require.Contains(t, alerts[0], "KRW-NEW")

	content, err := os.ReadFile(journalPath(settings))
	require.NoError(t, err)
	require.Contains(t, string(content), "listings primed: 2 entries")
	require.Contains(t, string(content), "NEW LISTING: KRW-NEW (Coin KRW-NEW)")
}

func TestWatcher_WalletDisabled(t *testing.T) {
	up := &upstream{markets: []string{"KRW-BTC"}}
	settings := testSettings(t)
	settings.Etherscan.APIKey = ""
	w, _ := newTestWatcher(t, settings, up)

	replies := exec(w, "/scanwallet")
	require.Contains(t, replies[len(replies)-1], "is not set")
	require.NotContains(t, w.Engine().Resources(), "wallet:"+testWallet)
}

func TestWatcher_RunDetectsOnSchedule(t *testing.T) {
	up := &upstream{markets: []string{"KRW-BTC"}, txHash: "0xaaa", volume: 1000}
	settings := testSettings(t)
	settings.ListingInterval = 10 * time.Millisecond
	w, notifier := newTestWatcher(t, settings, up)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		d, ok := w.Engine().Detector("upbit:markets")
		return ok && d.Primed()
	}, 2*time.Second, 5*time.Millisecond)

	up.set(func(u *upstream) {
		u.markets = append(u.markets, "KRW-XYZ")
	})

	require.Eventually(t, func() bool {
		return len(notifier.Events()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, "KRW-XYZ", notifier.Events()[0].Key)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func journalPath(settings core.Settings) string {
	j, _ := journal.New(settings.LogsDir)
	return j.Path(j.Today())
}
