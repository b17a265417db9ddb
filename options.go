package upbitwatch

import (
	"net/http"

	"github.com/raykavin/upbitwatch/pkg/core"
)

// Option is a functional option for configuring a Watcher instance
type Option func(*Watcher)

// WithNotifier replaces the Telegram bot as event sink, e.g. to print
// notifications on a terminal.
func WithNotifier(notifier core.Notifier) Option {
	return func(w *Watcher) {
		w.notifier = notifier
	}
}

// WithHTTPClient sets the client used for every upstream request
func WithHTTPClient(client *http.Client) Option {
	return func(w *Watcher) {
		w.httpClient = client
	}
}

// WithUpbitURL points the listing detector at another market list endpoint
func WithUpbitURL(url string) Option {
	return func(w *Watcher) {
		w.upbitURL = url
	}
}

// WithEtherscanURL points the wallet tracker at another API root
func WithEtherscanURL(url string) Option {
	return func(w *Watcher) {
		w.etherscanURL = url
	}
}

// WithDexScreenerURL points the volume watcher at another tokens endpoint
func WithDexScreenerURL(url string) Option {
	return func(w *Watcher) {
		w.dexscreenerURL = url
	}
}

// WithoutKeepAlive disables the liveness HTTP server
func WithoutKeepAlive() Option {
	return func(w *Watcher) {
		w.keepAlive = false
	}
}
