package core

import "time"

// Settings represents the runtime configuration of the watcher.
type Settings struct {
	Telegram  TelegramSettings
	Etherscan EtherscanSettings
	Volume    VolumeSettings

	ListingInterval time.Duration // Upbit market poll period
	Port            int           // keep-alive HTTP port, 0 disables it
	LogsDir         string        // directory of the daily journal files
	LogTailLines    int           // lines returned by /logs
	HistorySize     int           // capacity of the /alerts ring buffer
}

// TelegramSettings holds the bot credential and the single destination chat.
type TelegramSettings struct {
	Token  string
	ChatID string
}

// EtherscanSettings configures the wallet tracker.
type EtherscanSettings struct {
	APIKey   string
	Wallets  []string
	Interval time.Duration // 0 keeps wallet scans manual
}

// Enabled reports whether wallet tracking has everything it needs.
func (e EtherscanSettings) Enabled() bool {
	return e.APIKey != "" && len(e.Wallets) > 0
}

// VolumeSettings configures the watch-list volume surveillance.
type VolumeSettings struct {
	Tokens   []string
	Interval time.Duration
	Ratio    float64
	Floor    float64
}
