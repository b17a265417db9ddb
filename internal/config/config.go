// Package config loads the watcher settings from the environment using Viper
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/raykavin/upbitwatch/pkg/core"
	"github.com/raykavin/upbitwatch/pkg/detector"
	"github.com/raykavin/upbitwatch/pkg/history"
	"github.com/raykavin/upbitwatch/pkg/keepalive"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/xhit/go-str2duration/v2"
)

// Constants for configuration
const (
	DefaultEnvFile         = ".env"
	DefaultLogsDir         = "logs"
	DefaultLogLevel        = "info"
	DefaultListingInterval = 30 * time.Second
	DefaultWalletInterval  = 30 * time.Second
	DefaultVolumeInterval  = 60 * time.Second
	DefaultLogTailLines    = 200
)

var ErrMissingCredential = errors.New("missing credential")

// AppConfig holds the application configuration
type AppConfig struct {
	Settings core.Settings
	LogLevel string
}

// LoadEnvFiles merges the given dotenv files into the process environment.
// Missing files are skipped and variables already set are kept.
func LoadEnvFiles(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// Load reads the configuration from the environment. A missing BOT_TOKEN or
// CHAT_ID is reported as ErrMissingCredential.
func Load() (*AppConfig, error) {
	v := viper.New()
	v.AutomaticEnv()

	// Set default values
	v.SetDefault("PORT", keepalive.DefaultPort)
	v.SetDefault("LOGS_DIR", DefaultLogsDir)
	v.SetDefault("LOG_LEVEL", DefaultLogLevel)
	v.SetDefault("LISTING_INTERVAL", DefaultListingInterval.String())
	v.SetDefault("WALLET_INTERVAL", DefaultWalletInterval.String())
	v.SetDefault("VOLUME_INTERVAL", DefaultVolumeInterval.String())
	v.SetDefault("VOLUME_SPIKE_RATIO", detector.DefaultSpikeRatio)
	v.SetDefault("VOLUME_FLOOR", detector.DefaultSpikeFloor)
	v.SetDefault("LOG_TAIL_LINES", DefaultLogTailLines)
	v.SetDefault("HISTORY_SIZE", history.DefaultCapacity)

	token := strings.TrimSpace(v.GetString("BOT_TOKEN"))
	chatID := strings.TrimSpace(v.GetString("CHAT_ID"))
	if token == "" || chatID == "" {
		return nil, fmt.Errorf("%w: BOT_TOKEN and CHAT_ID must be set", ErrMissingCredential)
	}

	intervals := make(map[string]time.Duration, 3)
	for _, key := range []string{"LISTING_INTERVAL", "WALLET_INTERVAL", "VOLUME_INTERVAL"} {
		d, err := ParseInterval(v.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		intervals[key] = d
	}

	ratio, err := parsePositive(v.GetString("VOLUME_SPIKE_RATIO"))
	if err != nil {
		return nil, fmt.Errorf("invalid VOLUME_SPIKE_RATIO: %w", err)
	}
	floor, err := strconv.ParseFloat(strings.TrimSpace(v.GetString("VOLUME_FLOOR")), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid VOLUME_FLOOR: %w", err)
	}

	wallets := SplitList(v.GetString("UPBIT_WALLETS"))
	if len(wallets) == 0 {
		wallets = SplitList(v.GetString("UPBIT_WALLET"))
	}

	config := &AppConfig{
		Settings: core.Settings{
			Telegram: core.TelegramSettings{
				Token:  token,
				ChatID: chatID,
			},
			Etherscan: core.EtherscanSettings{
				APIKey:   strings.TrimSpace(v.GetString("ETHERSCAN_API")),
				Wallets:  lo.Uniq(wallets),
				Interval: intervals["WALLET_INTERVAL"],
			},
			Volume: core.VolumeSettings{
				Tokens:   SplitList(v.GetString("WATCH_TOKENS")),
				Interval: intervals["VOLUME_INTERVAL"],
				Ratio:    ratio,
				Floor:    floor,
			},
			ListingInterval: intervals["LISTING_INTERVAL"],
			Port:            v.GetInt("PORT"),
			LogsDir:         v.GetString("LOGS_DIR"),
			LogTailLines:    v.GetInt("LOG_TAIL_LINES"),
			HistorySize:     v.GetInt("HISTORY_SIZE"),
		},
		LogLevel: strings.ToLower(v.GetString("LOG_LEVEL")),
	}

	return config, nil
}

// ParseInterval accepts str2duration syntax ("30s", "1m", "1d12h") or a
// bare number of seconds. Zero disables the timer.
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if seconds, err := strconv.Atoi(s); err == nil {
		if seconds < 0 {
			return 0, fmt.Errorf("negative interval %q", s)
		}
		return time.Duration(seconds) * time.Second, nil
	}

	d, err := str2duration.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative interval %q", s)
	}
	return d, nil
}

// SplitList splits a comma separated value, dropping blanks.
func SplitList(s string) []string {
	return lo.Compact(lo.Map(strings.Split(s, ","), func(item string, _ int) string {
		return strings.TrimSpace(item)
	}))
}

func parsePositive(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, fmt.Errorf("must be positive, got %v", f)
	}
	return f, nil
}
