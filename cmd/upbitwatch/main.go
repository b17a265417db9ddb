package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/raykavin/upbitwatch"
	"github.com/raykavin/upbitwatch/internal/config"
	"github.com/raykavin/upbitwatch/pkg/core"
	"github.com/raykavin/upbitwatch/pkg/logger"
	"github.com/raykavin/upbitwatch/pkg/logger/zerolog"
	"github.com/raykavin/upbitwatch/pkg/notification"
	"github.com/spf13/cobra"
)

// Command line flags
var (
	envFile  string
	logLevel string
	jsonLog  bool
)

func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:           "upbitwatch",
		Short:         "Upbit listing, wallet and volume watcher for Telegram",
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env", config.DefaultEnvFile, "Dotenv file to load")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level, overrides LOG_LEVEL")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json", false, "Log as JSON")

	// Add commands
	rootCmd.AddCommand(buildRunCmd(), buildExecCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Execute
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot, the pollers and the keep-alive server",
		Args:  cobra.NoArgs,
		RunE:  runWatcher,
	}
}

func buildExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "exec <command>",
		Short:   "Run one bot command and print the replies",
		Example: `  upbitwatch exec /scanwallet
  upbitwatch exec "/watch 0x6982508145454ce325ddbe47a25d4ec3d2311933"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runExec,
	}
}

// setup loads the configuration and builds the console logger. Missing
// credentials stop the process right away.
func setup() (*config.AppConfig, logger.Logger, error) {
	if err := config.LoadEnvFiles(envFile); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load()
	if err != nil && !errors.Is(err, config.ErrMissingCredential) {
		return nil, nil, err
	}

	level := logLevel
	if level == "" && cfg != nil {
		level = cfg.LogLevel
	}
	log, logErr := zerolog.New(zerolog.Options{Level: level, Colored: !jsonLog, JSON: jsonLog})
	if logErr != nil {
		return nil, nil, logErr
	}

	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	return cfg, log, nil
}

func runWatcher(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	watcher, err := upbitwatch.NewWatcher(cfg.Settings, log)
	if err != nil {
		return err
	}
	defer watcher.Close()

	return watcher.Run(cmd.Context())
}

func runExec(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	watcher, err := upbitwatch.NewWatcher(cfg.Settings, log,
		upbitwatch.WithNotifier(consoleNotifier{}),
		upbitwatch.WithoutKeepAlive(),
	)
	if err != nil {
		return err
	}
	defer watcher.Close()

	text := strings.Join(args, " ")
	if !strings.HasPrefix(text, "/") {
		text = "/" + text
	}
	watcher.Exec(cmd.Context(), text, func(reply string) {
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		fmt.Fprintln(cmd.OutOrStdout())
	})
	return nil
}

// consoleNotifier prints notifications instead of sending them.
type consoleNotifier struct{}

func (consoleNotifier) Notify(text string) {
	fmt.Println(text)
}

func (n consoleNotifier) OnEvent(event core.Event) {
	n.Notify(notification.FormatEvent(event))
}
