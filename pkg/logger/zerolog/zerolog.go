// Package zerolog provides the console logger used by upbitwatch.
package zerolog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/goterm/term"
	"github.com/rs/zerolog"
)

const (
	DefaultTimeLayout = "2006-01-02 15:04:05"
	messageWidth      = 72
)

// Options controls the console output.
type Options struct {
	Level      string
	TimeLayout string
	Colored    bool
	JSON       bool
	Out        io.Writer
}

// New builds a console logger. JSON output skips the custom field formatters.
func New(opts Options) (*Adapter, error) {
	if opts.Level == "" {
		opts.Level = "info"
	}
	if opts.TimeLayout == "" {
		opts.TimeLayout = DefaultTimeLayout
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = opts.Out
	if !opts.JSON {
		layout := opts.TimeLayout
		out = zerolog.ConsoleWriter{
			Out:           opts.Out,
			NoColor:       !opts.Colored,
			TimeFormat:    layout,
			FormatLevel:   formatLevel,
			FormatMessage: formatMessage,
			FormatCaller:  formatCaller,
			FormatTimestamp: func(i any) string {
				return formatTimestamp(i, layout)
			},
		}
	}

	l := zerolog.New(out).With().Timestamp().CallerWithSkipFrameCount(3).Logger()
	return &Adapter{&l}, nil
}

func formatLevel(i any) string {
	switch i {
	case zerolog.LevelTraceValue:
		return term.Cyanf("[TRC]")
	case zerolog.LevelDebugValue:
		return term.Cyanf("[DBG]")
	case zerolog.LevelInfoValue:
		return term.Greenf("[INF]")
	case zerolog.LevelWarnValue:
		return term.Yellowf("[WAR]")
	case zerolog.LevelErrorValue:
		return term.Redf("[ERR]")
	case zerolog.LevelFatalValue:
		return term.Redf("[FTL]")
	case zerolog.LevelPanicValue:
		return term.Redf("[PAN]")
	default:
		return term.Whitef("[UNK]")
	}
}

func formatMessage(i any) string {
	msg, ok := i.(string)
	if !ok || msg == "" {
		return ">"
	}
	if len(msg) < messageWidth {
		msg += strings.Repeat(" ", messageWidth-len(msg))
	}
	return term.Whitef("> %s", msg)
}

func formatCaller(i any) string {
	fname, ok := i.(string)
	if !ok || fname == "" {
		return ""
	}

	file, line, found := strings.Cut(filepath.Base(fname), ":")
	if !found {
		return term.Yellowf("[%s]", file)
	}
	return term.Yellowf("[%-18.18s:%4s]", file, line)
}

func formatTimestamp(i any, layout string) string {
	raw, ok := i.(string)
	if !ok {
		return term.Cyanf("[%v]", i)
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		raw = ts.Local().Format(layout)
	}
	return term.Cyanf("[%s]", raw)
}
