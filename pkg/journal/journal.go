// Package journal writes the append-only daily log files read back by /logs.
package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/raykavin/upbitwatch/pkg/core"
	"github.com/sirupsen/logrus"
)

const dayLayout = "2006-01-02"

var ErrNoLog = errors.New("no log for today")

// Journal appends one line per record to <dir>/<YYYY-MM-DD>.txt (UTC day).
type Journal struct {
	dir   string
	clock func() time.Time
	log   *logrus.Logger
}

type Option func(*Journal)

// WithClock overrides the time source for line timestamps and file names.
func WithClock(clock func() time.Time) Option {
	return func(j *Journal) {
		j.clock = clock
	}
}

// New creates dir when needed and returns a journal writing into it.
func New(dir string, options ...Option) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create logs dir: %w", err)
	}

	j := &Journal{dir: dir, clock: time.Now}
	for _, option := range options {
		option(j)
	}

	j.log = logrus.New()
	j.log.SetOutput(&dailyWriter{journal: j})
	j.log.SetFormatter(lineFormatter{})
	j.log.SetLevel(logrus.InfoLevel)

	return j, nil
}

// Day is the UTC date of t as used in file names.
func Day(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// Path returns the file holding the records of day.
func (j *Journal) Path(day string) string {
	return filepath.Join(j.dir, day+".txt")
}

// Today returns today's date string.
func (j *Journal) Today() string {
	return Day(j.clock())
}

// Record appends text with the current timestamp.
func (j *Journal) Record(text string) {
	j.log.WithTime(j.clock()).Info(strings.ReplaceAll(text, "\n", " "))
}

// OnEvent implements core.EventSubscriber.
func (j *Journal) OnEvent(event core.Event) {
	j.Record(event.Summary())
}

// Tail returns the last n lines of today's file. A missing file is ErrNoLog,
// an empty one yields no lines.
func (j *Journal) Tail(n int) ([]string, error) {
	content, err := os.ReadFile(j.Path(j.Today()))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoLog
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}

	data := strings.TrimSpace(string(content))
	if data == "" {
		return nil, nil
	}

	lines := strings.Split(data, "\n")
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

type lineFormatter struct{}

func (lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return []byte(fmt.Sprintf("[%s] %s\n", entry.Time.UTC().Format(time.RFC3339), entry.Message)), nil
}

// dailyWriter opens today's file for every write, so a new file starts at
// UTC midnight without any rotation step.
type dailyWriter struct {
	journal *Journal
}

func (w *dailyWriter) Write(p []byte) (int, error) {
	f, err := os.OpenFile(w.journal.Path(w.journal.Today()), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return f.Write(p)
}
