package main

import (
	"fmt"
	"log/slog"
	"time"
)

// Progress reports phase progress through slog with the time elapsed since
// the run started. It satisfies xref.Logger.
type Progress struct {
	start time.Time
	log   *slog.Logger
}

// NewProgress creates a progress reporter writing to log.
func NewProgress(log *slog.Logger) *Progress {
	return &Progress{start: time.Now(), log: log}
}

func (p *Progress) elapsed() string {
	d := time.Since(p.start)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// Log reports a phase message at info level.
func (p *Progress) Log(format string, args ...any) {
	p.log.Info(fmt.Sprintf(format, args...), "elapsed", p.elapsed())
}

// Verbose reports a detail message at debug level.
func (p *Progress) Verbose(format string, args ...any) {
	p.log.Debug(fmt.Sprintf(format, args...), "elapsed", p.elapsed())
}
