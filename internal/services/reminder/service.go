// Package reminder drives the daily evaluation-and-broadcast cycle and
// serves on-demand deadline reports.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"remindbot/internal/registry"
	"remindbot/internal/services/broadcast"
	"remindbot/internal/sheet"
	logx "remindbot/pkg/logx"
)

type Config struct {
	Enabled  bool
	Timezone string // IANA TZ, e.g. "Europe/Moscow"
	DailyAt  string // "HH:MM" in Timezone
	CatchUp  bool
	Table    string
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config

	src sheet.Source
	reg *registry.Registry
	bc  *broadcast.Service

	parser cron.Parser
	c      *cron.Cron
	loc    *time.Location
	runCtx context.Context
}

func New(cfg Config, src sheet.Source, reg *registry.Registry, bc *broadcast.Service, log logx.Logger) *Service {
	return &Service{
		cfg:    cfg,
		src:    src,
		reg:    reg,
		bc:     bc,
		log:    log,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

// Apply swaps the schedule config at runtime. A changed timezone or run
// time restarts the underlying cron; a changed catch-up flag takes effect
// on the next cycle. A schedule that went disabled is stopped, never
// restarted.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	prev := s.cfg
	s.cfg = cfg
	restart := s.c != nil && (prev.Timezone != cfg.Timezone || prev.DailyAt != cfg.DailyAt)
	var c *cron.Cron
	if restart {
		c, s.c = s.c, nil
	}
	s.mu.Unlock()
	if !restart {
		return
	}

	// Drain outside the mutex: a fired cycle takes s.mu on its way in, so
	// waiting while holding it deadlocks.
	<-c.Stop().Done()

	s.mu.Lock()
	s.startLocked()
	s.mu.Unlock()
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	s.runCtx = ctx
	s.startLocked()
}

// Stop halts the schedule and waits, bounded by ctx, for an in-flight
// cycle to drain. The wait happens with s.mu released; see Apply.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}

	select {
	case <-c.Stop().Done():
		s.log.Info("reminder scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("reminder stop deadline reached; cycle still draining", logx.Err(ctx.Err()))
	}
}

func (s *Service) startLocked() {
	if !s.cfg.Enabled {
		return
	}
	loc := s.loadLocationLocked()
	s.loc = loc

	spec, err := dailySpec(s.cfg.DailyAt)
	if err != nil {
		s.log.Error("invalid daily run time; scheduler not started",
			logx.String("daily_at", s.cfg.DailyAt), logx.Err(err))
		return
	}

	c := cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, func() { s.cycleSafe() }); err != nil {
		s.log.Error("schedule registration failed", logx.String("spec", spec), logx.Err(err))
		return
	}
	c.Start()
	s.c = c

	if next, err := s.nextRunLocked(time.Now()); err == nil {
		s.log.Info("reminder scheduler started",
			logx.String("tz", loc.String()),
			logx.String("daily_at", s.cfg.DailyAt),
			logx.Time("next_run", next))
	}
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone, falling back to UTC", logx.String("tz", tz), logx.Err(err))
		return time.UTC
	}
	return loc
}

// NextRun computes the next wake instant after now: today at the target
// time when now is still before it, otherwise tomorrow's.
func (s *Service) NextRun(now time.Time) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRunLocked(now)
}

func (s *Service) nextRunLocked(now time.Time) (time.Time, error) {
	if s.loc == nil {
		s.loc = s.loadLocationLocked()
	}
	spec, err := dailySpec(s.cfg.DailyAt)
	if err != nil {
		return time.Time{}, err
	}
	sched, err := s.parser.Parse(spec)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(now.In(s.loc)), nil
}

// cycleSafe is the catch-log-continue boundary around one cycle: neither an
// error nor a panic may terminate the schedule.
func (s *Service) cycleSafe() {
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("cycle panicked", logx.Any("panic", r))
		}
	}()

	start := time.Now()
	if err := s.RunCycle(ctx); err != nil {
		s.log.Error("cycle failed", logx.Err(err))
		return
	}
	s.log.Info("cycle done", logx.Duration("took", time.Since(start)))
}

func dailySpec(at string) (string, error) {
	h, m, err := parseHHMM(at)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d * * *", m, h), nil
}

func parseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}

var errNoSource = errors.New("record source not configured")
