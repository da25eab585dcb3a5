// Package app wires the bot together: config, logging, transport, record
// source, destination registry and the reminder services.
package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"remindbot/internal/config"
	"remindbot/internal/deadline"
	"remindbot/internal/registry"
	"remindbot/internal/runtime/supervisor"
	"remindbot/internal/services/broadcast"
	"remindbot/internal/services/reminder"
	"remindbot/internal/sheet"
	kit "remindbot/internal/transport"
	telegram "remindbot/internal/transport/telegram"
	logx "remindbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	adapter kit.Adapter
	src     sheet.Source
	reg     *registry.Registry
	bc      *broadcast.Service
	rem     *reminder.Service

	// bound at startup; a config change here needs a restart
	sheetCfg config.SheetConfig
	regPath  string

	ownerMu sync.RWMutex
	owners  []int64
	users   map[int64]string

	updates chan kit.Update
}

func New(ctx context.Context, cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	pollTimeout, err := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, logSvc.Logger().With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	// Record source: schema is validated here, once, so a sheet missing the
	// required columns fails startup instead of degrading every field.
	src, err := sheet.Open(ctx, sheet.Config{
		Driver: cfg.Sheet.Driver,
		Path:   cfg.Sheet.Path,
		Table:  cfg.Sheet.Table,
	}, deadline.Fields(), logSvc.Logger().With(logx.String("comp", "sheet")))
	if err != nil {
		return nil, err
	}

	reg := registry.Load(cfg.Registry.Path, logSvc.Logger().With(logx.String("comp", "registry")))

	bc := broadcast.New(broadcast.Config{RatePerSec: cfg.Broadcast.RatePerSec},
		ad, logSvc.Logger().With(logx.String("comp", "broadcast")))

	rem := reminder.New(reminder.Config{
		Enabled:  cfg.Schedule.Enabled,
		Timezone: cfg.Schedule.Timezone,
		DailyAt:  cfg.Schedule.DailyAt,
		CatchUp:  cfg.Schedule.CatchUp,
		Table:    cfg.Sheet.Table,
	}, src, reg, bc, logSvc.Logger().With(logx.String("comp", "reminder")))

	a := &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		adapter: ad,
		src:     src,
		reg:     reg,
		bc:      bc,
		rem:     rem,
		updates: make(chan kit.Update, 256),

		sheetCfg: cfg.Sheet,
		regPath:  cfg.Registry.Path,
	}
	a.setOwners(cfg.Telegram.OwnerUserIDs)
	a.setUsers(cfg.Users)
	return a, nil
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}
	if a.rem.Enabled() {
		a.rem.Start(a.sup.Context())
	}

	a.sup.Go("updates.dispatch", func(c context.Context) error {
		return a.dispatchLoop(c)
	})

	// hot reload fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(c, newCfg)
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

func (a *App) applyConfig(ctx context.Context, cfg *config.Config) {
	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	a.setOwners(cfg.Telegram.OwnerUserIDs)
	a.setUsers(cfg.Users)
	a.bc.Apply(broadcast.Config{RatePerSec: cfg.Broadcast.RatePerSec})

	prevEnabled := a.rem.Enabled()
	a.rem.Apply(reminder.Config{
		Enabled:  cfg.Schedule.Enabled,
		Timezone: cfg.Schedule.Timezone,
		DailyAt:  cfg.Schedule.DailyAt,
		CatchUp:  cfg.Schedule.CatchUp,
		Table:    cfg.Sheet.Table,
	})
	switch {
	case prevEnabled && !cfg.Schedule.Enabled:
		a.log.Info("schedule disabled via config")
		stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		a.rem.Stop(stopCtx)
		cancel()
	case !prevEnabled && cfg.Schedule.Enabled:
		a.log.Info("schedule enabled via config")
		a.rem.Start(ctx)
	}

	if cfg.Sheet != a.sheetCfg || cfg.Registry.Path != a.regPath {
		a.log.Warn("sheet/registry config changed; restart required for changes to take effect")
	}
	a.log.Info("config applied")
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	// Cancel the run context first so background loops start unwinding.
	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- fn(stepCtx) }()
		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name))
		}
	}

	step("reminder", 2*time.Second, func(c context.Context) error { a.rem.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("sheet", time.Second, func(c context.Context) error { return a.src.Close() })
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	_ = a.logs.Close()
	return nil
}

func (a *App) setOwners(ids []int64) {
	a.ownerMu.Lock()
	a.owners = append([]int64(nil), ids...)
	a.ownerMu.Unlock()
}

func (a *App) isOwner(id int64) bool {
	a.ownerMu.RLock()
	defer a.ownerMu.RUnlock()
	for _, o := range a.owners {
		if o == id {
			return true
		}
	}
	return false
}

func (a *App) setUsers(m map[string]string) {
	users := make(map[int64]string, len(m))
	for k, tag := range m {
		id, err := parseInt64(k)
		if err != nil {
			a.log.Warn("users: bad user id key", logx.String("key", k))
			continue
		}
		users[id] = strings.TrimSpace(tag)
	}
	a.ownerMu.Lock()
	a.users = users
	a.ownerMu.Unlock()
}

func (a *App) userTag(id int64) string {
	a.ownerMu.RLock()
	defer a.ownerMu.RUnlock()
	return a.users[id]
}
