// Package broadcast fans built messages out to every registered destination.
//
// Delivery is best-effort: the full destinations x messages cross-product is
// attempted once per pair, a failed pair is logged and never aborts the
// others, and there is no retry or cross-destination ordering guarantee.
package broadcast

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	kit "remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

type Config struct {
	RatePerSec int
}

type Service struct {
	mu      sync.Mutex
	adapter kit.Adapter
	log     logx.Logger
	limiter *rate.Limiter
}

func New(cfg Config, adapter kit.Adapter, log logx.Logger) *Service {
	s := &Service{adapter: adapter, log: log}
	s.Apply(cfg)
	return s
}

// Apply updates the send rate at runtime.
func (s *Service) Apply(cfg Config) {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 10
	}
	s.mu.Lock()
	s.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	s.mu.Unlock()
}

// Broadcast sends every message to every destination. Returns the number of
// failed (destination, message) pairs; failures are already logged.
func (s *Service) Broadcast(ctx context.Context, messages []string, destinations []int64) int {
	s.mu.Lock()
	lim := s.limiter
	s.mu.Unlock()

	failed := 0
	for _, dest := range destinations {
		for _, text := range messages {
			if err := lim.Wait(ctx); err != nil {
				// Context gone; the remaining pairs would only fail the same way.
				s.log.Warn("broadcast aborted", logx.Err(err))
				return failed
			}
			err := s.adapter.SendText(ctx, kit.ChatTarget{ChatID: dest}, text, &kit.SendOptions{DisablePreview: true})
			if err != nil {
				failed++
				s.log.Warn("send failed", logx.Int64("chat_id", dest), logx.Err(err))
			}
		}
	}
	return failed
}
