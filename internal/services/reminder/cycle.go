package reminder

import (
	"context"
	"fmt"

	"remindbot/internal/deadline"
	logx "remindbot/pkg/logx"
)

// RunCycle performs one evaluation-and-broadcast pass: read fresh records,
// keep the ones firing on today's reference date, build one message per
// firing record and fan them out to every registered destination.
func (s *Service) RunCycle(ctx context.Context) error {
	s.mu.Lock()
	catchUp := s.cfg.CatchUp
	table := s.cfg.Table
	if s.loc == nil {
		s.loc = s.loadLocationLocked()
	}
	loc := s.loc
	s.mu.Unlock()
	if s.src == nil {
		return errNoSource
	}

	ref := deadline.Today(loc)
	rows, err := s.src.ReadAll(ctx, table)
	if err != nil {
		return fmt.Errorf("read records: %w", err)
	}

	var messages []string
	for _, rec := range deadline.ParseRecords(rows) {
		if rec.Tag == "" {
			continue
		}
		if !deadline.FiresToday(rec, ref, catchUp) {
			continue
		}
		if msg := deadline.BuildFireMessage(rec, ref); msg != "" {
			messages = append(messages, msg)
		}
	}
	if len(messages) == 0 {
		s.log.Debug("no records firing", logx.Time("ref", ref))
		return nil
	}

	dests := s.reg.Snapshot()
	failed := s.bc.Broadcast(ctx, messages, dests)
	s.log.Info("reminders broadcast",
		logx.Int("messages", len(messages)),
		logx.Int("destinations", len(dests)),
		logx.Int("failed_sends", failed))
	return nil
}

// AheadReport builds the on-demand "deadlines still ahead" report for a
// single caller, optionally filtered to one assignee tag. It reads the
// source fresh, with no consistency guarantee against a concurrent cycle.
func (s *Service) AheadReport(ctx context.Context, tagFilter string) (string, error) {
	s.mu.Lock()
	table := s.cfg.Table
	if s.loc == nil {
		s.loc = s.loadLocationLocked()
	}
	loc := s.loc
	s.mu.Unlock()
	if s.src == nil {
		return "", errNoSource
	}

	rows, err := s.src.ReadAll(ctx, table)
	if err != nil {
		return "", fmt.Errorf("read records: %w", err)
	}
	ref := deadline.Today(loc)
	return deadline.BuildAheadReport(deadline.ParseRecords(rows), ref, tagFilter), nil
}
