package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"remindbot/internal/deadline"
	kit "remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

// dispatchLoop routes inbound transport updates: membership changes mutate
// the destination registry, group messages auto-register their chat, and
// slash commands run on-demand queries. Handlers run concurrently with the
// daily cycle; the registry is the only shared state between them.
func (a *App) dispatchLoop(ctx context.Context) error {
	a.log.Info("update dispatcher started")
	for {
		select {
		case <-ctx.Done():
			a.log.Info("update dispatcher stopped")
			return nil
		case up, ok := <-a.updates:
			if !ok {
				a.log.Info("update dispatcher stopped (updates channel closed)")
				return nil
			}
			a.routeUpdate(ctx, up)
		}
	}
}

func (a *App) routeUpdate(ctx context.Context, up kit.Update) {
	switch up.Kind {
	case kit.UpdateMembership:
		a.onMembership(up.Membership)
	case kit.UpdateMessage:
		a.onMessage(ctx, up.Message)
	}
}

func (a *App) onMembership(m *kit.Membership) {
	if m == nil || !m.IsGroup {
		return
	}
	if m.Joined {
		a.reg.Register(m.ChatID)
	} else {
		a.reg.Unregister(m.ChatID)
	}
}

func (a *App) onMessage(ctx context.Context, msg *kit.Message) {
	if msg == nil {
		return
	}
	// Seeing any group traffic means the bot is in that chat; make sure the
	// registry knows (it self-heals after a lost or corrupt file).
	if msg.IsGroup {
		a.reg.Register(msg.ChatID)
	}

	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}
	parts := strings.Fields(text)
	word := strings.TrimPrefix(parts[0], "/")
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	arg := strings.TrimSpace(strings.TrimPrefix(text, parts[0]))

	switch word {
	case "deadlines_ahead":
		a.cmdDeadlinesAhead(ctx, msg, arg)
	case "my_deadlines":
		a.cmdMyDeadlines(ctx, msg)
	case "my_id":
		a.reply(ctx, msg, fmt.Sprintf("Your Telegram user id is: %d", msg.FromID))
	case "my_sleep":
		a.reply(ctx, msg, "Спи, моя радость, усни")
	case "check_now":
		a.cmdCheckNow(ctx, msg)
	}
}

// /deadlines_ahead [@tag]
func (a *App) cmdDeadlinesAhead(ctx context.Context, msg *kit.Message, arg string) {
	tag := deadline.NormalizeTag(arg)
	report, err := a.rem.AheadReport(ctx, tag)
	if err != nil {
		a.log.Warn("ahead report failed", logx.Err(err))
		a.reply(ctx, msg, "Could not read the sheet right now, try again later.")
		return
	}
	a.reply(ctx, msg, report)
}

// /my_deadlines: the caller's tag comes from the users config map.
func (a *App) cmdMyDeadlines(ctx context.Context, msg *kit.Message) {
	tag := a.userTag(msg.FromID)
	if tag == "" {
		a.reply(ctx, msg, "I don't know your tag yet. Ask the admin to add your user id to the users map.")
		return
	}
	report, err := a.rem.AheadReport(ctx, tag)
	if err != nil {
		a.log.Warn("ahead report failed", logx.Err(err))
		a.reply(ctx, msg, "Could not read the sheet right now, try again later.")
		return
	}
	a.reply(ctx, msg, report)
}

// /check_now: owner-only manual trigger of the daily cycle.
func (a *App) cmdCheckNow(ctx context.Context, msg *kit.Message) {
	if !a.isOwner(msg.FromID) {
		return
	}
	if err := a.rem.RunCycle(ctx); err != nil {
		a.reply(ctx, msg, "Cycle failed: "+err.Error())
		return
	}
	a.reply(ctx, msg, "Cycle completed.")
}

func (a *App) reply(ctx context.Context, msg *kit.Message, text string) {
	err := a.adapter.SendText(ctx, kit.ChatTarget{ChatID: msg.ChatID}, text,
		&kit.SendOptions{DisablePreview: true})
	if err != nil {
		a.log.Warn("reply failed", logx.Int64("chat_id", msg.ChatID), logx.Err(err))
	}
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}
