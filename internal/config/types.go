package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Schedule  ScheduleConfig  `json:"schedule"`
	Sheet     SheetConfig     `json:"sheet"`
	Registry  RegistryConfig  `json:"registry"`
	Broadcast BroadcastConfig `json:"broadcast,omitempty"`

	// Users maps a Telegram user id (as a string key, JSON object keys are
	// strings) to the assignee tag used by /my_deadlines, e.g. "139": "@vokat".
	Users map[string]string `json:"users,omitempty"`
}

type TelegramConfig struct {
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids,omitempty"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// ScheduleConfig controls the daily reminder cycle.
type ScheduleConfig struct {
	Enabled bool `json:"enabled"`
	// Timezone is an IANA zone name, e.g. "Europe/Moscow". Empty means UTC.
	Timezone string `json:"timezone,omitempty"`
	// DailyAt is the local wall-clock run time, "HH:MM".
	DailyAt string `json:"daily_at"`
	// CatchUp makes already-passed deadlines still fire (deadline <= today
	// instead of == today), so a day the process was down is not lost.
	CatchUp bool `json:"catch_up,omitempty"`
}

// SheetConfig points at the tabular record source.
type SheetConfig struct {
	// Driver is "csv" or "sqlite".
	Driver string `json:"driver"`
	// Path is a local file path or an http(s) URL (csv), or a db path (sqlite).
	Path string `json:"path"`
	// Table is the worksheet/table name.
	Table string `json:"table"`
}

type RegistryConfig struct {
	// Path of the JSON file holding registered chat ids.
	Path string `json:"path"`
}

type BroadcastConfig struct {
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

// Validate checks cross-field constraints that the strict decoder cannot.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}
	if tz := strings.TrimSpace(c.Schedule.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("schedule.timezone: invalid %q: %w", tz, err)
		}
	}
	if c.Schedule.Enabled && strings.TrimSpace(c.Schedule.DailyAt) == "" {
		return fmt.Errorf("schedule.daily_at is required when schedule.enabled is true")
	}
	switch d := strings.ToLower(strings.TrimSpace(c.Sheet.Driver)); d {
	case "csv", "sqlite", "sqlite3":
	case "":
		return fmt.Errorf("sheet.driver is required")
	default:
		return fmt.Errorf("unknown sheet.driver %q", d)
	}
	if strings.TrimSpace(c.Sheet.Path) == "" {
		return fmt.Errorf("sheet.path is required")
	}
	if strings.TrimSpace(c.Registry.Path) == "" {
		return fmt.Errorf("registry.path is required")
	}
	if c.Broadcast.RatePerSec < 0 {
		return fmt.Errorf("broadcast.rate_per_sec must be >= 0")
	}
	return nil
}

// ParseDurationField parses an optional Go duration string.
// Empty input yields zero without error.
func ParseDurationField(key, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", key)
	}
	return d, nil
}
