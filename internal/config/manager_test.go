package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validJSON = `{
  "telegram": {"token": "123:abc"},
  "logging": {"level": "info", "console": true, "file": {"enabled": false, "path": ""}},
  "schedule": {"enabled": true, "timezone": "UTC", "daily_at": "08:00", "catch_up": true},
  "sheet": {"driver": "csv", "path": "records.csv", "table": "records"},
  "registry": {"path": "groups.json"},
  "users": {"139": "@vokat"}
}`

func writeConfig(t *testing.T, name, content string) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return NewManager(path)
}

func TestLoadValidConfig(t *testing.T) {
	t.Parallel()
	m := writeConfig(t, "config.json", validJSON)

	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Schedule.DailyAt != "08:00" || !cfg.Schedule.CatchUp {
		t.Fatalf("schedule = %+v", cfg.Schedule)
	}
	if cfg.Users["139"] != "@vokat" {
		t.Fatalf("users = %v", cfg.Users)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get must return the committed config")
	}
}

func TestLoadYAMLConfig(t *testing.T) {
	t.Parallel()
	m := writeConfig(t, "config.yaml", `
telegram:
  token: "123:abc"
logging:
  level: debug
  console: true
schedule:
  enabled: false
  daily_at: ""
sheet:
  driver: sqlite
  path: records.db
  table: records
registry:
  path: groups.json
`)

	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sheet.Driver != "sqlite" || cfg.Logging.Level != "debug" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	bad := strings.Replace(validJSON, `"users"`, `"usrs"`, 1)
	m := writeConfig(t, "config.json", bad)

	if _, err := m.Parse(); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	m := writeConfig(t, "config.json", validJSON+"\n{}")

	if _, err := m.Parse(); err == nil {
		t.Fatal("expected trailing data to be rejected")
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()
	base := func() Config {
		return Config{
			Telegram: TelegramConfig{Token: "123:abc"},
			Schedule: ScheduleConfig{Enabled: true, DailyAt: "08:00"},
			Sheet:    SheetConfig{Driver: "csv", Path: "r.csv", Table: "t"},
			Registry: RegistryConfig{Path: "g.json"},
		}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing token", func(c *Config) { c.Telegram.Token = " " }},
		{"bad poll timeout", func(c *Config) { c.Telegram.PollTimeout = "soon" }},
		{"bad timezone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }},
		{"enabled without daily_at", func(c *Config) { c.Schedule.DailyAt = "" }},
		{"missing sheet driver", func(c *Config) { c.Sheet.Driver = "" }},
		{"unknown sheet driver", func(c *Config) { c.Sheet.Driver = "excel" }},
		{"missing sheet path", func(c *Config) { c.Sheet.Path = "" }},
		{"missing registry path", func(c *Config) { c.Registry.Path = "" }},
		{"negative rate", func(c *Config) { c.Broadcast.RatePerSec = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	good := base()
	if err := good.Validate(); err != nil {
		t.Fatalf("baseline config must validate: %v", err)
	}
}

func TestSubscribePublishDropsOldest(t *testing.T) {
	t.Parallel()
	m := writeConfig(t, "config.json", validJSON)
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	first := &Config{}
	second := &Config{Users: map[string]string{"1": "@a"}}
	m.publish(first)
	m.publish(second)

	got := <-ch
	if got != second {
		t.Fatal("slow subscriber must receive the newest config")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationField("k", " 10s "); err != nil || d.Seconds() != 10 {
		t.Fatalf("got %v, %v", d, err)
	}
	if d, err := ParseDurationField("k", ""); err != nil || d != 0 {
		t.Fatalf("empty: got %v, %v", d, err)
	}
	if _, err := ParseDurationField("k", "-5s"); err == nil {
		t.Fatal("negative duration must error")
	}
	if _, err := ParseDurationField("k", "later"); err == nil {
		t.Fatal("garbage duration must error")
	}
}
