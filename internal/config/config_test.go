package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("database.driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.Path != "questboard.db" {
		t.Errorf("database.path = %q, want questboard.db", cfg.Database.Path)
	}
}

func TestParse_MySQLDefaults(t *testing.T) {
	cfg, err := Parse([]byte("database:\n  driver: mysql\n  password: hunter2\n"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	db := cfg.Database
	if db.Host != "127.0.0.1" || db.Port != 3306 || db.User != "root" || db.Name != "questboard" {
		t.Errorf("mysql defaults not applied: %+v", db)
	}
	if db.Password != "hunter2" {
		t.Errorf("password = %q", db.Password)
	}
}

func TestParse_Full(t *testing.T) {
	data := `
server:
  port: 9090
database:
  driver: sqlite
  path: /tmp/qb.db
auth:
  tokens:
    secret-a: alice
    secret-b: bob
notify:
  slack:
    bot_token: xoxb-abc
    channel: C123
  discord:
    bot_token: abc
    channel_id: "1234"
challenges:
  - key: daily-walk
    title: Take a walk
    reward_type: vitality
    subtasks:
      - title: 30 minutes
        total: 30
  - key: daily-read
    title: Read a chapter
`
	cfg, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d", cfg.Server.Port)
	}
	if cfg.Auth.Tokens["secret-a"] != "alice" || cfg.Auth.Tokens["secret-b"] != "bob" {
		t.Errorf("auth.tokens = %v", cfg.Auth.Tokens)
	}
	if cfg.Notify.Slack.Channel != "C123" || cfg.Notify.Discord.ChannelID != "1234" {
		t.Errorf("notify config = %+v", cfg.Notify)
	}
	if len(cfg.Challenges) != 2 {
		t.Fatalf("challenges = %d, want 2", len(cfg.Challenges))
	}
	if cfg.Challenges[0].Subtasks[0].Total != 30 {
		t.Errorf("subtask total = %d", cfg.Challenges[0].Subtasks[0].Total)
	}
	// Unset reward values default to 1.
	if cfg.Challenges[1].RewardValue != 1 {
		t.Errorf("default reward value = %d, want 1", cfg.Challenges[1].RewardValue)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad yaml", "server: [", "parse"},
		{"bad driver", "database:\n  driver: postgres\n", "not supported"},
		{"challenge missing key", "challenges:\n  - title: No key\n", "key is required"},
		{"challenge missing title", "challenges:\n  - key: no-title\n", "title is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("Parse() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questboard.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7777\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("server.port = %d, want 7777", cfg.Server.Port)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of missing file should fail")
	}
}
