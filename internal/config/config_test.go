package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadCreatesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Database.Driver != "sqlite3" {
		t.Fatalf("expected sqlite3 default driver, got %q", cfg.Database.Driver)
	}
	if cfg.Tracker.ClassNameProperty != "Class-Name" {
		t.Fatalf("expected Class-Name property, got %q", cfg.Tracker.ClassNameProperty)
	}
	if _, err := os.Stat(filepath.Join(home, ".devtracker", "config.toml")); err != nil {
		t.Fatalf("expected config file to be created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".devtracker", "db")); err != nil {
		t.Fatalf("expected db directory to be created: %v", err)
	}

	again, err := Load()
	if err != nil {
		t.Fatalf("second load failed: %v", err)
	}
	if again.Database.QueryTimeout != cfg.Database.QueryTimeout {
		t.Fatalf("expected saved defaults to round-trip, got %v", again.Database.QueryTimeout)
	}
}

func TestLoadFileMySQL(t *testing.T) {
	path := writeConfig(t, `
[database]
driver = "mysql"
host = "db.example.edu"
port = 3307
user = "webcat"
name = "web-cat"

[tracker]
class_name_property = "Class"
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Database.Host != "db.example.edu" || cfg.Database.Port != 3307 {
		t.Fatalf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Tracker.ClassNameProperty != "Class" {
		t.Fatalf("expected class name property override, got %q", cfg.Tracker.ClassNameProperty)
	}
	if cfg.Database.QueryTimeout != 30*time.Second {
		t.Fatalf("expected default query timeout to survive, got %v", cfg.Database.QueryTimeout)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[database]
driver = "mysql"
host = "localhost"
user = "webcat"
password = "from-file"
name = "web-cat"
`)
	t.Setenv("DEVTRACKER_DATABASE_PASSWORD", "from-env")
	t.Setenv("DEVTRACKER_DATABASE_MAX_OPEN_CONNS", "9")
	t.Setenv("DEVTRACKER_DATABASE_QUERY_TIMEOUT", "5s")
	t.Setenv("DEVTRACKER_LOGGING_LEVEL", "debug")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Database.Password != "from-env" {
		t.Fatalf("expected env password, got %q", cfg.Database.Password)
	}
	if cfg.Database.MaxOpenConns != 9 {
		t.Fatalf("expected 9 open conns, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Database.QueryTimeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %v", cfg.Database.QueryTimeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected debug level, got %q", cfg.Logging.Level)
	}
	if cfg.Database.Host != "localhost" {
		t.Fatalf("expected file host to be kept, got %q", cfg.Database.Host)
	}
}

func TestValidationRejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"unknown driver": `
[database]
driver = "oracle"
`,
		"mysql without host": `
[database]
driver = "mysql"
host = ""
user = "webcat"
`,
		"bad log level": `
[logging]
level = "loud"
`,
	}
	for name, body := range cases {
		_, err := LoadFile(writeConfig(t, body))
		if err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
		if !strings.Contains(err.Error(), "invalid config") {
			t.Fatalf("%s: unexpected error %v", name, err)
		}
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if got := expandPath("~/mirror.sqlite"); got != filepath.Join(home, "mirror.sqlite") {
		t.Fatalf("unexpected expansion %q", got)
	}
	if got := expandPath("/var/db.sqlite"); got != "/var/db.sqlite" {
		t.Fatalf("expected absolute path unchanged, got %q", got)
	}
}
