package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("OWNER_ADDRESS", "0x52908400098527886E0F7030069857D2E4169EE7")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %s, want postgres", cfg.Database.Driver)
	}
	if cfg.SweepInterval() != 30*time.Second {
		t.Errorf("sweep interval = %s", cfg.SweepInterval())
	}
	if cfg.IsProduction() {
		t.Errorf("default environment should not be production")
	}
}

func TestLoadRequiresOwnerAndSecret(t *testing.T) {
	t.Setenv("OWNER_ADDRESS", "")
	t.Setenv("JWT_SECRET", "x")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without OWNER_ADDRESS")
	}

	t.Setenv("OWNER_ADDRESS", "0x52908400098527886E0F7030069857D2E4169EE7")
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}
}

func TestLoadTOMLThenEnv(t *testing.T) {
	setRequired(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
environment = "production"

[database]
driver = "sqlite"
sqlite_path = "from-file.db"

[jobs]
sweep_interval_sec = 5
archive_interval_sec = 60
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SQLITE_PATH", "from-env.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("driver = %s, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.SQLitePath != "from-env.db" {
		t.Errorf("env should override file, got %s", cfg.Database.SQLitePath)
	}
	if cfg.SweepInterval() != 5*time.Second {
		t.Errorf("sweep interval = %s", cfg.SweepInterval())
	}
	if !cfg.IsProduction() {
		t.Errorf("expected production")
	}
}

func TestSecretFile(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), "jwt")
	if err := os.WriteFile(path, []byte("from-file\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	t.Setenv("JWT_SECRET_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.JWTSecret != "from-file" {
		t.Fatalf("JWTSecret = %q, want from-file", cfg.App.JWTSecret)
	}
}

func TestValidateRejectsDriver(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_DRIVER", "mysql")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestRedisAndNonceSettings(t *testing.T) {
	setRequired(t)
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("AUTH_NONCE_TTL_SECONDS", "90")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Redis.TLSEnabled {
		t.Errorf("REDIS_TLS not applied")
	}
	if cfg.NonceTTL() != 90*time.Second {
		t.Errorf("nonce ttl = %s, want 90s", cfg.NonceTTL())
	}
	if Defaults().App.NonceTTLSeconds != 300 {
		t.Errorf("default nonce ttl = %d", Defaults().App.NonceTTLSeconds)
	}
}

func TestFaucetMax(t *testing.T) {
	cfg := Defaults()
	max, err := cfg.FaucetMax()
	if err != nil {
		t.Fatalf("FaucetMax: %v", err)
	}
	if uint64(max) != 1000*1_000_000 {
		t.Fatalf("FaucetMax = %s micros", max.Micros())
	}
}
