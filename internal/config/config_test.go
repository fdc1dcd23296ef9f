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
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
app:
  env: dev
http:
  addr: ":9090"
storage:
  driver: memory
auth:
  jwt_secret: s3cret
  token_ttl: 2h
ledger:
  allow_negative_stock: true
kafka:
  brokers: ["k1:9092", "k2:9092"]
  topic: stock
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.App.Env != "dev" || c.HTTP.Addr != ":9090" {
		t.Errorf("unexpected app/http: %+v %+v", c.App, c.HTTP)
	}
	if c.Auth.TokenTTL != 2*time.Hour {
		t.Errorf("expected 2h ttl, got %s", c.Auth.TokenTTL)
	}
	if !c.Ledger.AllowNegativeStock {
		t.Error("expected allow_negative_stock from file")
	}
	if len(c.Kafka.Brokers) != 2 || c.Kafka.Topic != "stock" {
		t.Errorf("unexpected kafka config: %+v", c.Kafka)
	}
	// untouched keys keep defaults
	if c.GRPC.Addr != ":50051" || c.Redis.PoolSize != 100 {
		t.Errorf("defaults not applied: grpc=%q pool=%d", c.GRPC.Addr, c.Redis.PoolSize)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: memory
auth:
  jwt_secret: from-file
`)
	t.Setenv("SUPPLY_AUTH_JWT_SECRET", "from-env")
	t.Setenv("SUPPLY_HTTP_ADDR", ":7000")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Auth.JWTSecret != "from-env" {
		t.Errorf("expected env secret, got %q", c.Auth.JWTSecret)
	}
	if c.HTTP.Addr != ":7000" {
		t.Errorf("expected env addr, got %q", c.HTTP.Addr)
	}
}

func TestLoad_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("SUPPLY_STORAGE_DRIVER", "memory")
	t.Setenv("SUPPLY_AUTH_JWT_SECRET", "x")

	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Storage.Driver != StorageMemory {
		t.Errorf("expected memory driver, got %q", c.Storage.Driver)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		var c Config
		c.Storage.Driver = StorageMemory
		c.Auth.JWTSecret = "x"
		c.Auth.TokenTTL = time.Hour
		return c
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"no secret", func(c *Config) { c.Auth.JWTSecret = "" }, "jwt_secret"},
		{"zero ttl", func(c *Config) { c.Auth.TokenTTL = 0 }, "token_ttl"},
		{"mysql without dsn", func(c *Config) { c.Storage.Driver = StorageMySQL; c.Redis.Addr = "r:6379" }, "mysql.dsn"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "sqlite" }, "unknown storage driver"},
		{"brokers without topic", func(c *Config) { c.Kafka.Brokers = []string{"k:9092"} }, "kafka.topic"},
	}

	for _, tc := range cases {
		c := base()
		tc.mutate(&c)
		err := c.Validate()
		if tc.errMsg == "" {
			if err != nil {
				t.Errorf("%s: unexpected error %v", tc.name, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
			t.Errorf("%s: expected error containing %q, got %v", tc.name, tc.errMsg, err)
		}
	}
}
