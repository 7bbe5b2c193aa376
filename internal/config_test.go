package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgconfig "github.com/starford/ticktock/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestStoreConfig_DefaultsToMemory(t *testing.T) {
	cfg := StoreConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty driver should default to memory: %v", err)
	}
	if cfg.Driver != StoreDriverMemory {
		t.Errorf("driver = %q, want %q", cfg.Driver, StoreDriverMemory)
	}
}

func TestStoreConfig_SQLiteRequiresPath(t *testing.T) {
	cfg := StoreConfig{Driver: StoreDriverSQLite}
	if err := cfg.Validate(); err == nil {
		t.Fatal("sqlite driver without path should fail")
	}
	cfg.SQLitePath = "ticktock.db"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sqlite driver with path should pass: %v", err)
	}
}

func TestStoreConfig_UnknownDriver(t *testing.T) {
	cfg := StoreConfig{Driver: "postgres"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown driver should fail validation")
	}
}

func TestInboxConfig(t *testing.T) {
	if err := (&InboxConfig{Enabled: false}).Validate(); err != nil {
		t.Errorf("disabled inbox needs no path: %v", err)
	}
	if err := (&InboxConfig{Enabled: true}).Validate(); err == nil {
		t.Error("enabled inbox without path should fail")
	}
	if err := (&InboxConfig{Enabled: true, Path: "./inbox"}).Validate(); err != nil {
		t.Errorf("enabled inbox with path should pass: %v", err)
	}
}

func TestHTTPConfig_PortRange(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := HTTPConfig{Port: port}
		if err := cfg.Validate(); err == nil {
			t.Errorf("port %d should fail validation", port)
		}
	}
	cfg := HTTPConfig{Port: 8080}
	if cfg.Address() != ":8080" {
		t.Errorf("address = %q", cfg.Address())
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("TICKTOCK_TEST_TOKEN", "from-env")
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `app:
  log_level: DEBUG
  http:
    port: 9090
store:
  driver: sqlite
  sqlite_path: /tmp/ticktock.db
  demo_data: true
inbox:
  enabled: true
  path: /tmp/inbox
auth:
  mode: token
  token: ${TICKTOCK_TEST_TOKEN}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelDebug || cfg.App.HTTP.Port != 9090 {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Store.Driver != StoreDriverSQLite || cfg.Store.SQLitePath != "/tmp/ticktock.db" || !cfg.Store.DemoData {
		t.Errorf("store = %+v", cfg.Store)
	}
	if !cfg.Inbox.Enabled || cfg.Inbox.Path != "/tmp/inbox" {
		t.Errorf("inbox = %+v", cfg.Inbox)
	}
	if cfg.Auth.Token != "from-env" || !cfg.Auth.AuthEnabled() {
		t.Errorf("auth = %+v", cfg.Auth)
	}
}
