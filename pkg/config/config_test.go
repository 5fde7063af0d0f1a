package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"LEDGER_ROOT", "LEDGER_DB_PATH", "LEDGER_MODULES_FILE", "LEDGER_ADDR", "LEDGER_WORKERS", "DEBUG"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Ledger.Root != "./ledger" {
		t.Errorf("Ledger.Root = %q, expected ./ledger", cfg.Ledger.Root)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, expected :8080", cfg.Server.Addr)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, expected 4", cfg.Workers)
	}
	if cfg.Debug {
		t.Error("Debug = true, expected false")
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	envPath := filepath.Join(t.TempDir(), ".env")
	content := "LEDGER_ROOT=/books\nLEDGER_WORKERS=8\nLEDGER_DB_PATH=/books/h.db\nDEBUG=true\n"
	if err := os.WriteFile(envPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(envPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Ledger.Root != "/books" || cfg.Ledger.DBPath != "/books/h.db" {
		t.Errorf("Ledger = %+v", cfg.Ledger)
	}
	if cfg.Workers != 8 || !cfg.Debug {
		t.Errorf("Workers = %d, Debug = %v", cfg.Workers, cfg.Debug)
	}
}

func TestLoadInvalidWorkers(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not a number", "many"},
		{"zero", "0"},
		{"negative", "-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Chdir(t.TempDir())
			t.Setenv("LEDGER_WORKERS", tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() with LEDGER_WORKERS=%q expected error", tt.value)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Ledger: LedgerConfig{Root: "/books"},
		Server: ServerConfig{Addr: ":8080"},
	}

	if err := cfg.Validate([]string{"ledger", "root"}, []string{"server", "addr"}); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	err := cfg.Validate([]string{"ledger", "root"}, []string{"ledger", "modulesFile"})
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	if !strings.Contains(err.Error(), "ledger.modulesFile") {
		t.Errorf("error = %q, expected to name ledger.modulesFile", err.Error())
	}
}
